// Package engine coordinates the simulation: population setup, the per-step
// agent schedule, publication control, and metrics capture.
package engine

import (
	"github.com/talgya/infoflow/internal/agents"
	"github.com/talgya/infoflow/internal/network"
)

// Config fully describes one simulation run. Replaying the same Config,
// including Seed, reproduces the run exactly.
type Config struct {
	NumCitizens    int `json:"num_citizens"`
	NumCorporate   int `json:"num_corporate"`
	NumInfluencers int `json:"num_influencers"`
	NumGovernment  int `json:"num_government"`

	Citizens agents.CitizenParams `json:"citizens"`
	Media    agents.MediaParams   `json:"media"`

	NetworkKind   network.Kind   `json:"network_kind"`
	NetworkParams network.Params `json:"network_params"`

	// LegacySecondPass runs the standalone influence and seek passes before
	// the per-citizen steps, so both effects apply twice per step.
	LegacySecondPass bool `json:"legacy_second_pass"`

	Seed int64 `json:"seed"`
}

// DefaultConfig returns the baseline run parameters: 100 citizens, 3
// corporate / 5 influencer / 1 government sources, mildly truth-seeking
// population, small-world contact graph.
func DefaultConfig() Config {
	return Config{
		NumCitizens:    100,
		NumCorporate:   3,
		NumInfluencers: 5,
		NumGovernment:  1,
		Citizens: agents.CitizenParams{
			TruthSeekingMean:    1.0,
			TruthSeekingStd:     2.0,
			ConfirmationBiasMin: 4.0,
			ConfirmationBiasMax: 7.0,
			CriticalThinkingMin: 4.0,
			CriticalThinkingMax: 7.0,
			SocialConformityMin: 4.0,
			SocialConformityMax: 7.0,
			InitialTrust: map[agents.SourceKind]float64{
				agents.KindCorporate:  5.0,
				agents.KindInfluencer: 5.0,
				agents.KindGovernment: 5.0,
			},
		},
		Media: agents.MediaParams{
			CorporateBiasMin:          -3.0,
			CorporateBiasMax:          3.0,
			InfluencerBiasMin:         -4.0,
			InfluencerBiasMax:         4.0,
			GovernmentBias:            1.0,
			TruthCommitmentCorporate:  6.0,
			TruthCommitmentInfluencer: 4.0,
			TruthCommitmentGovernment: 5.0,
			ReachCorporate:            0.7,
			ReachInfluencer:           0.6,
			ReachGovernment:           0.7,
		},
		NetworkKind:      network.SmallWorld,
		NetworkParams:    network.DefaultParams(),
		LegacySecondPass: true,
		Seed:             42,
	}
}
