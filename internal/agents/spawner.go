// Population spawning: trait sampling for citizens and profile setup for
// media sources, all drawn from the run's shared generator.
package agents

import "math/rand"

// CitizenParams controls trait sampling for a spawned population.
type CitizenParams struct {
	TruthSeekingMean float64
	TruthSeekingStd  float64

	ConfirmationBiasMin float64
	ConfirmationBiasMax float64
	CriticalThinkingMin float64
	CriticalThinkingMax float64
	SocialConformityMin float64
	SocialConformityMax float64

	// InitialTrust overrides the default per-kind trust; missing kinds
	// start at DefaultTrust.
	InitialTrust map[SourceKind]float64
}

// MediaParams controls the profile of spawned media sources, per kind.
type MediaParams struct {
	CorporateBiasMin  float64
	CorporateBiasMax  float64
	InfluencerBiasMin float64
	InfluencerBiasMax float64
	GovernmentBias    float64

	TruthCommitmentCorporate  float64
	TruthCommitmentInfluencer float64
	TruthCommitmentGovernment float64

	ReachCorporate  float64
	ReachInfluencer float64
	ReachGovernment float64
}

// Spawner hands out sequential agent IDs and samples agent traits. It shares
// the run generator so spawning participates in seed determinism.
type Spawner struct {
	rng    *rand.Rand
	nextID AgentID
}

// NewSpawner creates a spawner drawing from the given generator.
func NewSpawner(rng *rand.Rand) *Spawner {
	return &Spawner{rng: rng}
}

func (s *Spawner) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// SpawnCitizens creates n citizens with traits sampled from the parameter
// ranges. Truth seeking is normally distributed and clamped to [-5, 5]; the
// remaining cognitive traits are uniform in their configured ranges.
func (s *Spawner) SpawnCitizens(n int, p CitizenParams) []*Citizen {
	citizens := make([]*Citizen, 0, n)
	for i := 0; i < n; i++ {
		c := NewCitizen(s.nextID)
		s.nextID++

		c.TruthAssessment = s.rng.Float64()
		c.Confidence = 5.0
		c.TruthSeeking = clamp(s.rng.NormFloat64()*p.TruthSeekingStd+p.TruthSeekingMean, -5.0, 5.0)
		c.ConfirmationBias = s.uniform(p.ConfirmationBiasMin, p.ConfirmationBiasMax)
		c.CriticalThinking = s.uniform(p.CriticalThinkingMin, p.CriticalThinkingMax)
		c.SocialConformity = s.uniform(p.SocialConformityMin, p.SocialConformityMax)
		c.Influence = 1.0 + s.rng.Float64()*9.0

		for _, kind := range Kinds() {
			if t, ok := p.InitialTrust[kind]; ok {
				c.Trust[kind] = clamp(t, 0.0, 10.0)
			}
		}
		citizens = append(citizens, c)
	}
	return citizens
}

// SpawnMedia creates the media sources: counts per kind, with political bias,
// truth commitment, and reach taken from the parameters. Government bias is
// fixed rather than sampled.
func (s *Spawner) SpawnMedia(corporate, influencers, government int, p MediaParams) []*MediaSource {
	var media []*MediaSource

	for i := 0; i < corporate; i++ {
		m := NewMediaSource(s.nextID, KindCorporate)
		s.nextID++
		m.PoliticalBias = s.uniform(p.CorporateBiasMin, p.CorporateBiasMax)
		m.TruthCommitment = p.TruthCommitmentCorporate
		m.InfluenceReach = p.ReachCorporate
		media = append(media, m)
	}
	for i := 0; i < influencers; i++ {
		m := NewMediaSource(s.nextID, KindInfluencer)
		s.nextID++
		m.PoliticalBias = s.uniform(p.InfluencerBiasMin, p.InfluencerBiasMax)
		m.TruthCommitment = p.TruthCommitmentInfluencer
		m.InfluenceReach = p.ReachInfluencer
		media = append(media, m)
	}
	for i := 0; i < government; i++ {
		m := NewMediaSource(s.nextID, KindGovernment)
		s.nextID++
		m.PoliticalBias = p.GovernmentBias
		m.TruthCommitment = p.TruthCommitmentGovernment
		m.InfluenceReach = p.ReachGovernment
		media = append(media, m)
	}
	return media
}
