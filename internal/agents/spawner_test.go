package agents

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnCitizensTraitRanges(t *testing.T) {
	s := NewSpawner(rand.New(rand.NewSource(1)))
	p := CitizenParams{
		TruthSeekingMean:    0.0,
		TruthSeekingStd:     10.0, // wide std to exercise the clamp
		ConfirmationBiasMin: 4.0,
		ConfirmationBiasMax: 7.0,
		CriticalThinkingMin: 4.0,
		CriticalThinkingMax: 7.0,
		SocialConformityMin: 4.0,
		SocialConformityMax: 7.0,
	}

	citizens := s.SpawnCitizens(500, p)
	require.Len(t, citizens, 500)
	for i, c := range citizens {
		assert.Equal(t, AgentID(i), c.ID)
		assert.GreaterOrEqual(t, c.TruthSeeking, -5.0)
		assert.LessOrEqual(t, c.TruthSeeking, 5.0)
		assert.GreaterOrEqual(t, c.ConfirmationBias, 4.0)
		assert.LessOrEqual(t, c.ConfirmationBias, 7.0)
		assert.GreaterOrEqual(t, c.Influence, 1.0)
		assert.LessOrEqual(t, c.Influence, 10.0)
		for _, kind := range Kinds() {
			assert.Equal(t, DefaultTrust, c.TrustIn(kind))
		}
	}
}

func TestSpawnCitizensInitialTrustOverride(t *testing.T) {
	s := NewSpawner(rand.New(rand.NewSource(1)))
	p := CitizenParams{
		InitialTrust: map[SourceKind]float64{
			KindGovernment: 12.0, // out of range, clamped
			KindCorporate:  2.0,
		},
	}
	c := s.SpawnCitizens(1, p)[0]
	assert.Equal(t, 10.0, c.TrustIn(KindGovernment))
	assert.Equal(t, 2.0, c.TrustIn(KindCorporate))
	assert.Equal(t, DefaultTrust, c.TrustIn(KindInfluencer))
}

func TestSpawnMediaCountsAndIDsContinue(t *testing.T) {
	s := NewSpawner(rand.New(rand.NewSource(1)))
	citizens := s.SpawnCitizens(10, CitizenParams{})
	media := s.SpawnMedia(3, 5, 1, MediaParams{
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
	})
	require.Len(t, media, 9)
	assert.Equal(t, AgentID(len(citizens)), media[0].ID)

	counts := map[SourceKind]int{}
	for _, m := range media {
		counts[m.Kind]++
	}
	assert.Equal(t, 3, counts[KindCorporate])
	assert.Equal(t, 5, counts[KindInfluencer])
	assert.Equal(t, 1, counts[KindGovernment])

	gov := media[8]
	assert.Equal(t, 1.0, gov.PoliticalBias)
	for _, m := range media[:3] {
		assert.GreaterOrEqual(t, m.PoliticalBias, -3.0)
		assert.LessOrEqual(t, m.PoliticalBias, 3.0)
	}
}
