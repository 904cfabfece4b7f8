package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnTestCitizens(n int) []*Citizen {
	citizens := make([]*Citizen, n)
	for i := 0; i < n; i++ {
		citizens[i] = NewCitizen(AgentID(i))
	}
	return citizens
}

func TestAccuracyCurveSegments(t *testing.T) {
	env := newTestEnv(17)

	low := NewMediaSource(100, KindCorporate)
	low.TruthCommitment = 0.0
	for i := 0; i < 100; i++ {
		ct := low.CreateContent(env)
		assert.GreaterOrEqual(t, ct.Accuracy, 0.0)
		assert.LessOrEqual(t, ct.Accuracy, 0.1) // base 0 plus noise, clamped
	}

	high := NewMediaSource(101, KindCorporate)
	high.TruthCommitment = 10.0
	for i := 0; i < 100; i++ {
		ct := high.CreateContent(env)
		assert.GreaterOrEqual(t, ct.Accuracy, 0.66) // base 0.76 ± 0.1 noise
		assert.LessOrEqual(t, ct.Accuracy, 0.86)
	}

	mid := NewMediaSource(102, KindCorporate)
	mid.TruthCommitment = 5.0
	for i := 0; i < 100; i++ {
		ct := mid.CreateContent(env)
		assert.GreaterOrEqual(t, ct.Accuracy, 0.4)
		assert.LessOrEqual(t, ct.Accuracy, 0.6)
	}
}

func TestContentCarriesSourceProfile(t *testing.T) {
	env := newTestEnv(4)
	m := NewMediaSource(100, KindGovernment)
	m.PoliticalBias = 2.5

	ct := m.CreateContent(env)
	assert.Equal(t, 2.5, ct.FramingBias)
	assert.Equal(t, m.Authority/10.0, ct.SourceAuthority)
	assert.Equal(t, m.Credibility/10.0, ct.SourceCredibility)
	assert.Equal(t, KindGovernment, ct.SourceKind)
	assert.Equal(t, []AgentID{100}, ct.SpreadPath)
	assert.Equal(t, env.Step, ct.CreatedStep)
}

func TestAuthorityFactorSegments(t *testing.T) {
	assert.InDelta(t, 0.5, authorityFromCommitment(0.0), 1e-9)
	assert.InDelta(t, 0.8, authorityFromCommitment(3.0), 1e-9)
	assert.InDelta(t, 1.2, authorityFromCommitment(7.0), 1e-9)
	assert.InDelta(t, 1.5, authorityFromCommitment(10.0), 1e-9)
}

func TestKindSpecificContentFactors(t *testing.T) {
	env := newTestEnv(4)

	infl := NewMediaSource(100, KindInfluencer)
	ct := infl.CreateContent(env)
	assert.Equal(t, 1.5, ct.EngagementFactor)
	assert.Equal(t, 1.0, ct.AuthorityFactor)

	gov := NewMediaSource(101, KindGovernment)
	ct = gov.CreateContent(env)
	assert.Equal(t, 1.0, ct.EngagementFactor)
	assert.Greater(t, ct.AuthorityFactor, 0.5)
	assert.Less(t, ct.AuthorityFactor, 1.5)

	corp := NewMediaSource(102, KindCorporate)
	ct = corp.CreateContent(env)
	assert.Equal(t, 1.0, ct.EngagementFactor)
	assert.Equal(t, 1.0, ct.AuthorityFactor)
}

func TestPublishOncePerLifetime(t *testing.T) {
	env := newTestEnv(2)
	m := NewMediaSource(100, KindCorporate)

	ct, ok := m.Publish(env)
	require.True(t, ok)
	require.NotNil(t, ct)
	assert.True(t, m.HasPublished())

	ct, ok = m.Publish(env)
	assert.False(t, ok)
	assert.Nil(t, ct)
}

func TestBroadcastReachSample(t *testing.T) {
	env := newTestEnv(8)
	citizens := spawnTestCitizens(100)
	m := NewMediaSource(200, KindCorporate)
	m.InfluenceReach = 0.7

	ct := m.CreateContent(env)
	m.Broadcast(env, ct, citizens)

	require.True(t, env.Arena.Has(ct.ID))
	reached := 0
	for _, c := range citizens {
		if c.HasReceived(ct.ID) {
			reached++
		}
	}
	assert.Equal(t, 70, reached)
}

func TestBroadcastInfluencerReachesAllFollowers(t *testing.T) {
	env := newTestEnv(8)
	citizens := spawnTestCitizens(100)
	m := NewMediaSource(200, KindInfluencer)
	m.InfluenceReach = 0.4
	for _, c := range citizens[:10] {
		m.AddFollower(c)
	}

	ct := m.CreateContent(env)
	m.Broadcast(env, ct, citizens)

	for _, c := range citizens[:10] {
		assert.True(t, c.HasReceived(ct.ID))
	}
	reached := 0
	for _, c := range citizens {
		if c.HasReceived(ct.ID) {
			reached++
		}
	}
	// 10 followers plus reach/2 of the remaining 90.
	assert.Equal(t, 10+18, reached)
}

func TestBroadcastRecordsSeedNodes(t *testing.T) {
	env := newTestEnv(8)
	citizens := spawnTestCitizens(100)
	m := NewMediaSource(200, KindGovernment)
	m.InfluenceReach = 0.6

	ct := m.CreateContent(env)
	m.Broadcast(env, ct, citizens)

	seeds := env.Arena.SeedNodes(ct.ID)
	require.NotEmpty(t, seeds)
	assert.LessOrEqual(t, len(seeds), 5)
	for _, id := range seeds {
		assert.True(t, citizens[id].HasReceived(ct.ID))
	}
}

func TestBroadcastTinyPopulation(t *testing.T) {
	env := newTestEnv(8)
	citizens := spawnTestCitizens(1)
	m := NewMediaSource(200, KindCorporate)
	m.InfluenceReach = 0.7

	ct := m.CreateContent(env)
	m.Broadcast(env, ct, citizens)

	// round(1 * 0.7) = 1: the lone citizen is reached.
	assert.True(t, citizens[0].HasReceived(ct.ID))
	assert.Len(t, env.Arena.SeedNodes(ct.ID), 1)
}

func TestAddFollowerDeduplicates(t *testing.T) {
	m := NewMediaSource(200, KindInfluencer)
	c := NewCitizen(0)
	m.AddFollower(c)
	m.AddFollower(c)
	assert.Len(t, m.Followers, 1)
}
