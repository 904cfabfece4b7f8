package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/infoflow/internal/agents"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.NumCitizens = 30
	cfg.Seed = 7
	return cfg
}

func TestNewCapturesStepZero(t *testing.T) {
	s := New(smallConfig())
	require.Len(t, s.History, 1)
	assert.Equal(t, 0.0, s.History[0]["current_step"])
	require.Contains(t, s.Snapshots, 0)
	assert.Len(t, s.Snapshots[0], 30)
}

func TestNeighborsWiredFromGraph(t *testing.T) {
	s := New(smallConfig())
	for i, c := range s.Citizens {
		expected := s.Graph.Neighbors(i)
		require.Len(t, c.Neighbors, len(expected))
		for j, n := range c.Neighbors {
			assert.Equal(t, agents.AgentID(expected[j]), n.ID)
		}
	}
}

func TestInfluencersHaveFollowers(t *testing.T) {
	s := New(smallConfig())
	for _, m := range s.Media {
		if m.Kind != agents.KindInfluencer {
			assert.Empty(t, m.Followers)
			continue
		}
		assert.NotEmpty(t, m.Followers)
		assert.LessOrEqual(t, len(m.Followers), len(s.Citizens))
	}
}

func TestSeedDeterminism(t *testing.T) {
	a := New(smallConfig())
	b := New(smallConfig())
	a.RunSteps(20)
	b.RunSteps(20)

	require.Equal(t, a.History, b.History)
	require.Equal(t, a.Snapshots, b.Snapshots)
	assert.Equal(t, a.Arena.Len(), b.Arena.Len())
}

func TestDifferentSeedsDiverge(t *testing.T) {
	cfgA := smallConfig()
	cfgB := smallConfig()
	cfgB.Seed = 8
	a := New(cfgA)
	b := New(cfgB)
	a.RunSteps(10)
	b.RunSteps(10)
	assert.NotEqual(t, a.History[10], b.History[10])
}

func TestAtMostOnePublicationPerKind(t *testing.T) {
	s := New(smallConfig())
	s.RunSteps(50)

	assert.LessOrEqual(t, s.Arena.Len(), agents.NumKinds)

	seen := map[agents.SourceKind]int{}
	for _, ct := range s.Arena.All() {
		seen[ct.SourceKind]++
	}
	for kind, count := range seen {
		assert.LessOrEqual(t, count, 1, "kind %s published more than once", kind)
	}
	for _, kind := range agents.Kinds() {
		assert.Equal(t, StatePublished, s.Published(kind))
	}
}

func TestNoPublicationForAbsentKind(t *testing.T) {
	cfg := smallConfig()
	cfg.NumGovernment = 0
	s := New(cfg)
	s.RunSteps(20)

	for _, ct := range s.Arena.All() {
		assert.NotEqual(t, agents.KindGovernment, ct.SourceKind)
	}
}

func TestInvariantBoundsHoldAfterStepping(t *testing.T) {
	s := New(smallConfig())
	s.RunSteps(50)

	for _, c := range s.Citizens {
		assert.GreaterOrEqual(t, c.TruthAssessment, 0.0)
		assert.LessOrEqual(t, c.TruthAssessment, 1.0)
		assert.GreaterOrEqual(t, c.Confidence, 1.0)
		assert.LessOrEqual(t, c.Confidence, 10.0)
		for _, kind := range agents.Kinds() {
			assert.GreaterOrEqual(t, c.TrustIn(kind), 0.0)
			assert.LessOrEqual(t, c.TrustIn(kind), 10.0)
		}
		assert.LessOrEqual(t, len(c.Memory), agents.MemoryCapacity)
	}
}

func TestSpreadPathsDuplicateFree(t *testing.T) {
	s := New(smallConfig())
	s.RunSteps(50)

	for _, ct := range s.Arena.All() {
		seen := map[agents.AgentID]struct{}{}
		for _, id := range ct.SpreadPath {
			_, dup := seen[id]
			assert.False(t, dup, "content %s path repeats agent %d", ct.ID, id)
			seen[id] = struct{}{}
		}
		assert.LessOrEqual(t, len(ct.SpreadPath), len(s.Citizens)+len(s.Media))
	}
}

func TestMetricsRowShape(t *testing.T) {
	s := New(smallConfig())
	s.RunSteps(5)
	row := s.History[len(s.History)-1]

	for _, key := range []string{
		"avg_truth_assessment", "truth_assessment_var",
		"avg_trust_corporate", "avg_trust_influencer", "avg_trust_government",
		"trust_govt_25pct", "trust_govt_75pct",
		"polarization", "opinion_clusters",
		"total_content_created", "avg_content_spread", "max_content_spread",
		"viral_content_count", "avg_content_accuracy",
		"accuracy_spread_correlation",
		"duplicates_prevented", "successful_shares",
	} {
		_, ok := row[key]
		assert.True(t, ok, "missing metric %q", key)
	}
	assert.Equal(t, 5.0, row["current_step"])
	assert.GreaterOrEqual(t, row["polarization"], 0.0)
	assert.LessOrEqual(t, row["polarization"], 1.0)
}

func TestTinyPopulationRuns(t *testing.T) {
	cfg := smallConfig()
	cfg.NumCitizens = 2
	s := New(cfg)
	s.RunSteps(10)
	assert.Equal(t, 10, s.CurrentStep())
	assert.Len(t, s.History, 11)
}

func TestLegacySecondPassOffStillSteps(t *testing.T) {
	cfg := smallConfig()
	cfg.LegacySecondPass = false
	s := New(cfg)
	s.RunSteps(10)
	assert.Equal(t, 10, s.CurrentStep())
}
