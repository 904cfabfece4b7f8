package agents

import (
	"bytes"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(seed int64) *Env {
	return &Env{
		Arena: NewArena(),
		RNG:   rand.New(rand.NewSource(seed)),
		Step:  1,
		Stats: &ShareStats{},
	}
}

func registerContent(env *Env, id ContentID, accuracy, bias float64, kind SourceKind) *Content {
	ct := &Content{
		ID:                id,
		Accuracy:          accuracy,
		FramingBias:       bias,
		SourceAuthority:   0.7,
		SourceCredibility: 0.7,
		SourceKind:        kind,
		EngagementFactor:  1.0,
		AuthorityFactor:   1.0,
		CreatedStep:       env.Step,
		OriginID:          1000,
		SpreadPath:        []AgentID{1000},
		LastSharedStep:    env.Step,
	}
	env.Arena.Register(ct)
	return ct
}

func TestReceiveDuplicateIsCountedNoOp(t *testing.T) {
	env := newTestEnv(1)
	c := NewCitizen(0)
	registerContent(env, "c1", 0.8, 0.0, KindCorporate)

	c.Receive(env, "c1", 1000)
	ta := c.TruthAssessment
	conf := c.Confidence
	trust := c.TrustIn(KindCorporate)
	memLen := len(c.Memory)

	accepted := c.Receive(env, "c1", 1000)
	assert.False(t, accepted)
	assert.Equal(t, 1, env.Stats.DuplicatesPrevented)
	assert.Equal(t, ta, c.TruthAssessment)
	assert.Equal(t, conf, c.Confidence)
	assert.Equal(t, trust, c.TrustIn(KindCorporate))
	assert.Equal(t, memLen, len(c.Memory))
}

func TestReceiveKeepsStateInBounds(t *testing.T) {
	env := newTestEnv(7)
	c := NewCitizen(0)
	c.Confidence = 1.0
	c.CriticalThinking = 10.0

	for i := 0; i < 200; i++ {
		id := newContentID(1000, env.Step, i)
		registerContent(env, id, env.RNG.Float64(), env.RNG.Float64()*10.0-5.0, KindInfluencer)
		c.Receive(env, id, 1000)

		assert.GreaterOrEqual(t, c.TruthAssessment, 0.0)
		assert.LessOrEqual(t, c.TruthAssessment, 1.0)
		assert.GreaterOrEqual(t, c.Confidence, 1.0)
		assert.LessOrEqual(t, c.Confidence, 10.0)
		for _, kind := range Kinds() {
			assert.GreaterOrEqual(t, c.TrustIn(kind), 0.0)
			assert.LessOrEqual(t, c.TrustIn(kind), 10.0)
		}
		assert.LessOrEqual(t, len(c.Memory), MemoryCapacity)
	}
}

func TestMemoryEvictsOldestFirst(t *testing.T) {
	env := newTestEnv(3)
	c := NewCitizen(0)
	for i := 0; i < MemoryCapacity+5; i++ {
		id := newContentID(1000, 1, i)
		registerContent(env, id, 0.5, 0.0, KindCorporate)
		c.Receive(env, id, 1000)
	}
	require.Len(t, c.Memory, MemoryCapacity)
	assert.Equal(t, newContentID(1000, 1, 5), c.Memory[0].ContentID)
	assert.Equal(t, newContentID(1000, 1, MemoryCapacity+4), c.Memory[MemoryCapacity-1].ContentID)
}

func TestUpdateTrustPiecewiseImpact(t *testing.T) {
	cases := []struct {
		name     string
		accuracy float64
		wantSign float64
	}{
		{"very inaccurate", 0.1, -1},
		{"borderline low", 0.45, -1},
		{"borderline high", 0.55, 1},
		{"very accurate", 0.9, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCitizen(0)
			before := c.TrustIn(KindGovernment)
			c.UpdateTrust(KindGovernment, tc.accuracy)
			delta := c.TrustIn(KindGovernment) - before
			if tc.wantSign > 0 {
				assert.Greater(t, delta, 0.0)
			} else {
				assert.Less(t, delta, 0.0)
			}
		})
	}
}

func TestUpdateTrustClamps(t *testing.T) {
	c := NewCitizen(0)
	c.CriticalThinking = 10.0
	for i := 0; i < 20; i++ {
		c.UpdateTrust(KindCorporate, 0.0)
	}
	assert.Equal(t, 0.0, c.TrustIn(KindCorporate))
	for i := 0; i < 20; i++ {
		c.UpdateTrust(KindCorporate, 1.0)
	}
	assert.Equal(t, 10.0, c.TrustIn(KindCorporate))
}

func TestTrustInInsertsDefaultForUnknownKind(t *testing.T) {
	c := NewCitizen(0)
	delete(c.Trust, KindGovernment)
	assert.Equal(t, DefaultTrust, c.TrustIn(KindGovernment))
	_, ok := c.Trust[KindGovernment]
	assert.True(t, ok)
}

func TestNetworkInfluencePullsTowardNeighbors(t *testing.T) {
	c := NewCitizen(0)
	c.TruthAssessment = 0.2
	c.SocialConformity = 10.0

	high := NewCitizen(1)
	high.TruthAssessment = 0.9
	high.Influence = 9.0
	low := NewCitizen(2)
	low.TruthAssessment = 0.1
	low.Influence = 1.0
	c.Neighbors = []*Citizen{high, low}

	before := c.TruthAssessment
	c.ApplyNetworkInfluence()
	assert.Greater(t, c.TruthAssessment, before)
}

func TestNetworkInfluenceNoNeighborsNoOp(t *testing.T) {
	c := NewCitizen(0)
	c.TruthAssessment = 0.3
	c.ApplyNetworkInfluence()
	assert.Equal(t, 0.3, c.TruthAssessment)
}

func TestNetworkInfluenceZeroWeightNoOp(t *testing.T) {
	c := NewCitizen(0)
	c.TruthAssessment = 0.3
	n := NewCitizen(1)
	n.TruthAssessment = 0.9
	n.Influence = 0.0
	c.Neighbors = []*Citizen{n}
	c.ApplyNetworkInfluence()
	assert.Equal(t, 0.3, c.TruthAssessment)
}

// Repeated accurate content from a trusted kind should pull a receptive
// citizen's assessment above neutral.
func TestAccurateContentRaisesAssessment(t *testing.T) {
	env := newTestEnv(42)
	c := NewCitizen(0)
	c.TruthAssessment = 0.5
	c.TruthSeeking = 4.0
	c.CriticalThinking = 8.0
	c.ConfirmationBias = 2.0

	for i := 0; i < 20; i++ {
		id := newContentID(1000, 1, i)
		ct := registerContent(env, id, 0.9, -3.0, KindCorporate)
		ct.SourceCredibility = 0.9
		c.Receive(env, id, 1000)
	}
	assert.Greater(t, c.TruthAssessment, 0.5)
}

// Opposed information diets drive assessments apart: a truth-avoidant,
// high-confirmation-bias citizen fed inaccurate content ends below neutral,
// while a truth-seeking citizen fed accurate content ends above it.
func TestOpposedDietsDivergeAssessments(t *testing.T) {
	env := newTestEnv(42)

	avoider := NewCitizen(0)
	avoider.TruthSeeking = -4.0
	avoider.ConfirmationBias = 8.0

	seeker := NewCitizen(1)
	seeker.TruthSeeking = 4.0

	for i := 0; i < 15; i++ {
		low := registerContent(env, newContentID(1000, 1, i), 0.2, 0.0, KindCorporate)
		low.SourceCredibility = 0.9
		avoider.Receive(env, low.ID, 1000)

		high := registerContent(env, newContentID(1001, 1, i), 0.9, 0.0, KindGovernment)
		high.SourceCredibility = 0.9
		seeker.Receive(env, high.ID, 1001)
	}

	assert.Less(t, avoider.TruthAssessment, 0.5)
	assert.Greater(t, seeker.TruthAssessment, 0.5)
	assert.Less(t, avoider.TruthAssessment, seeker.TruthAssessment)
}

// The missing-trust warning is keyed to the default insertion, so it fires
// once per citizen and kind with no state shared across citizens or runs.
func TestTrustInWarnsOncePerCitizen(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	a := NewCitizen(0)
	delete(a.Trust, KindGovernment)
	a.TrustIn(KindGovernment)
	a.TrustIn(KindGovernment)
	assert.Equal(t, 1, strings.Count(buf.String(), "trust entry missing"))

	b := NewCitizen(1)
	delete(b.Trust, KindGovernment)
	b.TrustIn(KindGovernment)
	assert.Equal(t, 2, strings.Count(buf.String(), "trust entry missing"))
}

func TestShareEmptyMemory(t *testing.T) {
	env := newTestEnv(1)
	c := NewCitizen(0)
	_, ok := c.Share(env)
	assert.False(t, ok)
}

func TestShareReturnsCanonicalIDAndExtendsPath(t *testing.T) {
	env := newTestEnv(9)
	c := NewCitizen(0)
	c.Confidence = 10.0 // share probability 0.5
	ct := registerContent(env, "c1", 0.6, 0.0, KindCorporate)
	c.Receive(env, "c1", 1000)

	shared := false
	for i := 0; i < 100 && !shared; i++ {
		id, ok := c.Share(env)
		if ok {
			shared = true
			assert.Equal(t, ContentID("c1"), id)
		}
	}
	require.True(t, shared)
	assert.True(t, ct.InPath(c.ID))

	// The path stays duplicate-free no matter how often the citizen shares.
	before := len(ct.SpreadPath)
	for i := 0; i < 100; i++ {
		c.Share(env)
	}
	assert.Equal(t, before, len(ct.SpreadPath))
}

func TestSeekAvoiderNeverActs(t *testing.T) {
	env := newTestEnv(5)
	c := NewCitizen(0)
	c.TruthSeeking = -3.0
	registerContent(env, "c1", 0.8, 0.0, KindCorporate)
	media := []*MediaSource{NewMediaSource(100, KindCorporate)}

	for i := 0; i < 500; i++ {
		c.Seek(env, media)
	}
	assert.Equal(t, 0, c.ReceivedCount())
}

func TestSeekerPullsUnreadContent(t *testing.T) {
	env := newTestEnv(5)
	c := NewCitizen(0)
	c.TruthSeeking = 4.0
	registerContent(env, "c1", 0.8, 0.0, KindCorporate)
	media := []*MediaSource{NewMediaSource(100, KindCorporate)}

	c.Seek(env, media)
	assert.True(t, c.HasReceived("c1"))

	// Everything read: further seeking changes nothing.
	c.Seek(env, media)
	assert.Equal(t, 1, c.ReceivedCount())
}

func TestSeekLegacyFallbackCreatesContent(t *testing.T) {
	env := newTestEnv(11)
	c := NewCitizen(0)
	c.TruthSeeking = 4.0
	media := []*MediaSource{NewMediaSource(100, KindCorporate)}

	// The fallback fires with probability 0.001 per call; drive it until the
	// arena is populated.
	for i := 0; i < 20000 && env.Arena.Len() == 0; i++ {
		c.Seek(env, media)
	}
	require.Equal(t, 1, env.Arena.Len())
	assert.Equal(t, 1, c.ReceivedCount())
	assert.False(t, media[0].HasPublished())
}

func TestStepAllNeighborsAwareCountsDuplicates(t *testing.T) {
	env := newTestEnv(2)
	c := NewCitizen(0)
	c.Confidence = 10.0
	c.TruthSeeking = -5.0
	n1 := NewCitizen(1)
	n2 := NewCitizen(2)
	c.Neighbors = []*Citizen{n1, n2}

	registerContent(env, "c1", 0.6, 0.0, KindCorporate)
	c.Receive(env, "c1", 1000)
	n1.Receive(env, "c1", 1000)
	n2.Receive(env, "c1", 1000)
	env.Stats = &ShareStats{}

	for i := 0; i < 100; i++ {
		c.Step(env, nil)
		if env.Stats.DuplicatesPrevented > 0 {
			break
		}
	}
	assert.Equal(t, 2, env.Stats.DuplicatesPrevented)
	assert.Equal(t, 0, env.Stats.SuccessfulShares)
}
