// Package agents provides the citizen and media-source data model and the
// per-agent behavior rules of the information-flow simulation.
// Citizens consume, evaluate, and re-share content; media sources create it.
package agents

import (
	"log/slog"
	"math/rand"
)

// AgentID identifies any agent in a run. Citizen IDs coincide with their node
// index in the contact graph; media sources are numbered after the citizens.
type AgentID int64

// SourceKind enumerates the closed set of media-source categories.
// Kind tags replace runtime type probing: every behavioral difference between
// source categories dispatches on this value.
type SourceKind uint8

const (
	KindCorporate  SourceKind = iota // broad untargeted reach, higher credibility
	KindInfluencer                   // follower network, engaging content
	KindGovernment                   // authority-weighted broadcast
)

// NumKinds is the total number of source kinds.
const NumKinds = 3

func (k SourceKind) String() string {
	switch k {
	case KindCorporate:
		return "corporate"
	case KindInfluencer:
		return "influencer"
	case KindGovernment:
		return "government"
	}
	return "unknown"
}

// Kinds returns all source kinds in canonical order.
func Kinds() []SourceKind {
	return []SourceKind{KindCorporate, KindInfluencer, KindGovernment}
}

// DefaultTrust is the trust assigned to a source kind a citizen has no
// recorded opinion about yet.
const DefaultTrust = 5.0

// MemoryCapacity bounds a citizen's recency-ordered content memory.
const MemoryCapacity = 10

// MemoryItem references a received content by arena key together with the
// agent that delivered it. Citizens never hold *Content directly.
type MemoryItem struct {
	ContentID ContentID `json:"content_id"`
	SenderID  AgentID   `json:"sender_id"`
}

// Citizen is a population member: belief state, cognitive traits, trust per
// source kind, bounded content memory, and the contact-graph neighbor list.
type Citizen struct {
	ID AgentID `json:"id"`

	// Belief state.
	TruthAssessment float64 `json:"truth_assessment"` // 0–1, 0.5 neutral
	Confidence      float64 `json:"confidence"`       // 0–10

	// Cognitive traits, fixed at spawn.
	TruthSeeking     float64 `json:"truth_seeking"`     // -5–5, negative = avoidant
	ConfirmationBias float64 `json:"confirmation_bias"` // 0–10
	CriticalThinking float64 `json:"critical_thinking"` // 0–10
	SocialConformity float64 `json:"social_conformity"` // 0–10
	Influence        float64 `json:"influence"`         // 0–10, weight on neighbors

	// Trust in each source kind, 0–10.
	Trust map[SourceKind]float64 `json:"trust"`

	// Memory holds the most recent receipts, oldest first, capped at
	// MemoryCapacity.
	Memory []MemoryItem `json:"-"`

	// Neighbors is derived once from the contact graph at setup.
	Neighbors []*Citizen `json:"-"`

	received map[ContentID]struct{}
}

// NewCitizen returns a citizen with neutral belief state and mid-scale traits.
func NewCitizen(id AgentID) *Citizen {
	return &Citizen{
		ID:               id,
		TruthAssessment:  0.5,
		Confidence:       5.0,
		TruthSeeking:     0.0,
		ConfirmationBias: 5.0,
		CriticalThinking: 5.0,
		SocialConformity: 5.0,
		Influence:        5.0,
		Trust: map[SourceKind]float64{
			KindCorporate:  DefaultTrust,
			KindInfluencer: DefaultTrust,
			KindGovernment: DefaultTrust,
		},
		received: make(map[ContentID]struct{}),
	}
}

// HasReceived reports whether this citizen has already processed the content.
func (c *Citizen) HasReceived(id ContentID) bool {
	_, ok := c.received[id]
	return ok
}

// ReceivedCount returns the number of distinct contents this citizen has seen.
func (c *Citizen) ReceivedCount() int {
	return len(c.received)
}

// TrustIn returns the citizen's trust in a source kind. An unknown kind is
// inserted at DefaultTrust on first encounter; this indicates a wiring gap
// upstream, so the insertion is logged. The insertion makes the map lookup
// succeed from then on, so the warning fires at most once per citizen and
// kind.
func (c *Citizen) TrustIn(kind SourceKind) float64 {
	if c.Trust == nil {
		c.Trust = make(map[SourceKind]float64, NumKinds)
	}
	t, ok := c.Trust[kind]
	if !ok {
		slog.Warn("trust entry missing for source kind, inserting default",
			"citizen", c.ID, "kind", kind.String(), "default", DefaultTrust)
		c.Trust[kind] = DefaultTrust
		return DefaultTrust
	}
	return t
}

// ShareStats counts deduplication outcomes across a run.
type ShareStats struct {
	DuplicatesPrevented int `json:"duplicates_prevented"`
	SuccessfulShares    int `json:"successful_shares"`
}

// Env carries the per-tick shared state agent behaviors operate against: the
// canonical content arena, the run's single random source, the step counter,
// and the run-wide deduplication counters. The coordinator constructs one per
// step; agents never own any of these.
type Env struct {
	Arena *Arena
	RNG   *rand.Rand
	Step  int
	Stats *ShareStats
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
