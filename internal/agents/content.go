// Content value object and the arena that owns every canonical instance.
package agents

import "fmt"

// ContentID uniquely identifies one piece of content within a run.
type ContentID string

// Content is one piece of information moving through the network. The
// descriptive fields are fixed at creation; SpreadPath and LastSharedStep are
// propagation metadata mutated through the arena's canonical instance only.
type Content struct {
	ID                ContentID  `json:"content_id"`
	Accuracy          float64    `json:"accuracy"`           // 0–1, ground truth, never altered in transit
	FramingBias       float64    `json:"framing_bias"`       // -5–5
	SourceAuthority   float64    `json:"source_authority"`   // 0–1
	SourceCredibility float64    `json:"source_credibility"` // 0–1
	SourceKind        SourceKind `json:"source_kind"`
	EngagementFactor  float64    `json:"engagement_factor"` // 1.0 unless set by an influencer
	AuthorityFactor   float64    `json:"authority_factor"`  // 1.0 unless set by a government source
	CreatedStep       int        `json:"created_step"`
	OriginID          AgentID    `json:"origin_id"`
	SpreadPath        []AgentID  `json:"spread_path"` // ordered, append-only, duplicate-free
	LastSharedStep    int        `json:"last_shared_step"`
}

// InPath reports whether the agent already appears in the spread path.
func (c *Content) InPath(id AgentID) bool {
	for _, p := range c.SpreadPath {
		if p == id {
			return true
		}
	}
	return false
}

// AppendPath records the agent as a holder of this content, once.
func (c *Content) AppendPath(id AgentID) {
	if !c.InPath(id) {
		c.SpreadPath = append(c.SpreadPath, id)
	}
}

// newContentID derives a deterministic content identifier from the creator,
// the step, and a draw from the shared generator, so replaying a seed
// reproduces identical registries.
func newContentID(origin AgentID, step, nonce int) ContentID {
	return ContentID(fmt.Sprintf("content-%d-%d-%04d", origin, step, nonce))
}

// Arena is the canonical content store. Exactly one *Content exists per ID;
// agents hold ContentIDs and resolve them here, so spread-path mutation is
// globally visible. Iteration follows insertion order to keep replays
// deterministic. Owned by the step coordinator; never shared across runs.
type Arena struct {
	items map[ContentID]*Content
	order []ContentID
	seeds map[ContentID][]AgentID
}

// NewArena creates an empty content arena.
func NewArena() *Arena {
	return &Arena{
		items: make(map[ContentID]*Content),
		seeds: make(map[ContentID][]AgentID),
	}
}

// Register adds the content as the canonical instance for its ID.
// Re-registering an ID is a no-op; the first instance wins.
func (a *Arena) Register(c *Content) {
	if _, ok := a.items[c.ID]; ok {
		return
	}
	a.items[c.ID] = c
	a.order = append(a.order, c.ID)
}

// Get returns the canonical instance, or nil if the ID is unknown.
func (a *Arena) Get(id ContentID) *Content {
	return a.items[id]
}

// Has reports whether the ID is registered.
func (a *Arena) Has(id ContentID) bool {
	_, ok := a.items[id]
	return ok
}

// Len returns the number of registered contents.
func (a *Arena) Len() int {
	return len(a.order)
}

// All returns the canonical instances in registration order.
func (a *Arena) All() []*Content {
	out := make([]*Content, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.items[id])
	}
	return out
}

// SetSeedNodes records the initial-recipient subset kept for visualization.
func (a *Arena) SetSeedNodes(id ContentID, nodes []AgentID) {
	a.seeds[id] = nodes
}

// SeedNodes returns the recorded seed nodes for a content, if any.
func (a *Arena) SeedNodes(id ContentID) []AgentID {
	return a.seeds[id]
}
