// Media sources: content creation and the per-kind broadcast strategies.
package agents

import "math"

// MediaSource publishes content into the network. A single struct covers all
// three kinds; behavioral differences dispatch on Kind.
type MediaSource struct {
	ID               AgentID    `json:"id"`
	Kind             SourceKind `json:"kind"`
	PoliticalBias    float64    `json:"political_bias"`    // -5–5
	Credibility      float64    `json:"credibility"`       // 0–10
	Authority        float64    `json:"authority"`         // 0–10
	TruthCommitment  float64    `json:"truth_commitment"`  // 0–10
	InfluenceReach   float64    `json:"influence_reach"`   // 0–1, fraction of population
	EngagementFactor float64    `json:"engagement_factor"` // influencers only

	// Followers receive every influencer broadcast directly.
	Followers []*Citizen `json:"-"`

	hasPublished bool
}

// NewMediaSource returns a source with the per-kind baseline profile.
func NewMediaSource(id AgentID, kind SourceKind) *MediaSource {
	m := &MediaSource{ID: id, Kind: kind, EngagementFactor: 1.0}
	switch kind {
	case KindCorporate:
		m.Credibility = 7.0
		m.Authority = 7.0
		m.TruthCommitment = 6.0
		m.InfluenceReach = 0.7
	case KindInfluencer:
		m.Credibility = 5.0
		m.Authority = 4.0
		m.TruthCommitment = 4.0
		m.InfluenceReach = 0.4
		m.EngagementFactor = 1.5
	case KindGovernment:
		m.Credibility = 6.0
		m.Authority = 9.0
		m.TruthCommitment = 5.0
		m.InfluenceReach = 0.6
	}
	return m
}

// accuracyFromCommitment maps truth commitment (0–10) to a base content
// accuracy. Three segments: low-commitment sources stay under 0.3,
// high-commitment sources land in [0.7, 0.9].
func accuracyFromCommitment(tc float64) float64 {
	switch {
	case tc < 3.0:
		return tc / 10.0 * 0.3
	case tc > 7.0:
		return 0.7 + (tc-7.0)/10.0*0.2
	default:
		return 0.3 + (tc-3.0)/4.0*0.4
	}
}

// authorityFromCommitment maps a government source's truth commitment to the
// authority factor attached to its content, in [0.5, 1.5].
func authorityFromCommitment(tc float64) float64 {
	switch {
	case tc < 3.0:
		return 0.5 + tc/3.0*0.3
	case tc > 7.0:
		return 1.2 + (tc-7.0)/3.0*0.3
	default:
		return 0.8 + (tc-3.0)/4.0*0.4
	}
}

// CreateContent builds a fresh content instance. Accuracy follows the truth
// commitment curve plus uniform ±0.1 noise; framing bias mirrors the source's
// political bias. The spread path starts with the creator.
func (m *MediaSource) CreateContent(env *Env) *Content {
	accuracy := clamp01(accuracyFromCommitment(m.TruthCommitment) + (env.RNG.Float64()*2.0-1.0)*0.1)

	ct := &Content{
		ID:                newContentID(m.ID, env.Step, env.RNG.Intn(10000)),
		Accuracy:          accuracy,
		FramingBias:       m.PoliticalBias,
		SourceAuthority:   m.Authority / 10.0,
		SourceCredibility: m.Credibility / 10.0,
		SourceKind:        m.Kind,
		EngagementFactor:  1.0,
		AuthorityFactor:   1.0,
		CreatedStep:       env.Step,
		OriginID:          m.ID,
		SpreadPath:        []AgentID{m.ID},
		LastSharedStep:    env.Step,
	}

	switch m.Kind {
	case KindInfluencer:
		ct.EngagementFactor = m.EngagementFactor
	case KindGovernment:
		ct.AuthorityFactor = authorityFromCommitment(m.TruthCommitment)
	}
	return ct
}

// Publish creates content at most once over the source's lifetime. Further
// throttling (one publication per kind per run) is the coordinator's job.
func (m *MediaSource) Publish(env *Env) (*Content, bool) {
	if m.hasPublished {
		return nil, false
	}
	m.hasPublished = true
	return m.CreateContent(env), true
}

// HasPublished reports whether this source already used its publication.
func (m *MediaSource) HasPublished() bool {
	return m.hasPublished
}

// AddFollower subscribes a citizen to this source's direct deliveries.
func (m *MediaSource) AddFollower(c *Citizen) {
	for _, f := range m.Followers {
		if f.ID == c.ID {
			return
		}
	}
	m.Followers = append(m.Followers, c)
}

// Broadcast registers the content and delivers it per the kind's strategy.
// Influencers reach all followers plus reach/2 of the rest; corporate and
// government sources reach a round(n·reach) uniform sample. A small subset of
// recipients is recorded as seed nodes for visualization.
func (m *MediaSource) Broadcast(env *Env, ct *Content, citizens []*Citizen) {
	env.Arena.Register(ct)

	var recipients []*Citizen
	switch m.Kind {
	case KindInfluencer:
		seen := make(map[AgentID]struct{}, len(m.Followers))
		for _, f := range m.Followers {
			seen[f.ID] = struct{}{}
			f.Receive(env, ct.ID, m.ID)
			recipients = append(recipients, f)
		}
		var nonFollowers []*Citizen
		for _, c := range citizens {
			if _, ok := seen[c.ID]; !ok {
				nonFollowers = append(nonFollowers, c)
			}
		}
		n := int(float64(len(nonFollowers)) * m.InfluenceReach / 2.0)
		if n > len(nonFollowers) {
			n = len(nonFollowers)
		}
		for _, idx := range env.RNG.Perm(len(nonFollowers))[:n] {
			c := nonFollowers[idx]
			c.Receive(env, ct.ID, m.ID)
			recipients = append(recipients, c)
		}
	default:
		n := int(math.Round(float64(len(citizens)) * m.InfluenceReach))
		if n > len(citizens) {
			n = len(citizens)
		}
		if n <= 0 {
			return
		}
		for _, idx := range env.RNG.Perm(len(citizens))[:n] {
			c := citizens[idx]
			c.Receive(env, ct.ID, m.ID)
			recipients = append(recipients, c)
		}
	}

	m.markSeedNodes(env, ct.ID, recipients)
}

// markSeedNodes records roughly 10% of the initial recipients, between 1 and
// 5, as the content's seed nodes.
func (m *MediaSource) markSeedNodes(env *Env, id ContentID, recipients []*Citizen) {
	if len(recipients) == 0 {
		return
	}
	max := int(float64(len(recipients)) * 0.1)
	if max < 1 {
		max = 1
	}
	if max > 5 {
		max = 5
	}

	var seeds []AgentID
	if len(recipients) > max {
		for _, idx := range env.RNG.Perm(len(recipients))[:max] {
			seeds = append(seeds, recipients[idx].ID)
		}
	} else {
		for _, c := range recipients {
			seeds = append(seeds, c.ID)
		}
	}
	env.Arena.SetSeedNodes(id, seeds)
}
