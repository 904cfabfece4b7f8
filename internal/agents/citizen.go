// Citizen behavior: receiving and evaluating content, trust updates, social
// influence, re-sharing, and active information seeking.
package agents

import (
	"log/slog"
	"math"
	"sort"
)

// Receive processes one delivery of content to this citizen. It is idempotent
// per ContentID: a repeat delivery is counted as a prevented duplicate and
// changes nothing. Returns whether the content was accepted (belief updated).
func (c *Citizen) Receive(env *Env, id ContentID, senderID AgentID) bool {
	if c.received == nil {
		c.received = make(map[ContentID]struct{})
	}
	if c.HasReceived(id) {
		env.Stats.DuplicatesPrevented++
		return false
	}

	ct := env.Arena.Get(id)
	if ct == nil {
		slog.Warn("delivery references unregistered content", "citizen", c.ID, "content", id)
		return false
	}

	// Propagation bookkeeping goes through the canonical instance.
	ct.LastSharedStep = env.Step
	ct.AppendPath(c.ID)
	c.received[id] = struct{}{}

	c.Memory = append(c.Memory, MemoryItem{ContentID: id, SenderID: senderID})
	if len(c.Memory) > MemoryCapacity {
		c.Memory = c.Memory[1:]
	}

	// Acceptance probability: trust in the source kind, confirmation bias
	// alignment, and critical evaluation of credibility, plus a base rate.
	trustWeight := c.TrustIn(ct.SourceKind) / 10.0 * ct.SourceCredibility * ct.AuthorityFactor

	ownBias := (c.TruthAssessment - 0.5) * 2.0
	alignment := 1.0 - math.Abs(ownBias-ct.FramingBias/5.0)
	confirmationEffect := alignment * c.ConfirmationBias / 10.0

	criticalAdjustment := c.CriticalThinking / 10.0 * (ct.SourceCredibility - 0.5) * 2.0

	acceptance := clamp01(0.4*trustWeight+0.4*confirmationEffect+0.2*criticalAdjustment+0.2) * ct.EngagementFactor

	if env.RNG.Float64() >= acceptance {
		return false
	}

	// Perceived accuracy: nominal accuracy attenuated by framing bias, less so
	// for strongly truth-seeking citizens.
	seekFactor := (c.TruthSeeking + 5.0) / 10.0
	distortion := math.Abs(ct.FramingBias) / 10.0 * (1.0 - seekFactor*0.5)
	perceived := ct.Accuracy * (1.0 - distortion)

	movement := (1.0 - c.Confidence/10.0) * 0.3
	old := c.TruthAssessment
	c.TruthAssessment = clamp01(old + (perceived-old)*movement)

	change := math.Abs(c.TruthAssessment - old)
	if change > 0.1 {
		c.Confidence = math.Max(1.0, c.Confidence-0.5)
	} else if trustWeight > 0.7 {
		c.Confidence = math.Min(10.0, c.Confidence+0.3)
	}

	// Trust reacts to the nominal accuracy, not the distorted perception.
	c.UpdateTrust(ct.SourceKind, ct.Accuracy)
	return true
}

// UpdateTrust adjusts trust in a source kind from the accuracy of accepted
// content. The impact is amplified outside the 0.4–0.6 band and scaled by
// critical thinking; trust stays within [0, 10].
func (c *Citizen) UpdateTrust(kind SourceKind, accuracy float64) {
	current := c.TrustIn(kind)

	var impact float64
	switch {
	case accuracy < 0.4:
		impact = -1.0 - (0.4-accuracy)*5.0 // -1.0 to -3.0
	case accuracy > 0.6:
		impact = 1.0 + (accuracy-0.6)*5.0 // 1.0 to 3.0
	default:
		impact = (accuracy - 0.5) * 4.0 // -0.4 to 0.4
	}

	critical := 0.5 + c.CriticalThinking/10.0 // 0.5 to 1.5
	c.Trust[kind] = clamp(current+impact*critical, 0.0, 10.0)
}

// ApplyNetworkInfluence nudges the citizen's assessment toward the
// influence-weighted average of its neighbors. No-op without neighbors or
// when all weights are zero.
func (c *Citizen) ApplyNetworkInfluence() {
	if len(c.Neighbors) == 0 {
		return
	}

	var weighted, total float64
	for _, n := range c.Neighbors {
		weighted += n.TruthAssessment * n.Influence
		total += n.Influence
	}
	if total == 0 {
		return
	}

	network := weighted / total
	adjustment := (network - c.TruthAssessment) * (c.SocialConformity / 10.0) * 0.1
	c.TruthAssessment = clamp01(c.TruthAssessment + adjustment)
}

// Share decides whether and what to re-share from memory. Candidates are
// scored by closeness of their accuracy to the citizen's own assessment;
// high-confirmation-bias citizens blend in alignment with their inferred
// political preference. Returns the arena key of the chosen content.
func (c *Citizen) Share(env *Env) (ContentID, bool) {
	if len(c.Memory) == 0 {
		return "", false
	}

	// Confidence drives the share probability, capped at 0.5.
	if env.RNG.Float64() > c.Confidence/20.0 {
		return "", false
	}

	type candidate struct {
		alignment float64
		id        ContentID
	}
	candidates := make([]candidate, 0, len(c.Memory))
	for _, item := range c.Memory {
		ct := env.Arena.Get(item.ContentID)
		if ct == nil {
			continue
		}
		alignment := 1.0 - math.Abs(c.TruthAssessment-ct.Accuracy)
		if c.ConfirmationBias > 5.0 {
			preferred := c.preferredBias(env)
			biasAlignment := 1.0 - math.Min(1.0, math.Abs(preferred-ct.FramingBias)/10.0)
			cf := c.ConfirmationBias / 10.0
			alignment = alignment*(1.0-cf) + biasAlignment*cf
		}
		candidates = append(candidates, candidate{alignment: alignment, id: item.ContentID})
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].alignment > candidates[j].alignment
	})

	var chosen ContentID
	if env.RNG.Float64() < 0.8 {
		chosen = candidates[0].id
	} else {
		chosen = candidates[env.RNG.Intn(len(candidates))].id
	}

	ct := env.Arena.Get(chosen)
	ct.AppendPath(c.ID)
	ct.LastSharedStep = env.Step
	return chosen, true
}

// preferredBias infers the citizen's political lean from the sign
// distribution of framing bias across remembered content. Leans weaker than
// ±1 are treated as neutral.
func (c *Citizen) preferredBias(env *Env) float64 {
	positive, negative := 0, 0
	for _, item := range c.Memory {
		ct := env.Arena.Get(item.ContentID)
		if ct == nil {
			continue
		}
		if ct.FramingBias > 1.0 {
			positive++
		} else if ct.FramingBias < -1.0 {
			negative++
		}
	}
	switch {
	case positive > negative:
		return 3.0
	case negative > positive:
		return -3.0
	}
	return 0.0
}

// Seek actively looks for unseen information. Only citizens with
// TruthSeeking above 1.0 act. Existing arena content is reused to keep the
// total content volume bounded; citizens never create content.
func (c *Citizen) Seek(env *Env, media []*MediaSource) {
	if c.TruthSeeking <= 1.0 {
		return
	}

	if env.Arena.Len() > 0 {
		var unread []ContentID
		for _, ct := range env.Arena.All() {
			if !c.HasReceived(ct.ID) {
				unread = append(unread, ct.ID)
			}
		}
		if len(unread) == 0 {
			return
		}
		id := unread[env.RNG.Intn(len(unread))]
		kind := env.Arena.Get(id).SourceKind
		for _, m := range media {
			if m.Kind == kind {
				c.Receive(env, id, m.ID)
				return
			}
		}
		return
	}

	// Legacy fallback, reachable only while no content exists anywhere: with
	// very low probability, request fresh content from a trust-weighted
	// random source. This bypasses publication control by design.
	if len(media) == 0 {
		return
	}
	if env.RNG.Float64() > 0.001 {
		return
	}

	weights := make([]float64, len(media))
	total := 0.0
	for i, m := range media {
		weights[i] = c.TrustIn(m.Kind)
		total += weights[i]
	}
	if total == 0 {
		return
	}
	r := env.RNG.Float64() * total
	source := media[len(media)-1]
	for i, m := range media {
		r -= weights[i]
		if r <= 0 {
			source = m
			break
		}
	}

	ct := source.CreateContent(env)
	env.Arena.Register(ct)
	c.Receive(env, ct.ID, source.ID)
}

// Step runs one full citizen turn: social influence, an attempted share to
// neighbors that have not seen the chosen content, then seeking. When every
// neighbor already holds the content, the whole neighborhood is counted as
// prevented duplicates and the turn ends early.
func (c *Citizen) Step(env *Env, media []*MediaSource) {
	c.ApplyNetworkInfluence()

	if id, ok := c.Share(env); ok && len(c.Neighbors) > 0 {
		var unaware []*Citizen
		for _, n := range c.Neighbors {
			if !n.HasReceived(id) {
				unaware = append(unaware, n)
			}
		}
		if len(unaware) == 0 {
			env.Stats.DuplicatesPrevented += len(c.Neighbors)
			return
		}
		for _, n := range unaware {
			if n.Receive(env, id, c.ID) {
				env.Stats.SuccessfulShares++
			}
		}
	}

	c.Seek(env, media)
}
