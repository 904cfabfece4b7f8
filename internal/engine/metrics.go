// Metrics and snapshot capture for each simulation step.
package engine

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/talgya/infoflow/internal/agents"
)

// StepMetrics is one row of per-step aggregates, keyed by metric name.
type StepMetrics map[string]float64

// CitizenState is the per-citizen snapshot captured after each step.
type CitizenState struct {
	ID               agents.AgentID     `json:"id"`
	TruthAssessment  float64            `json:"truth_assessment"`
	Trust            map[string]float64 `json:"trust"`
	TruthSeeking     float64            `json:"truth_seeking"`
	ConfirmationBias float64            `json:"confirmation_bias"`
	CriticalThinking float64            `json:"critical_thinking"`
	SocialConformity float64            `json:"social_conformity"`
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

func variance(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	return stat.Variance(vals, nil)
}

func correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}

// captureMetrics builds the aggregate row for the current step.
func (s *Simulation) captureMetrics() StepMetrics {
	m := StepMetrics{
		"current_step":         float64(s.step),
		"duplicates_prevented": float64(s.Stats.DuplicatesPrevented),
		"successful_shares":    float64(s.Stats.SuccessfulShares),
	}

	assessments := make([]float64, len(s.Citizens))
	trustByKind := make(map[agents.SourceKind][]float64, agents.NumKinds)
	for i, c := range s.Citizens {
		assessments[i] = c.TruthAssessment
		for _, kind := range agents.Kinds() {
			trustByKind[kind] = append(trustByKind[kind], c.TrustIn(kind))
		}
	}

	m["avg_truth_assessment"] = mean(assessments)
	m["truth_assessment_var"] = variance(assessments)
	m["polarization"] = polarization(assessments)
	m["opinion_clusters"] = float64(opinionClusters(assessments))

	for _, kind := range agents.Kinds() {
		vals := trustByKind[kind]
		m["avg_trust_"+kind.String()] = mean(vals)
		m["trust_var_"+kind.String()] = variance(vals)
	}
	if vals := trustByKind[agents.KindCorporate]; len(vals) > 0 {
		m["min_trust_corporate"] = minOf(vals)
		m["max_trust_corporate"] = maxOf(vals)
	}
	if vals := trustByKind[agents.KindGovernment]; len(vals) > 0 {
		m["min_trust_government"] = minOf(vals)
		m["max_trust_government"] = maxOf(vals)
		m["trust_govt_25pct"] = quantile(vals, 0.25)
		m["trust_govt_75pct"] = quantile(vals, 0.75)
	}

	s.contentMetrics(m)
	return m
}

// contentMetrics aggregates spread statistics over the arena.
func (s *Simulation) contentMetrics(m StepMetrics) {
	contents := s.Arena.All()
	m["total_content_created"] = float64(len(contents))
	if len(contents) == 0 {
		m["avg_content_spread"] = 0
		m["max_content_spread"] = 0
		m["viral_content_count"] = 0
		m["avg_content_accuracy"] = 0
		m["accuracy_spread_correlation"] = 0
		return
	}

	population := len(s.Citizens)
	viralThreshold := float64(population) * 0.5

	spreads := make([]float64, len(contents))
	accuracies := make([]float64, len(contents))
	spreadByKind := make(map[agents.SourceKind][]float64, agents.NumKinds)
	viral := 0

	type bucket struct{ spreads []float64 }
	buckets := map[string]*bucket{"true": {}, "fuzzy": {}, "false": {}}

	for i, ct := range contents {
		spread := float64(len(ct.SpreadPath))
		spreads[i] = spread
		accuracies[i] = ct.Accuracy
		spreadByKind[ct.SourceKind] = append(spreadByKind[ct.SourceKind], spread)
		if spread >= viralThreshold {
			viral++
		}

		switch {
		case ct.Accuracy >= 0.7:
			buckets["true"].spreads = append(buckets["true"].spreads, spread)
		case ct.Accuracy <= 0.3:
			buckets["false"].spreads = append(buckets["false"].spreads, spread)
		default:
			buckets["fuzzy"].spreads = append(buckets["fuzzy"].spreads, spread)
		}
	}

	m["avg_content_spread"] = mean(spreads)
	m["max_content_spread"] = maxOf(spreads)
	m["viral_content_count"] = float64(viral)
	m["avg_content_accuracy"] = mean(accuracies)
	m["accuracy_spread_correlation"] = correlation(accuracies, spreads)

	for _, kind := range agents.Kinds() {
		m["avg_spread_"+kind.String()] = mean(spreadByKind[kind])
	}
	for name, b := range buckets {
		m[fmt.Sprintf("avg_spread_%s_content", name)] = mean(b.spreads)
		m[fmt.Sprintf("count_%s_content", name)] = float64(len(b.spreads))
	}
}

// captureCitizens snapshots the per-citizen state.
func (s *Simulation) captureCitizens() []CitizenState {
	out := make([]CitizenState, len(s.Citizens))
	for i, c := range s.Citizens {
		trust := make(map[string]float64, agents.NumKinds)
		for _, kind := range agents.Kinds() {
			trust[kind.String()] = c.TrustIn(kind)
		}
		out[i] = CitizenState{
			ID:               c.ID,
			TruthAssessment:  c.TruthAssessment,
			Trust:            trust,
			TruthSeeking:     c.TruthSeeking,
			ConfirmationBias: c.ConfirmationBias,
			CriticalThinking: c.CriticalThinking,
			SocialConformity: c.SocialConformity,
		}
	}
	return out
}

// polarization measures how strongly assessments concentrate at the extremes:
// the mean distance from 0.5, rescaled to [0, 1].
func polarization(assessments []float64) float64 {
	if len(assessments) == 0 {
		return 0
	}
	total := 0.0
	for _, a := range assessments {
		total += math.Abs(a - 0.5)
	}
	return total / float64(len(assessments)) * 2.0
}

// opinionClusters counts occupied 0.1-wide assessment bins with at least 5%
// of the population, a coarse cluster estimate.
func opinionClusters(assessments []float64) int {
	if len(assessments) == 0 {
		return 0
	}
	bins := make([]int, 10)
	for _, a := range assessments {
		idx := int(a * 10.0)
		if idx > 9 {
			idx = 9
		}
		bins[idx]++
	}
	threshold := len(assessments) / 20
	if threshold < 1 {
		threshold = 1
	}
	clusters := 0
	for _, count := range bins {
		if count >= threshold {
			clusters++
		}
	}
	return clusters
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
