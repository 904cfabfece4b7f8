// Simulation setup and the per-step coordinator.
package engine

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/infoflow/internal/agents"
	"github.com/talgya/infoflow/internal/network"
)

// PublicationState tracks per-kind publication within a run.
type PublicationState uint8

const (
	StateNotPublished PublicationState = iota
	StatePublished
)

// Simulation owns the full run state: population, media, contact graph,
// content arena, the single seeded generator, and the captured metrics.
// Single-threaded; the engine loop serializes all access.
type Simulation struct {
	Config Config

	Citizens []*agents.Citizen
	Media    []*agents.MediaSource
	Graph    *network.Graph
	Arena    *agents.Arena
	Stats    agents.ShareStats

	// History holds one metrics row per captured step, step 0 first.
	History []StepMetrics
	// Snapshots maps step number to per-citizen state.
	Snapshots map[int][]CitizenState

	rng       *rand.Rand
	step      int
	published map[agents.SourceKind]PublicationState
	byKind    map[agents.SourceKind][]*agents.MediaSource
}

// New builds a simulation from the config: spawns citizens and media, wires
// the contact graph into neighbor lists, assigns influencer followers, and
// captures the step-0 metrics row.
func New(cfg Config) *Simulation {
	rng := rand.New(rand.NewSource(cfg.Seed))

	s := &Simulation{
		Config:    cfg,
		Arena:     agents.NewArena(),
		Snapshots: make(map[int][]CitizenState),
		rng:       rng,
		published: make(map[agents.SourceKind]PublicationState, agents.NumKinds),
	}

	graphSeed := rng.Int63n(10000)
	s.Graph = network.Build(cfg.NetworkKind, cfg.NumCitizens, cfg.NetworkParams, graphSeed)

	spawner := agents.NewSpawner(rng)
	s.Citizens = spawner.SpawnCitizens(cfg.NumCitizens, cfg.Citizens)
	s.Media = spawner.SpawnMedia(cfg.NumCorporate, cfg.NumInfluencers, cfg.NumGovernment, cfg.Media)

	for i, c := range s.Citizens {
		for _, j := range s.Graph.Neighbors(i) {
			c.Neighbors = append(c.Neighbors, s.Citizens[j])
		}
	}

	s.rebuildKindIndex()
	s.assignFollowers()

	slog.Info("simulation ready",
		"citizens", len(s.Citizens),
		"media", len(s.Media),
		"network", string(cfg.NetworkKind),
		"seed", cfg.Seed)

	s.History = append(s.History, s.captureMetrics())
	s.Snapshots[0] = s.captureCitizens()
	return s
}

func (s *Simulation) rebuildKindIndex() {
	s.byKind = make(map[agents.SourceKind][]*agents.MediaSource, agents.NumKinds)
	for _, m := range s.Media {
		s.byKind[m.Kind] = append(s.byKind[m.Kind], m)
	}
}

// assignFollowers gives each influencer a random 5–20% slice of the
// population as followers.
func (s *Simulation) assignFollowers() {
	n := len(s.Citizens)
	if n == 0 {
		return
	}
	lo := int(float64(n) * 0.05)
	if lo < 1 {
		lo = 1
	}
	hi := int(float64(n) * 0.2)
	if hi < 2 {
		hi = 2
	}
	if hi > n {
		hi = n
	}
	if lo > hi {
		lo = hi
	}

	for _, m := range s.byKind[agents.KindInfluencer] {
		count := lo
		if hi > lo {
			count = lo + s.rng.Intn(hi-lo+1)
		}
		for _, idx := range s.rng.Perm(n)[:count] {
			m.AddFollower(s.Citizens[idx])
		}
	}
}

// Step advances the simulation one tick: per-kind publication (at most one
// publication per kind over the whole run), the optional standalone influence
// and seek passes, one full step per citizen, then metrics and snapshot
// capture.
func (s *Simulation) Step() {
	s.step++
	env := &agents.Env{
		Arena: s.Arena,
		RNG:   s.rng,
		Step:  s.step,
		Stats: &s.Stats,
	}

	if s.byKind == nil || len(s.byKind) != s.kindCount() {
		slog.Warn("media kind index out of date, rebuilding", "step", s.step)
		s.rebuildKindIndex()
	}

	for _, kind := range agents.Kinds() {
		if s.published[kind] == StatePublished {
			continue
		}
		group := s.byKind[kind]
		if len(group) == 0 {
			continue
		}
		rep := group[s.rng.Intn(len(group))]
		if ct, ok := rep.Publish(env); ok {
			rep.Broadcast(env, ct, s.Citizens)
			slog.Debug("kind published", "kind", kind.String(), "content", ct.ID, "step", s.step)
		}
		s.published[kind] = StatePublished
	}

	if s.Config.LegacySecondPass {
		for _, c := range s.Citizens {
			c.ApplyNetworkInfluence()
		}
		for _, c := range s.Citizens {
			c.Seek(env, s.Media)
		}
	}

	for _, c := range s.Citizens {
		c.Step(env, s.Media)
	}

	s.History = append(s.History, s.captureMetrics())
	s.Snapshots[s.step] = s.captureCitizens()
}

func (s *Simulation) kindCount() int {
	seen := make(map[agents.SourceKind]struct{})
	for _, m := range s.Media {
		seen[m.Kind] = struct{}{}
	}
	return len(seen)
}

// RunSteps advances the simulation n ticks.
func (s *Simulation) RunSteps(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// CurrentStep returns the number of completed steps.
func (s *Simulation) CurrentStep() int {
	return s.step
}

// Published reports the publication state of a source kind.
func (s *Simulation) Published(kind agents.SourceKind) PublicationState {
	return s.published[kind]
}
