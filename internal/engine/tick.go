package engine

import (
	"log/slog"
	"sync"
	"time"
)

// Engine paces a simulation as a live loop. The simulation itself is
// single-threaded; the engine's mutex is the one lock serializing access to
// it, shared with API handlers via Lock/Unlock. Speed is a multiplier on the
// base interval; the running flag gates stepping so the loop can be paused
// without tearing it down.
type Engine struct {
	Sim      *Simulation
	Interval time.Duration

	// OnStep, when set, fires after every completed step with the step
	// number, outside the lock.
	OnStep func(step int)

	mu      sync.Mutex
	speed   float64
	running bool
	stop    chan struct{}
}

// NewEngine wraps a simulation in a paced loop at the given base interval.
func NewEngine(sim *Simulation, interval time.Duration) *Engine {
	return &Engine{
		Sim:      sim,
		Interval: interval,
		speed:    1.0,
		stop:     make(chan struct{}),
	}
}

// Lock acquires the simulation lock. Any reader outside the loop goroutine
// must hold it while touching Sim. The Speed/Running accessors take the lock
// themselves and must not be called while holding it.
func (e *Engine) Lock() { e.mu.Lock() }

// Unlock releases the simulation lock.
func (e *Engine) Unlock() { e.mu.Unlock() }

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed updates the speed multiplier.
func (e *Engine) SetSpeed(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = v
}

// Running reports whether the loop is stepping.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// SetRunning pauses or resumes the loop.
func (e *Engine) SetRunning(b bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = b
}

// Run drives the loop until Stop is called. While paused it idles at the
// base interval without stepping. Each step executes under the lock.
func (e *Engine) Run() {
	slog.Info("engine loop started", "interval", e.Interval)
	for {
		e.mu.Lock()
		speed, running := e.speed, e.running
		e.mu.Unlock()

		wait := e.Interval
		if running && speed > 0 {
			wait = time.Duration(float64(e.Interval) / speed)
		}

		select {
		case <-e.stop:
			e.mu.Lock()
			steps := e.Sim.CurrentStep()
			e.mu.Unlock()
			slog.Info("engine loop stopped", "steps", steps)
			return
		case <-time.After(wait):
		}

		e.mu.Lock()
		if !e.running {
			e.mu.Unlock()
			continue
		}
		e.Sim.Step()
		step := e.Sim.CurrentStep()
		e.mu.Unlock()

		if e.OnStep != nil {
			e.OnStep(step)
		}
	}
}

// Stop terminates the loop.
func (e *Engine) Stop() {
	close(e.stop)
}

// RunSteps advances the simulation n steps immediately, bypassing pacing.
// Each step executes under the lock; callers must not hold it.
func (e *Engine) RunSteps(n int) {
	for i := 0; i < n; i++ {
		e.mu.Lock()
		e.Sim.Step()
		step := e.Sim.CurrentStep()
		e.mu.Unlock()

		if e.OnStep != nil {
			e.OnStep(step)
		}
	}
}
