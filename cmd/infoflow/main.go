// Command infoflow runs the information-diffusion simulation, either as a
// fixed batch of steps or as a live loop behind the HTTP API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/infoflow/internal/api"
	"github.com/talgya/infoflow/internal/config"
	"github.com/talgya/infoflow/internal/engine"
	"github.com/talgya/infoflow/internal/persistence"
)

func main() {
	var (
		steps    = flag.Int("steps", 50, "number of steps for a batch run")
		scenario = flag.String("scenario", "baseline", "scenario preset: baseline, polarized, truth_seeking")
		seed     = flag.Int64("seed", 0, "override the scenario seed (0 = keep preset seed)")
		citizens = flag.Int("citizens", 0, "override the citizen count (0 = keep preset)")
		serve    = flag.Bool("serve", false, "serve the HTTP API and run live instead of batch")
		save     = flag.Bool("save", true, "persist the run to the database")
	)
	flag.Parse()

	settings := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: settings.LogLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Scenario(*scenario)
	if err != nil {
		slog.Error("bad scenario", "error", err, "available", config.ScenarioNames())
		os.Exit(1)
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *citizens > 0 {
		cfg.NumCitizens = *citizens
	}

	var db *persistence.DB
	if *save {
		os.MkdirAll(filepath.Dir(settings.DBPath), 0755)
		db, err = persistence.Open(settings.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", settings.DBPath)
	}

	sim := engine.New(cfg)
	eng := engine.NewEngine(sim, time.Second)

	if *serve {
		serveLive(sim, eng, db, settings)
		return
	}

	slog.Info("batch run", "scenario", *scenario, "steps", *steps, "seed", cfg.Seed)
	sim.RunSteps(*steps)

	final := sim.History[len(sim.History)-1]
	slog.Info("run complete",
		"steps", *steps,
		"avg_truth_assessment", fmt.Sprintf("%.3f", final["avg_truth_assessment"]),
		"polarization", fmt.Sprintf("%.3f", final["polarization"]),
		"content", int(final["total_content_created"]),
		"shares", humanize.Comma(int64(sim.Stats.SuccessfulShares)),
		"duplicates_prevented", humanize.Comma(int64(sim.Stats.DuplicatesPrevented)),
	)

	if db != nil {
		persistRun(db, sim)
	}
}

func persistRun(db *persistence.DB, sim *engine.Simulation) {
	runID, err := db.CreateRun(sim.Config)
	if err != nil {
		slog.Error("creating run", "error", err)
		return
	}
	for step, row := range sim.History {
		if err := db.RecordStep(runID, step, row); err != nil {
			slog.Error("recording step", "step", step, "error", err)
			return
		}
	}
	final := sim.CurrentStep()
	if states, ok := sim.Snapshots[final]; ok {
		if err := db.SaveSnapshots(runID, final, states); err != nil {
			slog.Error("saving snapshots", "error", err)
		}
	}
	if err := db.SaveContent(runID, sim.Arena); err != nil {
		slog.Error("saving content", "error", err)
	}
	slog.Info("run persisted", "run", runID)
}

func serveLive(sim *engine.Simulation, eng *engine.Engine, db *persistence.DB, settings config.Settings) {
	if settings.AdminKey == "" {
		slog.Warn("INFOFLOW_ADMIN_KEY not set — admin endpoints will be disabled")
	}

	server := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     settings.ServerPort,
		AdminKey: settings.AdminKey,
	}
	server.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	eng.SetRunning(true)
	fmt.Printf("InfoFlow live: %s citizens, %d media sources.\n",
		humanize.Comma(int64(len(sim.Citizens))), len(sim.Media))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", settings.ServerPort)
	fmt.Println("Running... (Ctrl+C to stop)")

	eng.Run()

	if db != nil {
		slog.Info("final save...")
		persistRun(db, sim)
	}
	fmt.Println("Simulation stopped.")
}
