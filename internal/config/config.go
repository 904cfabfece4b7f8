// Package config loads server settings from the environment and provides the
// named simulation scenario presets.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/talgya/infoflow/internal/engine"
)

// Settings holds the server-level configuration.
type Settings struct {
	ServerPort int
	DBPath     string
	AdminKey   string
	LogLevel   slog.Level
}

// Load reads settings from the environment, after loading the env file named
// by INFOFLOW_ENV (default ".env") when present.
func Load() Settings {
	envFile := os.Getenv("INFOFLOW_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		slog.Warn("loading env file", "file", envFile, "error", err)
	}

	s := Settings{
		ServerPort: 8080,
		DBPath:     "data/infoflow.db",
		AdminKey:   os.Getenv("INFOFLOW_ADMIN_KEY"),
		LogLevel:   slog.LevelInfo,
	}

	if v := os.Getenv("INFOFLOW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			s.ServerPort = port
		} else {
			slog.Warn("invalid INFOFLOW_PORT, using default", "value", v, "default", s.ServerPort)
		}
	}
	if v := os.Getenv("INFOFLOW_DB_PATH"); v != "" {
		s.DBPath = v
	}
	switch os.Getenv("INFOFLOW_LOG_LEVEL") {
	case "debug":
		s.LogLevel = slog.LevelDebug
	case "warn":
		s.LogLevel = slog.LevelWarn
	case "error":
		s.LogLevel = slog.LevelError
	}
	return s
}

// Scenario returns the engine configuration for a named preset.
func Scenario(name string) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	switch name {
	case "", "baseline":
		return cfg, nil
	case "polarized":
		// Conformist, biased population fed strongly slanted sources.
		cfg.Citizens.TruthSeekingMean = -1.0
		cfg.Citizens.ConfirmationBiasMin = 6.0
		cfg.Citizens.ConfirmationBiasMax = 9.0
		cfg.Citizens.SocialConformityMin = 6.0
		cfg.Citizens.SocialConformityMax = 9.0
		cfg.Media.CorporateBiasMin = -5.0
		cfg.Media.CorporateBiasMax = 5.0
		cfg.Media.InfluencerBiasMin = -5.0
		cfg.Media.InfluencerBiasMax = 5.0
		return cfg, nil
	case "truth_seeking":
		// Critical, actively seeking population with committed sources.
		cfg.Citizens.TruthSeekingMean = 3.0
		cfg.Citizens.TruthSeekingStd = 1.0
		cfg.Citizens.CriticalThinkingMin = 6.0
		cfg.Citizens.CriticalThinkingMax = 9.0
		cfg.Citizens.ConfirmationBiasMin = 2.0
		cfg.Citizens.ConfirmationBiasMax = 5.0
		cfg.Media.TruthCommitmentCorporate = 8.0
		cfg.Media.TruthCommitmentGovernment = 7.0
		return cfg, nil
	}
	return cfg, fmt.Errorf("unknown scenario %q", name)
}

// ScenarioNames lists the available presets.
func ScenarioNames() []string {
	return []string{"baseline", "polarized", "truth_seeking"}
}
