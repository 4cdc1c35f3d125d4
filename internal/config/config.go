// Package config loads the player's settings from the environment, with an
// optional .env file for local setups.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// DataDir is where playlists are persisted.
	DataDir string `env:"CROSSBLADE_DATA_DIR" envDefault:"./data"`

	// Enable is the global crossfade toggle; off leaves only base tracks.
	Enable bool `env:"CROSSBLADE_ENABLE" envDefault:"true"`

	// CombatEvents drives layer switching from combat turns.
	CombatEvents bool `env:"CROSSBLADE_COMBAT_EVENTS" envDefault:"true"`

	// CombatPauseEvent treats a paused game as its own trigger.
	CombatPauseEvent bool `env:"CROSSBLADE_COMBAT_PAUSE_EVENT" envDefault:"false"`

	// FadeDuration applies to sounds that do not set their own.
	FadeDuration time.Duration `env:"CROSSBLADE_FADE_DURATION" envDefault:"1s"`

	// AutoPreload is how long before a track's end the next one loads.
	AutoPreload time.Duration `env:"CROSSBLADE_AUTO_PRELOAD" envDefault:"20s"`

	// RelayAddr, when set, serves the event relay on this address.
	RelayAddr string `env:"CROSSBLADE_RELAY_ADDR"`

	// RelayURL, when set, mirrors a remote host's events instead.
	RelayURL string `env:"CROSSBLADE_RELAY_URL"`

	// ScanWorkers is the import scanner's concurrency.
	ScanWorkers int `env:"CROSSBLADE_SCAN_WORKERS" envDefault:"4"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; a missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.FadeDuration < 0 {
		return nil, fmt.Errorf("fade duration must not be negative: %s", cfg.FadeDuration)
	}
	if cfg.AutoPreload < 0 {
		return nil, fmt.Errorf("auto preload must not be negative: %s", cfg.AutoPreload)
	}
	return cfg, nil
}
