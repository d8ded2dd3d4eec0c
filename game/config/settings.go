package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings are the process-level knobs. CLI flags take precedence over them.
type Settings struct {
	Host          string        `env:"GOBLINBALL_HOST"           envDefault:"localhost"`
	Port          int           `env:"GOBLINBALL_PORT"           envDefault:"8080"`
	ConfigDir     string        `env:"GOBLINBALL_CONFIG_DIR"     envDefault:"configs"`
	DefaultConfig string        `env:"GOBLINBALL_DEFAULT_CONFIG" envDefault:"default"`
	SessionDir    string        `env:"GOBLINBALL_SESSION_DIR"    envDefault:"sessions"`
	ReplayDir     string        `env:"GOBLINBALL_REPLAY_DIR"     envDefault:"replays"`
	DatabasePath  string        `env:"GOBLINBALL_DB"             envDefault:"goblinball.db"`
	SessionTTL    time.Duration `env:"GOBLINBALL_SESSION_TTL"    envDefault:"24h"`
	Debug         bool          `env:"GOBLINBALL_DEBUG"`
	Ngrok         bool          `env:"NGROK_ENABLED"`
	NgrokAuth     string        `env:"NGROK_AUTHTOKEN"`
	NgrokDomain   string        `env:"NGROK_DOMAIN"`
}

// LoadSettings reads Settings from the environment. A nil environ reads the
// process environment.
func LoadSettings(environ map[string]string) (Settings, error) {
	var s Settings
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}
