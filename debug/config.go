package debug

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls a debug [Registry].
type Config struct {
	// Enabled turns tracking on. A disabled registry returns tracked streams
	// unchanged.
	Enabled bool `env:"LIFEBOUND_DEBUG" envDefault:"false"`

	// StaleAfter is the age past which an active record may count as a leak.
	StaleAfter time.Duration `env:"LIFEBOUND_DEBUG_STALE_AFTER" envDefault:"5m"`

	// QuietAfter is how long a stale record must have gone without an
	// emission to count as a leak.
	QuietAfter time.Duration `env:"LIFEBOUND_DEBUG_QUIET_AFTER" envDefault:"1m"`

	// Retention is how long a finished record is kept for inspection.
	Retention time.Duration `env:"LIFEBOUND_DEBUG_RETENTION" envDefault:"60s"`

	// LeakCheckInterval runs a periodic leak check when > 0.
	LeakCheckInterval time.Duration `env:"LIFEBOUND_DEBUG_LEAK_CHECK_INTERVAL" envDefault:"0s"`
}

// DefaultConfig returns the defaults: tracking enabled, 5m staleness, 1m
// quiet period, 60s retention and no periodic leak check.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		StaleAfter: 5 * time.Minute,
		QuietAfter: time.Minute,
		Retention:  60 * time.Second,
	}
}

// LoadConfig reads the configuration from LIFEBOUND_DEBUG* environment
// variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("debug: parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.StaleAfter < 0:
		return fmt.Errorf("%w: stale after %s", ErrInvalidConfig, c.StaleAfter)
	case c.QuietAfter < 0:
		return fmt.Errorf("%w: quiet after %s", ErrInvalidConfig, c.QuietAfter)
	case c.Retention < 0:
		return fmt.Errorf("%w: retention %s", ErrInvalidConfig, c.Retention)
	case c.LeakCheckInterval < 0:
		return fmt.Errorf("%w: leak check interval %s", ErrInvalidConfig, c.LeakCheckInterval)
	}
	return nil
}
