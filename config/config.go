package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, parsed from the environment.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	AWSRegion string `env:"AWS_REGION" envDefault:"us-east-1"`
	S3Bucket  string `env:"S3_BUCKET_NAME"`

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	// Speed-dating round tuning
	SearchCountdown   time.Duration `env:"SEARCH_COUNTDOWN" envDefault:"300s"`
	DetailCountdown   time.Duration `env:"DETAIL_COUNTDOWN" envDefault:"5s"`
	ChatCountdown     time.Duration `env:"CHAT_COUNTDOWN" envDefault:"4h"`
	SearchRetryDelay  time.Duration `env:"SEARCH_RETRY_DELAY" envDefault:"15s"`
	SearchMaxAttempts int           `env:"SEARCH_MAX_ATTEMPTS" envDefault:"0"` // 0 = retry forever
	SessionMaxAge     time.Duration `env:"SESSION_MAX_AGE" envDefault:"5m"`

	// Lineup scheduler tuning
	RotationInterval    time.Duration `env:"ROTATION_INTERVAL" envDefault:"1m"`
	EliminationInterval time.Duration `env:"ELIMINATION_INTERVAL" envDefault:"5m"`
	SpotlightDuration   time.Duration `env:"SPOTLIGHT_DURATION" envDefault:"3m"`
	PopThreshold        int           `env:"POP_THRESHOLD" envDefault:"20"`
	EliminationCooldown time.Duration `env:"ELIMINATION_COOLDOWN" envDefault:"48h"`
	RequestMaxAge       time.Duration `env:"ROTATION_REQUEST_MAX_AGE" envDefault:"10m"`

	// Guard lock safety timeout
	GuardTTL time.Duration `env:"GUARD_TTL" envDefault:"10s"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
