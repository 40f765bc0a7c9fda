package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from AGENTSYNC_* environment variables.
type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	APIBaseURL string `envconfig:"API_BASE_URL"`
	StreamURL  string `envconfig:"STREAM_URL"`
	APIToken   string `envconfig:"API_TOKEN"`

	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"1m"`
	BackoffBase time.Duration `envconfig:"BACKOFF_BASE" default:"1s"`

	// Turso settings are optional. Without them snapshots and read
	// marks are not persisted and every start is a cold start.
	TursoDatabaseURL string `envconfig:"TURSO_DATABASE_URL"`
	TursoAuthToken   string `envconfig:"TURSO_AUTH_TOKEN"`
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("agentsync", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
