package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config carries every tunable the server reads at startup. A .env
// file is honored when present; real environment variables win.
type Config struct {
	Addr        string `envconfig:"ADDR" default:":8080"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	JWTSecret   string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`

	// Static asset origin fronted by the offline cache.
	AssetOrigin string `envconfig:"ASSET_ORIGIN" default:"http://localhost:5173"`

	// Cache generation tag; bump on deploy to purge stale assets.
	CacheGeneration string `envconfig:"CACHE_GENERATION" default:"restaurante-v1"`

	// Host substrings whose requests bypass the cache entirely.
	RecordStoreHosts []string `envconfig:"RECORD_STORE_HOSTS" default:"localhost:5432"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process environment")
	}
	return &cfg, nil
}
