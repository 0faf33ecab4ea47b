package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN         string `env:"DB_DSN,required,notEmpty"`
	ServerPort    string `env:"SERVER_PORT" envDefault:"8080"`
	GinMode       string `env:"GIN_MODE" envDefault:"release"`
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	StorageDir       string        `env:"STORAGE_DIR" envDefault:"./data"`
	StorageURLSecret string        `env:"STORAGE_URL_SECRET,required,notEmpty"`
	ProofURLTTL      time.Duration `env:"STORAGE_URL_TTL" envDefault:"1h"`
	PublicBaseURL    string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// пусто: realtime выключен
	RedisAddr string `env:"REDIS_ADDR"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin@studio.local"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"Admin123!"`
	SeedDemoUsers bool   `env:"SEED_DEMO_USERS" envDefault:"true"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ProofURLTTL <= 0 {
		return nil, fmt.Errorf("STORAGE_URL_TTL must be positive")
	}
	return &cfg, nil
}
