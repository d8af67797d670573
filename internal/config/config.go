package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr        string        `envconfig:"ADDR" default:":8080"`
	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	RingTimeout time.Duration `envconfig:"RING_TIMEOUT" default:"30s"`
	BadgerPath  string        `envconfig:"BADGER_PATH" default:"./data"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	SeedUsers   []string      `envconfig:"SEED_USERS"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}
