package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration loaded from the environment.
type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string
	JWTTTL    time.Duration

	CommitmentScheme string // sha256 or mimc
	StartingBalance  uint64 // credited to a wallet on first use; 0 disables

	VenueCommitInterval time.Duration // how often the fast venue flushes to redis
	VenueMaxIdle        time.Duration // idle sessions are checked back in after this
	LeaseTTL            time.Duration
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		RedisURL:         getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:        getEnv("REDIS_PASS", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		CommitmentScheme: getEnv("COMMITMENT_SCHEME", "sha256"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.StartingBalance, err = getEnvUint("STARTING_BALANCE", 0); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = getEnvDuration("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.VenueCommitInterval, err = getEnvDuration("VENUE_COMMIT_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.VenueMaxIdle, err = getEnvDuration("VENUE_MAX_IDLE", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LeaseTTL, err = getEnvDuration("LEASE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "dev-secret"
	}
	if cfg.LeaseTTL <= cfg.VenueCommitInterval {
		return nil, fmt.Errorf("LEASE_TTL (%s) must exceed VENUE_COMMIT_INTERVAL (%s)", cfg.LeaseTTL, cfg.VenueCommitInterval)
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvUint(key string, fallback uint64) (uint64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an unsigned integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a duration: %w", key, err)
	}
	return d, nil
}
