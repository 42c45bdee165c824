// Package config loads server settings from the environment, with an
// optional .env file underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret is used when JWT_SECRET is unset. It is only safe locally.
const DevJWTSecret = "caltrack-dev-secret-change-me"

// Config holds every tunable of the server and CLI.
type Config struct {
	Port            int
	DBDriver        string // sqlite or postgres
	DBPath          string
	DBURL           string
	JWTSecret       string
	TokenTTL        time.Duration
	Location        *time.Location
	FederatedIssuer string
	FederatedSecret string
	FlushTimeout    time.Duration
	StaticPath      string // optional web client; empty disables it
}

// InsecureSecret reports whether the built-in development secret is in use.
func (c *Config) InsecureSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

// FederatedEnabled reports whether federated sign-in is configured.
func (c *Config) FederatedEnabled() bool {
	return c.FederatedIssuer != "" && c.FederatedSecret != ""
}

// Load reads the given .env files (".env" when none) and then the process
// environment. Variables already set in the environment win. Missing files
// are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone.
func FromEnv() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", os.Getenv("PORT"))
	}
	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %q", os.Getenv("TOKEN_TTL"))
	}
	flush, err := time.ParseDuration(getEnv("FLUSH_TIMEOUT", "5s"))
	if err != nil || flush <= 0 {
		return nil, fmt.Errorf("invalid FLUSH_TIMEOUT: %q", os.Getenv("FLUSH_TIMEOUT"))
	}
	loc, err := time.LoadLocation(getEnv("TZ_NAME", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME: %w", err)
	}

	cfg := &Config{
		Port:            port,
		DBDriver:        getEnv("DB_DRIVER", "sqlite"),
		DBPath:          getEnv("DB_PATH", "./data/caltrack.db"),
		DBURL:           os.Getenv("DB_URL"),
		JWTSecret:       getEnv("JWT_SECRET", DevJWTSecret),
		TokenTTL:        ttl,
		Location:        loc,
		FederatedIssuer: os.Getenv("FEDERATED_ISSUER"),
		FederatedSecret: os.Getenv("FEDERATED_SECRET"),
		FlushTimeout:    flush,
		StaticPath:      os.Getenv("STATIC_PATH"),
	}

	switch cfg.DBDriver {
	case "sqlite":
	case "postgres":
		if cfg.DBURL == "" {
			return nil, errors.New("DB_URL is required when DB_DRIVER=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q (want sqlite or postgres)", cfg.DBDriver)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
