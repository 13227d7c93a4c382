package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Port string
	Env  string

	RedisURL  string
	RedisPass string
	RedisDB   int

	// StoreBackend selects "redis" (default) or "memory" for local dev.
	StoreBackend string

	BotToken  string
	JWTSecret string

	GatewayURL   string
	GatewayToken string

	AdminSecret string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		RedisURL:     getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:    getEnv("REDIS_PASSWORD", ""),
		StoreBackend: getEnv("STORE_BACKEND", "redis"),
		BotToken:     os.Getenv("BOT_TOKEN"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		GatewayURL:   getEnv("GATEWAY_URL", "https://pay.crypt.bot"),
		GatewayToken: os.Getenv("GATEWAY_TOKEN"),
		AdminSecret:  os.Getenv("ADMIN_SECRET"),
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, errors.New("REDIS_DB must be an integer")
		}
		cfg.RedisDB = n
	}

	if cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
