package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	DatabaseURL string
	RedisAddr   string
	DataDir     string
}

func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 8620),
		DatabaseURL: env("DATABASE_URL", "postgres://curatarr:curatarr@db:5432/curatarr?sslmode=disable"),
		RedisAddr:   env("REDIS_ADDR", "redis:6379"),
		DataDir:     env("DATA_DIR", "/appdata"),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
