package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	WSAddr  string
	APIAddr string

	RedisURL    string
	DatabaseURL string

	MessagesDir string

	ReconcileInterval time.Duration
	WSSendBuffer      int
	WSPingInterval    time.Duration

	AllowComputerMatch bool
	LeaderboardLimit   int
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		WSAddr:             ":8080",
		APIAddr:            ":8081",
		ReconcileInterval:  30 * time.Second,
		WSSendBuffer:       32,
		WSPingInterval:     30 * time.Second,
		AllowComputerMatch: true,
		LeaderboardLimit:   30,
	}

	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("API_ADDR")); v != "" {
		cfg.APIAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("RECONCILE_INTERVAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReconcileInterval = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_SEND_BUFFER")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSSendBuffer = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_PING_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSPingInterval = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("ALLOW_COMPUTER_MATCH")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.AllowComputerMatch = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("LEADERBOARD_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 30 {
			cfg.LeaderboardLimit = n
		}
	}

	if cfg.WSAddr == cfg.APIAddr {
		return nil, errors.New("WS_ADDR and API_ADDR must differ")
	}
	return cfg, nil
}
