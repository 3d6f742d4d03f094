package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string

	MoveServerURL string
	MoveTimeout   time.Duration
	MoveRetryMax  int

	RedisURL    string
	SessionTTL  time.Duration
	DatabaseURL string

	SoundDir   string
	StaticDir  string
	MessageDir string

	MoveServerAddr string
}

// Load reads the view server settings from the environment.
func Load() (*AppConfig, error) {
	cfg := loadDefaults()
	if cfg.MoveServerURL == "" {
		return nil, errors.New("MOVE_SERVER_URL is required")
	}
	return cfg, nil
}

// LoadMoveServer reads the settings used by the reference move server. MOVE_SERVER_URL is not required there.
func LoadMoveServer() *AppConfig {
	return loadDefaults()
}

func loadDefaults() *AppConfig {
	cfg := &AppConfig{
		ListenAddr:     ":8080",
		MoveTimeout:    10 * time.Second,
		MoveRetryMax:   3,
		SessionTTL:     24 * time.Hour,
		MoveServerAddr: ":8081",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	cfg.MoveServerURL = strings.TrimRight(strings.TrimSpace(os.Getenv("MOVE_SERVER_URL")), "/")
	if v := strings.TrimSpace(os.Getenv("MOVE_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MoveTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("MOVE_RETRY_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MoveRetryMax = n
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTL = time.Duration(n) * time.Second
		}
	}
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.SoundDir = strings.TrimSpace(os.Getenv("SOUND_DIR"))
	cfg.StaticDir = strings.TrimSpace(os.Getenv("STATIC_DIR"))
	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	if v := strings.TrimSpace(os.Getenv("MOVESERVER_ADDR")); v != "" {
		cfg.MoveServerAddr = v
	}
	return cfg
}
