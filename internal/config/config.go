// Package config loads server configuration from TOML with environment
// variable overrides for deployment settings.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// Config holds server configuration loaded from TOML.
type Config struct {
	Server struct {
		Port        int      `toml:"port"`
		DataPath    string   `toml:"data_path"`
		DBPath      string   `toml:"db_path"`
		UploadPath  string   `toml:"upload_path"`
		CORSOrigins []string `toml:"cors_origins"`
	} `toml:"server"`

	Auth struct {
		JWTSecret     string `toml:"jwt_secret"`
		TokenTTLHours int    `toml:"token_ttl_hours"`
		AdminUsername string `toml:"admin_username"`
		AdminPassword string `toml:"admin_password"`
	} `toml:"auth"`

	Engine struct {
		URL string `toml:"url"`
	} `toml:"engine"`

	Chunking struct {
		TargetSec     float64 `toml:"target_sec"`
		OverlapSec    float64 `toml:"overlap_sec"`
		SnapRadiusSec float64 `toml:"snap_radius_sec"`
	} `toml:"chunking"`

	VAD struct {
		Aggressiveness int     `toml:"aggressiveness"`
		MinSpeechSec   float64 `toml:"min_speech_sec"`
		MinSilenceSec  float64 `toml:"min_silence_sec"`
	} `toml:"vad"`

	Silence struct {
		MinDurationSec float64 `toml:"min_duration_sec"`
		NoiseDB        int     `toml:"noise_db"`
	} `toml:"silence"`

	Pipeline struct {
		Align bool `toml:"align"`
	} `toml:"pipeline"`

	Logging struct {
		Level      string `toml:"level"` // debug, info, warn, error
		Path       string `toml:"path"`  // empty = stderr only
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
	} `toml:"logging"`

	Sentry struct {
		DSN string `toml:"dsn"`
	} `toml:"sentry"`
}

// Default returns Config populated with defaults.
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Port = 8080
	cfg.Server.DataPath = "/data"
	cfg.Server.DBPath = "/data/longscribe.db"
	cfg.Server.UploadPath = "/data/uploads"
	cfg.Server.CORSOrigins = []string{"*"}

	cfg.Auth.TokenTTLHours = 72
	cfg.Auth.AdminUsername = "admin"
	cfg.Auth.AdminPassword = "admin"

	cfg.Engine.URL = "http://localhost:9000"

	cfg.Chunking.TargetSec = 30
	cfg.Chunking.OverlapSec = 10
	cfg.Chunking.SnapRadiusSec = 0.5

	cfg.VAD.Aggressiveness = 2
	cfg.VAD.MinSpeechSec = 0.3
	cfg.VAD.MinSilenceSec = 0.5

	cfg.Silence.MinDurationSec = 0.7
	cfg.Silence.NoiseDB = -35

	cfg.Pipeline.Align = true

	cfg.Logging.Level = "info"
	cfg.Logging.MaxSizeMB = 50
	cfg.Logging.MaxBackups = 3

	return cfg
}

// Load reads the config file at path (optional) over defaults, then applies
// environment overrides. A missing JWT secret is replaced by a random one.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Auth.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWTSecret = hex.EncodeToString(b)
		logrus.Warn("jwt secret not set, using a random one; sessions will not survive restarts")
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATA_PATH"); v != "" {
		cfg.Server.DataPath = v
		cfg.Server.DBPath = filepath.Join(v, "longscribe.db")
		cfg.Server.UploadPath = filepath.Join(v, "uploads")
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.Server.CORSOrigins = origins
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		cfg.Auth.AdminUsername = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		cfg.Auth.AdminPassword = v
	}
	if v := os.Getenv("ENGINE_URL"); v != "" {
		cfg.Engine.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		cfg.Sentry.DSN = v
	}
}
