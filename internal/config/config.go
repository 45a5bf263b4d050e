package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// Mode is the gin mode: debug, release or test.
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
		// File enables rotating JSON logs in addition to the console.
		File string `yaml:"file"`
	} `yaml:"log"`
	Database struct {
		// Driver is postgres or sqlite.
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Quiz struct {
		CacheTTL              string `yaml:"cache_ttl"`
		EnforceWindowOnSubmit bool   `yaml:"enforce_window_on_submit"`
	} `yaml:"quiz"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Reports struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"reports"`
}

// StorageConfig selects where question images are kept.
type StorageConfig struct {
	// Type is local or minio.
	Type      string `yaml:"type"`
	LocalPath string `yaml:"local_path"`
	Minio     struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"minio"`
}

// Load reads YAML config from path, then applies .env and environment
// overrides. A missing file yields defaults plus overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("QUIZ_ENFORCE_WINDOW_ON_SUBMIT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Quiz.EnforceWindowOnSubmit = b
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "uploads"
	}
	if cfg.Reports.Timezone == "" {
		cfg.Reports.Timezone = "UTC"
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Location resolves the reports time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reports.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
