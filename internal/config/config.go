package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/posture-dashboard/internal/models"
)

// Config captures the settings required to boot the dashboard service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Sources     SourcesConfig     `yaml:"sources"`
	Preferences PreferencesConfig `yaml:"preferences"`
	UI          UIConfig          `yaml:"ui"`
	Logging     LoggingConfig     `yaml:"logging"`
	Cache       CacheConfig       `yaml:"cache"`
}

// ServerConfig controls the HTTP, ops gRPC and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	OpsAddress      string        `yaml:"opsAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	CSRFKey         string        `yaml:"csrfKey"`
	SecureCookies   bool          `yaml:"secureCookies"`
	TrustedOrigins  []string      `yaml:"trustedOrigins"`
}

// SourcesConfig groups the two dataset sources.
type SourcesConfig struct {
	Remote   RemoteSourceConfig   `yaml:"remote"`
	Fallback FallbackSourceConfig `yaml:"fallback"`
}

// RemoteSourceConfig configures the live metrics API.
type RemoteSourceConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// FallbackSourceConfig locates the static demo payloads. Location is either a
// directory or an http(s) base URL.
type FallbackSourceConfig struct {
	Location string        `yaml:"location"`
	Timeout  time.Duration `yaml:"timeout"`
}

// PreferencesConfig controls where the selected mode is persisted.
type PreferencesConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Key         string `yaml:"key"`
	DefaultMode string `yaml:"defaultMode"`
}

// UIConfig controls page behaviour.
type UIConfig struct {
	NotifyDuration time.Duration `yaml:"notifyDuration"`
	RedrawInterval time.Duration `yaml:"redrawInterval"`
	ChartWidth     int           `yaml:"chartWidth"`
	ChartHeight    int           `yaml:"chartHeight"`
	Timezone       string        `yaml:"timezone"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig configures the Valkey connection used by the valkey preference backend.
type CacheConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
}

// Preference backends. BackendMemory keeps the mode only for the life of the
// process and is meant for local development and tests.
const (
	BackendFile   = "file"
	BackendValkey = "valkey"
	BackendMemory = "memory"
)

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("POSTURE_DASHBOARD_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if _, err := models.ParseMode(c.Preferences.DefaultMode); err != nil {
		return fmt.Errorf("preferences.defaultMode: %w", err)
	}
	switch c.Preferences.Backend {
	case BackendFile:
		if c.Preferences.Path == "" {
			return fmt.Errorf("preferences.path is required for the file backend")
		}
	case BackendValkey:
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache.addr is required for the valkey backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown preferences.backend %q", c.Preferences.Backend)
	}
	if c.Server.CSRFKey != "" && len(c.Server.CSRFKey) != 32 {
		return fmt.Errorf("server.csrfKey must be 32 bytes")
	}
	if c.Sources.Remote.BaseURL == "" && c.Sources.Fallback.Location == "" {
		return fmt.Errorf("at least one of sources.remote.baseURL and sources.fallback.location must be set")
	}
	if c.UI.RedrawInterval <= 0 {
		return fmt.Errorf("ui.redrawInterval must be positive")
	}
	if _, err := time.LoadLocation(c.UI.Timezone); err != nil {
		return fmt.Errorf("ui.timezone: %w", err)
	}
	return nil
}

// PersistsPreferences reports whether the selected mode survives a restart.
func (c *Config) PersistsPreferences() bool {
	return c.Preferences.Backend != BackendMemory
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			OpsAddress:      ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Sources: SourcesConfig{
			Remote:   RemoteSourceConfig{BaseURL: "http://localhost:8000", Timeout: 5 * time.Second},
			Fallback: FallbackSourceConfig{Location: "data", Timeout: 5 * time.Second},
		},
		Preferences: PreferencesConfig{
			Backend:     BackendFile,
			Path:        "posture-dashboard.prefs.yaml",
			Key:         "posture-dashboard:mode",
			DefaultMode: string(models.ModeLive),
		},
		UI: UIConfig{
			NotifyDuration: 4 * time.Second,
			RedrawInterval: 200 * time.Millisecond,
			ChartWidth:     640,
			ChartHeight:    240,
			Timezone:       "UTC",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTURE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("POSTURE_OPS_ADDRESS"); v != "" {
		cfg.Server.OpsAddress = v
	}
	if v := os.Getenv("POSTURE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("POSTURE_CSRF_KEY"); v != "" {
		cfg.Server.CSRFKey = v
	}
	if v := os.Getenv("POSTURE_REMOTE_BASE_URL"); v != "" {
		cfg.Sources.Remote.BaseURL = v
	}
	if v := os.Getenv("POSTURE_REMOTE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sources.Remote.Timeout = d
		}
	}
	if v := os.Getenv("POSTURE_FALLBACK_LOCATION"); v != "" {
		cfg.Sources.Fallback.Location = v
	}
	if v := os.Getenv("POSTURE_PREFS_BACKEND"); v != "" {
		cfg.Preferences.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("POSTURE_PREFS_PATH"); v != "" {
		cfg.Preferences.Path = v
	}
	if v := os.Getenv("POSTURE_DEFAULT_MODE"); v != "" {
		cfg.Preferences.DefaultMode = v
	}
	if v := os.Getenv("POSTURE_NOTIFY_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.UI.NotifyDuration = d
		}
	}
	if v := os.Getenv("POSTURE_REDRAW_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.UI.RedrawInterval = d
		}
	}
	if v := os.Getenv("POSTURE_TIMEZONE"); v != "" {
		cfg.UI.Timezone = v
	}
	if v := os.Getenv("POSTURE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("POSTURE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("POSTURE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("POSTURE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("POSTURE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("POSTURE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("POSTURE_CACHE_TLS"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("POSTURE_CACHE_MAX_RETRIES"); v != "" {
		if retry, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxRetries = retry
		}
	}
}
