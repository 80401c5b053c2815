package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/loykin/folio/internal/logger"
	"github.com/loykin/folio/internal/store"
	"github.com/loykin/folio/internal/store/factory"
	foliotls "github.com/loykin/folio/internal/tls"
)

// DefaultEnvFile is loaded when present and env_file is not set.
const DefaultEnvFile = "Secure/.env"

// Config represents the top-level TOML structure.
type Config struct {
	Account  string         `toml:"account" mapstructure:"account"`
	EnvFile  string         `toml:"env_file" mapstructure:"env_file"`
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	Cache    CacheConfig    `toml:"cache" mapstructure:"cache"`
	Source   SourceConfig   `toml:"source" mapstructure:"source"`
	Store    store.Config   `toml:"store" mapstructure:"store"`
	Liveness LivenessConfig `toml:"liveness" mapstructure:"liveness"`
	Log      logger.Config  `toml:"log" mapstructure:"log"`
	Metrics  MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
	History  HistoryConfig  `toml:"history" mapstructure:"history"`
	Contact  ContactConfig  `toml:"contact" mapstructure:"contact"`
}

type ServerConfig struct {
	Listen      string          `toml:"listen" mapstructure:"listen"`
	BasePath    string          `toml:"base_path" mapstructure:"base_path"`
	Engine      string          `toml:"engine" mapstructure:"engine"` // gin or echo
	StaticDir   string          `toml:"static_dir" mapstructure:"static_dir"`
	OpenBrowser bool            `toml:"open_browser" mapstructure:"open_browser"`
	TLS         foliotls.Config `toml:"tls" mapstructure:"tls"`
}

type CacheConfig struct {
	TTL          time.Duration `toml:"ttl" mapstructure:"ttl"`
	FetchTimeout time.Duration `toml:"fetch_timeout" mapstructure:"fetch_timeout"`
}

type SourceConfig struct {
	BaseURL  string `toml:"base_url" mapstructure:"base_url"`
	Token    string `toml:"token" mapstructure:"token"`
	PerPage  int    `toml:"per_page" mapstructure:"per_page"`
	MaxPages int    `toml:"max_pages" mapstructure:"max_pages"`
}

type LivenessConfig struct {
	Enabled   bool          `toml:"enabled" mapstructure:"enabled"`
	Threshold time.Duration `toml:"threshold" mapstructure:"threshold"`
	Interval  time.Duration `toml:"interval" mapstructure:"interval"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type HistoryConfig struct {
	// DSN selects the sink by scheme; empty disables history.
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

type ContactConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Key     string `toml:"key" mapstructure:"key"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("account", "")
	v.SetDefault("env_file", "")

	v.SetDefault("server.listen", "127.0.0.1:5005")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.engine", "gin")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.open_browser", true)
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("server.tls.cert_file", "")
	v.SetDefault("server.tls.key_file", "")
	v.SetDefault("server.tls.dir", "")
	v.SetDefault("server.tls.auto_generate", false)
	v.SetDefault("server.tls.min_version", "")

	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.fetch_timeout", "10s")

	v.SetDefault("source.base_url", "https://api.github.com")
	v.SetDefault("source.token", "")
	v.SetDefault("source.per_page", 100)
	v.SetDefault("source.max_pages", 10)

	v.SetDefault("store.type", "file")
	v.SetDefault("store.path", "Secure")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table_prefix", "")

	v.SetDefault("liveness.enabled", true)
	v.SetDefault("liveness.threshold", "10s")
	v.SetDefault("liveness.interval", "2s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.show_time", true)
	v.SetDefault("log.file", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9090")

	v.SetDefault("history.dsn", "")

	v.SetDefault("contact.enabled", true)
	v.SetDefault("contact.key", "messages")
}

// Load reads the TOML file at path (optional), then applies the env file
// and environment overrides. Precedence: FOLIO_* env > legacy env names >
// file > defaults. Variables from the env file never override the process
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	envFile := os.Getenv("FOLIO_ENV_FILE")
	if envFile == "" {
		envFile = v.GetString("env_file")
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("account", "FOLIO_ACCOUNT", "GITHUB_USERNAME")
	_ = v.BindEnv("source.token", "FOLIO_SOURCE_TOKEN", "GITHUB_TOKEN")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.EnvFile == "" {
		cfg.EnvFile = envFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile applies a dotenv file. An explicit path must exist; the
// default one is optional.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	clean := filepath.Clean(path)
	if _, err := os.Stat(clean); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file %s: %w", clean, err)
	}
	if err := godotenv.Load(clean); err != nil {
		return fmt.Errorf("env file %s: %w", clean, err)
	}
	return nil
}

var validEngines = map[string]bool{"gin": true, "echo": true}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Account) == "" {
		errs = append(errs, errors.New("account is required (set account or GITHUB_USERNAME)"))
	}
	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	if !validEngines[strings.ToLower(c.Server.Engine)] {
		errs = append(errs, fmt.Errorf("server.engine %q: want gin or echo", c.Server.Engine))
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, fmt.Errorf("server.base_path %q must start with /", c.Server.BasePath))
	}
	if t := strings.ToLower(c.Store.Type); t != "" && !slices.Contains(factory.SupportedTypes(), t) {
		errs = append(errs, fmt.Errorf("store.type %q: supported %v", c.Store.Type, factory.SupportedTypes()))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Cache.FetchTimeout <= 0 {
		errs = append(errs, errors.New("cache.fetch_timeout must be positive"))
	}
	if c.Source.PerPage < 1 || c.Source.PerPage > 100 {
		errs = append(errs, fmt.Errorf("source.per_page %d: want 1..100", c.Source.PerPage))
	}
	if c.Source.MaxPages < 1 {
		errs = append(errs, errors.New("source.max_pages must be at least 1"))
	}
	if c.Liveness.Threshold <= 0 || c.Liveness.Interval <= 0 {
		errs = append(errs, errors.New("liveness.threshold and liveness.interval must be positive"))
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, errors.New("metrics.listen is required when metrics are enabled"))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}
