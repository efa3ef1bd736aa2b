package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all reward-advisor configuration.
type Config struct {
	Server          ServerConfig          `toml:"server"`
	RateLimit       RateLimitConfig       `toml:"rate_limit"`
	Oracle          OracleConfig          `toml:"oracle"`
	Rewards         RewardsConfig         `toml:"rewards"`
	Planner         PlannerConfig         `toml:"planner"`
	Spending        SpendingConfig        `toml:"spending"`
	Recommendations RecommendationsConfig `toml:"recommendations"`
	Store           StoreConfig           `toml:"store"`
	Cache           CacheConfig           `toml:"cache"`
	Logging         LoggingConfig         `toml:"logging"`
}

type ServerConfig struct {
	Addr            string `toml:"addr"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	IdleTimeout     string `toml:"idle_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

type RateLimitConfig struct {
	Capacity int    `toml:"capacity"`
	Refill   string `toml:"refill"`
}

// OracleConfig selects the explanation provider. Provider is openai, gemini
// or none; an empty API key disables the oracle.
type OracleConfig struct {
	Provider         string `toml:"provider"`
	APIKey           string `toml:"api_key,omitempty"`
	Model            string `toml:"model,omitempty"`
	BaseURL          string `toml:"base_url,omitempty"`
	Timeout          string `toml:"timeout"`
	MaxResponseBytes int64  `toml:"max_response_bytes"`
	MaxTokens        int    `toml:"max_tokens"`
}

type RewardsConfig struct {
	AnnualTransactions int `toml:"annual_transactions"`
}

type PlannerConfig struct {
	MaxMonths            int    `toml:"max_months"`
	HybridMonthThreshold int    `toml:"hybrid_month_threshold"`
	HybridQuickWinMonths int    `toml:"hybrid_quick_win_months"`
	CacheTTL             string `toml:"cache_ttl"`
}

type SpendingConfig struct {
	WindowDays    int    `toml:"window_days"`
	MinSampleSize int    `toml:"min_sample_size"`
	RulesFile     string `toml:"rules_file,omitempty"`
	WatchRules    bool   `toml:"watch_rules"`
}

type RecommendationsConfig struct {
	MaxCount            int     `toml:"max_count"`
	HighImpactThreshold float64 `toml:"high_impact_threshold"`
	TTL                 string  `toml:"ttl"`
}

// StoreConfig selects recommendation persistence: sqlite or memory.
type StoreConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path,omitempty"`
}

// CacheConfig selects the plan cache: redis or memory.
type CacheConfig struct {
	Driver    string `toml:"driver"`
	RedisAddr string `toml:"redis_addr,omitempty"`
	Password  string `toml:"password,omitempty"`
	DB        int    `toml:"db"`
	Prefix    string `toml:"prefix"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json or console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     "15s",
			WriteTimeout:    "15s",
			IdleTimeout:     "60s",
			ShutdownTimeout: "10s",
		},
		RateLimit: RateLimitConfig{
			Capacity: 5,
			Refill:   "1m",
		},
		Oracle: OracleConfig{
			Provider:         "openai",
			Timeout:          "8s",
			MaxResponseBytes: 64 << 10,
			MaxTokens:        600,
		},
		Rewards: RewardsConfig{
			AnnualTransactions: 300,
		},
		Planner: PlannerConfig{
			MaxMonths:            600,
			HybridMonthThreshold: 2,
			HybridQuickWinMonths: 3,
			CacheTTL:             "1h",
		},
		Spending: SpendingConfig{
			WindowDays:    90,
			MinSampleSize: 5,
			WatchRules:    true,
		},
		Recommendations: RecommendationsConfig{
			MaxCount:            5,
			HighImpactThreshold: 1000,
			TTL:                 "720h",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(DataDir(), "recommendations.db"),
		},
		Cache: CacheConfig{
			Driver: "memory",
			Prefix: "reward-advisor:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "reward-advisor")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "reward-advisor")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "reward-advisor")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "reward-advisor")
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file at path (ConfigPath when empty), returning
// defaults if it doesn't exist. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays secrets and endpoints from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ADVISOR_ORACLE_PROVIDER"); v != "" {
		cfg.Oracle.Provider = v
	}
	switch cfg.Oracle.Provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			cfg.Oracle.APIKey = key
		}
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Oracle.APIKey = key
		}
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.RedisAddr = addr
	}
	if path := os.Getenv("ADVISOR_DB_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if addr := os.Getenv("ADVISOR_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
}

// Validate checks that every duration parses and drivers are known.
func (c Config) Validate() error {
	durations := map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"rate_limit.refill":       c.RateLimit.Refill,
		"oracle.timeout":          c.Oracle.Timeout,
		"planner.cache_ttl":       c.Planner.CacheTTL,
		"recommendations.ttl":     c.Recommendations.TTL,
	}
	for key, v := range durations {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("config store.driver: unknown driver %q", c.Store.Driver)
	}
	switch c.Cache.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("config cache.driver: unknown driver %q", c.Cache.Driver)
	}
	switch c.Oracle.Provider {
	case "openai", "gemini", "none", "":
	default:
		return fmt.Errorf("config oracle.provider: unknown provider %q", c.Oracle.Provider)
	}
	return nil
}

// Duration parses a validated duration field, returning fallback when empty.
func Duration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Save writes the config to path (ConfigPath when empty).
func Save(cfg Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists at path.
func Exists(path string) bool {
	if path == "" {
		path = ConfigPath()
	}
	_, err := os.Stat(path)
	return err == nil
}
