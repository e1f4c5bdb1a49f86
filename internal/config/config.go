package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ansel1/merry"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// Environment names selecting the database file.
const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Config is passed explicitly to every component that needs it.
type Config struct {
	Env        string `yaml:"env" toml:"env"`
	DataDir    string `yaml:"data_dir" toml:"data_dir"`
	DevDBFile  string `yaml:"dev_db_file" toml:"dev_db_file"`
	ProdDBFile string `yaml:"prod_db_file" toml:"prod_db_file"`
	Addr       string `yaml:"addr" toml:"addr"`
	LogLevel   string `yaml:"log_level" toml:"log_level"`

	// Store connection pool. SQLite in WAL mode allows one writer and many readers;
	// writers wait up to BusyTimeoutMS for the write lock and then fail.
	BusyTimeoutMS      int `yaml:"busy_timeout_ms" toml:"busy_timeout_ms"`
	MaxOpenConns       int `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns       int `yaml:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetimeSec int `yaml:"conn_max_lifetime_sec" toml:"conn_max_lifetime_sec"`

	RateCacheSize   int                `yaml:"rate_cache_size" toml:"rate_cache_size"`
	DefaultRates    map[string]float64 `yaml:"default_rates" toml:"default_rates"`
	BatchTimeoutSec int                `yaml:"batch_timeout_sec" toml:"batch_timeout_sec"`

	// AdminPassword is set on the seeded "000" account only when it is created.
	AdminPassword string `yaml:"admin_password" toml:"admin_password"`
}

// Default returns the configuration used when no file or env overrides exist.
func Default() Config {
	return Config{
		Env:                EnvDev,
		DataDir:            ".",
		DevDBFile:          "tradedesk_dev.db",
		ProdDBFile:         "tradedesk.db",
		Addr:               ":9000",
		LogLevel:           "info",
		BusyTimeoutMS:      5000,
		MaxOpenConns:       10,
		MaxIdleConns:       5,
		ConnMaxLifetimeSec: 1800,
		RateCacheSize:      100,
		DefaultRates: map[string]float64{
			"KRW": 180.0,
			"USD": 7.0,
		},
		BatchTimeoutSec: 30,
		AdminPassword:   "changeme",
	}
}

// Load reads path (YAML or TOML by extension) over the defaults, then applies
// .env and TRADEDESK_* environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, merry.Append(err, "read config")
		default:
			if err := decode(path, b, &cfg); err != nil {
				return cfg, merry.Append(err, "parse "+path)
			}
		}
	}
	_ = godotenv.Load()
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Unmarshal(b, cfg)
	case ".yaml", ".yml", "":
		return yaml.Unmarshal(b, cfg)
	}
	return merry.Errorf("unsupported config format %q", filepath.Ext(path))
}

func applyEnv(cfg *Config) {
	setString(&cfg.Env, "TRADEDESK_ENV")
	setString(&cfg.DataDir, "TRADEDESK_DATA_DIR")
	setString(&cfg.Addr, "TRADEDESK_ADDR")
	setString(&cfg.LogLevel, "TRADEDESK_LOG_LEVEL")
	setInt(&cfg.BusyTimeoutMS, "TRADEDESK_BUSY_TIMEOUT_MS")
	setInt(&cfg.MaxOpenConns, "TRADEDESK_MAX_OPEN_CONNS")
	setInt(&cfg.RateCacheSize, "TRADEDESK_RATE_CACHE_SIZE")
	setInt(&cfg.BatchTimeoutSec, "TRADEDESK_BATCH_TIMEOUT_SEC")
	setString(&cfg.AdminPassword, "TRADEDESK_ADMIN_PASSWORD")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Env != EnvDev && c.Env != EnvProd:
		return merry.Errorf("env must be %q or %q, got %q", EnvDev, EnvProd, c.Env)
	case c.MaxOpenConns < 1:
		return merry.New("max_open_conns must be positive")
	case c.MaxIdleConns < 0:
		return merry.New("max_idle_conns must be non-negative")
	case c.BusyTimeoutMS < 0:
		return merry.New("busy_timeout_ms must be non-negative")
	case c.RateCacheSize < 1:
		return merry.New("rate_cache_size must be at least 1")
	}
	return nil
}

// DBPath is the database file for the configured environment.
func (c Config) DBPath() string {
	name := c.DevDBFile
	if c.Env == EnvProd {
		name = c.ProdDBFile
	}
	return filepath.Join(c.DataDir, name)
}

func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMS) * time.Millisecond
}

func (c Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeSec) * time.Second
}

func (c Config) BatchTimeout() time.Duration {
	return time.Duration(c.BatchTimeoutSec) * time.Second
}
