package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for langcheck.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Remote   RemoteConfig   `yaml:"remote"`
	Check    CheckConfig    `yaml:"check"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EngineConfig contains settings for the locally launched grammar engine.
type EngineConfig struct {
	// JavaPath is the java runtime. Empty means look it up on PATH.
	JavaPath string `yaml:"java_path"`

	// JavaArgs are extra runtime flags, e.g. ["-Xmx2g"].
	JavaArgs []string `yaml:"java_args"`

	// ArchivePath points directly at the server archive.
	ArchivePath string `yaml:"archive_path"`

	// ArchiveDir is an unpacked engine directory (LTP_JAR_DIR_PATH).
	ArchiveDir string `yaml:"archive_dir"`

	// DownloadDir holds LanguageTool-* directories (LTP_PATH).
	DownloadDir string `yaml:"download_dir"`

	// Version is the engine release, used for the runtime version check.
	Version string `yaml:"version"`

	// CheckRuntime enables the java version check before launch.
	CheckRuntime bool `yaml:"check_runtime"`

	Host    string `yaml:"host"`
	MinPort int    `yaml:"min_port"`
	MaxPort int    `yaml:"max_port"`

	// ReadyTimeout is how long to wait for the health check (in seconds).
	ReadyTimeout int `yaml:"ready_timeout"`

	// GracefulTimeout is the SIGTERM grace period before SIGKILL (in seconds).
	GracefulTimeout int `yaml:"graceful_timeout"`

	// MaxRestarts limits engine restarts. 0 means unlimited.
	MaxRestarts int `yaml:"max_restarts"`

	// CaptureOutput logs engine stdout/stderr at debug level.
	CaptureOutput bool `yaml:"capture_output"`

	// ServerConfig is passed to the engine as its --config file.
	// Keys are validated by engineconfig.
	ServerConfig map[string]any `yaml:"server_config"`
}

// RemoteConfig selects a remote engine instead of a local one.
type RemoteConfig struct {
	URL string `yaml:"url"`

	// PublicAPI uses the hosted public engine.
	PublicAPI bool `yaml:"public_api"`
}

// CheckConfig contains defaults applied to every check.
type CheckConfig struct {
	Language           string   `yaml:"language"`
	MotherTongue       string   `yaml:"mother_tongue"`
	DisabledRules      []string `yaml:"disabled_rules"`
	EnabledRules       []string `yaml:"enabled_rules"`
	DisabledCategories []string `yaml:"disabled_categories"`
	EnabledCategories  []string `yaml:"enabled_categories"`
	PreferredVariants  []string `yaml:"preferred_variants"`
	EnabledOnly        bool     `yaml:"enabled_only"`
	Picky              bool     `yaml:"picky"`
	Spellcheck         bool     `yaml:"spellcheck"`
	NewSpellings       []string `yaml:"new_spellings"`
	SpellingsPersist   bool     `yaml:"spellings_persist"`

	// MaxAttempts is how often a request to a crashed local engine is tried.
	MaxAttempts int `yaml:"max_attempts"`

	// RequestTimeout bounds each engine request (in seconds).
	RequestTimeout int `yaml:"request_timeout"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// CacheConfig contains check-result cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`

	// TTL is how long a cached result stays valid (in seconds). 0 means forever.
	TTL int `yaml:"ttl"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern LANGCHECK_SECTION_KEY, e.g.
// LANGCHECK_DATABASE_PATH. The engine's own LTP_PATH and LTP_JAR_DIR_PATH
// are honoured as well.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOptional behaves like Load but starts from defaults when path is empty.
func LoadOptional(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Host:            "127.0.0.1",
			MinPort:         8081,
			MaxPort:         8999,
			ReadyTimeout:    15,
			GracefulTimeout: 5,
		},
		Check: CheckConfig{
			Spellcheck:     true,
			MaxAttempts:    2,
			RequestTimeout: 300,
		},
		Database: DatabaseConfig{
			Path:        "./data/langcheck.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Cache: CacheConfig{
			TTL: 86400,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "langcheckd",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "langcheck",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Engine
	if v := os.Getenv("LANGCHECK_ENGINE_JAVA_PATH"); v != "" {
		cfg.Engine.JavaPath = v
	}
	if v := os.Getenv("LTP_PATH"); v != "" && cfg.Engine.DownloadDir == "" {
		cfg.Engine.DownloadDir = v
	}
	if v := os.Getenv("LTP_JAR_DIR_PATH"); v != "" && cfg.Engine.ArchiveDir == "" {
		cfg.Engine.ArchiveDir = v
	}

	// Remote
	if v := os.Getenv("LANGCHECK_REMOTE_URL"); v != "" {
		cfg.Remote.URL = v
	}

	// Check
	if v := os.Getenv("LANGCHECK_CHECK_LANGUAGE"); v != "" {
		cfg.Check.Language = v
	}

	// Database
	if v := os.Getenv("LANGCHECK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("LANGCHECK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LANGCHECK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LANGCHECK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("LANGCHECK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("LANGCHECK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Engine server options are only checked for shape here; engineconfig
// validates the individual keys when the engine is launched.
func (c *Config) Validate() error {
	var errs []string

	// Engine validation
	if c.Remote.URL == "" && !c.Remote.PublicAPI {
		if c.Engine.MinPort < 1 || c.Engine.MaxPort > 65536 || c.Engine.MaxPort <= c.Engine.MinPort {
			errs = append(errs, "engine.min_port and engine.max_port must form a non-empty range within 1-65535")
		}
		if c.Engine.ReadyTimeout <= 0 {
			errs = append(errs, "engine.ready_timeout must be positive")
		}
		if c.Engine.MaxRestarts < 0 {
			errs = append(errs, "engine.max_restarts must not be negative")
		}
	} else {
		if c.Remote.URL != "" && c.Remote.PublicAPI {
			errs = append(errs, "remote.url and remote.public_api are mutually exclusive")
		}
		if len(c.Engine.ServerConfig) > 0 {
			errs = append(errs, "engine.server_config cannot be used with a remote engine")
		}
		if len(c.Check.NewSpellings) > 0 {
			errs = append(errs, "check.new_spellings cannot be used with a remote engine")
		}
	}

	// Check validation
	if c.Check.MaxAttempts < 1 {
		errs = append(errs, "check.max_attempts must be at least 1")
	}
	if c.Check.RequestTimeout <= 0 {
		errs = append(errs, "check.request_timeout must be positive")
	}

	// Database validation
	if c.Cache.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when cache is enabled")
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url, influxdb.org and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// UsesRemote reports whether checks go to a remote engine.
func (c *Config) UsesRemote() bool {
	return c.Remote.URL != "" || c.Remote.PublicAPI
}

// GetReadyTimeout returns the engine ready timeout as a Duration.
func (c *Config) GetReadyTimeout() time.Duration {
	return time.Duration(c.Engine.ReadyTimeout) * time.Second
}

// GetGracefulTimeout returns the engine shutdown grace period as a Duration.
func (c *Config) GetGracefulTimeout() time.Duration {
	return time.Duration(c.Engine.GracefulTimeout) * time.Second
}

// GetRequestTimeout returns the engine request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Check.RequestTimeout) * time.Second
}

// GetCacheTTL returns the cache entry lifetime as a Duration. Zero means no expiry.
func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}
