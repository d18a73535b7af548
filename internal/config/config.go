package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apierrors "companywise/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	Progress  ProgressConfig  `yaml:"progress" envconfig:"PROGRESS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	OTel      OTelConfig      `yaml:"otel" envconfig:"OTEL"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"LISTEN_HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	WebDir     string `yaml:"web_dir" envconfig:"WEB_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	ExportsDir string `yaml:"exports_dir" envconfig:"EXPORTS_DIR"`
}

// DataConfig controls where problem tables come from.
type DataConfig struct {
	// Source is one of local, remote or auto. Auto tries the local
	// directory first and falls back to the remote repository.
	Source            string        `yaml:"source" envconfig:"SOURCE"`
	Dir               string        `yaml:"dir" envconfig:"DIR"`
	RawBaseURL        string        `yaml:"raw_base_url" envconfig:"RAW_BASE_URL"`
	ContentsURL       string        `yaml:"contents_url" envconfig:"CONTENTS_URL"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	CacheTTL          time.Duration `yaml:"cache_ttl" envconfig:"CACHE_TTL"`
	CacheSize         int           `yaml:"cache_size" envconfig:"CACHE_SIZE"`
	Preload           bool          `yaml:"preload" envconfig:"PRELOAD"`
}

// StorageConfig selects the progress blob store.
type StorageConfig struct {
	Backend     string `yaml:"backend" envconfig:"BACKEND"`
	Path        string `yaml:"path" envconfig:"STORE_PATH"`
	DSN         string `yaml:"dsn" envconfig:"DSN"`
	RedisAddr   string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPrefix string `yaml:"redis_prefix" envconfig:"REDIS_PREFIX"`
}

// AuthConfig configures identity tokens.
type AuthConfig struct {
	// JWTSecret signs identity tokens. When empty a random secret is
	// generated at startup and tokens do not survive a restart.
	JWTSecret string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`
	Issuer    string        `yaml:"issuer" envconfig:"ISSUER"`
}

// ProgressConfig configures the progress tracker.
type ProgressConfig struct {
	// Timezone is the IANA zone whose calendar defines "today".
	Timezone        string `yaml:"timezone" envconfig:"TIMEZONE"`
	MigrateOnSignIn bool   `yaml:"migrate_on_signin" envconfig:"MIGRATE_ON_SIGNIN"`
}

// Location loads the configured time zone.
func (p ProgressConfig) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(p.Timezone)
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// OTelConfig configures tracing and metrics export.
type OTelConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from defaults, an optional YAML file and
// CW_* environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apierrors.NewConfigError("failed to load config from file", err)
		}
	}

	// Fields without a matching variable keep their current value.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apierrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, apierrors.NewConfigError("config validation failed", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// leave cfg untouched.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	// JSON is the only supported log format
	c.Logging.Format = "json"

	if !slices.Contains([]string{"console", "file", "both"}, c.Logging.Output) {
		c.Logging.Output = "console"
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	switch c.Data.Source {
	case SourceLocal:
		if c.Data.Dir == "" {
			return fmt.Errorf("data dir is required for the local source")
		}
	case SourceRemote, SourceAuto:
	default:
		return fmt.Errorf("invalid data source: %q", c.Data.Source)
	}

	if c.Data.CacheTTL < 0 {
		return fmt.Errorf("data cache ttl must not be negative")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile, StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the %s backend", c.Storage.Backend)
		}
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage dsn is required for the postgres backend")
		}
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %q", c.Storage.Backend)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("jwt secret must be at least 16 bytes")
	}

	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}

	if _, err := c.Progress.Location(); err != nil {
		return fmt.Errorf("invalid progress timezone %q: %w", c.Progress.Timezone, err)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: DefaultShutdownTimeout,
			RequestTimeout:  30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080", "http://localhost:3000"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimitRPS,
				Burst:   DefaultRateLimitBurst,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			WebDir:     "web",
			LogsDir:    "logs",
			ExportsDir: "exports",
		},
		Data: DataConfig{
			Source:            SourceAuto,
			Dir:               "data",
			RawBaseURL:        DefaultRawBaseURL,
			ContentsURL:       DefaultContentsURL,
			FetchTimeout:      DefaultFetchTimeout,
			RequestsPerSecond: 5,
			CacheTTL:          DefaultCacheTTL,
			CacheSize:         DefaultCacheSize,
		},
		Storage: StorageConfig{
			Backend:     StorageFile,
			Path:        "progress",
			RedisPrefix: "companywise:",
		},
		Auth: AuthConfig{
			TokenTTL: DefaultTokenTTL,
			Issuer:   DefaultTokenIssuer,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		OTel: OTelConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
		},
	}
}
