package config

import "time"

// Application constants
const (
	AppName    = "companywise"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable read by Load.
	EnvPrefix = "CW"

	// ConfigFileEnv names an explicit YAML config file.
	ConfigFileEnv = "CW_CONFIG_FILE"
)

// Default values shared by Default and the validators.
const (
	DefaultPort            = 8080
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRateLimitRPS   = 100
	DefaultRateLimitBurst = 50

	DefaultFetchTimeout = 15 * time.Second
	DefaultCacheTTL     = 15 * time.Minute
	DefaultCacheSize    = 256

	DefaultTokenTTL    = 7 * 24 * time.Hour
	DefaultTokenIssuer = "companywise"

	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second
)

// Upstream dataset locations.
const (
	DefaultRawBaseURL  = "https://raw.githubusercontent.com/jitendra-789/leetcode-company-wise-problems/main"
	DefaultContentsURL = "https://api.github.com/repos/jitendra-789/leetcode-company-wise-problems/contents"
)

// Storage backends accepted by StorageConfig.Backend.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Data source modes accepted by DataConfig.Source.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
	SourceAuto   = "auto"
)

// API paths
const (
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
