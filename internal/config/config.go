package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, shared by the agent and
// server binaries. Each binary only reads the sections it needs.
type Config struct {
	// Log configuration
	LogLevel string

	// Agent configuration
	Agent AgentConfig

	// GeoIP configuration (agent-side enrichment)
	GeoIP GeoIPConfig

	// Memory Store configuration
	Store StoreConfig

	// Server (REST + dashboard) configuration
	Server ServerConfig

	// Transport configuration (agent<->server websocket)
	Transport TransportConfig
}

// AgentConfig contains agent discovery and pipeline settings
type AgentConfig struct {
	ServerName           string
	LogPaths             []string // empty triggers auto-discovery
	AutoDiscover         bool
	TailerPollInterval   time.Duration
	StatsEveryNLines     int
	UrgencyThreshold     int
	BackoffBaseDelay     time.Duration
	BackoffMaxDelay      time.Duration
	MaxReconnectAttempts int // negative = unlimited
}

// GeoIPConfig contains GeoIP database paths
type GeoIPConfig struct {
	CityDBPath    string
	CountryDBPath string
	ASNDBPath     string
	Enabled       bool
}

// StoreConfig contains Memory Store bounds
type StoreConfig struct {
	MaxErrors        int
	PatternTableSize int // 0 derives MaxErrors * 4
	TrendWindow      time.Duration
}

// ServerConfig contains web server settings
type ServerConfig struct {
	Host          string
	DashboardPort int // REST port; push transport listens on Port+1
	Production    bool
}

// TransportConfig contains agent<->server websocket listener settings
type TransportConfig struct {
	Host string
	Port int
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Agent: AgentConfig{
			ServerName:           getEnv("AGENT_SERVER_NAME", ""),
			AutoDiscover:         getEnvAsBool("LOG_AUTO_DISCOVER", true),
			TailerPollInterval:   getEnvAsDuration("TAILER_POLL_INTERVAL", 500*time.Millisecond),
			StatsEveryNLines:     getEnvAsInt("STATS_EVERY_N_LINES", 10),
			UrgencyThreshold:     getEnvAsInt("URGENCY_THRESHOLD", 5),
			BackoffBaseDelay:     getEnvAsDuration("BACKOFF_BASE_DELAY", time.Second),
			BackoffMaxDelay:      getEnvAsDuration("BACKOFF_MAX_DELAY", 60*time.Second),
			MaxReconnectAttempts: getEnvAsInt("MAX_RECONNECT_ATTEMPTS", -1),
		},
		GeoIP: GeoIPConfig{
			CityDBPath:    getEnv("GEOIP_CITY_DB", "geoip/GeoLite2-City.mmdb"),
			CountryDBPath: getEnv("GEOIP_COUNTRY_DB", "geoip/GeoLite2-Country.mmdb"),
			ASNDBPath:     getEnv("GEOIP_ASN_DB", "geoip/GeoLite2-ASN.mmdb"),
			Enabled:       getEnvAsBool("GEOIP_ENABLED", false),
		},
		Store: StoreConfig{
			MaxErrors:        getEnvAsInt("STORE_MAX_ERRORS", 1000),
			PatternTableSize: getEnvAsInt("STORE_PATTERN_TABLE_SIZE", 0),
			TrendWindow:      getEnvAsDuration("STORE_TREND_WINDOW", 60*time.Minute),
		},
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "0.0.0.0"),
			DashboardPort: getEnvAsInt("DASHBOARD_PORT", 3001),
			Production:    getEnvAsBool("SERVER_PRODUCTION", false),
		},
		Transport: TransportConfig{
			Host: getEnv("TRANSPORT_HOST", "0.0.0.0"),
			Port: getEnvAsInt("AGENT_TRANSPORT_PORT", 8080),
		},
	}

	if cfg.Store.PatternTableSize == 0 {
		cfg.Store.PatternTableSize = cfg.Store.MaxErrors * 4
	}

	return cfg, nil
}

// Helper functions to read environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
