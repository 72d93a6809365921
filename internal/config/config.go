// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Metrolink engine and API.
type Config struct {
	// Upstream feed
	FeedURL           string
	FeedSubscriptionKey string
	FeedTimeout       time.Duration

	// Static graph
	GraphDatabasePath string

	// Update cycle
	PollingEnabled    bool
	TickInterval      time.Duration
	DepartedRetention time.Duration

	// Learned parameters
	DwellSampleCap   int
	TransitSampleCap int

	// API
	HTTPAddr    string
	CORSOrigin  string
}

// Load reads configuration from environment variables with sensible
// defaults, after optionally sourcing local .env files (base first,
// then .env.local, which overrides it for local development).
func Load() *Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	return &Config{
		FeedURL:             getEnv("METROLINK_FEED_URL", "https://api.tfgm.com/odata/Metrolinks"),
		FeedSubscriptionKey: getEnv("METROLINK_SUBSCRIPTION_KEY", ""),
		FeedTimeout:         getEnvDuration("METROLINK_FEED_TIMEOUT_SECONDS", 5) * time.Second,

		GraphDatabasePath: getEnv("METROLINK_GRAPH_DB", "/data/graph.db"),

		PollingEnabled:    getEnvBool("POLLING_ENABLED", true),
		TickInterval:      getEnvDuration("METROLINK_TICK_INTERVAL_SECONDS", 1) * time.Second,
		DepartedRetention: getEnvDuration("METROLINK_DEPARTED_RETENTION_SECONDS", 120) * time.Second,

		DwellSampleCap:   getEnvInt("METROLINK_K_D", 32),
		TransitSampleCap: getEnvInt("METROLINK_K_T", 32),

		HTTPAddr:   getEnv("METROLINK_HTTP_ADDR", ":8080"),
		CORSOrigin: getEnv("METROLINK_CORS_ORIGIN", "*"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds))
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
