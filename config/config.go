package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cy119ua/DiscordBot-LS-BP-sub000/database"
)

// Store backends
const (
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
	StoreBackendMemory   = "memory"
)

// Audit publishers
const (
	AuditPublisherNATS = "nats"
	AuditPublisherBus  = "bus"
	AuditPublisherNone = "none"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Store configuration
	StoreBackend string // postgres, redis or memory
	RedisAddr    string
	RedisDB      int

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated)

	// Audit sink for committed history entries
	AuditPublisher string // nats, bus or none

	// DefaultScope is the settings scope used when a caller does not name one
	DefaultScope string

	// Logging
	LogLevel string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelExporterType         string // console, otlp or none
	OTelOTLPEndpoint         string
	OTelServiceName          string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// Store
		StoreBackend: strings.ToLower(getEnvWithDefault("STORE_BACKEND", StoreBackendPostgres)),
		RedisAddr:    getEnvWithDefault("REDIS_ADDR", "redis:6379"),

		// NATS
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		AuditPublisher: strings.ToLower(getEnvWithDefault("AUDIT_PUBLISHER", AuditPublisherNATS)),
		DefaultScope:   getEnvWithDefault("DEFAULT_SCOPE", "default"),
		LogLevel:       getEnvWithDefault("LOG_LEVEL", "info"),

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "none"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "progression-ledger"),
		OTelExportIntervalMillis: 60000,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		parsed, err := strconv.Atoi(redisDB)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
		}
		config.RedisDB = parsed
	}
	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MILLIS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	switch config.StoreBackend {
	case StoreBackendPostgres, StoreBackendRedis, StoreBackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", config.StoreBackend)
	}

	switch config.AuditPublisher {
	case AuditPublisherNATS, AuditPublisherBus, AuditPublisherNone:
	default:
		return nil, fmt.Errorf("unknown AUDIT_PUBLISHER %q", config.AuditPublisher)
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.StoreBackend == StoreBackendPostgres && config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		StoreBackend:             StoreBackendMemory,
		AuditPublisher:           AuditPublisherNone,
		DefaultScope:             "default",
		LogLevel:                 "debug",
		OTelExporterType:         "none",
		OTelServiceName:          "progression-ledger-test",
		OTelExportIntervalMillis: 60000,
		Environment:              "test",
	}
}
