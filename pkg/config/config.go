// Copyright 2025 Certen Protocol

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the coordinator service.
type Config struct {
	// Server Configuration
	MetricsAddr string
	HealthAddr  string
	LogLevel    string
	DataDir     string

	// Database Configuration (individual fields for pkg/database/client.go)
	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Embedded KV store (pkg/kvdb, backs pkg/tasks.Store)
	KVDataDir string

	// Content store (pkg/contentstore)
	ContentStoreEndpoint string

	// Reasoning tier endpoints (pkg/reasoning)
	Local7BEndpoint  string
	Local13BEndpoint string
	Local70BEndpoint string
	APIEndpoint      string
	APIKey           string
	MaxInputTokens   int

	// Semantic cache (pkg/semcache)
	LocalCacheSize       int
	SimilarityThreshold  float64
	DistributedCacheTTL  time.Duration

	// Firestore Configuration (pkg/firestore, semantic cache distributed layer)
	FirestoreEnabled        bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// ZK proof layer (pkg/zkproof)
	ProofCacheSize int
	ProvingKeyPath string

	// Economy parameters (pkg/economy)
	StakeFloor            uint64
	StakeCeiling          uint64
	HighPerfMultiplierBps int
	LowPerfPenaltyBps     int
	BaseRewardRateBps     int

	// Optional static-config overrides layered over the above (proof-policy
	// and routing-matrix overrides), loaded from a YAML file if set.
	OverridesPath string
}

// Overrides is the optional YAML-file layer for settings operators tune
// without redeploying: proof-policy level per criticality and routing
// tier per (workflow, complexity bucket). Either map may be partial or
// absent. LoadOverrides only parses the file; nothing in this module
// applies the parsed maps to pkg/zkproof's or pkg/reasoning's built-in
// tables, so those defaults stay in effect.
type Overrides struct {
	ProofPolicy    map[string]string `yaml:"proof_policy"`
	RoutingMatrix  map[string][4]string `yaml:"routing_matrix"`
}

// LoadOverrides reads an optional YAML overrides file. A missing path is
// not an error; it simply yields an empty Overrides.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{}, nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Overrides{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read overrides file %q: %w", path, err)
	}
	var o Overrides
	if err := yaml.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("parse overrides file %q: %w", path, err)
	}
	return &o, nil
}

// Load reads configuration from environment variables. Required
// production settings have no defaults; call Validate() after Load()
// before starting the service.
func Load() (*Config, error) {
	cfg := &Config{
		MetricsAddr: getEnv("METRICS_ADDR", "0.0.0.0:9090"),
		HealthAddr:  getEnv("HEALTH_ADDR", "0.0.0.0:8081"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvInt("DB_PORT", 5432),
		DBUser:            getEnv("DB_USER", "coordinator"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "coordinator"),
		DBSSLMode:         getEnv("DB_SSL_MODE", "require"),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),

		KVDataDir: getEnv("KV_DATA_DIR", "./data/kv"),

		ContentStoreEndpoint: getEnv("CONTENT_STORE_ENDPOINT", "http://127.0.0.1:5001"),

		Local7BEndpoint:  getEnv("REASONING_7B_ENDPOINT", "http://127.0.0.1:11434"),
		Local13BEndpoint: getEnv("REASONING_13B_ENDPOINT", "http://127.0.0.1:11434"),
		Local70BEndpoint: getEnv("REASONING_70B_ENDPOINT", "http://127.0.0.1:11434"),
		APIEndpoint:      getEnv("REASONING_API_ENDPOINT", ""),
		APIKey:           getEnv("REASONING_API_KEY", ""),
		MaxInputTokens:   getEnvInt("REASONING_MAX_INPUT_TOKENS", 4096),

		LocalCacheSize:      getEnvInt("CACHE_LOCAL_SIZE", 1000),
		SimilarityThreshold: getEnvFloat("CACHE_SIMILARITY_THRESHOLD", 0.95),
		DistributedCacheTTL: getEnvDuration("CACHE_DISTRIBUTED_TTL", 24*time.Hour),

		FirestoreEnabled:        getEnvBool("FIRESTORE_ENABLED", false),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		ProofCacheSize: getEnvInt("PROOF_CACHE_SIZE", 1000),
		ProvingKeyPath: getEnv("PROVING_KEY_PATH", ""),

		StakeFloor:            uint64(getEnvInt64("STAKE_FLOOR", 1000)),
		StakeCeiling:          uint64(getEnvInt64("STAKE_CEILING", 100000)),
		HighPerfMultiplierBps: getEnvInt("HIGH_PERF_MULTIPLIER_BPS", 12000),
		LowPerfPenaltyBps:     getEnvInt("LOW_PERF_PENALTY_BPS", 8000),
		BaseRewardRateBps:     getEnvInt("BASE_REWARD_RATE_BPS", 10000),

		OverridesPath: getEnv("OVERRIDES_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that all required production configuration is present.
// This must be called after Load() before starting the service.
func (c *Config) Validate() error {
	var errs []string

	if c.DBPassword == "" {
		errs = append(errs, "DB_PASSWORD is required but not set")
	}
	if strings.EqualFold(c.DBSSLMode, "disable") {
		errs = append(errs, "DB_SSL_MODE must not be 'disable' for production security")
	}
	if c.FirestoreEnabled && c.FirebaseProjectID == "" {
		errs = append(errs, "FIREBASE_PROJECT_ID is required when FIRESTORE_ENABLED is true")
	}
	if c.StakeCeiling < c.StakeFloor {
		errs = append(errs, "STAKE_CEILING must be >= STAKE_FLOOR")
	}
	if c.APIEndpoint == "" {
		errs = append(errs, "REASONING_API_ENDPOINT is required (the API tier backstops every routing row)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateForDevelopment performs relaxed validation suitable for local
// development. WARNING: do not use this in production — use Validate().
func (c *Config) ValidateForDevelopment() error {
	var errs []string

	if c.DataDir == "" {
		errs = append(errs, "DATA_DIR is required")
	}
	if c.StakeCeiling < c.StakeFloor {
		errs = append(errs, "STAKE_CEILING must be >= STAKE_FLOOR")
	}

	if len(errs) > 0 {
		return fmt.Errorf("development configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Helper functions for environment variable parsing.

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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
