package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers       []string
	KafkaGroupID       string
	ReferralEventTopic string
	ReferralDLQTopic   string

	// Risk scoring
	RiskWeightsPath      string
	DiagnosisCatalogPath string

	// Provider matching
	MatchWeightsPath      string
	MatchIncludeUnlocated bool
	DefaultRankLimit      int

	// Provider directory cache
	ProviderCacheTTL time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "carebridge"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "carebridge123"),
		PostgresDB:       getEnv("POSTGRES_DB", "carebridge"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "carebridge-platform"),
		ReferralEventTopic: getEnv("REFERRAL_EVENT_TOPIC", "referral-events"),
		ReferralDLQTopic:   getEnv("REFERRAL_DLQ_TOPIC", ""),

		RiskWeightsPath:      getEnv("RISK_WEIGHTS_PATH", ""),
		DiagnosisCatalogPath: getEnv("DIAGNOSIS_CATALOG_PATH", ""),

		MatchWeightsPath:      getEnv("MATCH_WEIGHTS_PATH", ""),
		MatchIncludeUnlocated: getBoolEnv("MATCH_INCLUDE_UNLOCATED", true),
		DefaultRankLimit:      getIntEnv("DEFAULT_RANK_LIMIT", 10),

		ProviderCacheTTL: getDuration("PROVIDER_CACHE_TTL", 5*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
