package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/tokens"
)

// Config holds configuration for the record function
type Config struct {
	// Schema generation
	DescriptorMaxDepth int
	SchemaCacheTTL     time.Duration

	// Rendering
	MaxConcurrentRenders int
	DefaultFieldPath     string
	TokensFieldPath      string

	// Spawned pods
	SpawnImage     string
	SpawnNamespace string
	SpawnCommand   []string

	// Logging settings
	LogLevel string
}

// Defaults used when the environment leaves a setting unset or invalid
const (
	DefaultSchemaCacheTTL       = 5 * time.Minute
	DefaultMaxConcurrentRenders = 4
	DefaultFieldPath            = "spec.parameters"
	DefaultTokensFieldPath      = "spec.tokens"
)

// New creates a new configuration from the environment
func New() *Config {
	return &Config{
		DescriptorMaxDepth:   getEnvPositiveInt("DESCRIPTOR_MAX_DEPTH", descriptor.DefaultMaxDepth),
		SchemaCacheTTL:       getEnvDuration("SCHEMA_CACHE_TTL", DefaultSchemaCacheTTL),
		MaxConcurrentRenders: getEnvPositiveInt("MAX_CONCURRENT_RENDERS", DefaultMaxConcurrentRenders),
		DefaultFieldPath:     getEnv("DEFAULT_FIELD_PATH", DefaultFieldPath),
		TokensFieldPath:      getEnv("TOKENS_FIELD_PATH", DefaultTokensFieldPath),
		SpawnImage:           getEnv("SPAWN_IMAGE", tokens.DefaultImage),
		SpawnNamespace:       getEnv("SPAWN_NAMESPACE", tokens.DefaultNamespace),
		SpawnCommand:         getEnvList("SPAWN_COMMAND", tokens.DefaultCommand),
		LogLevel:             getEnvLogLevel("LOG_LEVEL", "info"),
	}
}

// Debug reports whether debug logging was requested
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// SpawnTemplate returns the pod template spawned pods start from
func (c *Config) SpawnTemplate() tokens.Template {
	return tokens.Template{
		Image:     c.SpawnImage,
		Command:   append([]string(nil), c.SpawnCommand...),
		Namespace: c.SpawnNamespace,
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvPositiveInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated list
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return append([]string(nil), defaultValue...)
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultValue...)
	}
	return out
}

func getEnvLogLevel(key, defaultValue string) string {
	switch level := strings.ToLower(os.Getenv(key)); level {
	case "debug", "info":
		return level
	}
	return defaultValue
}
