package config

import (
	"fmt"
	"strconv"
)

// DownstreamConfig configures the downstream mock service binary.
type DownstreamConfig struct {
	Port         string
	RedisURL     string
	FailureRate  float64
	ForceOutcome string // "", "success", "500", "429", "timeout" — deterministic override for tests
}

// LoadDownstream reads configuration for the downstream mock service.
func LoadDownstream() (*DownstreamConfig, error) {
	redisURL := getEnv("REDIS_URL", "")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return &DownstreamConfig{
		Port:         getEnv("PORT", "9090"),
		RedisURL:     redisURL,
		FailureRate:  getEnvFloat("DOWNSTREAM_FAILURE_RATE", 0.20),
		ForceOutcome: getEnv("DOWNSTREAM_FORCE_OUTCOME", ""),
	}, nil
}

func getEnvFloat(key string, fallback float64) float64 {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return f
}
