package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service configuration, loaded from the environment.
type Config struct {
	Host            string
	Port            string
	RequestTimeout  time.Duration
	AnalysisTimeout time.Duration
	FFmpegBin       string
	AubioBin        string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// LoadFromEnv reads the configuration from environment variables.
// ESSENTIA_PORT keeps its historical name for compatibility with
// existing deployments.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:            getEnvOrDefault("HOST", "0.0.0.0"),
		Port:            getEnvOrDefault("ESSENTIA_PORT", "8080"),
		RequestTimeout:  parseDurationOrDefault("REQUEST_TIMEOUT", 120*time.Second),
		AnalysisTimeout: parseDurationOrDefault("ANALYSIS_TIMEOUT", 90*time.Second),
		FFmpegBin:       getEnvOrDefault("FFMPEG_BIN", "ffmpeg"),
		AubioBin:        getEnvOrDefault("AUBIO_BIN", "aubio"),
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid ESSENTIA_PORT: %q", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 || cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, analysis=%s)",
			cfg.RequestTimeout, cfg.AnalysisTimeout)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}
