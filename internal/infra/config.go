package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	VideoGenBaseURL string
	VideoGenAPIKey  string
	VideoGenModel   string

	ProviderTimeout    time.Duration
	ProviderMaxRetries int
	ProviderRetryBase  time.Duration
	ProviderRetryMax   time.Duration

	BatchConcurrency  int
	BatchPollInterval time.Duration
	BatchJobTimeout   time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		VideoGenBaseURL: getEnv("VIDEOGEN_BASE_URL", "https://api.videogen.example.com/v1"),
		VideoGenAPIKey:  os.Getenv("VIDEOGEN_API_KEY"),
		VideoGenModel:   getEnv("VIDEOGEN_MODEL", "videogen-turbo"),

		ProviderTimeout:    time.Second * time.Duration(getEnvInt("VIDEOGEN_TIMEOUT_SECONDS", 45)),
		ProviderMaxRetries: getEnvInt("VIDEOGEN_MAX_RETRIES", 3),
		ProviderRetryBase:  time.Second * time.Duration(getEnvInt("VIDEOGEN_RETRY_BASE_SECONDS", 1)),
		ProviderRetryMax:   time.Second * time.Duration(getEnvInt("VIDEOGEN_RETRY_MAX_SECONDS", 30)),

		BatchConcurrency:  getEnvInt("BATCH_CONCURRENCY", 5),
		BatchPollInterval: time.Second * time.Duration(getEnvInt("BATCH_POLL_INTERVAL_SECONDS", 2)),
		BatchJobTimeout:   time.Minute * time.Duration(getEnvInt("BATCH_JOB_TIMEOUT_MINUTES", 10)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      getEnvList("CORS_ORIGINS"),
	}

	if cfg.AppEnv != "development" && cfg.VideoGenAPIKey == "" {
		return nil, fmt.Errorf("VIDEOGEN_API_KEY is required")
	}
	if cfg.BatchConcurrency < 1 {
		return nil, fmt.Errorf("BATCH_CONCURRENCY must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
