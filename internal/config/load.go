package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. MEASURE_DATABASE_URL.
const EnvPrefix = "MEASURE"

// placeholderVisionURLs are addresses that mean "no real vision backend".
var placeholderVisionURLs = []string{
	"http://localhost:8000",
	"http://127.0.0.1:8000",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory is loaded first when present.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// Missing .env is the normal case in deployed environments
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// IsSimulated reports whether the vision URL points at no real backend.
func (c VisionConfig) IsSimulated() bool {
	url := strings.TrimRight(strings.TrimSpace(c.URL), "/")
	if url == "" {
		return true
	}
	for _, placeholder := range placeholderVisionURLs {
		if url == placeholder {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("vision.url", "")
	v.SetDefault("vision.timeout_seconds", 60)

	v.SetDefault("storage.bucket", "photos")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("queue.redis_addr", "")
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_key", "measure:retries")
	v.SetDefault("queue.poll_interval_seconds", 1)

	v.SetDefault("notify.brokers", []string{})
	v.SetDefault("notify.topic", "measure.notifications")

	v.SetDefault("jobs.worker_count", 2)
	v.SetDefault("jobs.queue_size", 100)
	v.SetDefault("jobs.max_attempts", 3)
	v.SetDefault("jobs.retry_delay_seconds", 60)
	v.SetDefault("jobs.job_timeout_seconds", 120)
	v.SetDefault("jobs.stuck_job_age_minutes", 30)
	v.SetDefault("jobs.stuck_check_minutes", 5)
	v.SetDefault("jobs.guest_max_files", 10)
	v.SetDefault("jobs.guest_max_file_mib", 10)
}

// bindEnvs registers keys that have no default so AutomaticEnv can see them
// during Unmarshal.
func bindEnvs(v *viper.Viper) {
	for _, key := range []string{
		"database.url",
		"auth.jwt_secret",
		"storage.endpoint",
		"storage.access_key",
		"storage.secret_key",
	} {
		// BindEnv only fails when called without a key
		_ = v.BindEnv(key)
	}
}
