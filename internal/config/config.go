package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Jobs     JobsConfig     `mapstructure:"jobs"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains the settings used to issue and validate owner access tokens.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// VisionConfig configures the external marker detection service.
// An empty URL, or one of the placeholder addresses, switches the
// pipeline into simulation mode.
type VisionConfig struct {
	URL            string `mapstructure:"url"             validate:"omitempty,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=1,lte=300"`
}

// StorageConfig configures the S3-compatible object storage holding photo bytes.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"   validate:"required"`
	AccessKey string `mapstructure:"access_key" validate:"required"`
	SecretKey string `mapstructure:"secret_key" validate:"required"`
	Bucket    string `mapstructure:"bucket"     validate:"required"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// QueueConfig configures the delayed retry scheduler.
// When RedisAddr is empty an in-process scheduler is used.
type QueueConfig struct {
	RedisAddr           string `mapstructure:"redis_addr"`
	RedisPassword       string `mapstructure:"redis_password"`
	RedisKey            string `mapstructure:"redis_key"             validate:"required"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds" validate:"gte=1"`
}

// NotifyConfig configures delivery of notification log entries.
// When Brokers is empty notifications are only written to the log.
type NotifyConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"   validate:"required"`
}

// JobsConfig configures the background photo processing workers.
type JobsConfig struct {
	WorkerCount         int `mapstructure:"worker_count"          validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size"            validate:"required,gt=0"`
	MaxAttempts         int `mapstructure:"max_attempts"          validate:"required,gt=0"`
	RetryDelaySeconds   int `mapstructure:"retry_delay_seconds"   validate:"gte=0"`
	JobTimeoutSeconds   int `mapstructure:"job_timeout_seconds"   validate:"required,gt=0"`
	StuckJobAgeMinutes  int `mapstructure:"stuck_job_age_minutes" validate:"required,gt=0"`
	StuckCheckMinutes   int `mapstructure:"stuck_check_minutes"   validate:"required,gt=0"`
	GuestMaxFiles       int `mapstructure:"guest_max_files"       validate:"required,gt=0"`
	GuestMaxFileSizeMiB int `mapstructure:"guest_max_file_mib"    validate:"required,gt=0"`
}
