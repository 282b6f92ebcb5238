package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Log        LogConfig
	Extraction ExtractionConfig
	Registry   RegistryConfig
	CORS       CORSConfig
	Queue      QueueConfig
	Upload     UploadConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ExtractionConfig holds AI extraction service settings.
// APIKeys supports a single credential or a comma-delimited pool.
type ExtractionConfig struct {
	APIKeys         string `mapstructure:"api_keys"`
	Model           string `mapstructure:"model"`
	MaxRetries      int    `mapstructure:"max_retries"`
	TimeoutSecs     int    `mapstructure:"timeout_secs"`
	BackoffBaseSecs int    `mapstructure:"backoff_base_secs"`
}

// Keys returns the configured credential pool in declaration order.
func (e *ExtractionConfig) Keys() []string {
	var keys []string
	for _, k := range strings.Split(e.APIKeys, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// RegistryConfig holds settings for the CAPTCHA-gated tax registry microservice.
type RegistryConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	RetryCount  int    `mapstructure:"retry_count"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// QueueConfig holds processing queue worker settings.
type QueueConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxRetries       int `mapstructure:"max_retries"`
	Concurrency      int `mapstructure:"concurrency"`
	RetryBaseSecs    int `mapstructure:"retry_base_secs"`
}

// UploadConfig holds upload validation settings.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
	MaxBatchFiles int   `mapstructure:"max_batch_files"`
}

// Load reads configuration from environment variables with the LEDGERLENS_ prefix.
// A local .env file is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LEDGERLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "ledgerlens")
	v.SetDefault("db.password", "ledgerlens_secret")
	v.SetDefault("db.name", "ledgerlens_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("s3.bucket", "ledgerlens-uploads")
	v.SetDefault("s3.endpoint", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Extraction defaults
	v.SetDefault("extraction.api_keys", "")
	v.SetDefault("extraction.model", "gemini-2.0-flash")
	v.SetDefault("extraction.max_retries", 2)
	v.SetDefault("extraction.timeout_secs", 120)
	v.SetDefault("extraction.backoff_base_secs", 1)

	// Registry defaults
	v.SetDefault("registry.base_url", "http://127.0.0.1:5001")
	v.SetDefault("registry.timeout_secs", 30)
	v.SetDefault("registry.retry_count", 1)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.concurrency", 5)
	v.SetDefault("queue.retry_base_secs", 60)

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 10)
	v.SetDefault("upload.max_batch_files", 20)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "LEDGERLENS_SERVER_PORT",
		"server.read_timeout":          "LEDGERLENS_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "LEDGERLENS_SERVER_WRITE_TIMEOUT",
		"server.environment":           "LEDGERLENS_SERVER_ENVIRONMENT",
		"db.host":                      "LEDGERLENS_DB_HOST",
		"db.port":                      "LEDGERLENS_DB_PORT",
		"db.user":                      "LEDGERLENS_DB_USER",
		"db.password":                  "LEDGERLENS_DB_PASSWORD",
		"db.name":                      "LEDGERLENS_DB_NAME",
		"db.sslmode":                   "LEDGERLENS_DB_SSLMODE",
		"db.max_open":                  "LEDGERLENS_DB_MAX_OPEN",
		"db.max_idle":                  "LEDGERLENS_DB_MAX_IDLE",
		"s3.region":                    "LEDGERLENS_S3_REGION",
		"s3.bucket":                    "LEDGERLENS_S3_BUCKET",
		"s3.endpoint":                  "LEDGERLENS_S3_ENDPOINT",
		"s3.access_key":                "LEDGERLENS_S3_ACCESS_KEY",
		"s3.secret_key":                "LEDGERLENS_S3_SECRET_KEY",
		"log.level":                    "LEDGERLENS_LOG_LEVEL",
		"log.format":                   "LEDGERLENS_LOG_FORMAT",
		"extraction.api_keys":          "LEDGERLENS_EXTRACTION_API_KEYS",
		"extraction.model":             "LEDGERLENS_EXTRACTION_MODEL",
		"extraction.max_retries":       "LEDGERLENS_EXTRACTION_MAX_RETRIES",
		"extraction.timeout_secs":      "LEDGERLENS_EXTRACTION_TIMEOUT_SECS",
		"extraction.backoff_base_secs": "LEDGERLENS_EXTRACTION_BACKOFF_BASE_SECS",
		"registry.base_url":            "LEDGERLENS_REGISTRY_BASE_URL",
		"registry.timeout_secs":        "LEDGERLENS_REGISTRY_TIMEOUT_SECS",
		"registry.retry_count":         "LEDGERLENS_REGISTRY_RETRY_COUNT",
		"cors.allowed_origins":         "LEDGERLENS_CORS_ALLOWED_ORIGINS",
		"queue.poll_interval_secs":     "LEDGERLENS_QUEUE_POLL_INTERVAL_SECS",
		"queue.max_retries":            "LEDGERLENS_QUEUE_MAX_RETRIES",
		"queue.concurrency":            "LEDGERLENS_QUEUE_CONCURRENCY",
		"queue.retry_base_secs":        "LEDGERLENS_QUEUE_RETRY_BASE_SECS",
		"upload.max_file_size_mb":      "LEDGERLENS_UPLOAD_MAX_FILE_SIZE_MB",
		"upload.max_batch_files":       "LEDGERLENS_UPLOAD_MAX_BATCH_FILES",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if LEDGERLENS_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("LEDGERLENS_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Extraction = ExtractionConfig{
		APIKeys:         v.GetString("extraction.api_keys"),
		Model:           v.GetString("extraction.model"),
		MaxRetries:      v.GetInt("extraction.max_retries"),
		TimeoutSecs:     v.GetInt("extraction.timeout_secs"),
		BackoffBaseSecs: v.GetInt("extraction.backoff_base_secs"),
	}
	cfg.Registry = RegistryConfig{
		BaseURL:     strings.TrimRight(v.GetString("registry.base_url"), "/"),
		TimeoutSecs: v.GetInt("registry.timeout_secs"),
		RetryCount:  v.GetInt("registry.retry_count"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Queue = QueueConfig{
		PollIntervalSecs: v.GetInt("queue.poll_interval_secs"),
		MaxRetries:       v.GetInt("queue.max_retries"),
		Concurrency:      v.GetInt("queue.concurrency"),
		RetryBaseSecs:    v.GetInt("queue.retry_base_secs"),
	}

	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
		MaxBatchFiles: v.GetInt("upload.max_batch_files"),
	}

	return cfg, nil
}
