package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config application settings
type Config struct {
	Port string `yaml:"port"`

	// BOLD service
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst int           `yaml:"rate_burst"`

	// payload cache
	DatabaseURL string        `yaml:"database_url"`
	CacheDir    string        `yaml:"cache_dir"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`

	// trace archives
	ArchiveBackend string `yaml:"archive_backend"` // local | s3 | minio, empty disables
	ArchiveDir     string `yaml:"archive_dir"`
	ArchiveBucket  string `yaml:"archive_bucket"`
	ArchivePrefix  string `yaml:"archive_prefix"`
	AWSRegion      string `yaml:"aws_region"`
	S3Endpoint     string `yaml:"s3_endpoint"`
	MinIOEndpoint  string `yaml:"minio_endpoint"`
	MinIOAccessKey string `yaml:"minio_access_key"`
	MinIOSecretKey string `yaml:"minio_secret_key"`
	MinIOUseSSL    bool   `yaml:"minio_use_ssl"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text | json
}

// Load reads configuration from the environment
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		BaseURL:   getEnv("BOLD_BASE_URL", "http://www.boldsystems.org/index.php"),
		Timeout:   getEnvDuration("BOLD_TIMEOUT", 60*time.Second),
		RateLimit: getEnvFloat("BOLD_RATE_LIMIT", 2),
		RateBurst: getEnvInt("BOLD_RATE_BURST", 4),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		CacheDir:    getEnv("CACHE_DIR", ""),
		CacheTTL:    getEnvDuration("CACHE_TTL", 24*time.Hour),

		ArchiveBackend: getEnv("ARCHIVE_BACKEND", ""),
		ArchiveDir:     getEnv("ARCHIVE_DIR", "./archives"),
		ArchiveBucket:  getEnv("ARCHIVE_BUCKET", ""),
		ArchivePrefix:  getEnv("ARCHIVE_PREFIX", "bold"),
		AWSRegion:      getEnv("AWS_REGION", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// LoadFile loads the environment and then overlays the YAML file at path.
// Keys absent from the file keep their environment value. An empty path
// falls back to BOLD_CONFIG.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	if path == "" {
		path = os.Getenv("BOLD_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the archive settings are complete for the chosen backend
func (c *Config) Validate() error {
	switch c.ArchiveBackend {
	case "", "local":
	case "s3":
		if c.ArchiveBucket == "" {
			return fmt.Errorf("ARCHIVE_BUCKET is required for the s3 archive backend")
		}
	case "minio":
		if c.ArchiveBucket == "" || c.MinIOEndpoint == "" {
			return fmt.Errorf("ARCHIVE_BUCKET and MINIO_ENDPOINT are required for the minio archive backend")
		}
	default:
		return fmt.Errorf("unknown archive backend %q", c.ArchiveBackend)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}
