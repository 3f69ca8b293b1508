package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Snapshot SnapshotConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Assembly AssemblyAIConfig
	Groq     GroqConfig
	Report   ReportConfig
	Analysis AnalysisConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
	BodyLimit       string
	// AnalysisRateLimit is requests per second per client on /v1/analysis; 0 disables it
	AnalysisRateLimit int
}

// SnapshotConfig controls the durable JSON snapshots of accumulated tokens
type SnapshotConfig struct {
	Dir             string
	Interval        time.Duration
	MaxRetryElapsed time.Duration
	Parallelism     int
	ReloadOnStartup bool
	FlushOnShutdown bool
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Type            string // "minio" or "s3"
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	UseSSL          bool
	URLExpiry       time.Duration
}

// CacheConfig holds analysis result cache configuration
type CacheConfig struct {
	Driver   string // "memory" or "redis"
	TTL      time.Duration
	Host     string
	Port     string
	Password string
	DB       int
}

// DatabaseConfig holds the report database configuration
type DatabaseConfig struct {
	Enabled     bool
	AutoMigrate bool
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
}

// AssemblyAIConfig holds speech-to-text configuration
type AssemblyAIConfig struct {
	APIKey       string
	BaseURL      string
	LanguageCode string
}

// GroqConfig holds summarization LLM configuration
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// ReportConfig holds the external report endpoint that receives word clouds
type ReportConfig struct {
	WordcloudURL string
	Timeout      time.Duration
}

// AnalysisConfig is read with envconfig using the ANALYSIS_ prefix
type AnalysisConfig struct {
	ModelServerURL  string        `envconfig:"MODEL_SERVER_URL" default:"http://localhost:7780"`
	ModelTimeout    time.Duration `envconfig:"MODEL_TIMEOUT" default:"60s"`
	MinTokenLength  int           `envconfig:"MIN_TOKEN_LENGTH" default:"2"`
	MostCommonK     int           `envconfig:"MOST_COMMON_K" default:"5"`
	WordcloudWidth  int           `envconfig:"WORDCLOUD_WIDTH" default:"800"`
	WordcloudHeight int           `envconfig:"WORDCLOUD_HEIGHT" default:"400"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", "http://localhost:3000"),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
			BodyLimit:       getEnv("BODY_LIMIT", "25M"),

			AnalysisRateLimit: getEnvAsInt("RATE_LIMIT_ANALYSIS", 5),
		},
		Snapshot: SnapshotConfig{
			Dir:             getEnv("SNAPSHOT_DIR", "./data"),
			Interval:        getEnvAsDuration("SNAPSHOT_INTERVAL", "1m"),
			MaxRetryElapsed: getEnvAsDuration("SNAPSHOT_MAX_RETRY_ELAPSED", "30s"),
			Parallelism:     getEnvAsInt("SNAPSHOT_PARALLELISM", 4),
			ReloadOnStartup: getEnvAsBool("SNAPSHOT_RELOAD_ON_STARTUP", true),
			FlushOnShutdown: getEnvAsBool("SNAPSHOT_FLUSH_ON_SHUTDOWN", true),
		},
		Storage: StorageConfig{
			Type:            getEnv("STORAGE_TYPE", "minio"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			Region:          getEnv("STORAGE_REGION", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "focus-group-analyzer"),
			PublicURL:       getEnv("STORAGE_PUBLIC_URL", ""),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			URLExpiry:       getEnvAsDuration("STORAGE_URL_EXPIRY", "168h"),
		},
		Cache: CacheConfig{
			Driver:   getEnv("CACHE_DRIVER", "memory"),
			TTL:      getEnvAsDuration("CACHE_TTL", "30m"),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Enabled:     getEnvAsBool("DB_ENABLED", false),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "focus_group_analyzer"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Assembly: AssemblyAIConfig{
			APIKey:       getEnv("ASSEMBLYAI_API_KEY", ""),
			BaseURL:      getEnv("ASSEMBLYAI_BASE_URL", ""),
			LanguageCode: getEnv("ASSEMBLYAI_LANGUAGE", "ko"),
		},
		Groq: GroqConfig{
			APIKey:  getEnv("GROQ_API_KEY", ""),
			BaseURL: getEnv("GROQ_API_URL", "https://api.groq.com"),
			Model:   getEnv("GROQ_MODEL", "llama-3.1-70b-versatile"),
		},
		Report: ReportConfig{
			WordcloudURL: getEnv("REPORT_WORDCLOUD_URL", ""),
			Timeout:      getEnvAsDuration("REPORT_TIMEOUT", "5s"),
		},
	}

	if err := envconfig.Process("ANALYSIS", &config.Analysis); err != nil {
		return nil, fmt.Errorf("failed to read analysis config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Snapshot.Dir == "" {
		return fmt.Errorf("SNAPSHOT_DIR is required")
	}
	if c.Snapshot.Interval <= 0 {
		return fmt.Errorf("SNAPSHOT_INTERVAL must be positive")
	}
	if c.Snapshot.Parallelism < 1 {
		return fmt.Errorf("SNAPSHOT_PARALLELISM must be at least 1")
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("CACHE_DRIVER must be memory or redis, got %q", c.Cache.Driver)
	}
	if c.Analysis.MinTokenLength < 1 {
		return fmt.Errorf("ANALYSIS_MIN_TOKEN_LENGTH must be at least 1")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Cache.Host, c.Cache.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func getEnvAsSlice(key string, defaultValue string) []string {
	parts := strings.Split(getEnv(key, defaultValue), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
