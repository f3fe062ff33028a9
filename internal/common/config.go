package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Jobs      JobsConfig
	Extract   ExtractConfig
	Database  DatabaseConfig
	Artifacts ArtifactsConfig
	Verify    VerifyConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// JobsConfig holds worker pool and job store configuration.
type JobsConfig struct {
	Workers         int
	QueueSize       int
	JobTimeout      time.Duration // hard per-job wall-clock ceiling
	Retention       time.Duration // how long terminal jobs stay queryable
	CleanupInterval time.Duration
}

// ExtractConfig holds extraction chain configuration.
type ExtractConfig struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	BatchSize     int // pages rasterized+OCR'd per batch, default 2
	MaxPages      int // 0 = no limit
}

// DatabaseConfig selects and configures the results store.
type DatabaseConfig struct {
	Driver           string // "sqlite" (default) | "postgres"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ArtifactsConfig configures the optional object store for final text and
// report artifacts.
type ArtifactsConfig struct {
	Endpoint  string // empty -> artifacts disabled
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// VerifyConfig configures the optional top-K finding verification capability.
type VerifyConfig struct {
	APIKey  string // empty -> verification disabled
	Model   string
	TopK    int
	Timeout time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Jobs: JobsConfig{
			Workers:         getEnvAsInt("JOB_WORKERS", 2),
			QueueSize:       getEnvAsInt("JOB_QUEUE_SIZE", 32),
			JobTimeout:      getEnvAsDuration("JOB_TIMEOUT", 600*time.Second),
			Retention:       getEnvAsDuration("JOB_RETENTION", 2*time.Hour),
			CleanupInterval: getEnvAsDuration("JOB_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Extract: ExtractConfig{
			Pdftotext:     getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Pdfinfo:       getEnv("PDFINFO_BIN", "pdfinfo"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			BatchSize:     getEnvAsInt("OCR_BATCH_SIZE", 2),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              getEnv("DB_URL", "file:offerwise.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Artifacts: ArtifactsConfig{
			Endpoint:  getEnv("ARTIFACTS_ENDPOINT", ""),
			AccessKey: getEnv("ARTIFACTS_ACCESS_KEY", ""),
			SecretKey: getEnv("ARTIFACTS_SECRET_KEY", ""),
			Bucket:    getEnv("ARTIFACTS_BUCKET", "offerwise-artifacts"),
			UseSSL:    getEnvAsBool("ARTIFACTS_USE_SSL", true),
		},
		Verify: VerifyConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			TopK:    getEnvAsInt("VERIFY_TOP_K", 2),
			Timeout: getEnvAsDuration("VERIFY_TIMEOUT", 30*time.Second),
		},
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Jobs.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "JOB_WORKERS must be positive", ErrInvalidInput)
	}
	if c.Jobs.JobTimeout <= 0 {
		return NewAppError("CONFIG_ERROR", "JOB_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.Extract.BatchSize <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_BATCH_SIZE must be positive", ErrInvalidInput)
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
