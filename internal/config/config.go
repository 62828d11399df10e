package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port           string
	MaxUploadBytes int64

	// Sessions
	SessionTTL  time.Duration
	MaxSessions int

	// Ledger
	RulesFile     string
	UndatedPolicy string

	// Insight service
	InsightBackend string
	InsightAPIKey  string
	InsightBaseURL string
	InsightModel   string
	InsightTimeout time.Duration

	// Reports
	ReportDir   string
	ReportIndex string

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Report worker
	SyncInterval  time.Duration
	SyncBatchSize int

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

const (
	InsightOpenAI = "openai"
	InsightGemini = "gemini"
	InsightNone   = "none"
)

var (
	validIndexes  = []string{"memory", "sqlite"}
	validInsights = []string{InsightOpenAI, InsightGemini, InsightNone}
	validUndated  = []string{"exclude", "bucket"}
)

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),

		SessionTTL:  getEnvDuration("SESSION_TTL", 2*time.Hour),
		MaxSessions: getEnvInt("MAX_SESSIONS", 500),

		RulesFile:     getEnv("RULES_FILE", ""),
		UndatedPolicy: getEnv("UNDATED_POLICY", "exclude"),

		InsightBackend: getEnv("INSIGHT_BACKEND", InsightOpenAI),
		InsightAPIKey:  getEnv("INSIGHT_API_KEY", ""),
		InsightBaseURL: getEnv("INSIGHT_BASE_URL", "https://api.groq.com/openai/v1"),
		InsightModel:   getEnv("INSIGHT_MODEL", ""),
		InsightTimeout: getEnvDuration("INSIGHT_TIMEOUT", 60*time.Second),

		ReportDir:   getEnv("REPORT_DIR", "./data/reports"),
		ReportIndex: getEnv("REPORT_INDEX", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/spendsense.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "spendsense"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_generated"),

		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Reports"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
	}

	if cfg.InsightModel == "" {
		cfg.InsightModel = DefaultModel(cfg.InsightBackend)
	}

	return cfg
}

// DefaultModel returns the model used when INSIGHT_MODEL is unset.
func DefaultModel(backend string) string {
	switch backend {
	case InsightGemini:
		return "gemini-1.5-flash"
	case InsightOpenAI:
		return "llama-3.1-8b-instant"
	default:
		return ""
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}

	if !slices.Contains(validUndated, c.UndatedPolicy) {
		errors = append(errors, fmt.Sprintf("invalid undated policy '%s': must be one of %v", c.UndatedPolicy, validUndated))
	}

	if c.RulesFile != "" {
		if _, err := os.Stat(c.RulesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("rules file does not exist: %s", c.RulesFile))
		}
	}

	// Validate insight backend
	if !slices.Contains(validInsights, c.InsightBackend) {
		errors = append(errors, fmt.Sprintf("invalid insight backend '%s': must be one of %v", c.InsightBackend, validInsights))
	} else if c.InsightBackend != InsightNone {
		if c.InsightAPIKey == "" {
			errors = append(errors, fmt.Sprintf("INSIGHT_API_KEY is required for the %s insight backend", c.InsightBackend))
		}
		if c.InsightModel == "" {
			errors = append(errors, "insight model cannot be empty")
		}
		if c.InsightTimeout < time.Second {
			errors = append(errors, fmt.Sprintf("invalid insight timeout %v: must be at least 1 second", c.InsightTimeout))
		}
	}
	if c.InsightBackend == InsightOpenAI {
		if u, err := url.Parse(c.InsightBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid insight base URL '%s': must be http or https", c.InsightBaseURL))
		}
	}

	// Validate report index
	if c.ReportDir == "" {
		errors = append(errors, "report directory cannot be empty")
	}
	if !slices.Contains(validIndexes, c.ReportIndex) {
		errors = append(errors, fmt.Sprintf("invalid report index '%s': must be one of %v", c.ReportIndex, validIndexes))
	}

	// Validate SQLite configuration if the index is sqlite
	if c.ReportIndex == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite report index")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks the settings the report worker needs on top of the
// shared ones.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required for the worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the worker")
	}
	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	}
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
