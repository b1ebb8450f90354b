package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Log        LogConfig
	OCR        OCRConfig
	Preprocess PreprocessConfig
	Fields     FieldsConfig
	LLM        LLMConfig
	Policy     PolicyConfig
	Batch      BatchConfig
	Cache      CacheConfig
	Server     ServerConfig
}

type LogConfig struct {
	Level slog.Level
}

// OCRConfig holds recognizer-related configuration
type OCRConfig struct {
	Engine        string // "tesseract" | "gosseract"
	Fallback      string // optional second engine, same values
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	PSM           int
	MinConfidence float64
	LineTolerance float64
	PDFZoom       float64
	MaxPages      int
}

type PreprocessConfig struct {
	MinSide            int
	DisableOrientation bool
}

type FieldsConfig struct {
	Strategy string // "heuristic" | "assisted"
}

// LLMConfig holds reasoning-service configuration
type LLMConfig struct {
	Provider    string // "openai" | "gemini" | "offline"
	Model       string
	APIKey      string
	BaseURL     string
	GeminiKey   string
	GeminiModel string
	Temperature float32
	Timeout     time.Duration
}

type PolicyConfig struct {
	WorkbookPath string
	StoreDSN     string // sqlite file path / "file::memory:" or postgres:// URL
	PoliciesPath string // optional docx/txt with free-text rules
}

type BatchConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	InboxDir       string
	Debounce       time.Duration
}

type CacheConfig struct {
	Path string // empty disables the text cache
}

// ServerConfig holds daemon-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
		},
		OCR: OCRConfig{
			Engine:        getEnv("OCR_ENGINE", "tesseract"),
			Fallback:      getEnv("OCR_FALLBACK_ENGINE", ""),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng+fra"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			PSM:           getEnvAsInt("TESSERACT_PSM", 6),
			MinConfidence: getEnvAsFloat("OCR_MIN_CONFIDENCE", 0.3),
			LineTolerance: getEnvAsFloat("OCR_LINE_TOLERANCE", 10),
			PDFZoom:       getEnvAsFloat("PDF_ZOOM", 2.0),
			MaxPages:      getEnvAsInt("PDF_MAX_PAGES", 5),
		},
		Preprocess: PreprocessConfig{
			MinSide:            getEnvAsInt("PREPROCESS_MIN_SIDE", 1000),
			DisableOrientation: getEnvAsBool("PREPROCESS_DISABLE_ORIENTATION", false),
		},
		Fields: FieldsConfig{
			Strategy: getEnv("FIELDS_STRATEGY", "heuristic"),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "offline"),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			GeminiKey:   getEnv("GEMINI_API_KEY", ""),
			GeminiModel: getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Policy: PolicyConfig{
			WorkbookPath: getEnv("POLICY_WORKBOOK", ""),
			StoreDSN:     getEnv("POLICY_STORE_DSN", ""),
			PoliciesPath: getEnv("POLICY_TEXT", ""),
		},
		Batch: BatchConfig{
			Workers:        getEnvAsInt("BATCH_WORKERS", 4),
			QueueSize:      getEnvAsInt("BATCH_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("BATCH_PROCESS_TIMEOUT", 2*time.Minute),
			InboxDir:       getEnv("INBOX_DIR", ""),
			Debounce:       getEnvAsDuration("INBOX_DEBOUNCE", 500*time.Millisecond),
		},
		Cache: CacheConfig{
			Path: getEnv("TEXT_CACHE_PATH", ""),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(value)); err != nil {
		return defaultValue
	}
	return lvl
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.OCR.Engine {
	case "tesseract", "gosseract":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be tesseract or gosseract", ErrInvalidInput)
	}
	switch c.Fields.Strategy {
	case "heuristic", "assisted":
	default:
		return NewAppError("CONFIG_ERROR", "FIELDS_STRATEGY must be heuristic or assisted", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "offline":
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required for LLM_PROVIDER=openai", ErrInvalidInput)
		}
	case "gemini":
		if c.LLM.GeminiKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required for LLM_PROVIDER=gemini", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be offline, openai or gemini", ErrInvalidInput)
	}
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 1 {
		return NewAppError("CONFIG_ERROR", "OCR_MIN_CONFIDENCE must be within [0,1]", ErrInvalidInput)
	}
	if c.OCR.PDFZoom < 2 {
		return NewAppError("CONFIG_ERROR", "PDF_ZOOM must be at least 2", ErrInvalidInput)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_WORKERS must be positive", ErrInvalidInput)
	}
	return nil
}
