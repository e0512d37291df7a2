package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultChunkSize            = 500
	defaultSummaryLength        = 200
	defaultUploadRatePerSecond  = 1
	defaultUploadRateLimitBurst = 5
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	Env             string
	LogLevel        string
	Summarizer      string
	LLMModel        string
	OpenAIAPIKey    string
	TuningFile      string
	Tuning          Tuning
}

// Tuning holds the knobs read from the optional YAML file.
type Tuning struct {
	ChunkSize            int             `yaml:"chunk_size"`
	DefaultSummaryLength int             `yaml:"default_summary_length"`
	OCRLanguages         []string        `yaml:"ocr_languages"`
	UploadRateLimit      RateLimitTuning `yaml:"upload_rate_limit"`
}

// RateLimitTuning configures the token bucket applied to uploads. Omitting it
// keeps the defaults; a negative rate disables limiting.
type RateLimitTuning struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	if files := existingFiles(".env", "cmd/.env"); len(files) > 0 {
		_ = godotenv.Load(files...)
	}

	tuningFile := getEnv("CONFIG_FILE", "config.yaml")
	tuning, err := LoadTuning(tuningFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: ignoring tuning file %s: %v\n", tuningFile, err)
		tuning = DefaultTuning()
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:4200")),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Summarizer:      normalizeSummarizer(getEnv("SUMMARIZER", "local")),
		LLMModel:        getEnv("LLM_MODEL", "gpt-4o-mini"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		TuningFile:      tuningFile,
		Tuning:          tuning,
	}
}

// DefaultTuning returns the tuning used when no YAML file is present.
func DefaultTuning() Tuning {
	return Tuning{
		ChunkSize:            defaultChunkSize,
		DefaultSummaryLength: defaultSummaryLength,
		OCRLanguages:         []string{"eng"},
		UploadRateLimit: RateLimitTuning{
			Rate:  defaultUploadRatePerSecond,
			Burst: defaultUploadRateLimitBurst,
		},
	}
}

// LoadTuning reads a YAML tuning file. A missing file yields the defaults.
func LoadTuning(path string) (Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultTuning(), nil
		}
		return Tuning{}, err
	}
	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse %s: %w", path, err)
	}
	applyTuningDefaults(&t)
	return t, nil
}

func applyTuningDefaults(t *Tuning) {
	def := DefaultTuning()
	if t.ChunkSize <= 0 {
		t.ChunkSize = def.ChunkSize
	}
	if t.DefaultSummaryLength <= 0 {
		t.DefaultSummaryLength = def.DefaultSummaryLength
	}
	if len(t.OCRLanguages) == 0 {
		t.OCRLanguages = def.OCRLanguages
	}
	if t.UploadRateLimit == (RateLimitTuning{}) {
		t.UploadRateLimit = def.UploadRateLimit
	}
	if t.UploadRateLimit.Rate < 0 {
		t.UploadRateLimit.Rate = 0
	}
	if t.UploadRateLimit.Burst < 0 {
		t.UploadRateLimit.Burst = 0
	}
}

func existingFiles(paths ...string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "none", "off", "":
		return "none"
	default:
		return "local"
	}
}

func normalizeSummarizer(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	default:
		return "local"
	}
}
