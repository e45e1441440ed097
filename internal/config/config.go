package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendGemini = "gemini"
	BackendClaude = "claude"
	BackendOllama = "ollama"
)

type Config struct {
	ListenAddr      string
	VisionBackend   string
	GeminiAPIKey    string
	GeminiModel     string
	GeminiBaseURL   string
	ClaudeAPIKey    string
	ClaudeModel     string
	OllamaHost      string
	OllamaModel     string
	ProviderTimeout time.Duration
	MaxRequestBytes int64

	DiagnosticsDBPath       string
	DiagnosticsPhotoBackend string
	DiagnosticsPhotoPath    string
	DiagnosticsRetention    time.Duration

	S3Endpoint        string
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string

	LogLevel string
	LogFile  string
}

// Load reads the configuration from the environment after applying .env from
// the working directory, if there is one.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit env file. Variables already present in the
// environment take precedence over the file. A missing file is not an error.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	timeout, err := getDuration("PROVIDER_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	retention, err := getDuration("DIAGNOSTICS_RETENTION", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	maxBytes, err := getInt64("MAX_REQUEST_BYTES", 20<<20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		VisionBackend:   getEnv("VISION_BACKEND", BackendGemini),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		ClaudeAPIKey:    getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-3-5-sonnet-latest"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "llava"),
		ProviderTimeout: timeout,
		MaxRequestBytes: maxBytes,

		DiagnosticsDBPath:       getEnv("DIAGNOSTICS_DB_PATH", ""),
		DiagnosticsPhotoBackend: getEnv("DIAGNOSTICS_PHOTO_BACKEND", "local"),
		DiagnosticsPhotoPath:    getEnv("DIAGNOSTICS_PHOTO_PATH", ""),
		DiagnosticsRetention:    retention,

		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.VisionBackend {
	case BackendGemini, BackendClaude, BackendOllama:
	default:
		return fmt.Errorf("unknown VISION_BACKEND %q", c.VisionBackend)
	}
	switch c.DiagnosticsPhotoBackend {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown DIAGNOSTICS_PHOTO_BACKEND %q", c.DiagnosticsPhotoBackend)
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be positive, got %d", c.MaxRequestBytes)
	}
	if c.ProviderTimeout < 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must not be negative, got %s", c.ProviderTimeout)
	}
	return nil
}

// CredentialName is the variable holding the selected backend's credential,
// or "" when the backend needs none.
func (c *Config) CredentialName() string {
	switch c.VisionBackend {
	case BackendGemini:
		return "GEMINI_API_KEY"
	case BackendClaude:
		return "CLAUDE_API_KEY"
	default:
		return ""
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	// Bare integers are seconds.
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return d, nil
}

func getInt64(key string, defaultVal int64) (int64, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return n, nil
}
