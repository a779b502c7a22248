// Package config parses the service configuration from flags, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

// EnvPrefix maps --gemini-key to AUTOCOMPANION_GEMINI_KEY.
const EnvPrefix = "AUTOCOMPANION"

// Config is built once at start-up and handed to every constructor.
type Config struct {
	Port        int
	CORSOrigins []string

	Store       string
	DBPath      string
	PostgresDSN string

	Generator       string
	GeminiKey       string
	GeminiModel     string
	OpenAIKey       string
	OpenAIModel     string
	OpenAIURL       string
	OllamaURL       string
	OllamaModel     string
	GenerateTimeout time.Duration

	OCREngine     string
	OCRLanguage   string
	OCRPageSeg    int
	OCRDPI        int
	OCRScale      float64
	OCRMedian     int
	OCRMaxPixels  int
	FetchTimeout  time.Duration
	FetchMaxBytes int64
	OCRDebugDir   string

	FirebaseProject     string
	FirebaseCredentials string

	LogLevel  slog.Level
	LogFormat string

	ShowVersion bool
}

// UsageError is returned for bad flags; Usage holds the rendered help.
type UsageError struct {
	Usage string
	Err   error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Parse reads args and AUTOCOMPANION_* variables into a validated Config.
func Parse(args []string) (*Config, error) {
	flags := ff.NewFlagSet("autocompanion")
	var (
		port        = flags.IntLong("port", 8080, "HTTP server port")
		corsOrigins = flags.StringLong("cors-origins", "*", "Comma-separated allowed CORS origins")

		store       = flags.StringLong("store", "bolt", "Trip store: 'bolt' or 'postgres'")
		dbPath      = flags.StringLong("db", "autocompanion.db", "BoltDB file path")
		postgresDSN = flags.StringLong("postgres-dsn", "", "Postgres connection string for the postgres store")

		generator       = flags.StringLong("generator", "gemini", "Itinerary generator: 'gemini', 'openai' or 'ollama'")
		geminiKey       = flags.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = flags.StringLong("gemini-model", "gemini-1.5-flash", "Google Gemini model name")
		openaiKey       = flags.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openaiModel     = flags.StringLong("openai-model", "gpt-4o-mini", "OpenAI chat model name")
		openaiURL       = flags.StringLong("openai-url", "", "OpenAI-compatible API base URL (optional)")
		ollamaURL       = flags.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel     = flags.StringLong("ollama-model", "llama3", "Ollama model name")
		generateTimeout = flags.DurationLong("generate-timeout", 40*time.Second, "Timeout for one itinerary generation call")

		ocrEngine     = flags.StringLong("ocr-engine", "tesseract", "OCR engine: 'tesseract' or 'gemini'")
		ocrLanguage   = flags.StringLong("ocr-language", "eng", "Tesseract language")
		ocrPageSeg    = flags.IntLong("ocr-psm", 11, "Tesseract page segmentation mode (11 = sparse text)")
		ocrDPI        = flags.IntLong("ocr-dpi", 300, "DPI hint passed to Tesseract")
		ocrScale      = flags.Float64Long("ocr-scale", 2.5, "Upscale factor applied before recognition")
		ocrMedian     = flags.IntLong("ocr-median", 3, "Median blur kernel size (1 disables)")
		ocrMaxPixels  = flags.IntLong("ocr-max-pixels", 16_000_000, "Largest accepted document image, in pixels")
		fetchTimeout  = flags.DurationLong("fetch-timeout", 15*time.Second, "Timeout for downloading a document image")
		fetchMaxBytes = flags.IntLong("fetch-max-bytes", 20<<20, "Maximum document image size in bytes")
		ocrDebugDir   = flags.StringLong("ocr-debug-dir", "", "Directory for raw and processed debug images (optional)")

		firebaseProject     = flags.StringLong("firebase-project", "", "Firebase project ID (empty disables authentication)")
		firebaseCredentials = flags.StringLong("firebase-credentials", "", "Firebase service account JSON path (optional)")

		logLevel  = flags.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		logFormat = flags.StringLong("log-format", "text", "Log format: 'text' or 'json'")

		showVersion = flags.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(flags, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return nil, &UsageError{Usage: ffhelp.Flags(flags).String(), Err: err}
	}

	cfg := &Config{
		Port:                *port,
		CORSOrigins:         splitList(*corsOrigins),
		Store:               strings.ToLower(*store),
		DBPath:              *dbPath,
		PostgresDSN:         *postgresDSN,
		Generator:           strings.ToLower(*generator),
		GeminiKey:           firstNonEmpty(*geminiKey, os.Getenv("GEMINI_API_KEY")),
		GeminiModel:         *geminiModel,
		OpenAIKey:           firstNonEmpty(*openaiKey, os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:         *openaiModel,
		OpenAIURL:           *openaiURL,
		OllamaURL:           *ollamaURL,
		OllamaModel:         *ollamaModel,
		GenerateTimeout:     *generateTimeout,
		OCREngine:           strings.ToLower(*ocrEngine),
		OCRLanguage:         *ocrLanguage,
		OCRPageSeg:          *ocrPageSeg,
		OCRDPI:              *ocrDPI,
		OCRScale:            *ocrScale,
		OCRMedian:           *ocrMedian,
		OCRMaxPixels:        *ocrMaxPixels,
		FetchTimeout:        *fetchTimeout,
		FetchMaxBytes:       int64(*fetchMaxBytes),
		OCRDebugDir:         *ocrDebugDir,
		FirebaseProject:     *firebaseProject,
		FirebaseCredentials: *firebaseCredentials,
		LogFormat:           strings.ToLower(*logFormat),
		ShowVersion:         *showVersion,
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", *logLevel, err)
	}

	if cfg.ShowVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option values and the credentials each backend needs.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}

	switch c.Store {
	case "bolt":
	case "postgres":
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("postgres store requires --postgres-dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store %q (valid: bolt, postgres)", c.Store))
	}

	switch c.Generator {
	case "gemini":
		if c.GeminiKey == "" {
			errs = append(errs, errors.New("gemini generator requires --gemini-key or GEMINI_API_KEY"))
		}
	case "openai":
		if c.OpenAIKey == "" {
			errs = append(errs, errors.New("openai generator requires --openai-key or OPENAI_API_KEY"))
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("invalid generator %q (valid: gemini, openai, ollama)", c.Generator))
	}

	switch c.OCREngine {
	case "tesseract":
	case "gemini":
		if c.GeminiKey == "" {
			errs = append(errs, errors.New("gemini OCR engine requires --gemini-key or GEMINI_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid OCR engine %q (valid: tesseract, gemini)", c.OCREngine))
	}

	if c.OCRMaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("--ocr-max-pixels must be positive, got %d", c.OCRMaxPixels))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q (valid: text, json)", c.LogFormat))
	}

	return errors.Join(errs...)
}

// NewLogger builds the process logger in the configured format and level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
