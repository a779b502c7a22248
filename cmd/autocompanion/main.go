package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/autocompanion/autocompanion/internal/auth"
	"github.com/autocompanion/autocompanion/internal/config"
	"github.com/autocompanion/autocompanion/internal/document"
	"github.com/autocompanion/autocompanion/internal/expiry"
	"github.com/autocompanion/autocompanion/internal/itinerary"
	"github.com/autocompanion/autocompanion/internal/ocr"
	"github.com/autocompanion/autocompanion/internal/server"
	"github.com/autocompanion/autocompanion/internal/trip"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		var usageErr *config.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "%s\n", usageErr.Usage)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if cfg.ShowVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	slog.SetDefault(cfg.NewLogger(os.Stderr))

	if err := run(cfg); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Initializing trip store...", "store", cfg.Store)
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer generator.Close()

	recognizer, err := newRecognizer(ctx, cfg)
	if err != nil {
		return err
	}
	defer recognizer.Close()

	var artifacts document.Storage
	if cfg.OCRDebugDir != "" {
		slog.Info("Writing OCR debug images", "dir", cfg.OCRDebugDir)
		store, err := document.NewLocalStorage(cfg.OCRDebugDir)
		if err != nil {
			return fmt.Errorf("initializing debug storage: %w", err)
		}
		artifacts = store
	}

	var verifier auth.TokenVerifier
	if cfg.FirebaseProject != "" {
		slog.Info("Initializing Firebase token verification...", "project", cfg.FirebaseProject)
		verifier, err = auth.NewFirebaseVerifier(ctx, cfg.FirebaseProject, cfg.FirebaseCredentials)
		if err != nil {
			return fmt.Errorf("initializing firebase: %w", err)
		}
	} else {
		slog.Warn("Authentication disabled: no Firebase project configured")
	}

	planner := itinerary.NewPlanner(generator, cfg.GenerateTimeout)
	documents := document.NewService(
		ocr.NewFetcher(cfg.FetchTimeout, cfg.FetchMaxBytes),
		ocr.NewDecoder(cfg.OCRMaxPixels),
		&ocr.Normalizer{Scale: cfg.OCRScale, MedianKernel: cfg.OCRMedian},
		recognizer,
		expiry.NewMatcher(),
		artifacts,
	)

	srv := server.NewServer(server.Options{
		Trips:       trip.NewService(db, planner),
		Planner:     planner,
		Documents:   documents,
		Verifier:    verifier,
		CORSOrigins: cfg.CORSOrigins,
	})

	httpServer := srv.NewHTTPServer(fmt.Sprintf(":%d", cfg.Port))
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost:%d", cfg.Port), "version", version)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (trip.DB, error) {
	switch cfg.Store {
	case "postgres":
		db, err := trip.NewGormDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("initializing postgres store: %w", err)
		}
		return db, nil
	default:
		db, err := trip.NewBoltDB(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		return db, nil
	}
}

func newGenerator(ctx context.Context, cfg *config.Config) (itinerary.Generator, error) {
	switch cfg.Generator {
	case "openai":
		slog.Info("Initializing OpenAI generator...", "model", cfg.OpenAIModel)
		return itinerary.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIURL)
	case "ollama":
		slog.Info("Initializing Ollama generator...", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
		return itinerary.NewOllama(cfg.OllamaURL, cfg.OllamaModel), nil
	default:
		slog.Info("Initializing Gemini generator...", "model", cfg.GeminiModel)
		return itinerary.NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
	}
}

func newRecognizer(ctx context.Context, cfg *config.Config) (ocr.Recognizer, error) {
	switch cfg.OCREngine {
	case "gemini":
		slog.Info("Initializing Gemini OCR...", "model", cfg.GeminiModel)
		return ocr.NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel)
	default:
		slog.Info("Initializing Tesseract OCR...", "language", cfg.OCRLanguage, "psm", cfg.OCRPageSeg, "dpi", cfg.OCRDPI)
		return ocr.NewTesseract(ocr.Settings{
			Language:    cfg.OCRLanguage,
			PageSegMode: cfg.OCRPageSeg,
			DPI:         cfg.OCRDPI,
		}), nil
	}
}
