package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/calorielens/internal/config"
	"github.com/vbonduro/calorielens/internal/db"
	"github.com/vbonduro/calorielens/internal/logging"
	"github.com/vbonduro/calorielens/internal/photostore"
	"github.com/vbonduro/calorielens/internal/photostore/local"
	"github.com/vbonduro/calorielens/internal/photostore/s3store"
	"github.com/vbonduro/calorielens/internal/service"
	"github.com/vbonduro/calorielens/internal/store"
	"github.com/vbonduro/calorielens/internal/vision"
	claudevision "github.com/vbonduro/calorielens/internal/vision/claude"
	geminivision "github.com/vbonduro/calorielens/internal/vision/gemini"
	ollamavision "github.com/vbonduro/calorielens/internal/vision/ollama"
	"github.com/vbonduro/calorielens/internal/web"
)

func main() {
	os.Exit(run())
}

func run() int {
	listDiag := flag.Int("diagnostics", 0, "print the newest N unparsable-output diagnostics and exit")
	requestID := flag.String("diagnostic", "", "print the diagnostic recorded for a request id and exit")
	photoOut := flag.String("photo-out", "", "with -diagnostic, write the stored image to this file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listDiag > 0 || *requestID != "" {
		if err := runDiagnosticsCommand(ctx, cfg, logger, *listDiag, *requestID, *photoOut, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithTimeout(cfg.ProviderTimeout),
	}

	if cfg.DiagnosticsDBPath != "" {
		diag, closeDB, err := newDiagnostics(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to initialize diagnostics", "error", err)
			return 1
		}
		defer closeDB()
		opts = append(opts, service.WithDiagnostics(diag))
		go diag.RunRetention(ctx, cfg.DiagnosticsRetention, time.Hour)
	}

	// A nil analyzer keeps the server up and answers every analysis with the
	// missing-credential error.
	gateway := service.NewGateway(newVisionAnalyzer(cfg, logger), cfg.CredentialName(), opts...)
	server := web.NewServer(gateway, cfg.MaxRequestBytes, logger)

	httpServer := server.HTTPServer(cfg.ListenAddr)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "addr", cfg.ListenAddr, "backend", cfg.VisionBackend)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

// runDiagnosticsCommand serves the operator read path: a listing of recent
// records, or one record (and optionally its image) by request id.
func runDiagnosticsCommand(ctx context.Context, cfg *config.Config, logger *slog.Logger, limit int, requestID, photoOut string, w io.Writer) error {
	if cfg.DiagnosticsDBPath == "" {
		return errors.New("DIAGNOSTICS_DB_PATH is not set")
	}
	diag, closeDB, err := newDiagnostics(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	if requestID != "" {
		return showDiagnostic(ctx, diag, requestID, photoOut, w)
	}
	return listDiagnostics(ctx, diag, limit, w)
}

func newVisionAnalyzer(cfg *config.Config, logger *slog.Logger) vision.Analyzer {
	switch cfg.VisionBackend {
	case config.BackendClaude:
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
			return nil
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case config.BackendOllama:
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaAnalyzer(cfg.OllamaHost, cfg.OllamaModel)
	default:
		if cfg.GeminiAPIKey == "" {
			logger.Error("GEMINI_API_KEY is required when VISION_BACKEND=gemini")
			return nil
		}
		logger.Info("using Gemini vision backend", "model", cfg.GeminiModel)
		return geminivision.NewGeminiAnalyzer(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	}
}

func newDiagnostics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*service.Diagnostics, func(), error) {
	database, err := db.Open(cfg.DiagnosticsDBPath)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}

	photoStg, err := newPhotoStore(ctx, cfg)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	if photoStg == nil {
		logger.Info("diagnostics enabled without image capture", "db", cfg.DiagnosticsDBPath)
	} else {
		logger.Info("diagnostics enabled", "db", cfg.DiagnosticsDBPath, "photo_backend", cfg.DiagnosticsPhotoBackend)
	}

	return service.NewDiagnostics(store.NewDiagnosticsStore(database), photoStg, logger), closeDB, nil
}

// newPhotoStore returns nil when image capture is not configured.
func newPhotoStore(ctx context.Context, cfg *config.Config) (photostore.PhotoStore, error) {
	switch cfg.DiagnosticsPhotoBackend {
	case "s3":
		s3Stg, err := s3store.NewS3PhotoStore(ctx, s3store.Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return s3Stg, nil
	default:
		if cfg.DiagnosticsPhotoPath == "" {
			return nil, nil
		}
		localStg, err := local.NewLocalPhotoStore(cfg.DiagnosticsPhotoPath)
		if err != nil {
			return nil, err
		}
		return localStg, nil
	}
}
