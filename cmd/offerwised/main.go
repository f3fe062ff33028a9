package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/francis4531/Offerwise-sub000/internal/analysis"
	"github.com/francis4531/Offerwise-sub000/internal/common"
	"github.com/francis4531/Offerwise-sub000/internal/crossref"
	"github.com/francis4531/Offerwise-sub000/internal/export"
	"github.com/francis4531/Offerwise-sub000/internal/extract"
	"github.com/francis4531/Offerwise-sub000/internal/jobs"
	"github.com/francis4531/Offerwise-sub000/internal/parser"
	"github.com/francis4531/Offerwise-sub000/internal/repository"
	"github.com/francis4531/Offerwise-sub000/internal/scoring"
	"github.com/francis4531/Offerwise-sub000/internal/server"
	"github.com/francis4531/Offerwise-sub000/internal/storage"
	"github.com/francis4531/Offerwise-sub000/internal/verify"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Results store.
	var repo repository.AnalysisRepository
	var err error
	switch cfg.Database.Driver {
	case "postgres":
		repo, err = repository.OpenPostgres(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
	default:
		repo, err = repository.OpenSQLite(ctx, cfg.Database.DSN, logger)
	}
	if err != nil {
		logger.Error("open results store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil {
			logger.Error("close results store", "error", cerr)
		}
	}()
	logger.Info("results store ready", "driver", cfg.Database.Driver)

	// Optional artifact store.
	var store storage.ArtifactStore = storage.NopStore{}
	if cfg.Artifacts.Endpoint != "" {
		ms, merr := storage.NewMinioStore(ctx,
			cfg.Artifacts.Endpoint, cfg.Artifacts.AccessKey, cfg.Artifacts.SecretKey,
			cfg.Artifacts.Bucket, cfg.Artifacts.UseSSL, logger)
		if merr != nil {
			logger.Error("artifact store unavailable", "endpoint", cfg.Artifacts.Endpoint, "error", merr)
			os.Exit(1)
		}
		store = ms
		logger.Info("artifact store ready", "bucket", cfg.Artifacts.Bucket)
	}

	// Optional finding verification.
	var verifier verify.Verifier = verify.NopVerifier{}
	if cfg.Verify.APIKey != "" {
		verifier = verify.NewOpenAIVerifier(cfg.Verify.APIKey, cfg.Verify.Model, cfg.Verify.Timeout, logger)
		logger.Info("finding verification enabled", "model", cfg.Verify.Model, "top_k", cfg.Verify.TopK)
	}

	bench, err := parser.LoadBenchmarks(os.Getenv("BENCHMARKS_PATH"))
	if err != nil {
		logger.Error("load cost benchmarks", "error", err)
		os.Exit(1)
	}

	mgr := jobs.NewManager(cfg.Jobs.Retention, logger)
	go mgr.Janitor(ctx, cfg.Jobs.CleanupInterval)

	docParser := parser.NewParser(bench, logger)
	exporter := export.NewService(logger)
	coord := analysis.NewCoordinator(
		mgr,
		docParser,
		crossref.NewEngine(logger),
		scoring.NewEngine(logger),
		exporter,
		verifier,
		cfg.Verify.TopK,
		repo,
		store,
		logger,
	)

	extractor := extract.NewExtractor(extract.Config{
		Pdftotext:     cfg.Extract.Pdftotext,
		Pdftoppm:      cfg.Extract.Pdftoppm,
		Pdfinfo:       cfg.Extract.Pdfinfo,
		Tesseract:     cfg.Extract.Tesseract,
		TesseractLang: cfg.Extract.TesseractLang,
		TessdataDir:   cfg.Extract.TessdataDir,
		DPI:           cfg.Extract.DPI,
		BatchSize:     cfg.Extract.BatchSize,
		MaxPages:      cfg.Extract.MaxPages,
	}, logger)

	pool := jobs.NewPool(mgr, extractor,
		func(ctx context.Context, task jobs.Task, res extract.Result) {
			coord.DocumentComplete(ctx, task, res.Text, res.Method, res.Pages)
		},
		logger,
		jobs.WithWorkers(cfg.Jobs.Workers),
		jobs.WithQueueSize(cfg.Jobs.QueueSize),
		jobs.WithJobTimeout(cfg.Jobs.JobTimeout),
	)

	handler := server.NewRouter(mgr, pool, coord, exporter, os.TempDir(), logger)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if serr := srv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			logger.Error("http serve", "error", serr)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("http shutdown", "error", serr)
	}
	pool.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
