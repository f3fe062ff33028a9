package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/francis4531/Offerwise-sub000/internal/common"
	"github.com/francis4531/Offerwise-sub000/internal/extract"
)

// runextract runs the extraction chain against one local PDF and reports the
// method, page count, and per-page confidence. Useful for checking the
// poppler/tesseract install without standing up the daemon.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <path-to-pdf>")
		os.Exit(2)
	}
	path := os.Args[1]
	if _, err := os.Stat(path); err != nil {
		logger.Error("cannot read input", "path", path, "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Jobs.JobTimeout)
	defer cancel()

	ex := extract.NewExtractor(extract.Config{
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

	start := time.Now()
	res, err := ex.Extract(ctx, path, func(done, total int, message string) error {
		logger.Info("progress", "done", done, "total", total, "message", message)
		return nil
	})
	dur := time.Since(start)

	if err != nil {
		logger.Error("extraction failed", "path", path, "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	logger.Info("extraction OK",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"warnings", len(res.Warnings),
		"duration_ms", dur.Milliseconds(),
	)
	if _, werr := os.Stdout.WriteString(res.Text); werr != nil {
		logger.Error("write output", "error", werr)
		os.Exit(1)
	}
}
