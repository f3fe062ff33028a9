package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/common"
)

// MinCharsPerPage is the density floor below which native text-layer output
// is considered garbage (scanned PDF with a stub text layer) and the chain
// falls through to rasterize+OCR.
const MinCharsPerPage = 200

// AccurateRetryThreshold is the fast-engine page confidence below which the
// accurate engine re-OCRs that page.
const AccurateRetryThreshold = 0.5

type Config struct {
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

// ProgressFunc receives per-page progress. Returning a non-nil error aborts
// the extraction with that error; the job manager wires timeout and
// cancellation checks through it.
type ProgressFunc func(done, total int, message string) error

type Result struct {
	Text           string
	Method         constants.ExtractionMethod
	Pages          int
	PageConfidence []float32
	Warnings       []string
	Duration       time.Duration
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 2
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// nativeStrategies are the text-layer strategies tried before rasterization,
// in order.
var nativeStrategies = []struct {
	method constants.ExtractionMethod
	args   []string
}{
	{constants.MethodNativeFast, nil},
	{constants.MethodNativeLayout, []string{"-layout"}},
	{constants.MethodNativeBasic, []string{"-raw"}},
}

// Extract runs the strategy chain over the document at path. Strategies are
// attempted in order; each is tried only if the previous one failed or
// produced text below the density floor. Deterministic for identical bytes.
func (e *Extractor) Extract(ctx context.Context, path string, progress ProgressFunc) (Result, error) {
	start := time.Now()
	if progress == nil {
		progress = func(int, int, string) error { return nil }
	}

	var warnings []string
	nativePages := 0

	for _, strat := range nativeStrategies {
		text, pages, warns, err := e.pdfToText(ctx, path, strat.args)
		warnings = append(warnings, warns...)
		if err != nil {
			if notInstalled(err) {
				e.logger.Warn("pdftotext not installed, skipping native strategies")
				break
			}
			e.logger.Warn("native strategy failed", "method", strat.method, "error", err)
			continue
		}
		if pages > nativePages {
			nativePages = pages
		}
		if !densityOK(text, pages) {
			e.logger.Debug("native text below density floor",
				"method", strat.method, "pages", pages, "chars", len(text))
			continue
		}
		if perr := progress(pages, pages, fmt.Sprintf("extracted text layer (%s)", strat.method)); perr != nil {
			return Result{}, perr
		}
		text = Normalize(text)
		return Result{
			Text:           text,
			Method:         strat.method,
			Pages:          pages,
			PageConfidence: nativePageConfidence(text, pages),
			Warnings:       warnings,
			Duration:       time.Since(start),
		}, nil
	}

	res, err := e.extractOCR(ctx, path, nativePages, progress)
	res.Warnings = append(warnings, res.Warnings...)
	res.Duration = time.Since(start)
	return res, err
}

func densityOK(text string, pages int) bool {
	if pages <= 0 {
		return false
	}
	return len(strings.TrimSpace(text))/pages >= MinCharsPerPage
}

// nativePageConfidence splits text on page separators and scores each page
// heuristically. The text layer is trusted; the heuristic only flags pages
// that came back near-empty.
func nativePageConfidence(text string, pages int) []float32 {
	parts := strings.Split(text, "\f")
	confs := make([]float32, pages)
	for i := range confs {
		if i < len(parts) {
			confs[i] = heuristicConfidence(parts[i])
			if confs[i] < 0.9 && len(strings.TrimSpace(parts[i])) >= MinCharsPerPage {
				confs[i] = 0.9
			}
		}
	}
	return confs
}

// engineUnavailable wraps a missing-binary error in the typed taxonomy.
func engineUnavailable(bin string) error {
	return common.NewAppError(common.CodeEngineUnavailable,
		fmt.Sprintf("%s is not installed", bin), common.ErrEngineUnavailable)
}
