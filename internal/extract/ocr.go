package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/francis4531/Offerwise-sub000/constants"
	"github.com/francis4531/Offerwise-sub000/internal/common"
)

// rePageSuffix extracts the page number pdftoppm appends to each rendered
// image (<prefix>-7.png, zero-padded variants included).
var rePageSuffix = regexp.MustCompile(`-(\d+)\.png$`)

// extractOCR is the rasterize+OCR tail of the chain: a fast tesseract pass
// over every page in fixed-size batches, then an accurate re-pass over only
// the pages the fast engine was unsure about.
func (e *Extractor) extractOCR(ctx context.Context, path string, nativePages int, progress ProgressFunc) (Result, error) {
	total, warns, err := e.pageCount(ctx, path, nativePages)
	warnings := warns
	if err != nil {
		if notInstalled(err) {
			return Result{Warnings: warnings}, common.NewAppError(common.CodeExtractionFailed,
				"no native text layer and page count unavailable", common.ErrExtractionFailed)
		}
		return Result{Warnings: warnings}, common.NewAppError(common.CodeMalformed,
			"document unreadable", common.ErrMalformedDocument)
	}
	if total <= 0 {
		return Result{Warnings: warnings}, common.NewAppError(common.CodeMalformed,
			"document has zero pages", common.ErrMalformedDocument)
	}
	if e.cfg.MaxPages > 0 && total > e.cfg.MaxPages {
		warnings = append(warnings, fmt.Sprintf("document truncated to %d pages", e.cfg.MaxPages))
		total = e.cfg.MaxPages
	}

	pageTexts := make([]string, total)
	confs := make([]float32, total)
	rendered := 0

	for first := 1; first <= total; first += e.cfg.BatchSize {
		last := first + e.cfg.BatchSize - 1
		if last > total {
			last = total
		}
		if err := e.ocrBatch(ctx, path, first, last, total, pageTexts, confs, &rendered, &warnings, fastArgs(e.cfg), progress); err != nil {
			return Result{Warnings: warnings}, err
		}
	}

	if rendered == 0 {
		return Result{Warnings: warnings}, common.NewAppError(common.CodeMalformed,
			"rasterization produced no pages", common.ErrMalformedDocument)
	}

	method := constants.MethodOCRFast
	refined, err := e.accuratePass(ctx, path, total, pageTexts, confs, &warnings, progress)
	if err != nil {
		return Result{Warnings: warnings}, err
	}
	if refined {
		method = constants.MethodOCRAccurate
	}

	text := Normalize(strings.Join(pageTexts, "\n\f\n"))
	if strings.TrimSpace(strings.ReplaceAll(text, "\f", "")) == "" {
		return Result{Warnings: warnings}, common.NewAppError(common.CodeExtractionFailed,
			"every strategy produced empty text", common.ErrExtractionFailed)
	}

	return Result{
		Text:           text,
		Method:         method,
		Pages:          total,
		PageConfidence: confs,
		Warnings:       warnings,
	}, nil
}

// ocrBatch rasterizes one batch and OCRs each page in it. A single page's
// OCR failure is logged and leaves empty text with zero confidence; it never
// aborts the document. The progress callback runs after every page and its
// error (timeout, cancel) aborts immediately.
func (e *Extractor) ocrBatch(ctx context.Context, path string, first, last, total int,
	pageTexts []string, confs []float32, rendered *int, warnings *[]string,
	engineArgs []string, progress ProgressFunc) error {

	imgs, cleanup, err := e.rasterizeRange(ctx, path, first, last)
	defer cleanup()
	if err != nil {
		if notInstalled(err) {
			return engineUnavailable(e.cfg.Pdftoppm)
		}
		// A bad range can fail rendering without the document being hopeless.
		e.logger.Warn("rasterization failed for batch", "first", first, "last", last, "error", err)
		*warnings = append(*warnings, fmt.Sprintf("pages %d-%d failed to render", first, last))
		for p := first; p <= last; p++ {
			if perr := progress(p, total, fmt.Sprintf("page %d/%d unreadable", p, total)); perr != nil {
				return perr
			}
		}
		return nil
	}

	// Key images by the page number in their filename. Positional indexing
	// would mis-attribute text when a mid-batch page fails to render.
	byPage := make(map[int]string, len(imgs))
	for _, img := range imgs {
		m := rePageSuffix.FindStringSubmatch(img)
		if m == nil {
			continue
		}
		if p, aerr := strconv.Atoi(m[1]); aerr == nil {
			byPage[p] = img
		}
	}

	for page := first; page <= last; page++ {
		img, ok := byPage[page]
		if !ok {
			e.logger.Warn("page missing from rasterized batch", "page", page)
			*warnings = append(*warnings, fmt.Sprintf("page %d failed to render", page))
			if perr := progress(page, total, fmt.Sprintf("page %d/%d unreadable", page, total)); perr != nil {
				return perr
			}
			continue
		}
		txt, conf, oerr := e.ocrPage(ctx, img, engineArgs)
		if oerr != nil {
			if notInstalled(oerr) {
				return engineUnavailable(e.cfg.Tesseract)
			}
			e.logger.Warn("ocr failed for page, continuing", "page", page, "error", oerr)
			*warnings = append(*warnings, fmt.Sprintf("page %d: %v", page, oerr))
			txt, conf = "", 0
		}
		pageTexts[page-1] = txt
		confs[page-1] = conf
		*rendered++
		if perr := progress(page, total, fmt.Sprintf("OCR page %d/%d", page, total)); perr != nil {
			return perr
		}
	}
	return nil
}

// accuratePass re-OCRs only the pages whose fast-pass confidence fell below
// AccurateRetryThreshold, one page per batch. Keeps the fast result when the
// slow engine does no better. Reports whether any page was refined.
func (e *Extractor) accuratePass(ctx context.Context, path string, total int,
	pageTexts []string, confs []float32, warnings *[]string, progress ProgressFunc) (bool, error) {

	var pending []int
	for page := 1; page <= total; page++ {
		if confs[page-1] < AccurateRetryThreshold {
			pending = append(pending, page)
		}
	}
	if len(pending) == 0 {
		return false, nil
	}

	// Refined pages are extra work past the fast pass; extend the denominator
	// so progress does not report completion while the slow engine runs.
	workTotal := total + len(pending)
	refined := false
	for i, page := range pending {
		if perr := progress(total+i, workTotal, fmt.Sprintf("refining page %d/%d", page, total)); perr != nil {
			return refined, perr
		}
		imgs, cleanup, err := e.rasterizeRange(ctx, path, page, page)
		if err != nil || len(imgs) == 0 {
			cleanup()
			continue
		}
		txt, conf, oerr := e.ocrPage(ctx, imgs[0], accurateArgs(e.cfg))
		cleanup()
		if oerr != nil {
			if notInstalled(oerr) {
				// fast engine already ran; degrade, don't fail
				return refined, nil
			}
			*warnings = append(*warnings, fmt.Sprintf("page %d accurate pass: %v", page, oerr))
			continue
		}
		if conf > confs[page-1] || (pageTexts[page-1] == "" && txt != "") {
			pageTexts[page-1] = txt
			confs[page-1] = conf
			refined = true
		}
	}
	if perr := progress(workTotal, workTotal, "refinement complete"); perr != nil {
		return refined, perr
	}
	return refined, nil
}

// ocrPage runs tesseract on one page image and blends TSV word confidence
// with the text heuristic.
func (e *Extractor) ocrPage(ctx context.Context, img string, engineArgs []string) (string, float32, error) {
	args := append([]string{img, "stdout", "-l", e.cfg.TesseractLang}, engineArgs...)
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", 0, fmt.Errorf("tesseract: %w", appendStderr(err, errb))
	}
	txt := reBoxNoise.ReplaceAllString(string(out), "")

	ocrConf, terr := e.tesseractTSVConfidence(ctx, img, engineArgs)
	heurConf := heuristicConfidence(txt)

	// blend: weight OCR higher if present
	var conf float32
	switch {
	case terr == nil && ocrConf > 0:
		conf = 0.7*ocrConf + 0.3*heurConf
	default:
		conf = heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return txt, conf, nil
}

// fastArgs uses tesseract defaults: quickest run, adequate on clean scans.
func fastArgs(Config) []string { return nil }

// accurateArgs forces the LSTM engine with uniform-block segmentation,
// slower but markedly better on dense form pages.
func accurateArgs(Config) []string { return []string{"--oem", "1", "--psm", "6"} }
