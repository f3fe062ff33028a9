package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reAddress  = regexp.MustCompile(`\b\d{1,5}\s+\w+\s+(st|street|ave|avenue|rd|road|dr|drive|ln|lane|blvd|ct|court|way)\b`)
	reDate     = regexp.MustCompile(`\b(19|20)\d{2}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	reDollar   = regexp.MustCompile(`\$\s?\d{1,3}(,\d{3})*(\.\d{2})?`)
	reInspWord = regexp.MustCompile(`\b(inspect|disclosure|property|roof|foundation|plumbing|electrical|hvac|seller|buyer)\b`)
)

func hasAddressPattern(s string) bool  { return reAddress.MatchString(s) }
func hasDatePattern(s string) bool     { return reDate.MatchString(s) }
func hasDollarPattern(s string) bool   { return reDollar.MatchString(s) }
func hasPropertyPattern(s string) bool { return reInspWord.MatchString(s) }

// naive heuristic confidence based on decoded text characteristics
func heuristicConfidence(txt string) float32 {
	// boost if we see common property-document artifacts
	// (address-ish, date-ish, dollar-ish, domain vocabulary).
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if hasPropertyPattern(txtL) {
		score += 0.2
	}
	if hasDatePattern(txtL) {
		score += 0.15
	}
	if hasDollarPattern(txtL) || hasAddressPattern(txtL) {
		score += 0.15
	}
	if len(strings.TrimSpace(txt)) > 120 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string, engineArgs []string) (float32, error) {
	args := append([]string{path, "stdout", "-l", e.cfg.TesseractLang}, engineArgs...)
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", appendStderr(err, errb))
	}
	lines := strings.Split(string(out), "\n")
	var sum, n float64
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue
		} // skip header
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		} // defensive
		confStr := cols[10] // conf column; last is the word itself
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, perr := strconv.ParseFloat(confStr, 64); perr == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	mean := sum / n // 0..100
	return float32(mean / 100.0), nil
}
