package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// pdfToText reads the native text layer.
// pdftotext [-layout|-raw] -enc UTF-8 -eol unix <path> -
func (e *Extractor) pdfToText(ctx context.Context, path string, extra []string) (text string, pages int, warnings []string, err error) {
	args := append(append([]string{}, extra...), "-enc", "UTF-8", "-eol", "unix", path, "-")
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, args...)
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(text, "\f")
	return text, pages, nil, nil
}

var rePdfinfoPages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

// pageCount asks pdfinfo for the page total. Falls back to the page count
// observed by the native strategies when pdfinfo is unusable.
func (e *Extractor) pageCount(ctx context.Context, path string, fallback int) (int, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdfinfo, path)
	if err != nil {
		if fallback > 0 {
			return fallback, []string{string(errb)}, nil
		}
		return 0, []string{string(errb)}, err
	}
	m := rePdfinfoPages.FindSubmatch(out)
	if m == nil {
		if fallback > 0 {
			return fallback, []string{"pdfinfo output missing Pages"}, nil
		}
		return 0, nil, nil
	}
	n, _ := strconv.Atoi(string(m[1]))
	return n, nil, nil
}
