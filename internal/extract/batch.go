package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

// rasterizeRange renders pages [first,last] to PNGs in a fresh temp dir.
// pdftoppm -f <first> -l <last> -r <dpi> -png <in.pdf> <tmp/page>
//
// Returns the image paths in page order and a cleanup func. The caller must
// invoke cleanup before rasterizing the next batch: releasing each batch's
// images before the next one starts is what bounds peak memory to
// O(batch size), independent of document length.
func (e *Extractor) rasterizeRange(ctx context.Context, path string, first, last int) ([]string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "ow-pp-*")
	if err != nil {
		return nil, func() {}, err
	}
	cleanup := func() {
		if rerr := os.RemoveAll(tmpDir); rerr != nil {
			e.logger.Warn("failed to remove batch temp dir", "dir", tmpDir, "error", rerr)
		}
		// Rasterized pages at 300 DPI are large; give them back eagerly.
		runtime.GC()
	}

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", fmt.Sprintf("%d", first),
		"-l", fmt.Sprintf("%d", last),
		"-r", fmt.Sprintf("%d", e.cfg.DPI),
		"-png", path, prefix)
	if err != nil {
		return nil, cleanup, appendStderr(err, errb)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	return matches, cleanup, nil
}

func appendStderr(err error, errb []byte) error {
	if len(errb) == 0 {
		return err
	}
	return fmt.Errorf("%w: %s", err, truncate(string(errb), 1<<10))
}
