package converter

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"wedge.io/wedge/lib/logger"
)

var (
	converterBin     = flag.String("converter.bin", "pdf2svg", "Path to the program converting PDF documents into SVG pages")
	converterTimeout = flag.Duration("converter.timeout", time.Minute, "The maximum duration of a single document conversion")
	converterWorkDir = flag.String("converter.workDir", "", "Directory for conversion output. The system temporary directory is used if empty")
)

var (
	// ErrUnsupportedFormat is returned for sources which are not PDF documents
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrConvertTimeout is returned when the conversion program does not finish in time
	ErrConvertTimeout = errors.New("document conversion timed out")
)

const pageFilePrefix = "out-"

// Converter converts PDF documents into SVG pages by running an external program
type Converter struct {
	// Bin is invoked as `Bin <source> <outDir>/out-%d.svg all`
	Bin     string
	Timeout time.Duration
	WorkDir string
}

// New returns a Converter configured by the -converter.* flags
func New() *Converter {
	return &Converter{
		Bin:     *converterBin,
		Timeout: *converterTimeout,
		WorkDir: *converterWorkDir,
	}
}

// PDFToSVG converts the PDF document at source into one SVG file per page
// and returns their paths ordered by page number.
//
// A missing or unreadable source yields no pages and no error, and so does
// a conversion producing no page files; nothing is left in WorkDir then.
// The caller owns the returned files and their directory.
func (c *Converter) PDFToSVG(ctx context.Context, source string) ([]string, error) {
	f, err := os.Open(source)
	if err != nil {
		logger.Warnf("cannot read conversion source %q: %s", source, err)
		return nil, nil
	}
	_ = f.Close()

	if ext := strings.TrimPrefix(filepath.Ext(source), "."); !strings.EqualFold(ext, "pdf") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	outDir, err := os.MkdirTemp(c.WorkDir, "svg-")
	if err != nil {
		return nil, fmt.Errorf("cannot create output directory: %w", err)
	}

	startTime := time.Now()
	logger.Infof("convert start. source=%s", source)
	if err := c.run(ctx, source, outDir); err != nil {
		_ = os.RemoveAll(outDir)
		return nil, err
	}
	logger.Infof("convert end. source=%s", source)
	logger.Infof("execution time: %.3f seconds", time.Since(startTime).Seconds())

	pages, err := listPages(outDir)
	if err != nil {
		_ = os.RemoveAll(outDir)
		return nil, err
	}
	if len(pages) == 0 {
		// nothing is returned that could lead the caller to outDir
		_ = os.RemoveAll(outDir)
		logger.Warnf("conversion of %s produced no pages", source)
		return nil, nil
	}
	return pages, nil
}

func (c *Converter) run(ctx context.Context, source, outDir string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.Bin, source, filepath.Join(outDir, pageFilePrefix+"%d.svg"), "all")
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %s", ErrConvertTimeout, c.Timeout, source)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("cannot convert %s: %w; output: %s", source, err, strings.TrimSpace(string(out)))
}

// listPages returns the page files in dir ordered by page number
func listPages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list converted pages: %w", err)
	}
	type page struct {
		n    int
		path string
	}
	var pages []page
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, pageFilePrefix) || !strings.HasSuffix(name, ".svg") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, pageFilePrefix), ".svg"))
		if err != nil {
			continue
		}
		pages = append(pages, page{n: n, path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].n < pages[j].n
	})
	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}
