package converter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript writes an executable shell script standing in for the conversion program
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "convert.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestPDFToSVG(t *testing.T) {
	// $2 is the output pattern containing %d
	bin := writeScript(t, `for i in 10 2 1; do printf '<svg/>' > "$(printf "$2" $i)"; done; touch "$(dirname "$2")/notes.txt"`)
	c := &Converter{Bin: bin, Timeout: 10 * time.Second, WorkDir: t.TempDir()}

	pages, err := c.PDFToSVG(context.Background(), writeSource(t, "doc.PDF"))
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "out-1.svg", filepath.Base(pages[0]))
	assert.Equal(t, "out-2.svg", filepath.Base(pages[1]))
	assert.Equal(t, "out-10.svg", filepath.Base(pages[2]))

	data, err := os.ReadFile(pages[0])
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(data))
}

func TestPDFToSVGMissingSource(t *testing.T) {
	c := &Converter{Bin: "false"}
	pages, err := c.PDFToSVG(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.NoError(t, err)
	assert.Nil(t, pages)
}

func TestPDFToSVGUnsupportedFormat(t *testing.T) {
	c := &Converter{Bin: "false"}
	_, err := c.PDFToSVG(context.Background(), writeSource(t, "doc.docx"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestPDFToSVGTimeout(t *testing.T) {
	bin := writeScript(t, "exec sleep 5")
	c := &Converter{Bin: bin, Timeout: 50 * time.Millisecond, WorkDir: t.TempDir()}

	_, err := c.PDFToSVG(context.Background(), writeSource(t, "doc.pdf"))
	assert.ErrorIs(t, err, ErrConvertTimeout)

	entries, err := os.ReadDir(c.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "output directory must be removed on failure")
}

func TestPDFToSVGProgramFailure(t *testing.T) {
	bin := writeScript(t, "echo broken document >&2; exit 3")
	c := &Converter{Bin: bin, Timeout: 10 * time.Second, WorkDir: t.TempDir()}

	_, err := c.PDFToSVG(context.Background(), writeSource(t, "doc.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken document")
	assert.NotErrorIs(t, err, ErrConvertTimeout)
}

func TestPDFToSVGNoPages(t *testing.T) {
	bin := writeScript(t, "exit 0")
	c := &Converter{Bin: bin, Timeout: 10 * time.Second, WorkDir: t.TempDir()}

	pages, err := c.PDFToSVG(context.Background(), writeSource(t, "doc.pdf"))
	require.NoError(t, err)
	assert.Empty(t, pages)

	entries, err := os.ReadDir(c.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "output directory must be removed when no pages were produced")
}
