package sample

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"wedge.io/wedge/lib/converter"
	"wedge.io/wedge/lib/dispatch"
	"wedge.io/wedge/lib/utils/stringsutil"
)

type DocumentRequest struct {
	FileName string `json:"file_name"`
	// Content is base64 in JSON
	Content []byte `json:"content"`
}

type DocumentResponse struct {
	dispatch.Envelope
	Pages []string `json:"pages"`
}

// Document converts an uploaded PDF document into SVG pages
type Document struct {
	converter *converter.Converter
}

func (d *Document) DoPost(ctx context.Context, req any) (dispatch.Response, error) {
	r := req.(*DocumentRequest)
	name := filepath.Base(r.FileName)
	if name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("invalid file_name %q", stringsutil.LimitStringLen(r.FileName, 64))
	}

	dir, err := os.MkdirTemp(d.converter.WorkDir, "upload-")
	if err != nil {
		return nil, fmt.Errorf("cannot create upload directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	source := filepath.Join(dir, name)
	if err := os.WriteFile(source, r.Content, 0o600); err != nil {
		return nil, fmt.Errorf("cannot store %s: %w", name, err)
	}

	pages, err := d.converter.PDFToSVG(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errors.New("document has no pages")
	}
	defer func() { _ = os.RemoveAll(filepath.Dir(pages[0])) }()

	res := &DocumentResponse{Pages: make([]string, 0, len(pages))}
	for _, p := range pages {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read converted page: %w", err)
		}
		res.Pages = append(res.Pages, string(data))
	}
	return res, nil
}
