package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pdfx "github.com/ledongthuc/pdf"
)

// DocExtractTool extracts plain text from a PDF document supplied as base64
// data, so document context can be attached to a question.
// Inputs:
// - data_base64: string (required; data: URIs accepted)
// - max_pages: number (optional; default 20)
type DocExtractTool struct {
	// MaxBytes caps the decoded document size. Zero means 20MB.
	MaxBytes int
}

func (t *DocExtractTool) Name() string { return "doc_extract" }

func (t *DocExtractTool) Execute(ctx context.Context, inputs map[string]any) (any, string, error) {
	dataB64, _ := inputs["data_base64"].(string)
	if dataB64 == "" {
		return nil, "", fmt.Errorf("missing data_base64")
	}
	maxPages := 20
	if v, ok := inputs["max_pages"].(float64); ok && v > 0 {
		maxPages = int(v)
	}
	maxBytes := t.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}

	// Allow data: URIs.
	if i := strings.Index(dataB64, ","); i != -1 {
		dataB64 = dataB64[i+1:]
	}
	buf, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64: %w", err)
	}
	if len(buf) > maxBytes {
		return nil, "", fmt.Errorf("document too large: %d bytes > limit %d", len(buf), maxBytes)
	}

	// The pdf library wants a file path.
	tmp, err := os.CreateTemp("", "deepthink-doc-*.pdf")
	if err != nil {
		return nil, "", err
	}
	path := tmp.Name()
	defer os.Remove(path)
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return nil, "", err
	}
	tmp.Close()

	f, r, err := pdfx.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	totalPages := r.NumPage()
	pages := totalPages
	if pages > maxPages {
		pages = maxPages
	}

	var out strings.Builder
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		p := r.Page(page)
		txt, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(txt); s != "" {
			out.WriteString(s)
			out.WriteString("\n\n")
		}
	}
	logs := fmt.Sprintf("pages=%d/%d bytes=%d file=%s", pages, totalPages, len(buf), filepath.Base(path))
	return strings.TrimSpace(out.String()), logs, nil
}
