// Package extract turns a source document into ordered page texts.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"docrag/internal/domain"
)

// Auto dispatches on the file extension: .pdf goes to the PDF extractor,
// everything else is read as plain text.
type Auto struct {
	pdf  domain.Extractor
	text domain.Extractor
}

func NewAuto(chunker domain.Chunker) *Auto {
	return &Auto{pdf: NewPDF(), text: NewText(chunker)}
}

func (a *Auto) Extract(ctx context.Context, locator string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(locator), ".pdf") {
		return a.pdf.Extract(ctx, locator)
	}
	return a.text.Extract(ctx, locator)
}

// New returns the extractor registered under kind ("auto", "pdf" or "text").
func New(kind string, chunker domain.Chunker) (domain.Extractor, error) {
	switch kind {
	case "auto", "":
		return NewAuto(chunker), nil
	case "pdf":
		return NewPDF(), nil
	case "text":
		return NewText(chunker), nil
	default:
		return nil, fmt.Errorf("unknown extractor: %s", kind)
	}
}
