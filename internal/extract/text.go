package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"docrag/internal/domain"
)

// pageBreak separates pages in plain text exports (pdftotext and friends).
const pageBreak = "\f"

// Text reads a plain text file. Form feeds mark page boundaries; a file
// without any is split by the optional chunker, or kept as a single page.
type Text struct {
	chunker domain.Chunker
}

// NewText creates a plain text extractor. chunker may be nil.
func NewText(chunker domain.Chunker) *Text {
	return &Text{chunker: chunker}
}

func (t *Text) Extract(ctx context.Context, locator string) ([]string, error) {
	data, err := os.ReadFile(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceNotFound, locator, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.pages(string(data)), nil
}

func (t *Text) pages(content string) []string {
	if strings.Contains(content, pageBreak) {
		pages := strings.Split(content, pageBreak)
		// a trailing form feed terminates the last page, it does not open a new one
		if last := len(pages) - 1; strings.TrimSpace(pages[last]) == "" {
			pages = pages[:last]
		}
		return pages
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if t.chunker != nil {
		return t.chunker.Split(content)
	}
	return []string{content}
}
