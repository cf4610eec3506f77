package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"docrag/internal/domain"
)

// PDF extracts the plain text of every page of a PDF file, in page order.
type PDF struct{}

func NewPDF() *PDF { return &PDF{} }

func (p *PDF) Extract(ctx context.Context, locator string) ([]string, error) {
	if _, err := os.Stat(locator); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceNotFound, locator, err)
	}
	f, r, err := pdf.Open(locator)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceNotFound, locator, err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			// keep the slot so ordinals still match page numbers
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
