// Package corpus holds the ordered pages of the ingested document.
package corpus

import (
	"context"
	"fmt"

	"docrag/internal/domain"
)

// Store owns the corpus. It is written once by Load and read-only afterwards.
type Store struct {
	extractor domain.Extractor
	units     []domain.Unit
}

func NewStore(extractor domain.Extractor) *Store {
	return &Store{extractor: extractor}
}

// Load extracts the source and replaces the stored corpus. Ordinals are
// assigned 1..N in extraction order; empty pages are kept. On error the
// previous corpus is left untouched.
func (s *Store) Load(ctx context.Context, locator string) error {
	texts, err := s.extractor.Extract(ctx, locator)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	units := make([]domain.Unit, len(texts))
	for i, text := range texts {
		units[i] = domain.Unit{Ordinal: i + 1, Text: text}
	}
	s.units = units
	return nil
}

func (s *Store) Len() int { return len(s.units) }

// Unit returns the unit at the zero-based position.
func (s *Store) Unit(position int) domain.Unit { return s.units[position] }

// Text returns the text of the unit at the zero-based position.
func (s *Store) Text(position int) string { return s.units[position].Text }

// Texts returns every unit text in ordinal order.
func (s *Store) Texts() []string {
	out := make([]string, len(s.units))
	for i, u := range s.units {
		out[i] = u.Text
	}
	return out
}

// Units returns a copy of the corpus.
func (s *Store) Units() []domain.Unit {
	return append([]domain.Unit(nil), s.units...)
}
