package domain

import (
	"context"
	"errors"
)

// EmptyResultSentinel is returned as the single search result when nothing matched.
const EmptyResultSentinel = "No relevant documents found."

var (
	// ErrSourceNotFound reports that the ingestion source could not be located or read.
	ErrSourceNotFound = errors.New("source not found")
	// ErrDimensionMismatch reports a query vector whose length differs from the indexed vectors.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Unit is one addressable page of the ingested document.
type Unit struct {
	Ordinal int
	Text    string
}

// Match is a ranked hit returned by a vector index.
type Match struct {
	Position int
	Distance float64
}

// RankedUnit pairs a unit with its distance to the query.
type RankedUnit struct {
	Unit
	Distance float64
}

// Extractor turns a source locator into ordered page texts.
// A missing or unreadable source must be reported with ErrSourceNotFound.
type Extractor interface {
	Extract(ctx context.Context, locator string) ([]string, error)
}

// Chunker splits free text into unit-sized pieces.
type Chunker interface {
	Split(text string) []string
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Role of a chat message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation sent to the completion service.
type Message struct {
	Role    Role
	Content string
}

// Turn is a past exchange shown in the chat history.
type Turn struct {
	User      string
	Assistant string
}

// RetrievalService defines the operations exposed by the application core.
type RetrievalService interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
	Matches(ctx context.Context, query string, k int) ([]RankedUnit, error)
	Summary() string
}
