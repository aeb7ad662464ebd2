package feed

import (
	"bytes"
	"context"
	"fmt"

	"github.com/beevik/etree"

	"STTIngest/internal/domain"
)

// Batch is everything a parser extracted from one payload.
type Batch struct {
	Contents  []domain.Content
	Events    []domain.Event
	Plannings []domain.Planning
	// Remove is set when the payload carries the sttinstruct:remove signal.
	Remove bool
}

// Len returns the total number of parsed items.
func (b Batch) Len() int {
	return len(b.Contents) + len(b.Events) + len(b.Plannings)
}

// Parser captures a single feed format implementation (NewsML, EventsML, PlanningML).
type Parser interface {
	Name() string
	Parse(ctx context.Context, doc *etree.Document, provider domain.IngestProvider) (Batch, error)
}

// Registry keeps a mapping from feed parser names to their implementations.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: map[string]Parser{}}
}

// Register adds or replaces a parser implementation.
func (r *Registry) Register(parser Parser) {
	if r.parsers == nil {
		r.parsers = map[string]Parser{}
	}
	r.parsers[parser.Name()] = parser
}

// Resolve returns a parser by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Parser, error) {
	if parser, ok := r.parsers[name]; ok {
		return parser, nil
	}
	return nil, fmt.Errorf("feed parser %s is not registered", name)
}

// Decode reads a raw XML payload.
func Decode(raw []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(bytes.TrimSpace(raw)); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("parse xml: empty document")
	}
	return doc, nil
}
