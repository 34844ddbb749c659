// Package parser turns raw document bytes into a ParseResult. Parsers are
// registered per mime-type pattern at construction; anything unhandled (PDF
// OCR, image scans) belongs to an external parsing service registered the
// same way.
package parser

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cre-extract/internal/model"
)

// Parser converts document bytes of a known mime type into text and tables.
type Parser interface {
	// Name identifies the parser in extraction records.
	Name() string
	Parse(ctx context.Context, data []byte) (*model.ParseResult, error)
}

// Registry resolves a Parser by mime type. Patterns are exact mime types or
// a type prefix ending in "/*" (e.g. "text/*"). Resolution happens once per
// document; no reflection, no runtime registration.
type Registry struct {
	exact    map[string]Parser
	prefixes []prefixEntry
}

type prefixEntry struct {
	prefix string
	parser Parser
}

// NewRegistry builds a registry from a pattern→parser map.
func NewRegistry(parsers map[string]Parser) *Registry {
	r := &Registry{exact: make(map[string]Parser)}
	for pattern, p := range parsers {
		if strings.HasSuffix(pattern, "/*") {
			r.prefixes = append(r.prefixes, prefixEntry{prefix: strings.TrimSuffix(pattern, "*"), parser: p})
			continue
		}
		r.exact[pattern] = p
	}
	return r
}

// DefaultRegistry returns the registry with the built-in parsers.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Parser{
		"text/plain": &TextParser{},
		"text/csv":   &CSVParser{},
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": &XLSXParser{},
		"text/*": &TextParser{},
	})
}

// Resolve returns the parser for a mime type, or an error when no parser is
// registered. Parameters after ";" in the mime type are ignored.
func (r *Registry) Resolve(mimeType string) (Parser, error) {
	mt := strings.TrimSpace(strings.ToLower(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	if p, ok := r.exact[mt]; ok {
		return p, nil
	}
	for _, e := range r.prefixes {
		if strings.HasPrefix(mt, e.prefix) {
			return e.parser, nil
		}
	}
	return nil, eris.Errorf("parser: no parser registered for mime type %q", mimeType)
}
