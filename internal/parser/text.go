package parser

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cre-extract/internal/model"
)

// pageBreak separates pages in plain-text exports of parsed documents.
const pageBreak = "\f"

// TextParser handles plain-text documents. Form-feed characters delimit
// pages when present; otherwise the whole document is one page.
type TextParser struct{}

func (p *TextParser) Name() string { return "text" }

func (p *TextParser) Parse(_ context.Context, data []byte) (*model.ParseResult, error) {
	if !utf8.Valid(data) {
		return nil, eris.New("text: document is not valid UTF-8")
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, eris.New("text: document is empty")
	}

	var pages []model.ParsedPage
	for i, chunk := range strings.Split(text, pageBreak) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		pages = append(pages, model.ParsedPage{Number: i + 1, Text: chunk})
	}

	return &model.ParseResult{
		Text:     strings.ReplaceAll(text, pageBreak, "\n"),
		Pages:    pages,
		Metadata: model.ParseMetadata{Parser: p.Name()},
	}, nil
}
