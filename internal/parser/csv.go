package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cre-extract/internal/model"
)

// CSVParser handles CSV rent rolls and similar tabular exports. The table is
// kept structured and also flattened to pipe-delimited text so the extractor
// can read it like prose.
type CSVParser struct{}

func (p *CSVParser) Name() string { return "csv" }

func (p *CSVParser) Parse(_ context.Context, data []byte) (*model.ParseResult, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // rent rolls are rarely rectangular
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "csv: read")
	}
	if len(rows) == 0 {
		return nil, eris.New("csv: document is empty")
	}

	return &model.ParseResult{
		Text:     flattenRows(rows),
		Pages:    []model.ParsedPage{{Number: 1, Text: flattenRows(rows)}},
		Tables:   []model.ParsedTable{{Page: 1, Rows: rows}},
		Metadata: model.ParseMetadata{Parser: p.Name()},
	}, nil
}

// flattenRows renders table rows as pipe-delimited lines.
func flattenRows(rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	return b.String()
}
