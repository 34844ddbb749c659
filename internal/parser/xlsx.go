package parser

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cre-extract/internal/model"
)

// XLSXParser handles spreadsheet rent rolls. Each sheet becomes one page and
// one table; empty sheets are skipped.
type XLSXParser struct{}

func (p *XLSXParser) Name() string { return "xlsx" }

func (p *XLSXParser) Parse(_ context.Context, data []byte) (*model.ParseResult, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open")
	}

	result := &model.ParseResult{
		Metadata: model.ParseMetadata{Parser: p.Name()},
	}

	for i, sheet := range f.Sheets {
		var rows [][]string
		for _, row := range sheet.Rows {
			cells := make([]string, len(row.Cells))
			empty := true
			for j, cell := range row.Cells {
				cells[j] = cell.String()
				if cells[j] != "" {
					empty = false
				}
			}
			if !empty {
				rows = append(rows, cells)
			}
		}
		if len(rows) == 0 {
			continue
		}

		text := sheet.Name + "\n" + flattenRows(rows)
		result.Pages = append(result.Pages, model.ParsedPage{Number: i + 1, Text: text})
		result.Tables = append(result.Tables, model.ParsedTable{Page: i + 1, Rows: rows})
		if result.Text != "" {
			result.Text += "\n"
		}
		result.Text += text
	}

	if len(result.Pages) == 0 {
		return nil, eris.New("xlsx: workbook has no populated sheets")
	}
	return result, nil
}
