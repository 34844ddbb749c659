package parser

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func buildWorkbook(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, cells := range rows {
			row := sheet.AddRow()
			for _, v := range cells {
				row.AddCell().SetString(v)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestXLSXParser(t *testing.T) {
	p := &XLSXParser{}

	data := buildWorkbook(t, map[string][][]string{
		"Rent Roll": {
			{"unit", "tenant", "rent"},
			{"101", "Acme Corp", "2500"},
		},
	})

	res, err := p.Parse(context.Background(), data)
	require.NoError(t, err)

	require.Len(t, res.Pages, 1)
	assert.Equal(t, 1, res.Pages[0].Number)
	assert.Contains(t, res.Pages[0].Text, "Rent Roll")
	assert.Contains(t, res.Text, "101 | Acme Corp | 2500")

	require.Len(t, res.Tables, 1)
	assert.Equal(t, [][]string{
		{"unit", "tenant", "rent"},
		{"101", "Acme Corp", "2500"},
	}, res.Tables[0].Rows)
	assert.Equal(t, "xlsx", res.Metadata.Parser)
}

func TestXLSXParser_SkipsEmptySheets(t *testing.T) {
	p := &XLSXParser{}

	f := xlsx.NewFile()
	blank, err := f.AddSheet("Cover")
	require.NoError(t, err)
	// Rows whose cells are all empty count as blank too.
	row := blank.AddRow()
	row.AddCell().SetString("")
	row.AddCell().SetString("")

	populated, err := f.AddSheet("Summary")
	require.NoError(t, err)
	r := populated.AddRow()
	r.AddCell().SetString("noi")
	r.AddCell().SetString("700000")

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	res, err := p.Parse(context.Background(), buf.Bytes())
	require.NoError(t, err)

	require.Len(t, res.Pages, 1)
	// Page numbering follows sheet position, not the count of kept sheets.
	assert.Equal(t, 2, res.Pages[0].Number)
	assert.Contains(t, res.Pages[0].Text, "Summary")
	assert.NotContains(t, res.Text, "Cover")
}

func TestXLSXParser_NoPopulatedSheets(t *testing.T) {
	p := &XLSXParser{}

	data := buildWorkbook(t, map[string][][]string{"Blank": nil})

	_, err := p.Parse(context.Background(), data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no populated sheets")
}

func TestXLSXParser_InvalidData(t *testing.T) {
	p := &XLSXParser{}

	_, err := p.Parse(context.Background(), []byte("not a zip archive"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open")
}
