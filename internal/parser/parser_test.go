package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	r := DefaultRegistry()

	p, err := r.Resolve("text/plain")
	require.NoError(t, err)
	assert.Equal(t, "text", p.Name())

	p, err = r.Resolve("text/csv; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "csv", p.Name())

	// Prefix pattern catches other text subtypes.
	p, err = r.Resolve("text/markdown")
	require.NoError(t, err)
	assert.Equal(t, "text", p.Name())

	p, err = r.Resolve("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", p.Name())

	_, err = r.Resolve("application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parser registered")
}

func TestTextParser(t *testing.T) {
	p := &TextParser{}

	res, err := p.Parse(context.Background(), []byte("LEASE AGREEMENT\fpage two content"))
	require.NoError(t, err)
	assert.Len(t, res.Pages, 2)
	assert.Equal(t, 1, res.Pages[0].Number)
	assert.Contains(t, res.Text, "LEASE AGREEMENT")
	assert.Contains(t, res.Text, "page two content")
	assert.Equal(t, "text", res.Metadata.Parser)

	_, err = p.Parse(context.Background(), []byte("   \n  "))
	require.Error(t, err)

	_, err = p.Parse(context.Background(), []byte{0xff, 0xfe, 0x01})
	require.Error(t, err)
}

func TestCSVParser(t *testing.T) {
	p := &CSVParser{}

	data := []byte("unit,tenant,rent\n101,Acme Corp,2500\n102,,0\n")
	res, err := p.Parse(context.Background(), data)
	require.NoError(t, err)

	require.Len(t, res.Tables, 1)
	assert.Equal(t, [][]string{
		{"unit", "tenant", "rent"},
		{"101", "Acme Corp", "2500"},
		{"102", "", "0"},
	}, res.Tables[0].Rows)
	assert.Contains(t, res.Text, "101 | Acme Corp | 2500")

	_, err = p.Parse(context.Background(), []byte(""))
	require.Error(t, err)
}
