package parser_test

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/stressdash/internal/parser"
)

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeXLSXMatchesCSV(t *testing.T) {
	data := workbook(t, [][]any{
		{"Age", "Stress Level", "Gender"},
		{20, 7, "F"},
		{21, 6},
		{22, 5, "F"},
	})
	// sniffed by content even without an extension
	x, err := parser.Decode("upload", data)
	if err != nil {
		t.Fatalf("decode xlsx: %v", err)
	}
	c, err := parser.Decode("same.csv", []byte("Age,Stress Level,Gender\n20,7,F\n21,6,\n22,5,F\n"))
	if err != nil {
		t.Fatalf("decode csv: %v", err)
	}
	if x.Rows() != c.Rows() {
		t.Fatalf("rows xlsx=%d csv=%d", x.Rows(), c.Rows())
	}
	for i, name := range c.Columns() {
		if x.Columns()[i] != name {
			t.Fatalf("column %d: xlsx=%q csv=%q", i, x.Columns()[i], name)
		}
		xc, _ := x.Column(name)
		cc, _ := c.Column(name)
		if xc.Kind() != cc.Kind() || xc.Missing() != cc.Missing() {
			t.Fatalf("column %s differs: %s/%d vs %s/%d", name, xc.Kind(), xc.Missing(), cc.Kind(), cc.Missing())
		}
	}
}

func TestDecodeXLSXGarbage(t *testing.T) {
	_, err := parser.Decode("broken.xlsx", []byte("PK\x03\x04not really a zip"))
	var me *parser.MalformedError
	if !errors.As(err, &me) || me.Format != "xlsx" {
		t.Fatalf("expected xlsx MalformedError, got %v", err)
	}
}
