package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/stressdash/internal/dataset"
)

type xlsxDecoder struct{}

func (xlsxDecoder) CanDecode(name string, data []byte) bool {
	return strings.HasSuffix(baseName(name), ".xlsx") || looksLikeZip(data)
}

// Decode reads the first sheet of a workbook. Trailing empty cells dropped by
// the workbook format are padded back to the header width; rows wider than the
// header are malformed.
func (xlsxDecoder) Decode(name string, data []byte) (*dataset.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &MalformedError{Source: name, Format: "xlsx", Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &MalformedError{Source: name, Format: "xlsx", Err: errors.New("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &MalformedError{Source: name, Format: "xlsx", Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, &MalformedError{Source: name, Format: "xlsx", Err: errors.New("no columns to parse")}
	}
	header := rows[0]
	records := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, &MalformedError{Source: name, Format: "xlsx", Err: &dataset.RowError{Row: i + 1, Got: len(row), Want: len(header)}}
		}
		if len(row) < len(header) {
			padded := make([]string, len(header))
			copy(padded, row)
			row = padded
		}
		records = append(records, row)
	}
	t, err := dataset.New(name, header, records)
	if err != nil {
		return nil, &MalformedError{Source: name, Format: "xlsx", Err: err}
	}
	return t, nil
}
