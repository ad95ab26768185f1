package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/stressdash/internal/dataset"
)

type csvDecoder struct{}

func (csvDecoder) CanDecode(name string, data []byte) bool {
	n := baseName(name)
	return strings.HasSuffix(n, ".csv") || strings.HasSuffix(n, ".tsv") || strings.HasSuffix(n, ".txt")
}

// Decode reads a delimited file whose first record is the header. Every data
// row must carry exactly as many fields as the header.
func (csvDecoder) Decode(name string, data []byte) (*dataset.Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &MalformedError{Source: name, Format: "csv", Err: errors.New("no columns to parse")}
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(name, data)
	r.FieldsPerRecord = 0 // enforce header width on every row

	header, err := r.Read()
	if err != nil {
		return nil, &MalformedError{Source: name, Format: "csv", Err: fmt.Errorf("read header: %w", err)}
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &MalformedError{Source: name, Format: "csv", Err: fmt.Errorf("read row %d: %w", len(records)+1, err)}
		}
		records = append(records, rec)
	}
	t, err := dataset.New(name, header, records)
	if err != nil {
		return nil, &MalformedError{Source: name, Format: "csv", Err: err}
	}
	return t, nil
}

// sniffDelimiter picks among ',', ';' and '\t' by counting occurrences in the
// header line. A .tsv name forces tabs.
func sniffDelimiter(name string, data []byte) rune {
	if strings.HasSuffix(baseName(name), ".tsv") {
		return '\t'
	}
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if c := bytes.Count(line, []byte(string(d))); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}
