package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/KaramelBytes/stressdash/internal/dataset"
)

// Decoder turns raw source bytes into a Table.
type Decoder interface {
	CanDecode(name string, data []byte) bool
	Decode(name string, data []byte) (*dataset.Table, error)
}

var registry []Decoder

// Register adds a decoder implementation to the registry. Decoders are
// consulted in registration order.
func Register(d Decoder) {
	registry = append(registry, d)
}

// ForSource selects a decoder based on the source name and a sniff of its
// content. CSV is the fallback.
func ForSource(name string, data []byte) Decoder {
	for _, d := range registry {
		if d.CanDecode(name, data) {
			return d
		}
	}
	return csvDecoder{}
}

// Decode parses data from the named source into a Table. Any parse failure is
// returned as a *MalformedError.
func Decode(name string, data []byte) (*dataset.Table, error) {
	return ForSource(name, data).Decode(name, data)
}

// MalformedError indicates fetched content could not be read as a table.
type MalformedError struct {
	Source string
	Format string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("malformed %s data from %s: %v", e.Format, e.Source, e.Err)
	}
	return fmt.Sprintf("malformed %s data: %v", e.Format, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// baseName extracts the file name from a path or URL, ignoring query strings.
func baseName(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Host != "" {
		name = u.Path
	}
	return strings.ToLower(path.Base(name))
}

var zipMagic = []byte("PK\x03\x04")

func init() {
	Register(xlsxDecoder{})
	Register(csvDecoder{})
}

func looksLikeZip(data []byte) bool { return bytes.HasPrefix(data, zipMagic) }
