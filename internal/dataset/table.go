package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the declared type of a column, inferred from its content at load time.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
)

// missingTokens are cell values treated as missing after trimming.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"-":    {},
}

// IsMissing reports whether a raw cell value denotes a missing value.
func IsMissing(raw string) bool {
	_, ok := missingTokens[strings.TrimSpace(raw)]
	return ok
}

// Column is a named, typed sequence of values. Columns are never mutated after
// the owning Table is built.
type Column struct {
	name     string
	original string
	kind     Kind
	raw      []string
	nums     []float64 // NaN where missing; nil for text columns
	valid    []bool
	missing  int
}

func (c *Column) Name() string { return c.name }
func (c *Column) Original() string { return c.original }
func (c *Column) Kind() Kind { return c.kind }
func (c *Column) Len() int { return len(c.raw) }
func (c *Column) Missing() int { return c.missing }
func (c *Column) NonNull() int { return len(c.raw) - c.missing }
func (c *Column) IsNumeric() bool { return c.kind == KindNumeric }

// Float returns the numeric value at row i. ok is false for missing cells and
// for text columns.
func (c *Column) Float(i int) (v float64, ok bool) {
	if c.kind != KindNumeric || i < 0 || i >= len(c.raw) || !c.valid[i] {
		return math.NaN(), false
	}
	return c.nums[i], true
}

// Text returns the trimmed cell at row i; ok is false when the cell is missing.
func (c *Column) Text(i int) (string, bool) {
	if i < 0 || i >= len(c.raw) || !c.valid[i] {
		return "", false
	}
	return strings.TrimSpace(c.raw[i]), true
}

// Key renders row i as a grouping key. Numeric cells use %g so that 1 and 1.0
// fall into the same group.
func (c *Column) Key(i int) (string, bool) {
	if c.kind == KindNumeric {
		v, ok := c.Float(i)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(v, 'g', -1, 64), true
	}
	return c.Text(i)
}

// Floats returns a copy of the numeric values with NaN for missing cells.
func (c *Column) Floats() []float64 {
	if c.kind != KindNumeric {
		return nil
	}
	out := make([]float64, len(c.nums))
	copy(out, c.nums)
	return out
}

// Present returns only the non-missing numeric values, in row order.
func (c *Column) Present() []float64 {
	if c.kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.nums)-c.missing)
	for i, v := range c.nums {
		if c.valid[i] {
			out = append(out, v)
		}
	}
	return out
}

// Raw returns the cell as read from the source.
func (c *Column) Raw(i int) string {
	if i < 0 || i >= len(c.raw) {
		return ""
	}
	return c.raw[i]
}

// Table is an immutable, column-oriented snapshot of a dataset. It is safe for
// concurrent readers.
type Table struct {
	id       string
	source   string
	loadedAt time.Time
	cols     []*Column
	index    map[string]int
	rows     int
}

// New builds a Table from a header and data records. Column names are
// canonicalized here and nowhere else. Every record must have exactly
// len(header) fields.
func New(source string, header []string, records [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("no columns in header")
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, &RowError{Row: i + 1, Got: len(rec), Want: len(header)}
		}
	}
	t := &Table{
		id:       uuid.NewString(),
		source:   source,
		loadedAt: time.Now(),
		cols:     make([]*Column, len(header)),
		index:    make(map[string]int, len(header)),
		rows:     len(records),
	}
	for j, h := range header {
		raw := make([]string, len(records))
		for i, rec := range records {
			raw[i] = rec[j]
		}
		col := buildColumn(CanonicalName(h), h, raw)
		t.cols[j] = col
		// duplicates resolve to the first occurrence
		if _, dup := t.index[col.name]; !dup {
			t.index[col.name] = j
		}
	}
	return t, nil
}

func buildColumn(name, original string, raw []string) *Column {
	c := &Column{name: name, original: original, raw: raw, valid: make([]bool, len(raw))}
	nums := make([]float64, len(raw))
	numeric := true
	for i, cell := range raw {
		if IsMissing(cell) {
			nums[i] = math.NaN()
			continue
		}
		c.valid[i] = true
		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			numeric = false
			continue
		}
		nums[i] = f
	}
	if numeric {
		c.kind = KindNumeric
		c.nums = nums
		// ParseFloat accepts inf and nan in any case; those cells are missing.
		for i, v := range nums {
			if c.valid[i] && (math.IsNaN(v) || math.IsInf(v, 0)) {
				c.valid[i] = false
				nums[i] = math.NaN()
			}
		}
	} else {
		c.kind = KindText
	}
	for _, ok := range c.valid {
		if !ok {
			c.missing++
		}
	}
	return c
}

func (t *Table) ID() string { return t.id }
func (t *Table) Source() string { return t.source }
func (t *Table) LoadedAt() time.Time { return t.loadedAt }
func (t *Table) Rows() int { return t.rows }
func (t *Table) NumColumns() int { return len(t.cols) }

// Columns returns the canonical column names in table order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// ColumnAt returns the i-th column in table order.
func (t *Table) ColumnAt(i int) *Column {
	if i < 0 || i >= len(t.cols) {
		return nil
	}
	return t.cols[i]
}

// HasColumn reports whether the table has a column with the given name. The
// name is canonicalized before lookup.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[CanonicalName(name)]
	return ok
}

// HasColumns reports whether every named column is present.
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if !t.HasColumn(n) {
			return false
		}
	}
	return true
}

// Column looks up a column by (canonicalized) name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[CanonicalName(name)]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// NumericColumns returns the names of numeric columns in table order.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.cols {
		if c.kind == KindNumeric {
			out = append(out, c.name)
		}
	}
	return out
}

// Head returns up to n rows as raw cells.
func (t *Table) Head(n int) [][]string {
	if n > t.rows {
		n = t.rows
	}
	if n <= 0 {
		return nil
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.cols))
		for j, c := range t.cols {
			row[j] = c.Raw(i)
		}
		out[i] = row
	}
	return out
}

// RowError reports a record whose field count differs from the header.
type RowError struct {
	Row  int
	Got  int
	Want int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d has %d fields, want %d", e.Row, e.Got, e.Want)
}
