package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/stressdash/internal/dataset"
)

// DefaultGroupColumns are the optional categorical columns the stress mean is
// broken down by when present.
var DefaultGroupColumns = []string{"gender", "course_load"}

// Options controls which derived metrics are computed.
type Options struct {
	Thresholds   Thresholds
	GroupColumns []string
}

// DefaultOptions returns the default thresholds and grouping columns.
func DefaultOptions() Options {
	return Options{
		Thresholds:   DefaultThresholds(),
		GroupColumns: append([]string(nil), DefaultGroupColumns...),
	}
}

// Deriver computes aggregates of one table around its target column. It holds
// no mutable state; every method is a pure function of the table.
type Deriver struct {
	table  *dataset.Table
	target *dataset.Column
	opt    Options
}

// NewDeriver binds a table and a resolved target column.
func NewDeriver(t *dataset.Table, target string, opt Options) (*Deriver, error) {
	if t == nil || target == "" {
		return nil, ErrNoTarget
	}
	col, ok := t.Column(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTarget, target)
	}
	if !col.IsNumeric() {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotNumeric, target)
	}
	return &Deriver{table: t, target: col, opt: opt}, nil
}

// Target returns the canonical name of the target column.
func (d *Deriver) Target() string { return d.target.Name() }

// OverallMean is the arithmetic mean of the non-missing target values. An empty
// or all-missing target yields ErrInsufficientData.
func (d *Deriver) OverallMean() (float64, error) {
	vals := d.target.Present()
	if len(vals) == 0 {
		return math.NaN(), fmt.Errorf("%w: %s has no values", ErrInsufficientData, d.target.Name())
	}
	return stat.Mean(vals, nil), nil
}

// GroupMean is the target mean for one distinct value of a grouping column.
type GroupMean struct {
	Group string  `json:"group"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// GroupMeans averages the target per distinct non-missing value of col. Rows
// whose group or target is missing are skipped; groups are ordered by key,
// numerically for numeric columns.
func (d *Deriver) GroupMeans(col string) ([]GroupMean, error) {
	g, ok := d.table.Column(col)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
	}
	type acc struct {
		sum float64
		n   int
	}
	groups := map[string]*acc{}
	for i := 0; i < d.table.Rows(); i++ {
		key, ok := g.Key(i)
		if !ok {
			continue
		}
		y, ok := d.target.Float(i)
		if !ok {
			continue
		}
		a := groups[key]
		if a == nil {
			a = &acc{}
			groups[key] = a
		}
		a.sum += y
		a.n++
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no complete rows for %s", ErrInsufficientData, g.Name())
	}
	out := make([]GroupMean, 0, len(groups))
	for k, a := range groups {
		out = append(out, GroupMean{Group: k, Mean: a.sum / float64(a.n), Count: a.n})
	}
	sortGroups(out, g.IsNumeric())
	return out, nil
}

func sortGroups(gs []GroupMean, numeric bool) {
	sort.Slice(gs, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseFloat(gs[i].Group, 64)
			b, _ := strconv.ParseFloat(gs[j].Group, 64)
			if a != b {
				return a < b
			}
		}
		return gs[i].Group < gs[j].Group
	})
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
}

// At returns the coefficient for two named columns.
func (m CorrMatrix) At(a, b string) (float64, bool) {
	i, j := indexOf(m.Columns, a), indexOf(m.Columns, b)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Values[i][j], true
}

// CorrelationMatrix computes pairwise Pearson correlations over all numeric
// columns using pairwise complete observations: each pair uses only rows where
// both values are present. A pair with fewer than two complete rows or zero
// variance on either side is NaN. The diagonal is fixed at 1.
func (d *Deriver) CorrelationMatrix() CorrMatrix {
	return CorrelationMatrix(d.table)
}

// CorrelationMatrix is the table-level form, usable without a target column.
func CorrelationMatrix(t *dataset.Table) CorrMatrix {
	var (
		names []string
		cols  []*dataset.Column
	)
	for i := 0; i < t.NumColumns(); i++ {
		if c := t.ColumnAt(i); c.IsNumeric() {
			names = append(names, c.Name())
			cols = append(cols, c)
		}
	}
	n := len(names)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			r := pairwisePearson(cols[a], cols[b], t.Rows())
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return CorrMatrix{Columns: names, Values: mat}
}

func pairwisePearson(x, y *dataset.Column, rows int) float64 {
	xs := make([]float64, 0, rows)
	ys := make([]float64, 0, rows)
	for i := 0; i < rows; i++ {
		xv, ok1 := x.Float(i)
		yv, ok2 := y.Float(i)
		if ok1 && ok2 {
			xs = append(xs, xv)
			ys = append(ys, yv)
		}
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	if stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// MarshalJSON encodes NaN coefficients as null.
func (m CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]*float64, len(m.Values))
	for i, row := range m.Values {
		vals[i] = make([]*float64, len(row))
		for j := range row {
			vals[i][j] = finite(row[j])
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
	}{m.Columns, vals})
}

// Correlation is one entry of the target's correlation row.
type Correlation struct {
	Column string  `json:"column"`
	R      float64 `json:"r"`
}

// CorrelationWithTarget returns the target's row of the correlation matrix
// sorted by descending coefficient. The target's own entry (1.0) is included
// and placed first; NaN coefficients sort last; ties break by column name.
func (d *Deriver) CorrelationWithTarget() []Correlation {
	m := d.CorrelationMatrix()
	ti := indexOf(m.Columns, d.target.Name())
	if ti < 0 {
		return nil
	}
	out := make([]Correlation, len(m.Columns))
	for j, c := range m.Columns {
		out[j] = Correlation{Column: c, R: m.Values[ti][j]}
	}
	target := d.target.Name()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if at, bt := a.Column == target, b.Column == target; at != bt {
			return at
		}
		an, bn := math.IsNaN(a.R), math.IsNaN(b.R)
		if an != bn {
			return bn
		}
		if a.R != b.R && !an {
			return a.R > b.R
		}
		return a.Column < b.Column
	})
	return out
}

// MarshalJSON encodes a NaN coefficient as null.
func (c Correlation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Column string   `json:"column"`
		R      *float64 `json:"r"`
	}{c.Column, finite(c.R)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// GroupSeries is the per-group breakdown for one grouping column.
type GroupSeries struct {
	Column string      `json:"column"`
	Groups []GroupMean `json:"groups"`
}

// Metrics bundles every derived aggregate for one request.
type Metrics struct {
	Target             string        `json:"target"`
	Mean               float64       `json:"mean"`
	HasMean            bool          `json:"has_mean"`
	Tier               Tier          `json:"tier,omitempty"`
	GroupMeans         []GroupSeries `json:"group_means,omitempty"`
	Correlations       CorrMatrix    `json:"correlations"`
	TargetCorrelations []Correlation `json:"target_correlations"`
}

// Derive computes all metrics. A failing metric becomes a warning and does not
// prevent the others; grouping columns absent from the table are skipped
// silently.
func (d *Deriver) Derive() (*Metrics, []string) {
	m := &Metrics{Target: d.target.Name()}
	var warnings []string
	if mean, err := d.OverallMean(); err != nil {
		warnings = append(warnings, err.Error())
	} else {
		m.Mean = mean
		m.HasMean = true
		m.Tier = d.opt.Thresholds.Classify(mean)
	}
	for _, col := range d.opt.GroupColumns {
		if !d.table.HasColumn(col) {
			continue
		}
		gm, err := d.GroupMeans(col)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		m.GroupMeans = append(m.GroupMeans, GroupSeries{Column: dataset.CanonicalName(col), Groups: gm})
	}
	m.Correlations = d.CorrelationMatrix()
	m.TargetCorrelations = d.CorrelationWithTarget()
	return m, warnings
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
