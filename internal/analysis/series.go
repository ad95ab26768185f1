package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/stressdash/internal/dataset"
)

// Histogram is an equal-width binning of a numeric column. Edges has one more
// element than Counts; the last bin is closed on the right.
type Histogram struct {
	Column string    `json:"column"`
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// HistogramOf bins the non-missing values of col into the given number of
// equal-width bins spanning [min, max]. A constant column collapses to one bin.
func HistogramOf(t *dataset.Table, col string, bins int) (Histogram, error) {
	c, err := numericColumn(t, col)
	if err != nil {
		return Histogram{}, err
	}
	xs := c.Present()
	if len(xs) == 0 {
		return Histogram{}, fmt.Errorf("%w: %s has no values", ErrInsufficientData, c.Name())
	}
	if bins <= 0 {
		bins = 20
	}
	sort.Float64s(xs)
	lo, hi := xs[0], xs[len(xs)-1]
	if lo == hi {
		bins = 1
	}
	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)
	// stat.Histogram uses half-open bins; nudge the last edge so max lands inside.
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	raw := stat.Histogram(nil, dividers, xs, nil)
	counts := make([]int, len(raw))
	for i, v := range raw {
		counts[i] = int(v)
	}
	return Histogram{Column: c.Name(), Edges: edges, Counts: counts}, nil
}

// Point is one complete (x, y) observation.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scatter returns the rows where both x and y are present, in row order.
func Scatter(t *dataset.Table, x, y string) ([]Point, error) {
	cx, err := numericColumn(t, x)
	if err != nil {
		return nil, err
	}
	cy, err := numericColumn(t, y)
	if err != nil {
		return nil, err
	}
	var out []Point
	for i := 0; i < t.Rows(); i++ {
		xv, ok1 := cx.Float(i)
		yv, ok2 := cy.Float(i)
		if ok1 && ok2 {
			out = append(out, Point{X: xv, Y: yv})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no complete rows for %s and %s", ErrInsufficientData, cx.Name(), cy.Name())
	}
	return out, nil
}

// SortedByX is Scatter ordered by x, stable for equal x, as drawn by a line chart.
func SortedByX(t *dataset.Table, x, y string) ([]Point, error) {
	pts, err := Scatter(t, x, y)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	return pts, nil
}

// Trend is an ordinary least squares line y = Alpha + Beta*x.
type Trend struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// FitTrend fits an OLS line through pts. It needs at least two points with
// distinct x values.
func FitTrend(pts []Point) (Trend, error) {
	if len(pts) < 2 {
		return Trend{}, fmt.Errorf("%w: %d points", ErrInsufficientData, len(pts))
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	if floats.Min(xs) == floats.Max(xs) {
		return Trend{}, fmt.Errorf("%w: x is constant", ErrInsufficientData)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Trend{Alpha: alpha, Beta: beta}, nil
}

// Point3 is one complete (x, y, z) observation.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Scatter3D returns the rows where x, y and z are all present.
func Scatter3D(t *dataset.Table, x, y, z string) ([]Point3, error) {
	var cols [3]*dataset.Column
	for i, name := range []string{x, y, z} {
		c, err := numericColumn(t, name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	var out []Point3
	for i := 0; i < t.Rows(); i++ {
		xv, ok1 := cols[0].Float(i)
		yv, ok2 := cols[1].Float(i)
		zv, ok3 := cols[2].Float(i)
		if ok1 && ok2 && ok3 {
			out = append(out, Point3{X: xv, Y: yv, Z: zv})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no complete rows for %s, %s and %s", ErrInsufficientData, x, y, z)
	}
	return out, nil
}

// Box is the five-number summary of one group.
type Box struct {
	Group  string  `json:"group"`
	N      int     `json:"n"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// BoxStats summarizes value per distinct group of groupCol. Quartiles use
// linear interpolation between closest ranks.
func BoxStats(t *dataset.Table, groupCol, valueCol string) ([]Box, error) {
	g, ok := t.Column(groupCol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, groupCol)
	}
	v, err := numericColumn(t, valueCol)
	if err != nil {
		return nil, err
	}
	byGroup := map[string][]float64{}
	for i := 0; i < t.Rows(); i++ {
		key, ok := g.Key(i)
		if !ok {
			continue
		}
		if y, ok := v.Float(i); ok {
			byGroup[key] = append(byGroup[key], y)
		}
	}
	if len(byGroup) == 0 {
		return nil, fmt.Errorf("%w: no complete rows for %s and %s", ErrInsufficientData, g.Name(), v.Name())
	}
	keys := make([]GroupMean, 0, len(byGroup))
	for k := range byGroup {
		keys = append(keys, GroupMean{Group: k})
	}
	sortGroups(keys, g.IsNumeric())
	out := make([]Box, 0, len(keys))
	for _, k := range keys {
		ys := byGroup[k.Group]
		sort.Float64s(ys)
		out = append(out, Box{
			Group:  k.Group,
			N:      len(ys),
			Min:    ys[0],
			Q1:     quantile(ys, 0.25),
			Median: quantile(ys, 0.5),
			Q3:     quantile(ys, 0.75),
			Max:    ys[len(ys)-1],
		})
	}
	return out, nil
}

func numericColumn(t *dataset.Table, name string) (*dataset.Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	if !c.IsNumeric() {
		return nil, fmt.Errorf("%w: %s is not numeric", ErrInsufficientData, c.Name())
	}
	return c, nil
}
