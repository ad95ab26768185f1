package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/stressdash/internal/dataset"
)

// ColumnSummary captures the declared type and descriptive statistics of a column.
type ColumnSummary struct {
	Name     string       `json:"name"`
	Original string       `json:"original"`
	Kind     dataset.Kind `json:"kind"`
	NonNull  int          `json:"non_null"`
	Missing  int          `json:"missing"`
	// Numeric stats; zero when NonNull == 0
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Mean   float64 `json:"mean,omitempty"`
	Median float64 `json:"median,omitempty"`
	Std    float64 `json:"std,omitempty"`
	// Text columns
	Unique    int             `json:"unique,omitempty"`
	TopValues []CategoryCount `json:"top_values,omitempty"`
}

type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

const maxTopValues = 8

// Summarize describes every column in table order.
func Summarize(t *dataset.Table) []ColumnSummary {
	out := make([]ColumnSummary, 0, t.NumColumns())
	for i := 0; i < t.NumColumns(); i++ {
		out = append(out, summarizeColumn(t.ColumnAt(i)))
	}
	return out
}

func summarizeColumn(c *dataset.Column) ColumnSummary {
	s := ColumnSummary{Name: c.Name(), Original: c.Original(), Kind: c.Kind(), NonNull: c.NonNull(), Missing: c.Missing()}
	if c.IsNumeric() {
		data := stats.Float64Data(c.Present())
		if len(data) == 0 {
			return s
		}
		s.Min, _ = stats.Min(data)
		s.Max, _ = stats.Max(data)
		s.Mean, _ = stats.Mean(data)
		s.Median, _ = stats.Median(data)
		if len(data) > 1 {
			s.Std, _ = stats.StandardDeviationSample(data)
		}
		return s
	}
	counts := map[string]int{}
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.Text(i); ok {
			counts[v]++
		}
	}
	s.Unique = len(counts)
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > maxTopValues {
		tops = tops[:maxTopValues]
	}
	s.TopValues = tops
	return s
}

// quantile interpolates linearly between closest ranks of an ascending slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	v := sorted[lo] + (sorted[hi]-sorted[lo])*w
	return math.Min(math.Max(v, sorted[lo]), sorted[hi])
}
