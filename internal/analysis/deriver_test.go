package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/KaramelBytes/stressdash/internal/dataset"
)

func mustTable(t *testing.T, header []string, records [][]string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.New("test", header, records)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return tbl
}

func mustDeriver(t *testing.T, tbl *dataset.Table) *Deriver {
	t.Helper()
	target, ok := ResolveTarget(tbl)
	if !ok {
		t.Fatalf("no target in %v", tbl.Columns())
	}
	d, err := NewDeriver(tbl, target, DefaultOptions())
	if err != nil {
		t.Fatalf("NewDeriver: %v", err)
	}
	return d
}

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestResolveTarget(t *testing.T) {
	tbl := mustTable(t, []string{"age", "Stress Level", "gender"}, [][]string{{"20", "5", "F"}})
	got, ok := ResolveTarget(tbl)
	if !ok || got != "stress_level" {
		t.Fatalf("ResolveTarget = %q, %v", got, ok)
	}

	none := mustTable(t, []string{"age", "gpa"}, [][]string{{"20", "3.0"}})
	if got, ok := ResolveTarget(none); ok {
		t.Fatalf("expected no target, got %q", got)
	}

	two := mustTable(t, []string{"peer_stress", "stress_level"}, [][]string{{"1", "2"}})
	if got, _ := ResolveTarget(two); got != "peer_stress" {
		t.Fatalf("first match should win, got %q", got)
	}
}

func TestNewDeriverRejectsTextTarget(t *testing.T) {
	tbl := mustTable(t, []string{"stress"}, [][]string{{"high"}, {"low"}})
	_, err := NewDeriver(tbl, "stress", DefaultOptions())
	if !errors.Is(err, ErrTargetNotNumeric) {
		t.Fatalf("expected ErrTargetNotNumeric, got %v", err)
	}
	if _, err := NewDeriver(tbl, "", DefaultOptions()); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
}

func TestOverallMean(t *testing.T) {
	tbl := mustTable(t, []string{"stress_level"}, [][]string{{"2"}, {"NA"}, {"4"}, {"9"}})
	mean, err := mustDeriver(t, tbl).OverallMean()
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(mean, 5, 1e-12) {
		t.Fatalf("mean = %v, want 5", mean)
	}

	empty := mustTable(t, []string{"stress_level"}, [][]string{{"NA"}, {""}})
	if _, err := mustDeriver(t, empty).OverallMean(); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestGroupMeans(t *testing.T) {
	tbl := mustTable(t, []string{"gender", "stress_level"}, [][]string{
		{"B", "6"}, {"A", "2"}, {"B", "8"}, {"A", "4"}, {"", "10"}, {"A", "NA"},
	})
	got, err := mustDeriver(t, tbl).GroupMeans("gender")
	if err != nil {
		t.Fatal(err)
	}
	want := []GroupMean{{Group: "A", Mean: 3, Count: 2}, {Group: "B", Mean: 7, Count: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("GroupMeans = %+v, want %+v", got, want)
	}

	if _, err := mustDeriver(t, tbl).GroupMeans("course_load"); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestGroupMeansNumericKeysSortNumerically(t *testing.T) {
	tbl := mustTable(t, []string{"year", "stress"}, [][]string{{"10", "1"}, {"2", "3"}, {"1", "5"}})
	got, err := mustDeriver(t, tbl).GroupMeans("year")
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, g := range got {
		keys = append(keys, g.Group)
	}
	if strings.Join(keys, ",") != "1,2,10" {
		t.Fatalf("order = %v", keys)
	}
}

func TestCorrelationMatrix(t *testing.T) {
	tbl := mustTable(t, []string{"stress", "sleep", "flat", "gender"}, [][]string{
		{"8", "4", "1", "F"},
		{"6", "6", "1", "M"},
		{"4", "7", "1", "F"},
		{"2", "9", "1", "M"},
		{"NA", "5", "1", "F"},
	})
	m := mustDeriver(t, tbl).CorrelationMatrix()
	if !reflect.DeepEqual(m.Columns, []string{"stress", "sleep", "flat"}) {
		t.Fatalf("columns = %v", m.Columns)
	}
	for i := range m.Columns {
		if m.Values[i][i] != 1 {
			t.Fatalf("diagonal[%d] = %v", i, m.Values[i][i])
		}
		for j := range m.Columns {
			a, b := m.Values[i][j], m.Values[j][i]
			if !(a == b || (math.IsNaN(a) && math.IsNaN(b))) {
				t.Fatalf("asymmetric at %d,%d: %v vs %v", i, j, a, b)
			}
			if !math.IsNaN(a) && (a < -1 || a > 1) {
				t.Fatalf("out of range at %d,%d: %v", i, j, a)
			}
		}
	}
	r, _ := m.At("stress", "sleep")
	// pairwise complete: the NA row is dropped, leaving 4 points
	want := correlation([]float64{8, 6, 4, 2}, []float64{4, 6, 7, 9})
	if !almostEqual(r, want, 1e-9) {
		t.Fatalf("r(stress, sleep) = %v, want %v", r, want)
	}
	if r, _ := m.At("stress", "flat"); !math.IsNaN(r) {
		t.Fatalf("constant column should correlate as NaN, got %v", r)
	}
}

func TestCorrelationMatrixTooFewPairs(t *testing.T) {
	tbl := mustTable(t, []string{"stress", "x"}, [][]string{{"1", "NA"}, {"2", "3"}, {"NA", "4"}})
	r, _ := CorrelationMatrix(tbl).At("stress", "x")
	if !math.IsNaN(r) {
		t.Fatalf("expected NaN with one complete pair, got %v", r)
	}
}

func TestCorrelationWithTargetOrdering(t *testing.T) {
	tbl := mustTable(t, []string{"sleep", "stress", "study", "flat"}, [][]string{
		{"9", "1", "1", "0"},
		{"7", "2", "3", "0"},
		{"6", "3", "2", "0"},
		{"3", "4", "5", "0"},
	})
	got := mustDeriver(t, tbl).CorrelationWithTarget()
	var order []string
	for _, c := range got {
		order = append(order, c.Column)
	}
	if strings.Join(order, ",") != "stress,study,sleep,flat" {
		t.Fatalf("order = %v", order)
	}
	if got[0].R != 1 {
		t.Fatalf("self correlation = %v", got[0].R)
	}
	if !math.IsNaN(got[3].R) {
		t.Fatalf("flat should be NaN, got %v", got[3].R)
	}
}

func TestClassify(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		mean float64
		want Tier
	}{
		{3.99, TierLow},
		{4.0, TierModerate},
		{5.99, TierModerate},
		{6.0, TierModerate},
		{6.01, TierHigh},
		{0, TierLow},
		{10, TierHigh},
	}
	for _, tc := range cases {
		if got := th.Classify(tc.mean); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.mean, got, tc.want)
		}
	}
	if err := (Thresholds{Low: 7, High: 3}).Validate(); err == nil {
		t.Fatal("expected inverted thresholds to fail validation")
	}
	for _, tier := range []Tier{TierLow, TierModerate, TierHigh} {
		if len(Recommendations(tier)) == 0 || tier.Headline() == "" {
			t.Fatalf("tier %s lacks advice", tier)
		}
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	tbl := mustTable(t, []string{"gender", "course_load", "stress_level", "sleep"}, [][]string{
		{"F", "heavy", "8", "5"},
		{"M", "light", "3", "8"},
		{"F", "light", "5", "7"},
		{"M", "heavy", "7", "NA"},
	})
	d := mustDeriver(t, tbl)
	a, wa := d.Derive()
	b, wb := d.Derive()
	if diff := cmp.Diff(a, b, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("Derive not deterministic (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(wa, wb); diff != "" {
		t.Fatalf("warnings differ:\n%s", diff)
	}
	if !a.HasMean || !almostEqual(a.Mean, 5.75, 1e-12) || a.Tier != TierModerate {
		t.Fatalf("unexpected headline: %+v", a)
	}
	if len(a.GroupMeans) != 2 || a.GroupMeans[0].Column != "gender" || a.GroupMeans[1].Column != "course_load" {
		t.Fatalf("group series = %+v", a.GroupMeans)
	}
}

func TestDeriveWarnsOnEmptyTarget(t *testing.T) {
	tbl := mustTable(t, []string{"stress", "gender"}, [][]string{{"NA", "F"}})
	m, warnings := mustDeriver(t, tbl).Derive()
	if m.HasMean || m.Tier != "" {
		t.Fatalf("expected no mean, got %+v", m)
	}
	if len(warnings) == 0 {
		t.Fatal("expected warnings")
	}
}

func TestCorrelationJSONEncodesNaNAsNull(t *testing.T) {
	m := CorrMatrix{Columns: []string{"a", "b"}, Values: [][]float64{{1, math.NaN()}, {math.NaN(), 1}}}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"columns":["a","b"],"values":[[1,null],[null,1]]}` {
		t.Fatalf("json = %s", b)
	}
	c, _ := json.Marshal(Correlation{Column: "x", R: math.NaN()})
	if string(c) != `{"column":"x","r":null}` {
		t.Fatalf("json = %s", c)
	}
}

// correlation is a textbook Pearson r used to cross-check the matrix.
func correlation(xs, ys []float64) float64 {
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	return sxy / math.Sqrt(sxx*syy)
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
