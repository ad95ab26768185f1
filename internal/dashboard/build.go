package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/stressdash/internal/analysis"
	"github.com/KaramelBytes/stressdash/internal/dataset"
)

// Options tunes page construction.
type Options struct {
	Analysis      analysis.Options
	HistogramBins int
	PreviewRows   int
}

// DefaultOptions uses 20 histogram bins and a five-row preview.
func DefaultOptions() Options {
	return Options{Analysis: analysis.DefaultOptions(), HistogramBins: 20, PreviewRows: 5}
}

// PanelResult is a built panel. Data holds the series for Kind.
type PanelResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
	Data  any    `json:"data"`
}

// Notice records a panel that was not built because its inputs are absent.
type Notice struct {
	Panel  string `json:"panel"`
	Reason string `json:"reason"`
}

// PageResult is everything needed to render one page.
type PageResult struct {
	Page           string        `json:"page"`
	Title          string        `json:"title"`
	Objective      string        `json:"objective,omitempty"`
	Interpretation string        `json:"interpretation,omitempty"`
	Source         string        `json:"source"`
	Snapshot       string        `json:"snapshot"`
	Rows           int           `json:"rows"`
	Target         string        `json:"target,omitempty"`
	Panels         []PanelResult `json:"panels"`
	Skipped        []Notice      `json:"skipped,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
}

type buildCtx struct {
	table   *dataset.Table
	target  string
	deriver *analysis.Deriver
	opt     Options
}

type builder func(bc *buildCtx) (any, error)

// Build evaluates one page against a table. Panels whose columns are missing
// are skipped with a notice, and a panel that fails to compute becomes a
// warning; neither aborts the page. The only error is an unknown page name.
func Build(name string, t *dataset.Table, opt Options) (*PageResult, error) {
	page, ok := Lookup(name)
	if !ok {
		return nil, &UnknownPageError{Name: name}
	}
	if opt.HistogramBins <= 0 {
		opt.HistogramBins = 20
	}
	if opt.PreviewRows <= 0 {
		opt.PreviewRows = 5
	}
	res := &PageResult{
		Page:           page.Name,
		Title:          page.Title,
		Objective:      page.Objective,
		Interpretation: page.Interpretation,
		Source:         t.Source(),
		Snapshot:       t.ID(),
		Rows:           t.Rows(),
		Panels:         []PanelResult{},
	}

	bc := &buildCtx{table: t, opt: opt}
	var targetErr error
	if target, ok := analysis.ResolveTarget(t); ok {
		bc.target = target
		res.Target = target
		bc.deriver, targetErr = analysis.NewDeriver(t, target, opt.Analysis)
	} else {
		targetErr = analysis.ErrNoTarget
	}

	for _, p := range page.PanelsFor(opt) {
		if reason := bc.unmet(p, targetErr); reason != "" {
			res.Skipped = append(res.Skipped, Notice{Panel: p.ID, Reason: reason})
			continue
		}
		data, err := p.build(bc)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", p.ID, err))
			continue
		}
		res.Panels = append(res.Panels, PanelResult{ID: p.ID, Title: p.Title, Kind: p.Kind, Data: data})
	}
	return res, nil
}

// unmet returns why p cannot be built, or "" when its requirements hold.
func (bc *buildCtx) unmet(p Panel, targetErr error) string {
	var missing []string
	needsTarget := false
	for _, col := range p.Requires {
		if col == Target {
			needsTarget = true
			continue
		}
		if !bc.table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if needsTarget && targetErr != nil {
		return targetErr.Error()
	}
	if len(missing) > 0 {
		return "missing column(s): " + strings.Join(missing, ", ")
	}
	if len(p.AnyOf) > 0 {
		if n := len(bc.present(p.AnyOf)); n < p.MinOf {
			return fmt.Sprintf("needs at least %d of: %s (found %d)", p.MinOf, strings.Join(bc.display(p.AnyOf), ", "), n)
		}
	}
	return ""
}

// present resolves the placeholder and returns the listed columns that exist.
func (bc *buildCtx) present(cols []string) []string {
	var out []string
	for _, c := range cols {
		if c == Target {
			if bc.deriver != nil {
				out = append(out, bc.target)
			}
			continue
		}
		if bc.table.HasColumn(c) {
			out = append(out, dataset.CanonicalName(c))
		}
	}
	return dedupe(out)
}

func (bc *buildCtx) display(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if c == Target {
			c = "stress column"
		}
		out[i] = c
	}
	return out
}

func dedupe(xs []string) []string {
	seen := map[string]bool{}
	out := xs[:0]
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// Preview is the first rows of the table with the header as loaded.
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

func buildPreview(bc *buildCtx) (any, error) {
	cols := make([]string, bc.table.NumColumns())
	for i := range cols {
		cols[i] = bc.table.ColumnAt(i).Original()
	}
	return Preview{Columns: cols, Rows: bc.table.Head(bc.opt.PreviewRows)}, nil
}

func buildSummary(bc *buildCtx) (any, error) {
	return analysis.Summarize(bc.table), nil
}

func buildTargetHistogram(bc *buildCtx) (any, error) {
	return analysis.HistogramOf(bc.table, bc.target, bc.opt.HistogramBins)
}

func groupMeansOf(col string) builder {
	return func(bc *buildCtx) (any, error) {
		gm, err := bc.deriver.GroupMeans(col)
		if err != nil {
			return nil, err
		}
		return analysis.GroupSeries{Column: dataset.CanonicalName(col), Groups: gm}, nil
	}
}

// XYSeries is a named point series. Trend is set for scatters drawn with a
// fitted line.
type XYSeries struct {
	X      string           `json:"x"`
	Y      string           `json:"y"`
	Points []analysis.Point `json:"points"`
	Trend  *analysis.Trend  `json:"trend,omitempty"`
}

func buildAgeLine(bc *buildCtx) (any, error) {
	pts, err := analysis.SortedByX(bc.table, "age", bc.target)
	if err != nil {
		return nil, err
	}
	return XYSeries{X: "age", Y: bc.target, Points: pts}, nil
}

func scatterOf(x string) builder {
	return func(bc *buildCtx) (any, error) {
		pts, err := analysis.Scatter(bc.table, x, bc.target)
		if err != nil {
			return nil, err
		}
		return XYSeries{X: dataset.CanonicalName(x), Y: bc.target, Points: pts}, nil
	}
}

func buildTargetCorrelation(bc *buildCtx) (any, error) {
	return bc.deriver.CorrelationWithTarget(), nil
}

// buildFactorScatter pairs every other numeric column with the target and fits
// an OLS trend where x varies. Columns that share no complete rows with the
// target are left out.
func buildFactorScatter(bc *buildCtx) (any, error) {
	var out []XYSeries
	for _, col := range bc.table.NumericColumns() {
		if col == bc.target {
			continue
		}
		pts, err := analysis.Scatter(bc.table, col, bc.target)
		if errors.Is(err, analysis.ErrInsufficientData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		series := XYSeries{X: col, Y: bc.target, Points: pts}
		if tr, err := analysis.FitTrend(pts); err == nil {
			series.Trend = &tr
		}
		out = append(out, series)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no numeric columns besides %s", analysis.ErrInsufficientData, bc.target)
	}
	return out, nil
}

func buildHeatmap(bc *buildCtx) (any, error) {
	m := analysis.CorrelationMatrix(bc.table)
	if len(m.Columns) == 0 {
		return nil, fmt.Errorf("%w: no numeric columns", analysis.ErrInsufficientData)
	}
	return m, nil
}

// PairGrid holds the diagonal histograms and off-diagonal scatters of a
// scatter-matrix over a few columns.
type PairGrid struct {
	Columns    []string             `json:"columns"`
	Histograms []analysis.Histogram `json:"histograms"`
	Scatters   []XYSeries           `json:"scatters"`
}

func buildPairGrid(bc *buildCtx) (any, error) {
	cols := bc.present([]string{"gpa", "study_hours", Target})
	grid := PairGrid{Columns: cols}
	for _, c := range cols {
		h, err := analysis.HistogramOf(bc.table, c, bc.opt.HistogramBins)
		if err != nil {
			return nil, err
		}
		grid.Histograms = append(grid.Histograms, h)
	}
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			pts, err := analysis.Scatter(bc.table, cols[i], cols[j])
			if err != nil {
				return nil, err
			}
			grid.Scatters = append(grid.Scatters, XYSeries{X: cols[i], Y: cols[j], Points: pts})
		}
	}
	return grid, nil
}

func buildActivityBox(bc *buildCtx) (any, error) {
	return analysis.BoxStats(bc.table, "physical_activity", bc.target)
}

func buildLifestyle3D(bc *buildCtx) (any, error) {
	return analysis.Scatter3D(bc.table, "sleep_duration", "physical_activity", bc.target)
}

// Assessment is the headline metric of the recommendations page.
type Assessment struct {
	Mean     float64       `json:"mean"`
	Tier     analysis.Tier `json:"tier"`
	Headline string        `json:"headline"`
	Advice   []string      `json:"advice"`
}

func buildAverage(bc *buildCtx) (any, error) {
	mean, err := bc.deriver.OverallMean()
	if err != nil {
		return nil, err
	}
	tier := bc.opt.Analysis.Thresholds.Classify(mean)
	return Assessment{Mean: mean, Tier: tier, Headline: tier.Headline(), Advice: analysis.Recommendations(tier)}, nil
}
