package dashboard

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/stressdash/internal/dataset"
)

// Target is the placeholder used in panel requirements for the resolved
// stress column, whatever its actual name.
const Target = "$target"

// Panel kinds, used by renderers to pick a chart type.
const (
	KindTable     = "table"
	KindHistogram = "histogram"
	KindBar       = "bar"
	KindLine      = "line"
	KindScatter   = "scatter"
	KindHeatmap   = "heatmap"
	KindPairGrid  = "pair_grid"
	KindBox       = "box"
	KindScatter3D = "scatter3d"
	KindMetric    = "metric"
)

// Panel is one visualization on a page. A panel is built only when every
// column in Requires is present; when AnyOf is set, at least MinOf of those
// columns must be present instead.
type Panel struct {
	ID       string
	Title    string
	Kind     string
	Requires []string
	AnyOf    []string
	MinOf    int

	build builder
}

// Page is a named, ordered list of panels. A page with Breakdowns also gets
// one bar panel per configured grouping column, after its fixed panels.
type Page struct {
	Name           string
	Title          string
	Objective      string
	Interpretation string
	Panels         []Panel
	Breakdowns     bool
}

// PanelsFor returns the page's panels with the grouping columns of opt
// expanded. Repeated grouping columns yield one panel.
func (p Page) PanelsFor(opt Options) []Panel {
	out := append([]Panel(nil), p.Panels...)
	if !p.Breakdowns {
		return out
	}
	seen := map[string]bool{}
	for _, col := range opt.Analysis.GroupColumns {
		name := dataset.CanonicalName(col)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Panel{
			ID:       "stress_by_" + name,
			Title:    "Average Stress by " + dataset.DisplayName(name),
			Kind:     KindBar,
			Requires: []string{Target, name},
			build:    groupMeansOf(name),
		})
	}
	return out
}

var catalog = []Page{
	{
		Name:      "home",
		Title:     "Academic Stress Level Dashboard",
		Objective: "Explore how academic and personal factors impact student stress levels.",
		Panels: []Panel{
			{ID: "preview", Title: "Dataset Preview", Kind: KindTable, build: buildPreview},
			{ID: "columns", Title: "Column Summary", Kind: KindTable, build: buildSummary},
		},
	},
	{
		Name:           "overview",
		Title:          "Stress Level Distribution and Overview",
		Objective:      "Visualize how stress levels are distributed and identify general patterns.",
		Interpretation: "Most students experience moderate stress levels, with some variation by age and gender.",
		Panels: []Panel{
			{ID: "stress_histogram", Title: "Distribution of Stress Levels", Kind: KindHistogram, Requires: []string{Target}, build: buildTargetHistogram},
			{ID: "stress_by_gender", Title: "Average Stress by Gender", Kind: KindBar, Requires: []string{Target, "gender"}, build: groupMeansOf("gender")},
			{ID: "stress_by_age", Title: "Stress Level by Age", Kind: KindLine, Requires: []string{Target, "age"}, build: buildAgeLine},
		},
	},
	{
		Name:           "academic",
		Title:          "Academic Factors Affecting Stress",
		Objective:      "Explore how academic workload, grades and study habits influence stress levels.",
		Interpretation: "Correlations between academic load or lower performance and stress point to where pressure builds.",
		Panels: []Panel{
			{ID: "target_correlation", Title: "Correlation of Academic Factors with Stress", Kind: KindBar, Requires: []string{Target}, build: buildTargetCorrelation},
			{ID: "factor_scatter", Title: "Academic Variables vs Stress Level", Kind: KindScatter, Requires: []string{Target}, build: buildFactorScatter},
			{ID: "correlation_heatmap", Title: "Correlation Heatmap", Kind: KindHeatmap, build: buildHeatmap},
			{ID: "pair_grid", Title: "GPA, Study Hours and Stress", Kind: KindPairGrid, AnyOf: []string{"gpa", "study_hours", Target}, MinOf: 2, build: buildPairGrid},
		},
	},
	{
		Name:           "lifestyle",
		Title:          "Lifestyle Factors and Stress",
		Objective:      "Explore how sleep and physical activity influence stress levels.",
		Interpretation: "Students with better sleep and active lifestyles tend to report lower stress levels.",
		Panels: []Panel{
			{ID: "sleep_vs_stress", Title: "Sleep Duration vs Stress Level", Kind: KindScatter, Requires: []string{"sleep_duration", Target}, build: scatterOf("sleep_duration")},
			{ID: "activity_box", Title: "Stress Level by Physical Activity", Kind: KindBox, Requires: []string{"physical_activity", Target}, build: buildActivityBox},
			{ID: "sleep_activity_stress", Title: "Sleep, Activity and Stress", Kind: KindScatter3D, Requires: []string{"sleep_duration", "physical_activity", Target}, build: buildLifestyle3D},
		},
	},
	{
		Name:           "recommendations",
		Title:          "Stress Management and Recommendations",
		Objective:      "Identify high-stress patterns and offer practical recommendations to reduce stress.",
		Interpretation: "Stress varies across demographics and academic conditions; routines can be adjusted accordingly.",
		Panels: []Panel{
			{ID: "average_stress", Title: "Average Stress Level", Kind: KindMetric, Requires: []string{Target}, build: buildAverage},
		},
		Breakdowns: true,
	},
}

// Pages returns the catalog in navigation order.
func Pages() []Page {
	out := make([]Page, len(catalog))
	copy(out, catalog)
	return out
}

// Names lists the page names in navigation order.
func Names() []string {
	out := make([]string, len(catalog))
	for i, p := range catalog {
		out[i] = p.Name
	}
	return out
}

// Lookup finds a page by name, case-insensitively.
func Lookup(name string) (Page, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range catalog {
		if p.Name == name {
			return p, true
		}
	}
	return Page{}, false
}

// UnknownPageError is returned by Build for a name not in the catalog.
type UnknownPageError struct {
	Name string
}

func (e *UnknownPageError) Error() string {
	return fmt.Sprintf("unknown page %q (available: %s)", e.Name, strings.Join(Names(), ", "))
}
