package dashboard

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/stressdash/internal/analysis"
	"github.com/KaramelBytes/stressdash/internal/dataset"
)

// maxListed caps how many points or groups a text panel prints.
const maxListed = 12

// Markdown renders a compact text report of the page.
func (r *PageResult) Markdown() string {
	var b strings.Builder
	b.WriteString("[PAGE]\n")
	b.WriteString(fmt.Sprintf("%s (%s)\n", r.Title, r.Page))
	b.WriteString(fmt.Sprintf("Source: %s\n", r.Source))
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	if r.Target != "" {
		b.WriteString(fmt.Sprintf("Stress column: %s\n", r.Target))
	}
	if r.Objective != "" {
		b.WriteString(fmt.Sprintf("Objective: %s\n", r.Objective))
	}

	b.WriteString("\n[PANELS]\n")
	if len(r.Panels) == 0 {
		b.WriteString("(none)\n")
	}
	for _, p := range r.Panels {
		b.WriteString(fmt.Sprintf("\n## %s\n", p.Title))
		writePanel(&b, p)
	}

	if r.Interpretation != "" && len(r.Panels) > 0 {
		b.WriteString("\n[INTERPRETATION]\n")
		b.WriteString(r.Interpretation)
		b.WriteString("\n")
	}

	if len(r.Skipped) > 0 || len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Skipped {
			b.WriteString(fmt.Sprintf("- skipped %s: %s\n", n.Panel, n.Reason))
		}
		for _, w := range r.Warnings {
			b.WriteString("- warning: ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writePanel(b *strings.Builder, p PanelResult) {
	switch d := p.Data.(type) {
	case Preview:
		writeTable(b, d.Columns, d.Rows)
	case []analysis.ColumnSummary:
		for _, c := range d {
			b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %d)", c.Name, c.Kind, c.NonNull, c.Missing))
			if c.Kind == dataset.KindNumeric && c.NonNull > 0 {
				b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Median, c.Std))
			} else if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
			b.WriteString("\n")
		}
	case analysis.Histogram:
		writeHistogram(b, d)
	case analysis.GroupSeries:
		for _, g := range d.Groups {
			b.WriteString(fmt.Sprintf("- %s = %s: mean %.2f (n=%d)\n", d.Column, safeVal(g.Group), g.Mean, g.Count))
		}
	case XYSeries:
		writePoints(b, d)
	case []XYSeries:
		for _, s := range d {
			writePoints(b, s)
		}
	case []analysis.Correlation:
		for _, c := range d {
			b.WriteString(fmt.Sprintf("- %s: r=%s\n", c.Column, fmtR(c.R)))
		}
	case analysis.CorrMatrix:
		header := append([]string{""}, d.Columns...)
		rows := make([][]string, len(d.Columns))
		for i, name := range d.Columns {
			row := []string{name}
			for _, v := range d.Values[i] {
				row = append(row, fmtR(v))
			}
			rows[i] = row
		}
		writeTable(b, header, rows)
	case PairGrid:
		b.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(d.Columns, ", ")))
		for _, h := range d.Histograms {
			writeHistogram(b, h)
		}
		for _, s := range d.Scatters {
			writePoints(b, s)
		}
	case []analysis.Box:
		for _, bx := range d {
			b.WriteString(fmt.Sprintf("- %s (n=%d): min %.4g, q1 %.4g, median %.4g, q3 %.4g, max %.4g\n",
				safeVal(bx.Group), bx.N, bx.Min, bx.Q1, bx.Median, bx.Q3, bx.Max))
		}
	case []analysis.Point3:
		b.WriteString(fmt.Sprintf("%d points\n", len(d)))
		for i, pt := range d {
			if i == maxListed {
				b.WriteString(fmt.Sprintf("  … %d more\n", len(d)-maxListed))
				break
			}
			b.WriteString(fmt.Sprintf("  (%.4g, %.4g, %.4g)\n", pt.X, pt.Y, pt.Z))
		}
	case Assessment:
		b.WriteString(fmt.Sprintf("Average stress: %.2f\n", d.Mean))
		b.WriteString(fmt.Sprintf("%s (%s)\n", d.Headline, d.Tier))
		for _, a := range d.Advice {
			b.WriteString("- ")
			b.WriteString(a)
			b.WriteString("\n")
		}
	default:
		b.WriteString(fmt.Sprintf("%v\n", d))
	}
}

func writeHistogram(b *strings.Builder, h analysis.Histogram) {
	b.WriteString(fmt.Sprintf("%s:\n", h.Column))
	for i, n := range h.Counts {
		if n == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  [%.4g, %.4g%s %d\n", h.Edges[i], h.Edges[i+1], closer(i, len(h.Counts)), n))
	}
}

func closer(i, n int) string {
	if i == n-1 {
		return "]:"
	}
	return "):"
}

func writePoints(b *strings.Builder, s XYSeries) {
	b.WriteString(fmt.Sprintf("%s ~ %s: %d points\n", s.X, s.Y, len(s.Points)))
	if s.Trend != nil {
		b.WriteString(fmt.Sprintf("  trend: %s = %.4g + %.4g * %s\n", s.Y, s.Trend.Alpha, s.Trend.Beta, s.X))
	}
	for i, pt := range s.Points {
		if i == maxListed {
			b.WriteString(fmt.Sprintf("  … %d more\n", len(s.Points)-maxListed))
			break
		}
		b.WriteString(fmt.Sprintf("  (%.4g, %.4g)\n", pt.X, pt.Y))
	}
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("| ")
	for i, h := range header {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeVal(h))
	}
	b.WriteString(" |\n|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i, v := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(v))
		}
		b.WriteString(" |\n")
	}
}

func fmtR(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
