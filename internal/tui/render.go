package tui

import (
	"strings"
	"time"

	tslc "github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"

	"github.com/jask/copiloto/internal/analysis"
	"github.com/jask/copiloto/internal/markup"
	"github.com/jask/copiloto/internal/money"
)

const (
	chartHeight = 12
	chartYSteps = 4
)

// renderMarkup styles parsed blocks. Text is never interpreted beyond the
// markers markup.Parse understands.
func renderMarkup(text string) string {
	blocks := markup.Parse(text)
	lines := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		switch blk.Kind {
		case markup.Blank:
			lines = append(lines, "")
		case markup.Heading:
			lines = append(lines, headingStyle.Render(blk.Text()))
		case markup.ListItem:
			lines = append(lines, "  • "+renderSpans(blk.Spans))
		default:
			lines = append(lines, renderSpans(blk.Spans))
		}
	}
	return strings.Join(lines, "\n")
}

func renderSpans(spans []markup.Span) string {
	var b strings.Builder
	for _, s := range spans {
		if s.Bold {
			b.WriteString(boldStyle.Render(s.Text))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// renderProjection draws the simulated balance as a braille line chart.
func renderProjection(points []analysis.Point, width int) string {
	var times []time.Time
	var values []float64
	for _, p := range points {
		t := p.Time()
		if t.IsZero() {
			continue
		}
		times = append(times, t)
		values = append(values, p.Value)
	}
	if len(times) == 0 {
		return mutedStyle.Render("Sin puntos para graficar.")
	}
	if width < 20 {
		width = 20
	}

	start, end := times[0], times[len(times)-1]
	if !end.After(start) {
		end = start.AddDate(0, 1, 0)
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = max(1, hi*0.1)
	}
	lo, hi = lo-pad, hi+pad

	chart := tslc.New(width, chartHeight)
	chart.SetXStep(1)
	chart.SetYStep(chartYSteps)
	chart.SetStyle(balanceStyle)
	chart.AxisStyle = mutedStyle
	chart.LabelStyle = mutedStyle
	chart.SetTimeRange(start, end)
	chart.SetViewTimeRange(start, end)
	chart.SetYRange(lo, hi)
	chart.SetViewYRange(lo, hi)
	chart.Model.XLabelFormatter = func(_ int, v float64) string {
		return time.Unix(int64(v), 0).UTC().Format("2006-01")
	}
	chart.Model.YLabelFormatter = func(_ int, v float64) string {
		return money.AxisTick(v)
	}
	for i, t := range times {
		chart.Push(tslc.TimePoint{Time: t, Value: values[i]})
	}
	chart.DrawBraille()
	return chart.View()
}
