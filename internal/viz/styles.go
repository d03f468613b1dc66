package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette.
const (
	colorOK     = lipgloss.Color("#5fd787")
	colorWarn   = lipgloss.Color("#d7af00")
	colorFault  = lipgloss.Color("#ff5f5f")
	colorValue  = lipgloss.Color("#5fafff")
	colorLabel  = lipgloss.Color("#8a8a9a")
	colorBorder = lipgloss.Color("#3a3a4a")
)

var (
	Subtle = lipgloss.NewStyle().Foreground(colorLabel)

	StatusRunning = lipgloss.NewStyle().Bold(true).Foreground(colorOK)
	StatusPaused  = lipgloss.NewStyle().Bold(true).Foreground(colorWarn)
	StatusFailed  = lipgloss.NewStyle().Bold(true).Foreground(colorFault)

	MetricValue = lipgloss.NewStyle().Bold(true).Foreground(colorValue)
	MetricLabel = lipgloss.NewStyle().Foreground(colorLabel).Width(16)
	KeyHint     = lipgloss.NewStyle().Italic(true).Foreground(colorLabel)
	ActiveParam = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorBorder)

	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
)

// Gauge shows a tuned value relative to its preset on a log scale: the
// marker sits in the middle at ratio 1 and at the ends at 1/4 and 4.
func Gauge(ratio float64, width int) string {
	if width < 3 {
		width = 3
	}
	mid := width / 2
	pos := mid
	if ratio > 0 {
		pos = mid + int(math.Round(math.Log(ratio)/math.Log(4)*float64(mid)))
	}
	pos = min(max(pos, 0), width-1)

	cells := []rune(strings.Repeat("─", width))
	cells[mid] = '┼'
	cells[pos] = '●'

	style := StatusRunning
	switch dev := math.Abs(math.Log(ratio)); {
	case ratio <= 0 || dev > math.Log(2):
		style = StatusFailed
	case dev > math.Log(1.25):
		style = StatusPaused
	}
	return style.Render(string(cells))
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// SparklineChart renders values in width cells, scaled to their finite range.
// Non-finite values are drawn as '!'.
func SparklineChart(values []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	values = Downsample(values, width)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	span := hi - lo
	if !(span > 0) || math.IsInf(span, 0) {
		span = 1
	}

	var b strings.Builder
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.WriteString(StatusFailed.Render("!"))
			continue
		}
		k := int((v - lo) / span * float64(len(sparkRunes)-1))
		b.WriteRune(sparkRunes[min(max(k, 0), len(sparkRunes)-1)])
	}
	return MetricValue.Render(b.String())
}

func Separator(width int) string {
	return Subtle.Render(strings.Repeat("─", max(width, 0)))
}

// MetricsTable renders metric values sorted by name.
func MetricsTable(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	for k := range metrics {
		names = append(names, k)
	}
	sort.Strings(names)

	rows := make([]string, len(names))
	for i, name := range names {
		rows[i] = MetricLabel.Render(name) + MetricValue.Render(fmt.Sprintf("%.6g", metrics[name]))
	}
	return strings.Join(rows, "\n")
}

// Summary renders a titled panel with the metrics of a run and its outcome.
func Summary(title string, metrics map[string]float64, ticks int, err error) string {
	status := StatusRunning.Render("completed")
	if err != nil {
		status = StatusFailed.Render("stopped: " + err.Error())
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		HeaderStyle.Render(title),
		MetricLabel.Render("ticks")+MetricValue.Render(fmt.Sprint(ticks)),
		MetricLabel.Render("status")+status,
		"",
		MetricsTable(metrics),
	)
	return Panel.Render(body)
}
