package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fluxdrive/internal/fluxvec"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Red,
	asciigraph.Blue,
}

// ChannelGroups are the channel sets plotted together by default: each
// reference shares a chart with the quantity it commands.
var ChannelGroups = [][]string{
	{fluxvec.ChanSpeedRef, fluxvec.ChanSpeed},
	{fluxvec.ChanTorqueRef, fluxvec.ChanTorque},
	{fluxvec.ChanFluxRef, fluxvec.ChanFlux},
	{fluxvec.ChanCurrentD, fluxvec.ChanCurrentQ},
}

// Series extracts one telemetry channel.
func Series(records []fluxvec.Record, name string) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Values()[name]
	}
	return out
}

// Downsample picks at most n evenly spaced points.
func Downsample(data []float64, n int) []float64 {
	if n <= 0 || len(data) <= n {
		return data
	}
	if n == 1 {
		return data[len(data)-1:]
	}
	out := make([]float64, n)
	step := float64(len(data)-1) / float64(n-1)
	for i := range out {
		out[i] = data[int(math.Round(float64(i)*step))]
	}
	return out
}

// finite replaces NaN and infinities with the previous finite value so a
// diverged tail still renders.
func finite(data []float64) []float64 {
	out := make([]float64, len(data))
	last := 0.0
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = last
			continue
		}
		out[i] = v
		last = v
	}
	return out
}

// PlotChannels draws the named channels on one chart.
func PlotChannels(records []fluxvec.Record, names []string, width, height int) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("viz: no telemetry to plot")
	}
	data := make([][]float64, 0, len(names))
	for _, name := range names {
		if !knownChannel(name) {
			return "", fmt.Errorf("viz: unknown channel %q", name)
		}
		data = append(data, finite(Downsample(Series(records, name), width)))
	}

	colors := seriesColors
	if len(names) < len(colors) {
		colors = colors[:len(names)]
	}
	caption := fmt.Sprintf("%s  t = %.3f..%.3f s", strings.Join(names, ", "),
		records[0].Time, records[len(records)-1].Time)

	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(names...),
		asciigraph.Caption(caption),
	), nil
}

func knownChannel(name string) bool {
	for _, c := range fluxvec.Channels {
		if c == name {
			return true
		}
	}
	return false
}
