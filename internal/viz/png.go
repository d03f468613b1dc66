package viz

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/fluxdrive/internal/analysis"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
)

var lineColors = []color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

// TimePlot builds a plot of the named channels against time.
func TimePlot(records []fluxvec.Record, names []string) (*plot.Plot, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("viz: no telemetry to plot")
	}
	p := plot.New()
	p.Title.Text = strings.Join(names, ", ")
	p.X.Label.Text = "t (s)"
	p.Add(plotter.NewGrid())

	for i, name := range names {
		if !knownChannel(name) {
			return nil, fmt.Errorf("viz: unknown channel %q", name)
		}
		xy := make(plotter.XYs, 0, len(records))
		for _, r := range records {
			v := r.Values()[name]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				break
			}
			xy = append(xy, plotter.XY{X: r.Time, Y: v})
		}
		line, err := plotter.NewLine(xy)
		if err != nil {
			return nil, fmt.Errorf("could not draw %s: %w", name, err)
		}
		line.Color = lineColors[i%len(lineColors)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// LocusPlot builds a scatter plot of a channel locus, such as the current
// vector in the dq plane.
func LocusPlot(l *analysis.Locus) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = l.YName + " vs " + l.XName
	p.X.Label.Text = l.XName
	p.Y.Label.Text = l.YName
	p.Add(plotter.NewGrid())

	xy := make(plotter.XYs, 0, len(l.Points))
	for _, pt := range l.Points {
		if math.IsNaN(pt.X+pt.Y) || math.IsInf(pt.X+pt.Y, 0) {
			continue
		}
		xy = append(xy, plotter.XY{X: pt.X, Y: pt.Y})
	}
	sc, err := plotter.NewScatter(xy)
	if err != nil {
		return nil, fmt.Errorf("could not draw locus: %w", err)
	}
	sc.GlyphStyle.Radius = vg.Points(1)
	sc.GlyphStyle.Color = lineColors[0]
	p.Add(sc)
	return p, nil
}

// WritePNG encodes p as a 15 x 10 cm PNG.
func WritePNG(w io.Writer, p *plot.Plot) error {
	return WriteImage(w, p, "png")
}

// WriteImage encodes p in any format gonum/plot supports (png, svg, pdf, eps,
// jpg, tif).
func WriteImage(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(15*vg.Centimeter, 10*vg.Centimeter, format)
	if err != nil {
		return fmt.Errorf("could not render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveImages writes one image per channel group into dir and returns the
// paths.
func SaveImages(dir, format string, records []fluxvec.Record, groups [][]string) ([]string, error) {
	paths := make([]string, 0, len(groups))
	for _, names := range groups {
		p, err := TimePlot(records, names)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, strings.Join(names, "_")+"."+format)
		if err := saveImage(path, p, format); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SaveLocus writes the locus plot to dir and returns its path.
func SaveLocus(dir, format string, l *analysis.Locus) (string, error) {
	p, err := LocusPlot(l)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, l.XName+"_"+l.YName+"_locus."+format)
	return path, saveImage(path, p, format)
}

func saveImage(path string, p *plot.Plot, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteImage(f, p, format); err != nil {
		f.Close()
		return fmt.Errorf("could not save plot: %w", err)
	}
	return f.Close()
}
