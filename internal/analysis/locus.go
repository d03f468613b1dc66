package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/fluxdrive/internal/fluxvec"
)

type Point struct{ X, Y float64 }

// Locus is the trajectory of one telemetry channel against another, such
// as the current vector in the dq plane.
type Locus struct {
	XName, YName string
	Points       []Point
}

func NewLocus(records []fluxvec.Record, xName, yName string) *Locus {
	l := &Locus{
		XName:  xName,
		YName:  yName,
		Points: make([]Point, 0, len(records)),
	}
	for _, r := range records {
		v := r.Values()
		l.Points = append(l.Points, Point{X: v[xName], Y: v[yName]})
	}
	return l
}

// Bounds returns the corners of the smallest box holding every finite point.
// ok is false when there is none.
func (l *Locus) Bounds() (lo, hi Point, ok bool) {
	lo = Point{math.Inf(1), math.Inf(1)}
	hi = Point{math.Inf(-1), math.Inf(-1)}
	for _, p := range l.Points {
		if !finitePoint(p) {
			continue
		}
		lo.X, hi.X = math.Min(lo.X, p.X), math.Max(hi.X, p.X)
		lo.Y, hi.Y = math.Min(lo.Y, p.Y), math.Max(hi.Y, p.Y)
		ok = true
	}
	return lo, hi, ok
}

func finitePoint(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// grid maps locus coordinates onto character cells with a 10 % margin.
type grid struct {
	lo, span      Point
	width, height int
}

func newGrid(lo, hi Point, width, height int) grid {
	span := Point{hi.X - lo.X, hi.Y - lo.Y}
	if span.X == 0 {
		span.X = 1
	}
	if span.Y == 0 {
		span.Y = 1
	}
	lo.X -= 0.1 * span.X
	lo.Y -= 0.1 * span.Y
	span.X *= 1.2
	span.Y *= 1.2
	return grid{lo: lo, span: span, width: width, height: height}
}

func (g grid) col(x float64) int { return int((x - g.lo.X) / g.span.X * float64(g.width-1)) }

// row counts from the top.
func (g grid) row(y float64) int {
	return g.height - 1 - int((y-g.lo.Y)/g.span.Y*float64(g.height-1))
}

func (g grid) covers(x, y float64) bool {
	return x >= g.lo.X && x <= g.lo.X+g.span.X && y >= g.lo.Y && y <= g.lo.Y+g.span.Y
}

// ToASCII draws the locus on a width x height character canvas with the
// coordinate axes when they are in view.
func (l *Locus) ToASCII(width, height int) string {
	if l == nil || width < 2 || height < 2 {
		return ""
	}
	lo, hi, ok := l.Bounds()
	if !ok {
		return ""
	}
	g := newGrid(lo, hi, width, height)

	cells := make([][]rune, height)
	for r := range cells {
		cells[r] = []rune(strings.Repeat(" ", width))
	}
	if g.covers(0, g.lo.Y) {
		c := g.col(0)
		for r := range cells {
			cells[r][c] = '│'
		}
	}
	if g.covers(g.lo.X, 0) {
		r := g.row(0)
		for c := range cells[r] {
			if cells[r][c] == '│' {
				cells[r][c] = '┼'
			} else {
				cells[r][c] = '─'
			}
		}
	}
	for _, p := range l.Points {
		if finitePoint(p) {
			cells[g.row(p.Y)][g.col(p.X)] = '•'
		}
	}

	var b strings.Builder
	for _, r := range cells {
		b.WriteString(string(r))
		b.WriteByte('\n')
	}
	return b.String()
}
