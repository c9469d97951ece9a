package render

import (
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bptclass/bptclass/internal/classify"
	"github.com/bptclass/bptclass/internal/config"
	"github.com/bptclass/bptclass/internal/kde"
)

// densityAlpha is the opacity of the filled density bands.
const densityAlpha = 0.8

// densitySeries draws every grid cell that lies in a filled band as one
// large dot coloured by band, which reads as filled density contours.
// Cells below the threshold level are left out. It returns nil when no cell
// is filled.
func densitySeries(g *kde.Grid, levels []float64, radius float64) chart.Series {
	if len(levels) == 0 {
		return nil
	}
	var xs, ys []float64
	var colors []drawing.Color
	top := float64(len(levels) - 1)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			d := g.At(c, r)
			if d <= 0 {
				continue
			}
			band := kde.Band(d, levels)
			if band < 0 {
				continue
			}
			x, y := g.Center(c, r)
			xs = append(xs, x)
			ys = append(ys, y)
			colors = append(colors, overWhite(chart.Viridis(float64(band), 0, top), densityAlpha))
		}
	}
	if len(xs) == 0 {
		return nil
	}
	return chart.ContinuousSeries{
		Name:    "density",
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    radius,
			DotColorProvider: func(_, _ chart.Range, index int, _, _ float64) drawing.Color {
				return colors[index]
			},
		},
	}
}

// polyline is one unbroken stretch of a curve in data coordinates.
type polyline struct {
	xs, ys []float64
}

func (p *polyline) add(x, y float64) {
	p.xs = append(p.xs, x)
	p.ys = append(p.ys, y)
}

// clipCurve samples curve over span and returns the pieces that fall inside
// the xr by yr window. Chords between neighbouring samples are clipped to the
// window edges, so a piece that leaves the window ends exactly on its border.
// Samples on opposite sides of pole are never joined.
func clipCurve(curve func(float64) float64, span config.Range, samples int, pole float64,
	xr, yr config.Range) []polyline {

	xs, ys := classify.Sample(curve, span.Min, span.Max, samples)

	var out []polyline
	var cur polyline
	joined := false
	flush := func() {
		if len(cur.xs) >= 2 {
			out = append(out, cur)
		}
		cur = polyline{}
		joined = false
	}
	for i := 1; i < len(xs); i++ {
		x0, y0, x1, y1 := xs[i-1], ys[i-1], xs[i], ys[i]
		if !finite(y0) || !finite(y1) || (x0-pole)*(x1-pole) < 0 {
			flush()
			continue
		}
		ax, ay, bx, by, t0, t1, ok := clipSegment(x0, y0, x1, y1, xr, yr)
		if !ok {
			flush()
			continue
		}
		if !joined || t0 > 0 {
			flush()
			cur.add(ax, ay)
		}
		cur.add(bx, by)
		joined = t1 == 1
	}
	flush()
	return out
}

// clipSegment clips the segment (x0,y0)-(x1,y1) to the window using the
// Liang-Barsky parametric form. t0 and t1 are the kept fraction of the
// input segment; ok is false when nothing of positive length remains.
func clipSegment(x0, y0, x1, y1 float64, xr, yr config.Range) (ax, ay, bx, by, t0, t1 float64, ok bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 = 0, 1
	edges := [4][2]float64{
		{-dx, x0 - xr.Min},
		{dx, xr.Max - x0},
		{-dy, y0 - yr.Min},
		{dy, yr.Max - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			t0 = math.Max(t0, r)
		} else {
			t1 = math.Min(t1, r)
		}
	}
	if t0 >= t1 {
		return 0, 0, 0, 0, 0, 0, false
	}
	ax, ay = x0+t0*dx, y0+t0*dy
	bx, by = x0+t1*dx, y0+t1*dy
	return ax, ay, bx, by, t0, t1, true
}

// dashes cuts p into dashes of on pixels separated by gaps of off pixels.
// sx and sy convert data units to pixels along each axis. The pattern runs
// continuously through the vertices of p.
func dashes(p polyline, on, off, sx, sy float64) []polyline {
	if on <= 0 || off <= 0 || len(p.xs) < 2 {
		return []polyline{p}
	}
	var out []polyline
	var cur polyline
	cur.add(p.xs[0], p.ys[0])
	drawing, left := true, on
	for i := 1; i < len(p.xs); i++ {
		x0, y0, x1, y1 := p.xs[i-1], p.ys[i-1], p.xs[i], p.ys[i]
		seg := math.Hypot((x1-x0)*sx, (y1-y0)*sy)
		for done := 0.0; seg-done > 0; {
			step := math.Min(left, seg-done)
			done += step
			left -= step
			t := done / seg
			x, y := x0+t*(x1-x0), y0+t*(y1-y0)
			if drawing {
				cur.add(x, y)
			}
			if left > 1e-9 {
				continue
			}
			if drawing {
				if len(cur.xs) >= 2 {
					out = append(out, cur)
				}
				cur = polyline{}
				left = off
			} else {
				cur.add(x, y)
				left = on
			}
			drawing = !drawing
		}
	}
	if drawing && len(cur.xs) >= 2 {
		out = append(out, cur)
	}
	return out
}

// curveSeries turns pieces into line series drawn with style. Only the first
// series carries the name.
func curveSeries(name string, pieces []polyline, style chart.Style) []chart.Series {
	out := make([]chart.Series, 0, len(pieces))
	for i, p := range pieces {
		s := chart.ContinuousSeries{XValues: p.xs, YValues: p.ys, Style: style}
		if i == 0 {
			s.Name = name
		}
		out = append(out, s)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// overWhite flattens c drawn at alpha over a white background.
func overWhite(c drawing.Color, alpha float64) drawing.Color {
	mix := func(v uint8) uint8 {
		return uint8(math.Round(alpha*float64(v) + (1-alpha)*255))
	}
	return drawing.Color{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: 255}
}
