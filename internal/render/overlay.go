package render

import (
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bptclass/bptclass/internal/config"
	"github.com/bptclass/bptclass/pkg/types"
)

// annotation is a text label placed at data coordinates.
type annotation struct {
	text  string
	x, y  float64
	color drawing.Color
}

// regionAnnotations name the three classification regions.
var regionAnnotations = []annotation{
	{text: string(types.ClassStarForming), x: -0.8, y: -0.9, color: drawing.ColorFromHex("000080")},
	{text: string(types.ClassComposite), x: 0.1, y: -0.3, color: drawing.ColorFromHex("008000")},
	{text: string(types.ClassAGN), x: 0.0, y: 1.0, color: drawing.ColorFromHex("8B0000")},
}

// legendEntry is one row of the curve legend.
type legendEntry struct {
	label string
	style chart.Style
}

// toCanvas maps data coordinates into the plot area.
func toCanvas(box chart.Box, xr, yr config.Range, x, y float64) (int, int) {
	px := box.Left + int((x-xr.Min)/xr.Span()*float64(box.Width()))
	py := box.Bottom - int((y-yr.Min)/yr.Span()*float64(box.Height()))
	return px, py
}

// annotationsRenderable draws each annotation with its left baseline at the
// data point.
func annotationsRenderable(notes []annotation, xr, yr config.Range, fontSize float64) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		for _, n := range notes {
			if !xr.Contains(n.x) || !yr.Contains(n.y) {
				continue
			}
			px, py := toCanvas(box, xr, yr, n.x, n.y)
			chart.Style{
				Font:      defaults.Font,
				FontSize:  fontSize,
				FontColor: n.color,
			}.WriteTextOptionsToRenderer(r)
			r.Text(n.text, px, py)
		}
	}
}

// legendRenderable draws a boxed legend in the upper right of the plot area.
// scale converts points to pixels.
func legendRenderable(entries []legendEntry, fontSize, scale float64) chart.Renderable {
	return func(r chart.Renderer, box chart.Box, defaults chart.Style) {
		if len(entries) == 0 {
			return
		}
		textStyle := chart.Style{
			Font:      defaults.Font,
			FontSize:  fontSize,
			FontColor: drawing.ColorBlack,
		}
		textStyle.WriteTextOptionsToRenderer(r)

		var textW, textH int
		for _, e := range entries {
			tb := r.MeasureText(e.label)
			if tb.Width() > textW {
				textW = tb.Width()
			}
			if tb.Height() > textH {
				textH = tb.Height()
			}
		}

		pad := int(6 * scale)
		swatch := int(24 * scale)
		gap := int(6 * scale)
		rowH := textH + pad

		right := box.Right - pad
		top := box.Top + pad
		left := right - (pad + swatch + gap + textW + pad)
		bottom := top + pad + rowH*len(entries)

		frame := chart.Style{
			FillColor:   drawing.ColorWhite.WithAlpha(220),
			StrokeColor: drawing.ColorFromHex("CCCCCC"),
			StrokeWidth: scale,
		}
		frame.WriteDrawingOptionsToRenderer(r)
		r.MoveTo(left, top)
		r.LineTo(right, top)
		r.LineTo(right, bottom)
		r.LineTo(left, bottom)
		r.LineTo(left, top)
		r.Close()
		r.FillStroke()

		for i, e := range entries {
			baseline := top + pad + rowH*i + textH
			mid := baseline - textH/2

			e.style.WriteDrawingOptionsToRenderer(r)
			r.MoveTo(left+pad, mid)
			r.LineTo(left+pad+swatch, mid)
			r.Stroke()

			textStyle.WriteTextOptionsToRenderer(r)
			r.Text(e.label, left+pad+swatch+gap, baseline)
		}
	}
}
