package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bptclass/bptclass/internal/classify"
	"github.com/bptclass/bptclass/internal/config"
	"github.com/bptclass/bptclass/internal/kde"
	"github.com/bptclass/bptclass/pkg/types"
)

// Axis names and legend labels.
const (
	xAxisName      = "log10([N II]/Hα)"
	yAxisName      = "log10([O III]/Hβ)"
	kauffmannLabel = "Kauffmann et al. (2003)"
	kewleyLabel    = "Kewley et al. (2001)"
)

// Font sizes in points.
const (
	titleFontSize      = 16
	axisNameFontSize   = 14
	tickFontSize       = 11
	legendFontSize     = 11
	annotationFontSize = 12
)

// curveWidthPt is the stroke width of both demarcation curves in points.
const curveWidthPt = 2.0

// Approximate share of the image taken by the plot area along each axis.
const (
	plotWidthFrac  = 0.85
	plotHeightFrac = 0.8
)

// Renderer draws the BPT diagram of a classified table.
type Renderer struct {
	cfg  config.PlotConfig
	open Opener
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithOpener replaces the platform image viewer used when Show is set.
func WithOpener(o Opener) Option {
	return func(r *Renderer) { r.open = o }
}

// New returns a Renderer for cfg.
func New(cfg config.PlotConfig, opts ...Option) *Renderer {
	r := &Renderer{cfg: cfg, open: openInViewer}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render writes the diagram for t to the configured output path and returns
// that path. The table must already be classified. When Show is set the
// image is then opened in a viewer; a viewer failure is logged only.
func (r *Renderer) Render(ctx context.Context, t *types.Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	cfg := r.cfg
	scale := float64(cfg.DPI) / 72

	var series []chart.Series
	if s := r.density(t, scale); s != nil {
		series = append(series, s)
	}

	width := int(math.Round(cfg.WidthIn * float64(cfg.DPI)))
	height := int(math.Round(cfg.HeightIn * float64(cfg.DPI)))

	on, off := 3.7*curveWidthPt*scale, 1.6*curveWidthPt*scale
	kauffmannStyle := chart.Style{
		StrokeColor:     drawing.ColorBlack,
		StrokeWidth:     curveWidthPt * scale,
		StrokeDashArray: []float64{on, off},
	}
	kewleyStyle := chart.Style{
		StrokeColor: drawing.ColorRed,
		StrokeWidth: curveWidthPt * scale,
	}

	// The raster backend restarts a dash pattern at every vertex, so the
	// Kauffmann curve is cut into dashes here and each dash drawn solid.
	sx := plotWidthFrac * float64(width) / cfg.XRange.Span()
	sy := plotHeightFrac * float64(height) / cfg.YRange.Span()
	var kauffmann []polyline
	for _, p := range clipCurve(classify.Kauffmann, cfg.KauffmannRange, cfg.Samples,
		classify.KauffmannPole, cfg.XRange, cfg.YRange) {
		kauffmann = append(kauffmann, dashes(p, on, off, sx, sy)...)
	}
	dashStyle := kauffmannStyle
	dashStyle.StrokeDashArray = nil
	series = append(series, curveSeries(kauffmannLabel, kauffmann, dashStyle)...)

	kewley := clipCurve(classify.Kewley, cfg.KewleyRange, cfg.Samples,
		classify.KewleyPole, cfg.XRange, cfg.YRange)
	series = append(series, curveSeries(kewleyLabel, kewley, kewleyStyle)...)

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	pad := int(math.Round(20 * scale))
	grid := chart.Style{
		StrokeColor: drawing.ColorFromHex("E5E5E5"),
		StrokeWidth: scale,
	}

	graph := chart.Chart{
		Title:      cfg.Title,
		TitleStyle: chart.Style{FontSize: titleFontSize},
		Width:      width,
		Height:     height,
		DPI:        float64(cfg.DPI),
		Background: chart.Style{
			FillColor: drawing.ColorWhite,
			Padding:   chart.Box{Top: 2 * pad, Left: pad, Right: pad, Bottom: pad},
		},
		Canvas: chart.Style{FillColor: drawing.ColorWhite},
		XAxis: chart.XAxis{
			Name:           xAxisName,
			NameStyle:      chart.Style{FontSize: axisNameFontSize},
			Style:          chart.Style{FontSize: tickFontSize},
			Range:          &chart.ContinuousRange{Min: cfg.XRange.Min, Max: cfg.XRange.Max},
			Ticks:          niceTicks(cfg.XRange.Min, cfg.XRange.Max, 7),
			GridMajorStyle: grid,
		},
		YAxis: chart.YAxis{
			Name:           yAxisName,
			NameStyle:      chart.Style{FontSize: axisNameFontSize},
			Style:          chart.Style{FontSize: tickFontSize},
			Range:          &chart.ContinuousRange{Min: cfg.YRange.Min, Max: cfg.YRange.Max},
			Ticks:          niceTicks(cfg.YRange.Min, cfg.YRange.Max, 7),
			GridMajorStyle: grid,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		annotationsRenderable(regionAnnotations, cfg.XRange, cfg.YRange, annotationFontSize),
		legendRenderable([]legendEntry{
			{label: kauffmannLabel, style: kauffmannStyle},
			{label: kewleyLabel, style: kewleyStyle},
		}, legendFontSize, scale),
	}

	if err := writePNG(cfg.Output, graph); err != nil {
		return "", err
	}
	slog.Info("render: plot written",
		"path", cfg.Output,
		"width", width,
		"height", height,
		"rows", t.Len(),
	)

	if cfg.Show {
		if err := r.open(ctx, cfg.Output); err != nil {
			slog.Warn("render: could not open viewer", "path", cfg.Output, "err", err)
		}
	}
	return cfg.Output, nil
}

// density builds the filled density layer, or nil when the sample cannot
// support a kernel estimate.
func (r *Renderer) density(t *types.Table, scale float64) chart.Series {
	cfg := r.cfg
	xs, ys := t.Ratios()
	g, err := kde.Estimate(xs, ys, kde.GridSpec{
		XMin: cfg.XRange.Min, XMax: cfg.XRange.Max,
		YMin: cfg.YRange.Min, YMax: cfg.YRange.Max,
		Cols: cfg.GridSize, Rows: cfg.GridSize,
	})
	if err != nil {
		if errors.Is(err, kde.ErrTooFewPoints) || errors.Is(err, kde.ErrSingular) {
			slog.Warn("render: skipping density layer", "rows", t.Len(), "err", err)
			return nil
		}
		slog.Error("render: density estimate failed", "err", err)
		return nil
	}

	// A dot of 0.75 cell radius covers its cell including the corners.
	cellPx := plotWidthFrac * cfg.WidthIn * float64(cfg.DPI) / float64(cfg.GridSize)
	radius := math.Max(0.75*cellPx, scale/2)

	levels := g.IsoLevels(cfg.Levels, cfg.Threshold)
	slog.Debug("render: density estimated",
		"points", g.N,
		"bandwidth", g.Bandwidth,
		"levels", len(levels),
	)
	return densitySeries(g, levels, radius)
}

// writePNG renders graph into path, removing the file when drawing fails.
func writePNG(path string, graph chart.Chart) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: create %s: %w", path, err)
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("render: draw: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("render: close %s: %w", path, err)
	}
	return nil
}
