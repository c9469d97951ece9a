package classify

import (
	"log/slog"
	"math"
	"sort"

	"github.com/bptclass/bptclass/pkg/types"
)

// Ratios returns the BPT coordinates of g:
//
//	x = log10(NII / Hα)
//	y = log10(OIII / Hβ)
//
// A non-positive flux gives NaN or ±Inf, never a panic.
func Ratios(g types.Galaxy) (x, y float64) {
	return math.Log10(g.NII6584Flux / g.HAlphaFlux), math.Log10(g.OIII5007Flux / g.HBetaFlux)
}

// Label classifies a point of the BPT diagram.
//
//	star-forming: y < Kauffmann(x) and x < KauffmannPole
//	AGN:          y > Kewley(x)
//	composite:    neither
//
// Far to the left the Kauffmann curve rises above the Kewley curve, so a
// point can satisfy both of the first two tests; it is labelled AGN.
// Comparisons are strict, so a point exactly on a curve is Composite, and
// non-finite input always falls through to Composite.
func Label(x, y float64) types.Class {
	starForming := y < Kauffmann(x) && x < KauffmannPole
	agn := y > Kewley(x)

	switch {
	case agn:
		return types.ClassAGN
	case starForming:
		return types.ClassStarForming
	default:
		return types.ClassComposite
	}
}

// Summary is the per-label breakdown of one classified table.
type Summary struct {
	Counts map[types.Class]int

	// Total is the number of rows classified.
	Total int

	// NonFinite counts rows whose ratios are NaN or ±Inf. They are still
	// labelled (as Composite) and included in Counts.
	NonFinite int
}

// LabelCount is one entry of Summary.Sorted.
type LabelCount struct {
	Class types.Class
	Count int
}

// Sorted returns the labels that occur, by descending count then by name.
func (s *Summary) Sorted() []LabelCount {
	out := make([]LabelCount, 0, len(s.Counts))
	for c, n := range s.Counts {
		if n > 0 {
			out = append(out, LabelCount{Class: c, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Class < out[j].Class
	})
	return out
}

// Table recomputes ratios and labels for every row of t in place and
// returns the label counts. Every value is derived from the flux fields, so
// running it again on a classified table gives identical labels.
func Table(t *types.Table) *Summary {
	s := &Summary{Counts: make(map[types.Class]int, len(types.Classes))}
	if t == nil {
		return s
	}
	for i := range t.Rows {
		g := &t.Rows[i]
		g.LogNIIHa, g.LogOIIIHb = Ratios(*g)
		g.Class = Label(g.LogNIIHa, g.LogOIIIHb)

		s.Counts[g.Class]++
		if !g.HasFiniteRatios() {
			s.NonFinite++
		}
	}
	s.Total = len(t.Rows)

	if s.NonFinite > 0 {
		slog.Warn("classify: rows with non-finite ratios",
			"count", s.NonFinite, "total", s.Total)
	}
	slog.Debug("classify: table classified",
		"total", s.Total,
		"star_forming", s.Counts[types.ClassStarForming],
		"composite", s.Counts[types.ClassComposite],
		"agn", s.Counts[types.ClassAGN],
	)
	return s
}
