package types

import "math"

// Class is the BPT classification label of a galaxy.
type Class string

// The fixed label set. Ambiguous is the label a row carries before it has
// been classified; the classifier itself never produces it.
const (
	ClassStarForming Class = "Star-Forming"
	ClassComposite   Class = "Composite"
	ClassAGN         Class = "AGN"
	ClassAmbiguous   Class = "Ambiguous"
)

// Classes lists every label in display order.
var Classes = []Class{ClassStarForming, ClassComposite, ClassAGN, ClassAmbiguous}

// Column names as returned by the galSpecLine query.
const (
	ColSpecObjID     = "specobjid"
	ColHAlphaFlux    = "h_alpha_flux"
	ColHBetaFlux     = "h_beta_flux"
	ColOIII5007Flux  = "oiii_5007_flux"
	ColNII6584Flux   = "nii_6584_flux"
	ColHAlphaFluxErr = "h_alpha_flux_err"
	ColHBetaFluxErr  = "h_beta_flux_err"
	ColOIII5007Err   = "oiii_5007_flux_err"
	ColNII6584Err    = "nii_6584_flux_err"
)

// FluxColumns are the eight columns every row must carry.
var FluxColumns = []string{
	ColHAlphaFlux, ColHBetaFlux, ColOIII5007Flux, ColNII6584Flux,
	ColHAlphaFluxErr, ColHBetaFluxErr, ColOIII5007Err, ColNII6584Err,
}

// Galaxy is one row of the emission-line table.
//
// The flux fields come straight from the query. LogNIIHa, LogOIIIHb and
// Class are derived and may be NaN or ±Inf when a flux is non-positive.
type Galaxy struct {
	SpecObjID string

	HAlphaFlux   float64
	HBetaFlux    float64
	OIII5007Flux float64
	NII6584Flux  float64

	HAlphaFluxErr   float64
	HBetaFluxErr    float64
	OIII5007FluxErr float64
	NII6584FluxErr  float64

	// LogNIIHa is log10([N II] 6584 / H-alpha), the BPT x axis.
	LogNIIHa float64
	// LogOIIIHb is log10([O III] 5007 / H-beta), the BPT y axis.
	LogOIIIHb float64

	Class Class
}

// HasFiniteRatios reports whether both derived ratios are finite numbers.
func (g Galaxy) HasFiniteRatios() bool {
	return isFinite(g.LogNIIHa) && isFinite(g.LogOIIIHb)
}

// Table is the full result set of one query.
type Table struct {
	// Columns is the header row as received, in order.
	Columns []string
	Rows    []Galaxy
}

// Len returns the number of rows; a nil Table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Ratios returns the two BPT ratio columns. Rows with a non-finite ratio are
// included as-is; callers that need finite pairs filter them.
func (t *Table) Ratios() (xs, ys []float64) {
	if t == nil {
		return nil, nil
	}
	xs = make([]float64, 0, t.Len())
	ys = make([]float64, 0, t.Len())
	for _, g := range t.Rows {
		xs = append(xs, g.LogNIIHa)
		ys = append(ys, g.LogOIIIHb)
	}
	return xs, ys
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
