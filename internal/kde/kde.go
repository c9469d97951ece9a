package kde

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Sentinel errors returned by Estimate.
var (
	ErrTooFewPoints = errors.New("kde: need at least two finite points")
	ErrSingular     = errors.New("kde: sample covariance is singular")
)

// cutoff is the kernel support in standard deviations.
const cutoff = 3.0

// GridSpec is the evaluation window and its resolution.
type GridSpec struct {
	XMin, XMax float64
	YMin, YMax float64
	Cols, Rows int
}

// Grid holds density values at cell centres, row-major with row 0 at YMin.
type Grid struct {
	GridSpec
	Density []float64

	// N is the number of finite points the estimate was built from.
	N int
	// Bandwidth is Scott's factor n^(-1/6) applied to the sample covariance.
	Bandwidth float64
}

// CellWidth returns the x extent of one cell.
func (g *Grid) CellWidth() float64 { return (g.XMax - g.XMin) / float64(g.Cols) }

// CellHeight returns the y extent of one cell.
func (g *Grid) CellHeight() float64 { return (g.YMax - g.YMin) / float64(g.Rows) }

// Center returns the data coordinates of cell (col, row).
func (g *Grid) Center(col, row int) (x, y float64) {
	return g.XMin + (float64(col)+0.5)*g.CellWidth(), g.YMin + (float64(row)+0.5)*g.CellHeight()
}

// At returns the density of cell (col, row).
func (g *Grid) At(col, row int) float64 {
	return g.Density[row*g.Cols+col]
}

// Estimate computes a Gaussian kernel density estimate of the points (xs[i],
// ys[i]) on the cells of gs.
//
// The kernel covariance is the sample covariance scaled by Scott's factor.
// Points are first binned on the grid (extended by the kernel support on
// every side) and the bins are then spread with a
// precomputed kernel stencil, which keeps the cost independent of the
// sample size. Non-finite pairs are skipped.
func Estimate(xs, ys []float64, gs GridSpec) (*Grid, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("kde: %d x values but %d y values", len(xs), len(ys))
	}
	if gs.Cols < 1 || gs.Rows < 1 || gs.XMax <= gs.XMin || gs.YMax <= gs.YMin {
		return nil, fmt.Errorf("kde: invalid grid %+v", gs)
	}

	px, py := finitePairs(xs, ys)
	n := len(px)
	if n < 2 {
		return nil, ErrTooFewPoints
	}

	cov, err := sampleCovariance(px, py)
	if err != nil {
		return nil, err
	}
	factor := math.Pow(float64(n), -1.0/6.0)
	cov.ScaleSym(factor*factor, cov)

	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return nil, ErrSingular
	}
	det := chol.Det()
	if !(det > 0) || math.IsInf(det, 0) {
		return nil, ErrSingular
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	kxx, kyy := cov.At(0, 0), cov.At(1, 1)
	ixx, iyy, ixy := inv.At(0, 0), inv.At(1, 1), inv.At(0, 1)
	norm := 1 / (2 * math.Pi * math.Sqrt(det))

	g := &Grid{
		GridSpec:  gs,
		Density:   make([]float64, gs.Cols*gs.Rows),
		N:         n,
		Bandwidth: factor,
	}
	dx, dy := g.CellWidth(), g.CellHeight()

	mx := supportCells(math.Sqrt(kxx), dx, gs.Cols)
	my := supportCells(math.Sqrt(kyy), dy, gs.Rows)

	// Bin counts on the extended grid.
	bw, bh := gs.Cols+2*mx, gs.Rows+2*my
	bins := make(map[int]float64)
	for i := range px {
		c := int(math.Floor((px[i]-gs.XMin)/dx)) + mx
		r := int(math.Floor((py[i]-gs.YMin)/dy)) + my
		if c < 0 || c >= bw || r < 0 || r >= bh {
			continue
		}
		bins[r*bw+c]++
	}

	// Kernel weights for every cell offset inside the support.
	sw := 2*mx + 1
	stencil := make([]float64, sw*(2*my+1))
	for oy := -my; oy <= my; oy++ {
		for ox := -mx; ox <= mx; ox++ {
			ddx, ddy := float64(ox)*dx, float64(oy)*dy
			q := ixx*ddx*ddx + 2*ixy*ddx*ddy + iyy*ddy*ddy
			stencil[(oy+my)*sw+(ox+mx)] = norm * math.Exp(-0.5*q)
		}
	}

	for key, w := range bins {
		bc, br := key%bw-mx, key/bw-my
		for oy := -my; oy <= my; oy++ {
			r := br + oy
			if r < 0 || r >= gs.Rows {
				continue
			}
			row := g.Density[r*gs.Cols : (r+1)*gs.Cols]
			srow := stencil[(oy+my)*sw : (oy+my+1)*sw]
			for ox := -mx; ox <= mx; ox++ {
				c := bc + ox
				if c < 0 || c >= gs.Cols {
					continue
				}
				row[c] += w * srow[ox+mx]
			}
		}
	}

	invN := 1 / float64(n)
	for i := range g.Density {
		g.Density[i] *= invN
	}
	return g, nil
}

// IsoLevels returns density thresholds enclosing the given proportions of
// the probability mass, for levels evenly spaced proportions from thresh to 1.
// The result is ascending: levels[0] is the density below which a thresh
// share of the mass lies, levels[len-1] is the peak density.
func (g *Grid) IsoLevels(levels int, thresh float64) []float64 {
	if levels < 1 || len(g.Density) == 0 {
		return nil
	}
	sorted := append([]float64(nil), g.Density...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	cum := floats.CumSum(make([]float64, len(sorted)), sorted)
	if total := cum[len(cum)-1]; total > 0 {
		floats.Scale(1/total, cum)
	}

	out := make([]float64, levels)
	for k := 0; k < levels; k++ {
		prop := thresh
		if levels > 1 {
			prop = thresh + (1-thresh)*float64(k)/float64(levels-1)
		}
		idx := sort.SearchFloat64s(cum, 1-prop)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		out[k] = sorted[idx]
	}
	return out
}

// Band returns the index of the highest level not above d, or -1 when d is
// below levels[0].
func Band(d float64, levels []float64) int {
	return sort.Search(len(levels), func(i int) bool { return levels[i] > d }) - 1
}

func finitePairs(xs, ys []float64) (px, py []float64) {
	px = make([]float64, 0, len(xs))
	py = make([]float64, 0, len(ys))
	for i := range xs {
		if isFinite(xs[i]) && isFinite(ys[i]) {
			px = append(px, xs[i])
			py = append(py, ys[i])
		}
	}
	return px, py
}

// sampleCovariance returns the unbiased 2x2 sample covariance of the pairs.
func sampleCovariance(xs, ys []float64) (*mat.SymDense, error) {
	data := mat.NewDense(len(xs), 2, nil)
	data.SetCol(0, xs)
	data.SetCol(1, ys)

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	for _, v := range []float64{cov.At(0, 0), cov.At(1, 1), cov.At(0, 1)} {
		if !isFinite(v) {
			return nil, ErrSingular
		}
	}
	return &cov, nil
}

// supportCells is the kernel half-width in cells, capped at the grid size.
func supportCells(sigma, cell float64, limit int) int {
	m := int(math.Ceil(cutoff * sigma / cell))
	if m < 1 {
		m = 1
	}
	if m > limit {
		m = limit
	}
	return m
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
