package classify

// Demarcation curve constants in log10([N II]/Hα) vs log10([O III]/Hβ) space.
const (
	// Kauffmann et al. (2003): empirical upper envelope of pure star formation.
	kauffmannScale  = 0.61
	KauffmannPole   = 0.05
	kauffmannOffset = 1.3

	// Kewley et al. (2001): theoretical maximum-starburst line.
	kewleyScale  = 0.61
	KewleyPole   = 0.47
	kewleyOffset = 1.19
)

// Kauffmann returns the Kauffmann et al. (2003) demarcation at x.
// Galaxies below it (and left of the pole) are star-forming.
// The curve is singular at x = KauffmannPole; the result there is ±Inf.
func Kauffmann(x float64) float64 {
	return kauffmannScale/(x-KauffmannPole) + kauffmannOffset
}

// Kewley returns the Kewley et al. (2001) maximum-starburst line at x.
// Galaxies above it are AGN. Singular at x = KewleyPole.
func Kewley(x float64) float64 {
	return kewleyScale/(x-KewleyPole) + kewleyOffset
}

// Linspace returns n evenly spaced values over [start, stop], both inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Sample evaluates curve at n evenly spaced points over [start, stop].
func Sample(curve func(float64) float64, start, stop float64, n int) (xs, ys []float64) {
	xs = Linspace(start, stop, n)
	ys = make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = curve(x)
	}
	return xs, ys
}
