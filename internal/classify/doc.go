// Package classify places galaxies on the BPT diagram and labels them.
//
// curves.go holds the two published demarcation curves, Kauffmann et al.
// (2003) and Kewley et al. (2001), plus Linspace/Sample for plotting them.
//
// classify.go provides the pure Label(x, y) function and Table, which
// derives both log ratios and the label for every row of a types.Table and
// returns a Summary of counts per label.
//
// Labels: Star-Forming, Composite, AGN. Ambiguous is never produced.
package classify
