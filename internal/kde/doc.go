// Package kde estimates a bivariate Gaussian kernel density on a regular
// grid and derives iso-proportion contour levels from it.
//
// Bandwidth follows Scott's rule (n^(-1/6) times the sample covariance),
// factored with gonum's Cholesky decomposition.
// The estimate is binned, so a few hundred thousand galaxies cost about the
// same as a few hundred.
package kde
