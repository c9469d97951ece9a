// Package render draws the BPT diagram as a PNG with go-chart.
//
// Layers, bottom to top: filled kernel density bands of the galaxy ratios,
// the Kauffmann (dashed black) and Kewley (solid red) demarcation curves,
// region annotations and a curve legend. When the plot config asks for it
// the written file is opened with the platform image viewer.
package render
