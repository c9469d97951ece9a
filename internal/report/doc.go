// Package report is the output side of a run that is not the plot itself.
//
// Console prints the progress lines a user sees on stdout. WriteTextfile
// writes the run's label counts and timings in the Prometheus text format,
// ready for a node_exporter textfile collector.
package report
