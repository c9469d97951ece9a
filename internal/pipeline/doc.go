// Package pipeline runs one complete classification pass: fetch the
// catalogue, classify every galaxy, draw the diagram and write the optional
// metrics textfile.
//
// A failed or empty fetch ends the run early with Outcome.NoData and no
// error, after printing the failure to the console. Every run carries a
// random RunID that is attached to its log lines.
package pipeline
