// Package types defines the galaxy records shared by the fetcher, classifier
// and renderer. A Table is created fresh for every run, enriched in place by
// the classifier and then handed to the renderer.
package types
