package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bptclass/bptclass/internal/classify"
)

// Console prints the human-readable progress of a run. Structured logs go
// to slog; these lines are what a user at the terminal reads.
type Console struct {
	w io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Querying() {
	c.println("Querying SDSS database... This may take a moment.")
}

func (c *Console) DataReceived() {
	c.println("Data received successfully.")
}

func (c *Console) FetchError(err error) {
	fmt.Fprintf(c.w, "Error fetching data: %v\n", err)
}

func (c *Console) Classifying() {
	c.println("Calculating line ratios and classifying galaxies...")
}

// Counts prints the per-label breakdown, largest first.
func (c *Console) Counts(s *classify.Summary) {
	c.println("Classification complete:")
	tw := tabwriter.NewWriter(c.w, 0, 0, 4, ' ', 0)
	for _, lc := range s.Sorted() {
		fmt.Fprintf(tw, "%s\t%d\n", lc.Class, lc.Count)
	}
	tw.Flush()
}

func (c *Console) Rendering() {
	c.println("Generating BPT diagram...")
}

func (c *Console) Saved(path string) {
	fmt.Fprintf(c.w, "Plot saved as %s\n", path)
}

// NoData is the final line of a run whose fetch produced nothing to plot.
func (c *Console) NoData() {
	c.println("Could not generate plot due to data fetching errors.")
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.w, s)
}
