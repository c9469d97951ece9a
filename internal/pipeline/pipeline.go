package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/bptclass/bptclass/internal/classify"
	"github.com/bptclass/bptclass/internal/config"
	"github.com/bptclass/bptclass/internal/fetcher"
	"github.com/bptclass/bptclass/internal/render"
	"github.com/bptclass/bptclass/internal/report"
)

// Outcome describes one finished run.
type Outcome struct {
	RunID string

	// Fetched is the raw fetch result, including any request error.
	Fetched *fetcher.Result

	// Summary and ImagePath are set only when a plot was produced.
	Summary   *classify.Summary
	ImagePath string

	// NoData is true when the fetch failed or returned no rows. Nothing was
	// classified or drawn.
	NoData bool
}

// Runner executes fetch, classify, render and report for one config.
type Runner struct {
	cfg      *config.Config
	fetcher  *fetcher.Fetcher
	renderer *render.Renderer
	console  *report.Console
	now      func() time.Time
}

type options struct {
	stdout     io.Writer
	httpClient *http.Client
	opener     render.Opener
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*options)

// WithStdout sends progress lines to w instead of os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithHTTPClient replaces the HTTP client used for the query.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithOpener replaces the image viewer used when the plot config sets Show.
func WithOpener(fn render.Opener) Option {
	return func(o *options) { o.opener = fn }
}

// WithClock replaces time.Now for the run timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds a Runner for cfg.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: nil config")
	}
	o := options{stdout: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	var fopts []fetcher.Option
	if o.httpClient != nil {
		fopts = append(fopts, fetcher.WithHTTPClient(o.httpClient))
	}
	f, err := fetcher.New(cfg.Source, fopts...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	var ropts []render.Option
	if o.opener != nil {
		ropts = append(ropts, render.WithOpener(o.opener))
	}

	return &Runner{
		cfg:      cfg,
		fetcher:  f,
		renderer: render.New(cfg.Plot, ropts...),
		console:  report.NewConsole(o.stdout),
		now:      o.now,
	}, nil
}

// Run performs one complete pass. A failed or empty fetch is not an error:
// it is reported on the console and returned as Outcome.NoData. Decode,
// render and context errors are returned.
//
// For the duration of the pass the default slog logger carries the run id,
// so the fetcher, classifier and renderer lines can be joined to it. Runs
// must therefore not overlap.
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	prev := slog.Default()
	log := prev.With("run_id", out.RunID)
	slog.SetDefault(log)
	defer slog.SetDefault(prev)

	log.Info("pipeline: run started", "url", r.cfg.Source.URL)

	r.console.Querying()
	res, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return out, fmt.Errorf("pipeline: %w", err)
	}
	out.Fetched = res

	if res.Err != nil {
		log.Error("pipeline: fetch failed", "status", res.Status, "elapsed", res.Elapsed, "err", res.Err)
		r.console.FetchError(res.Err)
		r.console.NoData()
		out.NoData = true
		return out, nil
	}
	r.console.DataReceived()
	if res.Table.Len() == 0 {
		log.Warn("pipeline: query returned no rows")
		r.console.NoData()
		out.NoData = true
		return out, nil
	}

	r.console.Classifying()
	out.Summary = classify.Table(res.Table)
	r.console.Counts(out.Summary)

	r.console.Rendering()
	path, err := r.renderer.Render(ctx, res.Table)
	if err != nil {
		return out, fmt.Errorf("pipeline: %w", err)
	}
	out.ImagePath = path
	r.console.Saved(path)

	if tf := r.cfg.Metrics.Textfile; tf != "" {
		snap := report.Snapshot{
			Summary:       out.Summary,
			FetchDuration: res.Elapsed,
			FinishedAt:    r.now(),
		}
		if err := report.WriteTextfile(tf, snap); err != nil {
			log.Warn("pipeline: metrics textfile not written", "path", tf, "err", err)
		} else {
			log.Debug("pipeline: metrics textfile written", "path", tf)
		}
	}

	log.Info("pipeline: run complete",
		"rows", out.Summary.Total,
		"non_finite", out.Summary.NonFinite,
		"image", out.ImagePath,
	)
	return out, nil
}
