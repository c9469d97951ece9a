package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bptclass/bptclass/internal/config"
	"github.com/bptclass/bptclass/pkg/types"
)

const userAgent = "bptclass/1.0"

// Result is the outcome of one query against the remote service.
type Result struct {
	// Table is the decoded result set. Nil whenever Err is set.
	Table *types.Table

	// Status is the HTTP status code, or 0 if no response arrived.
	Status int

	FetchedAt time.Time
	Elapsed   time.Duration

	// Err is non-nil if the request itself failed: connection error,
	// timeout or a non-2xx status. The caller treats it as "no data".
	Err error
}

// Fetcher issues the configured query and decodes the response.
type Fetcher struct {
	src     config.SourceConfig
	client  *http.Client
	decoder Decoder
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the client built from the source config.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithDecoder replaces the CSV decoder.
func WithDecoder(d Decoder) Option {
	return func(f *Fetcher) { f.decoder = d }
}

// New returns a Fetcher for src. It builds the HTTP client once.
func New(src config.SourceConfig, opts ...Option) (*Fetcher, error) {
	if _, err := url.Parse(src.URL); err != nil {
		return nil, fmt.Errorf("fetcher: parse url: %w", err)
	}
	f := &Fetcher{
		src:     src,
		client:  &http.Client{Timeout: src.Timeout},
		decoder: CSVDecoder{SkipTypeRow: src.SkipTypeRow},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch performs a single GET with the query and format parameters. There is
// no retry.
//
// Network-level failures are reported on Result.Err with a nil error so the
// caller can stop cleanly. A returned error means the request could not be
// built or the payload could not be decoded.
func (f *Fetcher) Fetch(ctx context.Context) (*Result, error) {
	res := &Result{FetchedAt: time.Now().UTC()}

	req, err := f.newRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetcher: build request: %w", err)
	}

	slog.Debug("fetcher: querying", "url", f.src.URL, "query_bytes", len(f.src.Query))

	resp, err := f.client.Do(req)
	res.Elapsed = time.Since(res.FetchedAt)
	if err != nil {
		res.Err = fmt.Errorf("http get: %w", err)
		slog.Warn("fetcher: request failed", "url", f.src.URL, "err", err)
		return res, nil
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		res.Err = &StatusError{Code: resp.StatusCode, Status: resp.Status}
		slog.Warn("fetcher: unexpected status", "url", f.src.URL, "status", resp.StatusCode)
		return res, nil
	}

	// Read the whole body before decoding so a connection that drops
	// mid-transfer is reported as a network failure, not a bad payload.
	body, err := io.ReadAll(resp.Body)
	res.Elapsed = time.Since(res.FetchedAt)
	if err != nil {
		res.Err = fmt.Errorf("read body: %w", err)
		slog.Warn("fetcher: body read failed", "url", f.src.URL, "bytes", len(body), "err", err)
		return res, nil
	}

	table, err := f.decoder.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fetcher: decode response: %w", err)
	}

	res.Table = table
	slog.Info("fetcher: data received",
		"rows", table.Len(),
		"status", resp.StatusCode,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func (f *Fetcher) newRequest(ctx context.Context) (*http.Request, error) {
	u, err := url.Parse(f.src.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("query", f.src.Query)
	q.Set("format", f.src.Format)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status %s", e.Status)
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}
