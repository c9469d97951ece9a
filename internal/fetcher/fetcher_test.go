package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/bptclass/bptclass/internal/config"
)

func testSource(url string) config.SourceConfig {
	return config.SourceConfig{
		URL:         url,
		Query:       "SELECT TOP 2 * FROM galSpecLine",
		Format:      "csv",
		SkipTypeRow: true,
	}
}

func TestFetch_Success(t *testing.T) {
	var gotQuery, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotFormat = r.URL.Query().Get("format")
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(casjobsCSV))
	}))
	defer srv.Close()

	f, err := New(testSource(srv.URL), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Err != nil {
		t.Fatalf("res.Err = %v", res.Err)
	}
	if gotQuery != "SELECT TOP 2 * FROM galSpecLine" {
		t.Errorf("query parameter: got %q", gotQuery)
	}
	if gotFormat != "csv" {
		t.Errorf("format parameter: got %q", gotFormat)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status: got %d", res.Status)
	}
	if res.Table.Len() != 2 {
		t.Errorf("rows: got %d, want 2", res.Table.Len())
	}
	if res.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "query failed", code)
			}))
			defer srv.Close()

			f, _ := New(testSource(srv.URL), WithHTTPClient(srv.Client()))
			res, err := f.Fetch(context.Background())
			if err != nil {
				t.Fatalf("Fetch() should not return err, got: %v", err)
			}
			if res.Table != nil {
				t.Error("res.Table should be nil on a failed request")
			}
			var se *StatusError
			if !errors.As(res.Err, &se) {
				t.Fatalf("res.Err = %v, want *StatusError", res.Err)
			}
			if se.Code != code {
				t.Errorf("StatusError.Code = %d, want %d", se.Code, code)
			}
			if res.Status != code {
				t.Errorf("res.Status = %d, want %d", res.Status, code)
			}
		})
	}
}

func TestFetch_ConnectFailure(t *testing.T) {
	f, err := New(testSource("http://127.0.0.1:1/query"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() should not return err, got: %v", err)
	}
	if res.Err == nil {
		t.Fatal("res.Err should be set when endpoint is unreachable")
	}
	if res.Table != nil {
		t.Error("res.Table should be nil when endpoint is unreachable")
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	src := testSource(srv.URL)
	src.Timeout = 50 * time.Millisecond
	f, _ := New(src)

	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() should not return err, got: %v", err)
	}
	if res.Err == nil {
		t.Fatal("res.Err should be set after a timeout")
	}
}

func TestFetch_TruncatedBodyIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Promise more bytes than are sent, then drop the connection.
		w.Header().Set("Content-Length", strconv.Itoa(len(casjobsCSV)+500))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(casjobsCSV))
		w.(http.Flusher).Flush()
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	f, _ := New(testSource(srv.URL), WithHTTPClient(srv.Client()))
	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() should not return err, got: %v", err)
	}
	if res.Err == nil {
		t.Fatal("res.Err should be set when the body is cut short")
	}
	if !errors.Is(res.Err, io.ErrUnexpectedEOF) {
		t.Errorf("res.Err = %v, want io.ErrUnexpectedEOF", res.Err)
	}
	if res.Table != nil {
		t.Error("res.Table should be nil when the body is cut short")
	}
	if res.Status != http.StatusOK {
		t.Errorf("status: got %d, want 200", res.Status)
	}
}

func TestFetch_StalledBodyTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(casjobsCSV[:40]))
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	src := testSource(srv.URL)
	src.Timeout = 100 * time.Millisecond
	f, _ := New(src)

	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() should not return err, got: %v", err)
	}
	if res.Err == nil || res.Table != nil {
		t.Errorf("got Err=%v Table=%v, want a read error and no table", res.Err, res.Table)
	}
}

func TestFetch_MalformedPayloadIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("error\nbad\n"))
	}))
	defer srv.Close()

	f, _ := New(testSource(srv.URL), WithHTTPClient(srv.Client()))
	res, err := f.Fetch(context.Background())
	if err == nil {
		t.Fatalf("Fetch() error = nil, want decode error (res = %+v)", res)
	}
	if !errors.Is(err, ErrMissingColumn) {
		t.Errorf("error = %v, want ErrMissingColumn", err)
	}
}

func TestFetch_HTTPMock(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, config.DefaultURL,
		func(req *http.Request) (*http.Response, error) {
			if req.URL.Query().Get("format") != "csv" {
				return httpmock.NewStringResponse(http.StatusBadRequest, "format"), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, casjobsCSV), nil
		})

	src := config.Default().Source
	f, err := New(src)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Err != nil {
		t.Fatalf("res.Err = %v", res.Err)
	}
	if res.Table.Len() != 2 {
		t.Errorf("rows: got %d, want 2", res.Table.Len())
	}
	if n := httpmock.GetTotalCallCount(); n != 1 {
		t.Errorf("requests: got %d, want exactly 1 (no retry)", n)
	}
}

func TestFetch_HTTPMockFailureIsNotRetried(t *testing.T) {
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder(http.MethodGet, config.DefaultURL,
		httpmock.NewStringResponder(http.StatusBadGateway, "upstream down"))

	f, _ := New(config.Default().Source)
	res, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Err == nil {
		t.Fatal("res.Err should be set on 502")
	}
	if n := httpmock.GetTotalCallCount(); n != 1 {
		t.Errorf("requests: got %d, want 1", n)
	}
}

func TestFetch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(casjobsCSV))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, _ := New(testSource(srv.URL), WithHTTPClient(srv.Client()))
	res, err := f.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("res.Err = %v, want context.Canceled", res.Err)
	}
}
