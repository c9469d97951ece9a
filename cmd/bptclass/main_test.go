package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bptclass/bptclass/internal/config"
)

const replyCSV = `specobjid,h_alpha_flux,h_beta_flux,oiii_5007_flux,nii_6584_flux,h_alpha_flux_err,h_beta_flux_err,oiii_5007_flux_err,nii_6584_flux_err
bigint,real,real,real,real,real,real,real,real
1,10,5,2,1,1,1,1,1
2,10,5,20,8,1,1,1,1
3,10,10,10,6.3,1,1,1,1
4,12,6,2.5,1.5,1,1,1,1
`

// writeConfig writes a small-plot config pointing at url and returns its path.
func writeConfig(t *testing.T, dir, url string) string {
	t.Helper()
	yaml := fmt.Sprintf(`
source:
  url: %s
plot:
  output: %s
  dpi: 30
  width_in: 5
  height_in: 4
  grid_size: 30
log:
  level: error
`, url, filepath.Join(dir, "default.png"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRoot_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(replyCSV))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL)
	png := filepath.Join(dir, "flag.png")
	prom := filepath.Join(dir, "bptclass.prom")

	stdout, _, err := execute(t, "--config", cfgPath, "--no-show", "--output", png, "--metrics-file", prom)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout, "Plot saved as "+png) {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(png); err != nil {
		t.Errorf("--output not honoured: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "default.png")); !os.IsNotExist(err) {
		t.Error("config output path used despite --output")
	}
	if _, err := os.Stat(prom); err != nil {
		t.Errorf("metrics textfile not written: %v", err)
	}
}

func TestRoot_FetchFailureExitsCleanly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	stdout, _, err := execute(t, "--config", writeConfig(t, dir, srv.URL), "--no-show")
	if err != nil {
		t.Fatalf("Execute: %v, want nil", err)
	}
	if !strings.HasSuffix(stdout, "Could not generate plot due to data fetching errors.\n") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRoot_MalformedPayloadFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not,a,catalogue\n1,2,3\n"))
	}))
	defer srv.Close()

	_, stderr, err := execute(t, "--config", writeConfig(t, t.TempDir(), srv.URL), "--no-show")
	if err == nil {
		t.Fatal("expected error for malformed payload")
	}
	if !strings.Contains(stderr, "bptclass:") {
		t.Errorf("stderr = %q, want error line", stderr)
	}
}

func TestRoot_WatchRequiresConfig(t *testing.T) {
	if _, _, err := execute(t, "--watch"); err == nil {
		t.Fatal("expected error for --watch without --config")
	}
}

func TestRoot_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("plot:\n  dpi: -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := execute(t, "--config", path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRoot_BadLogFlag(t *testing.T) {
	if _, _, err := execute(t, "--log-format", "xml"); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestRoot_RejectsArgs(t *testing.T) {
	if _, _, err := execute(t, "extra"); err == nil {
		t.Fatal("expected error for positional argument")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		lc      config.LogConfig
		wantErr bool
		json    bool
		debug   bool
	}{
		{name: "defaults", lc: config.LogConfig{}},
		{name: "text debug", lc: config.LogConfig{Level: "debug", Format: "text"}, debug: true},
		{name: "json", lc: config.LogConfig{Level: "warn", Format: "json"}, json: true},
		{name: "upper case", lc: config.LogConfig{Level: "INFO", Format: "JSON"}, json: true},
		{name: "bad level", lc: config.LogConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", lc: config.LogConfig{Format: "xml"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := newLogger(tc.lc, &buf)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newLogger: %v", err)
			}
			if got := l.Enabled(context.Background(), slog.LevelDebug); got != tc.debug {
				t.Errorf("debug enabled = %v, want %v", got, tc.debug)
			}
			l.Error("level check")
			if isJSON := strings.HasPrefix(buf.String(), "{"); isJSON != tc.json {
				t.Errorf("output %q: json = %v, want %v", buf.String(), isJSON, tc.json)
			}
		})
	}
}
