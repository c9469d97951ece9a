package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/bptclass/bptclass/internal/classify"
	"github.com/bptclass/bptclass/pkg/types"
)

// Metric names written to the textfile.
const (
	MetricGalaxies      = "bptclass_galaxies"
	MetricGalaxiesTotal = "bptclass_galaxies_total"
	MetricNonFinite     = "bptclass_nonfinite_ratios"
	MetricFetchDuration = "bptclass_fetch_duration_seconds"
	MetricLastRun       = "bptclass_last_run_timestamp_seconds"
)

// Snapshot is the telemetry of one completed run.
type Snapshot struct {
	Summary       *classify.Summary
	FetchDuration time.Duration
	FinishedAt    time.Time
}

// Families converts s to Prometheus metric families, in a stable order.
// Every label in types.Classes gets a series, zero or not.
func (s Snapshot) Families() []*dto.MetricFamily {
	sum := s.Summary
	if sum == nil {
		sum = &classify.Summary{}
	}

	byClass := make([]*dto.Metric, 0, len(types.Classes))
	for _, c := range types.Classes {
		byClass = append(byClass, &dto.Metric{
			Label: []*dto.LabelPair{{Name: proto.String("classification"), Value: proto.String(string(c))}},
			Gauge: &dto.Gauge{Value: proto.Float64(float64(sum.Counts[c]))},
		})
	}

	return []*dto.MetricFamily{
		{
			Name:   proto.String(MetricGalaxies),
			Help:   proto.String("Galaxies per BPT classification in the last run."),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: byClass,
		},
		gauge(MetricGalaxiesTotal, "Galaxies classified in the last run.", float64(sum.Total)),
		gauge(MetricNonFinite, "Galaxies whose line ratios were NaN or infinite.", float64(sum.NonFinite)),
		gauge(MetricFetchDuration, "Time spent fetching the catalogue.", s.FetchDuration.Seconds()),
		gauge(MetricLastRun, "Unix time the last run finished.", float64(s.FinishedAt.UnixNano())/1e9),
	}
}

func gauge(name, help string, v float64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(v)}}},
	}
}

// WriteText encodes s in the Prometheus text exposition format.
func WriteText(w io.Writer, s Snapshot) error {
	for _, mf := range s.Families() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("report: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile replaces path with the exposition of s. The file is written
// next to path and renamed into place so a collector never reads it half
// written.
func WriteTextfile(path string, s Snapshot) error {
	var buf bytes.Buffer
	if err := WriteText(&buf, s); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("report: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("report: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("report: chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("report: rename to %s: %w", path, err)
	}
	return nil
}
