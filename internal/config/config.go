package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
// They describe the standard DR8 run.
const (
	DefaultURL       = "https://skyserver.sdss.org/casjobs/RestAPI/contexts/dr8/query"
	DefaultFormat    = "csv"
	DefaultOutput    = "BPT_Diagram.png"
	DefaultDPI       = 300
	DefaultWidthIn   = 10.0
	DefaultHeightIn  = 8.0
	DefaultSamples   = 200
	DefaultGridSize  = 150
	DefaultLevels    = 10
	DefaultThreshold = 0.02
	DefaultTitle     = "BPT Diagram for SDSS DR8 Galaxies"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// DefaultQuery selects MPA-JHU emission line fluxes from galSpecLine with a
// signal-to-noise cut of 3 on every line used by the BPT diagram.
const DefaultQuery = `SELECT
    p.specobjid,
    p.h_alpha_flux, p.h_beta_flux,
    p.oiii_5007_flux, p.nii_6584_flux,
    p.h_alpha_flux_err, p.h_beta_flux_err,
    p.oiii_5007_flux_err, p.nii_6584_flux_err
FROM
    galSpecLine as p
WHERE
    p.h_alpha_flux > 3 * p.h_alpha_flux_err AND
    p.h_beta_flux > 3 * p.h_beta_flux_err AND
    p.oiii_5007_flux > 3 * p.oiii_5007_flux_err AND
    p.nii_6584_flux > 3 * p.nii_6584_flux_err
`

// Config is the top-level configuration. Fields map 1:1 to config.example.yaml.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Plot    PlotConfig    `yaml:"plot"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// SourceConfig describes the remote tabular-data service.
type SourceConfig struct {
	// URL is the CasJobs REST query endpoint.
	URL string `yaml:"url"`

	// Query is the SQL text sent as the "query" parameter.
	Query string `yaml:"query"`

	// Format is sent as the "format" parameter. Only csv is decoded.
	Format string `yaml:"format"`

	// Timeout bounds the whole request. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`

	// SkipTypeRow drops the data-type annotation line that follows the header.
	SkipTypeRow bool `yaml:"skip_type_row"`
}

// Range is a closed numeric interval.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Span returns Max - Min.
func (r Range) Span() float64 { return r.Max - r.Min }

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// PlotConfig holds every renderer setting.
type PlotConfig struct {
	// Output is the PNG path written by the renderer.
	Output string `yaml:"output"`

	// Show opens the written image with the platform viewer.
	Show bool `yaml:"show"`

	Title    string  `yaml:"title"`
	DPI      int     `yaml:"dpi"`
	WidthIn  float64 `yaml:"width_in"`
	HeightIn float64 `yaml:"height_in"`

	// XRange and YRange fix the visible axis window.
	XRange Range `yaml:"x_range"`
	YRange Range `yaml:"y_range"`

	// KauffmannRange and KewleyRange are the x spans each curve is sampled over.
	KauffmannRange Range `yaml:"kauffmann_range"`
	KewleyRange    Range `yaml:"kewley_range"`

	// Samples is the number of evenly spaced points per curve.
	Samples int `yaml:"samples"`

	// GridSize is the number of density cells along each axis.
	GridSize int `yaml:"grid_size"`

	// Levels is the number of iso-proportion density levels.
	Levels int `yaml:"levels"`

	// Threshold is the lowest density mass proportion that gets filled.
	Threshold float64 `yaml:"threshold"`
}

// MetricsConfig controls the optional Prometheus textfile summary.
type MetricsConfig struct {
	// Textfile is the path of the .prom file to write. Empty disables it.
	Textfile string `yaml:"textfile"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: text | json.
	Format string `yaml:"format"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults. An empty path returns
// the defaults alone, which is how the tool runs with no arguments.
func Load(path string) (*Config, error) {
	if path == "" {
		return defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return parse(data)
}

// parse decodes YAML bytes over the defaults and validates the result.
func parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Source: SourceConfig{
			URL:         DefaultURL,
			Query:       DefaultQuery,
			Format:      DefaultFormat,
			SkipTypeRow: true,
		},
		Plot: PlotConfig{
			Output:         DefaultOutput,
			Show:           true,
			Title:          DefaultTitle,
			DPI:            DefaultDPI,
			WidthIn:        DefaultWidthIn,
			HeightIn:       DefaultHeightIn,
			XRange:         Range{Min: -2.0, Max: 1.0},
			YRange:         Range{Min: -1.5, Max: 1.5},
			KauffmannRange: Range{Min: -2.5, Max: 0.3},
			KewleyRange:    Range{Min: -2.5, Max: 0.35},
			Samples:        DefaultSamples,
			GridSize:       DefaultGridSize,
			Levels:         DefaultLevels,
			Threshold:      DefaultThreshold,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Validate checks required fields and structural constraints.
func Validate(cfg *Config) error {
	if cfg.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if strings.TrimSpace(cfg.Source.Query) == "" {
		return fmt.Errorf("source.query is required")
	}
	if !strings.EqualFold(cfg.Source.Format, "csv") {
		return fmt.Errorf("source.format %q: only csv is supported", cfg.Source.Format)
	}
	if cfg.Source.Timeout < 0 {
		return fmt.Errorf("source.timeout must not be negative")
	}

	p := cfg.Plot
	if p.Output == "" {
		return fmt.Errorf("plot.output is required")
	}
	if p.DPI <= 0 {
		return fmt.Errorf("plot.dpi must be positive")
	}
	if p.WidthIn <= 0 || p.HeightIn <= 0 {
		return fmt.Errorf("plot.width_in and plot.height_in must be positive")
	}
	for name, r := range map[string]Range{
		"x_range":         p.XRange,
		"y_range":         p.YRange,
		"kauffmann_range": p.KauffmannRange,
		"kewley_range":    p.KewleyRange,
	} {
		if r.Max <= r.Min {
			return fmt.Errorf("plot.%s: max must be greater than min", name)
		}
	}
	if p.Samples < 2 {
		return fmt.Errorf("plot.samples must be at least 2")
	}
	if p.GridSize < 2 {
		return fmt.Errorf("plot.grid_size must be at least 2")
	}
	if p.Levels < 2 {
		return fmt.Errorf("plot.levels must be at least 2")
	}
	if p.Threshold < 0 || p.Threshold >= 1 {
		return fmt.Errorf("plot.threshold must be in [0, 1)")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json", "":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}
