package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bptclass/bptclass/internal/config"
	"github.com/bptclass/bptclass/internal/pipeline"
)

// flags holds the command-line overrides. Only flags the user actually set
// are applied on top of the loaded config.
type flags struct {
	configPath  string
	output      string
	noShow      bool
	metricsFile string
	watch       bool
	logLevel    string
	logFormat   string
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "bptclass",
		Short: "Classify SDSS galaxies on the BPT diagram",
		Long: `bptclass queries the SDSS DR8 CasJobs service for emission-line fluxes,
labels every galaxy Star-Forming, Composite or AGN using the Kauffmann (2003)
and Kewley (2001) demarcation curves, and draws the BPT diagram as a PNG.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd, f, stdout, stderr)
			if err != nil {
				fmt.Fprintf(stderr, "bptclass: %v\n", err)
			}
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "path to YAML config file (defaults apply when empty)")
	fl.StringVarP(&f.output, "output", "o", "", "PNG output path (default "+config.DefaultOutput+")")
	fl.BoolVar(&f.noShow, "no-show", false, "do not open the plot in an image viewer")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write a Prometheus textfile summary to this path")
	fl.BoolVar(&f.watch, "watch", false, "re-run whenever the config file changes (requires --config)")
	fl.StringVar(&f.logLevel, "log-level", "", "log level: debug | info | warn | error")
	fl.StringVar(&f.logFormat, "log-format", "", "log format: text | json")
	return cmd
}

func run(cmd *cobra.Command, f flags, stdout, stderr io.Writer) error {
	if f.watch && f.configPath == "" {
		return errors.New("--watch requires --config")
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, f, cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	slog.Info("bptclass starting", "config", f.configPath, "output", cfg.Plot.Output)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := runOnce(ctx, cfg, stdout); err != nil {
		if !f.watch {
			return err
		}
		slog.Error("run failed, waiting for config change", "err", err)
	}
	if !f.watch {
		return nil
	}

	// Runs are sequential on the watcher goroutine; edits made during a run
	// are picked up when it finishes.
	err = config.Watch(ctx, f.configPath, func(updated *config.Config) {
		if err := applyFlags(cmd, f, updated); err != nil {
			slog.Error("config reload rejected", "err", err)
			return
		}
		if err := runOnce(ctx, updated, stdout); err != nil {
			slog.Error("run failed", "err", err)
		}
	})
	slog.Info("bptclass shutting down")
	return err
}

func runOnce(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	r, err := pipeline.New(cfg, pipeline.WithStdout(stdout))
	if err != nil {
		return err
	}
	_, err = r.Run(ctx)
	return err
}

// applyFlags copies explicitly set flags into cfg and re-validates it.
func applyFlags(cmd *cobra.Command, f flags, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("output") {
		cfg.Plot.Output = f.output
	}
	if fl.Changed("no-show") && f.noShow {
		cfg.Plot.Show = false
	}
	if fl.Changed("metrics-file") {
		cfg.Metrics.Textfile = f.metricsFile
	}
	if fl.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fl.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	return config.Validate(cfg)
}

// newLogger builds the slog logger described by lc, writing to w.
func newLogger(lc config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level := slog.LevelInfo
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", lc.Level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(lc.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", lc.Format)
	}
}
