// Package config loads and watches the bptclass configuration file.
//
// Top-level types:
//   - Config{Source, Plot, Metrics, Log}: full config tree parsed from YAML
//   - SourceConfig: url, query, format, timeout, skip_type_row
//   - PlotConfig: output path, show, figure size and DPI, axis window,
//     curve sample spans, density grid size, levels and threshold
//   - MetricsConfig: optional Prometheus textfile path
//   - LogConfig: slog level and handler format
//
// Load(path) applies defaults first, so an empty path or an empty file yields
// the stock run: DR8 CasJobs endpoint, galSpecLine S/N > 3 query,
// BPT_Diagram.png at 300 DPI. The result is then validated.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config. It re-adds the watch after rename
// and remove events so atomic-save editors keep working.
package config
