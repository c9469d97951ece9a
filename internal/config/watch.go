package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long Watch waits after the last event on the config
// file before reloading it. Editors typically emit several events per save.
var settleDelay = 150 * time.Millisecond

// Watch monitors the config file at path and calls onChange with the newly
// loaded Config each time its contents change. It runs until ctx is
// cancelled.
//
// The parent directory is watched rather than the file itself, so saves that
// write a temporary file and rename it over path are seen like in-place
// writes. Bursts of events are coalesced into one reload, and a reload whose
// bytes match the last accepted file is skipped.
//
// If a reload fails (e.g., invalid YAML) the error is logged and onChange is
// not called, so the caller keeps whatever it built from the previous file.
// onChange runs on the watcher goroutine.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	target := filepath.Clean(path)
	last, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}

	slog.Info("config: watching for changes", "path", target, "dir", dir)

	settle := time.NewTimer(settleDelay)
	if !settle.Stop() {
		<-settle.C
	}
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Op == fsnotify.Chmod {
				continue
			}
			slog.Debug("config: file event", "path", target, "op", event.Op.String())
			settle.Reset(settleDelay)

		case <-settle.C:
			data, err := os.ReadFile(target)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", target, "err", err)
				continue
			}
			if bytes.Equal(data, last) {
				slog.Debug("config: contents unchanged", "path", target)
				continue
			}
			cfg, err := parse(data)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", target, "err", err)
				continue
			}
			last = data

			slog.Info("config: reloaded", "path", target)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
