package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const watchTestConfig = `
registry:
  endpoint_id: endpoint-1
  url: https://registry:5000/v3
`

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ceres.yaml")
	if err := os.WriteFile(path, []byte(watchTestConfig), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	watcher, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	reloaded := make(chan *Config, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		watcher.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	updated := watchTestConfig + "\ntelemetry:\n  logging:\n    level: debug\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Telemetry.Logging.Level != "debug" {
			t.Fatalf("expected reloaded config, got level %q", cfg.Telemetry.Logging.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if err := watcher.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestWatcherKeepsPreviousConfigOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ceres.yaml")
	if err := os.WriteFile(path, []byte(watchTestConfig), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	watcher, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	reloaded := make(chan *Config, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		watcher.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)

	// A config that fails validation must not invoke the reload callback.
	if err := os.WriteFile(path, []byte("registry:\n  backend: etcd\n"), 0o644); err != nil {
		t.Fatalf("failed to update config: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("invalid config must not trigger reload")
	case <-time.After(500 * time.Millisecond):
	}

	if err := watcher.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestWatcherStopBeforeWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ceres.yaml")
	watcher, err := NewWatcher(path, 0)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	// Stop on a never-started watcher is a no-op.
	if err := watcher.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestDebouncerCollapsesRapidTriggers(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	defer d.stop()

	fired := make(chan struct{}, 10)
	for i := 0; i < 5; i++ {
		d.trigger(func() { fired <- struct{}{} })
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("debounced callback never fired")
	}

	select {
	case <-fired:
		t.Fatal("expected a single callback for rapid triggers")
	case <-time.After(200 * time.Millisecond):
	}
}
