package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.Probe.Continuous = true
	cfg.Probe.IntervalMs = 250
	cfg.Metrics.Addr = "127.0.0.1:9310"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o640 {
		t.Fatalf("expected perms 0640 got %v", perm)
	}
	if _, err := os.Stat(path + ".tmp"); err == nil {
		t.Fatalf("expected temp file to be renamed away")
	}

	loaded, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !loaded.Probe.Continuous || loaded.Probe.IntervalMs != 250 || loaded.Metrics.Addr != "127.0.0.1:9310" {
		t.Fatalf("unexpected round trip %+v", loaded)
	}
}
