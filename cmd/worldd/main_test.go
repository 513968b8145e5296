package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dm-vev/chunkengine/server"
)

func TestReadConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	conf, err := readConfigWithFolder(t, path, dir)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if conf.MaxViewRadius != 16 {
		t.Fatalf("expected default view radius, got %d", conf.MaxViewRadius)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}
}

func TestReadConfigExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := "[Server]\nName = \"Test World\"\n\n[World]\nProvider = \"none\"\nGenerator = \"flat\"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	conf, err := readConfig(slog.New(slog.DiscardHandler), path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if conf.Name != "Test World" {
		t.Fatalf("expected name Test World, got %q", conf.Name)
	}
	if conf.World.Provider != nil {
		t.Fatalf("expected no provider, got %T", conf.World.Provider)
	}

	if err := os.WriteFile(path, []byte("[World\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readConfig(slog.New(slog.DiscardHandler), path); err == nil {
		t.Fatalf("expected error for invalid config")
	}
}

// readConfigWithFolder reads the default config with the working directory
// set to dir, so that the default anvil provider opens its folder there.
func readConfigWithFolder(t *testing.T, path, dir string) (server.Config, error) {
	t.Chdir(dir)
	c, err := readConfig(slog.New(slog.DiscardHandler), path)
	if err == nil && c.World.Provider != nil {
		t.Cleanup(func() { _ = c.World.Provider.Close() })
	}
	return c, err
}
