package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Socket.Enabled {
		t.Error("Socket should be disabled by default")
	}
	if cfg.Socket.MaxBufferedBytes != 4<<20 {
		t.Errorf("Unexpected buffer cap %d", cfg.Socket.MaxBufferedBytes)
	}
	if !cfg.Browser.ToolbarVisible {
		t.Error("Toolbar should be visible by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Unexpected log level %q", cfg.Logging.Level)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("QUAHL_SOCKET", "true")
	t.Setenv("QUAHL_SOCKET_ADDR", "127.0.0.1:9100")
	t.Setenv("QUAHL_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Socket.Enabled {
		t.Error("QUAHL_SOCKET should enable the socket")
	}
	if cfg.Socket.Addr != "127.0.0.1:9100" {
		t.Errorf("Unexpected addr %q", cfg.Socket.Addr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Unexpected level %q", cfg.Logging.Level)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quahl.yaml")
	content := `
socket:
  enabled: true
  addr: "127.0.0.1:9200"
browser:
  home_url: "https://example.com"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !cfg.Socket.Enabled || cfg.Socket.Addr != "127.0.0.1:9200" {
		t.Errorf("Overlay not applied: %+v", cfg.Socket)
	}
	if cfg.Browser.HomeURL != "https://example.com" {
		t.Errorf("Overlay not applied: %+v", cfg.Browser)
	}
	// Keys absent from the file keep their values.
	if cfg.Socket.MaxBufferedBytes != 4<<20 {
		t.Errorf("Unset key should keep default, got %d", cfg.Socket.MaxBufferedBytes)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), cfg); err == nil {
		t.Error("Missing file should be an error")
	}
}
