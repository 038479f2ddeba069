package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
options:
  wait_for_keyframe: true
  use_tcp_for_rtsp: true
  capture_path: /tmp/captures
  idle_timeout_seconds: 10
doorbell:
  host: 192.168.1.20
  password: secret
  wake_command: swaymsg output * dpms on
cameras:
  - name: Front Door
    url: rtsp://192.168.1.10:554/stream1
  - name: Garden
    url: rtsp://192.168.1.11:554/stream1
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(cfg.Cameras) != 2 {
		t.Fatalf("expected 2 cameras, got %d", len(cfg.Cameras))
	}
	if cfg.Cameras[0].Name != "Front Door" {
		t.Errorf("expected first camera Front Door, got %q", cfg.Cameras[0].Name)
	}
	if !cfg.Options.UseTCPForRTSP {
		t.Error("expected use_tcp_for_rtsp to be set")
	}
	if got := cfg.IdleTimeout(); got != 10*time.Second {
		t.Errorf("expected idle timeout 10s, got %s", got)
	}
	if !cfg.DoorbellEnabled() {
		t.Error("expected doorbell enabled")
	}
	if cfg.Doorbell.Vendor != "reolink" {
		t.Errorf("expected default vendor reolink, got %q", cfg.Doorbell.Vendor)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("cameras:\n  - name: One\n    url: rtsp://cam/1\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := cfg.IdleTimeout(); got != defaultIdleTimeout {
		t.Errorf("expected default idle timeout %s, got %s", defaultIdleTimeout, got)
	}
	if cfg.Options.CapturePath == "" {
		t.Error("expected a default capture path")
	}
	if cfg.DoorbellEnabled() {
		t.Error("doorbell should be disabled without a host")
	}
}

func TestParseRejectsEmptyCameraList(t *testing.T) {
	if _, err := Parse([]byte("cameras: []\n")); err == nil {
		t.Fatal("expected error for empty camera list")
	}
}

func TestParseRejectsDuplicateURLs(t *testing.T) {
	yaml := `
cameras:
  - name: One
    url: rtsp://cam/1
  - name: Two
    url: rtsp://cam/1
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate urls")
	}
	if !strings.Contains(err.Error(), "share url") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("cameras: [not closed")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestParseCursorVisible(t *testing.T) {
	cfg, err := Parse([]byte("options:\n  cursor_visible: true\ncameras:\n  - name: One\n    url: rtsp://cam/1\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !cfg.Options.CursorVisible {
		t.Error("expected cursor_visible to be set")
	}

	cfg, err = Parse([]byte("cameras:\n  - name: One\n    url: rtsp://cam/1\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Options.CursorVisible {
		t.Error("cursor must be hidden by default")
	}
}

func TestCameraName(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := cfg.CameraName("rtsp://192.168.1.11:554/stream1"); got != "Garden" {
		t.Errorf("expected Garden, got %q", got)
	}
	if got := cfg.CameraName("rtsp://nope"); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
}
