// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Camera describes one stream. The URL doubles as the camera identity
// everywhere else in the process, so it must be unique.
type Camera struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Doorbell is the alarm source polled by the event monitor.
type Doorbell struct {
	Vendor   string `yaml:"vendor"`
	Host     string `yaml:"host"`
	Password string `yaml:"password"`

	// WakeCommand is split on whitespace and executed fire-and-forget
	// when an alarm fires, e.g. `swaymsg output * dpms on`.
	WakeCommand string `yaml:"wake_command"`
}

type Options struct {
	WaitForKeyframe    bool   `yaml:"wait_for_keyframe"`
	UseTCPForRTSP      bool   `yaml:"use_tcp_for_rtsp"`
	CapturePath        string `yaml:"capture_path"`
	// CursorVisible leaves the mouse pointer visible over the video. Off by
	// default: a wall-mounted kiosk has no business showing a cursor.
	CursorVisible      bool   `yaml:"cursor_visible"`
	Fullscreen         bool   `yaml:"fullscreen"`
	HWDecoder          string `yaml:"hw_decoder"`
	IdleTimeoutSeconds int    `yaml:"idle_timeout_seconds"`
}

type Root struct {
	Options  Options  `yaml:"options"`
	Doorbell Doorbell `yaml:"doorbell"`
	Cameras  []Camera `yaml:"cameras"`
}

const defaultIdleTimeout = 5 * time.Second

// Load reads and validates the kiosk configuration. Any error here is fatal to
// the process: running with a partial camera list is worse than not starting.
func Load(path string) (*Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Root, error) {
	var root Root
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := root.validate(); err != nil {
		return nil, err
	}
	return &root, nil
}

func (r *Root) validate() error {
	if len(r.Cameras) == 0 {
		return fmt.Errorf("config: no cameras defined")
	}

	seen := make(map[string]string, len(r.Cameras))
	for i, cam := range r.Cameras {
		name := strings.TrimSpace(cam.Name)
		url := strings.TrimSpace(cam.URL)
		if name == "" {
			return fmt.Errorf("config: camera #%d has no name", i+1)
		}
		if url == "" {
			return fmt.Errorf("config: camera %q has no url", name)
		}
		if prev, dup := seen[url]; dup {
			return fmt.Errorf("config: cameras %q and %q share url %s", prev, name, url)
		}
		seen[url] = name
		r.Cameras[i].Name = name
		r.Cameras[i].URL = url
	}

	if r.Options.IdleTimeoutSeconds < 0 {
		return fmt.Errorf("config: idle_timeout_seconds must be >= 0")
	}
	if r.Options.CapturePath == "" {
		r.Options.CapturePath = "captures"
	}
	if r.Doorbell.Vendor == "" {
		r.Doorbell.Vendor = "reolink"
	}
	return nil
}

// IdleTimeout is how long the kiosk may sit without input before every worker
// is paused.
func (r *Root) IdleTimeout() time.Duration {
	if r.Options.IdleTimeoutSeconds == 0 {
		return defaultIdleTimeout
	}
	return time.Duration(r.Options.IdleTimeoutSeconds) * time.Second
}

// CameraName resolves a camera URL back to its display name.
func (r *Root) CameraName(url string) string {
	for _, cam := range r.Cameras {
		if cam.URL == url {
			return cam.Name
		}
	}
	return "unknown"
}

// DoorbellEnabled reports whether the event monitor should run at all.
func (r *Root) DoorbellEnabled() bool {
	return strings.TrimSpace(r.Doorbell.Host) != ""
}
