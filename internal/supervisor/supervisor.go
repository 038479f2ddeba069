// internal/supervisor/supervisor.go
package supervisor

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/vbaud/cctv-kiosk/internal/config"
	"github.com/vbaud/cctv-kiosk/internal/core"
	"github.com/vbaud/cctv-kiosk/internal/mqttclient"
)

const (
	// frameBacklog bounds the shared output channel. Frames are a decayable
	// latest value, not a log; anything the consumer has not drained yet is
	// fair game for dropping.
	frameBacklog = 8

	// controlBacklog bounds each per-camera control channel. Workers drain
	// every pending value per poll, so this only has to absorb short bursts.
	controlBacklog = 4
)

// Supervisor owns the control-sender registry and the selection state. Workers
// and the event monitor never touch the registry directly; they talk through
// the channels handed out at construction time.
type Supervisor struct {
	mu           sync.Mutex
	cameras      []config.Camera
	controls     map[string]chan bool
	selected     int
	lastActivity time.Time
	idlePaused   bool

	idleTimeout time.Duration
	frames      chan core.Frame
	wake        chan struct{}

	mqtt           *mqttclient.Client
	baseTopic      string
	statusInterval time.Duration
	proc           *process.Process
}

func New(cameras []config.Camera, idleTimeout time.Duration) *Supervisor {
	s := &Supervisor{
		cameras:      cameras,
		controls:     make(map[string]chan bool, len(cameras)),
		lastActivity: time.Now(),
		idleTimeout:  idleTimeout,
		frames:       make(chan core.Frame, frameBacklog),
		wake:         make(chan struct{}, 1),
	}
	for _, cam := range cameras {
		s.controls[cam.URL] = make(chan bool, controlBacklog)
	}
	return s
}

// SetStatusPublisher enables the periodic MQTT status report. Without it the
// supervisor runs silently.
func (s *Supervisor) SetStatusPublisher(cli *mqttclient.Client, baseTopic string) {
	s.mqtt = cli
	s.baseTopic = strings.TrimSuffix(baseTopic, "/")
	s.statusInterval = envDurationSeconds("KIOSK_STATUS_INTERVAL_SECONDS", 30*time.Second)
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
	}
}

// Frames is the shared multi-producer output channel workers publish into.
func (s *Supervisor) Frames() chan<- core.Frame {
	return s.frames
}

// Control returns the worker-side end of a camera's control channel, or nil
// for an unknown URL. Channels are created once at startup and never replaced.
func (s *Supervisor) Control(url string) <-chan bool {
	return s.controls[url]
}

// Wake is the event monitor's input. Duplicate wake signals are harmless.
func (s *Supervisor) Wake() chan<- struct{} {
	return s.wake
}

func (s *Supervisor) Selected() config.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameras[s.selected]
}

// Switch pauses the currently selected camera and resumes new. The old worker
// keeps decoding until its next packet-loop poll; there is deliberately no
// stronger guarantee.
func (s *Supervisor) Switch(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, cam := range s.cameras {
		if cam.URL == url {
			idx = i
			break
		}
	}
	if idx < 0 {
		log.Printf("[supervisor] switch to unknown camera %s ignored", url)
		return
	}

	sendLatest(s.controls[s.cameras[s.selected].URL], false)
	sendLatest(s.controls[url], true)
	s.selected = idx
	s.idlePaused = false
	s.lastActivity = time.Now()
}

func (s *Supervisor) Next() {
	s.rotate(1)
}

func (s *Supervisor) Previous() {
	s.rotate(-1)
}

func (s *Supervisor) rotate(step int) {
	s.mu.Lock()
	n := len(s.cameras)
	url := s.cameras[(s.selected+step+n)%n].URL
	s.mu.Unlock()
	s.Switch(url)
}

// Activity records user input. If the idle policy has paused the streams, the
// selected camera is resumed; everyone else stays paused.
func (s *Supervisor) Activity() {
	s.qualify()
}

func (s *Supervisor) qualify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idlePaused {
		sendLatest(s.controls[s.cameras[s.selected].URL], true)
		s.idlePaused = false
		log.Printf("[supervisor] resuming %s", s.cameras[s.selected].Name)
	}
	s.lastActivity = time.Now()
}

// LatestFrame drains everything queued on the output channel and keeps only
// the newest frame tagged with the selected camera. Stale frames and frames
// from non-selected cameras are discarded.
func (s *Supervisor) LatestFrame() (core.Frame, bool) {
	s.mu.Lock()
	selected := s.cameras[s.selected].URL
	s.mu.Unlock()

	var latest core.Frame
	var ok bool
	for {
		select {
		case f := <-s.frames:
			if f.URL != selected {
				continue
			}
			latest = f
			ok = true
		default:
			return latest, ok
		}
	}
}

// Run drives the idle policy and the wake input until ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) {
	if s.mqtt != nil {
		go s.runStatusLoop(ctx)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			log.Printf("[supervisor] wake event received")
			s.qualify()
		case t := <-ticker.C:
			s.tick(t)
		}
	}
}

// tick pauses every camera once the idle timeout elapses. The latch makes the
// pause fire exactly once per idle period instead of on every tick.
func (s *Supervisor) tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idlePaused || now.Sub(s.lastActivity) < s.idleTimeout {
		return
	}
	for _, ch := range s.controls {
		sendLatest(ch, false)
	}
	s.idlePaused = true
	log.Printf("[supervisor] idle for %s, pausing all cameras", s.idleTimeout)
}

// sendLatest is a non-blocking latest-wins send: when the channel is full the
// oldest queued value is dropped to make room. The worker only acts on the
// last value it drains, so intermediate values are disposable.
func sendLatest(ch chan bool, v bool) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

type cameraStatus struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
	Paused   bool   `json:"paused"`
}

func (s *Supervisor) runStatusLoop(ctx context.Context) {
	hostname, _ := os.Hostname()
	ticker := time.NewTicker(s.statusInterval)
	defer ticker.Stop()

	log.Printf("[supervisor] status loop started (interval=%s)", s.statusInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.publishStatus(hostname, t)
		}
	}
}

func (s *Supervisor) publishStatus(hostname string, now time.Time) {
	s.mu.Lock()
	cams := make([]cameraStatus, len(s.cameras))
	for i, cam := range s.cameras {
		cams[i] = cameraStatus{
			Name:     cam.Name,
			URL:      cam.URL,
			Selected: i == s.selected,
			Paused:   s.idlePaused || i != s.selected,
		}
	}
	idle := s.idlePaused
	selected := s.cameras[s.selected].Name
	s.mu.Unlock()

	payload := map[string]interface{}{
		"collector": "cctv-kiosk",
		"hostname":  hostname,
		"timestamp": now.UTC().Format(time.RFC3339),
		"selected":  selected,
		"idle":      idle,
		"cameras":   cams,
	}

	if s.proc != nil {
		if cpu, err := s.proc.CPUPercent(); err == nil {
			payload["cpu_percent"] = cpu
		}
		if memInfo, err := s.proc.MemoryInfo(); err == nil {
			payload["memory_rss_bytes"] = memInfo.RSS
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[status] marshal status: %v", err)
		return
	}
	topic := s.baseTopic + "/status"
	if err := s.mqtt.Publish(topic, 1, true, b); err != nil {
		log.Printf("[status] publish to %s: %v", topic, err)
	}
}

func envDurationSeconds(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		log.Printf("[supervisor] invalid value %s=%q, using default %s", key, v, def)
		return def
	}
	return time.Duration(sec) * time.Second
}
