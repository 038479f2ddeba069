// internal/doorbell/monitor.go
package doorbell

import (
	"context"
	"log"
	"os/exec"
	"strings"

	"github.com/vbaud/cctv-kiosk/internal/config"
)

// Monitor runs the vendor driver and fans its alarm signals out: one wake
// signal into the supervisor (non-blocking, duplicates harmless) and one
// fire-and-forget display-wake command.
type Monitor struct {
	cfg  config.Doorbell
	wake chan<- struct{}
}

func NewMonitor(cfg config.Doorbell, wake chan<- struct{}) *Monitor {
	return &Monitor{cfg: cfg, wake: wake}
}

func (m *Monitor) Run(ctx context.Context) error {
	drv, err := GetDriver(m.cfg)
	if err != nil {
		return err
	}

	alarms := make(chan struct{}, 1)
	go func() {
		if err := drv.Run(ctx, alarms); err != nil {
			log.Printf("[doorbell] driver ended with error: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-alarms:
			select {
			case m.wake <- struct{}{}:
			default:
			}
			m.wakeDisplay(ctx)
		}
	}
}

// wakeDisplay runs the configured wake command. Failures are ignored: a dead
// display helper must not take the monitor down with it.
func (m *Monitor) wakeDisplay(ctx context.Context) {
	fields := strings.Fields(m.cfg.WakeCommand)
	if len(fields) == 0 {
		return
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	if err := cmd.Start(); err != nil {
		log.Printf("[doorbell] wake command failed: %v", err)
		return
	}
	go func() { _ = cmd.Wait() }()
}
