// internal/doorbell/base.go
package doorbell

import (
	"context"
	"errors"

	"github.com/vbaud/cctv-kiosk/internal/config"
)

var ErrDriverNotFound = errors.New("no driver registered for this doorbell vendor")

// Driver polls one alarm source and signals on alarms until ctx is canceled.
// Run owns its own reconnection; it only returns on cancellation.
type Driver interface {
	Run(ctx context.Context, alarms chan<- struct{}) error
}

type DriverFactory func(cfg config.Doorbell) (Driver, error)

// registry: vendor -> factory
var registry = map[string]DriverFactory{}

// RegisterDriver is called from each driver's init().
func RegisterDriver(vendor string, f DriverFactory) {
	registry[normalize(vendor)] = f
}

func GetDriver(cfg config.Doorbell) (Driver, error) {
	if f, ok := registry[normalize(cfg.Vendor)]; ok {
		return f(cfg)
	}
	return nil, ErrDriverNotFound
}

func normalize(s string) string {
	b := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' || r == '-' || r == '_' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r = r + 32
		}
		b = append(b, r)
	}
	return string(b)
}
