package volcano

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chaz8081/volcano-remote/internal/ble"
)

// Dial connects to device and discovers its characteristics. On any failure
// after the link is up, the link is torn down again.
func Dial(ctx context.Context, adapter ble.Adapter, device ble.Device, opts Options, logger *slog.Logger, progress func(float64)) (*Session, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("volcano: enable adapter: %w", err)
	}

	conn, err := adapter.Connect(ctx, device.MAC)
	if err != nil {
		return nil, fmt.Errorf("volcano: connect: %w", err)
	}

	s := NewSession(device, conn, opts, logger)
	if err := s.Discover(ctx, progress); err != nil {
		if cerr := s.Close(); cerr != nil {
			s.log.Warn("[VOLCANO] disconnect after failed discovery", "error", cerr)
		}
		return nil, err
	}

	s.log.Info("[VOLCANO] connected", "name", device.Name)
	return s, nil
}
