package ble

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Filter selects peripherals from a scan. Zero value matches everything.
type Filter struct {
	NamePrefix string // case-sensitive advertised name prefix
	MAC        string // exact address, case-insensitive
}

// Match reports whether d passes the filter.
func (f Filter) Match(d Device) bool {
	if f.MAC != "" && !strings.EqualFold(d.MAC, f.MAC) {
		return false
	}
	if f.NamePrefix != "" && !strings.HasPrefix(d.Name, f.NamePrefix) {
		return false
	}
	return true
}

// ScanWindow runs one bounded scan and returns the devices passing filter.
// It returns early with what it has if ctx is cancelled.
func ScanWindow(ctx context.Context, adapter Adapter, filter Filter, window time.Duration) ([]Device, error) {
	scanCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	devices, err := adapter.Scan(scanCtx)
	if err != nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}

	var out []Device
	for _, d := range devices {
		if filter.Match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// FindDevice scans in windows until a device passes filter or ctx is done.
func FindDevice(ctx context.Context, adapter Adapter, filter Filter, window time.Duration) (Device, error) {
	for {
		devices, err := ScanWindow(ctx, adapter, filter, window)
		if err != nil {
			return Device{}, err
		}
		if len(devices) > 0 {
			return devices[0], nil
		}
		if err := ctx.Err(); err != nil {
			return Device{}, fmt.Errorf("ble: no device matching %+v: %w", filter, err)
		}
	}
}

// NewAdapter returns the adapter for the named backend: "tinygo" or "hci".
func NewAdapter(backend string) (Adapter, error) {
	switch backend {
	case "", "tinygo":
		return NewTinyGoAdapter(), nil
	case "hci":
		a, err := NewHCIAdapter()
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("ble: unknown backend %q", backend)
	}
}
