//go:build !linux

package ble

import (
	"context"
	"errors"
)

// errHCIUnsupported is returned on platforms without raw HCI sockets.
var errHCIUnsupported = errors.New("ble: hci backend is only available on linux")

// HCIAdapter is unavailable outside Linux.
type HCIAdapter struct{}

// NewHCIAdapter always fails outside Linux.
func NewHCIAdapter() (*HCIAdapter, error) {
	return nil, errHCIUnsupported
}

func (a *HCIAdapter) Enable() error { return errHCIUnsupported }

func (a *HCIAdapter) Scan(context.Context) ([]Device, error) { return nil, errHCIUnsupported }

func (a *HCIAdapter) Connect(context.Context, string) (Connection, error) {
	return nil, errHCIUnsupported
}
