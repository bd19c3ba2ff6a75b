package ble

import (
	"context"
	"fmt"
	"sync"

	"tinygo.org/x/bluetooth"
)

// TinyGoAdapter wraps tinygo-org/bluetooth (BlueZ on Linux, CoreBluetooth
// on macOS, WinRT on Windows).
// On macOS, BLE device addresses are CoreBluetooth UUIDs (not MAC addresses).
// The "MAC" field in Device stores this UUID string.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter

	// scanMu serializes scans; the underlying adapter supports one at a time.
	scanMu sync.Mutex
}

// NewTinyGoAdapter creates a new BLE adapter on the default host controller.
func NewTinyGoAdapter() *TinyGoAdapter {
	return &TinyGoAdapter{adapter: bluetooth.DefaultAdapter}
}

func (a *TinyGoAdapter) Enable() error {
	return a.adapter.Enable()
}

func (a *TinyGoAdapter) Scan(ctx context.Context) ([]Device, error) {
	a.scanMu.Lock()
	defer a.scanMu.Unlock()

	var mu sync.Mutex
	var devices []Device
	index := make(map[string]int)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.adapter.StopScan()
		case <-done:
		}
	}()

	err := a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		d := Device{
			Name: result.LocalName(),
			MAC:  result.Address.String(),
			RSSI: int(result.RSSI),
		}
		mu.Lock()
		defer mu.Unlock()
		if i, ok := index[d.MAC]; ok {
			// Later advertisements carry fresher RSSI; keep a name once seen.
			if d.Name == "" {
				d.Name = devices[i].Name
			}
			devices[i] = d
			return
		}
		index[d.MAC] = len(devices)
		devices = append(devices, d)
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}

func (a *TinyGoAdapter) Connect(ctx context.Context, mac string) (Connection, error) {
	var addr bluetooth.Address
	addr.Set(mac)

	// tinygo/bluetooth's Connect blocks internally with its own timeout.
	// We wrap it to also respect our ctx cancellation.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		// The underlying Connect may still succeed later; drop that link
		// so the peripheral goes back to advertising.
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.device.Disconnect()
			}
		}()
		return nil, fmt.Errorf("ble: connect to %s: %w", mac, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("ble: connect to %s: %w", mac, result.err)
		}
		return &tinyGoConnection{device: result.device}, nil
	}
}

// Compile-time check that TinyGoAdapter implements Adapter.
var _ Adapter = (*TinyGoAdapter)(nil)

type tinyGoConnection struct {
	device bluetooth.Device
}

func (c *tinyGoConnection) DiscoverService(serviceUUID string) (Service, error) {
	svcUUID, err := bluetooth.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}

	svcs, err := c.device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}
	if len(svcs) == 0 {
		return nil, fmt.Errorf("ble: service %s not found", serviceUUID)
	}
	return &tinyGoService{svc: svcs[0]}, nil
}

func (c *tinyGoConnection) Disconnect() error {
	return c.device.Disconnect()
}

type tinyGoService struct {
	svc bluetooth.DeviceService
}

func (s *tinyGoService) DiscoverCharacteristic(charUUID string) (Characteristic, error) {
	uuid, err := bluetooth.ParseUUID(charUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse characteristic UUID: %w", err)
	}

	chars, err := s.svc.DiscoverCharacteristics([]bluetooth.UUID{uuid})
	if err != nil {
		return nil, fmt.Errorf("ble: discover characteristics: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("ble: characteristic %s not found", charUUID)
	}
	return &tinyGoCharacteristic{char: chars[0]}, nil
}

type tinyGoCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

// maxReadSize covers the appliance's largest characteristic value.
const maxReadSize = 64

func (c *tinyGoCharacteristic) Read() ([]byte, error) {
	buf := make([]byte, maxReadSize)
	n, err := c.char.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Write uses write-without-response, the only write the Linux (BlueZ)
// backend offers. Callers that need confirmation read the value back.
func (c *tinyGoCharacteristic) Write(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}

var (
	_ Connection     = (*tinyGoConnection)(nil)
	_ Service        = (*tinyGoService)(nil)
	_ Characteristic = (*tinyGoCharacteristic)(nil)
)
