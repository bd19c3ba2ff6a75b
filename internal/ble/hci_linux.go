//go:build linux

package ble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fako1024/gatt"
)

var defaultHCIOptions = []gatt.Option{
	gatt.LnxMaxConnections(1),
	gatt.LnxDeviceID(-1, true),
}

// poweredOnTimeout bounds how long Enable waits for the controller.
const poweredOnTimeout = 5 * time.Second

// HCIAdapter drives a Linux HCI controller directly through fako1024/gatt,
// bypassing BlueZ. It needs CAP_NET_ADMIN (or root).
type HCIAdapter struct {
	device gatt.Device

	enableOnce sync.Once
	enableErr  error
	poweredOn  chan struct{}

	mu          sync.Mutex
	peripherals map[string]gatt.Peripheral    // last seen, keyed by lowercase ID
	collect     func(Device)                  // non-nil while a Scan is running
	pending     map[string]chan connectResult // keyed by lowercase ID
}

type connectResult struct {
	p   gatt.Peripheral
	err error
}

// NewHCIAdapter creates an adapter on the first available HCI device.
func NewHCIAdapter() (*HCIAdapter, error) {
	d, err := gatt.NewDevice(defaultHCIOptions...)
	if err != nil {
		return nil, fmt.Errorf("ble: open HCI device: %w", err)
	}
	return &HCIAdapter{
		device:      d,
		poweredOn:   make(chan struct{}),
		peripherals: make(map[string]gatt.Peripheral),
		pending:     make(map[string]chan connectResult),
	}, nil
}

func (a *HCIAdapter) Enable() error {
	a.enableOnce.Do(func() {
		a.device.Handle(
			gatt.AddPeripheralDiscovered(a.onPeriphDiscovered),
			gatt.AddPeripheralConnected(a.onPeriphConnected),
			gatt.AddPeripheralDisconnected(a.onPeriphDisconnected),
		)

		var once sync.Once
		if err := a.device.Init(func(d gatt.Device, s gatt.State) {
			slog.Debug("[BLE] HCI state changed", "state", s)
			if s == gatt.StatePoweredOn {
				once.Do(func() { close(a.poweredOn) })
			}
		}); err != nil {
			a.enableErr = fmt.Errorf("ble: init HCI device: %w", err)
			return
		}

		select {
		case <-a.poweredOn:
		case <-time.After(poweredOnTimeout):
			a.enableErr = fmt.Errorf("ble: HCI device not powered on after %s", poweredOnTimeout)
		}
	})
	return a.enableErr
}

func (a *HCIAdapter) Scan(ctx context.Context) ([]Device, error) {
	var devices []Device
	index := make(map[string]int)

	a.mu.Lock()
	a.collect = func(d Device) {
		if i, ok := index[d.MAC]; ok {
			if d.Name == "" {
				d.Name = devices[i].Name
			}
			devices[i] = d
			return
		}
		index[d.MAC] = len(devices)
		devices = append(devices, d)
	}
	a.mu.Unlock()

	// Duplicates on, so RSSI keeps updating while the window is open.
	if err := a.device.Scan([]gatt.UUID{}, true); err != nil {
		a.stopCollect()
		return nil, fmt.Errorf("ble: scan: %w", err)
	}
	<-ctx.Done()
	if err := a.device.StopScanning(); err != nil {
		slog.Warn("[BLE] failed to stop scanning", "error", err)
	}
	a.stopCollect()

	a.mu.Lock()
	defer a.mu.Unlock()
	return devices, nil
}

func (a *HCIAdapter) stopCollect() {
	a.mu.Lock()
	a.collect = nil
	a.mu.Unlock()
}

func (a *HCIAdapter) Connect(ctx context.Context, mac string) (Connection, error) {
	id := strings.ToLower(mac)

	a.mu.Lock()
	p, ok := a.peripherals[id]
	ch := make(chan connectResult, 1)
	if ok {
		a.pending[id] = ch
	}
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("ble: connect to %s: peripheral not seen in a scan", mac)
	}

	if err := a.device.Connect(p); err != nil {
		a.dropPending(id)
		return nil, fmt.Errorf("ble: connect to %s: %w", mac, err)
	}

	select {
	case <-ctx.Done():
		a.dropPending(id)
		a.device.CancelConnection(p)
		return nil, fmt.Errorf("ble: connect to %s: %w", mac, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("ble: connect to %s: %w", mac, r.err)
		}
		return &hciConnection{p: r.p}, nil
	}
}

func (a *HCIAdapter) dropPending(id string) {
	a.mu.Lock()
	delete(a.pending, id)
	a.mu.Unlock()
}

// Compile-time check that HCIAdapter implements Adapter.
var _ Adapter = (*HCIAdapter)(nil)

func (a *HCIAdapter) onPeriphDiscovered(p gatt.Peripheral, adv *gatt.Advertisement, rssi int) {
	name := p.Name()
	if adv != nil && adv.LocalName != "" {
		name = adv.LocalName
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.peripherals[strings.ToLower(p.ID())] = p
	if a.collect != nil {
		a.collect(Device{Name: name, MAC: p.ID(), RSSI: rssi})
	}
}

func (a *HCIAdapter) onPeriphConnected(p gatt.Peripheral, err error) {
	id := strings.ToLower(p.ID())

	a.mu.Lock()
	ch, ok := a.pending[id]
	delete(a.pending, id)
	a.mu.Unlock()

	if !ok {
		// Nobody is waiting any more (connect was cancelled).
		slog.Debug("[BLE] dropping unexpected connection", "id", p.ID())
		p.Device().CancelConnection(p)
		return
	}
	ch <- connectResult{p: p, err: err}
}

func (a *HCIAdapter) onPeriphDisconnected(p gatt.Peripheral, err error) {
	slog.Debug("[BLE] peripheral disconnected", "id", p.ID(), "error", err)
}

type hciConnection struct {
	p gatt.Peripheral
}

func (c *hciConnection) DiscoverService(serviceUUID string) (Service, error) {
	uuid, err := gatt.ParseUUID(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}

	ss, err := c.p.DiscoverServices([]gatt.UUID{uuid})
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}
	for _, s := range ss {
		if s.UUID().Equal(uuid) {
			return &hciService{p: c.p, svc: s}, nil
		}
	}
	return nil, fmt.Errorf("ble: service %s not found", serviceUUID)
}

func (c *hciConnection) Disconnect() error {
	c.p.Device().CancelConnection(c.p)
	return nil
}

type hciService struct {
	p   gatt.Peripheral
	svc *gatt.Service
}

func (s *hciService) DiscoverCharacteristic(charUUID string) (Characteristic, error) {
	uuid, err := gatt.ParseUUID(charUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse characteristic UUID: %w", err)
	}

	cs, err := s.p.DiscoverCharacteristics([]gatt.UUID{uuid}, s.svc)
	if err != nil {
		return nil, fmt.Errorf("ble: discover characteristics: %w", err)
	}
	for _, c := range cs {
		if c.UUID().Equal(uuid) {
			return &hciCharacteristic{p: s.p, c: c}, nil
		}
	}
	return nil, fmt.Errorf("ble: characteristic %s not found", charUUID)
}

type hciCharacteristic struct {
	p gatt.Peripheral
	c *gatt.Characteristic
}

func (c *hciCharacteristic) Read() ([]byte, error) {
	return c.p.ReadCharacteristic(c.c)
}

func (c *hciCharacteristic) Write(data []byte) error {
	return c.p.WriteCharacteristic(c.c, data, false)
}
