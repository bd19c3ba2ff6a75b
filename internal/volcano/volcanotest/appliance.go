// Package volcanotest provides an in-memory appliance that implements
// ble.Adapter, for tests of code built on package volcano.
package volcanotest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/chaz8081/volcano-remote/internal/ble"
	"github.com/chaz8081/volcano-remote/internal/volcano"
)

// ErrLink is returned by injected transport failures.
var ErrLink = errors.New("volcanotest: link error")

// Appliance simulates one heater/pump appliance behind a BLE adapter.
// The zero value is not usable; call New.
type Appliance struct {
	Device ble.Device

	mu sync.Mutex

	current    float64
	target     float64
	heater     bool
	pump       bool
	fahrenheit bool

	// heatRate is added to current on every current-temp read while the
	// heater is on, capped at target.
	heatRate   float64
	targetSkew float64

	failTriggers int // remaining trigger writes to fail
	failAll      bool
	missing      map[string]bool
	blockReads   chan struct{}

	targetWrites int
	events       []string
	connects     int
	disconnects  int
}

// New returns an appliance advertising as name at mac, sitting at 20°C.
func New(name, mac string) *Appliance {
	return &Appliance{
		Device:  ble.Device{Name: name, MAC: mac, RSSI: -50},
		current: 20,
		target:  20,
		missing: make(map[string]bool),
	}
}

// SetCurrent sets the measured temperature.
func (a *Appliance) SetCurrent(c float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = c
}

// SetHeatRate makes the appliance warm up by rate per read while heating.
func (a *Appliance) SetHeatRate(rate float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.heatRate = rate
}

// SetTargetSkew offsets every stored target from the written value.
func (a *Appliance) SetTargetSkew(skew float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.targetSkew = skew
}

// SetFahrenheit sets the unit flag.
func (a *Appliance) SetFahrenheit(f bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fahrenheit = f
}

// FailTriggers makes the next n trigger writes fail.
func (a *Appliance) FailTriggers(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failTriggers = n
}

// FailAllWrites makes every write fail until called with false.
func (a *Appliance) FailAllWrites(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failAll = fail
}

// Hide removes a characteristic or service from discovery.
func (a *Appliance) Hide(uuid string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.missing[uuid] = true
}

// BlockReads makes every characteristic read wait until the returned
// function is called.
func (a *Appliance) BlockReads() (release func()) {
	ch := make(chan struct{})
	a.mu.Lock()
	a.blockReads = ch
	a.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			a.blockReads = nil
			a.mu.Unlock()
			close(ch)
		})
	}
}

// State returns heater and pump state.
func (a *Appliance) State() (heater, pump bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.heater, a.pump
}

// Target returns the stored set point.
func (a *Appliance) Target() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.target
}

// TargetWrites returns the number of target-temperature writes received.
func (a *Appliance) TargetWrites() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.targetWrites
}

// Events returns the accepted trigger writes in order, e.g. "heater:on".
func (a *Appliance) Events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

// Connects returns the number of connections made and torn down.
func (a *Appliance) Connects() (connects, disconnects int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connects, a.disconnects
}

// Adapter returns a ble.Adapter whose scans report this appliance plus others.
func (a *Appliance) Adapter(others ...ble.Device) ble.Adapter {
	return &adapter{appliance: a, others: others}
}

type adapter struct {
	appliance *Appliance
	others    []ble.Device
}

func (ad *adapter) Enable() error { return nil }

func (ad *adapter) Scan(ctx context.Context) ([]ble.Device, error) {
	<-ctx.Done()
	return append([]ble.Device{ad.appliance.Device}, ad.others...), nil
}

func (ad *adapter) Connect(ctx context.Context, mac string) (ble.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mac != ad.appliance.Device.MAC {
		return nil, fmt.Errorf("volcanotest: no appliance at %s", mac)
	}
	a := ad.appliance
	a.mu.Lock()
	a.connects++
	a.mu.Unlock()
	return &connection{a: a}, nil
}

type connection struct {
	a *Appliance
}

func (c *connection) DiscoverService(uuid string) (ble.Service, error) {
	c.a.mu.Lock()
	defer c.a.mu.Unlock()
	if c.a.missing[uuid] {
		return nil, fmt.Errorf("volcanotest: service %s not found", uuid)
	}
	switch uuid {
	case volcano.StatusServiceUUID, volcano.ControlServiceUUID:
		return &service{a: c.a, uuid: uuid}, nil
	}
	return nil, fmt.Errorf("volcanotest: service %s not found", uuid)
}

func (c *connection) Disconnect() error {
	c.a.mu.Lock()
	defer c.a.mu.Unlock()
	c.a.disconnects++
	return nil
}

type service struct {
	a    *Appliance
	uuid string
}

var serviceChars = map[string][]string{
	volcano.StatusServiceUUID: {volcano.StatusCharUUID, volcano.UnitCharUUID},
	volcano.ControlServiceUUID: {
		volcano.CurrentTempUUID, volcano.TargetTempUUID,
		volcano.HeaterOnUUID, volcano.HeaterOffUUID,
		volcano.PumpOnUUID, volcano.PumpOffUUID,
	},
}

func (s *service) DiscoverCharacteristic(uuid string) (ble.Characteristic, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	if s.a.missing[uuid] {
		return nil, fmt.Errorf("volcanotest: characteristic %s not found", uuid)
	}
	for _, u := range serviceChars[s.uuid] {
		if u == uuid {
			return &characteristic{a: s.a, uuid: uuid}, nil
		}
	}
	return nil, fmt.Errorf("volcanotest: characteristic %s not found", uuid)
}

type characteristic struct {
	a    *Appliance
	uuid string
}

func (c *characteristic) Read() ([]byte, error) {
	c.a.mu.Lock()
	block := c.a.blockReads
	c.a.mu.Unlock()
	if block != nil {
		<-block
	}

	a := c.a
	a.mu.Lock()
	defer a.mu.Unlock()

	switch c.uuid {
	case volcano.CurrentTempUUID:
		if a.heater && a.heatRate > 0 && a.current < a.target {
			a.current += a.heatRate
			if a.current > a.target {
				a.current = a.target
			}
		}
		// Two bytes: the client must decode whatever width it gets.
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(a.current*10+0.5))
		return buf, nil
	case volcano.TargetTempUUID:
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(a.target*10+0.5))
		return buf, nil
	case volcano.StatusCharUUID:
		var w uint16
		if a.heater {
			w |= 0x0020
		}
		if a.pump {
			w |= 0x2000
		}
		w |= 0x0001 // unrelated bits must be ignored
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, w)
		return buf, nil
	case volcano.UnitCharUUID:
		var w uint16 = 0x0004
		if a.fahrenheit {
			w |= 0x0200
		}
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, w)
		return buf, nil
	}
	return nil, fmt.Errorf("volcanotest: %s is not readable", c.uuid)
}

func (c *characteristic) Write(data []byte) error {
	a := c.a
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failAll {
		return ErrLink
	}

	switch c.uuid {
	case volcano.TargetTempUUID:
		if len(data) != 4 {
			return fmt.Errorf("volcanotest: target write of %d bytes", len(data))
		}
		a.targetWrites++
		a.target = float64(binary.LittleEndian.Uint32(data))/10 + a.targetSkew
		return nil
	case volcano.HeaterOnUUID, volcano.HeaterOffUUID, volcano.PumpOnUUID, volcano.PumpOffUUID:
		if a.failTriggers > 0 {
			a.failTriggers--
			return ErrLink
		}
	default:
		return fmt.Errorf("volcanotest: %s is not writable", c.uuid)
	}

	switch c.uuid {
	case volcano.HeaterOnUUID:
		a.heater = true
		a.events = append(a.events, "heater:on")
	case volcano.HeaterOffUUID:
		a.heater = false
		a.events = append(a.events, "heater:off")
	case volcano.PumpOnUUID:
		a.pump = true
		a.events = append(a.events, "pump:on")
	case volcano.PumpOffUUID:
		a.pump = false
		a.events = append(a.events, "pump:off")
	}
	return nil
}
