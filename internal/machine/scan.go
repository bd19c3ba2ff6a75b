package machine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chaz8081/volcano-remote/internal/ble"
	"github.com/chaz8081/volcano-remote/internal/ui"
)

type scanEntry struct {
	dev  ble.Device
	seen time.Time
}

// scanRecord is the device list shared with the scanner goroutine.
type scanRecord struct {
	mu      sync.Mutex
	entries []scanEntry // first-seen order
	err     error
}

// merge refreshes entries from one scan pass and drops those unseen for
// longer than timeout.
func (r *scanRecord) merge(found []ble.Device, now time.Time, timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range found {
		i := r.index(d.MAC)
		if i < 0 {
			r.entries = append(r.entries, scanEntry{dev: d, seen: now})
			continue
		}
		if d.Name != "" {
			r.entries[i].dev.Name = d.Name
		}
		r.entries[i].dev.RSSI = d.RSSI
		r.entries[i].seen = now
	}

	kept := r.entries[:0]
	for _, e := range r.entries {
		if now.Sub(e.seen) <= timeout {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}

func (r *scanRecord) index(mac string) int {
	for i, e := range r.entries {
		if strings.EqualFold(e.dev.MAC, mac) {
			return i
		}
	}
	return -1
}

func (r *scanRecord) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *scanRecord) snapshot() ([]ble.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ble.Device, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.dev
	}
	return out, r.err
}

// scanState lists nearby peripherals and lets the user pick one.
type scanState struct {
	env    *Env
	cancel context.CancelFunc
	rec    *scanRecord

	all    bool   // list every peripheral, not only appliances
	mac    string // highlighted device
	m      menu
	chosen *ble.Device
}

func (s *scanState) Enter(in Payload) error {
	if in != nil {
		return fmt.Errorf("machine: %s entered with %T, want nil", Scan, in)
	}
	s.rec = &scanRecord{}
	s.mac, s.m, s.chosen = "", menu{}, nil

	rec := s.rec
	s.cancel = spawn(func(ctx context.Context) error {
		return s.scan(ctx, rec)
	}, func(err error) {
		if err != nil {
			rec.fail(err)
		}
	})
	return nil
}

func (s *scanState) scan(ctx context.Context, rec *scanRecord) error {
	env := s.env
	if err := env.Adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	for {
		found, err := ble.ScanWindow(ctx, env.Adapter, ble.Filter{}, env.Options.ScanWindow)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			env.Logger.Warn("[FSM] scan failed", "error", err)
			if err := env.Clock.Sleep(ctx, env.Options.ScanWindow); err != nil {
				return err
			}
			continue
		}
		rec.merge(found, env.Clock.Now(), env.Options.DeviceTimeout)
	}
}

// visible filters the snapshot by the current filter mode.
func (s *scanState) visible(all []ble.Device) []ble.Device {
	if s.all {
		return all
	}
	filter := ble.Filter{NamePrefix: s.env.Options.NamePrefix}
	var out []ble.Device
	for _, d := range all {
		if filter.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s *scanState) Draw(sf ui.Surface, bs ui.Buttons) (StateID, error) {
	devices, err := s.rec.snapshot()
	if err != nil {
		return Stay, err
	}

	if bs.Once(ui.X) {
		s.all = !s.all
	}
	list := s.visible(devices)

	s.m.cur = -1
	for i, d := range list {
		if d.MAC == s.mac {
			s.m.cur = i
		}
	}
	if s.m.cur < 0 {
		// Prefer the first appliance; otherwise nothing is highlighted.
		s.mac = ""
		for i, d := range list {
			if strings.HasPrefix(d.Name, s.env.Options.NamePrefix) {
				s.m.cur, s.mac = i, d.MAC
				break
			}
		}
	}

	switch {
	case (bs.Once(ui.Enter) || bs.Once(ui.A)) && s.m.cur >= 0:
		d := list[s.m.cur]
		s.chosen = &d
		return Select, nil
	case bs.Once(ui.Up) && len(list) > 0:
		if s.m.cur < 0 {
			s.m.cur = 0
		}
		s.m.move(-1, len(list))
		s.mac = list[s.m.cur].MAC
	case bs.Once(ui.Down) && len(list) > 0:
		if s.m.cur < 0 {
			s.m.cur = len(list) - 1
		}
		s.m.move(1, len(list))
		s.mac = list[s.m.cur].MAC
	default:
		adjustBrightness(sf, bs)
	}

	title := "Scanning for Bluetooth devices"
	if s.all {
		title = "Scanning for all devices"
	}
	sf.Text(title, 0, 10, ui.Red)
	brightnessBar(sf)

	if s.m.cur >= 0 {
		s.m.scroll(sf)
	}
	s.m.drawRows(sf, len(list), func(i int) (string, string, ui.Color) {
		d := list[i]
		c := ui.White
		if strings.HasPrefix(d.Name, s.env.Options.NamePrefix) {
			c = ui.Green
		}
		if i == s.m.cur {
			c = ui.Red
		}
		return fmt.Sprintf("%d: %s", i+1, d.Name), fmt.Sprintf("[%s] %d", d.MAC, d.RSSI), c
	})
	if len(list) == 0 {
		centered(sf, "No devices found yet")
	}
	return Stay, nil
}

func (s *scanState) Exit() Payload {
	if s.cancel != nil {
		s.cancel()
	}
	if s.chosen == nil {
		return nil
	}
	return Discovered{Device: *s.chosen}
}
