package machine

import (
	"fmt"

	"github.com/chaz8081/volcano-remote/internal/ble"
	"github.com/chaz8081/volcano-remote/internal/ui"
)

// selectState picks the workflow to run on the chosen device.
type selectState struct {
	env    *Env
	device ble.Device
	m      menu
	next   StateID
}

func (s *selectState) Enter(in Payload) error {
	d, err := expect[Discovered](Select, in)
	if err != nil {
		return err
	}
	s.device, s.m, s.next = d.Device, menu{}, Stay
	return nil
}

func (s *selectState) Draw(sf ui.Surface, bs ui.Buttons) (StateID, error) {
	catalog := s.env.Catalog
	switch {
	case bs.Once(ui.Y):
		s.next = Scan
		return Scan, nil
	case bs.Once(ui.Up):
		s.m.move(-1, len(catalog))
	case bs.Once(ui.Down):
		s.m.move(1, len(catalog))
	case bs.Once(ui.Enter) || bs.Once(ui.A):
		s.next = Connect
		return Connect, nil
	default:
		adjustBrightness(sf, bs)
	}
	s.m.scroll(sf)

	sf.Text("Please select your Workflow", 0, 10, ui.Red)
	brightnessBar(sf)
	s.m.drawRows(sf, len(catalog), func(i int) (string, string, ui.Color) {
		c := ui.White
		if i == s.m.cur {
			c = ui.Red
		}
		return catalog[i].Name, fmt.Sprintf("by: %s", catalog[i].Author), c
	})
	return Stay, nil
}

func (s *selectState) Exit() Payload {
	if s.next != Connect {
		return nil
	}
	return Selection{Device: s.device, Workflow: s.env.Catalog[s.m.cur]}
}
