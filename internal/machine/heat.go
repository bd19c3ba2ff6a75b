package machine

import (
	"context"
	"fmt"

	"github.com/chaz8081/volcano-remote/internal/ui"
	"github.com/chaz8081/volcano-remote/internal/volcano"
)

// heatState switches the heater on, or with on unset switches heater and
// pump off and restores the workflow's reset temperature.
type heatState struct {
	env *Env
	on  bool

	run    Run
	cancel context.CancelFunc
	st     *status
}

func (h *heatState) id() StateID {
	if h.on {
		return HeatOn
	}
	return HeatOff
}

func (h *heatState) Enter(in Payload) error {
	run, err := expectRun(h.id(), in)
	if err != nil {
		return err
	}
	if run.Session == nil {
		return fmt.Errorf("machine: %s entered without a session", h.id())
	}
	h.run, h.st = run, &status{}
	h.cancel = spawn(func(ctx context.Context) error {
		return h.heat(ctx, run)
	}, h.st.finish)
	return nil
}

func (h *heatState) heat(ctx context.Context, run Run) error {
	log := run.logger(h.env.Logger)
	if h.on {
		log.Info("[FSM] heater on")
		return run.Session.SetState(ctx, volcano.On, volcano.Keep)
	}

	log.Info("[FSM] heater and pump off")
	if err := run.Session.SetState(ctx, volcano.Off, volcano.Off); err != nil {
		return err
	}
	if t := run.Workflow.ResetTemp; t != nil {
		log.Info("[FSM] restoring temperature", "celsius", *t)
		return run.Session.SetTargetTemp(ctx, *t)
	}
	return nil
}

func (h *heatState) Draw(sf ui.Surface, bs ui.Buttons) (StateID, error) {
	v := h.st.get()

	if h.on {
		header(sf, "Running Workflow - Heat on")
	} else {
		header(sf, "Running Workflow - Heat off")
	}

	if bs.Once(ui.Y) {
		h.run.logger(h.env.Logger).Info("[FSM] user abort", "state", h.id())
		if h.on && v.done {
			return HeatOff, nil
		}
		return Disconnect, nil
	}
	if v.err != nil {
		return Stay, v.err
	}
	if v.done {
		if h.on {
			return WaitTemp, nil
		}
		return Disconnect, nil
	}

	if h.on {
		centered(sf, "Turning heater on...")
	} else {
		centered(sf, "Turning heater off...")
	}
	return Stay, nil
}

func (h *heatState) Exit() Payload {
	if h.cancel != nil {
		h.cancel()
	}
	run := h.run
	if !h.on {
		// Heater and pump are confirmed off once the task finished, even
		// if only the reset temperature was still pending.
		run.Safe = h.st.get().done
	}
	return run
}
