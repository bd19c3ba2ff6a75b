package machine

import (
	"context"
	"fmt"

	"github.com/chaz8081/volcano-remote/internal/ui"
	"github.com/chaz8081/volcano-remote/internal/volcano"
	"github.com/chaz8081/volcano-remote/internal/workflow"
)

// Each notify pulse is split into wait, wait, pump on, wait, wait, pump off.
const pulseSteps = 6

// notifyState pulses the pump to signal the end of the workflow.
type notifyState struct {
	env *Env

	run    Run
	cancel context.CancelFunc
	st     *status
}

func (n *notifyState) Enter(in Payload) error {
	run, err := expect[Run](Notify, in)
	if err != nil {
		return err
	}
	if run.Session == nil {
		return fmt.Errorf("machine: %s entered without a session", Notify)
	}
	if run.Workflow.Notify == nil {
		return fmt.Errorf("machine: workflow %q has no notify pulses", run.Workflow.Name)
	}
	spec := *run.Workflow.Notify
	n.run = run
	n.st = &status{v: view{started: true, max: float64(spec.Count * pulseSteps)}}

	st := n.st
	n.cancel = spawn(func(ctx context.Context) error {
		return n.notify(ctx, run, spec, st)
	}, st.finish)
	return nil
}

func (n *notifyState) notify(ctx context.Context, run Run, spec workflow.Notify, st *status) error {
	log := run.logger(n.env.Logger)
	log.Info("[FSM] notifying", "count", spec.Count, "interval", spec.Interval)

	half := spec.Interval / 2
	step := func() { st.update(func(v *view) { v.val++ }) }
	wait := func() error {
		if err := n.env.Clock.Sleep(ctx, half); err != nil {
			return err
		}
		step()
		return nil
	}
	set := func(pump volcano.Switch) error {
		if err := run.Session.SetState(ctx, volcano.Keep, pump); err != nil {
			return err
		}
		step()
		return nil
	}

	for range spec.Count {
		for _, fn := range []func() error{
			wait, wait, func() error { return set(volcano.On) },
			wait, wait, func() error { return set(volcano.Off) },
		} {
			if err := fn(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (n *notifyState) Draw(sf ui.Surface, bs ui.Buttons) (StateID, error) {
	v := n.st.get()
	header(sf, "Running Workflow - Notify")

	if bs.Once(ui.Y) {
		n.run.logger(n.env.Logger).Info("[FSM] user abort", "state", Notify)
		return HeatOff, nil
	}
	if v.err != nil {
		return Stay, v.err
	}
	if v.done {
		return HeatOff, nil
	}
	ui.Graph(sf, 0, v.val, v.max)
	return Stay, nil
}

func (n *notifyState) Exit() Payload {
	if n.cancel != nil {
		n.cancel()
	}
	return n.run
}
