package machine

import (
	"context"
	"fmt"
	"time"

	"github.com/chaz8081/volcano-remote/internal/ui"
	"github.com/chaz8081/volcano-remote/internal/volcano"
)

// pumpState runs the pump for the step's pump time.
type pumpState struct {
	env *Env

	run      Run
	duration time.Duration
	next     StateID
	cancel   context.CancelFunc
	st       *status
}

func (p *pumpState) Enter(in Payload) error {
	run, err := expectRun(Pump, in)
	if err != nil {
		return err
	}
	if run.Session == nil {
		return fmt.Errorf("machine: %s entered without a session", Pump)
	}
	p.run, p.next = run, Stay
	p.duration = run.Workflow.Steps[run.Step].Pump
	p.st = &status{v: view{max: seconds(p.duration.Seconds())}}

	st, d := p.st, p.duration
	p.cancel = spawn(func(ctx context.Context) error {
		return p.pump(ctx, run, d, st)
	}, st.finish)
	return nil
}

func (p *pumpState) pump(ctx context.Context, run Run, d time.Duration, st *status) error {
	log := run.logger(p.env.Logger)
	clock := p.env.Clock

	log.Info("[FSM] pump on", "duration", d, "step", run.Step)
	if err := run.Session.SetState(ctx, volcano.Keep, volcano.On); err != nil {
		return err
	}
	start := clock.Now()
	st.update(func(v *view) { v.started = true })

	// Sleep in short slices so the graph keeps moving.
	for {
		left := d - clock.Now().Sub(start)
		if left <= 0 {
			break
		}
		if err := clock.Sleep(ctx, min(left, 100*time.Millisecond)); err != nil {
			return err
		}
		elapsed := seconds(clock.Now().Sub(start).Seconds())
		st.update(func(v *view) { v.val = min(elapsed, v.max) })
	}

	st.update(func(v *view) { v.note = "Turning off pump..." })
	log.Info("[FSM] pump off")
	return run.Session.SetState(ctx, volcano.Keep, volcano.Off)
}

func (p *pumpState) Draw(sf ui.Surface, bs ui.Buttons) (StateID, error) {
	v := p.st.get()
	header(sf, fmt.Sprintf("Running Workflow - Pump %s", p.duration))

	if bs.Once(ui.Y) {
		p.run.logger(p.env.Logger).Info("[FSM] user abort", "state", Pump)
		p.next = HeatOff
		return HeatOff, nil
	}
	if v.err != nil {
		return Stay, v.err
	}
	if v.done {
		switch {
		case !p.run.Workflow.Last(p.run.Step):
			p.next = WaitTemp
		case p.run.Workflow.Notify != nil:
			p.next = Notify
		default:
			p.next = HeatOff
		}
		return p.next, nil
	}

	switch {
	case !v.started:
		centered(sf, "Turning on pump...")
	case v.note != "":
		centered(sf, v.note)
	default:
		ui.Graph(sf, 0, v.val, v.max)
	}
	return Stay, nil
}

func (p *pumpState) Exit() Payload {
	if p.cancel != nil {
		p.cancel()
	}
	run := p.run
	if p.next == WaitTemp {
		run.Step++
	}
	return run
}
