package machine

import (
	"context"
	"fmt"
	"time"

	"github.com/chaz8081/volcano-remote/internal/ui"
)

// waitTempState sets the step's temperature and polls until it is reached.
type waitTempState struct {
	env *Env

	run    Run
	target float64
	cancel context.CancelFunc
	st     *status
}

func (w *waitTempState) Enter(in Payload) error {
	run, err := expectRun(WaitTemp, in)
	if err != nil {
		return err
	}
	if run.Session == nil {
		return fmt.Errorf("machine: %s entered without a session", WaitTemp)
	}
	w.run, w.target = run, run.Workflow.Steps[run.Step].Temp
	w.st = &status{v: view{max: w.target}}

	st, target := w.st, w.target
	w.cancel = spawn(func(ctx context.Context) error {
		return w.poll(ctx, run, target, st)
	}, st.finish)
	return nil
}

func (w *waitTempState) poll(ctx context.Context, run Run, target float64, st *status) error {
	log := run.logger(w.env.Logger)
	sess := run.Session

	temp, err := sess.ReadCurrentTemp(ctx)
	if err != nil {
		return err
	}
	log.Info("[FSM] heating", "from", temp, "to", target, "step", run.Step)
	st.update(func(v *view) {
		v.started, v.min, v.val = true, temp, temp
		v.note = "Setting temperature..."
	})

	if err := sess.SetTargetTemp(ctx, target); err != nil {
		return err
	}
	st.update(func(v *view) { v.note = "" })

	for temp < target {
		if err := w.env.Clock.Sleep(ctx, w.env.Options.PollInterval); err != nil {
			return err
		}
		if temp, err = sess.ReadCurrentTemp(ctx); err != nil {
			return err
		}
		st.update(func(v *view) { v.val = temp })
	}
	log.Debug("[FSM] temperature reached", "celsius", temp)
	return nil
}

func (w *waitTempState) Draw(sf ui.Surface, bs ui.Buttons) (StateID, error) {
	v := w.st.get()
	header(sf, fmt.Sprintf("Running Workflow - Heat %s", fmtTemp(w.target)))

	if bs.Once(ui.Y) {
		w.run.logger(w.env.Logger).Info("[FSM] user abort", "state", WaitTemp)
		return HeatOff, nil
	}
	if v.err != nil {
		return Stay, v.err
	}
	if v.done {
		return WaitTime, nil
	}

	if !v.started {
		centered(sf, "Reading temperature...")
		return Stay, nil
	}
	ui.Graph(sf, v.min, v.val, v.max)
	if v.note != "" {
		sf.TextCentered(v.note, sf.Width()/2, sf.Height()-20, ui.White)
	}
	return Stay, nil
}

func (w *waitTempState) Exit() Payload {
	if w.cancel != nil {
		w.cancel()
	}
	return w.run
}

// waitTimeState counts down the step's settle time. It does no I/O.
type waitTimeState struct {
	env *Env

	run        Run
	start, end time.Time
}

func (w *waitTimeState) Enter(in Payload) error {
	run, err := expectRun(WaitTime, in)
	if err != nil {
		return err
	}
	w.run = run
	w.start = w.env.Clock.Now()
	w.end = w.start.Add(run.Workflow.Steps[run.Step].Settle)
	return nil
}

func (w *waitTimeState) Draw(sf ui.Surface, bs ui.Buttons) (StateID, error) {
	settle := w.end.Sub(w.start)
	header(sf, fmt.Sprintf("Running Workflow - Wait %s", settle))

	if bs.Once(ui.Y) {
		w.run.logger(w.env.Logger).Info("[FSM] user abort", "state", WaitTime)
		return HeatOff, nil
	}

	now := w.env.Clock.Now()
	if !now.Before(w.end) {
		return Pump, nil
	}
	ui.Graph(sf, 0, seconds(now.Sub(w.start).Seconds()), seconds(settle.Seconds()))
	return Stay, nil
}

func (w *waitTimeState) Exit() Payload {
	return w.run
}

func fmtTemp(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}
