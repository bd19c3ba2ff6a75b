package machine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/chaz8081/volcano-remote/internal/ui"
	"github.com/chaz8081/volcano-remote/internal/volcano"
)

// connectRecord is shared with the connect/disconnect goroutine.
type connectRecord struct {
	mu       sync.Mutex
	progress float64
	attempt  int
	session  *volcano.Session
	done     bool
	err      error
}

func (r *connectRecord) set(fn func(r *connectRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

// adopt stores a dialled session unless ctx was cancelled meanwhile, in
// which case the caller still owns it.
func (r *connectRecord) adopt(ctx context.Context, s *volcano.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	r.session = s
	return true
}

// connectState connects to the appliance or, with connecting unset, tears
// the connection down again.
type connectState struct {
	env        *Env
	connecting bool

	run    Run
	cancel context.CancelFunc
	rec    *connectRecord
}

func (c *connectState) id() StateID {
	if c.connecting {
		return Connect
	}
	return Disconnect
}

func (c *connectState) Enter(in Payload) error {
	rec := &connectRecord{}
	report := func(err error) {
		rec.set(func(r *connectRecord) {
			r.done = err == nil
			r.err = err
		})
	}

	if !c.connecting {
		run, err := expect[Run](Disconnect, in)
		if err != nil {
			return err
		}
		c.run, c.rec = run, rec
		c.cancel = spawn(func(ctx context.Context) error {
			c.disconnect(ctx, run)
			return nil
		}, report)
		return nil
	}

	sel, err := expect[Selection](Connect, in)
	if err != nil {
		return err
	}
	id := uuid.NewString()
	c.run = Run{
		ID:       id,
		Workflow: sel.Workflow,
		Log:      c.env.Logger.With("run_id", id, "workflow", sel.Workflow.Name, "mac", sel.Device.MAC),
	}
	c.rec = rec
	run := c.run
	c.cancel = spawn(func(ctx context.Context) error {
		return c.connect(ctx, run, sel, rec)
	}, report)
	return nil
}

func (c *connectState) connect(ctx context.Context, run Run, sel Selection, rec *connectRecord) error {
	env := c.env
	log := run.Log
	log.Info("[FSM] connecting", "name", sel.Device.Name)

	var sess *volcano.Session
	for attempt := 1; ; attempt++ {
		rec.set(func(r *connectRecord) { r.attempt, r.progress = attempt, 0 })

		dctx, cancel := context.WithTimeout(ctx, env.Options.ConnectTimeout)
		s, err := volcano.Dial(dctx, env.Adapter, sel.Device, env.Options.Volcano, log, func(p float64) {
			rec.set(func(r *connectRecord) { r.progress = p })
		})
		cancel()
		if err == nil {
			sess = s
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var derr *volcano.DiscoveryError
		if errors.As(err, &derr) {
			return err
		}
		log.Warn("[FSM] connect failed, retrying", "attempt", attempt, "error", err)
		if err := env.Clock.Sleep(ctx, env.Options.RetryDelay); err != nil {
			return err
		}
	}

	if !rec.adopt(ctx, sess) {
		if err := sess.Close(); err != nil {
			log.Warn("[FSM] disconnect of abandoned session failed", "error", err)
		}
		return ctx.Err()
	}

	// Owned by the record from here; a failure is cleaned up by the engine.
	return sess.CheckCelsius(ctx)
}

// disconnect always closes the session, even when cancelled half way.
func (c *connectState) disconnect(ctx context.Context, run Run) {
	if run.Session == nil {
		return
	}
	log := run.logger(c.env.Logger)

	if !run.Safe {
		offCtx, cancel := context.WithTimeout(ctx, c.env.Options.OffTimeout)
		if err := run.Session.AllOff(offCtx); err != nil {
			log.Error("[FSM] best-effort off failed", "error", err)
		}
		cancel()
	}
	if err := run.Session.Close(); err != nil {
		log.Warn("[FSM] disconnect failed", "error", err)
		return
	}
	log.Info("[FSM] disconnected")
}

func (c *connectState) Draw(sf ui.Surface, bs ui.Buttons) (StateID, error) {
	var (
		progress float64
		attempt  int
		done     bool
		err      error
	)
	c.rec.set(func(r *connectRecord) {
		progress, attempt, done, err = r.progress, r.attempt, r.done, r.err
	})

	if c.connecting {
		header(sf, "Connecting to Bluetooth device")
	} else {
		header(sf, "Disconnecting from Bluetooth device")
	}

	if bs.Once(ui.Y) {
		c.run.logger(c.env.Logger).Info("[FSM] user abort", "state", c.id())
		if c.connecting {
			return Disconnect, nil
		}
		return Scan, nil
	}
	if err != nil {
		return Stay, err
	}
	if done {
		if c.connecting {
			return HeatOn, nil
		}
		return Scan, nil
	}

	if !c.connecting {
		centered(sf, "Disconnecting...")
		return Stay, nil
	}
	ui.Graph(sf, 0, seconds(progress*100), 100)
	sf.TextCentered(fmt.Sprintf("Connecting... (attempt %d)", max(attempt, 1)), sf.Width()/2, sf.Height()-20, ui.White)
	return Stay, nil
}

func (c *connectState) Exit() Payload {
	if c.cancel != nil {
		c.cancel()
	}
	if !c.connecting {
		return nil
	}
	run := c.run
	c.rec.set(func(r *connectRecord) { run.Session = r.session })
	return run
}
