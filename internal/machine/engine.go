package machine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaz8081/volcano-remote/internal/ui"
)

// State is one entry of the roster.
type State interface {
	// Enter starts the state with the payload handed over by the previous
	// state's Exit. It must not block on I/O.
	Enter(in Payload) error
	// Draw polls progress, renders it and returns the next state, or Stay.
	Draw(s ui.Surface, bs ui.Buttons) (StateID, error)
	// Exit cancels any background work without waiting for it and returns
	// the payload for the next state.
	Exit() Payload
}

// Engine runs the state machine one tick at a time. It is not safe for
// concurrent use; drive it from a single loop.
type Engine struct {
	states     [numStates]State
	surface    ui.Surface
	input      ui.Input
	log        *slog.Logger
	offTimeout time.Duration

	cur    StateID
	active bool
}

// New builds the engine with the full roster.
func New(env Env, surface ui.Surface, input ui.Input) *Engine {
	env = env.withDefaults()
	e := &env
	roster := [numStates]State{
		Scan:       &scanState{env: e},
		Connect:    &connectState{env: e, connecting: true},
		Select:     &selectState{env: e},
		HeatOn:     &heatState{env: e, on: true},
		HeatOff:    &heatState{env: e},
		Disconnect: &connectState{env: e},
		WaitTemp:   &waitTempState{env: e},
		WaitTime:   &waitTimeState{env: e},
		Pump:       &pumpState{env: e},
		Notify:     &notifyState{env: e},
	}
	return newEngine(roster, surface, input, env.Logger, env.Options.OffTimeout)
}

func newEngine(states [numStates]State, surface ui.Surface, input ui.Input, logger *slog.Logger, offTimeout time.Duration) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if offTimeout <= 0 {
		offTimeout = DefaultOptions().OffTimeout
	}
	return &Engine{
		states:     states,
		surface:    surface,
		input:      input,
		log:        logger,
		offTimeout: offTimeout,
	}
}

// Current returns the entered state. ok is false before the first Tick and
// after a failure or Stop.
func (e *Engine) Current() (id StateID, ok bool) {
	return e.cur, e.active
}

// Tick runs one iteration: enter Scan if nothing is entered, draw the
// current state and follow the transition it returns.
//
// A state failure is returned after the state was torn down and any
// appliance it held was switched off and disconnected. The next Tick
// starts over at Scan.
func (e *Engine) Tick() error {
	if !e.active {
		if err := e.states[Scan].Enter(nil); err != nil {
			return fmt.Errorf("machine: enter %s: %w", Scan, err)
		}
		e.cur, e.active = Scan, true
		e.log.Debug("[FSM] entered", "state", Scan)
	}

	bs := e.input.Poll()
	e.surface.Clear(ui.Black)
	next, err := e.states[e.cur].Draw(e.surface, bs)
	if serr := e.surface.Show(); serr != nil {
		e.log.Warn("[FSM] show frame failed", "error", serr)
	}

	if err != nil {
		from := e.cur
		e.abandon()
		return fmt.Errorf("machine: %s: %w", from, err)
	}
	if next == Stay {
		return nil
	}
	if !Allowed(e.cur, next) {
		from := e.cur
		e.abandon()
		return fmt.Errorf("machine: transition %s -> %s not allowed", from, next)
	}

	out := e.states[e.cur].Exit()
	e.log.Info("[FSM] transition", "from", e.cur, "to", next)
	e.cur = next
	if err := e.states[next].Enter(out); err != nil {
		e.active = false
		e.release(out)
		return fmt.Errorf("machine: enter %s: %w", next, err)
	}
	return nil
}

// Stop tears down the current state, switching off and disconnecting any
// appliance it held. A later Tick starts over at Scan.
func (e *Engine) Stop() {
	if e.active {
		e.abandon()
	}
}

func (e *Engine) abandon() {
	out := e.states[e.cur].Exit()
	e.active = false
	e.release(out)
}

// release makes a dropped payload safe: best-effort off, then disconnect.
func (e *Engine) release(p Payload) {
	run, ok := p.(Run)
	if !ok || run.Session == nil {
		return
	}
	log := run.logger(e.log)

	ctx, cancel := context.WithTimeout(context.Background(), e.offTimeout)
	defer cancel()
	if err := run.Session.AllOff(ctx); err != nil {
		log.Error("[FSM] best-effort off failed", "error", err)
	}
	if err := run.Session.Close(); err != nil {
		log.Warn("[FSM] disconnect failed", "error", err)
	}
}
