package machine

import (
	"fmt"
	"log/slog"

	"github.com/chaz8081/volcano-remote/internal/ble"
	"github.com/chaz8081/volcano-remote/internal/volcano"
	"github.com/chaz8081/volcano-remote/internal/workflow"
)

// Payload is handed from one state's Exit to the next state's Enter.
// Disconnect hands nil to Scan.
type Payload interface {
	payload()
}

// Discovered is handed from Scan to Select.
type Discovered struct {
	Device ble.Device
}

// Selection is handed from Select to Connect.
type Selection struct {
	Device   ble.Device
	Workflow workflow.Workflow
}

// Run carries a workflow run from Connect until Disconnect.
type Run struct {
	ID       string
	Session  *volcano.Session // nil if the connection never came up
	Workflow workflow.Workflow
	Step     int
	// Safe is set once heater and pump were switched off for this run.
	Safe bool
	Log  *slog.Logger
}

func (Discovered) payload() {}
func (Selection) payload()  {}
func (Run) payload()        {}

// logger returns the run's logger, falling back to fallback.
func (r Run) logger(fallback *slog.Logger) *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return fallback
}

// expect asserts the payload type a state was entered with.
func expect[T Payload](id StateID, in Payload) (T, error) {
	v, ok := in.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("machine: %s entered with %T, want %T", id, in, zero)
	}
	return v, nil
}

// expectRun is expect for Run, also checking the step index.
func expectRun(id StateID, in Payload) (Run, error) {
	run, err := expect[Run](id, in)
	if err != nil {
		return Run{}, err
	}
	if run.Step < 0 || run.Step >= len(run.Workflow.Steps) {
		return Run{}, fmt.Errorf("machine: %s entered at step %d of %d", id, run.Step, len(run.Workflow.Steps))
	}
	return run, nil
}
