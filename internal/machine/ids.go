// Package machine sequences a workflow run on the appliance: a fixed roster
// of states driven one tick at a time by an Engine. Each state runs its
// device I/O on a background goroutine and shares progress with the tick
// through a small mutex-guarded record.
package machine

import "fmt"

// StateID identifies a state in the roster.
type StateID int

// Stay is returned by Draw to remain in the current state.
const Stay StateID = -1

const (
	Scan StateID = iota
	Connect
	Select
	HeatOn
	HeatOff
	Disconnect
	WaitTemp
	WaitTime
	Pump
	Notify
	numStates
)

var stateNames = [numStates]string{
	"scan", "connect", "select", "heat-on", "heat-off",
	"disconnect", "wait-temp", "wait-time", "pump", "notify",
}

func (id StateID) String() string {
	if id == Stay {
		return "stay"
	}
	if id >= 0 && id < numStates {
		return stateNames[id]
	}
	return fmt.Sprintf("state(%d)", int(id))
}

// transitions lists every target reachable from a state, by normal
// completion or by user abort.
var transitions = [numStates][]StateID{
	Scan:       {Select},
	Select:     {Connect, Scan},
	Connect:    {HeatOn, Disconnect},
	HeatOn:     {WaitTemp, HeatOff, Disconnect},
	WaitTemp:   {WaitTime, HeatOff},
	WaitTime:   {Pump, HeatOff},
	Pump:       {WaitTemp, Notify, HeatOff},
	Notify:     {HeatOff},
	HeatOff:    {Disconnect},
	Disconnect: {Scan},
}

// Allowed reports whether the transition table permits from -> to.
func Allowed(from, to StateID) bool {
	if from < 0 || from >= numStates {
		return false
	}
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
