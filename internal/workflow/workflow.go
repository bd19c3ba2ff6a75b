// Package workflow holds the static heating recipes the controller can run.
package workflow

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Temperature limits the appliance accepts, in °C.
const (
	MinTemp = 40.0
	MaxTemp = 230.0
)

// Step heats to Temp, lets it settle for Settle, then pumps for Pump.
type Step struct {
	Temp   float64       `yaml:"temp"`
	Settle time.Duration `yaml:"settle"`
	Pump   time.Duration `yaml:"pump"`
}

// Notify pulses the pump Count times, Interval apart, when a workflow ends.
type Notify struct {
	Count    int           `yaml:"count"`
	Interval time.Duration `yaml:"interval"`
}

// Workflow is an ordered list of steps plus optional end-of-run behaviour.
// Workflows are never mutated once loaded.
type Workflow struct {
	Name   string  `yaml:"name"`
	Author string  `yaml:"author"`
	Steps  []Step  `yaml:"steps"`
	Notify *Notify `yaml:"notify,omitempty"`
	// ResetTemp, if set, is written as target when the workflow ends.
	ResetTemp *float64 `yaml:"reset_temperature,omitempty"`
}

// Catalog is the selectable list of workflows.
type Catalog []Workflow

// Validate checks a single workflow.
func (w Workflow) Validate() error {
	if w.Name == "" {
		return errors.New("name must not be empty")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("%s: needs at least one step", w.Name)
	}
	for i, s := range w.Steps {
		if s.Temp < MinTemp || s.Temp > MaxTemp {
			return fmt.Errorf("%s: step %d: temp %.1f outside %.0f..%.0f", w.Name, i+1, s.Temp, MinTemp, MaxTemp)
		}
		if s.Settle < 0 || s.Pump < 0 {
			return fmt.Errorf("%s: step %d: durations must not be negative", w.Name, i+1)
		}
	}
	if w.Notify != nil {
		if w.Notify.Count <= 0 {
			return fmt.Errorf("%s: notify.count must be > 0", w.Name)
		}
		if w.Notify.Interval <= 0 {
			return fmt.Errorf("%s: notify.interval must be > 0", w.Name)
		}
	}
	if w.ResetTemp != nil && (*w.ResetTemp < MinTemp || *w.ResetTemp > MaxTemp) {
		return fmt.Errorf("%s: reset_temperature %.1f outside %.0f..%.0f", w.Name, *w.ResetTemp, MinTemp, MaxTemp)
	}
	return nil
}

// Validate checks every workflow in the catalog.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return errors.New("workflow catalog is empty")
	}
	for _, w := range c {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("workflow: %w", err)
		}
	}
	return nil
}

// catalogFile is the on-disk layout of a workflow catalog.
type catalogFile struct {
	Workflows Catalog `yaml:"workflows"`
}

// Load reads a YAML workflow catalog, replacing the built-in one.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing workflow file: %w", err)
	}
	if err := f.Workflows.Validate(); err != nil {
		return nil, err
	}
	return f.Workflows, nil
}
