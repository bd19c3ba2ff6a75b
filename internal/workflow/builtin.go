package workflow

import "time"

func temp(c float64) *float64 { return &c }

func step(t float64, settle, pump int) Step {
	return Step{Temp: t, Settle: time.Duration(settle) * time.Second, Pump: time.Duration(pump) * time.Second}
}

// Builtin returns the compiled-in catalog.
func Builtin() Catalog {
	return Catalog{
		{
			Name:   "Default",
			Author: "xythobuz",
			Steps: []Step{
				step(185, 15, 5),
				step(195, 10, 20),
				step(205, 10, 20),
			},
			Notify:    &Notify{Count: 4, Interval: time.Second},
			ResetTemp: temp(190),
		},
		{
			Name:   "Relaxo",
			Author: "xythobuz",
			Steps: []Step{
				step(175, 15, 5),
				step(185, 10, 20),
				step(195, 10, 20),
			},
			Notify:    &Notify{Count: 4, Interval: time.Second},
			ResetTemp: temp(190),
		},
		{
			Name:   "Hardcore",
			Author: "xythobuz",
			Steps: []Step{
				step(190, 15, 5),
				step(205, 10, 20),
				step(220, 10, 20),
			},
			Notify:    &Notify{Count: 3, Interval: time.Second},
			ResetTemp: temp(190),
		},
		{
			Name:   "Vorbi",
			Author: "Rinor",
			Steps: []Step{
				step(176, 10, 6),
				step(187, 5, 10),
				step(204, 3, 10),
				step(217, 5, 10),
			},
		},
	}
}

// Find returns the workflow called name.
func (c Catalog) Find(name string) (Workflow, bool) {
	for _, w := range c {
		if w.Name == name {
			return w, true
		}
	}
	return Workflow{}, false
}

// Last reports whether index is the final step of w.
func (w Workflow) Last(index int) bool {
	return index >= len(w.Steps)-1
}
