package machine

import (
	"context"
	"fmt"
	"sync"
)

// spawn runs work on its own cancellable context. report receives the
// outcome unless the context was cancelled first; a cancelled task reports
// nothing, so a torn-down state never hears from it again.
func spawn(work func(ctx context.Context) error, report func(err error)) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("machine: panic in background task: %v", r)
			}
			if ctx.Err() == nil {
				report(err)
			}
		}()
		err = work(ctx)
	}()
	return cancel
}

// view is the data half of a status record.
type view struct {
	done bool
	err  error
	note string
	// graph
	started       bool
	min, val, max float64
}

// status is the record shared between a state's task and its Draw. A fresh
// record is allocated on every Enter; a cancelled task keeps writing to its
// own orphaned record only.
type status struct {
	mu sync.Mutex
	v  view
}

func (s *status) update(fn func(v *view)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.v)
}

func (s *status) get() view {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

// finish is the report func for spawn.
func (s *status) finish(err error) {
	s.update(func(v *view) {
		if err != nil {
			v.err = err
			return
		}
		v.done = true
	})
}
