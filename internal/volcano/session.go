package volcano

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/chaz8081/volcano-remote/internal/ble"
)

var (
	// ErrNotDiscovered is returned by protocol operations on a Session
	// whose handle cache has not been filled by Discover.
	ErrNotDiscovered = errors.New("volcano: characteristics not discovered")
	// ErrVerificationFailed is returned when the target temperature read
	// back never matched the written value.
	ErrVerificationFailed = errors.New("volcano: target temperature verification failed")
	// ErrTriggerFailed is returned when a heater/pump trigger write kept failing.
	ErrTriggerFailed = errors.New("volcano: trigger write failed")
	// ErrMissingCharacteristic is wrapped by a DiscoveryError when the
	// transport resolved an attribute to nothing.
	ErrMissingCharacteristic = errors.New("volcano: characteristic missing")
	// ErrFahrenheit is returned when the appliance is set to Fahrenheit.
	ErrFahrenheit = errors.New("volcano: appliance reports Fahrenheit units, switch it to Celsius")
)

// DiscoveryError names the attribute that could not be resolved.
type DiscoveryError struct {
	UUID string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("volcano: discover %s: %v", e.UUID, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// Options configures retry budgets of the protocol client.
type Options struct {
	VerifyAttempts  int           // write+read-back cycles for SetTargetTemp
	TriggerAttempts int           // attempts per trigger write in SetState
	TriggerDelay    time.Duration // pause between failed trigger attempts
}

// DefaultOptions returns the retry budgets used on the appliance.
func DefaultOptions() Options {
	return Options{
		VerifyAttempts:  3,
		TriggerAttempts: 3,
		TriggerDelay:    50 * time.Millisecond,
	}
}

// Session is a connected appliance with its cached GATT handles.
// A Session is valid until Close; handles are never re-discovered.
type Session struct {
	device ble.Device
	conn   ble.Connection
	opts   Options
	log    *slog.Logger

	// link serializes GATT operations. A caller whose ctx is done gives the
	// slot back at once; its transport call finishes unowned.
	link       *semaphore.Weighted
	chars      [numHandles]ble.Characteristic
	discovered atomic.Bool
}

// NewSession wraps an established connection. Call Discover before use.
func NewSession(device ble.Device, conn ble.Connection, opts Options, logger *slog.Logger) *Session {
	if opts.VerifyAttempts <= 0 {
		opts.VerifyAttempts = 3
	}
	if opts.TriggerAttempts <= 0 {
		opts.TriggerAttempts = 3
	}
	if opts.TriggerDelay < 0 {
		opts.TriggerDelay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		device: device,
		conn:   conn,
		opts:   opts,
		log:    logger.With("mac", device.MAC),
		link:   semaphore.NewWeighted(1),
	}
}

// Device returns the peripheral this session is connected to.
func (s *Session) Device() ble.Device {
	return s.device
}

// Discover resolves both services and all eight characteristics. progress,
// if non-nil, is called with the completed fraction after each resolved handle.
func (s *Session) Discover(ctx context.Context, progress func(float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.link.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.link.Release(1)

	var chars [numHandles]ble.Characteristic
	done := 0
	report := func() {
		done++
		if progress != nil {
			progress(float64(done) / float64(discoverySteps))
		}
	}

	for _, plan := range discoveryPlan {
		if err := ctx.Err(); err != nil {
			return err
		}
		svc, err := s.conn.DiscoverService(plan.service)
		if err != nil {
			return &DiscoveryError{UUID: plan.service, Err: err}
		}
		report()

		for _, c := range plan.chars {
			if err := ctx.Err(); err != nil {
				return err
			}
			ch, err := svc.DiscoverCharacteristic(c.uuid)
			if err != nil {
				return &DiscoveryError{UUID: c.uuid, Err: err}
			}
			if ch == nil {
				return &DiscoveryError{UUID: c.uuid, Err: ErrMissingCharacteristic}
			}
			chars[c.h] = ch
			report()
		}
	}

	s.chars = chars
	s.discovered.Store(true)
	s.log.Debug("[VOLCANO] discovered characteristics", "count", int(numHandles))
	return nil
}

// Close disconnects the peripheral. The session is unusable afterwards.
func (s *Session) Close() error {
	s.discovered.Store(false)
	if err := s.conn.Disconnect(); err != nil {
		return fmt.Errorf("volcano: disconnect %s: %w", s.device.MAC, err)
	}
	return nil
}

func (s *Session) read(ctx context.Context, h handle) ([]byte, error) {
	var data []byte
	err := s.do(ctx, func() error {
		var err error
		data, err = s.chars[h].Read()
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Session) write(ctx context.Context, h handle, data []byte) error {
	return s.do(ctx, func() error {
		return s.chars[h].Write(data)
	})
}

// do runs one transport call while holding the link. If ctx ends first the
// call is abandoned: do returns ctx.Err() and frees the link for the next
// caller.
func (s *Session) do(ctx context.Context, call func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.link.Acquire(ctx, 1); err != nil {
		return err
	}
	if !s.discovered.Load() {
		s.link.Release(1)
		return ErrNotDiscovered
	}

	done := make(chan error, 1)
	go func() { done <- call() }()

	select {
	case err := <-done:
		s.link.Release(1)
		return err
	case <-ctx.Done():
		s.link.Release(1)
		return ctx.Err()
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
