package machine

import (
	"context"
	"log/slog"
	"time"

	"github.com/chaz8081/volcano-remote/internal/ble"
	"github.com/chaz8081/volcano-remote/internal/volcano"
	"github.com/chaz8081/volcano-remote/internal/workflow"
)

// Options holds the timing budgets of the states.
type Options struct {
	NamePrefix     string        // advertised name of the appliance
	ScanWindow     time.Duration // length of one scan pass
	DeviceTimeout  time.Duration // scan entries unseen for longer are dropped
	ConnectTimeout time.Duration // bound on one connect+discover attempt
	RetryDelay     time.Duration // pause between connect attempts
	PollInterval   time.Duration // temperature polling while heating
	OffTimeout     time.Duration // bound on best-effort heater/pump off
	Volcano        volcano.Options
}

// DefaultOptions returns the budgets used on the handheld.
func DefaultOptions() Options {
	return Options{
		NamePrefix:     volcano.DefaultNamePrefix,
		ScanWindow:     250 * time.Millisecond,
		DeviceTimeout:  10 * time.Second,
		ConnectTimeout: 10 * time.Second,
		RetryDelay:     time.Second,
		PollInterval:   500 * time.Millisecond,
		OffTimeout:     3 * time.Second,
		Volcano:        volcano.DefaultOptions(),
	}
}

// Clock is the time source of the states.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	return volcano.Sleep(ctx, d)
}

// Env is what the states need from the outside world.
type Env struct {
	Adapter ble.Adapter
	Catalog workflow.Catalog
	Options Options
	Clock   Clock
	Logger  *slog.Logger
}

// withDefaults fills unset fields.
func (e Env) withDefaults() Env {
	def := DefaultOptions()
	o := &e.Options
	if o.NamePrefix == "" {
		o.NamePrefix = def.NamePrefix
	}
	if o.ScanWindow <= 0 {
		o.ScanWindow = def.ScanWindow
	}
	if o.DeviceTimeout <= 0 {
		o.DeviceTimeout = def.DeviceTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = def.ConnectTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = def.RetryDelay
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.OffTimeout <= 0 {
		o.OffTimeout = def.OffTimeout
	}
	if len(e.Catalog) == 0 {
		e.Catalog = workflow.Builtin()
	}
	if e.Clock == nil {
		e.Clock = SystemClock()
	}
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	return e
}
