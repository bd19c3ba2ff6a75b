// Command test-poll is a manual test for the appliance protocol.
// It connects to the first matching appliance, optionally sets a target
// temperature, then prints temperatures and heater/pump state.
// Press Ctrl+C to exit early.
//
// Usage:
//
//	go run ./cmd/test-poll [--mac AA:BB:CC:DD:EE:FF] [--set 185] [--rounds 10]
//	go run ./cmd/test-poll --workflow Hardcore   # set the workflow's first step temperature
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/volcano-remote/internal/ble"
	"github.com/chaz8081/volcano-remote/internal/volcano"
	"github.com/chaz8081/volcano-remote/internal/workflow"
)

func main() {
	backend := flag.String("backend", "tinygo", "bluetooth backend: tinygo or hci")
	mac := flag.String("mac", "", "appliance address (default: first device named "+volcano.DefaultNamePrefix+"...)")
	set := flag.Float64("set", 0, "target temperature to set first, 0 to leave unchanged")
	rounds := flag.Int("rounds", 10, "number of polls")
	interval := flag.Duration("interval", time.Second, "time between polls")
	name := flag.String("workflow", "", "built-in workflow whose first step temperature is set, overrides --set")
	flag.Parse()

	if *name != "" {
		w, ok := workflow.Builtin().Find(*name)
		if !ok {
			fmt.Printf("Error: unknown workflow %q\n", *name)
			os.Exit(1)
		}
		*set = w.Steps[0].Temp
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := poll(ctx, *backend, *mac, *set, *rounds, *interval); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nDone!")
}

func poll(ctx context.Context, backend, mac string, set float64, rounds int, interval time.Duration) error {
	adapter, err := ble.NewAdapter(backend)
	if err != nil {
		return err
	}
	if err := adapter.Enable(); err != nil {
		return err
	}

	filter := ble.Filter{MAC: mac}
	if mac == "" {
		filter.NamePrefix = volcano.DefaultNamePrefix
	}
	fmt.Printf("Scanning for %+v...\n", filter)
	scanCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	device, err := ble.FindDevice(scanCtx, adapter, filter, time.Second)
	cancel()
	if err != nil {
		return err
	}
	fmt.Printf("Found %s [%s] %d dBm\n", device.Name, device.MAC, device.RSSI)

	session, err := volcano.Dial(ctx, adapter, device, volcano.DefaultOptions(), slog.Default(), func(p float64) {
		fmt.Printf("  discovery %3.0f%%\n", p*100)
	})
	if err != nil {
		return err
	}
	defer session.Close()

	fahrenheit, err := session.ReadUnitIsFahrenheit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Unit: Fahrenheit=%v\n", fahrenheit)

	if set > 0 {
		fmt.Printf("Setting target to %.1f...\n", set)
		if err := session.SetTargetTemp(ctx, set); err != nil {
			return err
		}
	}

	for i := 1; i <= rounds; i++ {
		current, err := session.ReadCurrentTemp(ctx)
		if err != nil {
			return err
		}
		target, err := session.ReadTargetTemp(ctx)
		if err != nil {
			return err
		}
		heater, pump, err := session.ReadState(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("[%2d] current %.1f  target %.1f  heater %-5v pump %v\n", i, current, target, heater, pump)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
	return nil
}
