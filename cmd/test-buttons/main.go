// Command test-buttons is a manual test for the keyboard button emulation.
// Run it, then press the mapped keys (arrows, enter, a, b, x, y) to see
// press edges and holds.
// Press Ctrl+C to exit.
//
// Usage:
//
//	go run ./cmd/test-buttons [--interval 50ms]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chaz8081/volcano-remote/internal/ui"
)

func main() {
	interval := flag.Duration("interval", 50*time.Millisecond, "poll interval")
	flag.Parse()

	keys := ui.DefaultKeys()
	fmt.Println("Listening for button keys...")
	for b := ui.Up; b <= ui.Y; b++ {
		fmt.Printf("  %-5s = %s\n", b, keys[b])
	}
	fmt.Println("Press Ctrl+C to exit.")

	buttons := ui.NewKeyButtons(keys)

	// Handle Ctrl+C
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		buttons.Stop()
	}()

	// Poll like the controller does
	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		var lastHeld string
		for range ticker.C {
			bs := buttons.Poll()
			var pressed, held []string
			for b := ui.Up; b <= ui.Y; b++ {
				if bs.Once(b) {
					pressed = append(pressed, b.String())
				}
				if bs.Held(b) {
					held = append(held, b.String())
				}
			}
			if len(pressed) > 0 {
				fmt.Printf(">>> PRESS %s\n", strings.Join(pressed, "+"))
			}
			if h := strings.Join(held, "+"); h != lastHeld {
				fmt.Printf("... HELD  [%s]\n", h)
				lastHeld = h
			}
		}
	}()

	// Blocks until stopped
	buttons.Start()
	fmt.Println("Done.")
}
