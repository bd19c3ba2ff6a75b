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
	"github.com/chaz8081/volcano-remote/internal/config"
	"github.com/chaz8081/volcano-remote/internal/machine"
	"github.com/chaz8081/volcano-remote/internal/ui"
	"github.com/chaz8081/volcano-remote/internal/workflow"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/volcano-remote/config.yaml)")
	initConfig := flag.Bool("init", false, "write the default config file and exit")
	flag.Parse()

	// Logs go to stderr; redirect it to keep the panel clean.
	var level slog.LevelVar
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			fatal("config: %v", err)
		}
		if path == "" {
			fmt.Println("Config already exists at", config.DefaultConfigPath())
			return
		}
		fmt.Println("Wrote default config to", path)
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("config validation: %v", err)
	}
	level.Set(parseLevel(cfg.LogLevel))

	catalog, err := loadCatalog(cfg.WorkflowsPath)
	if err != nil {
		fatal("workflows: %v", err)
	}

	adapter, err := ble.NewAdapter(cfg.BLE.Backend)
	if err != nil {
		fatal("bluetooth: %v", err)
	}

	keys, err := cfg.ButtonKeys()
	if err != nil {
		fatal("config: %v", err)
	}

	printBanner(cfg, len(catalog))

	term := ui.NewTerminal(os.Stdout, 0, 0)
	term.SetBrightness(cfg.UI.Brightness)

	buttons := ui.NewKeyButtons(keys)
	go buttons.Start()

	engine := machine.New(machine.Env{
		Adapter: adapter,
		Catalog: catalog,
		Options: cfg.MachineOptions(),
		Logger:  slog.Default(),
	}, term, buttons)

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run(ctx, engine, term, buttons, cfg.UI.Tick)
	stop()

	slog.Info("Shutting down, switching the appliance off")
	engine.Stop()
	buttons.Stop()
	// Exit directly to avoid gohook's C cleanup crash.
	// The OS reclaims the event hook on process exit.
	os.Exit(0)
}

// run ticks the engine until ctx is done. A failed run is shown until
// any button is pressed, then the engine starts over at Scan.
func run(ctx context.Context, engine *machine.Engine, term ui.Surface, input ui.Input, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	failed := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if failed {
			if input.Poll().Any() {
				failed = false
			}
			continue
		}

		if err := safeTick(engine); err != nil {
			slog.Error("[FSM] run failed", "error", err)
			machine.ShowError(term, err)
			if err := term.Show(); err != nil {
				slog.Warn("[UI] show error screen failed", "error", err)
			}
			failed = true
		}
	}
}

// safeTick turns a panic in a state into an error after tearing it down.
func safeTick(engine *machine.Engine) (err error) {
	defer func() {
		if r := recover(); r != nil {
			engine.Stop()
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return engine.Tick()
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		slog.Info("Config loaded", "path", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	slog.Info("No config file found, using defaults")
	return config.Default(), nil
}

func loadCatalog(path string) (workflow.Catalog, error) {
	if path == "" {
		return workflow.Builtin(), nil
	}
	c, err := workflow.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Info("Workflows loaded", "path", path, "count", len(c))
	return c, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fatal(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config, workflows int) {
	fmt.Println("=== volcano-remote ===")
	fmt.Printf("  Backend:   %s\n", cfg.BLE.Backend)
	fmt.Printf("  Device:    %q\n", cfg.BLE.NamePrefix)
	fmt.Printf("  Workflows: %d\n", workflows)
	fmt.Printf("  Log:       %s\n", cfg.LogLevel)
	fmt.Println("======================")
}
