package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chaz8081/volcano-remote/internal/machine"
	"github.com/chaz8081/volcano-remote/internal/ui"
	"github.com/chaz8081/volcano-remote/internal/volcano"
)

// Config holds all application configuration.
type Config struct {
	BLE           BLEConfig      `yaml:"ble"`
	Protocol      ProtocolConfig `yaml:"protocol"`
	UI            UIConfig       `yaml:"ui"`
	WorkflowsPath string         `yaml:"workflows_path"`
	LogLevel      string         `yaml:"log_level"`
}

// BLEConfig holds radio and discovery settings.
type BLEConfig struct {
	Backend        string        `yaml:"backend"`         // "tinygo" or "hci"
	NamePrefix     string        `yaml:"name_prefix"`     // advertised name of the appliance
	ScanWindow     time.Duration `yaml:"scan_window"`     // length of one scan pass
	DeviceTimeout  time.Duration `yaml:"device_timeout"`  // drop devices unseen for this long
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // per connection attempt
}

// ProtocolConfig holds retry budgets for the appliance protocol.
type ProtocolConfig struct {
	VerifyAttempts  int           `yaml:"verify_attempts"`
	TriggerAttempts int           `yaml:"trigger_attempts"`
	TriggerDelay    time.Duration `yaml:"trigger_delay"`
	PollInterval    time.Duration `yaml:"poll_interval"`
}

// UIConfig holds presentation and input settings.
type UIConfig struct {
	Tick       time.Duration     `yaml:"tick"`
	Brightness float64           `yaml:"brightness"`
	Keys       map[string]string `yaml:"keys"` // button name -> key name
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "volcano-remote")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	keys := make(map[string]string)
	for b, k := range ui.DefaultKeys() {
		keys[b.String()] = k
	}

	opts := volcano.DefaultOptions()
	return &Config{
		BLE: BLEConfig{
			Backend:        "tinygo",
			NamePrefix:     volcano.DefaultNamePrefix,
			ScanWindow:     250 * time.Millisecond,
			DeviceTimeout:  10 * time.Second,
			ConnectTimeout: 10 * time.Second,
		},
		Protocol: ProtocolConfig{
			VerifyAttempts:  opts.VerifyAttempts,
			TriggerAttempts: opts.TriggerAttempts,
			TriggerDelay:    opts.TriggerDelay,
			PollInterval:    500 * time.Millisecond,
		},
		UI: UIConfig{
			Tick:       50 * time.Millisecond,
			Brightness: 1.0,
			Keys:       keys,
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in workflows_path is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.WorkflowsPath = expandTilde(cfg.WorkflowsPath)

	return cfg, nil
}

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the written path, or "" if a file was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("checking config file: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	header := "# volcano-remote configuration\n# See README for all keys.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.BLE.Backend {
	case "tinygo", "hci":
	default:
		return fmt.Errorf("ble.backend must be \"tinygo\" or \"hci\", got %q", c.BLE.Backend)
	}

	if c.BLE.ScanWindow <= 0 {
		return fmt.Errorf("ble.scan_window must be > 0")
	}
	if c.BLE.DeviceTimeout < c.BLE.ScanWindow {
		return fmt.Errorf("ble.device_timeout must be at least ble.scan_window")
	}
	if c.BLE.ConnectTimeout <= 0 {
		return fmt.Errorf("ble.connect_timeout must be > 0")
	}

	if c.Protocol.VerifyAttempts <= 0 {
		return fmt.Errorf("protocol.verify_attempts must be > 0")
	}
	if c.Protocol.TriggerAttempts <= 0 {
		return fmt.Errorf("protocol.trigger_attempts must be > 0")
	}
	if c.Protocol.TriggerDelay < 0 {
		return fmt.Errorf("protocol.trigger_delay must not be negative")
	}
	if c.Protocol.PollInterval <= 0 {
		return fmt.Errorf("protocol.poll_interval must be > 0")
	}

	if c.UI.Tick <= 0 {
		return fmt.Errorf("ui.tick must be > 0")
	}
	if c.UI.Brightness <= 0 || c.UI.Brightness > 1 {
		return fmt.Errorf("ui.brightness must be in (0, 1], got %v", c.UI.Brightness)
	}
	if _, err := c.ButtonKeys(); err != nil {
		return err
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ButtonKeys resolves ui.keys into a button mapping. Buttons missing from
// the file keep their default key.
func (c *Config) ButtonKeys() (map[ui.Button]string, error) {
	keys := ui.DefaultKeys()
	for name, key := range c.UI.Keys {
		b, err := ui.ParseButton(name)
		if err != nil {
			return nil, fmt.Errorf("ui.keys: %w", err)
		}
		if key == "" {
			return nil, fmt.Errorf("ui.keys.%s must not be empty", name)
		}
		keys[b] = key
	}
	return keys, nil
}

// VolcanoOptions returns the protocol retry budgets.
func (c *Config) VolcanoOptions() volcano.Options {
	return volcano.Options{
		VerifyAttempts:  c.Protocol.VerifyAttempts,
		TriggerAttempts: c.Protocol.TriggerAttempts,
		TriggerDelay:    c.Protocol.TriggerDelay,
	}
}

// MachineOptions returns the state machine budgets.
func (c *Config) MachineOptions() machine.Options {
	opts := machine.DefaultOptions()
	opts.NamePrefix = c.BLE.NamePrefix
	opts.ScanWindow = c.BLE.ScanWindow
	opts.DeviceTimeout = c.BLE.DeviceTimeout
	opts.ConnectTimeout = c.BLE.ConnectTimeout
	opts.PollInterval = c.Protocol.PollInterval
	opts.Volcano = c.VolcanoOptions()
	return opts
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
