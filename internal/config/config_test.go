package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chaz8081/volcano-remote/internal/ui"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BLE.Backend != "tinygo" {
		t.Errorf("BLE.Backend = %q, want %q", cfg.BLE.Backend, "tinygo")
	}
	if cfg.BLE.NamePrefix != "S&B VOLCANO" {
		t.Errorf("BLE.NamePrefix = %q, want %q", cfg.BLE.NamePrefix, "S&B VOLCANO")
	}
	if cfg.BLE.DeviceTimeout != 10*time.Second {
		t.Errorf("BLE.DeviceTimeout = %v, want 10s", cfg.BLE.DeviceTimeout)
	}
	if cfg.Protocol.VerifyAttempts != 3 {
		t.Errorf("Protocol.VerifyAttempts = %d, want 3", cfg.Protocol.VerifyAttempts)
	}
	if cfg.Protocol.TriggerDelay != 50*time.Millisecond {
		t.Errorf("Protocol.TriggerDelay = %v, want 50ms", cfg.Protocol.TriggerDelay)
	}
	if cfg.UI.Brightness != 1.0 {
		t.Errorf("UI.Brightness = %v, want 1.0", cfg.UI.Brightness)
	}
	if len(cfg.UI.Keys) != 9 {
		t.Errorf("UI.Keys length = %d, want 9", len(cfg.UI.Keys))
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
ble:
  backend: hci
  name_prefix: "S&B"
  scan_window: 1s
  device_timeout: 30s
protocol:
  verify_attempts: 10
  trigger_delay: 100ms
  poll_interval: 2s
ui:
  tick: 20ms
  brightness: 0.5
  keys:
    enter: space
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BLE.Backend != "hci" {
		t.Errorf("BLE.Backend = %q, want %q", cfg.BLE.Backend, "hci")
	}
	if cfg.BLE.NamePrefix != "S&B" {
		t.Errorf("BLE.NamePrefix = %q, want %q", cfg.BLE.NamePrefix, "S&B")
	}
	if cfg.BLE.ScanWindow != time.Second {
		t.Errorf("BLE.ScanWindow = %v, want 1s", cfg.BLE.ScanWindow)
	}
	if cfg.BLE.ConnectTimeout != 10*time.Second {
		t.Errorf("BLE.ConnectTimeout = %v, want default 10s", cfg.BLE.ConnectTimeout)
	}
	if cfg.Protocol.VerifyAttempts != 10 {
		t.Errorf("Protocol.VerifyAttempts = %d, want 10", cfg.Protocol.VerifyAttempts)
	}
	if cfg.Protocol.TriggerAttempts != 3 {
		t.Errorf("Protocol.TriggerAttempts = %d, want default 3", cfg.Protocol.TriggerAttempts)
	}
	if cfg.Protocol.PollInterval != 2*time.Second {
		t.Errorf("Protocol.PollInterval = %v, want 2s", cfg.Protocol.PollInterval)
	}
	if cfg.UI.Tick != 20*time.Millisecond {
		t.Errorf("UI.Tick = %v, want 20ms", cfg.UI.Tick)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}

	keys, err := cfg.ButtonKeys()
	if err != nil {
		t.Fatalf("ButtonKeys() error = %v", err)
	}
	if keys[ui.Enter] != "space" {
		t.Errorf("keys[enter] = %q, want %q", keys[ui.Enter], "space")
	}
	if keys[ui.Y] != "y" {
		t.Errorf("keys[y] = %q, want default %q", keys[ui.Y], "y")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
workflows_path: ~/volcano/workflows.yaml
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := filepath.Join(home, "volcano/workflows.yaml")
	if cfg.WorkflowsPath != expected {
		t.Errorf("WorkflowsPath = %q, want %q", cfg.WorkflowsPath, expected)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("ble: [unterminated\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid backend",
			modify:  func(c *Config) { c.BLE.Backend = "bluez" },
			wantErr: true,
		},
		{
			name:    "zero scan window",
			modify:  func(c *Config) { c.BLE.ScanWindow = 0 },
			wantErr: true,
		},
		{
			name:    "device timeout shorter than scan window",
			modify:  func(c *Config) { c.BLE.DeviceTimeout = 100 * time.Millisecond },
			wantErr: true,
		},
		{
			name:    "zero connect timeout",
			modify:  func(c *Config) { c.BLE.ConnectTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "zero verify attempts",
			modify:  func(c *Config) { c.Protocol.VerifyAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "zero trigger attempts",
			modify:  func(c *Config) { c.Protocol.TriggerAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "negative trigger delay",
			modify:  func(c *Config) { c.Protocol.TriggerDelay = -time.Millisecond },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			modify:  func(c *Config) { c.Protocol.PollInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero tick",
			modify:  func(c *Config) { c.UI.Tick = 0 },
			wantErr: true,
		},
		{
			name:    "brightness above one",
			modify:  func(c *Config) { c.UI.Brightness = 1.5 },
			wantErr: true,
		},
		{
			name:    "unknown button",
			modify:  func(c *Config) { c.UI.Keys["start"] = "s" },
			wantErr: true,
		},
		{
			name:    "empty key",
			modify:  func(c *Config) { c.UI.Keys["a"] = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVolcanoOptions(t *testing.T) {
	cfg := Default()
	cfg.Protocol.VerifyAttempts = 7
	cfg.Protocol.TriggerAttempts = 2
	cfg.Protocol.TriggerDelay = time.Millisecond

	opts := cfg.VolcanoOptions()
	if opts.VerifyAttempts != 7 || opts.TriggerAttempts != 2 || opts.TriggerDelay != time.Millisecond {
		t.Errorf("VolcanoOptions() = %+v", opts)
	}
}

func TestMachineOptions(t *testing.T) {
	cfg := Default()
	cfg.BLE.NamePrefix = "VOLCANO"
	cfg.BLE.ScanWindow = time.Second
	cfg.Protocol.PollInterval = 2 * time.Second
	cfg.Protocol.VerifyAttempts = 5

	opts := cfg.MachineOptions()
	if opts.NamePrefix != "VOLCANO" {
		t.Errorf("NamePrefix = %q, want %q", opts.NamePrefix, "VOLCANO")
	}
	if opts.ScanWindow != time.Second {
		t.Errorf("ScanWindow = %v, want 1s", opts.ScanWindow)
	}
	if opts.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", opts.PollInterval)
	}
	if opts.Volcano.VerifyAttempts != 5 {
		t.Errorf("Volcano.VerifyAttempts = %d, want 5", opts.Volcano.VerifyAttempts)
	}
	if opts.OffTimeout <= 0 {
		t.Error("OffTimeout should keep its default")
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "volcano-remote", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# volcano-remote") {
		t.Error("written config should start with header comment")
	}

	// The written file must load back to the defaults
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of written config error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}
	if cfg.BLE.ScanWindow != 250*time.Millisecond {
		t.Errorf("written config BLE.ScanWindow = %v, want 250ms", cfg.BLE.ScanWindow)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "volcano-remote")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("log_level: debug\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}
