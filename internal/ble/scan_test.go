package ble

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFilterMatch(t *testing.T) {
	volcano := Device{Name: "S&B VOLCANO H", MAC: "AA:BB:CC:DD:EE:FF", RSSI: -50}
	other := Device{Name: "Headphones", MAC: "11:22:33:44:55:66", RSSI: -70}

	tests := []struct {
		name   string
		filter Filter
		dev    Device
		want   bool
	}{
		{"empty matches all", Filter{}, other, true},
		{"prefix match", Filter{NamePrefix: "S&B VOLCANO"}, volcano, true},
		{"prefix mismatch", Filter{NamePrefix: "S&B VOLCANO"}, other, false},
		{"mac match ignores case", Filter{MAC: "aa:bb:cc:dd:ee:ff"}, volcano, true},
		{"mac mismatch", Filter{MAC: "aa:bb:cc:dd:ee:ff"}, other, false},
		{"both must match", Filter{NamePrefix: "Head", MAC: "AA:BB:CC:DD:EE:FF"}, volcano, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.dev); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanWindowFilters(t *testing.T) {
	adapter := newMockAdapter([]Device{
		{Name: "S&B VOLCANO H", MAC: "AA:BB:CC:DD:EE:FF", RSSI: -45},
		{Name: "Speaker", MAC: "11:22:33:44:55:66", RSSI: -80},
	})

	got, err := ScanWindow(context.Background(), adapter, Filter{NamePrefix: "S&B"}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ScanWindow() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d devices, want 1", len(got))
	}
	if got[0].MAC != "AA:BB:CC:DD:EE:FF" {
		t.Errorf("MAC = %q, want %q", got[0].MAC, "AA:BB:CC:DD:EE:FF")
	}
}

func TestScanWindowEmpty(t *testing.T) {
	adapter := newMockAdapter(nil)
	got, err := ScanWindow(context.Background(), adapter, Filter{}, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("ScanWindow() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d devices, want 0", len(got))
	}
}

func TestFindDeviceGivesUpOnCancel(t *testing.T) {
	adapter := newMockAdapter([]Device{{Name: "Speaker", MAC: "11:22:33:44:55:66"}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := FindDevice(ctx, adapter, Filter{NamePrefix: "S&B"}, 5*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("FindDevice() error = %v, want deadline exceeded", err)
	}
	if adapter.scanCount() < 2 {
		t.Errorf("scanCount = %d, want repeated windows", adapter.scanCount())
	}
}

func TestFindDevice(t *testing.T) {
	adapter := newMockAdapter([]Device{
		{Name: "Speaker", MAC: "11:22:33:44:55:66"},
		{Name: "S&B VOLCANO H", MAC: "AA:BB:CC:DD:EE:FF"},
	})

	d, err := FindDevice(context.Background(), adapter, Filter{MAC: "aa:bb:cc:dd:ee:ff"}, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("FindDevice() error = %v", err)
	}
	if d.Name != "S&B VOLCANO H" {
		t.Errorf("Name = %q, want %q", d.Name, "S&B VOLCANO H")
	}
}

func TestNewAdapterUnknownBackend(t *testing.T) {
	if _, err := NewAdapter("carrier-pigeon"); err == nil {
		t.Error("NewAdapter() should reject unknown backend")
	}
}

func TestNewAdapterDefaultsToTinyGo(t *testing.T) {
	for _, backend := range []string{"", "tinygo"} {
		a, err := NewAdapter(backend)
		if err != nil {
			t.Fatalf("NewAdapter(%q) error = %v", backend, err)
		}
		if _, ok := a.(*TinyGoAdapter); !ok {
			t.Errorf("NewAdapter(%q) = %T, want *TinyGoAdapter", backend, a)
		}
	}
}
