package volcano

import "testing"

func TestDecodeUintWidths(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint64
	}{
		{"one byte", []byte{0x2a}, 42},
		{"two bytes", []byte{0x6c, 0x07}, 1900},
		{"four bytes", []byte{0x6c, 0x07, 0x00, 0x00}, 1900},
		{"status word", []byte{0x20, 0x20}, 0x2020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeUint(tt.data)
			if err != nil {
				t.Fatalf("decodeUint() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeUint() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodeUintRejectsBadLength(t *testing.T) {
	if _, err := decodeUint(nil); err == nil {
		t.Error("decodeUint(nil) should fail")
	}
	if _, err := decodeUint(make([]byte, 9)); err == nil {
		t.Error("decodeUint(9 bytes) should fail")
	}
}

func TestEncodeTempRounds(t *testing.T) {
	tests := []struct {
		celsius float64
		want    []byte
	}{
		{190.0, []byte{0x6c, 0x07, 0x00, 0x00}},
		{205.04, []byte{0x02, 0x08, 0x00, 0x00}},
		{204.96, []byte{0x02, 0x08, 0x00, 0x00}},
	}

	for _, tt := range tests {
		got := encodeTemp(tt.celsius)
		if string(got) != string(tt.want) {
			t.Errorf("encodeTemp(%v) = % x, want % x", tt.celsius, got, tt.want)
		}
	}
}

func TestDecodeTemp(t *testing.T) {
	got, err := decodeTemp([]byte{0x6c, 0x07})
	if err != nil {
		t.Fatalf("decodeTemp() error = %v", err)
	}
	if got != 190.0 {
		t.Errorf("decodeTemp() = %v, want 190.0", got)
	}
}

func TestSwitchOf(t *testing.T) {
	if SwitchOf(true) != On || SwitchOf(false) != Off {
		t.Error("SwitchOf mapping is wrong")
	}
	if Keep.String() != "keep" || On.String() != "on" || Off.String() != "off" {
		t.Error("Switch.String mapping is wrong")
	}
}
