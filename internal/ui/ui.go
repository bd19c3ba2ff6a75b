// Package ui is the presentation and input surface of the controller: a
// small set of drawing primitives on a fixed-size panel, and buttons that
// report press edges and holds.
package ui

import (
	"fmt"
	"strings"
)

// Color is a 24-bit RGB colour.
type Color struct {
	R, G, B uint8
}

// RGB builds a Color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// Hex returns the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Scale dims the colour by f in [0,1].
func (c Color) Scale(f float64) Color {
	f = clamp(f, 0, 1)
	return Color{R: uint8(float64(c.R) * f), G: uint8(float64(c.G) * f), B: uint8(float64(c.B) * f)}
}

// Palette.
var (
	Black = RGB(0x00, 0x00, 0x00)
	White = RGB(0xFF, 0xFF, 0xFF)
	Red   = RGB(0xFF, 0x00, 0x00)
	Green = RGB(0x00, 0xFF, 0x00)
	Blue  = RGB(0x00, 0x00, 0xFF)
)

// Surface is the drawing target. Coordinates are panel pixels; the
// implementation decides how they map to its output.
type Surface interface {
	Width() int
	Height() int

	Clear(bg Color)
	Text(s string, x, y int, fg Color)
	TextCentered(s string, cx, cy int, fg Color)
	HLine(x, y, w int, c Color)
	Rect(x, y, w, h int, c Color, fill bool)
	// Pie draws a circle of diameter d filled as a wedge up to ratio in [0,1].
	Pie(cx, cy, d int, outline, fill Color, ratio float64)

	// Show flushes the frame to the panel.
	Show() error

	Brightness() float64
	SetBrightness(v float64)
}

// Button names a physical button.
type Button uint8

const (
	Up Button = iota
	Down
	Left
	Right
	Enter
	A
	B
	X
	Y
	numButtons
)

var buttonNames = [numButtons]string{"up", "down", "left", "right", "enter", "a", "b", "x", "y"}

func (b Button) String() string {
	if b < numButtons {
		return buttonNames[b]
	}
	return fmt.Sprintf("button(%d)", b)
}

// ParseButton maps a lowercase name to a Button.
func ParseButton(name string) (Button, error) {
	for i, n := range buttonNames {
		if n == strings.ToLower(name) {
			return Button(i), nil
		}
	}
	return 0, fmt.Errorf("ui: unknown button %q", name)
}

// Buttons is a snapshot of the buttons for one tick.
type Buttons struct {
	edges uint16 // pressed since the previous poll
	held  uint16 // currently down
}

// NewButtons builds a snapshot; used by inputs and tests.
func NewButtons(pressed, held []Button) Buttons {
	var bs Buttons
	for _, b := range pressed {
		bs.edges |= 1 << b
	}
	for _, b := range held {
		bs.held |= 1 << b
	}
	return bs
}

// Once reports whether b was pressed since the previous poll.
func (bs Buttons) Once(b Button) bool { return bs.edges&(1<<b) != 0 }

// Held reports whether b is currently held down.
func (bs Buttons) Held(b Button) bool { return bs.held&(1<<b) != 0 }

// Any reports whether any button was pressed.
func (bs Buttons) Any() bool { return bs.edges != 0 }

// Input reports button state once per tick.
type Input interface {
	Poll() Buttons
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
