package ui

import (
	"fmt"
	"math"
)

// Ratio returns (val-min)/(max-min). ok is false when min == max.
func Ratio(min, val, max float64) (ratio float64, ok bool) {
	if max == min {
		return 0, false
	}
	return (val - min) / (max - min), true
}

// translate maps value from [leftMin,leftMax] onto [rightMin,rightMax].
func translate(value, leftMin, leftMax, rightMin, rightMax float64) float64 {
	scaled := (value - leftMin) / (leftMax - leftMin)
	return rightMin + scaled*(rightMax-rightMin)
}

// FromHSV converts hue, saturation and value in [0,1] to RGB.
func FromHSV(h, s, v float64) Color {
	i := math.Floor(h * 6)
	f := h*6 - i
	v *= 255
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	switch int(i) % 6 {
	case 0:
		return RGB(uint8(v), uint8(t), uint8(p))
	case 1:
		return RGB(uint8(q), uint8(v), uint8(p))
	case 2:
		return RGB(uint8(p), uint8(v), uint8(t))
	case 3:
		return RGB(uint8(p), uint8(q), uint8(v))
	case 4:
		return RGB(uint8(t), uint8(p), uint8(v))
	default:
		return RGB(uint8(v), uint8(p), uint8(q))
	}
}

// ProgressColor goes from red at min to green at max.
func ProgressColor(min, val, max float64) Color {
	if max == min {
		return Green
	}
	hue := clamp(translate(val, min, max, 0, 1.0/3.0), 0, 1.0/3.0)
	return FromHSV(hue, 1, 1)
}

// Graph draws a progress wedge for val between min and max, captioned
// "val / max". With min == max it only prints the three numbers.
func Graph(s Surface, min, val, max float64) {
	cx, cy := s.Width()/2, s.Height()/2

	ratio, ok := Ratio(min, val, max)
	if !ok {
		s.TextCentered(fmt.Sprintf("%s -> %s -> %s", num(min), num(val), num(max)), cx, cy, White)
		return
	}

	s.Pie(cx, cy, s.Width()-42, White, ProgressColor(min, val, max), clamp(ratio, 0, 1))
	s.TextCentered(fmt.Sprintf("%s / %s", num(val), num(max)), cx, cy, White)
}

// num formats with one decimal, dropping a trailing ".0".
func num(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
