package machine

import (
	"math"

	"github.com/chaz8081/volcano-remote/internal/ui"
)

const (
	appTitle       = "Volcano Remote Control App"
	brightnessStep = 0.05
	listTop        = 30
	rowHeight      = 25
)

func header(s ui.Surface, title string) {
	s.Text(appTitle, 0, 0, ui.Green)
	s.Text(title, 0, 10, ui.Red)
}

func centered(s ui.Surface, text string) {
	s.TextCentered(text, s.Width()/2, s.Height()/2, ui.White)
}

// adjustBrightness handles held left/right.
func adjustBrightness(s ui.Surface, bs ui.Buttons) {
	switch {
	case bs.Held(ui.Left):
		s.SetBrightness(s.Brightness() - brightnessStep)
	case bs.Held(ui.Right):
		s.SetBrightness(s.Brightness() + brightnessStep)
	}
}

func brightnessBar(s ui.Surface) {
	s.HLine(0, 24, int(float64(s.Width())*s.Brightness()), ui.White)
}

// seconds rounds a duration in seconds to a tenth.
func seconds(v float64) float64 {
	return math.Round(v*10) / 10
}

// menu is a wrap-around list cursor with a scroll offset.
type menu struct {
	cur int
	off int
}

func (m *menu) move(delta, n int) {
	if n == 0 {
		m.cur, m.off = 0, 0
		return
	}
	m.cur = ((m.cur+delta)%n + n) % n
}

// scroll keeps the cursor within the rows visible on s.
func (m *menu) scroll(s ui.Surface) {
	rows := max((s.Height()-listTop-10)/rowHeight, 1)
	if m.cur < m.off {
		m.off = m.cur
	}
	if m.cur >= m.off+rows {
		m.off = m.cur - rows + 1
	}
}

// drawRows draws two-line entries starting at the scroll offset.
func (m *menu) drawRows(s ui.Surface, n int, row func(i int) (line1, line2 string, c ui.Color)) {
	for i := m.off; i < n; i++ {
		y := (i-m.off)*rowHeight + listTop
		if y >= s.Height()-10 {
			break
		}
		l1, l2, c := row(i)
		s.HLine(0, y-3, s.Width(), ui.Blue)
		s.Text(l1, 0, y+2, c)
		s.Text(l2, 0, y+12, c)
	}
}

// ShowError renders a failure that ended a run.
func ShowError(s ui.Surface, err error) {
	s.Clear(ui.Black)
	header(s, "Error")
	centered(s, err.Error())
	s.TextCentered("Press any button", s.Width()/2, s.Height()-20, ui.White)
}
