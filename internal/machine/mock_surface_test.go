package machine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/chaz8081/volcano-remote/internal/ui"
)

// mockSurface records the text of the last shown frame.
type mockSurface struct {
	mu         sync.Mutex
	texts      []string
	shown      []string
	shows      int
	brightness float64
}

func newMockSurface() *mockSurface {
	return &mockSurface{brightness: 1.0}
}

func (m *mockSurface) Width() int  { return ui.PanelWidth }
func (m *mockSurface) Height() int { return ui.PanelHeight }

func (m *mockSurface) Clear(ui.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = nil
}

func (m *mockSurface) Text(s string, _, _ int, _ ui.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, s)
}

func (m *mockSurface) TextCentered(s string, _, _ int, c ui.Color) { m.Text(s, 0, 0, c) }
func (m *mockSurface) HLine(_, _, _ int, _ ui.Color)                {}
func (m *mockSurface) Rect(_, _, _, _ int, _ ui.Color, _ bool)      {}
func (m *mockSurface) Pie(_, _, _ int, _, _ ui.Color, _ float64)    {}

func (m *mockSurface) Show() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shown = append([]string(nil), m.texts...)
	m.shows++
	return nil
}

func (m *mockSurface) Brightness() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.brightness
}

func (m *mockSurface) SetBrightness(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brightness = min(max(v, 0.05), 1)
}

// frame returns the text of the last shown frame joined by newlines.
func (m *mockSurface) frame() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.shown, "\n")
}

// scriptInput hands out queued button snapshots, then empty ones.
type scriptInput struct {
	queue []ui.Buttons
}

func (s *scriptInput) press(b ...ui.Button) {
	s.queue = append(s.queue, ui.NewButtons(b, nil))
}

func (s *scriptInput) Poll() ui.Buttons {
	if len(s.queue) == 0 {
		return ui.Buttons{}
	}
	bs := s.queue[0]
	s.queue = s.queue[1:]
	return bs
}

// fastClock runs time factor times faster than the wall clock.
type fastClock struct {
	start  time.Time
	factor time.Duration
}

func newFastClock(factor time.Duration) *fastClock {
	return &fastClock{start: time.Now(), factor: factor}
}

func (c *fastClock) Now() time.Time {
	return c.start.Add(time.Since(c.start) * c.factor)
}

func (c *fastClock) Sleep(ctx context.Context, d time.Duration) error {
	return SystemClock().Sleep(ctx, d/c.factor)
}

var (
	_ ui.Surface = (*mockSurface)(nil)
	_ ui.Input   = (*scriptInput)(nil)
	_ Clock      = (*fastClock)(nil)
)
