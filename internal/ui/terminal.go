package ui

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Panel geometry of the handheld, used for coordinates on every surface.
const (
	PanelWidth  = 240
	PanelHeight = 240
)

// Terminal renders the panel as a character grid on an ANSI terminal.
// Each cell covers a block of panel pixels; text is positioned by the cell
// its top-left pixel falls into.
type Terminal struct {
	mu sync.Mutex

	out        io.Writer
	cols, rows int
	brightness float64
	lines      [][]segment
}

type segment struct {
	col  int
	text string
	fg   Color
}

// NewTerminal creates a surface writing frames to out using a cols x rows grid.
func NewTerminal(out io.Writer, cols, rows int) *Terminal {
	if cols <= 0 {
		cols = 60
	}
	if rows <= 0 {
		rows = 24
	}
	return &Terminal{
		out:        out,
		cols:       cols,
		rows:       rows,
		brightness: 1.0,
		lines:      make([][]segment, rows),
	}
}

func (t *Terminal) Width() int  { return PanelWidth }
func (t *Terminal) Height() int { return PanelHeight }

func (t *Terminal) col(x int) int { return x * t.cols / PanelWidth }
func (t *Terminal) row(y int) int { return y * t.rows / PanelHeight }

func (t *Terminal) add(row int, seg segment) {
	if row < 0 || row >= t.rows {
		return
	}
	if seg.col < 0 {
		seg.col = 0
	}
	t.lines[row] = append(t.lines[row], seg)
}

func (t *Terminal) Clear(Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.lines {
		t.lines[i] = t.lines[i][:0]
	}
}

func (t *Terminal) Text(s string, x, y int, fg Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.add(t.row(y), segment{col: t.col(x), text: s, fg: fg})
}

func (t *Terminal) TextCentered(s string, cx, cy int, fg Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.add(t.row(cy), segment{col: t.col(cx) - len([]rune(s))/2, text: s, fg: fg})
}

func (t *Terminal) HLine(x, y, w int, c Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.col(w)
	if n <= 0 {
		return
	}
	t.add(t.row(y), segment{col: t.col(x), text: strings.Repeat("─", n), fg: c})
}

func (t *Terminal) Rect(x, y, w, h int, c Color, fill bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.col(w)
	if n <= 0 {
		return
	}
	ch := "░"
	if fill {
		ch = "█"
	}
	t.add(t.row(y), segment{col: t.col(x), text: strings.Repeat(ch, n), fg: c})
}

func (t *Terminal) Pie(cx, cy, d int, outline, fill Color, ratio float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.col(d)
	if n <= 0 {
		return
	}
	full := int(math.Round(float64(n) * clamp(ratio, 0, 1)))
	row := t.row(cy - d/4)
	start := t.col(cx - d/2)
	t.add(row, segment{col: start, text: strings.Repeat("█", full), fg: fill})
	t.add(row, segment{col: start + full, text: strings.Repeat("░", n-full), fg: outline})
}

func (t *Terminal) Brightness() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.brightness
}

func (t *Terminal) SetBrightness(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.brightness = clamp(v, 0.05, 1.0)
}

// Show writes the frame, replacing the previous one.
func (t *Terminal) Show() error {
	t.mu.Lock()
	frame := t.render()
	t.mu.Unlock()

	_, err := io.WriteString(t.out, "\x1b[H\x1b[2J"+frame)
	if err != nil {
		return fmt.Errorf("ui: write frame: %w", err)
	}
	return nil
}

// render composes the grid; caller holds mu.
func (t *Terminal) render() string {
	var sb strings.Builder
	for _, segs := range t.lines {
		sorted := append([]segment(nil), segs...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].col < sorted[j].col })

		cursor := 0
		for _, s := range sorted {
			if s.col > cursor {
				sb.WriteString(strings.Repeat(" ", s.col-cursor))
				cursor = s.col
			}
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.fg.Scale(t.brightness).Hex()))
			sb.WriteString(style.Render(s.text))
			cursor += len([]rune(s.text))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var _ Surface = (*Terminal)(nil)
