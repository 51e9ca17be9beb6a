// Package render draws ride vehicles on a terminal. It is a diagnostic view
// of the engine's committed car poses, one cell per car.
package render

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"ridesim/internal/sim"
	"ridesim/internal/track"
	"ridesim/internal/vehicle"
)

// Terminal world units per cell. Cells are about twice as tall as wide.
const (
	unitsPerColumn = 16
	unitsPerRow    = 32
)

var palette = []tcell.Color{
	tcell.ColorGreen, tcell.ColorBlue, tcell.ColorYellow, tcell.ColorPurple,
	tcell.ColorTeal, tcell.ColorOrange, tcell.ColorFuchsia, tcell.ColorSilver,
}

// Terminal implements the engine's render sink and viewport on a tcell screen.
type Terminal struct {
	mu     sync.Mutex
	screen tcell.Screen
	origin track.Position
	log    zerolog.Logger
}

func NewTerminal(screen tcell.Screen, origin track.Position, log zerolog.Logger) *Terminal {
	return &Terminal{screen: screen, origin: origin, log: log.With().Str("component", "render").Logger()}
}

// Project maps a world position to a cell. The top row is the status line.
func (t *Terminal) Project(p track.Position) (x, y int32, visible bool) {
	rel := p.Sub(t.origin)
	x = floorDiv(rel.X, unitsPerColumn)
	y = floorDiv(rel.Y, unitsPerRow) + 1
	w, h := t.screen.Size()
	visible = x >= 0 && y >= 1 && x < int32(w) && y < int32(h)
	return x, y, visible
}

func (t *Terminal) Size() (w, h int32) {
	cw, ch := t.screen.Size()
	return int32(cw), int32(ch)
}

// Frame redraws every car and shows the screen.
func (t *Terminal) Frame(tick uint64, cars []sim.CarFrame) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.screen.Clear()
	shown := 0
	for _, c := range cars {
		x, y, ok := t.Project(c.Pos)
		if !ok {
			continue
		}
		style := tcell.StyleDefault.Foreground(palette[int(c.Ride)%len(palette)])
		switch c.Status {
		case vehicle.StatusCrashing, vehicle.StatusCrashed:
			style = tcell.StyleDefault.Foreground(tcell.ColorRed).Reverse(true)
		}
		t.screen.SetContent(int(x), int(y), glyph(c), nil, style)
		shown++
	}
	t.status(fmt.Sprintf("tick %d  cars %d/%d", tick, shown, len(cars)))
	t.screen.Show()
}

func (t *Terminal) status(s string) {
	style := tcell.StyleDefault.Reverse(true)
	w, _ := t.screen.Size()
	for x := 0; x < w; x++ {
		r := ' '
		if x < len(s) {
			r = rune(s[x])
		}
		t.screen.SetContent(x, 0, r, nil, style)
	}
}

// glyph draws the lead car of a train as its heading and the rest as bodies.
func glyph(c sim.CarFrame) rune {
	if c.Status == vehicle.StatusCrashed {
		return 'x'
	}
	if c.Index > 0 {
		return 'o'
	}
	// Yaw runs 0..31 clockwise from +X.
	return [...]rune{'>', '\\', 'v', '/', '<', '\\', '^', '/'}[((c.Yaw+2)&31)/4]
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
