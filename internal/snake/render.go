package snake

import (
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/netsnake/internal/core"
)

// RenderGrid draws the world into a screen buffer: walls and obstacles as
// '#', the fruit as 'F', snake segments as 'O' and empty cells as '.'.
// Walls are drawn last, so a fruit on an obstacle or a segment crossing the
// border of an open world shows as '#'.
func RenderGrid(state *GameState) *core.Screen {
	w, h := state.World.Width, state.World.Height
	scr := core.NewScreen(w, h, core.GlyphEmpty)

	scr.Set(state.Fruit, core.GlyphFruit)
	for _, p := range state.Snake.Body() {
		scr.Set(p, core.GlyphSnake)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if p := (core.Point{X: x, Y: y}); state.World.IsWall(p) {
				scr.Set(p, core.GlyphWall)
			}
		}
	}
	return scr
}

// Render produces the snapshot text sent to clients after each tick: the
// grid with newline-terminated rows followed by a summary line.
func Render(state *GameState, now time.Time) string {
	var b strings.Builder
	b.WriteString(RenderGrid(state).String())
	b.WriteString(StatusLine(state.FruitsEaten(), state.ActiveElapsed(now)))
	b.WriteByte('\n')
	return b.String()
}

// StatusLine formats the per-tick summary.
func StatusLine(fruits int, elapsed time.Duration) string {
	return fmt.Sprintf("Fruits: %d  Time: %ds", fruits, int(elapsed/time.Second))
}

// FinalSummary formats the end-of-game text that replaces the grid.
func FinalSummary(fruits int, elapsed time.Duration, reason string) string {
	return fmt.Sprintf("Game over! Fruits eaten: %d. Time: %ds. (%s)\n", fruits, int(elapsed/time.Second), reason)
}
