package snake

import (
	"time"

	"github.com/vovakirdan/netsnake/internal/core"
)

// Snapshot is a read-only copy of the interesting parts of a GameState.
// The runtime hands these out so callers never touch the live state.
type Snapshot struct {
	Width       int
	Height      int
	World       WorldType
	Mode        Mode
	Head        core.Point
	Direction   core.Direction
	Length      int
	Fruit       core.Point
	Alive       bool
	Paused      bool
	Connected   bool
	Elapsed     time.Duration // active play time
	PausedTotal time.Duration
}

// Snapshot captures the state as of now.
func (g *GameState) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Width:       g.World.Width,
		Height:      g.World.Height,
		World:       g.World.Type,
		Mode:        g.Mode,
		Head:        g.Snake.Head(),
		Direction:   g.Snake.Direction,
		Length:      g.Snake.Len(),
		Fruit:       g.Fruit,
		Alive:       g.Snake.Alive,
		Paused:      g.Pause.Paused,
		Connected:   g.Player.Connected,
		Elapsed:     g.ActiveElapsed(now),
		PausedTotal: g.Pause.Total(now),
	}
}

// FruitsEaten is the number of fruits consumed at snapshot time.
func (s Snapshot) FruitsEaten() int {
	return s.Length - 1
}
