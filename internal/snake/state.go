// Package snake holds the authoritative game model and the pure simulation
// functions that advance it. Nothing here does I/O or locking; the session
// runtime owns a GameState and serializes access to it.
package snake

import (
	"slices"
	"time"

	"github.com/vovakirdan/netsnake/internal/core"
)

const (
	// DefaultMaxLength bounds the snake body when no limit is configured.
	DefaultMaxLength = 100

	// MinDimension is the smallest grid side that still has an interior.
	MinDimension = 3

	// DefaultObstacleDivisor gives one obstacle per ten cells.
	DefaultObstacleDivisor = 10
)

// WorldType selects the boundary policy.
type WorldType int

const (
	WorldOpen      WorldType = iota // out-of-range moves wrap around
	WorldObstacles                  // borders and obstacles are fatal
)

func (w WorldType) String() string {
	switch w {
	case WorldOpen:
		return "open"
	case WorldObstacles:
		return "obstacles"
	default:
		return "unknown"
	}
}

// Mode is the game mode.
type Mode int

const (
	ModeStandard Mode = iota
	ModeTimed
)

func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeTimed:
		return "timed"
	default:
		return "unknown"
	}
}

// Snake is a fixed-capacity body with the head at index 0.
type Snake struct {
	body      []core.Point // len(body) is the capacity, only [:length] is live
	length    int
	Direction core.Direction
	Alive     bool
}

// NewSnake creates a live snake of length 1.
func NewSnake(head core.Point, dir core.Direction, maxLength int) Snake {
	if maxLength < 1 {
		maxLength = DefaultMaxLength
	}
	s := Snake{
		body:      make([]core.Point, maxLength),
		length:    1,
		Direction: dir,
		Alive:     true,
	}
	s.body[0] = head
	return s
}

// Head returns the current head position.
func (s *Snake) Head() core.Point {
	return s.body[0]
}

// Len returns the number of live segments.
func (s *Snake) Len() int {
	return s.length
}

// Cap returns the maximum number of segments.
func (s *Snake) Cap() int {
	return len(s.body)
}

// Body returns a copy of the live segments, head first.
func (s *Snake) Body() []core.Point {
	return slices.Clone(s.body[:s.length])
}

// Occupies reports whether any live segment is at p.
func (s *Snake) Occupies(p core.Point) bool {
	return slices.Contains(s.body[:s.length], p)
}

// shift moves every segment to its predecessor's position and writes head
// at index 0. While there is spare capacity the old tail is kept in the slot
// just past the end, so grow can reveal it.
func (s *Snake) shift(head core.Point) {
	n := s.length
	if n < len(s.body) {
		n++
	}
	copy(s.body[1:n], s.body[:n-1])
	s.body[0] = head
}

// grow extends the snake by one segment into the slot prepared by shift.
func (s *Snake) grow() error {
	if s.length >= len(s.body) {
		return ErrCapacityExceeded
	}
	s.length++
	return nil
}

// World is the playing field.
type World struct {
	Width     int
	Height    int
	Type      WorldType
	obstacles [][]bool // nil for open worlds
}

// IsObstacle reports whether p is an obstacle cell.
func (w *World) IsObstacle(p core.Point) bool {
	if w.obstacles == nil || !p.In(w.Width, w.Height) {
		return false
	}
	return w.obstacles[p.Y][p.X]
}

// IsWall reports whether p is a border or obstacle cell.
func (w *World) IsWall(p core.Point) bool {
	return p.OnBorder(w.Width, w.Height) || w.IsObstacle(p)
}

// Obstacles returns all obstacle cells in row-major order.
func (w *World) Obstacles() []core.Point {
	var out []core.Point
	for y, row := range w.obstacles {
		for x, set := range row {
			if set {
				out = append(out, core.Point{X: x, Y: y})
			}
		}
	}
	return out
}

// PauseTracker accounts for paused wall-clock time.
type PauseTracker struct {
	Paused      bool
	StartedAt   time.Time // zero while running
	Accumulated time.Duration
}

// Begin starts a pause interval. Returns false if already paused.
func (p *PauseTracker) Begin(now time.Time) bool {
	if p.Paused {
		return false
	}
	p.Paused = true
	p.StartedAt = now
	return true
}

// End closes the open pause interval and folds it into Accumulated.
// Returns the interval length and false if the tracker was not paused.
func (p *PauseTracker) End(now time.Time) (time.Duration, bool) {
	if !p.Paused {
		return 0, false
	}
	d := max(now.Sub(p.StartedAt), 0)
	p.Accumulated += d
	p.Paused = false
	p.StartedAt = time.Time{}
	return d, true
}

// Total returns all paused time up to now, including an open interval.
func (p *PauseTracker) Total(now time.Time) time.Duration {
	total := p.Accumulated
	if p.Paused {
		total += max(now.Sub(p.StartedAt), 0)
	}
	return total
}

// PlayerStatus tracks the connected client.
type PlayerStatus struct {
	Connected bool
}

// GameState is the aggregate owned by one session runtime.
type GameState struct {
	World     World
	Snake     Snake
	Fruit     core.Point
	Mode      Mode
	TimeLimit time.Duration
	StartTime time.Time
	Pause     PauseTracker
	Player    PlayerStatus

	// FruitAvoidsObstacles keeps fruit off obstacle cells. Off by default
	// to match the classic placement rule.
	FruitAvoidsObstacles bool
}

// FruitsEaten is the number of fruits consumed so far.
func (g *GameState) FruitsEaten() int {
	return g.Snake.Len() - 1
}

// ActiveElapsed is wall-clock time since start minus all paused time.
// It is frozen while paused and never decreases.
func (g *GameState) ActiveElapsed(now time.Time) time.Duration {
	return max(now.Sub(g.StartTime)-g.Pause.Total(now), 0)
}

// TimeUp reports whether a timed game has used its whole budget.
func (g *GameState) TimeUp(now time.Time) bool {
	return g.Mode == ModeTimed && g.ActiveElapsed(now) >= g.TimeLimit
}
