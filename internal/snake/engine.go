package snake

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/netsnake/internal/core"
)

// Rand is the subset of *rand.Rand the engine draws from.
type Rand interface {
	Intn(n int) int
}

// Params are the setup parameters for a new game.
type Params struct {
	Width     int
	Height    int
	Mode      Mode
	TimeLimit time.Duration // ignored in standard mode
	World     WorldType
	MaxLength int // 0 means DefaultMaxLength

	// ObstacleDivisor sets density: one obstacle per this many cells.
	// 0 means DefaultObstacleDivisor.
	ObstacleDivisor int

	FruitAvoidsObstacles bool
}

// Validate checks the parameters without touching any game state.
func (p Params) Validate() error {
	if p.Width < MinDimension || p.Height < MinDimension {
		return configErr("size", "%dx%d is smaller than %dx%d", p.Width, p.Height, MinDimension, MinDimension)
	}
	switch p.Mode {
	case ModeStandard:
	case ModeTimed:
		if p.TimeLimit <= 0 {
			return configErr("time limit", "timed mode needs a positive limit, got %s", p.TimeLimit)
		}
	default:
		return configErr("mode", "unknown mode %d", int(p.Mode))
	}
	if p.TimeLimit < 0 {
		return configErr("time limit", "negative limit %s", p.TimeLimit)
	}
	if p.World != WorldOpen && p.World != WorldObstacles {
		return configErr("world", "unknown world type %d", int(p.World))
	}
	if p.MaxLength < 0 {
		return configErr("max length", "negative bound %d", p.MaxLength)
	}
	if p.ObstacleDivisor < 0 {
		return configErr("obstacle divisor", "negative divisor %d", p.ObstacleDivisor)
	}
	return nil
}

// Cause explains why a step ended the game.
type Cause int

const (
	CauseNone      Cause = iota
	CauseWall            // left the grid or hit the border in an obstacles world
	CauseObstacle        // ran into an obstacle
	CauseSelf            // ran into its own body
	CauseCapacity        // growth would exceed the body bound
	CauseBoardFull       // no cell left for a fruit
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseWall:
		return "wall"
	case CauseObstacle:
		return "obstacle"
	case CauseSelf:
		return "self"
	case CauseCapacity:
		return "capacity"
	case CauseBoardFull:
		return "board full"
	default:
		return "unknown"
	}
}

// StepResult is the outcome of one simulation step.
type StepResult struct {
	Moved    bool
	AteFruit bool
	Died     bool
	Cause    Cause
}

// Initialize builds a fresh game: a length-1 snake at the grid center heading
// right, optional obstacles, and the first fruit.
func Initialize(p Params, rng Rand, now time.Time) (*GameState, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	head := core.Point{X: p.Width / 2, Y: p.Height / 2}
	state := &GameState{
		World: World{
			Width:  p.Width,
			Height: p.Height,
			Type:   p.World,
		},
		Snake:                NewSnake(head, core.DirRight, p.MaxLength),
		Mode:                 p.Mode,
		TimeLimit:            p.TimeLimit,
		StartTime:            now,
		Player:               PlayerStatus{Connected: true},
		FruitAvoidsObstacles: p.FruitAvoidsObstacles,
	}
	if p.Mode == ModeStandard {
		state.TimeLimit = 0
	}

	if p.World == WorldObstacles {
		divisor := p.ObstacleDivisor
		if divisor == 0 {
			divisor = DefaultObstacleDivisor
		}
		if err := BuildObstacles(state, ObstacleCount(p.Width, p.Height, divisor), rng); err != nil {
			return nil, err
		}
	}

	if err := PlaceFruit(state, rng); err != nil {
		return nil, configErr("size", "%dx%d leaves no room for fruit", p.Width, p.Height)
	}
	return state, nil
}

// ObstacleCount is the number of obstacles scattered in a w×h world.
func ObstacleCount(w, h, divisor int) int {
	return w * h / divisor
}

// BuildObstacles scatters count cells uniformly over the interior, avoiding
// the snake head. Fails if they cannot fit.
func BuildObstacles(state *GameState, count int, rng Rand) error {
	w, h := state.World.Width, state.World.Height
	free := (w-2)*(h-2) - 1
	if count > free {
		return configErr("world", "%d obstacles do not fit in %d free interior cells", count, free)
	}

	mask := make([][]bool, h)
	for y := range mask {
		mask[y] = make([]bool, w)
	}

	head := state.Snake.Head()
	for placed := 0; placed < count; {
		p := core.Point{X: rng.Intn(w-2) + 1, Y: rng.Intn(h-2) + 1}
		if p == head || mask[p.Y][p.X] {
			continue
		}
		mask[p.Y][p.X] = true
		placed++
	}

	state.World.obstacles = mask
	return nil
}

// ChangeDirection turns the snake. A 180° reversal or an unknown code is
// silently ignored.
func ChangeDirection(s *Snake, d core.Direction) {
	if !d.Valid() || s.Direction.Opposite() == d {
		return
	}
	s.Direction = d
}

// Step advances the snake one cell.
func Step(state *GameState, rng Rand) StepResult {
	s := &state.Snake
	if !s.Alive {
		return StepResult{}
	}

	w, h := state.World.Width, state.World.Height
	next := s.Head().Add(s.Direction.Delta())

	if state.World.Type == WorldOpen {
		next = next.Wrap(w, h)
	} else if !next.In(w, h) || next.OnBorder(w, h) {
		return kill(s, StepResult{}, CauseWall)
	}
	if state.World.IsObstacle(next) {
		return kill(s, StepResult{}, CauseObstacle)
	}

	s.shift(next)
	res := StepResult{Moved: true}
	if CheckCollision(state) {
		return kill(s, res, CauseSelf)
	}

	if next != state.Fruit {
		return res
	}
	if err := s.grow(); err != nil {
		return kill(s, res, CauseCapacity)
	}
	res.AteFruit = true
	if err := PlaceFruit(state, rng); err != nil {
		return kill(s, res, CauseBoardFull)
	}
	return res
}

func kill(s *Snake, res StepResult, cause Cause) StepResult {
	s.Alive = false
	res.Died = true
	res.Cause = cause
	return res
}

// CheckCollision reports whether the head overlaps any other segment.
func CheckCollision(state *GameState) bool {
	s := &state.Snake
	head := s.Head()
	for i := 1; i < s.length; i++ {
		if s.body[i] == head {
			return true
		}
	}
	return false
}

// PlaceFruit picks a uniformly random cell off the border and off the snake.
// Random probing is bounded; after that the free cells are enumerated so the
// call always terminates.
func PlaceFruit(state *GameState, rng Rand) error {
	w, h := state.World.Width, state.World.Height
	for range 4 * w * h {
		p := core.Point{X: rng.Intn(w), Y: rng.Intn(h)}
		if state.fruitCellFree(p) {
			state.Fruit = p
			return nil
		}
	}

	var free []core.Point
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			p := core.Point{X: x, Y: y}
			if state.fruitCellFree(p) {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return fmt.Errorf("placing fruit on %dx%d: %w", w, h, ErrNoFreeCell)
	}
	state.Fruit = free[rng.Intn(len(free))]
	return nil
}

func (g *GameState) fruitCellFree(p core.Point) bool {
	if p.OnBorder(g.World.Width, g.World.Height) || g.Snake.Occupies(p) {
		return false
	}
	return !g.FruitAvoidsObstacles || !g.World.IsObstacle(p)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
