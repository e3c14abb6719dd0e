// Package core provides fundamental grid types shared by the simulation,
// the server and the client. It contains no I/O and no external dependencies
// so game logic stays pure and testable.
package core

import "fmt"

// Point is an integer grid coordinate.
type Point struct {
	X, Y int
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Wrap folds p back into a w×h grid (toroidal topology).
func (p Point) Wrap(w, h int) Point {
	return Point{X: Mod(p.X, w), Y: Mod(p.Y, h)}
}

// In reports whether p lies inside a w×h grid.
func (p Point) In(w, h int) bool {
	return p.X >= 0 && p.X < w && p.Y >= 0 && p.Y < h
}

// OnBorder reports whether p lies on the outer ring of a w×h grid.
func (p Point) OnBorder(w, h int) bool {
	return p.X == 0 || p.X == w-1 || p.Y == 0 || p.Y == h-1
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Direction is a movement heading. The numeric values are part of the wire
// protocol: 0=Up, 1=Right, 2=Down, 3=Left.
type Direction int

const (
	DirUp Direction = iota
	DirRight
	DirDown
	DirLeft
)

// Valid reports whether d is one of the four headings.
func (d Direction) Valid() bool {
	return d >= DirUp && d <= DirLeft
}

// Opposite returns the 180° reversal of d.
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// Delta returns the unit step for d. Y grows downwards.
func (d Direction) Delta() Point {
	switch d {
	case DirUp:
		return Point{X: 0, Y: -1}
	case DirRight:
		return Point{X: 1, Y: 0}
	case DirDown:
		return Point{X: 0, Y: 1}
	case DirLeft:
		return Point{X: -1, Y: 0}
	default:
		return Point{}
	}
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirRight:
		return "right"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Mod is the non-negative remainder of a/n.
func Mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// Clamp restricts a value to be within [min, max].
func Clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
