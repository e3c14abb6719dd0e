package core

import "strings"

// Screen is a fixed-size glyph grid stored row-major. Frames are drawn into
// it cell by cell and serialized with String.
type Screen struct {
	width  int
	height int
	cells  []rune
}

// NewScreen returns a width×height screen with every cell set to bg.
func NewScreen(width, height int, bg rune) *Screen {
	s := &Screen{
		width:  width,
		height: height,
		cells:  make([]rune, width*height),
	}
	for i := range s.cells {
		s.cells[i] = bg
	}
	return s
}

func (s *Screen) Width() int  { return s.width }
func (s *Screen) Height() int { return s.height }

func (s *Screen) index(p Point) (int, bool) {
	if !p.In(s.width, s.height) {
		return 0, false
	}
	return p.Y*s.width + p.X, true
}

// Set writes r at p. Points off the screen are ignored.
func (s *Screen) Set(p Point, r rune) {
	if i, ok := s.index(p); ok {
		s.cells[i] = r
	}
}

// Get returns the glyph at p, or 0 off the screen.
func (s *Screen) Get(p Point) rune {
	if i, ok := s.index(p); ok {
		return s.cells[i]
	}
	return 0
}

// Row returns row y without its newline, or "" off the screen.
func (s *Screen) Row(y int) string {
	if y < 0 || y >= s.height {
		return ""
	}
	return string(s.cells[y*s.width : (y+1)*s.width])
}

// String joins all rows, each terminated by a newline.
func (s *Screen) String() string {
	var b strings.Builder
	b.Grow((s.width + 1) * s.height)
	for y := 0; y < s.height; y++ {
		b.WriteString(s.Row(y))
		b.WriteByte('\n')
	}
	return b.String()
}
