package core

// Color represents a foreground color for a screen cell.
// Uses ANSI 256-color codes for terminal compatibility.
type Color uint8

// Predefined colors for game elements.
const (
	ColorDefault Color = iota
	ColorRed
	ColorBrightGreen
	ColorGray
)

// Grid glyphs shared by the renderer and the client.
const (
	GlyphWall  = '#'
	GlyphFruit = 'F'
	GlyphSnake = 'O'
	GlyphEmpty = '.'
)

// GlyphColor returns the display color for a grid glyph.
func GlyphColor(r rune) Color {
	switch r {
	case GlyphWall:
		return ColorGray
	case GlyphFruit:
		return ColorRed
	case GlyphSnake:
		return ColorBrightGreen
	default:
		return ColorDefault
	}
}
