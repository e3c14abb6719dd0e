// Package protocol defines the text grammar spoken between the snake client
// and server: a one-time setup line, per-keystroke command lines, and the
// length-prefixed frames the server sends back.
package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/netsnake/internal/core"
	"github.com/vovakirdan/netsnake/internal/snake"
)

// Setup holds the parameters a client chooses when it connects.
type Setup struct {
	Width     int
	Height    int
	Mode      snake.Mode
	TimeLimit time.Duration // whole seconds on the wire
	World     snake.WorldType
}

// ParseSetup parses "width height mode timeLimit worldType" where mode is
// 0 (standard) or 1 (timed) and worldType is 0 (open) or 1 (obstacles).
// The time limit is ignored in standard mode.
func ParseSetup(line string) (Setup, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Setup{}, setupErr("setup", "want 5 fields \"width height mode timeLimit worldType\", got %d", len(fields))
	}

	names := [5]string{"width", "height", "mode", "time limit", "world"}
	var vals [5]int
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Setup{}, setupErr(names[i], "%q is not an integer", f)
		}
		vals[i] = n
	}

	s := Setup{
		Width:     vals[0],
		Height:    vals[1],
		Mode:      snake.Mode(vals[2]),
		TimeLimit: time.Duration(vals[3]) * time.Second,
		World:     snake.WorldType(vals[4]),
	}
	if s.Width <= 0 || s.Height <= 0 {
		return Setup{}, setupErr("size", "dimensions must be positive, got %dx%d", s.Width, s.Height)
	}
	if vals[3] < 0 {
		return Setup{}, setupErr("time limit", "negative limit %d", vals[3])
	}
	if s.Mode == snake.ModeStandard {
		s.TimeLimit = 0
	}
	if err := s.Params().Validate(); err != nil {
		return Setup{}, err
	}
	return s, nil
}

// String encodes the setup line without a trailing newline.
func (s Setup) String() string {
	return fmt.Sprintf("%d %d %d %d %d", s.Width, s.Height, int(s.Mode), int(s.TimeLimit/time.Second), int(s.World))
}

// Params converts the setup into engine parameters. Server-side options such
// as the body bound are left at their zero values for the caller to fill in.
func (s Setup) Params() snake.Params {
	return snake.Params{
		Width:     s.Width,
		Height:    s.Height,
		Mode:      s.Mode,
		TimeLimit: s.TimeLimit,
		World:     s.World,
	}
}

// CheckBounds rejects setups larger than the server allows. Zero bounds are
// unlimited.
func (s Setup) CheckBounds(maxWidth, maxHeight int, maxTimeLimit time.Duration) error {
	if maxWidth > 0 && s.Width > maxWidth {
		return setupErr("size", "width %d exceeds server maximum %d", s.Width, maxWidth)
	}
	if maxHeight > 0 && s.Height > maxHeight {
		return setupErr("size", "height %d exceeds server maximum %d", s.Height, maxHeight)
	}
	if maxTimeLimit > 0 && s.TimeLimit > maxTimeLimit {
		return setupErr("time limit", "%s exceeds server maximum %s", s.TimeLimit, maxTimeLimit)
	}
	return nil
}

// TerminalSetup sizes a standard open game to fit a terminal, leaving room
// for the border, status and help lines. The board stays within 10x10 to 60x30.
func TerminalSetup(termWidth, termHeight int) Setup {
	return Setup{
		Width:  core.Clamp(termWidth-2, 10, 60),
		Height: core.Clamp(termHeight-6, 10, 30),
		Mode:   snake.ModeStandard,
		World:  snake.WorldOpen,
	}
}

func setupErr(field, format string, args ...any) error {
	return &snake.ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
