package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vovakirdan/netsnake/internal/core"
)

// ErrUnknownCommand is returned for command lines outside the grammar.
var ErrUnknownCommand = errors.New("protocol: unknown command")

// CommandKind identifies a client command.
type CommandKind int

const (
	CmdDirection CommandKind = iota
	CmdPause
	CmdResume
	CmdQuit
)

// Command is one parsed command line.
type Command struct {
	Kind      CommandKind
	Direction core.Direction // valid when Kind is CmdDirection
}

// ParseCommand parses "quit", "pause", "resume" or a direction code 0-3.
func ParseCommand(line string) (Command, error) {
	tok := strings.TrimSpace(line)
	switch tok {
	case "quit":
		return Command{Kind: CmdQuit}, nil
	case "pause":
		return Command{Kind: CmdPause}, nil
	case "resume":
		return Command{Kind: CmdResume}, nil
	}

	n, err := strconv.Atoi(tok)
	if err != nil || !core.Direction(n).Valid() {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, tok)
	}
	return Command{Kind: CmdDirection, Direction: core.Direction(n)}, nil
}

// String encodes the command line without a trailing newline.
func (c Command) String() string {
	switch c.Kind {
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdQuit:
		return "quit"
	default:
		return strconv.Itoa(int(c.Direction))
	}
}
