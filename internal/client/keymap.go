package client

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/netsnake/internal/core"
	"github.com/vovakirdan/netsnake/internal/protocol"
)

// KeyMap defines the key bindings for a game session.
type KeyMap struct {
	Up     key.Binding
	Right  key.Binding
	Down   key.Binding
	Left   key.Binding
	Pause  key.Binding
	Resume key.Binding
	Quit   key.Binding
	Abort  key.Binding // leave without waiting for the summary
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Left, k.Down, k.Right, k.Pause, k.Resume, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Left, k.Down, k.Right},
		{k.Pause, k.Resume, k.Quit, k.Abort},
	}
}

// DefaultKeyMap returns default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("w", "up"),
			key.WithHelp("w/↑", "up"),
		),
		Right: key.NewBinding(
			key.WithKeys("d", "right"),
			key.WithHelp("d/→", "right"),
		),
		Down: key.NewBinding(
			key.WithKeys("s", "down"),
			key.WithHelp("s/↓", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("a", "left"),
			key.WithHelp("a/←", "left"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause"),
		),
		Resume: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "resume"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Abort: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "abort"),
		),
	}
}

// Command maps a key press to the command it sends, if any.
func (k KeyMap) Command(msg tea.KeyMsg) (protocol.Command, bool) {
	switch {
	case key.Matches(msg, k.Up):
		return protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirUp}, true
	case key.Matches(msg, k.Right):
		return protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirRight}, true
	case key.Matches(msg, k.Down):
		return protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirDown}, true
	case key.Matches(msg, k.Left):
		return protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirLeft}, true
	case key.Matches(msg, k.Pause):
		return protocol.Command{Kind: protocol.CmdPause}, true
	case key.Matches(msg, k.Resume):
		return protocol.Command{Kind: protocol.CmdResume}, true
	case key.Matches(msg, k.Quit):
		return protocol.Command{Kind: protocol.CmdQuit}, true
	}
	return protocol.Command{}, false
}
