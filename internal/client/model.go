package client

import (
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/netsnake/internal/protocol"
)

// frameMsg carries a frame read from the server.
type frameMsg protocol.Frame

// closedMsg reports that the connection ended.
type closedMsg struct{ err error }

// waitForFrame reads the next frame in the background.
func waitForFrame(c *Conn) tea.Cmd {
	return func() tea.Msg {
		f, err := c.ReadFrame()
		if err != nil {
			return closedMsg{err: err}
		}
		return frameMsg(f)
	}
}

// sendCmd writes a command line in the background.
func sendCmd(c *Conn, cmd protocol.Command) tea.Cmd {
	return func() tea.Msg {
		if err := c.Send(cmd); err != nil {
			return closedMsg{err: err}
		}
		return nil
	}
}

// Model is the Bubble Tea model for one game session. The setup line must
// already have been sent on conn.
type Model struct {
	conn *Conn
	keys KeyMap
	help help.Model

	frame   string // last grid payload
	notice  string
	summary string // final summary from the server
	errText string

	quitSent bool
	closed   bool
	width    int
	height   int
}

// NewModel creates a session model reading from conn.
func NewModel(conn *Conn) Model {
	h := help.New()
	h.ShowAll = false
	return Model{
		conn: conn,
		keys: DefaultKeyMap(),
		help: h,
	}
}

// Init starts reading frames.
func (m Model) Init() tea.Cmd {
	return waitForFrame(m.conn)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case frameMsg:
		return m.handleFrame(protocol.Frame(msg))

	case closedMsg:
		m.closed = true
		if msg.err != nil && !errors.Is(msg.err, io.EOF) && m.summary == "" && m.errText == "" {
			m.errText = msg.err.Error()
		}
		// Keep the summary or error on screen until a key is pressed
		if m.summary == "" && m.errText == "" {
			return m, tea.Quit
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Abort) || m.closed {
		return m, tea.Quit
	}

	cmd, ok := m.keys.Command(msg)
	if !ok || m.quitSent {
		return m, nil
	}
	if cmd.Kind == protocol.CmdQuit {
		m.quitSent = true
	}
	return m, sendCmd(m.conn, cmd)
}

func (m Model) handleFrame(f protocol.Frame) (tea.Model, tea.Cmd) {
	switch f.Kind {
	case protocol.KindFrame:
		m.frame = f.Payload
		m.notice = ""
	case protocol.KindNotice:
		m.notice = strings.TrimSuffix(f.Payload, "\n")
	case protocol.KindOver:
		m.summary = strings.TrimSuffix(f.Payload, "\n")
	case protocol.KindError:
		m.errText = strings.TrimSuffix(f.Payload, "\n")
	}
	return m, waitForFrame(m.conn)
}

// Summary returns the final summary, empty until the game is over.
func (m Model) Summary() string {
	return m.summary
}

// Err returns the server's setup rejection or a connection error.
func (m Model) Err() string {
	return m.errText
}

// View renders the current frame.
func (m Model) View() string {
	var b strings.Builder

	if m.frame != "" {
		b.WriteString(RenderFrame(m.frame))
		b.WriteString("\n")
	} else if m.errText == "" {
		b.WriteString("Waiting for the server...\n")
	}

	if m.notice != "" {
		b.WriteString(noticeStyle.Render(m.notice))
		b.WriteString("\n")
	}

	switch {
	case m.summary != "":
		b.WriteString(overStyle.Render(m.summary))
		b.WriteString("\n")
	case m.errText != "":
		b.WriteString(errorStyle.Render(m.errText))
		b.WriteString("\n")
	}

	if m.closed {
		b.WriteString(helpStyle.Render("press any key to exit"))
	} else {
		b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	}
	return b.String()
}
