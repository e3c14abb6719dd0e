package client

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/netsnake/internal/core"
	"github.com/vovakirdan/netsnake/internal/protocol"
	"github.com/vovakirdan/netsnake/internal/snake"
	"github.com/vovakirdan/netsnake/internal/storage"
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestKeyMapCommands(t *testing.T) {
	keys := DefaultKeyMap()

	tests := []struct {
		msg  tea.KeyMsg
		want protocol.Command
	}{
		{runeKey('w'), protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirUp}},
		{runeKey('d'), protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirRight}},
		{runeKey('s'), protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirDown}},
		{runeKey('a'), protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirLeft}},
		{tea.KeyMsg{Type: tea.KeyUp}, protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirUp}},
		{tea.KeyMsg{Type: tea.KeyLeft}, protocol.Command{Kind: protocol.CmdDirection, Direction: core.DirLeft}},
		{runeKey('p'), protocol.Command{Kind: protocol.CmdPause}},
		{runeKey('r'), protocol.Command{Kind: protocol.CmdResume}},
		{runeKey('q'), protocol.Command{Kind: protocol.CmdQuit}},
	}
	for _, tt := range tests {
		got, ok := keys.Command(tt.msg)
		if !ok {
			t.Errorf("Command(%s) not mapped", tt.msg)
			continue
		}
		if got != tt.want {
			t.Errorf("Command(%s) = %+v, want %+v", tt.msg, got, tt.want)
		}
	}

	if _, ok := keys.Command(runeKey('x')); ok {
		t.Error("unbound key produced a command")
	}
}

func TestConnSendAndRead(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()
	conn := NewConn(clientSide)
	defer conn.Close()

	setup := protocol.Setup{Width: 10, Height: 8, Mode: snake.ModeStandard, World: snake.WorldOpen}
	go func() {
		conn.SendSetup(setup)
		conn.Send(protocol.Command{Kind: protocol.CmdPause})
	}()

	r := bufio.NewReader(serverSide)
	for _, want := range []string{"10 8 0 0 0\n", "pause\n"} {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("ReadString() failed: %v", err)
		}
		if line != want {
			t.Errorf("line = %q, want %q", line, want)
		}
	}

	go protocol.WriteFrame(serverSide, protocol.Frame{Kind: protocol.KindNotice, Payload: "Game paused\n"})
	f, err := conn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	if f.Kind != protocol.KindNotice || f.Payload != "Game paused\n" {
		t.Errorf("frame = %+v", f)
	}
}

func newPipeModel(t *testing.T) (Model, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	t.Cleanup(func() {
		clientSide.Close()
		serverSide.Close()
	})
	return NewModel(NewConn(clientSide)), serverSide
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModelFrames(t *testing.T) {
	m, _ := newPipeModel(t)

	if !strings.Contains(m.View(), "Waiting for the server") {
		t.Errorf("initial view = %q", m.View())
	}

	m, cmd := update(m, frameMsg{Kind: protocol.KindNotice, Payload: "Game paused\n"})
	if cmd == nil {
		t.Error("expected a follow-up read after a frame")
	}
	if !strings.Contains(m.View(), "Game paused") {
		t.Errorf("notice not shown: %q", m.View())
	}

	m, _ = update(m, frameMsg{Kind: protocol.KindFrame, Payload: "#####\n#OF.#\n#####\nFruits: 0  Time: 2s\n"})
	view := m.View()
	if strings.Contains(view, "Game paused") {
		t.Error("notice still shown after a new frame")
	}
	if !strings.Contains(view, "Fruits: 0  Time: 2s") {
		t.Errorf("status line missing from view: %q", view)
	}

	m, _ = update(m, frameMsg{Kind: protocol.KindOver, Payload: "Game over! Fruits eaten: 0. Time: 2s. (quit)\n"})
	if m.Summary() != "Game over! Fruits eaten: 0. Time: 2s. (quit)" {
		t.Errorf("Summary() = %q", m.Summary())
	}

	m, cmd = update(m, closedMsg{err: io.EOF})
	if isQuit(cmd) {
		t.Error("model quit before the summary was acknowledged")
	}
	if !strings.Contains(m.View(), "press any key") {
		t.Errorf("closed view = %q", m.View())
	}

	_, cmd = update(m, runeKey('x'))
	if !isQuit(cmd) {
		t.Error("key press after close did not quit")
	}
}

func TestModelClosedWithoutSummaryQuits(t *testing.T) {
	m, _ := newPipeModel(t)
	_, cmd := update(m, closedMsg{err: io.EOF})
	if !isQuit(cmd) {
		t.Error("expected quit on bare EOF")
	}
}

func TestModelSetupError(t *testing.T) {
	m, _ := newPipeModel(t)
	m, _ = update(m, frameMsg{Kind: protocol.KindError, Payload: "snake: invalid size: 0x0\n"})
	m, cmd := update(m, closedMsg{err: io.EOF})
	if isQuit(cmd) {
		t.Error("model quit before showing the error")
	}
	if m.Err() != "snake: invalid size: 0x0" {
		t.Errorf("Err() = %q", m.Err())
	}
}

func TestModelSendsCommands(t *testing.T) {
	m, server := newPipeModel(t)
	r := bufio.NewReader(server)

	m, cmd := update(m, runeKey('d'))
	if cmd == nil {
		t.Fatal("direction key produced no command")
	}
	go cmd()
	line, err := r.ReadString('\n')
	if err != nil || line != "1\n" {
		t.Fatalf("sent %q (%v), want \"1\\n\"", line, err)
	}

	m, cmd = update(m, runeKey('q'))
	if cmd == nil {
		t.Fatal("quit key produced no command")
	}
	go cmd()
	line, err = r.ReadString('\n')
	if err != nil || line != "quit\n" {
		t.Fatalf("sent %q (%v), want \"quit\\n\"", line, err)
	}

	if _, cmd = update(m, runeKey('w')); cmd != nil {
		t.Error("commands still sent after quit")
	}

	if _, cmd = update(m, tea.KeyMsg{Type: tea.KeyCtrlC}); !isQuit(cmd) {
		t.Error("ctrl+c did not quit")
	}
}

func TestRenderFrameKeepsText(t *testing.T) {
	out := RenderFrame("###\n#O#\n###\nFruits: 3  Time: 12s\n")
	if !strings.Contains(out, "Fruits: 3  Time: 12s") {
		t.Errorf("status line lost: %q", out)
	}
	if strings.Count(out, "\n") != 3 {
		t.Errorf("expected 4 lines, got %q", out)
	}

	if !isGridRow("#.FO#") {
		t.Error("grid row not recognised")
	}
	if isGridRow("Fruits: 1") || isGridRow("") {
		t.Error("status line treated as grid row")
	}
}

type fakeSource struct {
	modes   []string
	results []storage.SessionResult
}

func (f *fakeSource) TopResults(mode string, limit int) ([]storage.SessionResult, error) {
	f.modes = append(f.modes, mode)
	return f.results, nil
}

func TestScoreboardTabs(t *testing.T) {
	src := &fakeSource{results: []storage.SessionResult{
		{Fruits: 9, ElapsedSecs: 40, Mode: "timed", World: "open", EndReason: "time up", CreatedAt: time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)},
	}}
	m := NewScoreboardModel(src, 100, 30)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(ScoreboardModel)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(ScoreboardModel)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(ScoreboardModel)

	want := []string{"", "standard", "", "timed"}
	if strings.Join(src.modes, ",") != strings.Join(want, ",") {
		t.Errorf("queried modes %q, want %q", src.modes, want)
	}

	next, cmd := m.Update(runeKey('q'))
	if !isQuit(cmd) {
		t.Error("q did not quit the scoreboard")
	}
	if next.(ScoreboardModel).View() != "" {
		t.Error("view not cleared after quit")
	}
}

func TestResultRows(t *testing.T) {
	rows := ResultRows([]storage.SessionResult{
		{Fruits: 9, ElapsedSecs: 40, Mode: "timed", World: "open", EndReason: "time up", CreatedAt: time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)},
		{Fruits: 2, ElapsedSecs: 8, Mode: "standard", World: "obstacles", EndReason: "wall"},
	})
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	want := []string{"#1", "9", "40s", "timed", "open", "time up", "Mar 05 14:07"}
	if strings.Join(rows[0], "|") != strings.Join(want, "|") {
		t.Errorf("row = %q, want %q", rows[0], want)
	}
	if rows[1][0] != "#2" {
		t.Errorf("second rank = %q", rows[1][0])
	}
}
