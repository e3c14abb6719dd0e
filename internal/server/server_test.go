package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vovakirdan/netsnake/internal/client"
	"github.com/vovakirdan/netsnake/internal/protocol"
	"github.com/vovakirdan/netsnake/internal/session"
	"github.com/vovakirdan/netsnake/internal/snake"
)

type recordingSaver struct {
	mu      sync.Mutex
	results []session.Result
}

func (r *recordingSaver) SaveResult(res session.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func (r *recordingSaver) all() []session.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Result(nil), r.results...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.SetupTimeout = 2 * time.Second
	cfg.Runtime = session.Config{
		TickInterval: 20 * time.Millisecond,
		PausePoll:    10 * time.Millisecond,
		ResumeGrace:  0,
	}
	return cfg
}

func startServer(t *testing.T, cfg Config) (*Server, *recordingSaver, string) {
	t.Helper()
	srv := New(cfg, nil)
	saver := &recordingSaver{}
	srv.SetResultSaver(saver)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	go srv.Serve(ln)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() failed: %v", err)
		}
	})
	return srv, saver, ln.Addr().String()
}

func dial(t *testing.T, addr string) *client.Conn {
	t.Helper()
	_, conn := dialRaw(t, addr)
	return conn
}

// dialRaw also returns the socket so tests can move its deadlines.
func dialRaw(t *testing.T, addr string) (net.Conn, *client.Conn) {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	c.SetDeadline(time.Now().Add(5 * time.Second))
	conn := client.NewConn(c)
	t.Cleanup(func() { conn.Close() })
	return c, conn
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// readUntil reads frames until one of the given kind arrives.
func readUntil(t *testing.T, conn *client.Conn, kind protocol.Kind) protocol.Frame {
	t.Helper()
	for {
		f, err := conn.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() waiting for %s failed: %v", kind, err)
		}
		if f.Kind == kind {
			return f
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func standardSetup(w, h int) protocol.Setup {
	return protocol.Setup{Width: w, Height: h, Mode: snake.ModeStandard, World: snake.WorldOpen}
}

func TestTCPSessionPlayAndQuit(t *testing.T) {
	_, saver, addr := startServer(t, testConfig())
	conn := dial(t, addr)

	if err := conn.SendSetup(standardSetup(20, 12)); err != nil {
		t.Fatalf("SendSetup() failed: %v", err)
	}

	first := readUntil(t, conn, protocol.KindFrame)
	lines := strings.Split(strings.TrimSuffix(first.Payload, "\n"), "\n")
	if len(lines) != 13 {
		t.Fatalf("frame has %d lines, want 12 rows plus status", len(lines))
	}
	if len(lines[0]) != 20 || !strings.HasPrefix(lines[12], "Fruits: ") {
		t.Errorf("unexpected frame layout:\n%s", first.Payload)
	}

	readUntil(t, conn, protocol.KindFrame)
	if err := conn.Send(protocol.Command{Kind: protocol.CmdQuit}); err != nil {
		t.Fatalf("Send(quit) failed: %v", err)
	}

	over := readUntil(t, conn, protocol.KindOver)
	if !strings.HasPrefix(over.Payload, "Game over! Fruits eaten: ") || !strings.Contains(over.Payload, "(quit)") {
		t.Errorf("summary = %q", over.Payload)
	}
	if _, err := conn.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF after summary, got %v", err)
	}

	results := saver.all()
	if len(results) != 1 {
		t.Fatalf("saved %d results, want 1", len(results))
	}
	if results[0].Reason != session.EndQuit || results[0].Width != 20 || results[0].Height != 12 {
		t.Errorf("saved result = %+v", results[0])
	}
}

func TestTCPSetupRejected(t *testing.T) {
	_, saver, addr := startServer(t, testConfig())
	conn := dial(t, addr)

	if err := conn.Send(protocol.Command{Kind: protocol.CmdPause}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	f, err := conn.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	if f.Kind != protocol.KindError || !strings.Contains(f.Payload, "invalid setup") {
		t.Errorf("frame = %+v, want setup error", f)
	}
	if _, err := conn.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF after error, got %v", err)
	}
	if len(saver.all()) != 0 {
		t.Error("rejected setup produced a result")
	}
}

func TestTCPSetupOverBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWidth = 30
	_, _, addr := startServer(t, cfg)
	conn := dial(t, addr)

	conn.SendSetup(standardSetup(31, 10))
	f := readUntil(t, conn, protocol.KindError)
	if !strings.Contains(f.Payload, "exceeds server maximum") {
		t.Errorf("payload = %q", f.Payload)
	}
}

func TestTCPPauseResume(t *testing.T) {
	_, _, addr := startServer(t, testConfig())
	conn := dial(t, addr)

	conn.SendSetup(standardSetup(20, 10))
	readUntil(t, conn, protocol.KindFrame)

	conn.Send(protocol.Command{Kind: protocol.CmdPause})
	paused := readUntil(t, conn, protocol.KindNotice)
	if paused.Payload != "Game paused\n" {
		t.Errorf("pause notice = %q", paused.Payload)
	}

	conn.Send(protocol.Command{Kind: protocol.CmdResume})
	resumed := readUntil(t, conn, protocol.KindNotice)
	if !strings.HasPrefix(resumed.Payload, "Resuming in") {
		t.Errorf("resume notice = %q", resumed.Payload)
	}

	readUntil(t, conn, protocol.KindFrame)
	conn.Send(protocol.Command{Kind: protocol.CmdQuit})
	readUntil(t, conn, protocol.KindOver)
}

func TestTCPClientDisconnect(t *testing.T) {
	srv, saver, addr := startServer(t, testConfig())
	conn := dial(t, addr)

	conn.SendSetup(standardSetup(15, 15))
	readUntil(t, conn, protocol.KindFrame)
	if srv.Sessions() != 1 {
		t.Errorf("Sessions() = %d, want 1", srv.Sessions())
	}

	conn.Close()
	waitFor(t, "session cleanup", func() bool { return len(saver.all()) == 1 })

	if got := saver.all()[0].Reason; got != session.EndDisconnect {
		t.Errorf("Reason = %v, want disconnect", got)
	}
	waitFor(t, "registry cleanup", func() bool { return srv.Sessions() == 0 })
}

func TestTCPSetupTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.SetupTimeout = 50 * time.Millisecond
	_, _, addr := startServer(t, cfg)
	conn := dial(t, addr)

	if _, err := conn.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF after setup timeout, got %v", err)
	}
}

func TestServerFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSessions = 1
	_, _, addr := startServer(t, cfg)

	first := dial(t, addr)
	first.SendSetup(standardSetup(10, 10))
	readUntil(t, first, protocol.KindFrame)

	second := dial(t, addr)
	f := readUntil(t, second, protocol.KindError)
	if !strings.Contains(f.Payload, "server full") {
		t.Errorf("payload = %q", f.Payload)
	}

	// The first session is unaffected
	readUntil(t, first, protocol.KindFrame)
}

func TestServerFullCountsPendingSetups(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSessions = 1
	srv, _, addr := startServer(t, cfg)

	raws := make([]net.Conn, 3)
	conns := make([]*client.Conn, 3)
	for i := range raws {
		raws[i], conns[i] = dialRaw(t, addr)
	}

	// No client has sent a setup yet; only one of them may hold the slot
	accepted := -1
	for i := range conns {
		raws[i].SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		f, err := conns[i].ReadFrame()
		switch {
		case err == nil && f.Kind == protocol.KindError && strings.Contains(f.Payload, "server full"):
		case isTimeout(err):
			if accepted >= 0 {
				t.Fatalf("connections %d and %d both hold a session slot", accepted, i)
			}
			accepted = i
		default:
			t.Fatalf("connection %d: frame %+v, err %v", i, f, err)
		}
	}
	if accepted < 0 {
		t.Fatal("every connection was rejected")
	}

	raws[accepted].SetDeadline(time.Now().Add(5 * time.Second))
	if err := conns[accepted].SendSetup(standardSetup(10, 10)); err != nil {
		t.Fatalf("SendSetup() failed: %v", err)
	}
	readUntil(t, conns[accepted], protocol.KindFrame)
	if srv.Sessions() != 1 {
		t.Errorf("Sessions() = %d, want 1", srv.Sessions())
	}
}

func TestStalledClientIsDisconnected(t *testing.T) {
	cfg := testConfig()
	cfg.WriteTimeout = 50 * time.Millisecond
	srv := New(cfg, nil)
	saver := &recordingSaver{}
	srv.SetResultSaver(saver)

	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	served := make(chan struct{})
	go func() {
		defer close(served)
		srv.ServeConn(NewStreamConn(serverSide, cfg.WriteTimeout))
	}()

	// The client sends its lines and never reads a frame
	go clientSide.Write([]byte("10 10 0 0 0\nquit\n"))

	select {
	case <-served:
	case <-time.After(3 * time.Second):
		t.Fatal("session still running against a client that never reads")
	}

	if got := len(saver.all()); got != 1 {
		t.Errorf("saved %d results, want 1", got)
	}
	if srv.Sessions() != 0 {
		t.Errorf("Sessions() = %d, want 0", srv.Sessions())
	}
}

func TestShutdownWaitsForDirectSessions(t *testing.T) {
	srv := New(testConfig(), nil)
	saver := &recordingSaver{}
	srv.SetResultSaver(saver)

	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	clientSide.SetDeadline(time.Now().Add(5 * time.Second))

	// Started the way the SSH frontend starts sessions, outside Serve
	go srv.ServeConn(NewStreamConn(serverSide, time.Second))

	conn := client.NewConn(clientSide)
	if err := conn.SendSetup(standardSetup(10, 10)); err != nil {
		t.Fatalf("SendSetup() failed: %v", err)
	}
	readUntil(t, conn, protocol.KindFrame)
	go io.Copy(io.Discard, clientSide)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	results := saver.all()
	if len(results) != 1 || results[0].Reason != session.EndDisconnect {
		t.Errorf("results when Shutdown returned = %+v", results)
	}
	if srv.Sessions() != 0 {
		t.Errorf("Sessions() = %d after Shutdown, want 0", srv.Sessions())
	}

	// Sessions arriving after shutdown are refused
	late, lateServer := net.Pipe()
	defer late.Close()
	late.SetDeadline(time.Now().Add(5 * time.Second))
	go srv.ServeConn(NewStreamConn(lateServer, time.Second))

	f, err := client.NewConn(late).ReadFrame()
	if err != nil || f.Kind != protocol.KindError || !strings.Contains(f.Payload, "shutting down") {
		t.Errorf("late session got frame %+v, err %v", f, err)
	}
}

func TestShutdownInterruptsSetup(t *testing.T) {
	cfg := testConfig()
	cfg.SetupTimeout = time.Minute
	srv := New(cfg, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	go srv.Serve(ln)

	conn := dial(t, ln.Addr().String())
	waitFor(t, "slot reserved", func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.active == 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() waited for the setup line: %v", err)
	}
	if _, err := conn.ReadFrame(); !errors.Is(err, io.EOF) {
		t.Errorf("expected EOF after shutdown, got %v", err)
	}
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	srv, _, addr := startServer(t, testConfig())

	a := dial(t, addr)
	b := dial(t, addr)
	a.SendSetup(standardSetup(12, 12))
	b.SendSetup(standardSetup(25, 8))

	fa := readUntil(t, a, protocol.KindFrame)
	fb := readUntil(t, b, protocol.KindFrame)
	if strings.Count(fa.Payload, "\n") != 13 || strings.Count(fb.Payload, "\n") != 9 {
		t.Errorf("sessions share state: %q / %q", fa.Payload, fb.Payload)
	}

	a.Send(protocol.Command{Kind: protocol.CmdQuit})
	readUntil(t, a, protocol.KindOver)

	// b keeps running after a has gone
	readUntil(t, b, protocol.KindFrame)
	waitFor(t, "one session left", func() bool { return srv.Sessions() == 1 })
}

func TestShutdownDisconnectsSessions(t *testing.T) {
	srv := New(testConfig(), nil)
	saver := &recordingSaver{}
	srv.SetResultSaver(saver)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	conn := dial(t, ln.Addr().String())
	conn.SendSetup(standardSetup(10, 10))
	readUntil(t, conn, protocol.KindFrame)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	if err := <-served; !errors.Is(err, ErrServerClosed) {
		t.Errorf("Serve() = %v, want ErrServerClosed", err)
	}
	results := saver.all()
	if len(results) != 1 || results[0].Reason != session.EndDisconnect {
		t.Errorf("results after shutdown = %+v", results)
	}
}

func TestWebSocketSession(t *testing.T) {
	srv := New(testConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketPath
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := ws.WriteMessage(websocket.TextMessage, []byte("16 9 1 30 0")); err != nil {
		t.Fatalf("WriteMessage() failed: %v", err)
	}

	readWS := func(kind protocol.Kind) protocol.Frame {
		t.Helper()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				t.Fatalf("ReadMessage() waiting for %s failed: %v", kind, err)
			}
			f, err := protocol.DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame() failed: %v", err)
			}
			if f.Kind == kind {
				return f
			}
		}
	}

	frame := readWS(protocol.KindFrame)
	if strings.Count(frame.Payload, "\n") != 10 {
		t.Errorf("frame = %q, want 9 rows plus status", frame.Payload)
	}

	ws.WriteMessage(websocket.TextMessage, []byte("2"))
	ws.WriteMessage(websocket.TextMessage, []byte("quit"))
	over := readWS(protocol.KindOver)
	if !strings.Contains(over.Payload, "(quit)") {
		t.Errorf("summary = %q", over.Payload)
	}

	if _, _, err := ws.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close, got %v", err)
	}
}

func TestEventFrame(t *testing.T) {
	tests := []struct {
		evt  session.Event
		want protocol.Frame
	}{
		{session.SnapshotEvent{Frame: "#\n"}, protocol.Frame{Kind: protocol.KindFrame, Payload: "#\n"}},
		{session.NoticeEvent{Kind: session.NoticePaused, Text: "Game paused\n"}, protocol.Frame{Kind: protocol.KindNotice, Payload: "Game paused\n"}},
		{session.GameOverEvent{Summary: "done\n"}, protocol.Frame{Kind: protocol.KindOver, Payload: "done\n"}},
	}
	for _, tt := range tests {
		got, ok := EventFrame(tt.evt)
		if !ok || got != tt.want {
			t.Errorf("EventFrame(%T) = %+v, %v", tt.evt, got, ok)
		}
	}
}

func TestSetupForSSH(t *testing.T) {
	s, err := SetupForSSH([]string{"30", "15", "1", "60", "1"}, 80, 24)
	if err != nil {
		t.Fatalf("SetupForSSH() failed: %v", err)
	}
	if s.Width != 30 || s.Mode != snake.ModeTimed || s.TimeLimit != time.Minute || s.World != snake.WorldObstacles {
		t.Errorf("setup from args = %+v", s)
	}

	s, err = SetupForSSH(nil, 80, 24)
	if err != nil {
		t.Fatalf("SetupForSSH() failed: %v", err)
	}
	if s.Width != 60 || s.Height != 18 || s.Mode != snake.ModeStandard {
		t.Errorf("setup from terminal = %+v", s)
	}

	s, _ = SetupForSSH(nil, 8, 8)
	if s.Width != 10 || s.Height != 10 {
		t.Errorf("small terminal setup = %+v", s)
	}

	_, err = SetupForSSH([]string{"bogus"}, 80, 24)
	var cfgErr *snake.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("bad args err = %v, want ConfigurationError", err)
	}
}
