// Package server hosts snake sessions. Every accepted connection, whether it
// arrives over TCP, WebSocket or SSH, gets its own GameRuntime plus a reader
// and a writer goroutine.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/vovakirdan/netsnake/internal/config"
	"github.com/vovakirdan/netsnake/internal/protocol"
	"github.com/vovakirdan/netsnake/internal/session"
	"github.com/vovakirdan/netsnake/internal/snake"
)

// WebSocketPath is where the WebSocket listener accepts sessions.
const WebSocketPath = "/ws"

var (
	// ErrServerClosed is returned by the serve methods after Shutdown.
	ErrServerClosed = errors.New("server: closed")

	// ErrServerFull is returned when every session slot is taken.
	ErrServerFull = errors.New("server: full")
)

// Config holds the session server settings.
type Config struct {
	// Address is the TCP host:port to listen on (e.g., ":45544").
	Address string

	// WebSocketAddress enables the WebSocket listener when non-empty.
	WebSocketAddress string

	// SetupTimeout is how long a client may take to send its setup line.
	SetupTimeout time.Duration

	// WriteTimeout bounds each frame write. A client that stops reading
	// is disconnected once it passes. Zero disables it.
	WriteTimeout time.Duration

	// EventBuffer is the per-session event queue length.
	EventBuffer int

	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int

	Runtime session.Config

	MaxWidth             int
	MaxHeight            int
	MaxTimeLimit         time.Duration
	MaxSnakeLength       int
	ObstacleDivisor      int
	FruitAvoidsObstacles bool
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return ConfigFrom(config.Default())
}

// ConfigFrom extracts the server settings from a loaded configuration.
func ConfigFrom(c config.Config) Config {
	return Config{
		Address:          c.Server.Address,
		WebSocketAddress: c.Server.WebSocketAddress,
		SetupTimeout:     c.Server.SetupTimeout,
		WriteTimeout:     c.Server.WriteTimeout,
		EventBuffer:      c.Server.EventBuffer,
		MaxSessions:      c.Server.MaxSessions,
		Runtime: session.Config{
			TickInterval: c.Game.TickInterval,
			PausePoll:    c.Game.PausePoll,
			ResumeGrace:  c.Game.ResumeGrace,
		},
		MaxWidth:             c.Game.MaxWidth,
		MaxHeight:            c.Game.MaxHeight,
		MaxTimeLimit:         c.Game.MaxTimeLimit,
		MaxSnakeLength:       c.Game.MaxSnakeLength,
		ObstacleDivisor:      c.Game.ObstacleDivisor,
		FruitAvoidsObstacles: c.Game.FruitAvoidsObstacles,
	}
}

// Server accepts client connections and runs one game per connection.
type Server struct {
	config   Config
	logger   *log.Logger
	registry *session.Registry
	saver    session.ResultSaver // Optional, can be nil

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	active    int // reserved session slots, setup included
	listeners []net.Listener
	httpSrv   *http.Server

	upgrader websocket.Upgrader
}

// New creates a session server. A nil logger discards output.
func New(cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config:   cfg,
		logger:   logger,
		registry: session.NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// SetResultSaver sets the optional result saver.
func (s *Server) SetResultSaver(saver session.ResultSaver) {
	s.saver = saver
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	return s.registry.Count()
}

// ListenAndServe starts the TCP listener and, when configured, the
// WebSocket listener. It blocks until Shutdown or a listener failure.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.config.Address, err)
	}
	s.logger.Info("listening", "transport", "tcp", "address", ln.Addr().String())

	errc := make(chan error, 2)
	go func() { errc <- s.Serve(ln) }()

	if s.config.WebSocketAddress != "" {
		wsLn, err := net.Listen("tcp", s.config.WebSocketAddress)
		if err != nil {
			ln.Close()
			return fmt.Errorf("server: listen %s: %w", s.config.WebSocketAddress, err)
		}
		s.logger.Info("listening", "transport", "websocket", "address", wsLn.Addr().String(), "path", WebSocketPath)
		go func() { errc <- s.ServeWebSocket(wsLn) }()
	}

	return <-errc
}

// Serve accepts TCP connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if !s.track(ln) {
		ln.Close()
		return ErrServerClosed
	}

	for {
		c, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		go s.ServeConn(NewStreamConn(c, s.config.WriteTimeout))
	}
}

// Handler returns the HTTP handler that upgrades WebSocket sessions.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, s.handleWebSocket)
	return mux
}

// ServeWebSocket serves WebSocket sessions on ln until Shutdown.
func (s *Server) ServeWebSocket(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.httpSrv = srv
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: websocket: %w", err)
	}
	return ErrServerClosed
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.ServeConn(NewWebSocketConn(ws, s.config.WriteTimeout))
}

// Shutdown stops accepting connections, disconnects every live session and
// waits for every ServeConn call to finish or ctx to expire. Results are
// saved by the time it returns.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	listeners := s.listeners
	s.listeners = nil
	httpSrv := s.httpSrv
	s.mu.Unlock()

	var errs []error
	for _, ln := range listeners {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if httpSrv != nil {
		if err := httpSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.cancel()
	s.registry.DisconnectAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("server: waiting for sessions: %w", ctx.Err()))
	}

	return errors.Join(errs...)
}

func (s *Server) track(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.listeners = append(s.listeners, ln)
	return true
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// acquire reserves a session slot and registers the session with the
// shutdown wait group. Every successful acquire must be paired with release.
func (s *Server) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if s.config.MaxSessions > 0 && s.active >= s.config.MaxSessions {
		return ErrServerFull
	}
	s.active++
	s.wg.Add(1)
	return nil
}

func (s *Server) release() {
	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	s.wg.Done()
}

// ServeConn runs one session on conn and closes it when the game ends.
// A failing session only ever affects its own connection. Shutdown waits
// for every ServeConn call, whichever transport started it.
func (s *Server) ServeConn(conn Conn) {
	defer conn.Close()

	id := session.NewID()
	logger := s.logger.With("session", string(id), "remote", conn.RemoteAddr())
	logger.Info("client connected")

	if err := s.acquire(); err != nil {
		payload := "server full, try again later\n"
		if errors.Is(err, ErrServerClosed) {
			payload = "server is shutting down\n"
		}
		logger.Warn("session rejected", "error", err, "max", s.config.MaxSessions)
		_ = conn.WriteFrame(protocol.Frame{Kind: protocol.KindError, Payload: payload})
		return
	}
	defer s.release()

	if s.config.SetupTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.config.SetupTimeout))
	}
	// Shutdown must not wait out the setup timeout.
	stopSetupWatch := context.AfterFunc(s.ctx, func() { _ = conn.Close() })
	line, err := conn.ReadLine()
	if !stopSetupWatch() {
		logger.Warn("setup interrupted by shutdown")
		return
	}
	if err != nil {
		logger.Warn("no setup received", "error", err)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	state, setup, err := s.newGame(line)
	if err != nil {
		logger.Warn("setup rejected", "line", line, "error", err)
		_ = conn.WriteFrame(protocol.Frame{Kind: protocol.KindError, Payload: err.Error() + "\n"})
		return
	}
	logger.Info("game initialized",
		"width", setup.Width,
		"height", setup.Height,
		"mode", setup.Mode,
		"time_limit", setup.TimeLimit,
		"world", setup.World,
	)

	handle := session.NewChannelSession(id, s.config.EventBuffer)
	rt := session.NewRuntime(id, state, handle, s.config.Runtime)
	rt.SetLogger(logger)

	s.registry.Register(rt)
	defer s.registry.Unregister(id)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(conn, handle, rt, logger)
	}()
	go readLoop(conn, rt, logger)

	res := rt.Run(s.ctx)
	handle.Close()
	<-writerDone

	logger.Info("client disconnected", "reason", res.Describe(), "fruits", res.Fruits)

	if s.saver != nil {
		if err := s.saver.SaveResult(res); err != nil {
			logger.Warn("could not save result", "error", err)
		}
	}
}

// newGame parses the setup line and builds the initial state.
func (s *Server) newGame(line string) (*snake.GameState, protocol.Setup, error) {
	setup, err := protocol.ParseSetup(line)
	if err != nil {
		return nil, setup, err
	}
	if err := setup.CheckBounds(s.config.MaxWidth, s.config.MaxHeight, s.config.MaxTimeLimit); err != nil {
		return nil, setup, err
	}

	p := setup.Params()
	p.MaxLength = s.config.MaxSnakeLength
	p.ObstacleDivisor = s.config.ObstacleDivisor
	p.FruitAvoidsObstacles = s.config.FruitAvoidsObstacles

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // gameplay randomness
	state, err := snake.Initialize(p, rng, time.Now())
	if err != nil {
		return nil, setup, err
	}
	return state, setup, nil
}

// readLoop applies client commands until the connection fails or the
// player quits. Unknown commands are ignored.
func readLoop(conn Conn, rt *session.Runtime, logger *log.Logger) {
	for {
		line, err := conn.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("read failed", "error", err)
			}
			rt.Disconnect()
			return
		}

		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			logger.Debug("ignoring command", "error", err)
			continue
		}

		switch cmd.Kind {
		case protocol.CmdDirection:
			rt.SetDirection(cmd.Direction)
		case protocol.CmdPause:
			rt.Pause()
		case protocol.CmdResume:
			rt.Resume()
		case protocol.CmdQuit:
			rt.Quit()
			return
		}
	}
}

// writeLoop forwards runtime events to the client. After the session handle
// closes it flushes what is still queued, so the final summary is delivered.
func writeLoop(conn Conn, handle *session.ChannelSession, rt *session.Runtime, logger *log.Logger) {
	write := func(evt session.Event) bool {
		f, ok := EventFrame(evt)
		if !ok {
			return true
		}
		if err := conn.WriteFrame(f); err != nil {
			logger.Debug("write failed", "error", err)
			rt.Disconnect()
			return false
		}
		return true
	}

	for {
		select {
		case evt := <-handle.Events():
			if !write(evt) {
				return
			}
		case <-handle.Done():
			for {
				select {
				case evt := <-handle.Events():
					if !write(evt) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// EventFrame converts a runtime event into its wire frame.
func EventFrame(evt session.Event) (protocol.Frame, bool) {
	switch e := evt.(type) {
	case session.SnapshotEvent:
		return protocol.Frame{Kind: protocol.KindFrame, Payload: e.Frame}, true
	case session.NoticeEvent:
		return protocol.Frame{Kind: protocol.KindNotice, Payload: e.Text}, true
	case session.GameOverEvent:
		return protocol.Frame{Kind: protocol.KindOver, Payload: e.Summary}, true
	default:
		return protocol.Frame{}, false
	}
}
