package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/netsnake/internal/client"
	"github.com/vovakirdan/netsnake/internal/protocol"
)

// SSHConfig holds configuration for the SSH frontend.
type SSHConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.snake/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration
}

// SSHServer lets players connect with a plain ssh client. Each SSH session
// runs the terminal client in-process, wired to the session server through
// an in-memory pipe.
type SSHServer struct {
	config   SSHConfig
	sessions *Server
	server   *ssh.Server
	logger   *log.Logger
}

// NewSSHServer creates an SSH frontend in front of a session server.
func NewSSHServer(cfg SSHConfig, sessions *Server, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	srv := &SSHServer{
		config:   cfg,
		sessions: sessions,
		logger:   logger.With("transport", "ssh"),
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", err)
		}
		hostKeyPath = filepath.Join(home, ".snake", "host_key")
	}

	hostKeyDir := filepath.Dir(hostKeyPath)
	if err := os.MkdirAll(hostKeyDir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", err)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}
	if cfg.IdleTimeout > 0 {
		opts = append(opts, wish.WithIdleTimeout(cfg.IdleTimeout))
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler starts a game for each SSH session. The setup comes from the
// ssh command (e.g. "ssh -t host 30 15 1 60 0"); without one, a standard
// open game sized to the terminal is started.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		wish.Fatalln(sshSession, "a terminal is required: connect with ssh -t")
		return nil, nil
	}

	if s.sessions.isClosed() {
		wish.Fatalln(sshSession, "server is shutting down")
		return nil, nil
	}

	setup, err := SetupForSSH(sshSession.Command(), pty.Window.Width, pty.Window.Height)
	if err != nil {
		wish.Fatalln(sshSession, err.Error())
		return nil, nil
	}

	clientSide, serverSide := net.Pipe()
	go s.sessions.ServeConn(NewStreamConn(serverSide, s.sessions.config.WriteTimeout))

	conn := client.NewConn(clientSide)
	go func() {
		<-sshSession.Context().Done()
		conn.Close()
	}()
	if err := conn.SendSetup(setup); err != nil {
		s.logger.Warn("could not start session", "user", sshSession.User(), "error", err)
		conn.Close()
		return nil, nil
	}

	return client.NewModel(conn), []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// SetupForSSH derives the setup from ssh command arguments, or from the
// terminal size when there are none.
func SetupForSSH(args []string, termWidth, termHeight int) (protocol.Setup, error) {
	if len(args) > 0 {
		return protocol.ParseSetup(strings.Join(args, " "))
	}
	return protocol.TerminalSetup(termWidth, termHeight), nil
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("ssh session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("ssh session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("listening", "address", s.config.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return fmt.Errorf("server: ssh: %w", err)
	}
	return ErrServerClosed
}

// Shutdown gracefully stops the SSH server.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
