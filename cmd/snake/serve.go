package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/netsnake/internal/server"
	"github.com/vovakirdan/netsnake/internal/storage"
)

var (
	flagServeAddr   string
	flagWSAddr      string
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the snake game server",
	Long: `Start the game server. Every connection gets its own game; the
server ticks it, applies the player's commands and streams frames back.

Transports:
  TCP        - always on (--addr, default :45544)
  WebSocket  - enabled with --ws, sessions on the /ws path
  SSH        - enabled with --ssh; players need only an ssh client

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.snake/host_key

Finished games are recorded in the results database unless
storage.enabled is false in the config.

Examples:
  snake serve
  snake serve --addr :4000
  snake serve --ws :8080
  snake serve --ssh :23234 --host-key ./host_key

Players can connect with:
  snake play --addr localhost:45544
  ssh -t localhost -p 23234 30 15 0 0 1`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "TCP address (host:port)")
	serveCmd.Flags().StringVar(&flagWSAddr, "ws", "", "WebSocket address (host:port), empty to disable")
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", "", "SSH address (host:port), empty to disable")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to SSH host key file (auto-generated if not specified)")
	serveCmd.Flags().DurationVar(&flagIdleTimeout, "idle-timeout", 0, "SSH idle timeout before disconnecting")
}

func runServe(cmd *cobra.Command, _ []string) {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Address = flagServeAddr
	}
	if cmd.Flags().Changed("ws") {
		cfg.Server.WebSocketAddress = flagWSAddr
	}
	if cmd.Flags().Changed("ssh") {
		cfg.Server.SSHAddress = flagSSHAddr
	}
	if cmd.Flags().Changed("host-key") {
		cfg.Server.HostKeyPath = flagHostKey
	}
	if cmd.Flags().Changed("idle-timeout") {
		cfg.Server.IdleTimeout = flagIdleTimeout
	}

	srv := server.New(server.ConfigFrom(cfg), logger)

	// Open result storage
	var store *storage.Store
	if cfg.Storage.Enabled {
		s, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			// Continue without storage - games still work
			logger.Warn("results will not be recorded", "path", cfg.Storage.Path, "error", err)
		} else {
			store = s
			srv.SetResultSaver(store)
		}
	}

	var sshSrv *server.SSHServer
	if cfg.Server.SSHAddress != "" {
		var err error
		sshSrv, err = server.NewSSHServer(server.SSHConfig{
			Address:     cfg.Server.SSHAddress,
			HostKeyPath: cfg.Server.HostKeyPath,
			IdleTimeout: cfg.Server.IdleTimeout,
		}, srv, logger)
		if err != nil {
			closeStore(store)
			fmt.Fprintf(os.Stderr, "Error creating SSH server: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 2)
	go func() { errc <- srv.ListenAndServe() }()
	if sshSrv != nil {
		go func() { errc <- sshSrv.ListenAndServe() }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errc:
		if !errors.Is(err, server.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sshSrv != nil {
		if err := sshSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ssh shutdown", "error", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	closeStore(store)

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", runErr)
		os.Exit(1)
	}
}

func closeStore(store *storage.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		logger.Warn("closing results database", "error", err)
	}
}
