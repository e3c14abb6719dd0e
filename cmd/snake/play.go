package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/netsnake/internal/client"
	"github.com/vovakirdan/netsnake/internal/protocol"
	"github.com/vovakirdan/netsnake/internal/snake"
)

var (
	flagPlayAddr  string
	flagWidth     int
	flagHeight    int
	flagMode      string
	flagTimeLimit time.Duration
	flagWorld     string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Connect to a snake server and play",
	Long: `Connect to a snake server and play one game.

Controls:
  W/Up     - Up
  D/Right  - Right
  S/Down   - Down
  A/Left   - Left
  P        - Pause
  R        - Resume (after a short countdown)
  Q        - Quit and show the summary
  Ctrl+C   - Leave immediately

Without --width/--height the board is sized to your terminal.

Examples:
  snake play
  snake play --addr example.com:45544
  snake play --width 40 --height 20
  snake play --mode timed --time-limit 90s
  snake play --world obstacles`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagPlayAddr, "addr", "", "Server address (default: server.address from config)")
	playCmd.Flags().IntVar(&flagWidth, "width", 0, "Board width (0 = fit terminal)")
	playCmd.Flags().IntVar(&flagHeight, "height", 0, "Board height (0 = fit terminal)")
	playCmd.Flags().StringVar(&flagMode, "mode", "standard", "Game mode: standard, timed")
	playCmd.Flags().DurationVar(&flagTimeLimit, "time-limit", time.Minute, "Time limit in timed mode (whole seconds)")
	playCmd.Flags().StringVar(&flagWorld, "world", "open", "World type: open, obstacles")
}

func runPlay(_ *cobra.Command, _ []string) {
	setup, err := playSetup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	addr := flagPlayAddr
	if addr == "" {
		addr = cfg.Server.Address
	}

	conn, err := client.Dial(addr, 5*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("connected", "addr", addr, "setup", setup.String())

	if err := conn.SendSetup(setup); err != nil {
		conn.Close()
		fmt.Fprintf(os.Stderr, "Error sending setup: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(client.NewModel(conn), tea.WithAltScreen())
	final, runErr := p.Run()
	conn.Close()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running client: %v\n", runErr)
		os.Exit(1)
	}

	m, ok := final.(client.Model)
	if !ok {
		return
	}
	if msg := m.Err(); msg != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		os.Exit(1)
	}
	if summary := m.Summary(); summary != "" {
		fmt.Print(summary)
	}
}

// playSetup builds the setup line from flags, filling unset dimensions from
// the terminal size.
func playSetup() (protocol.Setup, error) {
	width, height := 80, 24 // Defaults
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}
	setup := protocol.TerminalSetup(width, height)

	if flagWidth > 0 {
		setup.Width = flagWidth
	}
	if flagHeight > 0 {
		setup.Height = flagHeight
	}

	mode, err := parseMode(flagMode)
	if err != nil {
		return protocol.Setup{}, err
	}
	setup.Mode = mode
	if mode == snake.ModeTimed {
		setup.TimeLimit = flagTimeLimit.Truncate(time.Second)
	}

	world, err := parseWorld(flagWorld)
	if err != nil {
		return protocol.Setup{}, err
	}
	setup.World = world

	// Validate locally so obvious mistakes never reach the server
	return protocol.ParseSetup(setup.String())
}

func parseMode(s string) (snake.Mode, error) {
	switch strings.ToLower(s) {
	case "standard", "0":
		return snake.ModeStandard, nil
	case "timed", "1":
		return snake.ModeTimed, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want standard or timed)", s)
	}
}

func parseWorld(s string) (snake.WorldType, error) {
	switch strings.ToLower(s) {
	case "open", "0":
		return snake.WorldOpen, nil
	case "obstacles", "1":
		return snake.WorldObstacles, nil
	default:
		return 0, fmt.Errorf("unknown world %q (want open or obstacles)", s)
	}
}
