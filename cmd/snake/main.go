// snake is a networked terminal Snake game. The server owns every game and
// streams rendered frames; clients only send keystrokes.
//
// Usage:
//
//	snake serve              - Start the game server (TCP, optional WebSocket and SSH)
//	snake play               - Connect to a server and play
//	snake scores             - Show the best finished games
//	snake config             - Print the effective configuration
//
// Global flags:
//
//	--config <path>     - Config file (default: ~/.snake/configs/snake.yaml)
//	--db <path>         - Results database (default: ~/.snake/results.db)
//	--log-level <level> - debug, info, warn or error
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/netsnake/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagLogLevel string
)

var (
	cfg    config.Config
	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snake",
	Short: "Networked Snake for the terminal",
	Long: `Snake runs a game server that owns the board and a terminal client
that renders it and forwards your keys.

Available commands:
  serve    - Start the game server
  play     - Connect and play
  scores   - View the best finished games
  config   - Print the effective configuration

Examples:
  snake serve
  snake serve --ws :8080 --ssh :23234
  snake play --addr localhost:45544
  snake play --mode timed --time-limit 60s --world obstacles
  snake scores --mode timed`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to results database (overrides storage.path)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(scoresCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the configuration and builds the shared logger before
// any subcommand runs. Flags win over the file.
func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("db") {
		c.Storage.Path = flagDBPath
		c.Storage.Enabled = true
	}
	if flagLogLevel != "" {
		c.Log.Level = flagLogLevel
	}

	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "snake",
		Level:           level,
	})
	cfg = c
	return nil
}
