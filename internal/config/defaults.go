package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/snake.yaml
var defaultSnakeYAML []byte

// Default returns the hardcoded configuration. It matches defaults/snake.yaml.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:      ":45544",
			SetupTimeout: 30 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Minute,
			EventBuffer:  64,
			MaxSessions:  64,
		},
		Game: GameConfig{
			TickInterval:    2 * time.Second,
			PausePoll:       time.Second,
			ResumeGrace:     3 * time.Second,
			MaxSnakeLength:  100,
			ObstacleDivisor: 10,
			MaxWidth:        200,
			MaxHeight:       100,
			MaxTimeLimit:    time.Hour,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "~/.snake/results.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultSnakeYAML
}
