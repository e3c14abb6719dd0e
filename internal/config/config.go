// Package config provides YAML-based configuration loading for the snake
// server and client.
package config

import "time"

// Config is the top-level configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Game    GameConfig    `yaml:"game"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig defines listeners and per-connection limits.
type ServerConfig struct {
	Address          string        `yaml:"address"`           // TCP listener
	WebSocketAddress string        `yaml:"websocket_address"` // empty disables WebSocket
	SSHAddress       string        `yaml:"ssh_address"`       // empty disables SSH
	HostKeyPath      string        `yaml:"host_key_path"`     // empty means ~/.snake/host_key
	SetupTimeout     time.Duration `yaml:"setup_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"` // per frame; 0 disables
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	EventBuffer      int           `yaml:"event_buffer"`
	MaxSessions      int           `yaml:"max_sessions"` // 0 means unlimited
}

// GameConfig defines timing and server-side game rules.
type GameConfig struct {
	TickInterval         time.Duration `yaml:"tick_interval"`
	PausePoll            time.Duration `yaml:"pause_poll"`
	ResumeGrace          time.Duration `yaml:"resume_grace"`
	MaxSnakeLength       int           `yaml:"max_snake_length"`
	ObstacleDivisor      int           `yaml:"obstacle_divisor"`
	FruitAvoidsObstacles bool          `yaml:"fruit_avoids_obstacles"`
	MaxWidth             int           `yaml:"max_width"`
	MaxHeight            int           `yaml:"max_height"`
	MaxTimeLimit         time.Duration `yaml:"max_time_limit"`
}

// StorageConfig defines where finished sessions are recorded.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Level string `yaml:"level"`
}
