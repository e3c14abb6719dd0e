package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const fileName = "snake.yaml"

// Load loads the server configuration. Keys missing from the file keep their
// default values.
// Search order: customPath -> ~/.snake/configs/snake.yaml -> ./configs/snake.yaml -> embedded default
func Load(customPath string) (Config, error) {
	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		cfg, err := parse(data)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		return cfg, nil
	}

	// Try user config directory
	if userCfgPath := userConfigPath(fileName); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if cfg, err := parse(data); err == nil {
				return cfg, nil
			}
		}
	}

	// Try local configs directory
	if data, err := os.ReadFile(filepath.Join("configs", fileName)); err == nil {
		if cfg, err := parse(data); err == nil {
			return cfg, nil
		}
	}

	// Use embedded default YAML
	cfg, err := parse(defaultSnakeYAML)
	if err != nil {
		return Default(), nil // Fallback to hardcoded if embed fails
	}
	return cfg, nil
}

func parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".snake", "configs", filename)
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}
	if c.Server.SetupTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.setup_timeout must not be negative, got %s", c.Server.SetupTimeout))
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must not be negative, got %s", c.Server.WriteTimeout))
	}
	if c.Server.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("server.max_sessions must not be negative, got %d", c.Server.MaxSessions))
	}
	if c.Server.EventBuffer < 1 {
		errs = append(errs, fmt.Errorf("server.event_buffer must be at least 1, got %d", c.Server.EventBuffer))
	}

	if c.Game.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("game.tick_interval must be positive, got %s", c.Game.TickInterval))
	}
	if c.Game.PausePoll <= 0 {
		errs = append(errs, fmt.Errorf("game.pause_poll must be positive, got %s", c.Game.PausePoll))
	}
	if c.Game.ResumeGrace < 0 {
		errs = append(errs, fmt.Errorf("game.resume_grace must not be negative, got %s", c.Game.ResumeGrace))
	}
	if c.Game.MaxSnakeLength < 2 {
		errs = append(errs, fmt.Errorf("game.max_snake_length must be at least 2, got %d", c.Game.MaxSnakeLength))
	}
	if c.Game.ObstacleDivisor < 1 {
		errs = append(errs, fmt.Errorf("game.obstacle_divisor must be at least 1, got %d", c.Game.ObstacleDivisor))
	}
	if c.Game.MaxWidth < 0 || c.Game.MaxHeight < 0 || c.Game.MaxTimeLimit < 0 {
		errs = append(errs, errors.New("game bounds must not be negative"))
	}

	if c.Storage.Enabled && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required when storage is enabled"))
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
