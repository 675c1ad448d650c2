// Package config provides YAML-based configuration loading for the arena
// server and its terminal clients.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/pong"
)

// Config is the complete arena configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	SSH      SSHConfig      `yaml:"ssh"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Court    CourtConfig    `yaml:"court"`
	Gameplay GameplayConfig `yaml:"gameplay"`
	AI       AIConfig       `yaml:"ai"`
}

// ServerConfig defines the HTTP and WebSocket listener.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	SendBuffer   int           `yaml:"send_buffer"` // Frames queued per WebSocket connection
}

// SSHConfig defines the optional SSH front-end.
type SSHConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Address     string        `yaml:"address"`
	HostKeyPath string        `yaml:"host_key_path"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// StorageConfig defines where match history is kept.
type StorageConfig struct {
	Path string `yaml:"path"` // Empty disables persistence
}

// LogConfig defines logging output.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// CourtConfig defines the court geometry in virtual pixels.
type CourtConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	BallRadius   float64 `yaml:"ball_radius"`
	BallSpeed    float64 `yaml:"ball_speed"`
	PaddleWidth  float64 `yaml:"paddle_width"`
	PaddleHeight float64 `yaml:"paddle_height"`
	PaddleSpeed  float64 `yaml:"paddle_speed"`
	PaddleOffset float64 `yaml:"paddle_offset"`
}

// GameplayConfig defines match rules and housekeeping.
type GameplayConfig struct {
	MaxScore     int           `yaml:"max_score"`
	TickRate     int           `yaml:"tick_rate"`
	EndGrace     time.Duration `yaml:"end_grace"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	SweepPeriod  time.Duration `yaml:"sweep_period"`
	HistoryLimit int           `yaml:"history_limit"`
}

// AIConfig defines the computer opponent.
type AIConfig struct {
	Difficulty     DifficultyPreset `yaml:"difficulty"` // Overrides the fields below when set
	Strategy       string           `yaml:"strategy"`
	SampleInterval time.Duration    `yaml:"sample_interval"`
	DeadZone       float64          `yaml:"dead_zone"`
}

// PongCourt converts the court section into kernel geometry.
func (c CourtConfig) PongCourt() pong.Court {
	return pong.Court{
		Width:        c.Width,
		Height:       c.Height,
		BallRadius:   c.BallRadius,
		BallSpeed:    c.BallSpeed,
		PaddleWidth:  c.PaddleWidth,
		PaddleHeight: c.PaddleHeight,
		PaddleSpeed:  c.PaddleSpeed,
		PaddleOffset: c.PaddleOffset,
	}
}

// RegistryConfig builds the match registry configuration.
func (c Config) RegistryConfig() multiplayer.RegistryConfig {
	return multiplayer.RegistryConfig{
		Court:        c.Court.PongCourt(),
		MaxScore:     c.Gameplay.MaxScore,
		TickRate:     c.Gameplay.TickRate,
		EndGrace:     c.Gameplay.EndGrace,
		IdleTimeout:  c.Gameplay.IdleTimeout,
		SweepPeriod:  c.Gameplay.SweepPeriod,
		HistoryLimit: c.Gameplay.HistoryLimit,
		AIStrategy:   c.AI.Strategy,
		AIOptions: pong.AIOptions{
			SampleInterval: c.AI.SampleInterval,
			DeadZone:       c.AI.DeadZone,
		},
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Address != "", "server.address is required")
	check(c.Server.SendBuffer >= 0, "server.send_buffer must not be negative")
	check(!c.SSH.Enabled || c.SSH.Address != "", "ssh.address is required when ssh is enabled")

	check(c.Court.Width > 0 && c.Court.Height > 0, "court size must be positive, got %vx%v", c.Court.Width, c.Court.Height)
	check(c.Court.BallRadius > 0, "court.ball_radius must be positive")
	check(c.Court.BallSpeed > 0, "court.ball_speed must be positive")
	check(c.Court.PaddleWidth > 0, "court.paddle_width must be positive")
	check(c.Court.PaddleHeight > 0 && c.Court.PaddleHeight < c.Court.Height,
		"court.paddle_height must be within (0, %v)", c.Court.Height)
	check(c.Court.PaddleSpeed > 0, "court.paddle_speed must be positive")
	check(c.Court.PaddleOffset >= 0 && c.Court.PaddleOffset < c.Court.Width/2,
		"court.paddle_offset must be within [0, %v)", c.Court.Width/2)

	check(c.Gameplay.MaxScore >= 1, "gameplay.max_score must be at least 1")
	check(c.Gameplay.TickRate >= 1 && c.Gameplay.TickRate <= 1000, "gameplay.tick_rate must be within [1, 1000]")
	check(c.Gameplay.EndGrace >= 0, "gameplay.end_grace must not be negative")
	check(c.Gameplay.IdleTimeout >= 0, "gameplay.idle_timeout must not be negative")
	check(c.Gameplay.SweepPeriod >= 0, "gameplay.sweep_period must not be negative")

	check(c.AI.Difficulty == "" || IsKnownPreset(c.AI.Difficulty), "ai.difficulty %q is unknown", c.AI.Difficulty)
	check(pong.StrategyExists(c.AI.Strategy), "ai.strategy %q is unknown (have %v)", c.AI.Strategy, pong.Strategies())
	check(c.AI.SampleInterval >= 0, "ai.sample_interval must not be negative")
	check(c.AI.DeadZone >= 0, "ai.dead_zone must not be negative")

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
