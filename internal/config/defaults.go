package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/arena.yaml
var defaultArenaYAML []byte

// Default returns the built-in configuration. It matches defaults/arena.yaml.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			SendBuffer:   64,
		},
		SSH: SSHConfig{
			Enabled:     false,
			Address:     ":2222",
			HostKeyPath: "~/.arena/ssh_host_ed25519",
			IdleTimeout: 10 * time.Minute,
		},
		Storage: StorageConfig{
			Path: "~/.arena/arena.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Court: CourtConfig{
			Width:        800,
			Height:       600,
			BallRadius:   8,
			BallSpeed:    300,
			PaddleWidth:  10,
			PaddleHeight: 80,
			PaddleSpeed:  400,
			PaddleOffset: 20,
		},
		Gameplay: GameplayConfig{
			MaxScore:     5,
			TickRate:     60,
			EndGrace:     5 * time.Second,
			IdleTimeout:  time.Minute,
			SweepPeriod:  30 * time.Second,
			HistoryLimit: 1000,
		},
		AI: AIConfig{
			Strategy:       "predictive",
			SampleInterval: time.Second,
			DeadZone:       12,
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultArenaYAML
}
