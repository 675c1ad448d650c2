// arena is a server-authoritative Pong arena with a terminal client.
//
// Usage:
//
//	arena serve              - Run the HTTP/WebSocket match server (and optional SSH front-end)
//	arena play [mode]        - Play in the terminal, offline or against a server
//	arena history            - Show recent matches
//	arena stats <player>     - Show a player's record
//	arena config             - Print the default configuration
//
// Global flags:
//
//	--config <path>     - Configuration file (default: search ~/.arena, ./configs)
//	--db <path>         - Match history database (overrides storage.path)
//	--log-level <level> - debug, info, warn or error (overrides log.level)
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/pong-arena/internal/config"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Pong Arena - real-time Pong over HTTP, WebSocket and SSH",
	Long: `Pong Arena runs authoritative Pong matches on a server and lets you play
them from a terminal, over SSH or from any WebSocket client.

Available commands:
  serve    - Start the match server
  play     - Play a match in the terminal
  history  - View recent matches
  stats    - View a player's record
  config   - Print the default configuration

Examples:
  arena serve --addr :8080 --ssh
  arena play solo
  arena play online --server http://localhost:8080 --match lobby
  arena history --player ann
  arena stats ann`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to arena config YAML")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to match history database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if flagDBPath != "" {
		cfg.Storage.Path = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

// newLogger builds the process logger writing to stderr.
func newLogger(cfg config.LogConfig) (*log.Logger, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "arena",
		Level:           level,
	}), nil
}
