package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/platform/tui"
	"github.com/vovakirdan/pong-arena/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats <player>",
	Short: "Show a player's record",
	Long: `Display the number of games, wins, losses and win rate of a player.

Examples:
  arena stats ann
  arena stats ann --server http://localhost:8080`,
	Args: cobra.ExactArgs(1),
	Run:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&flagServer, "server", "", "Arena server URL")
}

func runStats(_ *cobra.Command, args []string) {
	playerID := args[0]

	stats, err := fetchStats(playerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Stats - %s\n", playerID)
	fmt.Println()
	if stats.TotalGames == 0 {
		fmt.Println("No finished matches yet.")
		return
	}
	fmt.Printf("  %-8s  %d\n", "Games", stats.TotalGames)
	fmt.Printf("  %-8s  %d\n", "Wins", stats.Wins)
	fmt.Printf("  %-8s  %d\n", "Losses", stats.Losses)
	fmt.Printf("  %-8s  %.1f%%\n", "Win rate", stats.WinRate)
}

func fetchStats(playerID string) (multiplayer.PlayerStats, error) {
	if flagServer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		resp, err := tui.NewClient(flagServer).Stats(ctx, playerID)
		return resp.Stats, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return multiplayer.PlayerStats{}, err
	}
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return multiplayer.PlayerStats{}, err
	}
	defer store.Close()
	return store.PlayerStats(playerID)
}
