package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/platform/tui"
	"github.com/vovakirdan/pong-arena/internal/storage"
)

var (
	flagHistoryPlayer string
	flagHistoryLimit  int
	flagPlain         bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent matches",
	Long: `Display recently finished matches, newest first.

Without --server the local history database is read. With --server the
server's in-memory history is fetched instead.

Examples:
  arena history
  arena history --player ann
  arena history --plain --limit 50
  arena history --server http://localhost:8080`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&flagHistoryPlayer, "player", "", "Only show this player's matches")
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of matches to show")
	historyCmd.Flags().BoolVar(&flagPlain, "plain", false, "Print a plain table instead of the interactive view")
	historyCmd.Flags().StringVar(&flagServer, "server", "", "Arena server URL")
}

func runHistory(_ *cobra.Command, _ []string) {
	records, stats, err := loadHistory(flagHistoryPlayer, flagHistoryLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if flagPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		printHistory(records, flagHistoryPlayer)
		return
	}

	title := "MATCH HISTORY"
	if flagHistoryPlayer != "" {
		title = "MATCH HISTORY - " + flagHistoryPlayer
	}
	width, height := 100, 24
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width, height = w, h
	}
	if err := tui.RunHistory(records, tui.HistoryOptions{
		Title:    title,
		PlayerID: flagHistoryPlayer,
		Stats:    stats,
		Width:    width,
		Height:   height,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadHistory reads matches from the server when --server is set and from
// the local database otherwise. Stats are only returned for a player.
func loadHistory(playerID string, limit int) ([]storage.MatchRecord, *multiplayer.PlayerStats, error) {
	if flagServer != "" {
		client := tui.NewClient(flagServer)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if playerID != "" {
			resp, err := client.Stats(ctx, playerID)
			if err != nil {
				return nil, nil, err
			}
			return truncate(tui.RecordsFromResults(resp.History), limit), &resp.Stats, nil
		}
		results, err := client.History(ctx)
		if err != nil {
			return nil, nil, err
		}
		return truncate(tui.RecordsFromResults(results), limit), nil, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()

	if playerID == "" {
		records, err := store.RecentMatches(limit)
		return records, nil, err
	}
	records, err := store.PlayerHistory(playerID, limit)
	if err != nil {
		return nil, nil, err
	}
	stats, err := store.PlayerStats(playerID)
	if err != nil {
		return nil, nil, err
	}
	return records, &stats, nil
}

func truncate(records []storage.MatchRecord, limit int) []storage.MatchRecord {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}

func printHistory(records []storage.MatchRecord, playerID string) {
	if len(records) == 0 {
		fmt.Println("No matches recorded yet.")
		fmt.Println()
		fmt.Println("Play 'arena play' to record the first one!")
		return
	}

	// Print header
	fmt.Printf("  %-16s  %-10s  %-20s  %-5s  %-20s  %s\n", "Ended", "Mode", "Left", "Score", "Right", "Winner")
	fmt.Printf("  %-16s  %-10s  %-20s  %-5s  %-20s  %s\n", "-----", "----", "----", "-----", "-----", "------")

	wins := 0
	for _, r := range records {
		fmt.Printf("  %-16s  %-10s  %-20s  %-5s  %-20s  %s\n",
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.Mode,
			r.LeftID,
			fmt.Sprintf("%d-%d", r.LeftScore, r.RightScore),
			r.RightID,
			r.WinnerID(),
		)
		if playerID != "" && r.WinnerID() == playerID {
			wins++
		}
	}

	if playerID != "" {
		fmt.Println()
		fmt.Printf("%s won %d of %d\n", playerID, wins, len(records))
	}
}
