package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/pong-arena/internal/config"
	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/platform/tui"
	"github.com/vovakirdan/pong-arena/internal/pong"
	"github.com/vovakirdan/pong-arena/internal/storage"
)

var (
	flagServer     string
	flagMatch      string
	flagPlayer     string
	flagSide       string
	flagDifficulty string
)

var playCmd = &cobra.Command{
	Use:   "play [solo|local|online]",
	Short: "Play a match in the terminal",
	Long: `Play Pong in the terminal.

Modes:
  solo    - You against the computer (default)
  local   - Two players on one keyboard
  online  - Two players on different machines; needs --server

Without --server the match runs in-process and is saved to the local
history database. With --server it is played on that arena server.

Controls:
  W/S or Up/Down  - Move your paddle (solo and online)
  W/S             - Left paddle (local)
  Up/Down         - Right paddle (local)
  P/Space         - Pause
  ?               - Help
  Q/Esc/Ctrl+C    - Quit

Examples:
  arena play
  arena play solo --difficulty hard
  arena play local
  arena play online --server http://localhost:8080
  arena play online --server http://localhost:8080 --match match-1a2b3c4d`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"solo", "local", "online"},
	Run:       runPlay,
}

func init() {
	playCmd.Flags().StringVar(&flagServer, "server", "", "Arena server URL, e.g. http://localhost:8080")
	playCmd.Flags().StringVar(&flagMatch, "match", "", "Match id to join (online) or create")
	playCmd.Flags().StringVar(&flagPlayer, "player", "", "Player id (default: $USER with a random suffix)")
	playCmd.Flags().StringVar(&flagSide, "side", "", "Preferred side: left or right")
	playCmd.Flags().StringVar(&flagDifficulty, "difficulty", "", "AI difficulty for offline solo: easy, normal, hard")
}

// modeAliases maps the short command-line names to match modes.
var modeAliases = map[string]pong.Mode{
	"solo":   pong.ModeSoloVsAI,
	"local":  pong.ModeLocal2P,
	"online": pong.ModeOnline2P,
}

func runPlay(_ *cobra.Command, args []string) {
	mode := pong.ModeSoloVsAI
	if len(args) == 1 {
		m, ok := modeAliases[args[0]]
		if !ok {
			parsed, err := pong.ParseMode(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: unknown mode %q (solo, local or online)\n", args[0])
				os.Exit(1)
			}
			m = parsed
		}
		mode = m
	}

	var side pong.Side
	if flagSide != "" {
		s, err := pong.ParseSide(flagSide)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		side = s
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flagDifficulty != "" {
		preset := config.DifficultyPreset(flagDifficulty)
		if !config.IsKnownPreset(preset) {
			fmt.Fprintf(os.Stderr, "Error: unknown difficulty %q (easy, normal, hard)\n", flagDifficulty)
			os.Exit(1)
		}
		config.ApplyDifficultyPreset(&cfg, preset)
	}

	// Get terminal size early so the first frame is laid out correctly
	width, height := 80, 24
	if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
		width = w
		height = h
	}

	seats := seatsFor(mode, playerID(), side)
	opts := tui.MatchOptions{
		Court:  cfg.Court.PongCourt(),
		Keys:   tui.SinglePlayerKeyMap(),
		Width:  width,
		Height: height,
	}
	if mode == pong.ModeLocal2P {
		opts.Keys = tui.LocalKeyMap()
	}

	var final tui.MatchModel
	if flagServer != "" {
		final, err = playRemote(mode, seats, opts)
	} else {
		final, err = playOffline(cfg, mode, seats, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if res, ok := final.Result(); ok {
		fmt.Printf("Final score %d - %d, %s wins\n", res.Score.Left, res.Score.Right, res.Winner)
	}
}

func playerID() string {
	if flagPlayer != "" {
		return flagPlayer
	}
	name := os.Getenv("USER")
	if name == "" {
		name = "player"
	}
	return name + "-" + uuid.NewString()[:8]
}

func seatsFor(mode pong.Mode, id string, side pong.Side) []tui.Seat {
	if mode == pong.ModeLocal2P {
		return []tui.Seat{
			{PlayerID: id + "-1", Side: pong.SideLeft},
			{PlayerID: id + "-2", Side: pong.SideRight},
		}
	}
	return []tui.Seat{{PlayerID: id, Side: side}}
}

// playOffline hosts the match in an in-process registry. Finished matches
// go to the local history database when it can be opened.
func playOffline(cfg config.Config, mode pong.Mode, seats []tui.Seat, opts tui.MatchOptions) (tui.MatchModel, error) {
	if mode == pong.ModeOnline2P {
		return tui.MatchModel{}, errors.New("online mode needs --server")
	}

	// Logging would draw over the match screen.
	regOpts := []multiplayer.Option{multiplayer.WithLogger(log.New(io.Discard))}
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not open match database: %v\n", err)
		store = nil
	} else {
		defer store.Close()
		regOpts = append(regOpts, multiplayer.WithResultSink(store))
	}

	registry := multiplayer.NewRegistry(cfg.RegistryConfig(), regOpts...)
	defer registry.Close()

	matchID, err := registry.CreateMatch(mode, multiplayer.MatchID(flagMatch))
	if err != nil {
		return tui.MatchModel{}, err
	}
	link, err := tui.JoinLocal(registry, matchID, seats...)
	if err != nil {
		return tui.MatchModel{}, err
	}
	defer link.Close()

	opts.MatchID = string(matchID)
	opts.Labels = labelsFor(mode, link.Seats())
	return tui.RunMatch(link, opts)
}

// playRemote plays on an arena server. Online matches named with --match
// are joined; every other match is created first.
func playRemote(mode pong.Mode, seats []tui.Seat, opts tui.MatchOptions) (tui.MatchModel, error) {
	client := tui.NewClient(flagServer)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	matchID := multiplayer.MatchID(flagMatch)
	if mode != pong.ModeOnline2P || matchID == "" {
		created, err := client.CreateMatch(ctx, mode, matchID)
		if err != nil {
			return tui.MatchModel{}, err
		}
		matchID = created.MatchID
	}

	wsURL, err := client.WebSocketURL("/ws/game")
	if err != nil {
		return tui.MatchModel{}, err
	}
	link, err := tui.DialMatch(ctx, wsURL, matchID, seats...)
	if err != nil {
		return tui.MatchModel{}, err
	}
	defer link.Close()

	opts.MatchID = string(matchID)
	opts.Labels = labelsFor(mode, link.Seats())
	return tui.RunMatch(link, opts)
}

// labelsFor names the score columns after the seated players.
func labelsFor(mode pong.Mode, seats []tui.Seat) [2]string {
	var labels [2]string
	for _, seat := range seats {
		if seat.Side == pong.SideLeft {
			labels[0] = seat.PlayerID
		} else {
			labels[1] = seat.PlayerID
		}
	}
	if mode == pong.ModeSoloVsAI {
		for i := range labels {
			if labels[i] == "" {
				labels[i] = "CPU"
			}
		}
	}
	return labels
}
