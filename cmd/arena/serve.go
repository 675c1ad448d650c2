package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/pong-arena/internal/config"
	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/platform/tui"
	"github.com/vovakirdan/pong-arena/internal/server"
	"github.com/vovakirdan/pong-arena/internal/storage"
)

var (
	flagAddr    string
	flagSSH     bool
	flagSSHAddr string
	flagHostKey string
	flagNoStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the arena match server",
	Long: `Start the HTTP and WebSocket match server.

Matches are created with POST /game/create and played over the
WebSocket game channel at /ws/game. Finished matches are saved to the
history database unless --no-store is given.

With --ssh an SSH front-end is started too: every SSH session plays a
solo match against the computer on the same server.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.arena/ssh_host_ed25519

Examples:
  arena serve                          # Listen on :8080
  arena serve --addr :9000             # Listen on port 9000
  arena serve --ssh --ssh-addr :2222   # Also accept SSH players
  arena serve --db ./arena.db          # Use specific database

Users can connect with:
  arena play online --server http://localhost:8080
  ssh localhost -p 2222`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP server address (host:port), overrides server.address")
	serveCmd.Flags().BoolVar(&flagSSH, "ssh", false, "Also start the SSH front-end")
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh-addr", "", "SSH server address, overrides ssh.address")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to SSH host key file")
	serveCmd.Flags().BoolVar(&flagNoStore, "no-store", false, "Keep match history in memory only")
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyServeFlags(&cfg)

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := []multiplayer.Option{multiplayer.WithLogger(logger.WithPrefix("registry"))}

	var store *storage.Store
	if !flagNoStore {
		store, err = storage.Open(cfg.Storage.Path)
		if err != nil {
			// The arena still works without history.
			logger.Warn("could not open match database, history is in memory only", "path", cfg.Storage.Path, "err", err)
			store = nil
		} else {
			opts = append(opts, multiplayer.WithResultSink(store))
		}
	}

	registry := multiplayer.NewRegistry(cfg.RegistryConfig(), opts...)
	registry.Start()

	srv := server.New(server.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		SendBuffer:   cfg.Server.SendBuffer,
	}, registry, logger.WithPrefix("http"))

	var sshSrv *tui.SSHServer
	if cfg.SSH.Enabled {
		sshSrv, err = tui.NewSSHServer(tui.SSHServerConfig{
			Address:     cfg.SSH.Address,
			HostKeyPath: cfg.SSH.HostKeyPath,
			IdleTimeout: cfg.SSH.IdleTimeout,
			Court:       cfg.Court.PongCourt(),
		}, registry, logger.WithPrefix("ssh"))
		if err != nil {
			logger.Error("cannot create SSH server", "err", err)
			registry.Close()
			closeStore(store)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 2)
	go func() { errs <- srv.ListenAndServe() }()
	if sshSrv != nil {
		go func() { errs <- sshSrv.ListenAndServe() }()
		logger.Info("ssh front-end enabled", "addr", sshSrv.Addr())
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errs:
		if err != nil {
			logger.Error("server stopped", "err", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if sshSrv != nil {
		if err := sshSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ssh shutdown", "err", err)
		}
	}
	registry.Close()
	closeStore(store)

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func applyServeFlags(cfg *config.Config) {
	if flagAddr != "" {
		cfg.Server.Address = flagAddr
	}
	if flagSSH {
		cfg.SSH.Enabled = true
	}
	if flagSSHAddr != "" {
		cfg.SSH.Address = flagSSHAddr
	}
	if flagHostKey != "" {
		cfg.SSH.HostKeyPath = flagHostKey
	}
}

func closeStore(store *storage.Store) {
	if store != nil {
		store.Close()
	}
}
