package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/google/uuid"

	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/pong"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":2222").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.arena/ssh_host_ed25519.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// Court must match the registry court so the view scales correctly.
	Court pong.Court
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":2222",
		IdleTimeout: 10 * time.Minute,
		Court:       pong.DefaultCourt(),
	}
}

// SSHServer serves solo matches against the computer over SSH. Every session
// gets its own solo-vs-ai match in the shared registry.
type SSHServer struct {
	config   SSHServerConfig
	server   *ssh.Server
	registry *multiplayer.Registry
	logger   *log.Logger
	suffix   func() string // Player id suffix, random by default
}

// NewSSHServer creates a new SSH server backed by registry.
func NewSSHServer(cfg SSHServerConfig, registry *multiplayer.Registry, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.Court.Width <= 0 || cfg.Court.Height <= 0 {
		cfg.Court = pong.DefaultCourt()
	}

	srv := &SSHServer{
		config:   cfg,
		registry: registry,
		logger:   logger,
	}

	hostKeyPath, err := resolveHostKeyPath(cfg.HostKeyPath)
	if err != nil {
		return nil, err
	}
	if mkdirErr := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}
	if cfg.IdleTimeout > 0 {
		opts = append(opts, wish.WithIdleTimeout(cfg.IdleTimeout))
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

func resolveHostKeyPath(path string) (string, error) {
	if path == "" {
		path = "~/.arena/ssh_host_ed25519"
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	return path, nil
}

// teaHandler creates a match and a Bubble Tea program for each SSH session.
func (s *SSHServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sess.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sess.User())
		wish.Fatalln(sess, "arena needs a terminal: connect with ssh -t")
		return nil, nil
	}

	link, err := s.startMatch(sess.User())
	if err != nil {
		s.logger.Error("cannot start match", "user", sess.User(), "err", err)
		wish.Fatalln(sess, "could not start a match: "+err.Error())
		return nil, nil
	}

	// The program ends with the session; make sure the match goes too.
	go func() {
		<-sess.Context().Done()
		_ = link.Close()
	}()

	model := NewMatchModel(link, MatchOptions{
		Court:  s.config.Court,
		Keys:   SinglePlayerKeyMap(),
		Labels: [2]string{sess.User(), "CPU"},
		Width:  pty.Window.Width,
		Height: pty.Window.Height,
	})
	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

// startMatch creates a solo-vs-ai match and seats the user on the left.
func (s *SSHServer) startMatch(user string) (*LocalLink, error) {
	matchID, err := s.registry.CreateMatch(pong.ModeSoloVsAI, "")
	if err != nil {
		return nil, err
	}
	suffix := s.suffix
	if suffix == nil {
		suffix = randomSuffix
	}
	playerID := fmt.Sprintf("ssh-%s-%s", user, suffix())

	link, err := JoinLocal(s.registry, matchID, Seat{PlayerID: playerID, Side: pong.SideLeft})
	if err != nil {
		s.registry.RemoveMatch(matchID)
		return nil, err
	}
	s.logger.Info("match started over ssh", "user", user, "match", matchID, "player", playerID)
	return link, nil
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		s.logger.Info("session started",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
		)
		next(sess)
		s.logger.Info("session ended",
			"user", sess.User(),
			"remote", sess.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until it is shut down.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
