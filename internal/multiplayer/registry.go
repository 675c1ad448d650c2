package multiplayer

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vovakirdan/pong-arena/internal/pong"
)

// RegistryConfig holds configuration for the registry and the matches it creates.
type RegistryConfig struct {
	Court       pong.Court
	MaxScore    int
	TickRate    int           // Game tick rate (Hz)
	EndGrace    time.Duration // How long a finished match stays visible
	IdleTimeout time.Duration // How long a stopped match may sit idle before sweeping
	SweepPeriod time.Duration // How often to sweep idle matches

	AIStrategy string
	AIOptions  pong.AIOptions

	HistoryLimit int // In-memory results kept, 0 for unlimited
}

// DefaultRegistryConfig returns sensible defaults.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Court:        pong.DefaultCourt(),
		MaxScore:     DefaultMaxScore,
		TickRate:     DefaultTickRate,
		EndGrace:     DefaultEndGrace,
		IdleTimeout:  time.Minute,
		SweepPeriod:  30 * time.Second,
		AIStrategy:   pong.StrategyPredictive,
		HistoryLimit: 1000,
	}
}

// ResultSink persists match results.
// This allows the registry to save results without depending on the storage package.
type ResultSink interface {
	SaveMatchResult(result MatchResult) error
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock sets the clock used for ticks, grace periods and sweeping.
func WithClock(c Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithResultSink sets where finished match results are persisted.
func WithResultSink(s ResultSink) Option {
	return func(r *Registry) { r.sink = s }
}

// WithLogger sets the registry logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithIDGenerator sets the generator for match and AI participant ids.
// prefix is "match" or "ai".
func WithIDGenerator(f func(prefix string) string) Option {
	return func(r *Registry) { r.newID = f }
}

// WithRandSource sets the per-match random source factory.
func WithRandSource(f func() pong.Rand) Option {
	return func(r *Registry) { r.newRand = f }
}

// WithAIFactory overrides how AI controllers are created.
func WithAIFactory(f func() (pong.Controller, error)) Option {
	return func(r *Registry) { r.newAI = f }
}

// Registry tracks live matches and which participant plays where.
// The application wires exactly one; tests create as many as they like.
type Registry struct {
	config  RegistryConfig
	clock   Clock
	sink    ResultSink // Optional, can be nil
	logger  *log.Logger
	newID   func(prefix string) string
	newRand func() pong.Rand
	newAI   func() (pong.Controller, error)

	mu            sync.RWMutex
	matches       map[MatchID]*Match
	byParticipant map[string]MatchID // participant id -> match id
	history       []MatchResult

	saves     sync.WaitGroup
	stopSweep func()
}

// NewRegistry creates a registry.
func NewRegistry(cfg RegistryConfig, opts ...Option) *Registry {
	if cfg.AIStrategy == "" {
		cfg.AIStrategy = pong.StrategyPredictive
	}
	if cfg.Court.Width <= 0 || cfg.Court.Height <= 0 {
		cfg.Court = pong.DefaultCourt()
	}

	r := &Registry{
		config:        cfg,
		clock:         RealClock{},
		logger:        log.New(io.Discard),
		newID:         defaultID,
		matches:       make(map[MatchID]*Match),
		byParticipant: make(map[string]MatchID),
	}
	r.newRand = func() pong.Rand {
		return rand.New(rand.NewSource(r.clock.Now().UnixNano())) //nolint:gosec // gameplay randomness
	}
	r.newAI = func() (pong.Controller, error) {
		return pong.NewController(r.config.AIStrategy, r.config.Court, r.config.AIOptions)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Config returns the registry configuration.
func (r *Registry) Config() RegistryConfig {
	return r.config
}

// Start begins sweeping idle matches in the background.
func (r *Registry) Start() {
	if r.config.SweepPeriod <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopSweep == nil {
		r.stopSweep = r.clock.Every(r.config.SweepPeriod, func() { r.SweepInactive() })
	}
}

// Close stops sweeping, removes every match and waits for pending result saves.
func (r *Registry) Close() {
	r.mu.Lock()
	stop := r.stopSweep
	r.stopSweep = nil
	ids := make([]MatchID, 0, len(r.matches))
	for id := range r.matches {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
	for _, id := range ids {
		r.RemoveMatch(id)
	}
	r.saves.Wait()
}

// CreateMatch creates a waiting match. An empty id generates one.
func (r *Registry) CreateMatch(mode pong.Mode, id MatchID) (MatchID, error) {
	if _, err := pong.ParseMode(string(mode)); err != nil {
		return "", err
	}
	if id == "" {
		id = MatchID(r.newID("match"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.matches[id]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateMatch, id)
	}

	m := NewMatch(MatchConfig{
		ID:       id,
		Mode:     mode,
		Court:    r.config.Court,
		MaxScore: r.config.MaxScore,
		TickRate: r.config.TickRate,
		EndGrace: r.config.EndGrace,
		Clock:    r.clock,
		Rand:     r.newRand(),
		Logger:   r.logger,
		OnEnd:    r.RecordResult,
		OnExpire: r.RemoveMatch,
		OnFault:  r.handleFault,
	})
	r.matches[id] = m

	r.logger.Info("match created", "match", id, "mode", mode)
	return id, nil
}

// AddParticipant admits a participant into a match. In solo-vs-ai matches the
// computer opponent is admitted on the other side as soon as a human joins.
func (r *Registry) AddParticipant(matchID MatchID, cfg ParticipantConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if current, ok := r.byParticipant[cfg.ID]; ok && current != matchID {
		return fmt.Errorf("%w: %s plays in %s", ErrParticipantInMatch, cfg.ID, current)
	}

	if err := m.AddParticipant(cfg); err != nil {
		return err
	}
	r.byParticipant[cfg.ID] = matchID

	if m.Mode() != pong.ModeSoloVsAI || !cfg.Kind.IsHuman() {
		return nil
	}

	side := r.sideOfLocked(m, cfg.ID)
	if m.HasOpponent(side) {
		return nil
	}
	// The human holds the seat either way; a failed AI leaves the match
	// waiting and the next join of this participant retries.
	if err := r.admitAILocked(m, side.Opponent()); err != nil {
		r.logger.Error("cannot admit ai, match keeps waiting", "match", matchID, "err", err)
	}
	return nil
}

func (r *Registry) admitAILocked(m *Match, side pong.Side) error {
	ctrl, err := r.newAI()
	if err != nil {
		return fmt.Errorf("create ai: %w", err)
	}
	ai := ParticipantConfig{
		ID:         r.newID("ai"),
		Side:       side,
		Kind:       KindAI,
		Controller: ctrl,
	}
	if err := m.AddParticipant(ai); err != nil {
		return fmt.Errorf("admit ai: %w", err)
	}
	r.byParticipant[ai.ID] = m.ID()
	return nil
}

func (r *Registry) sideOfLocked(m *Match, participantID string) pong.Side {
	for _, p := range m.Participants() {
		if p.ID == participantID {
			return p.Side
		}
	}
	return pong.SideLeft
}

// Match returns a live match by id.
func (r *Registry) Match(id MatchID) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[id]
	return m, ok
}

// MatchByParticipant returns the match a participant plays in.
func (r *Registry) MatchByParticipant(participantID string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byParticipant[participantID]
	if !ok {
		return nil, false
	}
	m, ok := r.matches[id]
	return m, ok
}

// RemoveMatch unregisters and stops a match. Unknown ids are ignored.
func (r *Registry) RemoveMatch(id MatchID) {
	r.mu.Lock()
	m, ok := r.matches[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.matches, id)
	for pid, mid := range r.byParticipant {
		if mid == id {
			delete(r.byParticipant, pid)
		}
	}
	r.mu.Unlock()

	m.Stop()
	r.logger.Debug("match removed", "match", id)
}

// Disconnect handles a participant's transport going away from matchID.
// It only acts while the participant still plays in that match, so a stale
// transport cannot tear down a match joined later. An unfinished match is
// removed at once; a finished one is left to its grace timer.
// It reports whether a match was removed.
func (r *Registry) Disconnect(participantID string, matchID MatchID) bool {
	r.mu.RLock()
	current, ok := r.byParticipant[participantID]
	m := r.matches[matchID]
	r.mu.RUnlock()
	if !ok || current != matchID || m == nil {
		return false
	}
	if m.Status() == pong.StatusFinished {
		return false
	}
	r.logger.Info("participant disconnected, removing match", "participant", participantID, "match", matchID)
	r.RemoveMatch(matchID)
	return true
}

// SweepInactive removes matches that are not running and have been idle
// longer than the idle timeout. It returns the number removed.
func (r *Registry) SweepInactive() int {
	now := r.clock.Now()

	r.mu.RLock()
	var stale []MatchID
	for id, m := range r.matches {
		if !m.Running() && m.IdleFor(now) >= r.config.IdleTimeout {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		r.RemoveMatch(id)
	}
	if len(stale) > 0 {
		r.logger.Info("swept inactive matches", "count", len(stale))
	}
	return len(stale)
}

// RecordResult keeps a result in memory and hands it to the sink.
// Persistence runs in the background; failures are logged.
func (r *Registry) RecordResult(result MatchResult) {
	r.mu.Lock()
	r.history = append(r.history, result)
	if limit := r.config.HistoryLimit; limit > 0 && len(r.history) > limit {
		r.history = append([]MatchResult(nil), r.history[len(r.history)-limit:]...)
	}
	sink := r.sink
	r.mu.Unlock()

	if sink == nil {
		return
	}
	r.saves.Add(1)
	go func() {
		defer r.saves.Done()
		if err := sink.SaveMatchResult(result); err != nil {
			r.logger.Error("save match result", "match", result.MatchID, "err", err)
		}
	}()
}

func (r *Registry) handleFault(id MatchID, err error) {
	r.logger.Error("removing faulted match", "match", id, "err", err)
	r.RemoveMatch(id)
}

// History returns recorded results, oldest first. A non-empty playerID
// filters to that player's matches.
func (r *Registry) History(playerID string) []MatchResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]MatchResult, 0, len(r.history))
	for _, res := range r.history {
		if playerID != "" {
			if _, ok := res.Players.SideOf(playerID); !ok {
				continue
			}
		}
		out = append(out, res)
	}
	return out
}

// PlayerStats aggregates the recorded results of a player.
func (r *Registry) PlayerStats(playerID string) PlayerStats {
	return ComputePlayerStats(r.History(playerID), playerID)
}

// List returns a summary of every live match, sorted by id.
func (r *Registry) List() []MatchInfo {
	r.mu.RLock()
	matches := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		matches = append(matches, m)
	}
	r.mu.RUnlock()

	out := make([]MatchInfo, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats returns registry counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := 0
	for _, m := range r.matches {
		if m.Running() {
			active++
		}
	}
	return Stats{
		TotalGames:   len(r.matches),
		ActiveGames:  active,
		TotalPlayers: len(r.byParticipant),
	}
}

// MatchCount returns the number of live matches.
func (r *Registry) MatchCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
