package multiplayer

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/pong-arena/internal/pong"
)

// Match defaults.
const (
	DefaultMaxScore = 5
	DefaultTickRate = 60
	DefaultEndGrace = 5 * time.Second
)

// MatchConfig configures a Match. Zero values select defaults.
type MatchConfig struct {
	ID       MatchID
	Mode     pong.Mode
	Court    pong.Court
	MaxScore int
	TickRate int           // ticks per second
	EndGrace time.Duration // delay between finishing and OnExpire

	Clock  Clock
	Rand   pong.Rand
	Logger *log.Logger

	// OnEnd receives the result once, when a side reaches MaxScore.
	OnEnd func(MatchResult)

	// OnExpire is called EndGrace after the match finished.
	OnExpire func(MatchID)

	// OnFault is called when a tick panics. The match is already stopped.
	OnFault func(MatchID, error)
}

type slot struct {
	cfg   ParticipantConfig
	input pong.Input
}

// Match is one authoritative game. All state is guarded by mu; ticks and
// message handlers never run concurrently on the same match.
type Match struct {
	id       MatchID
	mode     pong.Mode
	court    pong.Court
	maxScore int
	period   time.Duration
	dt       float64
	grace    time.Duration
	clock    Clock
	rng      pong.Rand
	logger   *log.Logger

	onEnd    func(MatchResult)
	onExpire func(MatchID)
	onFault  func(MatchID, error)

	mu           sync.Mutex
	state        pong.State
	slots        map[pong.Side]*slot
	running      bool
	stopped      bool
	cancelTick   func()
	expireTimer  Timer
	ticks        uint64
	createdAt    time.Time
	startedAt    time.Time
	lastActivity time.Time
}

// NewMatch creates a match in the waiting state with a freshly served ball.
func NewMatch(cfg MatchConfig) *Match {
	if cfg.Court.Width <= 0 || cfg.Court.Height <= 0 {
		cfg.Court = pong.DefaultCourt()
	}
	if cfg.MaxScore <= 0 {
		cfg.MaxScore = DefaultMaxScore
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = DefaultTickRate
	}
	if cfg.EndGrace <= 0 {
		cfg.EndGrace = DefaultEndGrace
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // gameplay randomness
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}

	now := cfg.Clock.Now()
	m := &Match{
		id:       cfg.ID,
		mode:     cfg.Mode,
		court:    cfg.Court,
		maxScore: cfg.MaxScore,
		period:   time.Second / time.Duration(cfg.TickRate),
		dt:       1 / float64(cfg.TickRate),
		grace:    cfg.EndGrace,
		clock:    cfg.Clock,
		rng:      cfg.Rand,
		logger:   cfg.Logger,
		onEnd:    cfg.OnEnd,
		onExpire: cfg.OnExpire,
		onFault:  cfg.OnFault,

		slots:        make(map[pong.Side]*slot, 2),
		createdAt:    now,
		lastActivity: now,
	}
	m.state = pong.State{
		MatchID: string(cfg.ID),
		Mode:    cfg.Mode,
		Status:  pong.StatusWaiting,
		Ball:    cfg.Court.ResetBall(cfg.Rand),
		Paddles: pong.Paddles{
			Left:  cfg.Court.NewPaddle(),
			Right: cfg.Court.NewPaddle(),
		},
		Timestamp: now.UnixMilli(),
	}
	return m
}

// ID returns the match identifier.
func (m *Match) ID() MatchID {
	return m.id
}

// Mode returns the match mode.
func (m *Match) Mode() pong.Mode {
	return m.mode
}

// State returns a copy of the current snapshot.
func (m *Match) State() pong.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the lifecycle phase.
func (m *Match) Status() pong.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Status
}

// Running reports whether the tick loop is scheduled.
func (m *Match) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Ticks returns the number of completed ticks.
func (m *Match) Ticks() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticks
}

// IdleFor returns how long ago the match last saw a tick, join or input.
func (m *Match) IdleFor(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return now.Sub(m.lastActivity)
}

// Participants returns the admitted participants, left side first.
func (m *Match) Participants() []Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participantsLocked()
}

// Info summarizes the match for listings.
func (m *Match) Info() MatchInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MatchInfo{
		ID:           m.id,
		Mode:         m.mode,
		Status:       m.state.Status,
		Active:       m.running,
		Participants: m.participantsLocked(),
	}
}

// Input returns the buffered input of a participant.
func (m *Match) Input(participantID string) (pong.Input, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.slotByIDLocked(participantID); s != nil {
		return s.input, true
	}
	return pong.Input{}, false
}

// HasOpponent reports whether the side opposite to side is occupied.
func (m *Match) HasOpponent(side pong.Side) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[side.Opponent()] != nil
}

// AddParticipant admits a participant. An empty side picks the first free
// one. Admitting the second participant starts the match.
// Re-adding a participant on its own side rebinds its controller and transport.
func (m *Match) AddParticipant(cfg ParticipantConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidParticipant)
	}
	if !cfg.Kind.Valid() {
		return fmt.Errorf("%w: unknown controller kind %q", ErrInvalidParticipant, cfg.Kind)
	}
	if cfg.Kind == KindAI && cfg.Controller == nil {
		return fmt.Errorf("%w: ai participant %s has no controller", ErrInvalidParticipant, cfg.ID)
	}
	if cfg.Side != "" && !cfg.Side.Valid() {
		return fmt.Errorf("%w: invalid side %q", ErrInvalidParticipant, cfg.Side)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrMatchStopped
	}

	if cfg.Side == "" {
		cfg.Side = m.freeSideLocked(cfg.ID)
		if cfg.Side == "" {
			return ErrMatchFull
		}
	}

	if existing := m.slots[cfg.Side]; existing != nil {
		if existing.cfg.ID == cfg.ID {
			existing.cfg = cfg
			return nil
		}
		if len(m.slots) == 2 {
			return ErrMatchFull
		}
		return fmt.Errorf("%w: %s", ErrSideTaken, cfg.Side)
	}
	if other := m.slots[cfg.Side.Opponent()]; other != nil && other.cfg.ID == cfg.ID {
		return fmt.Errorf("%w: %s plays %s", ErrParticipantInMatch, cfg.ID, cfg.Side.Opponent())
	}

	m.slots[cfg.Side] = &slot{cfg: cfg}
	now := m.clock.Now()
	m.lastActivity = now

	if len(m.slots) == 2 && m.state.Status == pong.StatusWaiting {
		m.state.Status = pong.StatusPlaying
		m.startedAt = now
		m.runLocked()
		m.logger.Info("match started", "match", m.id, "mode", m.mode)
	}
	return nil
}

// SetInput merges a partial input update for a human participant.
// Unknown participants are ignored.
func (m *Match) SetInput(participantID string, update pong.InputUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.slotByIDLocked(participantID)
	if s == nil || s.cfg.Kind == KindAI {
		return
	}
	s.input = update.Apply(s.input)
	m.lastActivity = m.clock.Now()
}

// Pause stops the tick loop of a playing match. Pausing twice is a no-op.
func (m *Match) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrMatchStopped
	}
	if m.state.Status != pong.StatusPlaying {
		return ErrNotPlaying
	}
	m.stopLoopLocked()
	m.lastActivity = m.clock.Now()
	return nil
}

// Resume restarts the tick loop of a paused match.
func (m *Match) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrMatchStopped
	}
	if m.state.Status != pong.StatusPlaying {
		return ErrNotPlaying
	}
	if !m.running {
		m.runLocked()
	}
	return nil
}

// Stop halts the match for good. After Stop returns no tick body runs.
// Safe to call multiple times.
func (m *Match) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	m.stopLoopLocked()
	if m.expireTimer != nil {
		m.expireTimer.Stop()
		m.expireTimer = nil
	}
}

type tickOutput struct {
	state   pong.State
	targets []Transport
	result  *MatchResult
}

// Tick advances the match by one step and broadcasts the new state.
// It is the scheduled callback of the match loop and does nothing unless the
// match is running. A panic is contained to this match.
func (m *Match) Tick() {
	defer func() {
		if r := recover(); r != nil {
			m.fail(fmt.Errorf("tick panic: %v", r))
		}
	}()

	out, ok := m.step()
	if !ok {
		return
	}
	m.deliver(out)
}

func (m *Match) step() (tickOutput, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return tickOutput{}, false
	}

	// AI sees the previous tick's world.
	prev := m.state
	for side, s := range m.slots {
		if s.cfg.Kind == KindAI {
			s.input = s.cfg.Controller.Decide(prev, side)
		}
	}

	st := &m.state
	for _, side := range pong.Sides {
		var in pong.Input
		if s := m.slots[side]; s != nil {
			in = s.input
		}
		p := st.Paddles.Ptr(side)
		*p = pong.MovePaddle(*p, in, m.dt, m.court.Height)
	}

	ball := pong.MoveBall(st.Ball, m.dt)
	ball.Velocity = m.court.WallCollision(ball)
	for _, side := range pong.Sides {
		if v, hit := m.court.Bounce(ball, st.Paddles.Of(side), side); hit {
			ball.Velocity = v
		}
	}

	finished := false
	if conceded, ok := m.court.Goal(ball); ok {
		if conceded == pong.SideLeft {
			st.Score.Right++
		} else {
			st.Score.Left++
		}
		ball = m.court.ResetBall(m.rng)
		finished = st.Score.Left >= m.maxScore || st.Score.Right >= m.maxScore
	}
	st.Ball = ball

	now := m.clock.Now()
	st.Timestamp = now.UnixMilli()
	m.ticks++
	m.lastActivity = now

	out := tickOutput{targets: m.transportsLocked()}
	if finished {
		m.stopLoopLocked()
		st.Status = pong.StatusFinished
		res := m.resultLocked(now)
		out.result = &res
	}
	out.state = m.state
	return out, true
}

func (m *Match) deliver(out tickOutput) {
	frame, err := EncodeState(out.state)
	if err != nil {
		m.logger.Error("encode state", "match", m.id, "err", err)
	} else {
		broadcast(out.targets, frame)
	}

	if out.result == nil {
		return
	}
	res := *out.result
	m.logger.Info("match finished",
		"match", m.id,
		"winner", res.Winner,
		"left", res.Score.Left,
		"right", res.Score.Right,
		"duration", res.Duration.Round(time.Millisecond),
	)

	if m.onEnd != nil {
		m.onEnd(res)
	}

	if end, err := EncodeEnd(res.Winner, res.Score); err == nil {
		broadcast(out.targets, end)
	}

	m.scheduleExpiry()
}

func (m *Match) scheduleExpiry() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.onExpire == nil {
		return
	}
	m.expireTimer = m.clock.AfterFunc(m.grace, func() {
		m.onExpire(m.id)
	})
}

func (m *Match) fail(err error) {
	m.mu.Lock()
	m.stopped = true
	m.stopLoopLocked()
	m.mu.Unlock()

	m.logger.Error("match tick failed", "match", m.id, "err", err)
	if m.onFault != nil {
		m.onFault(m.id, err)
	}
}

func (m *Match) runLocked() {
	m.running = true
	m.cancelTick = m.clock.Every(m.period, m.Tick)
}

func (m *Match) stopLoopLocked() {
	m.running = false
	if m.cancelTick != nil {
		m.cancelTick()
		m.cancelTick = nil
	}
}

func (m *Match) freeSideLocked(id string) pong.Side {
	for _, side := range pong.Sides {
		if s := m.slots[side]; s != nil && s.cfg.ID == id {
			return side
		}
	}
	for _, side := range pong.Sides {
		if m.slots[side] == nil {
			return side
		}
	}
	return ""
}

func (m *Match) slotByIDLocked(id string) *slot {
	for _, s := range m.slots {
		if s.cfg.ID == id {
			return s
		}
	}
	return nil
}

func (m *Match) participantsLocked() []Participant {
	out := make([]Participant, 0, len(m.slots))
	for _, side := range pong.Sides {
		if s := m.slots[side]; s != nil {
			out = append(out, Participant{ID: s.cfg.ID, Side: side, Kind: s.cfg.Kind})
		}
	}
	return out
}

// transportsLocked returns the distinct transports of both sides.
// A local two-player client joins both sides through one transport.
func (m *Match) transportsLocked() []Transport {
	out := make([]Transport, 0, 2)
	for _, side := range pong.Sides {
		s := m.slots[side]
		if s == nil || s.cfg.Transport == nil {
			continue
		}
		dup := false
		for _, t := range out {
			if t == s.cfg.Transport {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s.cfg.Transport)
		}
	}
	return out
}

func (m *Match) resultLocked(now time.Time) MatchResult {
	ref := func(side pong.Side) PlayerRef {
		if s := m.slots[side]; s != nil {
			return PlayerRef{ID: s.cfg.ID, Kind: s.cfg.Kind}
		}
		return PlayerRef{}
	}
	return MatchResult{
		MatchID:   m.id,
		Mode:      m.mode,
		Players:   Players{Left: ref(pong.SideLeft), Right: ref(pong.SideRight)},
		Score:     m.state.Score,
		Winner:    m.state.Score.Leader(),
		StartedAt: m.startedAt,
		EndedAt:   now,
		Duration:  now.Sub(m.startedAt),
	}
}

func broadcast(targets []Transport, frame []byte) {
	for _, t := range targets {
		t.Send(frame)
	}
}
