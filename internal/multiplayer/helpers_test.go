package multiplayer

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/pong-arena/internal/pong"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// recordingTransport keeps every frame it receives.
type recordingTransport struct {
	mu     sync.Mutex
	frames [][]byte
}

func (t *recordingTransport) Send(frame []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = append(t.frames, frame)
}

func (t *recordingTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

func (t *recordingTransport) messages(tb testing.TB) []ServerMessage {
	tb.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ServerMessage, 0, len(t.frames))
	for _, f := range t.frames {
		var msg ServerMessage
		if err := json.Unmarshal(f, &msg); err != nil {
			tb.Fatalf("bad frame %s: %v", f, err)
		}
		out = append(out, msg)
	}
	return out
}

// memorySink records saved results.
type memorySink struct {
	mu      sync.Mutex
	results []MatchResult
	err     error
}

func (s *memorySink) SaveMatchResult(r MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return s.err
}

func (s *memorySink) saved() []MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MatchResult(nil), s.results...)
}

// idleController never moves.
type idleController struct{}

func (idleController) Decide(pong.State, pong.Side) pong.Input { return pong.Input{} }

// recordingController remembers the snapshots it was shown.
type recordingController struct {
	seen []pong.State
}

func (c *recordingController) Decide(s pong.State, _ pong.Side) pong.Input {
	c.seen = append(c.seen, s)
	return pong.Input{Up: true}
}

type panicController struct{}

func (panicController) Decide(pong.State, pong.Side) pong.Input { panic("boom") }

// constRand always returns the same value. 0.99 serves the ball steeply to
// the right so a centered, idle right paddle misses every time.
type constRand float64

func (r constRand) Float64() float64 { return float64(r) }

const tickPeriod = time.Second / DefaultTickRate

func human(id string, side pong.Side, t Transport) ParticipantConfig {
	return ParticipantConfig{ID: id, Side: side, Kind: KindHumanSocket, Transport: t}
}

func newTestMatch(clock *FakeClock, mode pong.Mode) *Match {
	return NewMatch(MatchConfig{
		ID:    "match-test",
		Mode:  mode,
		Clock: clock,
		Rand:  constRand(0.99),
	})
}

func isErr(err, target error) bool {
	return errors.Is(err, target)
}
