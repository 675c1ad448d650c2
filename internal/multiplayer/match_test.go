package multiplayer

import (
	"testing"
	"time"

	"github.com/vovakirdan/pong-arena/internal/pong"
)

func TestNewMatchWaiting(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := newTestMatch(clock, pong.ModeLocal2P)

	st := m.State()
	if st.Status != pong.StatusWaiting {
		t.Errorf("status = %s, expected waiting", st.Status)
	}
	if st.Ball.Position.X != pong.DefaultCourtWidth/2 || st.Ball.Position.Y != pong.DefaultCourtHeight/2 {
		t.Errorf("ball not centered: %+v", st.Ball.Position)
	}
	if st.Paddles.Left.Y != 0.5 || st.Paddles.Right.Y != 0.5 {
		t.Errorf("paddles not centered: %+v", st.Paddles)
	}
	if m.Running() || clock.Pending() != 0 {
		t.Error("a waiting match must not tick")
	}
}

func TestAutoStartOnSecondParticipant(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := newTestMatch(clock, pong.ModeLocal2P)

	if err := m.AddParticipant(human("p1", pong.SideLeft, nil)); err != nil {
		t.Fatalf("AddParticipant() failed: %v", err)
	}
	if m.Status() != pong.StatusWaiting || m.Running() {
		t.Fatal("match started with one participant")
	}

	clock.Advance(time.Second)
	if m.Ticks() != 0 {
		t.Fatalf("ticks = %d before start", m.Ticks())
	}

	if err := m.AddParticipant(human("p2", pong.SideRight, nil)); err != nil {
		t.Fatalf("AddParticipant() failed: %v", err)
	}
	if m.Status() != pong.StatusPlaying || !m.Running() {
		t.Fatal("match did not start on second admission")
	}

	clock.Advance(tickPeriod)
	if m.Ticks() != 1 {
		t.Errorf("ticks = %d, expected 1", m.Ticks())
	}
}

func TestSingleOccupancy(t *testing.T) {
	m := newTestMatch(NewFakeClock(epoch), pong.ModeOnline2P)

	if err := m.AddParticipant(human("a", pong.SideLeft, nil)); err != nil {
		t.Fatal(err)
	}
	if err := m.AddParticipant(human("b", pong.SideLeft, nil)); !isErr(err, ErrSideTaken) {
		t.Errorf("expected ErrSideTaken, got %v", err)
	}
	if err := m.AddParticipant(human("b", pong.SideRight, nil)); err != nil {
		t.Fatal(err)
	}

	for _, side := range []pong.Side{pong.SideLeft, pong.SideRight, ""} {
		if err := m.AddParticipant(human("c", side, nil)); !isErr(err, ErrMatchFull) {
			t.Errorf("side %q: expected ErrMatchFull, got %v", side, err)
		}
	}
	if n := len(m.Participants()); n != 2 {
		t.Errorf("participants = %d, expected 2", n)
	}
}

func TestAddParticipantValidation(t *testing.T) {
	m := newTestMatch(NewFakeClock(epoch), pong.ModeOnline2P)

	tests := []struct {
		name string
		cfg  ParticipantConfig
	}{
		{"empty id", ParticipantConfig{Side: pong.SideLeft, Kind: KindHumanPoll}},
		{"bad side", ParticipantConfig{ID: "a", Side: "middle", Kind: KindHumanPoll}},
		{"bad kind", ParticipantConfig{ID: "a", Side: pong.SideLeft, Kind: "robot"}},
		{"ai without controller", ParticipantConfig{ID: "a", Side: pong.SideLeft, Kind: KindAI}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := m.AddParticipant(tc.cfg); !isErr(err, ErrInvalidParticipant) {
				t.Errorf("expected ErrInvalidParticipant, got %v", err)
			}
		})
	}
}

func TestAddParticipantPicksFreeSide(t *testing.T) {
	m := newTestMatch(NewFakeClock(epoch), pong.ModeOnline2P)

	_ = m.AddParticipant(human("a", "", nil))
	_ = m.AddParticipant(human("b", "", nil))

	ps := m.Participants()
	if len(ps) != 2 || ps[0].ID != "a" || ps[0].Side != pong.SideLeft || ps[1].ID != "b" {
		t.Errorf("participants = %+v", ps)
	}
}

func TestRejoinRebindsTransport(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := newTestMatch(clock, pong.ModeOnline2P)
	old, fresh := &recordingTransport{}, &recordingTransport{}

	_ = m.AddParticipant(human("a", pong.SideLeft, old))
	_ = m.AddParticipant(human("b", pong.SideRight, nil))
	if err := m.AddParticipant(human("a", pong.SideLeft, fresh)); err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}

	clock.Advance(tickPeriod)
	if old.count() != 0 || fresh.count() != 1 {
		t.Errorf("old=%d fresh=%d frames, expected 0 and 1", old.count(), fresh.count())
	}
}

func TestInputMergeCancels(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := newTestMatch(clock, pong.ModeLocal2P)
	_ = m.AddParticipant(human("p1", pong.SideLeft, nil))
	_ = m.AddParticipant(human("p2", pong.SideRight, nil))

	up, down := true, true
	m.SetInput("p1", pong.InputUpdate{Up: &up})
	m.SetInput("p1", pong.InputUpdate{Down: &down})

	in, ok := m.Input("p1")
	if !ok || !in.Up || !in.Down {
		t.Fatalf("Input() = %+v, %v; expected both flags", in, ok)
	}

	clock.Advance(tickPeriod)
	if y := m.State().Paddles.Left.Y; y != 0.5 {
		t.Errorf("paddle moved to %v with both keys held", y)
	}
}

func TestInputMovesPaddleAndPersists(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := newTestMatch(clock, pong.ModeLocal2P)
	_ = m.AddParticipant(human("p1", pong.SideLeft, nil))
	_ = m.AddParticipant(human("p2", pong.SideRight, nil))

	m.SetInput("p2", pong.Full(pong.Input{Down: true}))
	clock.Advance(3 * tickPeriod)

	step := pong.DefaultPaddleSpeed * (1.0 / DefaultTickRate) / pong.DefaultCourtHeight
	got := m.State().Paddles.Right.Y
	if diff := got - (0.5 + 3*step); diff > 1e-9 || diff < -1e-9 {
		t.Errorf("right paddle y = %v, expected %v", got, 0.5+3*step)
	}
	if m.State().Paddles.Left.Y != 0.5 {
		t.Error("left paddle moved without input")
	}
}

func TestSetInputUnknownParticipant(t *testing.T) {
	m := newTestMatch(NewFakeClock(epoch), pong.ModeLocal2P)
	up := true
	m.SetInput("ghost", pong.InputUpdate{Up: &up})

	if _, ok := m.Input("ghost"); ok {
		t.Error("unknown participant gained an input slot")
	}
}

func TestAIControllerSeesPreviousTick(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := newTestMatch(clock, pong.ModeSoloVsAI)
	ai := &recordingController{}

	_ = m.AddParticipant(human("p1", pong.SideLeft, nil))
	_ = m.AddParticipant(ParticipantConfig{ID: "ai-1", Side: pong.SideRight, Kind: KindAI, Controller: ai})

	before := m.State()
	clock.Advance(tickPeriod)
	afterFirst := m.State()
	clock.Advance(tickPeriod)

	if len(ai.seen) != 2 {
		t.Fatalf("Decide() called %d times, expected 2", len(ai.seen))
	}
	if ai.seen[0] != before {
		t.Errorf("first decision saw %+v, expected pre-tick state %+v", ai.seen[0], before)
	}
	if ai.seen[1] != afterFirst {
		t.Error("second decision did not see the first tick's result")
	}
	if afterFirst.Paddles.Right.Y >= 0.5 {
		t.Error("AI input was not applied")
	}

	// Human input cannot override an AI paddle.
	down := true
	m.SetInput("ai-1", pong.InputUpdate{Down: &down})
	if in, _ := m.Input("ai-1"); in.Down {
		t.Error("SetInput() changed an AI participant")
	}
}

func TestStopIsIdempotentAndFinal(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := newTestMatch(clock, pong.ModeLocal2P)
	_ = m.AddParticipant(human("p1", pong.SideLeft, nil))
	_ = m.AddParticipant(human("p2", pong.SideRight, nil))
	clock.Advance(tickPeriod)

	m.Stop()
	m.Stop()

	if m.Running() {
		t.Error("match still running after Stop()")
	}
	if clock.Pending() != 0 {
		t.Errorf("pending callbacks = %d after Stop()", clock.Pending())
	}

	ticks := m.Ticks()
	m.Tick()
	clock.Advance(time.Second)
	if m.Ticks() != ticks {
		t.Error("tick ran after Stop()")
	}

	if err := m.Resume(); !isErr(err, ErrMatchStopped) {
		t.Errorf("Resume() after Stop() = %v", err)
	}
	if err := m.AddParticipant(human("p3", pong.SideLeft, nil)); !isErr(err, ErrMatchStopped) {
		t.Errorf("AddParticipant() after Stop() = %v", err)
	}
}

func TestPauseResume(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := newTestMatch(clock, pong.ModeLocal2P)

	if err := m.Pause(); !isErr(err, ErrNotPlaying) {
		t.Errorf("Pause() on waiting match = %v", err)
	}

	_ = m.AddParticipant(human("p1", pong.SideLeft, nil))
	_ = m.AddParticipant(human("p2", pong.SideRight, nil))
	clock.Advance(tickPeriod)

	if err := m.Pause(); err != nil {
		t.Fatalf("Pause() failed: %v", err)
	}
	if err := m.Pause(); err != nil {
		t.Fatalf("second Pause() failed: %v", err)
	}
	ticks := m.Ticks()
	clock.Advance(time.Second)
	if m.Ticks() != ticks || m.Running() {
		t.Fatal("paused match kept ticking")
	}
	if m.Status() != pong.StatusPlaying {
		t.Errorf("status = %s while paused", m.Status())
	}

	if err := m.Resume(); err != nil {
		t.Fatalf("Resume() failed: %v", err)
	}
	clock.Advance(2 * tickPeriod)
	if m.Ticks() != ticks+2 {
		t.Errorf("ticks = %d, expected %d", m.Ticks(), ticks+2)
	}
}

func TestSharedTransportReceivesOneCopy(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := newTestMatch(clock, pong.ModeLocal2P)
	shared := &recordingTransport{}

	_ = m.AddParticipant(human("p1", pong.SideLeft, shared))
	_ = m.AddParticipant(human("p2", pong.SideRight, shared))
	clock.Advance(3 * tickPeriod)

	msgs := shared.messages(t)
	if len(msgs) != 3 {
		t.Fatalf("frames = %d, expected 3", len(msgs))
	}
	for _, msg := range msgs {
		if msg.Type != MsgGameState {
			t.Errorf("frame type = %s", msg.Type)
		}
		st, err := msg.State()
		if err != nil || st.MatchID != "match-test" || st.Status != pong.StatusPlaying {
			t.Errorf("bad state frame %+v: %v", st, err)
		}
	}
}

func TestMatchFinishes(t *testing.T) {
	clock := NewFakeClock(epoch)
	tr := &recordingTransport{}
	var results []MatchResult
	var expired []MatchID

	m := NewMatch(MatchConfig{
		ID:       "match-end",
		Mode:     pong.ModeLocal2P,
		Clock:    clock,
		Rand:     constRand(0.99),
		MaxScore: 2,
		OnEnd:    func(r MatchResult) { results = append(results, r) },
		OnExpire: func(id MatchID) { expired = append(expired, id) },
	})
	_ = m.AddParticipant(human("p1", pong.SideLeft, tr))
	_ = m.AddParticipant(human("p2", pong.SideRight, nil))

	for i := 0; i < 1000 && m.Status() != pong.StatusFinished; i++ {
		clock.Advance(tickPeriod)
	}

	if m.Status() != pong.StatusFinished {
		t.Fatal("match never finished")
	}
	if m.Running() {
		t.Error("finished match still running")
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, expected 1", len(results))
	}
	res := results[0]
	if res.Winner != pong.SideLeft || res.Score.Left != 2 || res.Score.Right != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.Players.Left.ID != "p1" || res.Players.Right.ID != "p2" {
		t.Errorf("players = %+v", res.Players)
	}
	if !res.StartedAt.Equal(epoch) || res.Duration <= 0 || !res.EndedAt.Equal(res.StartedAt.Add(res.Duration)) {
		t.Errorf("timing = %v .. %v (%v)", res.StartedAt, res.EndedAt, res.Duration)
	}

	msgs := tr.messages(t)
	last := msgs[len(msgs)-1]
	if last.Type != MsgGameEnd {
		t.Fatalf("last frame = %s, expected game/end", last.Type)
	}
	end, err := last.End()
	if err != nil || end.Winner != pong.SideLeft || end.Score.Left != 2 {
		t.Errorf("end frame = %+v, %v", end, err)
	}
	final, _ := msgs[len(msgs)-2].State()
	if final.Status != pong.StatusFinished {
		t.Errorf("final state status = %s", final.Status)
	}

	ticks := m.Ticks()
	clock.Advance(DefaultEndGrace - time.Millisecond)
	if len(expired) != 0 {
		t.Fatal("expired before the grace period")
	}
	clock.Advance(time.Millisecond)
	if len(expired) != 1 || expired[0] != "match-end" {
		t.Errorf("expired = %v", expired)
	}
	if m.Ticks() != ticks {
		t.Error("finished match kept ticking")
	}
}

func TestScoreNeverDecreases(t *testing.T) {
	clock := NewFakeClock(epoch)
	m := NewMatch(MatchConfig{ID: "m", Mode: pong.ModeLocal2P, Clock: clock, MaxScore: 50})
	_ = m.AddParticipant(human("p1", pong.SideLeft, nil))
	_ = m.AddParticipant(human("p2", pong.SideRight, nil))

	prev := m.State().Score
	for i := 0; i < 3000; i++ {
		clock.Advance(tickPeriod)
		cur := m.State().Score
		if cur.Left < prev.Left || cur.Right < prev.Right {
			t.Fatalf("score went from %+v to %+v", prev, cur)
		}
		prev = cur
	}
}

func TestTickPanicIsContained(t *testing.T) {
	clock := NewFakeClock(epoch)
	var faulted []MatchID

	m := NewMatch(MatchConfig{
		ID:      "match-bad",
		Mode:    pong.ModeSoloVsAI,
		Clock:   clock,
		OnFault: func(id MatchID, _ error) { faulted = append(faulted, id) },
	})
	_ = m.AddParticipant(human("p1", pong.SideLeft, nil))
	_ = m.AddParticipant(ParticipantConfig{ID: "ai-1", Side: pong.SideRight, Kind: KindAI, Controller: panicController{}})

	clock.Advance(tickPeriod)

	if len(faulted) != 1 || faulted[0] != "match-bad" {
		t.Fatalf("faulted = %v", faulted)
	}
	if m.Running() {
		t.Error("faulted match still running")
	}
	if clock.Pending() != 0 {
		t.Error("faulted match left its loop scheduled")
	}
	// The lock must have been released.
	_ = m.State()
}
