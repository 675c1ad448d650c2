package tui

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/pong"
	"github.com/vovakirdan/pong-arena/internal/server"
)

func boolPtr(b bool) *bool { return &b }

func newFakeRegistry(t *testing.T) (*multiplayer.Registry, *multiplayer.FakeClock) {
	t.Helper()
	clock := multiplayer.NewFakeClock(t0)
	r := multiplayer.NewRegistry(multiplayer.DefaultRegistryConfig(), multiplayer.WithClock(clock))
	t.Cleanup(r.Close)
	return r, clock
}

func nextFrame(t *testing.T, frames <-chan []byte) multiplayer.ServerMessage {
	t.Helper()
	select {
	case frame, ok := <-frames:
		require.True(t, ok, "frames closed")
		var msg multiplayer.ServerMessage
		require.NoError(t, json.Unmarshal(frame, &msg))
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return multiplayer.ServerMessage{}
	}
}

func TestLocalLinkPlaysMatch(t *testing.T) {
	registry, clock := newFakeRegistry(t)
	id, err := registry.CreateMatch(pong.ModeLocal2P, "local")
	require.NoError(t, err)

	link, err := JoinLocal(registry, id, Seat{PlayerID: "p1"}, Seat{PlayerID: "p2"})
	require.NoError(t, err)
	assert.Equal(t, []Seat{
		{PlayerID: "p1", Side: pong.SideLeft},
		{PlayerID: "p2", Side: pong.SideRight},
	}, link.Seats())
	assert.Equal(t, id, link.MatchID())

	clock.Advance(time.Second / 60)
	msg := nextFrame(t, link.Frames())
	assert.Equal(t, multiplayer.MsgGameState, msg.Type)
	st, err := msg.State()
	require.NoError(t, err)
	assert.Equal(t, pong.StatusPlaying, st.Status)

	require.NoError(t, link.SendInput("p2", pong.InputUpdate{Down: boolPtr(true)}))
	m, ok := registry.Match(id)
	require.True(t, ok)
	in, _ := m.Input("p2")
	assert.Equal(t, pong.Input{Down: true}, in)

	require.NoError(t, link.Pause())
	assert.False(t, m.Running())
	require.NoError(t, link.Resume())
	assert.True(t, m.Running())

	require.NoError(t, link.Close())
	require.NoError(t, link.Close())
	assert.Equal(t, 0, registry.MatchCount())
	assert.ErrorIs(t, link.SendInput("p1", pong.InputUpdate{}), multiplayer.ErrMatchNotFound)

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-link.Frames():
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 3*time.Second, 10*time.Millisecond)
}

func TestJoinLocalErrors(t *testing.T) {
	registry, _ := newFakeRegistry(t)
	id, err := registry.CreateMatch(pong.ModeOnline2P, "full")
	require.NoError(t, err)

	_, err = JoinLocal(registry, id)
	assert.Error(t, err)

	_, err = JoinLocal(registry, "missing", Seat{PlayerID: "p1"})
	assert.ErrorIs(t, err, multiplayer.ErrMatchNotFound)

	_, err = JoinLocal(registry, id, Seat{PlayerID: "a"}, Seat{PlayerID: "b"}, Seat{PlayerID: "c"})
	assert.ErrorIs(t, err, multiplayer.ErrMatchFull)
	// The failed join takes the seats it already claimed with it.
	assert.Equal(t, 0, registry.MatchCount())
}

type remoteEnv struct {
	registry *multiplayer.Registry
	clock    *multiplayer.FakeClock
	http     *httptest.Server
	client   *Client
}

func newRemoteEnv(t *testing.T) *remoteEnv {
	t.Helper()
	registry, clock := newFakeRegistry(t)
	srv := server.New(server.DefaultConfig(), registry, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		ts.Close()
	})
	return &remoteEnv{registry: registry, clock: clock, http: ts, client: NewClient(ts.URL + "/")}
}

func TestWSLinkPlaysMatch(t *testing.T) {
	env := newRemoteEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	created, err := env.client.CreateMatch(ctx, pong.ModeLocal2P, "remote")
	require.NoError(t, err)
	assert.Equal(t, multiplayer.MatchID("remote"), created.MatchID)

	wsURL, err := env.client.WebSocketURL(created.WSURL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(wsURL, "ws://"))

	link, err := DialMatch(ctx, wsURL, created.MatchID,
		Seat{PlayerID: "p1", Side: pong.SideRight}, Seat{PlayerID: "p2"})
	require.NoError(t, err)
	defer link.Close()
	assert.Equal(t, []Seat{
		{PlayerID: "p1", Side: pong.SideRight},
		{PlayerID: "p2", Side: pong.SideLeft},
	}, link.Seats())

	m, ok := env.registry.Match(created.MatchID)
	require.True(t, ok)
	require.Equal(t, pong.StatusPlaying, m.Status())

	require.NoError(t, link.SendInput("p1", pong.InputUpdate{Up: boolPtr(true)}))
	require.Eventually(t, func() bool {
		in, _ := m.Input("p1")
		return in.Up
	}, 3*time.Second, 10*time.Millisecond)

	env.clock.Advance(time.Second / 60)
	for {
		if msg := nextFrame(t, link.Frames()); msg.Type == multiplayer.MsgGameState {
			break
		}
	}

	require.NoError(t, link.Pause())
	require.Eventually(t, func() bool { return !m.Running() }, 3*time.Second, 10*time.Millisecond)
	require.NoError(t, link.Resume())
	require.Eventually(t, m.Running, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, link.Close())
	require.Eventually(t, func() bool { return env.registry.MatchCount() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestDialMatchJoinError(t *testing.T) {
	env := newRemoteEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	wsURL, err := env.client.WebSocketURL("/ws/game")
	require.NoError(t, err)

	_, err = DialMatch(ctx, wsURL, "missing", Seat{PlayerID: "p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match not found")

	_, err = DialMatch(ctx, wsURL, "missing")
	assert.Error(t, err)
}

func TestClientErrorsAndHistory(t *testing.T) {
	env := newRemoteEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := env.client.CreateMatch(ctx, "tennis", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tui: POST /game/create")

	_, err = env.client.CreateMatch(ctx, pong.ModeOnline2P, "dup")
	require.NoError(t, err)
	_, err = env.client.CreateMatch(ctx, pong.ModeOnline2P, "dup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match already exists")

	env.registry.RecordResult(multiplayer.MatchResult{
		MatchID: "old",
		Mode:    pong.ModeOnline2P,
		Players: multiplayer.Players{
			Left:  multiplayer.PlayerRef{ID: "ann", Kind: multiplayer.KindHumanSocket},
			Right: multiplayer.PlayerRef{ID: "bob", Kind: multiplayer.KindHumanSocket},
		},
		Score:  pong.Score{Left: 5, Right: 2},
		Winner: pong.SideLeft,
	})

	history, err := env.client.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, multiplayer.MatchID("old"), history[0].MatchID)

	stats, err := env.client.Stats(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stats.Wins)
	assert.Len(t, stats.History, 1)

	stats, err = env.client.Stats(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stats.Losses)
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws/game"},
		{"https://arena.example.com/", "wss://arena.example.com/ws/game"},
	}
	for _, tt := range tests {
		got, err := NewClient(tt.base).WebSocketURL("/ws/game")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
