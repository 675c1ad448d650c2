package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vovakirdan/pong-arena/internal/pong"
)

// DefaultReleaseAfter is how long a direction key counts as held after its
// last press or auto-repeat. Terminals report no key-up events, so a key
// that stops repeating is treated as released.
const DefaultReleaseAfter = 180 * time.Millisecond

// PaddleKeys are the bindings that steer one paddle.
type PaddleKeys struct {
	Up   key.Binding
	Down key.Binding
}

// MatchKeyMap defines the key bindings of the match screen.
type MatchKeyMap struct {
	Left  PaddleKeys
	Right PaddleKeys
	Pause key.Binding
	Help  key.Binding
	Quit  key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k MatchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left.Up, k.Left.Down, k.Pause, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k MatchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left.Up, k.Left.Down, k.Right.Up, k.Right.Down},
		{k.Pause, k.Help, k.Quit},
	}
}

// SinglePlayerKeyMap lets one player steer with either w/s or the arrows.
// Both paddle slots share the bindings; only the occupied one is used.
func SinglePlayerKeyMap() MatchKeyMap {
	keys := PaddleKeys{
		Up: key.NewBinding(
			key.WithKeys("w", "up", "k"),
			key.WithHelp("w/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("s", "down", "j"),
			key.WithHelp("s/↓", "down"),
		),
	}
	km := commonKeys()
	km.Left, km.Right = keys, keys
	return km
}

// LocalKeyMap splits the keyboard: w/s for the left paddle, arrows for the right.
func LocalKeyMap() MatchKeyMap {
	km := commonKeys()
	km.Left = PaddleKeys{
		Up:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "left up")),
		Down: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "left down")),
	}
	km.Right = PaddleKeys{
		Up:   key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "right up")),
		Down: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "right down")),
	}
	return km
}

func commonKeys() MatchKeyMap {
	return MatchKeyMap{
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p", "pause"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// For returns the bindings of a side.
func (k MatchKeyMap) For(side pong.Side) PaddleKeys {
	if side == pong.SideLeft {
		return k.Left
	}
	return k.Right
}

// direction is one held key of one seat.
type direction struct {
	seat int
	up   bool
}

// HeldKeys infers key releases from the auto-repeat stream.
type HeldKeys struct {
	releaseAfter time.Duration
	lastSeen     map[direction]time.Time
}

// NewHeldKeys creates a tracker. A zero releaseAfter uses DefaultReleaseAfter.
func NewHeldKeys(releaseAfter time.Duration) *HeldKeys {
	if releaseAfter <= 0 {
		releaseAfter = DefaultReleaseAfter
	}
	return &HeldKeys{
		releaseAfter: releaseAfter,
		lastSeen:     make(map[direction]time.Time),
	}
}

// Press records a press of a direction key and returns the input update to
// send, or nil when the key was already held.
// Pressing the opposite direction releases the other one at once.
func (h *HeldKeys) Press(seat int, up bool, now time.Time) *pong.InputUpdate {
	d := direction{seat: seat, up: up}
	_, held := h.lastSeen[d]
	h.lastSeen[d] = now

	opposite := direction{seat: seat, up: !up}
	_, oppositeHeld := h.lastSeen[opposite]
	delete(h.lastSeen, opposite)

	if held && !oppositeHeld {
		return nil
	}
	update := pong.Full(pong.Input{Up: up, Down: !up})
	return &update
}

// Expire releases every key not seen for the release period. It returns the
// updates to send, keyed by seat.
func (h *HeldKeys) Expire(now time.Time) map[int]pong.InputUpdate {
	var out map[int]pong.InputUpdate
	for d, seen := range h.lastSeen {
		if now.Sub(seen) >= h.releaseAfter {
			out = h.release(d, out)
		}
	}
	return out
}

// ReleaseAll forgets every held key and returns updates clearing them.
func (h *HeldKeys) ReleaseAll() map[int]pong.InputUpdate {
	var out map[int]pong.InputUpdate
	for d := range h.lastSeen {
		out = h.release(d, out)
	}
	return out
}

func (h *HeldKeys) release(d direction, out map[int]pong.InputUpdate) map[int]pong.InputUpdate {
	delete(h.lastSeen, d)
	if out == nil {
		out = make(map[int]pong.InputUpdate)
	}
	u := out[d.seat]
	released := false
	if d.up {
		u.Up = &released
	} else {
		u.Down = &released
	}
	out[d.seat] = u
	return out
}

// Held reports whether a direction of a seat is currently held.
func (h *HeldKeys) Held(seat int, up bool) bool {
	_, ok := h.lastSeen[direction{seat: seat, up: up}]
	return ok
}

// releaseTickMsg drives release detection.
type releaseTickMsg time.Time

// releaseTick returns a command that fires a releaseTickMsg after interval.
func releaseTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return releaseTickMsg(t)
	})
}
