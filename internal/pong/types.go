// Package pong implements the server-authoritative Pong rules: the physics
// kernel, the match state snapshot broadcast to clients, player input and the
// AI controllers that drive computer paddles.
//
// Everything here is pure game logic. Scheduling, transports and match
// bookkeeping live in the multiplayer package.
package pong

import (
	"fmt"

	"github.com/vovakirdan/pong-arena/internal/core"
)

// Side identifies one of the two paddle positions of a match.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Sides lists both sides in tick order.
var Sides = [2]Side{SideLeft, SideRight}

// Valid reports whether s names a real side.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// ParseSide converts a wire value into a Side.
func ParseSide(v string) (Side, error) {
	s := Side(v)
	if !s.Valid() {
		return "", fmt.Errorf("pong: invalid side %q", v)
	}
	return s, nil
}

// Mode defines how a match is configured.
type Mode string

const (
	// ModeSoloVsAI pairs one human with a computer paddle.
	ModeSoloVsAI Mode = "solo-vs-ai"

	// ModeLocal2P is two humans sharing one client.
	ModeLocal2P Mode = "local-2p"

	// ModeOnline2P is two humans on separate clients.
	ModeOnline2P Mode = "online-2p"
)

// ParseMode converts a wire value into a Mode.
func ParseMode(v string) (Mode, error) {
	switch m := Mode(v); m {
	case ModeSoloVsAI, ModeLocal2P, ModeOnline2P:
		return m, nil
	default:
		return "", fmt.Errorf("pong: invalid mode %q", v)
	}
}

// Status is the lifecycle phase of a match.
// Transitions are strictly waiting -> playing -> finished.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Ball is the ball's kinematic state in court units.
type Ball struct {
	Position core.Vec2 `json:"position"`
	Velocity core.Vec2 `json:"velocity"`
	Radius   float64   `json:"radius"`
}

// Paddle holds a paddle's normalized vertical center (0 = top, 1 = bottom)
// together with its height and speed in court units.
type Paddle struct {
	Y      float64 `json:"y"`
	Height float64 `json:"height"`
	Speed  float64 `json:"speed"`
}

// Paddles holds both paddles of a match.
type Paddles struct {
	Left  Paddle `json:"left"`
	Right Paddle `json:"right"`
}

// Of returns the paddle on the given side.
func (p Paddles) Of(side Side) Paddle {
	if side == SideLeft {
		return p.Left
	}
	return p.Right
}

// Ptr returns a pointer to the paddle on the given side.
func (p *Paddles) Ptr(side Side) *Paddle {
	if side == SideLeft {
		return &p.Left
	}
	return &p.Right
}

// Score is the points scored by each side.
type Score struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Of returns the points of the given side.
func (s Score) Of(side Side) int {
	if side == SideLeft {
		return s.Left
	}
	return s.Right
}

// Leader returns the side with more points. Ties go to the right side, which
// cannot happen for a finished match.
func (s Score) Leader() Side {
	if s.Left > s.Right {
		return SideLeft
	}
	return SideRight
}

// State is the full match snapshot broadcast to clients every tick.
type State struct {
	MatchID   string  `json:"matchId"`
	Mode      Mode    `json:"mode"`
	Status    Status  `json:"status"`
	Ball      Ball    `json:"ball"`
	Paddles   Paddles `json:"paddles"`
	Score     Score   `json:"score"`
	Timestamp int64   `json:"timestamp"` // Unix milliseconds of the last tick
}

// Input is the direction a participant holds. Up and down together cancel.
type Input struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// InputUpdate is a partial input change; nil fields keep their current value.
type InputUpdate struct {
	Up   *bool `json:"up,omitempty"`
	Down *bool `json:"down,omitempty"`
}

// Apply merges the update into in and returns the result.
func (u InputUpdate) Apply(in Input) Input {
	if u.Up != nil {
		in.Up = *u.Up
	}
	if u.Down != nil {
		in.Down = *u.Down
	}
	return in
}

// Full returns an update that replaces both flags.
func Full(in Input) InputUpdate {
	up, down := in.Up, in.Down
	return InputUpdate{Up: &up, Down: &down}
}
