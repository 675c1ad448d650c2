package pong

import (
	"math"
	"time"

	"github.com/vovakirdan/pong-arena/internal/core"
)

// Default AI tuning.
const (
	DefaultSampleInterval   = time.Second
	DefaultPredictDeadZone  = 12.0
	DefaultTrackingDeadZone = 20.0
)

// Controller decides the input of a computer paddle.
// The match calls Decide once per tick with the snapshot from the previous
// tick. Implementations may keep memory across calls but must not retain
// or modify the snapshot.
type Controller interface {
	Decide(state State, side Side) Input
}

// AIOptions tunes the built-in controllers. Zero values select defaults.
type AIOptions struct {
	SampleInterval time.Duration
	DeadZone       float64
}

// Predictive samples the ball once per interval, extrapolates the line
// through the last two samples to its own paddle plane (folding the result
// back into the court like wall bounces) and steers toward it.
//
// It uses the snapshot timestamp as its clock, so it behaves the same under a
// real or a simulated clock.
type Predictive struct {
	court    Court
	interval int64 // milliseconds
	deadZone float64

	prev, last   core.Vec2
	samples      int
	lastSampleAt int64
}

// NewPredictive creates a predictive controller for the court.
func NewPredictive(court Court, opts AIOptions) *Predictive {
	interval := opts.SampleInterval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	deadZone := opts.DeadZone
	if deadZone <= 0 {
		deadZone = DefaultPredictDeadZone
	}
	return &Predictive{
		court:    court,
		interval: interval.Milliseconds(),
		deadZone: deadZone,
	}
}

// Decide implements Controller.
func (p *Predictive) Decide(state State, side Side) Input {
	now := state.Timestamp
	if p.samples == 0 || now-p.lastSampleAt >= p.interval {
		p.prev = p.last
		p.last = state.Ball.Position
		p.lastSampleAt = now
		p.samples++
	}

	if p.samples < 2 {
		return Input{}
	}

	planeX := 0.0
	if side == SideRight {
		planeX = p.court.Width
	}
	target := PredictLanding(p.prev, p.last, planeX, p.court.Height)
	paddleY := state.Paddles.Of(side).Y * p.court.Height

	return steer(target, paddleY, p.deadZone)
}

// PredictLanding extrapolates the line through first and second to x = planeX
// and folds the result into [0, height] as if it bounced off the walls.
// A vertical trajectory lands at second.Y.
func PredictLanding(first, second core.Vec2, planeX, height float64) float64 {
	dx := second.X - first.X
	if dx == 0 {
		return second.Y
	}
	slope := (second.Y - first.Y) / dx
	y := second.Y + slope*(planeX-second.X)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return second.Y
	}
	return fold(y, height)
}

// fold mirrors y at 0 and height until it lies within [0, height]. Repeated
// mirroring is a triangle wave with period 2*height, computed directly.
func fold(y, height float64) float64 {
	if height <= 0 {
		return 0
	}
	if y >= 0 && y <= height {
		return y
	}
	period := 2 * height
	y = math.Mod(y, period)
	if y < 0 {
		y += period
	}
	if y > height {
		y = period - y
	}
	return y
}

// Tracker follows the ball's current height. It is weaker than Predictive and
// mostly useful for practice matches.
type Tracker struct {
	court    Court
	deadZone float64
}

// NewTracker creates a tracking controller for the court.
func NewTracker(court Court, opts AIOptions) *Tracker {
	deadZone := opts.DeadZone
	if deadZone <= 0 {
		deadZone = DefaultTrackingDeadZone
	}
	return &Tracker{court: court, deadZone: deadZone}
}

// Decide implements Controller.
func (t *Tracker) Decide(state State, side Side) Input {
	paddleY := state.Paddles.Of(side).Y * t.court.Height
	return steer(state.Ball.Position.Y, paddleY, t.deadZone)
}

// steer moves toward target, staying still inside the dead zone.
func steer(target, paddleY, deadZone float64) Input {
	switch {
	case target > paddleY+deadZone:
		return Input{Down: true}
	case target < paddleY-deadZone:
		return Input{Up: true}
	default:
		return Input{}
	}
}
