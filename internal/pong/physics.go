package pong

import (
	"math"

	"github.com/vovakirdan/pong-arena/internal/core"
)

// MaxBounceAngle is the steepest angle a paddle can send the ball at (60°).
const MaxBounceAngle = math.Pi / 3

// MaxServeAngle bounds the launch angle after a reset (30°).
const MaxServeAngle = math.Pi / 6

// Rand is the randomness the kernel needs. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// MoveBall integrates the ball's position linearly over dt seconds.
func MoveBall(b Ball, dt float64) Ball {
	b.Position = b.Position.Add(b.Velocity.Scale(dt))
	return b
}

// WallCollision returns the ball's velocity after checking the top and bottom
// walls. The vertical component is forced away from the touched wall with a
// sign flip; the horizontal component is untouched.
func (c Court) WallCollision(b Ball) core.Vec2 {
	v := b.Velocity
	if b.Position.Y-b.Radius <= 0 {
		v.Y = math.Abs(v.Y)
	} else if b.Position.Y+b.Radius >= c.Height {
		v.Y = -math.Abs(v.Y)
	}
	return v
}

// PaddleCollision reports whether the ball's bounding square overlaps the
// paddle rectangle on the given side.
func (c Court) PaddleCollision(b Ball, p Paddle, side Side) bool {
	px := c.PaddleX(side)
	py := p.Y * c.Height

	left := px - c.PaddleWidth/2
	right := px + c.PaddleWidth/2
	top := py - p.Height/2
	bottom := py + p.Height/2

	return b.Position.X-b.Radius <= right &&
		b.Position.X+b.Radius >= left &&
		b.Position.Y+b.Radius >= top &&
		b.Position.Y-b.Radius <= bottom
}

// Reflect returns the ball's velocity after bouncing off the paddle.
// The hit offset from the paddle center maps linearly onto [-60°, +60°],
// speed is preserved and the horizontal direction is reversed.
func (c Court) Reflect(b Ball, p Paddle) core.Vec2 {
	half := p.Height / 2
	rel := 0.0
	if half > 0 {
		rel = core.ClampF((b.Position.Y-p.Y*c.Height)/half, -1, 1)
	}
	angle := rel * MaxBounceAngle

	speed := math.Hypot(b.Velocity.X, b.Velocity.Y)
	direction := 1.0
	if b.Velocity.X > 0 {
		direction = -1
	}

	return core.Vec2{
		X: direction * speed * math.Cos(angle),
		Y: speed * math.Sin(angle),
	}
}

// Bounce reflects the ball off the paddle on the given side when it overlaps
// the paddle while travelling toward it. This is narrower than reflecting on
// every PaddleCollision overlap: a ball that is still inside the paddle after
// a reflection is moving away from it and is left alone, so it is not flipped
// back into the paddle on the next tick.
func (c Court) Bounce(b Ball, p Paddle, side Side) (core.Vec2, bool) {
	approaching := (side == SideLeft && b.Velocity.X < 0) ||
		(side == SideRight && b.Velocity.X > 0)
	if !approaching || !c.PaddleCollision(b, p, side) {
		return b.Velocity, false
	}
	return c.Reflect(b, p), true
}

// Goal reports which side conceded when the ball has left the court
// horizontally. The boundary values x == 0 and x == Width are still in play.
func (c Court) Goal(b Ball) (Side, bool) {
	if b.Position.X < 0 {
		return SideLeft, true
	}
	if b.Position.X > c.Width {
		return SideRight, true
	}
	return "", false
}

// ResetBall returns a ball at the court center launched at a random angle in
// [-30°, +30°] toward a random side.
func (c Court) ResetBall(rng Rand) Ball {
	angle := rng.Float64()*2*MaxServeAngle - MaxServeAngle
	direction := -1.0
	if rng.Float64() > 0.5 {
		direction = 1
	}

	return Ball{
		Position: core.V(c.Width/2, c.Height/2),
		Velocity: core.V(
			direction*c.BallSpeed*math.Cos(angle),
			c.BallSpeed*math.Sin(angle),
		),
		Radius: c.BallRadius,
	}
}

// MovePaddle applies one tick of input to the paddle. Up moves toward 0 and
// down toward 1; holding both cancels out. The result stays within [0, 1].
func MovePaddle(p Paddle, in Input, dt, courtHeight float64) Paddle {
	if courtHeight <= 0 {
		return p
	}
	step := p.Speed * dt / courtHeight
	switch {
	case in.Up && !in.Down:
		p.Y -= step
	case in.Down && !in.Up:
		p.Y += step
	}
	p.Y = core.ClampF(p.Y, 0, 1)
	return p
}
