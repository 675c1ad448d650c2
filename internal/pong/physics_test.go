package pong

import (
	"math"
	"math/rand"
	"testing"

	"github.com/vovakirdan/pong-arena/internal/core"
)

const epsilon = 1e-9

// seqRand replays a fixed sequence of values.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func ball(x, y, vx, vy float64) Ball {
	return Ball{Position: core.V(x, y), Velocity: core.V(vx, vy), Radius: DefaultBallRadius}
}

func TestMoveBall(t *testing.T) {
	b := ball(100, 100, 300, -60)
	moved := MoveBall(b, 0.5)

	if moved.Position != core.V(250, 70) {
		t.Errorf("MoveBall() position = %+v, expected (250, 70)", moved.Position)
	}
	if moved.Velocity != b.Velocity || moved.Radius != b.Radius {
		t.Error("MoveBall() must only change the position")
	}
	if b.Position != core.V(100, 100) {
		t.Error("MoveBall() must not mutate its argument")
	}
}

func TestWallCollision(t *testing.T) {
	c := DefaultCourt()

	tests := []struct {
		name     string
		b        Ball
		expected core.Vec2
	}{
		{"top wall moving up", ball(400, 5, 120, -100), core.V(120, 100)},
		{"top wall exactly touching", ball(400, 8, 120, -100), core.V(120, 100)},
		{"top wall already moving down", ball(400, 5, 120, 100), core.V(120, 100)},
		{"bottom wall moving down", ball(400, 595, -50, 80), core.V(-50, -80)},
		{"bottom wall exactly touching", ball(400, 592, -50, 80), core.V(-50, -80)},
		{"bottom wall already moving up", ball(400, 595, -50, -80), core.V(-50, -80)},
		{"mid court", ball(400, 300, 10, -20), core.V(10, -20)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.WallCollision(tc.b)
			if got != tc.expected {
				t.Errorf("WallCollision() = %+v, expected %+v", got, tc.expected)
			}
		})
	}
}

func TestWallReflectionSign(t *testing.T) {
	c := DefaultCourt()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 1000; i++ {
		vx := rng.Float64()*600 - 300
		vy := -rng.Float64() * 300
		y := rng.Float64() * DefaultBallRadius // y - radius <= 0
		b := ball(400, y, vx, vy)

		got := c.WallCollision(b)
		if got.Y < 0 {
			t.Fatalf("vy = %v after top wall hit, expected >= 0", got.Y)
		}
		if got.X != vx {
			t.Fatalf("vx changed from %v to %v", vx, got.X)
		}
	}
}

func TestPaddleCollision(t *testing.T) {
	c := DefaultCourt()
	p := c.NewPaddle() // centered at y=300, spans 260..340

	tests := []struct {
		name     string
		b        Ball
		side     Side
		expected bool
	}{
		{"left paddle center", ball(30, 300, -300, 0), SideLeft, true},
		{"left paddle just out of reach", ball(34, 300, -300, 0), SideLeft, false},
		{"left paddle touching edge", ball(33, 300, -300, 0), SideLeft, true},
		{"left paddle below", ball(20, 349, -300, 0), SideLeft, false},
		{"left paddle corner overlap", ball(20, 345, -300, 0), SideLeft, true},
		{"left paddle above", ball(20, 251, -300, 0), SideLeft, false},
		{"right paddle center", ball(770, 300, 300, 0), SideRight, true},
		{"right paddle short", ball(766, 300, 300, 0), SideRight, false},
		{"ball overlapping left paddle from behind", ball(10, 300, -300, 0), SideLeft, true},
		{"ball past left paddle", ball(5, 300, -300, 0), SideLeft, false},
		{"right side ball tested against left", ball(770, 300, 300, 0), SideLeft, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.PaddleCollision(tc.b, p, tc.side); got != tc.expected {
				t.Errorf("PaddleCollision() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestReflectCenterHit(t *testing.T) {
	c := DefaultCourt()
	p := c.NewPaddle()

	got := c.Reflect(ball(770, 300, 300, 0), p)
	if math.Abs(got.X+300) > epsilon || math.Abs(got.Y) > epsilon {
		t.Errorf("Reflect() = %+v, expected (-300, 0)", got)
	}

	got = c.Reflect(ball(30, 300, -300, 0), p)
	if math.Abs(got.X-300) > epsilon || math.Abs(got.Y) > epsilon {
		t.Errorf("Reflect() = %+v, expected (300, 0)", got)
	}
}

func TestReflectEdgeHit(t *testing.T) {
	c := DefaultCourt()
	p := c.NewPaddle()

	// Bottom edge of the paddle: +60°
	got := c.Reflect(ball(770, 340, 300, 0), p)
	wantX := -300 * math.Cos(math.Pi/3)
	wantY := 300 * math.Sin(math.Pi/3)
	if math.Abs(got.X-wantX) > epsilon || math.Abs(got.Y-wantY) > epsilon {
		t.Errorf("Reflect() = %+v, expected (%v, %v)", got, wantX, wantY)
	}

	// Top edge: -60°
	got = c.Reflect(ball(770, 260, 300, 0), p)
	if math.Abs(got.Y+wantY) > epsilon {
		t.Errorf("Reflect().Y = %v, expected %v", got.Y, -wantY)
	}
}

func TestReflectPreservesSpeedAndBoundsAngle(t *testing.T) {
	c := DefaultCourt()
	p := c.NewPaddle()
	half := p.Height / 2

	for i := -150; i <= 150; i++ {
		rel := float64(i) / 100 // -1.5 .. 1.5, clamped by Reflect
		for _, v := range []core.Vec2{core.V(300, 0), core.V(-250, 120), core.V(180, -240)} {
			b := ball(400, 300+rel*half, v.X, v.Y)
			got := c.Reflect(b, p)

			if math.Abs(got.Len()-v.Len()) > 1e-6 {
				t.Fatalf("rel=%v: speed %v, expected %v", rel, got.Len(), v.Len())
			}

			angle := math.Atan2(math.Abs(got.Y), math.Abs(got.X))
			if angle > math.Pi/3+epsilon {
				t.Fatalf("rel=%v: angle %v exceeds π/3", rel, angle)
			}

			if math.Signbit(got.X) == math.Signbit(v.X) {
				t.Fatalf("rel=%v: horizontal direction not reversed (%v -> %v)", rel, v.X, got.X)
			}
		}
	}
}

func TestBounceOnlyWhenApproaching(t *testing.T) {
	c := DefaultCourt()
	p := c.NewPaddle()

	v, hit := c.Bounce(ball(30, 300, -300, 0), p, SideLeft)
	if !hit || v.X <= 0 {
		t.Errorf("Bounce() = %+v, %v; expected a hit sending the ball right", v, hit)
	}

	// Same overlap but already moving away
	v, hit = c.Bounce(ball(30, 300, 300, 0), p, SideLeft)
	if hit || v != core.V(300, 0) {
		t.Errorf("Bounce() = %+v, %v; expected no change", v, hit)
	}

	v, hit = c.Bounce(ball(770, 300, -300, 0), p, SideRight)
	if hit || v != core.V(-300, 0) {
		t.Errorf("Bounce() = %+v, %v; expected no change", v, hit)
	}
}

func TestGoal(t *testing.T) {
	c := DefaultCourt()

	tests := []struct {
		name     string
		x        float64
		side     Side
		expected bool
	}{
		{"left boundary is in play", 0, "", false},
		{"just past left", -0.0001, SideLeft, true},
		{"far past left", -50, SideLeft, true},
		{"center", 400, "", false},
		{"right boundary is in play", 800, "", false},
		{"just past right", 800.0001, SideRight, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			side, ok := c.Goal(ball(tc.x, 300, 0, 0))
			if ok != tc.expected || side != tc.side {
				t.Errorf("Goal() = %q, %v; expected %q, %v", side, ok, tc.side, tc.expected)
			}
		})
	}
}

func TestResetBall(t *testing.T) {
	c := DefaultCourt()

	b := c.ResetBall(&seqRand{vals: []float64{0.5, 0.9}})
	if b.Position != core.V(400, 300) {
		t.Errorf("ResetBall() position = %+v, expected court center", b.Position)
	}
	if math.Abs(b.Velocity.X-300) > epsilon || math.Abs(b.Velocity.Y) > epsilon {
		t.Errorf("ResetBall() velocity = %+v, expected (300, 0)", b.Velocity)
	}
	if b.Radius != DefaultBallRadius {
		t.Errorf("ResetBall() radius = %v", b.Radius)
	}

	b = c.ResetBall(&seqRand{vals: []float64{0, 0.1}})
	if math.Abs(b.Velocity.X+300*math.Cos(math.Pi/6)) > epsilon {
		t.Errorf("ResetBall() vx = %v, expected leftward at -30°", b.Velocity.X)
	}
	if math.Abs(b.Velocity.Y+150) > epsilon {
		t.Errorf("ResetBall() vy = %v, expected -150", b.Velocity.Y)
	}
}

func TestResetBallAngleBound(t *testing.T) {
	c := DefaultCourt()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		b := c.ResetBall(rng)
		angle := math.Atan2(math.Abs(b.Velocity.Y), math.Abs(b.Velocity.X))
		if angle > math.Pi/6+epsilon {
			t.Fatalf("serve angle %v exceeds 30°", angle)
		}
		if math.Abs(b.Velocity.Len()-c.BallSpeed) > 1e-6 {
			t.Fatalf("serve speed %v, expected %v", b.Velocity.Len(), c.BallSpeed)
		}
	}
}

func TestMovePaddle(t *testing.T) {
	c := DefaultCourt()
	dt := 1.0 / 60
	step := c.PaddleSpeed * dt / c.Height

	tests := []struct {
		name     string
		startY   float64
		in       Input
		expected float64
	}{
		{"idle", 0.5, Input{}, 0.5},
		{"up", 0.5, Input{Up: true}, 0.5 - step},
		{"down", 0.5, Input{Down: true}, 0.5 + step},
		{"both cancel", 0.5, Input{Up: true, Down: true}, 0.5},
		{"both cancel at top", 0, Input{Up: true, Down: true}, 0},
		{"both cancel at bottom", 1, Input{Up: true, Down: true}, 1},
		{"clamped at top", step / 2, Input{Up: true}, 0},
		{"clamped at bottom", 1 - step/2, Input{Down: true}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := c.NewPaddle()
			p.Y = tc.startY
			got := MovePaddle(p, tc.in, dt, c.Height)
			if math.Abs(got.Y-tc.expected) > epsilon {
				t.Errorf("MovePaddle() y = %v, expected %v", got.Y, tc.expected)
			}
		})
	}
}

func TestMovePaddleStaysInRange(t *testing.T) {
	c := DefaultCourt()
	rng := rand.New(rand.NewSource(99))
	p := c.NewPaddle()

	for i := 0; i < 10000; i++ {
		in := Input{Up: rng.Intn(2) == 0, Down: rng.Intn(3) == 0}
		dt := rng.Float64() * 2 // includes huge steps
		p = MovePaddle(p, in, dt, c.Height)
		if p.Y < 0 || p.Y > 1 {
			t.Fatalf("paddle y = %v escaped [0, 1] at step %d", p.Y, i)
		}
	}
}

func TestInputUpdateMerge(t *testing.T) {
	up, down, no := true, true, false

	in := InputUpdate{Up: &up}.Apply(Input{})
	in = InputUpdate{Down: &down}.Apply(in)
	if !in.Up || !in.Down {
		t.Errorf("merge = %+v, expected both flags set", in)
	}

	in = InputUpdate{Up: &no}.Apply(in)
	if in.Up || !in.Down {
		t.Errorf("merge = %+v, expected only down", in)
	}

	if got := Full(Input{Up: true}).Apply(Input{Down: true}); got != (Input{Up: true}) {
		t.Errorf("Full() merge = %+v, expected replacement", got)
	}
}

func TestParseModeAndSide(t *testing.T) {
	for _, v := range []string{"solo-vs-ai", "local-2p", "online-2p"} {
		if _, err := ParseMode(v); err != nil {
			t.Errorf("ParseMode(%q) failed: %v", v, err)
		}
	}
	if _, err := ParseMode("battle-royale"); err == nil {
		t.Error("ParseMode() should reject unknown modes")
	}

	if s, err := ParseSide("left"); err != nil || s != SideLeft {
		t.Errorf("ParseSide(left) = %q, %v", s, err)
	}
	if _, err := ParseSide("middle"); err == nil {
		t.Error("ParseSide() should reject unknown sides")
	}
	if SideLeft.Opponent() != SideRight || SideRight.Opponent() != SideLeft {
		t.Error("Opponent() mismatch")
	}
}
