package pong

import (
	"math"
	"testing"
	"time"

	"github.com/vovakirdan/pong-arena/internal/core"
)

func snapshot(ts int64, ballX, ballY float64) State {
	c := DefaultCourt()
	return State{
		MatchID:   "match-test",
		Mode:      ModeSoloVsAI,
		Status:    StatusPlaying,
		Ball:      ball(ballX, ballY, 0, 0),
		Paddles:   Paddles{Left: c.NewPaddle(), Right: c.NewPaddle()},
		Timestamp: ts,
	}
}

func TestPredictLanding(t *testing.T) {
	tests := []struct {
		name          string
		first, second core.Vec2
		planeX        float64
		expected      float64
	}{
		{"vertical trajectory", core.V(400, 100), core.V(400, 200), 800, 200},
		{"straight line", core.V(400, 300), core.V(500, 300), 800, 300},
		{"inside court", core.V(400, 300), core.V(500, 350), 800, 500},
		{"toward left plane", core.V(400, 300), core.V(500, 350), 0, 100},
		{"folds off bottom wall", core.V(0, 0), core.V(100, 500), 200, 200},
		{"folds off top wall", core.V(100, 100), core.V(200, 0), 400, 200},
		{"folds several times", core.V(0, 0), core.V(100, 600), 300, 600},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := PredictLanding(tc.first, tc.second, tc.planeX, 600)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("PredictLanding() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestPredictLandingStaysInCourt(t *testing.T) {
	for dy := -5000.0; dy <= 5000; dy += 37 {
		got := PredictLanding(core.V(400, 300), core.V(410, 300+dy), 800, 600)
		if got < 0 || got > 600 {
			t.Fatalf("dy=%v: landing %v outside court", dy, got)
		}
	}
}

func TestPredictiveNeedsTwoSamples(t *testing.T) {
	ai := NewPredictive(DefaultCourt(), AIOptions{})

	if in := ai.Decide(snapshot(0, 400, 300), SideRight); in != (Input{}) {
		t.Errorf("first decision = %+v, expected idle", in)
	}
	// Within the sample interval, no new sample is taken.
	if in := ai.Decide(snapshot(500, 450, 500), SideRight); in != (Input{}) {
		t.Errorf("decision before second sample = %+v, expected idle", in)
	}
	if ai.samples != 1 {
		t.Errorf("samples = %d, expected 1", ai.samples)
	}

	// Second sample: (400,300) -> (500,350) lands at y=500 on the right plane.
	if in := ai.Decide(snapshot(1000, 500, 350), SideRight); in != (Input{Down: true}) {
		t.Errorf("decision = %+v, expected down", in)
	}
}

func TestPredictiveSides(t *testing.T) {
	ai := NewPredictive(DefaultCourt(), AIOptions{SampleInterval: 100 * time.Millisecond})
	ai.Decide(snapshot(0, 400, 300), SideLeft)

	// Same trajectory lands at y=100 on the left plane.
	if in := ai.Decide(snapshot(100, 500, 350), SideLeft); in != (Input{Up: true}) {
		t.Errorf("decision = %+v, expected up", in)
	}
}

func TestPredictiveDeadZone(t *testing.T) {
	ai := NewPredictive(DefaultCourt(), AIOptions{})
	ai.Decide(snapshot(0, 400, 300), SideRight)

	// Lands at 305, within the default dead zone of the centered paddle.
	if in := ai.Decide(snapshot(1000, 500, 301.25), SideRight); in != (Input{}) {
		t.Errorf("decision = %+v, expected idle inside dead zone", in)
	}
}

func TestPredictiveKeepsPredictionBetweenSamples(t *testing.T) {
	ai := NewPredictive(DefaultCourt(), AIOptions{})
	ai.Decide(snapshot(0, 400, 300), SideRight)
	ai.Decide(snapshot(1000, 500, 350), SideRight)

	// The ball position changes but the prediction is only refreshed on the
	// next sample, so the controller keeps heading down.
	if in := ai.Decide(snapshot(1200, 300, 50), SideRight); in != (Input{Down: true}) {
		t.Errorf("decision = %+v, expected down", in)
	}
}

func TestTracker(t *testing.T) {
	ai := NewTracker(DefaultCourt(), AIOptions{})

	tests := []struct {
		name     string
		ballY    float64
		expected Input
	}{
		{"ball below", 400, Input{Down: true}},
		{"ball above", 200, Input{Up: true}},
		{"ball inside dead zone", 310, Input{}},
		{"ball at dead zone edge", 320, Input{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ai.Decide(snapshot(0, 400, tc.ballY), SideLeft); got != tc.expected {
				t.Errorf("Decide() = %+v, expected %+v", got, tc.expected)
			}
		})
	}
}
