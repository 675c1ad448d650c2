package pong

// Default court geometry in virtual pixels.
const (
	DefaultCourtWidth   = 800
	DefaultCourtHeight  = 600
	DefaultBallRadius   = 8
	DefaultBallSpeed    = 300 // units per second
	DefaultPaddleWidth  = 10
	DefaultPaddleHeight = 80
	DefaultPaddleSpeed  = 400 // units per second
	DefaultPaddleOffset = 20  // distance from the court edge
)

// Court is the fixed geometry every kernel function works against.
// It is a plain value; kernel methods never mutate it.
type Court struct {
	Width        float64
	Height       float64
	BallRadius   float64
	BallSpeed    float64
	PaddleWidth  float64
	PaddleHeight float64
	PaddleSpeed  float64
	PaddleOffset float64
}

// DefaultCourt returns the standard 800x600 court.
func DefaultCourt() Court {
	return Court{
		Width:        DefaultCourtWidth,
		Height:       DefaultCourtHeight,
		BallRadius:   DefaultBallRadius,
		BallSpeed:    DefaultBallSpeed,
		PaddleWidth:  DefaultPaddleWidth,
		PaddleHeight: DefaultPaddleHeight,
		PaddleSpeed:  DefaultPaddleSpeed,
		PaddleOffset: DefaultPaddleOffset,
	}
}

// NewPaddle returns a paddle centered vertically.
func (c Court) NewPaddle() Paddle {
	return Paddle{
		Y:      0.5,
		Height: c.PaddleHeight,
		Speed:  c.PaddleSpeed,
	}
}

// PaddleX returns the horizontal center of the paddle on the given side.
func (c Court) PaddleX(side Side) float64 {
	if side == SideLeft {
		return c.PaddleOffset
	}
	return c.Width - c.PaddleOffset
}
