package tui

import (
	"fmt"

	"github.com/vovakirdan/pong-arena/internal/core"
	"github.com/vovakirdan/pong-arena/internal/pong"
)

// Court glyphs.
const (
	BallChar   = '●'
	PaddleChar = '█'
	NetChar    = '┆'
	WallChar   = '─'
)

// Screen rows above the playing field: the score line and the top wall.
const fieldTop = 2

// CourtView describes what to draw besides the match state itself.
type CourtView struct {
	LeftLabel  string
	RightLabel string
	Banner     string // Large centered message, e.g. PAUSED
	Subtitle   string
}

// fieldRows returns the number of rows between the walls.
func fieldRows(dst *core.Screen) int {
	return dst.Height() - fieldTop - 1
}

// toCell maps a court position to screen coordinates.
func toCell(dst *core.Screen, court pong.Court, x, y float64) (int, int) {
	cols := dst.Width()
	rows := fieldRows(dst)
	cx := int(x/court.Width*float64(cols-1) + 0.5)
	cy := int(y/court.Height*float64(rows-1) + 0.5)
	return core.Clamp(cx, 0, cols-1), fieldTop + core.Clamp(cy, 0, rows-1)
}

// DrawCourt renders a match snapshot onto dst, scaling court units to the
// screen size. The screen needs at least 5 rows and 10 columns.
func DrawCourt(dst *core.Screen, court pong.Court, st pong.State, view CourtView) {
	dst.Clear()
	if dst.Width() < 10 || dst.Height() < 5 {
		dst.DrawText(0, 0, "terminal too small", core.ColorRed)
		return
	}

	w := dst.Width()
	rows := fieldRows(dst)

	// Score line
	score := fmt.Sprintf("%d  :  %d", st.Score.Left, st.Score.Right)
	dst.DrawTextCentered(0, score, core.ColorBrightWhite)
	dst.DrawText(1, 0, view.LeftLabel, core.ColorCyan)
	dst.DrawText(w-1-len([]rune(view.RightLabel)), 0, view.RightLabel, core.ColorYellow)

	// Walls
	for x := range w {
		dst.SetColored(x, fieldTop-1, WallChar, core.ColorGray)
		dst.SetColored(x, fieldTop+rows, WallChar, core.ColorGray)
	}

	// Net
	dst.DrawVLine(w/2, fieldTop, rows, NetChar, core.ColorGray)

	// Paddles
	for _, side := range pong.Sides {
		p := st.Paddles.Of(side)
		height := p.Height
		if height <= 0 {
			height = court.PaddleHeight
		}
		centerY := p.Y * court.Height
		x, top := toCell(dst, court, court.PaddleX(side), centerY-height/2)
		_, bottom := toCell(dst, court, court.PaddleX(side), centerY+height/2)
		color := core.ColorCyan
		if side == pong.SideRight {
			color = core.ColorYellow
		}
		for y := top; y <= bottom; y++ {
			dst.SetColored(x, y, PaddleChar, color)
		}
	}

	// Ball
	bx, by := toCell(dst, court, st.Ball.Position.X, st.Ball.Position.Y)
	dst.SetColored(bx, by, BallChar, core.ColorBrightWhite)

	if view.Banner != "" {
		drawCenteredMessage(dst, view.Banner, view.Subtitle)
	}
}

// drawCenteredMessage draws a message box in the center of the screen.
func drawCenteredMessage(dst *core.Screen, title, subtitle string) {
	boxW := core.Max(len([]rune(title)), len([]rune(subtitle))) + 4
	boxH := 4
	if subtitle != "" {
		boxH = 5
	}
	box := core.NewRect((dst.Width()-boxW)/2, (dst.Height()-boxH)/2, boxW, boxH)

	dst.DrawRect(box, ' ', core.ColorDefault)
	dst.DrawBox(box, core.ColorWhite)
	dst.DrawTextCentered(box.Y+1, title, core.ColorBrightWhite)
	if subtitle != "" {
		dst.DrawTextCentered(box.Y+3, subtitle, core.ColorGray)
	}
}
