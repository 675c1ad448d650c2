package core

// Color represents a foreground color for a screen cell.
// The platform layer maps it to ANSI colors.
type Color uint8

// Colors used for court elements.
const (
	ColorDefault Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorCyan
	ColorWhite
	ColorBrightWhite
	ColorGray
)
