package config

import "time"

// DifficultyPreset represents a named AI difficulty level.
type DifficultyPreset string

const (
	DifficultyEasy   DifficultyPreset = "easy"
	DifficultyNormal DifficultyPreset = "normal"
	DifficultyHard   DifficultyPreset = "hard"
)

// Presets lists the known presets from easiest to hardest.
var Presets = []DifficultyPreset{DifficultyEasy, DifficultyNormal, DifficultyHard}

// IsKnownPreset reports whether p names a preset.
func IsKnownPreset(p DifficultyPreset) bool {
	for _, known := range Presets {
		if p == known {
			return true
		}
	}
	return false
}

// AIForPreset returns the AI settings of a preset.
// Unknown presets fall back to normal.
func AIForPreset(p DifficultyPreset) AIConfig {
	switch p {
	case DifficultyEasy:
		return AIConfig{
			Difficulty: DifficultyEasy,
			Strategy:   "tracker",
			DeadZone:   40,
		}
	case DifficultyHard:
		return AIConfig{
			Difficulty:     DifficultyHard,
			Strategy:       "predictive",
			SampleInterval: 250 * time.Millisecond,
			DeadZone:       6,
		}
	default:
		return AIConfig{
			Difficulty:     DifficultyNormal,
			Strategy:       "predictive",
			SampleInterval: time.Second,
			DeadZone:       12,
		}
	}
}

// ApplyDifficultyPreset replaces the AI section with a preset.
func ApplyDifficultyPreset(cfg *Config, p DifficultyPreset) {
	cfg.AI = AIForPreset(p)
}
