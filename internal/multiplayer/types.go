// Package multiplayer runs Pong matches: the per-match tick loop, the registry
// of live matches, participant transports and the wire messages exchanged with
// clients.
package multiplayer

import (
	"time"

	"github.com/vovakirdan/pong-arena/internal/pong"
)

// MatchID uniquely identifies a match.
type MatchID string

// ControllerKind describes who drives a participant's paddle.
type ControllerKind string

const (
	// KindAI is a computer paddle driven by a pong.Controller.
	KindAI ControllerKind = "ai"

	// KindHumanSocket is a human connected over a streaming transport.
	KindHumanSocket ControllerKind = "human-socket"

	// KindHumanPoll is a human sending inputs over plain HTTP requests.
	KindHumanPoll ControllerKind = "human-poll"
)

// Valid reports whether k is a known controller kind.
func (k ControllerKind) Valid() bool {
	switch k {
	case KindAI, KindHumanSocket, KindHumanPoll:
		return true
	default:
		return false
	}
}

// IsHuman reports whether the participant is driven by a person.
func (k ControllerKind) IsHuman() bool {
	return k == KindHumanSocket || k == KindHumanPoll
}

// ParticipantConfig describes a participant to admit into a match.
type ParticipantConfig struct {
	ID   string
	Side pong.Side
	Kind ControllerKind

	// Controller is required for KindAI and ignored otherwise.
	Controller pong.Controller

	// Transport receives state broadcasts. Optional; poll participants
	// usually have none.
	Transport Transport
}

// Participant is the public view of an admitted participant.
type Participant struct {
	ID   string         `json:"id"`
	Side pong.Side      `json:"side"`
	Kind ControllerKind `json:"type"`
}

// PlayerRef identifies who played one side of a finished match.
type PlayerRef struct {
	ID   string         `json:"id"`
	Kind ControllerKind `json:"type"`
}

// Players holds both sides of a finished match.
type Players struct {
	Left  PlayerRef `json:"left"`
	Right PlayerRef `json:"right"`
}

// Of returns the player on the given side.
func (p Players) Of(side pong.Side) PlayerRef {
	if side == pong.SideLeft {
		return p.Left
	}
	return p.Right
}

// SideOf returns the side playerID played on.
func (p Players) SideOf(playerID string) (pong.Side, bool) {
	switch playerID {
	case p.Left.ID:
		return pong.SideLeft, true
	case p.Right.ID:
		return pong.SideRight, true
	default:
		return "", false
	}
}

// MatchResult is the immutable outcome of a completed match.
type MatchResult struct {
	MatchID   MatchID       `json:"matchId"`
	Mode      pong.Mode     `json:"mode"`
	Players   Players       `json:"players"`
	Score     pong.Score    `json:"finalScore"`
	Winner    pong.Side     `json:"winner"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
	Duration  time.Duration `json:"-"`
}

// DurationSeconds returns the match duration rounded down to whole seconds.
func (r MatchResult) DurationSeconds() int {
	return int(r.Duration / time.Second)
}

// Won reports whether playerID played on the winning side.
func (r MatchResult) Won(playerID string) bool {
	side, ok := r.Players.SideOf(playerID)
	return ok && side == r.Winner
}

// MatchInfo summarizes a live match for listings.
type MatchInfo struct {
	ID           MatchID       `json:"matchId"`
	Mode         pong.Mode     `json:"mode"`
	Status       pong.Status   `json:"status"`
	Active       bool          `json:"active"`
	Participants []Participant `json:"participants"`
}

// Stats is a snapshot of registry counters.
type Stats struct {
	TotalGames   int `json:"totalGames"`
	ActiveGames  int `json:"activeGames"`
	TotalPlayers int `json:"totalPlayers"`
}

// PlayerStats aggregates the finished matches of one player.
type PlayerStats struct {
	TotalGames int     `json:"totalGames"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"winRate"` // percentage, 0..100
}

// ComputePlayerStats aggregates results for playerID. Results the player
// did not take part in are ignored.
func ComputePlayerStats(results []MatchResult, playerID string) PlayerStats {
	var s PlayerStats
	for _, r := range results {
		if _, ok := r.Players.SideOf(playerID); !ok {
			continue
		}
		s.TotalGames++
		if r.Won(playerID) {
			s.Wins++
		}
	}
	s.Losses = s.TotalGames - s.Wins
	if s.TotalGames > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalGames) * 100
	}
	return s
}
