package multiplayer

import "errors"

var (
	// ErrMatchNotFound is returned when a match id has no live match.
	ErrMatchNotFound = errors.New("match not found")

	// ErrMatchFull is returned when both sides of a match are occupied.
	ErrMatchFull = errors.New("match is full")

	// ErrSideTaken is returned when the requested side belongs to someone else.
	ErrSideTaken = errors.New("side already taken")

	// ErrParticipantInMatch is returned when a participant already plays
	// in another match.
	ErrParticipantInMatch = errors.New("participant already in a match")

	// ErrDuplicateMatch is returned when a requested match id is in use.
	ErrDuplicateMatch = errors.New("match already exists")

	// ErrInvalidParticipant is returned for malformed participant configs.
	ErrInvalidParticipant = errors.New("invalid participant")

	// ErrNotPlaying is returned when pausing or resuming a match that is
	// not in the playing state.
	ErrNotPlaying = errors.New("match is not playing")

	// ErrMatchStopped is returned for operations on a stopped match.
	ErrMatchStopped = errors.New("match stopped")
)
