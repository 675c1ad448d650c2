package multiplayer

import (
	"encoding/json"

	"github.com/vovakirdan/pong-arena/internal/pong"
)

// Message types of the game channel.
const (
	MsgJoin   = "join"
	MsgJoined = "joined"
	MsgInput  = "input"
	MsgPing   = "ping"
	MsgPong   = "pong"
	MsgPause  = "pause"
	MsgResume = "resume"
	MsgError  = "error"

	MsgGameState = "game/state"
	MsgGameEnd   = "game/end"
)

// ClientMessage is any message a client sends on the game channel.
// Fields not used by a message type are left empty.
type ClientMessage struct {
	Type     string            `json:"type"`
	MatchID  MatchID           `json:"matchId,omitempty"`
	PlayerID string            `json:"playerId,omitempty"`
	Side     pong.Side         `json:"side,omitempty"`
	Input    *pong.InputUpdate `json:"input,omitempty"`
}

// JoinedMessage confirms a join.
type JoinedMessage struct {
	Type     string    `json:"type"`
	MatchID  MatchID   `json:"matchId"`
	PlayerID string    `json:"playerId"`
	Side     pong.Side `json:"side"`
}

// ErrorMessage reports a rejected or malformed message.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StateMessage carries a match snapshot.
type StateMessage struct {
	Type string     `json:"type"`
	Data pong.State `json:"data"`
}

// EndMessage announces the end of a match.
type EndMessage struct {
	Type string  `json:"type"`
	Data EndData `json:"data"`
}

// EndData is the payload of EndMessage.
type EndData struct {
	Winner pong.Side  `json:"winner"`
	Score  pong.Score `json:"score"`
}

// ServerMessage decodes any server frame on the client side.
// Data holds the raw payload of game/state and game/end frames.
type ServerMessage struct {
	Type     string          `json:"type"`
	MatchID  MatchID         `json:"matchId,omitempty"`
	PlayerID string          `json:"playerId,omitempty"`
	Side     pong.Side       `json:"side,omitempty"`
	Message  string          `json:"message,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// State decodes the payload of a game/state frame.
func (m ServerMessage) State() (pong.State, error) {
	var s pong.State
	err := json.Unmarshal(m.Data, &s)
	return s, err
}

// End decodes the payload of a game/end frame.
func (m ServerMessage) End() (EndData, error) {
	var e EndData
	err := json.Unmarshal(m.Data, &e)
	return e, err
}

// EncodeState encodes a game/state frame.
func EncodeState(s pong.State) ([]byte, error) {
	return json.Marshal(StateMessage{Type: MsgGameState, Data: s})
}

// EncodeEnd encodes a game/end frame.
func EncodeEnd(winner pong.Side, score pong.Score) ([]byte, error) {
	return json.Marshal(EndMessage{Type: MsgGameEnd, Data: EndData{Winner: winner, Score: score}})
}

// EncodeError encodes an error frame.
func EncodeError(msg string) []byte {
	b, err := json.Marshal(ErrorMessage{Type: MsgError, Message: msg})
	if err != nil {
		return []byte(`{"type":"error","message":"internal error"}`)
	}
	return b
}
