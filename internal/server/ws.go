package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vovakirdan/pong-arena/internal/multiplayer"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1024
)

// conn is one game channel. Frames are queued on send and written by
// writePump; readPump dispatches client messages.
type conn struct {
	srv  *Server
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu     sync.Mutex
	joined map[string]multiplayer.MatchID // participant id -> match joined through this channel
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &conn{
		srv:    s,
		ws:     ws,
		send:   make(chan []byte, s.config.SendBuffer),
		done:   make(chan struct{}),
		joined: make(map[string]multiplayer.MatchID),
	}
	s.track(c)
	s.logger.Debug("game channel opened", "remote", ws.RemoteAddr().String())

	go c.writePump()
	go c.readPump()
}

// Send implements multiplayer.Transport. It never blocks: when the queue is
// full the frame is dropped and the client catches up on the next one.
func (c *conn) Send(frame []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *conn) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.srv.logger.Error("encode message", "err", err)
		return
	}
	c.Send(b)
}

func (c *conn) sendError(msg string) {
	c.Send(multiplayer.EncodeError(msg))
}

// close tears the channel down and disconnects every participant that joined
// through it. Safe to call multiple times.
func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.srv.config.WriteTimeout))
		_ = c.ws.Close()
		c.srv.untrack(c)

		c.mu.Lock()
		joined := c.joined
		c.joined = nil
		c.mu.Unlock()

		for id, matchID := range joined {
			c.srv.registry.Disconnect(id, matchID)
		}
		c.srv.logger.Debug("game channel closed", "remote", c.ws.RemoteAddr().String(), "participants", len(joined))
	})
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.close()

	for {
		select {
		case <-c.done:
			return

		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.srv.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.srv.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.srv.logger.Warn("game channel read failed", "err", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(data)
	}
}

func (c *conn) handleMessage(data []byte) {
	var msg multiplayer.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message: " + err.Error())
		return
	}

	switch msg.Type {
	case multiplayer.MsgJoin:
		c.handleJoin(msg)
	case multiplayer.MsgInput:
		c.handleInput(msg)
	case multiplayer.MsgPing:
		c.sendJSON(struct {
			Type string `json:"type"`
		}{Type: multiplayer.MsgPong})
	case multiplayer.MsgPause, multiplayer.MsgResume:
		c.handlePause(msg)
	case "":
		c.sendError("missing message type")
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *conn) handleJoin(msg multiplayer.ClientMessage) {
	if msg.MatchID == "" || msg.PlayerID == "" {
		c.sendError("join requires matchId and playerId")
		return
	}

	err := c.srv.registry.AddParticipant(msg.MatchID, multiplayer.ParticipantConfig{
		ID:        msg.PlayerID,
		Side:      msg.Side,
		Kind:      multiplayer.KindHumanSocket,
		Transport: c,
	})
	if err != nil {
		c.sendError(err.Error())
		return
	}

	side, err := c.srv.sideOf(msg.MatchID, msg.PlayerID)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.mu.Lock()
	closed := c.joined == nil
	if !closed {
		c.joined[msg.PlayerID] = msg.MatchID
	}
	c.mu.Unlock()
	if closed {
		// The channel went away while joining.
		c.srv.registry.Disconnect(msg.PlayerID, msg.MatchID)
		return
	}

	c.srv.logger.Info("participant joined", "match", msg.MatchID, "participant", msg.PlayerID, "side", side)
	c.sendJSON(multiplayer.JoinedMessage{
		Type:     multiplayer.MsgJoined,
		MatchID:  msg.MatchID,
		PlayerID: msg.PlayerID,
		Side:     side,
	})
}

func (c *conn) handleInput(msg multiplayer.ClientMessage) {
	if msg.MatchID == "" || msg.PlayerID == "" || msg.Input == nil {
		c.sendError("input requires matchId, playerId and input")
		return
	}
	if !c.owns(msg.PlayerID, msg.MatchID) {
		c.sendError("player " + msg.PlayerID + " has not joined " + string(msg.MatchID) + " on this connection")
		return
	}

	m, ok := c.srv.registry.Match(msg.MatchID)
	if !ok {
		c.sendError(multiplayer.ErrMatchNotFound.Error())
		return
	}
	m.SetInput(msg.PlayerID, *msg.Input)
}

func (c *conn) handlePause(msg multiplayer.ClientMessage) {
	if msg.MatchID == "" {
		c.sendError(msg.Type + " requires matchId")
		return
	}
	m, ok := c.srv.registry.Match(msg.MatchID)
	if !ok {
		c.sendError(multiplayer.ErrMatchNotFound.Error())
		return
	}

	var err error
	if msg.Type == multiplayer.MsgPause {
		err = m.Pause()
	} else {
		err = m.Resume()
	}
	if err != nil {
		c.sendError(err.Error())
	}
}

func (c *conn) owns(playerID string, matchID multiplayer.MatchID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined[playerID] == matchID
}
