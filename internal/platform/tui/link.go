package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/pong"
	"github.com/vovakirdan/pong-arena/internal/server"
)

// Seat is one paddle controlled from this client.
type Seat struct {
	PlayerID string
	Side     pong.Side // Empty lets the server pick
}

// Link connects a match screen to a match, in-process or over the network.
type Link interface {
	// Frames delivers encoded server frames. It is closed when the link
	// goes away.
	Frames() <-chan []byte

	// Seats returns the joined seats with their assigned sides.
	Seats() []Seat

	SendInput(playerID string, update pong.InputUpdate) error
	Pause() error
	Resume() error
	Close() error
}

// LocalLink plays a match hosted by an in-process registry.
type LocalLink struct {
	registry  *multiplayer.Registry
	matchID   multiplayer.MatchID
	transport *multiplayer.ChannelTransport
	seats     []Seat
	frames    chan []byte
	closeOnce sync.Once
}

// JoinLocal admits the seats into a registry match and returns a link
// receiving its broadcasts.
func JoinLocal(registry *multiplayer.Registry, matchID multiplayer.MatchID, seats ...Seat) (*LocalLink, error) {
	if len(seats) == 0 {
		return nil, errors.New("tui: no seats to join")
	}

	l := &LocalLink{
		registry:  registry,
		matchID:   matchID,
		transport: multiplayer.NewChannelTransport(64),
		frames:    make(chan []byte, 64),
	}

	for _, seat := range seats {
		err := registry.AddParticipant(matchID, multiplayer.ParticipantConfig{
			ID:        seat.PlayerID,
			Side:      seat.Side,
			Kind:      multiplayer.KindHumanSocket,
			Transport: l.transport,
		})
		if err != nil {
			l.disconnect()
			return nil, fmt.Errorf("tui: join %s as %s: %w", matchID, seat.PlayerID, err)
		}
		l.seats = append(l.seats, Seat{PlayerID: seat.PlayerID, Side: l.sideOf(seat.PlayerID)})
	}

	go l.pump()
	return l, nil
}

func (l *LocalLink) sideOf(playerID string) pong.Side {
	m, ok := l.registry.Match(l.matchID)
	if !ok {
		return ""
	}
	for _, p := range m.Participants() {
		if p.ID == playerID {
			return p.Side
		}
	}
	return ""
}

// pump forwards transport frames until the transport closes.
func (l *LocalLink) pump() {
	defer close(l.frames)
	for {
		select {
		case frame := <-l.transport.Frames():
			select {
			case l.frames <- frame:
			case <-l.transport.Done():
				return
			}
		case <-l.transport.Done():
			return
		}
	}
}

// Frames implements Link.
func (l *LocalLink) Frames() <-chan []byte { return l.frames }

// Seats implements Link.
func (l *LocalLink) Seats() []Seat { return l.seats }

// MatchID returns the joined match.
func (l *LocalLink) MatchID() multiplayer.MatchID { return l.matchID }

// SendInput implements Link.
func (l *LocalLink) SendInput(playerID string, update pong.InputUpdate) error {
	m, ok := l.registry.Match(l.matchID)
	if !ok {
		return multiplayer.ErrMatchNotFound
	}
	m.SetInput(playerID, update)
	return nil
}

// Pause implements Link.
func (l *LocalLink) Pause() error {
	m, ok := l.registry.Match(l.matchID)
	if !ok {
		return multiplayer.ErrMatchNotFound
	}
	return m.Pause()
}

// Resume implements Link.
func (l *LocalLink) Resume() error {
	m, ok := l.registry.Match(l.matchID)
	if !ok {
		return multiplayer.ErrMatchNotFound
	}
	return m.Resume()
}

// Close disconnects every seat. Safe to call multiple times.
func (l *LocalLink) Close() error {
	l.closeOnce.Do(l.disconnect)
	return nil
}

func (l *LocalLink) disconnect() {
	for _, seat := range l.seats {
		l.registry.Disconnect(seat.PlayerID, l.matchID)
	}
	l.transport.Close()
}

// WSLink plays a match on a remote server over the WebSocket game channel.
type WSLink struct {
	conn    *websocket.Conn
	matchID multiplayer.MatchID
	seats   []Seat
	frames  chan []byte

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialMatch connects to the game channel at wsURL and joins every seat.
func DialMatch(ctx context.Context, wsURL string, matchID multiplayer.MatchID, seats ...Seat) (*WSLink, error) {
	if len(seats) == 0 {
		return nil, errors.New("tui: no seats to join")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("tui: dial %s: %w", wsURL, err)
	}

	l := &WSLink{
		conn:    conn,
		matchID: matchID,
		frames:  make(chan []byte, 64),
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	_ = conn.SetReadDeadline(deadline)

	for _, seat := range seats {
		joined, err := l.join(seat)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		l.seats = append(l.seats, joined)
	}
	_ = conn.SetReadDeadline(time.Time{})

	go l.readLoop()
	return l, nil
}

// join sends a join message and waits for its answer, skipping state frames.
func (l *WSLink) join(seat Seat) (Seat, error) {
	if err := l.write(multiplayer.ClientMessage{
		Type:     multiplayer.MsgJoin,
		MatchID:  l.matchID,
		PlayerID: seat.PlayerID,
		Side:     seat.Side,
	}); err != nil {
		return Seat{}, fmt.Errorf("tui: send join: %w", err)
	}

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			return Seat{}, fmt.Errorf("tui: wait for join: %w", err)
		}
		var msg multiplayer.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case multiplayer.MsgJoined:
			if msg.PlayerID == seat.PlayerID {
				return Seat{PlayerID: msg.PlayerID, Side: msg.Side}, nil
			}
		case multiplayer.MsgError:
			return Seat{}, fmt.Errorf("tui: join %s: %s", l.matchID, msg.Message)
		}
	}
}

func (l *WSLink) readLoop() {
	defer close(l.frames)
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case l.frames <- data:
		default:
			// Drop the oldest frame; only the latest state matters.
			select {
			case <-l.frames:
			default:
			}
			l.frames <- data
		}
	}
}

func (l *WSLink) write(msg multiplayer.ClientMessage) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return l.conn.WriteJSON(msg)
}

// Frames implements Link.
func (l *WSLink) Frames() <-chan []byte { return l.frames }

// Seats implements Link.
func (l *WSLink) Seats() []Seat { return l.seats }

// SendInput implements Link.
func (l *WSLink) SendInput(playerID string, update pong.InputUpdate) error {
	return l.write(multiplayer.ClientMessage{
		Type:     multiplayer.MsgInput,
		MatchID:  l.matchID,
		PlayerID: playerID,
		Input:    &update,
	})
}

// Pause implements Link.
func (l *WSLink) Pause() error {
	return l.write(multiplayer.ClientMessage{Type: multiplayer.MsgPause, MatchID: l.matchID})
}

// Resume implements Link.
func (l *WSLink) Resume() error {
	return l.write(multiplayer.ClientMessage{Type: multiplayer.MsgResume, MatchID: l.matchID})
}

// Close sends a close frame and closes the connection. Safe to call multiple times.
func (l *WSLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.writeMu.Lock()
		_ = l.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		l.writeMu.Unlock()
		err = l.conn.Close()
	})
	return err
}

// Client talks to the arena REST routes.
type Client struct {
	BaseURL string // e.g. http://localhost:8080
	HTTP    *http.Client
}

// NewClient creates a REST client with a request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateMatch asks the server for a new match.
func (c *Client) CreateMatch(ctx context.Context, mode pong.Mode, matchID multiplayer.MatchID) (server.CreateResponse, error) {
	var resp server.CreateResponse
	err := c.post(ctx, "/game/create", server.CreateRequest{Mode: mode, MatchID: matchID}, &resp)
	return resp, err
}

// Stats fetches a player's stats and history.
func (c *Client) Stats(ctx context.Context, playerID string) (server.PlayerStatsResponse, error) {
	var resp server.PlayerStatsResponse
	err := c.get(ctx, "/game/stats/"+url.PathEscape(playerID), &resp)
	return resp, err
}

// History fetches the server's in-memory match history.
func (c *Client) History(ctx context.Context) ([]multiplayer.MatchResult, error) {
	var resp server.HistoryResponse
	err := c.get(ctx, "/game/history", &resp)
	return resp.History, err
}

// WebSocketURL resolves a wsUrl returned by the server against the base URL.
func (c *Client) WebSocketURL(path string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("tui: bad server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = path
	return u.String(), nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("tui: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e server.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("tui: %s %s: %s", req.Method, req.URL.Path, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tui: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
