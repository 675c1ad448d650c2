package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/pong-arena/internal/core"
	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/pong"
)

// releaseCheckInterval is how often held keys are checked for release.
const releaseCheckInterval = 40 * time.Millisecond

// frameMsg carries one server frame.
type frameMsg []byte

// linkClosedMsg reports that the link stopped delivering frames.
type linkClosedMsg struct{}

// MatchOptions configures a MatchModel.
type MatchOptions struct {
	Court        pong.Court
	Keys         MatchKeyMap
	ReleaseAfter time.Duration
	Labels       [2]string // Left and right score labels
	MatchID      string    // Shown until the first state arrives
	Width        int
	Height       int
}

// MatchModel is the Bubble Tea model that renders a match and sends the
// local players' input through a Link.
type MatchModel struct {
	link   Link
	seats  []Seat
	court  pong.Court
	keys   MatchKeyMap
	help   help.Model
	held   *HeldKeys
	screen *core.Screen
	labels  [2]string
	matchID string
	now     func() time.Time

	state     pong.State
	haveState bool
	end       *multiplayer.EndData
	lastError string
	paused    bool
	closed    bool
	quitting  bool
}

// NewMatchModel creates a match screen for an established link.
func NewMatchModel(link Link, opts MatchOptions) MatchModel {
	if opts.Court.Width <= 0 || opts.Court.Height <= 0 {
		opts.Court = pong.DefaultCourt()
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 24
	}

	h := help.New()
	h.Width = opts.Width

	return MatchModel{
		link:    link,
		seats:   link.Seats(),
		court:   opts.Court,
		keys:    opts.Keys,
		help:    h,
		held:    NewHeldKeys(opts.ReleaseAfter),
		screen:  core.NewScreen(opts.Width, screenRows(opts.Height)),
		labels:  opts.Labels,
		matchID: opts.MatchID,
		now:     time.Now,
	}
}

// screenRows leaves room for the status and help lines.
func screenRows(height int) int {
	return core.Max(height-2, 1)
}

// Init starts listening for frames and the release ticker.
func (m MatchModel) Init() tea.Cmd {
	return tea.Batch(m.waitForFrame(), releaseTick(releaseCheckInterval))
}

// waitForFrame returns a command that waits for the next server frame.
func (m MatchModel) waitForFrame() tea.Cmd {
	frames := m.link.Frames()
	return func() tea.Msg {
		frame, ok := <-frames
		if !ok {
			return linkClosedMsg{}
		}
		return frameMsg(frame)
	}
}

// Update handles messages.
func (m MatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.screen.Resize(msg.Width, screenRows(msg.Height))
		m.help.Width = msg.Width
		return m, nil
	case frameMsg:
		m.handleFrame(msg)
		return m, m.waitForFrame()
	case linkClosedMsg:
		m.closed = true
		return m, nil
	case releaseTickMsg:
		for seat, update := range m.held.Expire(time.Time(msg)) {
			m.sendInput(seat, update)
		}
		return m, releaseTick(releaseCheckInterval)
	}
	return m, nil
}

func (m *MatchModel) handleFrame(frame []byte) {
	var msg multiplayer.ServerMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		m.lastError = "bad frame: " + err.Error()
		return
	}

	switch msg.Type {
	case multiplayer.MsgGameState:
		st, err := msg.State()
		if err != nil {
			m.lastError = "bad state: " + err.Error()
			return
		}
		m.state = st
		m.haveState = true
	case multiplayer.MsgGameEnd:
		end, err := msg.End()
		if err != nil {
			m.lastError = "bad end frame: " + err.Error()
			return
		}
		m.end = &end
		m.state.Score = end.Score
		m.state.Status = pong.StatusFinished
	case multiplayer.MsgError:
		m.lastError = msg.Message
	}
}

func (m MatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		for seat, update := range m.held.ReleaseAll() {
			m.sendInput(seat, update)
		}
		_ = m.link.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Pause):
		if m.end != nil {
			return m, nil
		}
		var err error
		if m.paused {
			err = m.link.Resume()
		} else {
			err = m.link.Pause()
		}
		if err != nil {
			m.lastError = err.Error()
			return m, nil
		}
		m.paused = !m.paused
		return m, nil
	}

	now := m.now()
	for i, seat := range m.seats {
		keys := m.keys.For(seat.Side)
		var up bool
		switch {
		case key.Matches(msg, keys.Up):
			up = true
		case key.Matches(msg, keys.Down):
			up = false
		default:
			continue
		}
		if update := m.held.Press(i, up, now); update != nil {
			m.sendInput(i, *update)
		}
		// Shared bindings steer only the first seat.
		break
	}
	return m, nil
}

func (m *MatchModel) sendInput(seat int, update pong.InputUpdate) {
	if seat < 0 || seat >= len(m.seats) {
		return
	}
	if err := m.link.SendInput(m.seats[seat].PlayerID, update); err != nil {
		m.lastError = err.Error()
	}
}

// View renders the match.
func (m MatchModel) View() string {
	if m.quitting {
		return ""
	}

	DrawCourt(m.screen, m.court, m.state, m.courtView())

	var b strings.Builder
	b.WriteString(RenderScreen(m.screen))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

var (
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
)

func (m MatchModel) courtView() CourtView {
	v := CourtView{LeftLabel: m.labels[0], RightLabel: m.labels[1]}
	switch {
	case m.end != nil:
		v.Banner = m.winnerText()
		v.Subtitle = fmt.Sprintf("%d - %d  |  q to quit", m.end.Score.Left, m.end.Score.Right)
	case m.closed:
		v.Banner = "CONNECTION LOST"
		v.Subtitle = "q to quit"
	case !m.haveState || m.state.Status == pong.StatusWaiting:
		v.Banner = "WAITING FOR OPPONENT"
	case m.paused:
		v.Banner = "PAUSED"
		v.Subtitle = "p to resume"
	}
	return v
}

func (m MatchModel) winnerText() string {
	if m.end == nil {
		return ""
	}
	for _, seat := range m.seats {
		if seat.Side == m.end.Winner {
			if len(m.seats) == 1 {
				return "YOU WIN!"
			}
			return strings.ToUpper(string(m.end.Winner)) + " WINS!"
		}
	}
	if len(m.seats) == 1 {
		return "YOU LOSE"
	}
	return strings.ToUpper(string(m.end.Winner)) + " WINS!"
}

func (m MatchModel) statusLine() string {
	if m.lastError != "" {
		return errorStyle.Render("error: " + m.lastError)
	}
	parts := make([]string, 0, len(m.seats)+1)
	matchID := m.state.MatchID
	if matchID == "" {
		matchID = m.matchID
	}
	if matchID != "" {
		parts = append(parts, "match "+matchID)
	}
	for _, seat := range m.seats {
		parts = append(parts, fmt.Sprintf("%s: %s", seat.PlayerID, seat.Side))
	}
	return statusStyle.Render(strings.Join(parts, "  |  "))
}

// State returns the latest match snapshot.
func (m MatchModel) State() pong.State {
	return m.state
}

// Result returns the end-of-match data once the match has finished.
func (m MatchModel) Result() (multiplayer.EndData, bool) {
	if m.end == nil {
		return multiplayer.EndData{}, false
	}
	return *m.end, true
}

// IsQuitting returns true if user requested to quit.
func (m MatchModel) IsQuitting() bool {
	return m.quitting
}

// RunMatch runs the match screen until the user quits.
func RunMatch(link Link, opts MatchOptions, progOpts ...tea.ProgramOption) (MatchModel, error) {
	progOpts = append([]tea.ProgramOption{tea.WithAltScreen()}, progOpts...)
	p := tea.NewProgram(NewMatchModel(link, opts), progOpts...)

	final, err := p.Run()
	if err != nil {
		return MatchModel{}, err
	}
	m, _ := final.(MatchModel)
	return m, nil
}
