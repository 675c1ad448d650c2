package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/pong-arena/internal/core"
	"github.com/vovakirdan/pong-arena/internal/multiplayer"
	"github.com/vovakirdan/pong-arena/internal/storage"
)

// HistoryKeyMap defines the key bindings for the history screen.
type HistoryKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Top  key.Binding
	Quit key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Top, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down, k.Top}, {k.Quit}}
}

// DefaultHistoryKeyMap returns default key bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HistoryModel is the Bubble Tea model listing finished matches.
type HistoryModel struct {
	title    string
	records  []storage.MatchRecord
	stats    *multiplayer.PlayerStats
	playerID string
	table    table.Model
	help     help.Model
	keys     HistoryKeyMap
	width    int
	height   int
	quitting bool
}

// HistoryOptions configures a HistoryModel.
type HistoryOptions struct {
	Title    string
	PlayerID string                   // Highlights this player's wins and losses
	Stats    *multiplayer.PlayerStats // Optional summary line
	Width    int
	Height   int
}

// NewHistoryModel creates a history screen for the given records, newest first.
func NewHistoryModel(records []storage.MatchRecord, opts HistoryOptions) HistoryModel {
	if opts.Title == "" {
		opts.Title = "MATCH HISTORY"
	}
	if opts.Width <= 0 {
		opts.Width = 100
	}
	if opts.Height <= 0 {
		opts.Height = 24
	}

	h := help.New()
	h.Width = opts.Width

	m := HistoryModel{
		title:    opts.Title,
		records:  records,
		stats:    opts.Stats,
		playerID: opts.PlayerID,
		help:     h,
		keys:     DefaultHistoryKeyMap(),
		width:    opts.Width,
		height:   opts.Height,
	}
	m.table = m.createTable()
	m.updateTableRows()
	return m
}

// RecordsFromResults converts in-memory results, oldest first, into
// history rows, newest first.
func RecordsFromResults(results []multiplayer.MatchResult) []storage.MatchRecord {
	out := make([]storage.MatchRecord, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		out = append(out, storage.RecordFromResult(results[i]))
	}
	return out
}

// createTable creates a new table with columns sized to the terminal.
func (m *HistoryModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Ended", Width: 12},
		{Title: "Mode", Width: 10},
		{Title: "Left", Width: 14},
		{Title: "Score", Width: 7},
		{Title: "Right", Width: 14},
		{Title: "Time", Width: 6},
	}
	if m.playerID != "" {
		columns = append(columns, table.Column{Title: "Result", Width: 6})
	}

	// Give spare width to the player columns.
	used := 0
	for _, c := range columns {
		used += c.Width + 2
	}
	if spare := m.width - 6 - used; spare > 0 {
		extra := min(spare/2, 10)
		columns[2].Width += extra
		columns[4].Width += extra
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(core.Max(m.height-9, 3)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// updateTableRows fills the table from the records.
func (m *HistoryModel) updateTableRows() {
	rows := make([]table.Row, len(m.records))
	for i, r := range m.records {
		row := table.Row{
			r.EndedAt.Local().Format("Jan 02 15:04"),
			r.Mode,
			playerCell(r.LeftID, r.WinnerSide == "left"),
			fmt.Sprintf("%d-%d", r.LeftScore, r.RightScore),
			playerCell(r.RightID, r.WinnerSide == "right"),
			formatDuration(time.Duration(r.DurationSecs) * time.Second),
		}
		if m.playerID != "" {
			switch {
			case r.WinnerID() == m.playerID:
				row = append(row, "W")
			case r.LeftID == m.playerID || r.RightID == m.playerID:
				row = append(row, "L")
			default:
				row = append(row, "-")
			}
		}
		rows[i] = row
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

func playerCell(id string, won bool) string {
	if won {
		return id + " *"
	}
	return id
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Init initializes the history model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history screen.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Top):
			m.table.GotoTop()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the history screen.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229"))
	b.WriteString(titleStyle.Render(centerText(m.title, m.width)))
	b.WriteString("\n")
	if m.stats != nil {
		summary := fmt.Sprintf("%d games  |  %d wins  |  %d losses  |  %.0f%% win rate",
			m.stats.TotalGames, m.stats.Wins, m.stats.Losses, m.stats.WinRate)
		b.WriteString(statusStyle.Render(centerText(summary, m.width)))
	}
	b.WriteString("\n\n")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	if len(m.records) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true).
			Padding(2, 4)
		b.WriteString(boxStyle.Render(emptyStyle.Render("No matches recorded yet.\nPlay one with `arena play`!")))
	} else {
		b.WriteString(boxStyle.Render(m.table.View()))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// RunHistory runs the history screen until the user quits.
func RunHistory(records []storage.MatchRecord, opts HistoryOptions) error {
	p := tea.NewProgram(NewHistoryModel(records, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
