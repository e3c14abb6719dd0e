package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/netsnake/internal/storage"
)

const maxScores = 100

// ResultSource provides finished sessions for the scoreboard.
type ResultSource interface {
	TopResults(mode string, limit int) ([]storage.SessionResult, error)
}

// scoreboardTab is one mode filter.
type scoreboardTab struct {
	Title string
	Mode  string // "" for all modes
}

var scoreboardTabs = []scoreboardTab{
	{Title: "All", Mode: ""},
	{Title: "Standard", Mode: "standard"},
	{Title: "Timed", Mode: "timed"},
}

// ScoreboardKeyMap defines the key bindings for the scoreboard.
type ScoreboardKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Quit    key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k ScoreboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextTab, k.PrevTab, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k ScoreboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.NextTab, k.PrevTab, k.Quit},
	}
}

// DefaultScoreboardKeyMap returns default key bindings.
func DefaultScoreboardKeyMap() ScoreboardKeyMap {
	return ScoreboardKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab", "next mode"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("S-tab", "prev mode"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ScoreboardModel is the Bubble Tea model for the results table.
type ScoreboardModel struct {
	source   ResultSource
	tab      int
	results  []storage.SessionResult
	loadErr  error
	table    table.Model
	help     help.Model
	keys     ScoreboardKeyMap
	width    int
	height   int
	quitting bool
}

// NewScoreboardModel creates a new scoreboard model.
func NewScoreboardModel(source ResultSource, width, height int) ScoreboardModel {
	h := help.New()
	h.ShowAll = false

	m := ScoreboardModel{
		source: source,
		keys:   DefaultScoreboardKeyMap(),
		help:   h,
		width:  width,
		height: height,
	}
	m.table = m.createTable()
	m.loadResults()
	return m
}

// createTable sizes a fresh results table to the terminal.
func (m *ScoreboardModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Rank", Width: 5},
		{Title: "Fruits", Width: 7},
		{Title: "Time", Width: 7},
		{Title: "Mode", Width: 9},
		{Title: "World", Width: 10},
		{Title: "Ended by", Width: 11},
		{Title: "Date", Width: 13},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(m.height-8, 5)), // Leave room for header, help, and margins
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).
		BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("240"))
	styles.Selected = activeTabStyle.UnsetPadding()
	t.SetStyles(styles)
	return t
}

// loadResults loads results for the current tab.
func (m *ScoreboardModel) loadResults() {
	m.results, m.loadErr = nil, nil
	if m.source != nil {
		m.results, m.loadErr = m.source.TopResults(scoreboardTabs[m.tab].Mode, maxScores)
	}
	m.table.SetRows(ResultRows(m.results))
	m.table.GotoTop()
}

// ResultRows formats results as table rows, ranked in order.
func ResultRows(results []storage.SessionResult) []table.Row {
	rows := make([]table.Row, len(results))
	for i, r := range results {
		rows[i] = table.Row{
			fmt.Sprintf("#%d", i+1),
			fmt.Sprintf("%d", r.Fruits),
			fmt.Sprintf("%ds", r.ElapsedSecs),
			r.Mode,
			r.World,
			r.EndReason,
			r.CreatedAt.Format("Jan 02 15:04"),
		}
	}
	return rows
}

func (m ScoreboardModel) Init() tea.Cmd {
	return nil
}

// Update switches tabs and forwards scrolling to the table.
func (m ScoreboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.NextTab):
			m.tab = (m.tab + 1) % len(scoreboardTabs)
			m.loadResults()
			return m, nil

		case key.Matches(msg, m.keys.PrevTab):
			m.tab = (m.tab + len(scoreboardTabs) - 1) % len(scoreboardTabs)
			m.loadResults()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		m.table.SetRows(ResultRows(m.results))
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

var (
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	activeTabStyle = tabStyle.Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	emptyStyle     = helpStyle.Italic(true).Padding(2, 4)
)

// View renders the title, mode tabs, the results table and the help line.
func (m ScoreboardModel) View() string {
	if m.quitting {
		return ""
	}

	tabs := make([]string, len(scoreboardTabs))
	for i, t := range scoreboardTabs {
		style := tabStyle
		if i == m.tab {
			style = activeTabStyle
		}
		tabs[i] = style.Render(t.Title)
	}

	var body string
	switch {
	case m.loadErr != nil:
		body = errorStyle.Render("Could not load results: " + m.loadErr.Error())
	case len(m.results) == 0:
		body = emptyStyle.Render("No sessions recorded yet.\nPlay a game to set a record!")
	default:
		body = m.table.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		noticeStyle.Render("SNAKE RESULTS"),
		"",
		strings.Join(tabs, " "),
		"",
		overStyle.Render(body),
		helpStyle.Render(m.help.View(m.keys)),
	)
}
