package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ReportQuerier serves the two dashboard views.
type ReportQuerier interface {
	Leaderboard(ctx context.Context, now time.Time) ([]domain.LeaderboardEntry, error)
	Trend(ctx context.Context, now time.Time, hours int) ([]domain.TrendBucket, error)
}

// Services carries everything a dashboard session needs.
type Services struct {
	Reports  ReportQuerier
	Username string
}

type viewTab int

const (
	tabLeaderboard viewTab = iota
	tabTrend
)

const trendWindowHours = 24

// dataMsg delivers one refresh worth of report data to the model.
type dataMsg struct {
	entries []domain.LeaderboardEntry
	buckets []domain.TrendBucket
	err     error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6B7280")).
				Padding(0, 1)

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

// AppModel is the bubbletea model behind the SSH dashboard.
type AppModel struct {
	svc         Services
	tab         viewTab
	board       table.Model
	trend       table.Model
	width       int
	height      int
	loaded      bool
	lastErr     error
	refreshedAt time.Time
}

func NewAppModel(svc Services) *AppModel {
	board := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 3},
			{Title: "Symbol", Width: 7},
			{Title: "Confidence", Width: 10},
			{Title: "MAE", Width: 8},
			{Title: "MAPE", Width: 7},
			{Title: "R2", Width: 6},
			{Title: "Tier", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	trend := table.New(
		table.WithColumns([]table.Column{
			{Title: "Hour", Width: 13},
			{Title: "Avg MAE", Width: 8},
			{Title: "Avg MAPE", Width: 9},
			{Title: "Avg R2", Width: 7},
			{Title: "Avg Conf", Width: 9},
			{Title: "Symbols", Width: 7},
		}),
		table.WithHeight(12),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#10B981")).Bold(true)
	board.SetStyles(styles)
	trend.SetStyles(styles)

	return &AppModel{svc: svc, board: board, trend: trend}
}

// SetSize adjusts the layout to the client's PTY dimensions.
func (m *AppModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	rows := height - 9
	if rows < 4 {
		rows = 4
	}
	m.board.SetHeight(rows)
	m.trend.SetHeight(rows)
}

func (m *AppModel) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if m.tab == tabLeaderboard {
				m.tab = tabTrend
				m.trend.Focus()
				m.board.Blur()
			} else {
				m.tab = tabLeaderboard
				m.board.Focus()
				m.trend.Blur()
			}
			return m, nil
		case "r":
			return m, m.refreshCmd()
		}
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case dataMsg:
		m.loaded = true
		m.lastErr = msg.err
		m.refreshedAt = time.Now().UTC()
		m.board.SetRows(leaderboardRows(msg.entries))
		m.trend.SetRows(trendRows(msg.buckets))
		return m, nil
	}

	var cmd tea.Cmd
	if m.tab == tabLeaderboard {
		m.board, cmd = m.board.Update(msg)
	} else {
		m.trend, cmd = m.trend.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) View() string {
	var sb strings.Builder

	title := "stockcast • forecast accuracy"
	if m.svc.Username != "" {
		title += " • " + m.svc.Username
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")

	tabs := []string{"Leaderboard", "24h Trend"}
	for i, name := range tabs {
		if viewTab(i) == m.tab {
			sb.WriteString(tabActiveStyle.Render("[" + name + "]"))
		} else {
			sb.WriteString(tabInactiveStyle.Render(" " + name + " "))
		}
	}
	sb.WriteString("\n")

	if !m.loaded {
		sb.WriteString(footerStyle.Render("loading report data..."))
		return sb.String()
	}

	if m.tab == tabLeaderboard {
		sb.WriteString(tableStyle.Render(m.board.View()))
	} else {
		sb.WriteString(tableStyle.Render(m.trend.View()))
	}
	sb.WriteString("\n")

	if m.lastErr != nil {
		sb.WriteString(errorStyle.Render("error: " + m.lastErr.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString(footerStyle.Render(fmt.Sprintf("refreshed %s • tab: switch • r: refresh • q: quit",
		m.refreshedAt.Format("15:04:05"))))
	return sb.String()
}

func (m *AppModel) refreshCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if svc.Reports == nil {
			return dataMsg{err: errors.New("report service unavailable")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		now := time.Now().UTC()
		entries, err := svc.Reports.Leaderboard(ctx, now)
		if err != nil {
			return dataMsg{err: err}
		}
		buckets, err := svc.Reports.Trend(ctx, now, trendWindowHours)
		if err != nil {
			return dataMsg{entries: entries, err: err}
		}
		return dataMsg{entries: entries, buckets: buckets}
	}
}

func leaderboardRows(entries []domain.LeaderboardEntry) []table.Row {
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", e.Rank),
			e.Symbol,
			fmt.Sprintf("%.0f", e.Confidence),
			fmt.Sprintf("$%.2f", e.MAE),
			fmt.Sprintf("%.1f%%", e.MAPE),
			fmt.Sprintf("%.2f", e.R2),
			string(e.Tier),
		})
	}
	return rows
}

func trendRows(buckets []domain.TrendBucket) []table.Row {
	rows := make([]table.Row, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, table.Row{
			b.HourStart.Format("Jan 2 15:04"),
			fmt.Sprintf("$%.2f", b.AvgMAE),
			fmt.Sprintf("%.1f%%", b.AvgMAPE),
			fmt.Sprintf("%.2f", b.AvgR2),
			fmt.Sprintf("%.0f", b.AvgConfidence),
			fmt.Sprintf("%d", b.SymbolCount),
		})
	}
	return rows
}
