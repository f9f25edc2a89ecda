// Package ui renders the dashboard. It is a thin adapter: every list
// computation happens in the engine via the controller, and the model
// only turns the resulting page into rows and styles.
package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yshiraki/fixboard/internal/fixboard/controller"
	"github.com/yshiraki/fixboard/internal/fixboard/engine"
	"github.com/yshiraki/fixboard/internal/fixboard/export"
	"github.com/yshiraki/fixboard/internal/fixboard/issue"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(14)
)

// sortKeys maps the number row to table columns.
var sortKeys = map[string]engine.Field{
	"1": engine.FieldStatus,
	"2": engine.FieldPriority,
	"3": engine.FieldTitle,
	"4": engine.FieldCategory,
	"5": engine.FieldAssignee,
	"6": engine.FieldDueDate,
	"7": engine.FieldCreatedAt,
}

type reloadedMsg struct{ err error }

type searchMsg string

type actionMsg struct {
	notice controller.Notice
	err    error
}

type detailMsg struct {
	record *issue.Issue
	err    error
}

type clearNoticeMsg struct{}

// Model is the bubbletea model for the interactive dashboard.
type Model struct {
	ctrl *controller.Controller

	table  table.Model
	search textinput.Model

	debouncer *controller.Debouncer
	searchCh  chan string

	detail        *issue.Issue
	confirmDelete string
	notice        string
	errText       string
	width         int
	height        int
}

// NewModel builds the dashboard model over an already-loaded controller.
func NewModel(ctrl *controller.Controller) Model {
	t := table.New(
		table.WithColumns(columns(0)),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	s := table.DefaultStyles()
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("240")).
		Bold(true)
	t.SetStyles(s)

	search := textinput.New()
	search.Placeholder = "search title and description"
	search.CharLimit = 120

	m := Model{
		ctrl:      ctrl,
		table:     t,
		search:    search,
		debouncer: controller.NewDebouncer(controller.DefaultSearchDebounce),
		searchCh:  make(chan string, 1),
	}
	m.refreshTable()
	return m
}

// Init starts the listener for debounced search events.
func (m Model) Init() tea.Cmd {
	return m.waitForSearch()
}

func (m Model) waitForSearch() tea.Cmd {
	return func() tea.Msg {
		return searchMsg(<-m.searchCh)
	}
}

// publishSearch hands debounced text to the waiting listener. An
// unconsumed earlier value is displaced first so the newest text always
// reaches the view.
func (m Model) publishSearch(text string) {
	select {
	case <-m.searchCh:
	default:
	}
	m.searchCh <- text
}

func clearNoticeLater() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetColumns(columns(m.width))
		return m, nil

	case searchMsg:
		m.ctrl.SetSearch(string(msg))
		m.refreshTable()
		return m, m.waitForSearch()

	case reloadedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else {
			m.errText = ""
			m.refreshTable()
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			m.refreshTable()
			return m, nil
		}
		m.errText = ""
		m.notice = msg.notice.Text
		m.refreshTable()
		return m, clearNoticeLater()

	case detailMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.detail = msg.record
		return m, nil

	case clearNoticeMsg:
		m.notice = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.search.Focused() {
		switch msg.String() {
		case "esc", "enter":
			m.search.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.search, cmd = m.search.Update(msg)
			text := m.search.Value()
			m.debouncer.Trigger(func() { m.publishSearch(text) })
			return m, cmd
		}
	}

	if m.detail != nil {
		switch msg.String() {
		case "esc", "enter", "q":
			m.detail = nil
		}
		return m, nil
	}

	if m.confirmDelete != "" {
		switch msg.String() {
		case "y":
			id := m.confirmDelete
			m.confirmDelete = ""
			return m, func() tea.Msg {
				notice, err := m.ctrl.Delete(context.Background(), id)
				return actionMsg{notice: notice, err: err}
			}
		default:
			m.confirmDelete = ""
		}
		return m, nil
	}

	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.search.Focus()
		return m, textinput.Blink

	case "c":
		m.search.SetValue("")
		m.ctrl.SetSearch("")
		m.refreshTable()
		return m, nil

	case "left", "h":
		m.ctrl.SetPage(m.ctrl.State().Page - 1)
		m.refreshTable()
		return m, nil

	case "right", "l":
		m.ctrl.SetPage(m.ctrl.State().Page + 1)
		m.refreshTable()
		return m, nil

	case "f":
		m.ctrl.SetStatusFilter(nextFilter(m.ctrl.State().StatusFilter))
		m.refreshTable()
		return m, nil

	case "F":
		if active := m.ctrl.State().StatusFilter; active != "" {
			m.ctrl.SetStatusFilter(active)
			m.refreshTable()
		}
		return m, nil

	case "1", "2", "3", "4", "5", "6", "7":
		m.ctrl.ToggleSort(sortKeys[key])
		m.refreshTable()
		return m, nil

	case "r":
		return m, func() tea.Msg {
			return reloadedMsg{err: m.ctrl.Reload(context.Background())}
		}

	case "enter":
		if record, ok := m.selected(); ok {
			return m, func() tea.Msg {
				fresh, err := m.ctrl.Detail(context.Background(), record.ID)
				return detailMsg{record: fresh, err: err}
			}
		}
		return m, nil

	case "+":
		if record, ok := m.selected(); ok {
			next := nextStatus(record.Status)
			return m, func() tea.Msg {
				notice, err := m.ctrl.ChangeStatus(context.Background(), record.ID, next)
				return actionMsg{notice: notice, err: err}
			}
		}
		return m, nil

	case "d":
		if record, ok := m.selected(); ok {
			m.confirmDelete = record.ID
		}
		return m, nil

	case "x":
		return m, m.exportCmd()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) exportCmd() tea.Cmd {
	collection := m.ctrl.Collection()
	view := m.ctrl.Filtered()
	return func() tea.Msg {
		name := export.Filename(time.Now())
		file, err := os.Create(name)
		if err != nil {
			return actionMsg{err: fmt.Errorf("cannot create export file: %w", err)}
		}
		defer file.Close()

		count, err := export.WriteCSV(file, collection, view)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{notice: controller.Notice{Text: fmt.Sprintf("exported %d records to %s", count, name)}}
	}
}

func (m *Model) selected() (issue.Issue, bool) {
	page := m.ctrl.Page()
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(page.Items) {
		return issue.Issue{}, false
	}
	return page.Items[cursor], true
}

// nextFilter cycles through the stat cards: all, then each status in
// workflow order, then back to all.
func nextFilter(current issue.Status) issue.Status {
	statuses := issue.Statuses()
	if current == "" {
		return statuses[0]
	}
	for i, s := range statuses {
		if s == current && i+1 < len(statuses) {
			return statuses[i+1]
		}
	}
	// Wrapping past the last status clears the filter; SetStatusFilter
	// toggles an active filter off when it sees it again.
	return current
}

func nextStatus(current issue.Status) issue.Status {
	statuses := issue.Statuses()
	for i, s := range statuses {
		if s == current {
			return statuses[(i+1)%len(statuses)]
		}
	}
	return statuses[0]
}

func columns(width int) []table.Column {
	titleWidth := 32
	if width > 110 {
		titleWidth += width - 110
	}
	return []table.Column{
		{Title: "#", Width: 5},
		{Title: "ステータス", Width: 10},
		{Title: "優先度", Width: 6},
		{Title: "タイトル", Width: titleWidth},
		{Title: "カテゴリ", Width: 12},
		{Title: "担当者", Width: 10},
		{Title: "期限", Width: 10},
		{Title: "登録日", Width: 10},
	}
}

func (m *Model) refreshTable() {
	page := m.ctrl.Page()
	collection := m.ctrl.Collection()
	now := time.Now()

	rows := make([]table.Row, 0, len(page.Items))
	for _, record := range page.Items {
		due := issue.FormatDueDate(record.DueDate)
		if record.IsOverdue(now) {
			due = overdueStyle.Render(due)
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("#%d", engine.RowNumber(collection, record.ID)),
			string(record.Status),
			string(record.Priority),
			issue.Truncate(record.Title, 60),
			record.Category,
			record.Assignee,
			due,
			issue.FormatTimestamp(record.CreatedAt),
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(0)
	}
}

// View renders the dashboard.
func (m Model) View() string {
	if m.detail != nil {
		return m.viewDetail()
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render("fixboard"))
	s.WriteString("\n")

	s.WriteString(m.viewStats())
	s.WriteString("\n")

	s.WriteString(m.search.View())
	s.WriteString("\n\n")

	s.WriteString(m.table.View())
	s.WriteString("\n")

	page := m.ctrl.Page()
	state := m.ctrl.State()
	sortBy := fmt.Sprintf("sort: %s %s", state.SortBy, state.Order)
	s.WriteString(infoStyle.Render(fmt.Sprintf("Page %d/%d (%d records)  %s", page.Number, page.TotalPages, page.Filtered, sortBy)))
	s.WriteString("\n")

	if m.confirmDelete != "" {
		s.WriteString(errorStyle.Render("Delete this record? (y/n)"))
		s.WriteString("\n")
	}
	if m.errText != "" {
		s.WriteString(errorStyle.Render(m.errText))
		s.WriteString("\n")
	}
	if m.notice != "" {
		s.WriteString(noticeStyle.Render(m.notice))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("/: search  f/F: filter  1-7: sort  ←/→: page  enter: detail  +: status  d: delete  x: export  r: reload  q: quit"))
	return s.String()
}

func (m Model) viewStats() string {
	stats := m.ctrl.Stats()
	active := m.ctrl.State().StatusFilter

	parts := []string{fmt.Sprintf("全 %d", len(m.ctrl.Collection()))}
	for _, status := range issue.Statuses() {
		part := fmt.Sprintf("%s %d", status, stats[status])
		if status == active {
			part = activeStyle.Render(part)
		}
		parts = append(parts, part)
	}
	return infoStyle.Render(strings.Join(parts, "  "))
}

func (m Model) viewDetail() string {
	record := *m.detail
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("Issue #%d", engine.RowNumber(m.ctrl.Collection(), record.ID))))
	s.WriteString("\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		s.WriteString(labelStyle.Render(label))
		s.WriteString(value)
		s.WriteString("\n")
	}

	row("タイトル", record.Title)
	row("ステータス", string(record.Status))
	row("優先度", string(record.Priority))
	row("カテゴリ", record.Category)
	row("担当者", record.Assignee)
	row("対象ページURL", record.PageURL)
	if record.DueDate != nil {
		due := record.DueDate.Display()
		if record.IsOverdue(time.Now()) {
			due = overdueStyle.Render(due + " (overdue)")
		}
		row("期限", due)
	}
	row("詳細説明", record.Description)
	if record.Screenshot != "" {
		row("画面キャプチャ", fmt.Sprintf("attached (%.2f MB encoded)", float64(len(record.Screenshot))/(1024*1024)))
	}
	row("登録日時", record.CreatedAt.Format("2006-01-02 15:04:05"))

	s.WriteString(helpStyle.Render("esc to go back"))
	return s.String()
}
