// ABOUTME: Bubbletea model for the terminal dashboard
// ABOUTME: Login form, tabbed panels, delete confirmation modal and a single toast line

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/freegoat/manga-admin/internal/dashboard"
	"github.com/freegoat/manga-admin/internal/store"
)

type screen int

const (
	screenLoading screen = iota
	screenLogin
	screenDashboard
)

type (
	startedMsg struct {
		needLogin bool
		err       error
	}
	loginMsg struct{ err error }
	doneMsg  struct{ err error }
	// toastMsg signals that the toaster changed; the model rereads it.
	toastMsg struct{}
	// confirmMsg is raised from a command goroutine blocked on reply.
	confirmMsg struct {
		prompt string
		reply  chan<- bool
	}
)

var quickActions = map[string]string{
	"c": "clear-cache",
	"x": "export-data",
	"b": "backup",
}

type model struct {
	ctx  context.Context
	ctrl *dashboard.Controller
	host string

	screen  screen
	inputs  []textinput.Model
	focus   int
	table   table.Model
	spinner spinner.Model
	busy    bool

	state dashboard.State
	toast *dashboard.Toast
	modal *confirmMsg

	width  int
	height int
}

func newModel(ctx context.Context, ctrl *dashboard.Controller, host string) *model {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 64
	user.Width = 30
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 128
	pass.Width = 30
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	return &model{
		ctx:     ctx,
		ctrl:    ctrl,
		host:    host,
		screen:  screenLoading,
		inputs:  []textinput.Model{user, pass},
		table:   table.New(table.WithFocused(true), table.WithHeight(12)),
		spinner: sp,
		busy:    true,
		state:   dashboard.State{Tab: dashboard.TabOverview},
	}
}

func (m *model) Init() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		needLogin, err := ctrl.Start(ctx)
		return startedMsg{needLogin: needLogin, err: err}
	})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-14, 5))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case toastMsg:
		m.toast = m.ctrl.Toasts().Current()
		return m, nil

	case confirmMsg:
		m.modal = &msg
		return m, nil

	case startedMsg:
		m.busy = false
		m.sync()
		if msg.needLogin {
			m.showLogin()
			return m, textinput.Blink
		}
		m.screen = screenDashboard
		return m, nil

	case loginMsg:
		m.busy = false
		if msg.err != nil {
			m.inputs[1].SetValue("")
			return m, nil
		}
		m.inputs[0].SetValue("")
		m.inputs[1].SetValue("")
		m.screen = screenDashboard
		m.sync()
		return m, nil

	case doneMsg:
		m.busy = false
		m.sync()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// sync copies controller state and falls back to the login form once the
// session is gone.
func (m *model) sync() {
	m.state = m.ctrl.State()
	if m.screen == screenDashboard && !m.state.Authenticated {
		m.showLogin()
	}
	m.rebuildTable()
}

func (m *model) showLogin() {
	m.screen = screenLogin
	m.focus = 0
	m.focusInputs()
}

func (m *model) focusInputs() {
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.modal != nil {
		switch msg.String() {
		case "y", "Y", "enter":
			m.answer(true)
		case "n", "N", "esc":
			m.answer(false)
		}
		return m, nil
	}
	switch m.screen {
	case screenLogin:
		return m.loginKey(msg)
	case screenDashboard:
		return m.dashboardKey(msg)
	}
	return m, nil
}

func (m *model) answer(ok bool) {
	m.modal.reply <- ok
	m.modal = nil
}

func (m *model) loginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		m.focus = (m.focus + 1) % len(m.inputs)
		m.focusInputs()
		return m, textinput.Blink
	case "enter":
		if m.focus == 0 {
			m.focus = 1
			m.focusInputs()
			return m, textinput.Blink
		}
		if m.busy {
			return m, nil
		}
		username := strings.TrimSpace(m.inputs[0].Value())
		password := m.inputs[1].Value()
		if username == "" || password == "" {
			m.ctrl.Toasts().Error("Username and password are required")
			return m, nil
		}
		m.busy = true
		ctrl, ctx := m.ctrl, m.ctx
		return m, func() tea.Msg {
			return loginMsg{err: ctrl.Login(ctx, username, password)}
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *model) dashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "q" {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	tab := m.state.Tab
	switch key {
	case "tab", "right", "l":
		return m, m.switchTab(tabIndex(tab) + 1)
	case "shift+tab", "left", "h":
		return m, m.switchTab(tabIndex(tab) - 1)
	case "1", "2", "3", "4", "5":
		n, _ := strconv.Atoi(key)
		return m, m.switchTab(n - 1)
	case "r":
		return m, m.run(m.ctrl.LoadAll)
	case "o":
		return m, m.run(m.ctrl.Logout)
	case "d":
		return m, m.deleteSelected()
	case "t":
		if repo := m.selectedRepository(); repo != nil {
			return m, m.run(func(ctx context.Context) error {
				return m.ctrl.ToggleRepository(ctx, repo)
			})
		}
		return m, nil
	case "a":
		if tab == dashboard.TabRepositories {
			return m, m.run(m.ctrl.RefreshAllRepositories)
		}
		return m, nil
	}
	if action, ok := quickActions[key]; ok && tab == dashboard.TabOverview {
		return m, m.run(func(ctx context.Context) error {
			return m.ctrl.QuickAction(ctx, action)
		})
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// run executes fn off the event loop and reports back with doneMsg.
func (m *model) run(fn func(context.Context) error) tea.Cmd {
	m.busy = true
	ctx := m.ctx
	return func() tea.Msg {
		return doneMsg{err: fn(ctx)}
	}
}

func (m *model) switchTab(i int) tea.Cmd {
	n := len(dashboard.Tabs)
	tab := dashboard.Tabs[(i%n+n)%n]
	m.state.Tab = tab
	m.rebuildTable()
	m.table.SetCursor(0)
	return m.run(func(ctx context.Context) error {
		return m.ctrl.SwitchTab(ctx, tab)
	})
}

func tabIndex(tab dashboard.Tab) int {
	for i, t := range dashboard.Tabs {
		if t == tab {
			return i
		}
	}
	return 0
}

func (m *model) deleteSelected() tea.Cmd {
	i := m.table.Cursor()
	var id string
	var del func(context.Context, string) (bool, error)

	switch m.state.Tab {
	case dashboard.TabNotifications:
		if i < len(m.state.Notifications) {
			id, del = m.state.Notifications[i].ID, m.ctrl.DeleteNotification
		}
	case dashboard.TabRepositories:
		if i < len(m.state.Repositories) {
			id, del = m.state.Repositories[i].ID, m.ctrl.DeleteRepository
		}
	case dashboard.TabUsers:
		if i < len(m.state.Users) {
			id, del = m.state.Users[i].ID, m.ctrl.DeleteUser
		}
	case dashboard.TabManga:
		if i < len(m.state.Manga) {
			id, del = m.state.Manga[i].ID, m.ctrl.DeleteManga
		}
	}
	if del == nil {
		return nil
	}
	return m.run(func(ctx context.Context) error {
		_, err := del(ctx, id)
		return err
	})
}

func (m *model) selectedRepository() *store.Repository {
	i := m.table.Cursor()
	if m.state.Tab != dashboard.TabRepositories || i >= len(m.state.Repositories) {
		return nil
	}
	return m.state.Repositories[i]
}

// rebuildTable swaps columns and rows for the active tab. Rows are cleared
// first because the table renders existing rows against the new columns.
func (m *model) rebuildTable() {
	var cols []table.Column
	var rows []table.Row

	switch m.state.Tab {
	case dashboard.TabNotifications:
		cols = []table.Column{{Title: "Title", Width: 28}, {Title: "Type", Width: 10}, {Title: "Priority", Width: 8}, {Title: "Sent", Width: 5}, {Title: "Created", Width: 16}}
		for _, n := range m.state.Notifications {
			rows = append(rows, table.Row{n.Title, string(n.Type), string(n.Priority), yesNo(n.Sent), n.CreatedAt.Local().Format("2006-01-02 15:04")})
		}
	case dashboard.TabRepositories:
		cols = []table.Column{{Title: "Name", Width: 22}, {Title: "URL", Width: 32}, {Title: "Active", Width: 6}, {Title: "Sources", Width: 8}}
		for _, r := range m.state.Repositories {
			rows = append(rows, table.Row{r.Name, r.URL, yesNo(r.IsActive), strconv.Itoa(r.SourceCount)})
		}
	case dashboard.TabUsers:
		cols = []table.Column{{Title: "Username", Width: 16}, {Title: "Email", Width: 26}, {Title: "Role", Width: 10}, {Title: "Status", Width: 10}, {Title: "Joined", Width: 12}}
		for _, u := range m.state.Users {
			rows = append(rows, table.Row{u.Username, u.Email, u.Role, u.Status, u.JoinDate})
		}
	case dashboard.TabManga:
		cols = []table.Column{{Title: "Title", Width: 24}, {Title: "Author", Width: 20}, {Title: "Status", Width: 10}, {Title: "Chapters", Width: 8}, {Title: "Rating", Width: 6}}
		for _, mg := range m.state.Manga {
			rows = append(rows, table.Row{mg.Title, mg.Author, mg.Status, strconv.Itoa(mg.Chapters), strconv.FormatFloat(mg.Rating, 'f', 1, 64)})
		}
	}

	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// --- views ---

func (m *model) View() string {
	var body string
	switch {
	case m.modal != nil:
		body = m.modalView()
	case m.screen == screenLoading:
		body = fmt.Sprintf("%s Connecting to %s", m.spinner.View(), m.host)
	case m.screen == screenLogin:
		body = m.loginView()
	default:
		body = m.dashboardView()
	}

	if m.toast != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", toastStyle(m.toast.Level).Render(m.toast.Message))
	}
	return body + "\n"
}

func (m *model) modalView() string {
	box := modalStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(m.modal.prompt),
		"",
		helpStyle.Render("y: confirm • n: cancel"),
	))
	if m.width == 0 {
		return box
	}
	return lipgloss.Place(m.width, max(m.height-2, lipgloss.Height(box)), lipgloss.Center, lipgloss.Center, box)
}

func (m *model) loginView() string {
	fields := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		style := inputStyle
		if i == m.focus {
			style = focusedInputStyle
		}
		fields[i] = style.Render(in.View())
	}

	status := helpStyle.Render("tab: next field • enter: log in • esc: quit")
	if m.busy {
		status = m.spinner.View() + " Logging in..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("manga-admin"),
		mutedStyle.Render(m.host),
		"",
		fields[0],
		fields[1],
		"",
		status,
	)
}

func (m *model) dashboardView() string {
	tabs := make([]string, len(dashboard.Tabs))
	for i, tab := range dashboard.Tabs {
		label := fmt.Sprintf("%d %s", i+1, tab)
		if tab == m.state.Tab {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = inactiveTabStyle.Render(label)
		}
	}

	header := titleStyle.Render("manga-admin")
	if m.state.Username != "" {
		header += mutedStyle.Render("  signed in as " + m.state.Username)
	}
	if m.busy {
		header += "  " + m.spinner.View()
	}

	var content string
	if m.state.Tab == dashboard.TabOverview {
		content = m.overviewView()
	} else if len(m.table.Rows()) == 0 {
		content = mutedStyle.Render("Nothing here yet")
	} else {
		content = m.table.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
		content,
		"",
		helpStyle.Render(m.help()),
	)
}

func (m *model) overviewView() string {
	s := m.state.Stats
	if s == nil {
		return mutedStyle.Render("No statistics loaded")
	}
	card := func(label, value string) string {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, mutedStyle.Render(label), titleStyle.Render(value)))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top,
			card("Users", strconv.Itoa(s.TotalUsers)),
			card("Manga", strconv.Itoa(s.TotalManga)),
			card("Chapters", strconv.Itoa(s.TotalChapters)),
		),
		lipgloss.JoinHorizontal(lipgloss.Top,
			card("Downloads", strconv.Itoa(s.TotalDownloads)),
			card("Notifications sent", fmt.Sprintf("%d / %d", s.SentNotifications, s.TotalNotifications)),
			card("Active repositories", fmt.Sprintf("%d / %d", s.ActiveRepositories, s.TotalRepositories)),
		),
	)
}

func (m *model) help() string {
	base := "tab/1-5: switch • r: reload • o: log out • q: quit"
	switch m.state.Tab {
	case dashboard.TabOverview:
		return "c: clear cache • x: export data • b: backup • " + base
	case dashboard.TabRepositories:
		return "↑/↓: select • t: toggle • a: refresh all • d: delete • " + base
	default:
		return "↑/↓: select • d: delete • " + base
	}
}
