// Package ui provides the Bubble Tea terminal client for the laboratory.
package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/logtail"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/prefs"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/report"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/session"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/state"
)

// View is one tab of the main screen.
type View int

const (
	ViewInventory View = iota
	ViewRequests
	ViewUsers
	ViewActivity
	ViewReport
)

func (v View) String() string {
	switch v {
	case ViewRequests:
		return "Requests"
	case ViewUsers:
		return "Users"
	case ViewActivity:
		return "Activity"
	case ViewReport:
		return "Report"
	default:
		return "Inventory"
	}
}

const (
	activityLines   = 200
	activityRefresh = 2 * time.Second
)

// Options configure the UI.
type Options struct {
	Context context.Context
	Store   *state.Store
	Guard   *session.Guard
	Prefs   prefs.Prefs
	Reports report.Generator
	LogPath string
	BaseURL string
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx     context.Context
	store   *state.Store
	guard   *session.Guard
	reports report.Generator
	prefs   prefs.Prefs
	logPath string
	baseURL string

	changes chan struct{}
	keys    keyMap
	styles  Styles

	width  int
	height int

	snapshot state.Snapshot
	user     api.User
	authed   bool

	view     View
	cursor   map[View]int
	showHelp bool

	loginInputs [2]textinput.Model
	loginFocus  int
	loggingIn   bool
	loginErr    error

	busy      bool
	statusMsg string
	statusErr error

	activity []logtail.Entry

	report     *report.Report
	reportErr  error
	generating bool
}

// New creates the model and subscribes it to store and session changes.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Prefs.Title == "" {
		opts.Prefs.Title = prefs.DefaultTitle
	}

	m := Model{
		ctx:     ctx,
		store:   opts.Store,
		guard:   opts.Guard,
		reports: opts.Reports,
		prefs:   opts.Prefs,
		logPath: opts.LogPath,
		baseURL: opts.BaseURL,
		changes: make(chan struct{}, 1),
		keys:    defaultKeyMap(),
		styles:  defaultTheme().Styles(),
		cursor:  make(map[View]int),
	}
	m.loginInputs = newLoginInputs()

	signal := func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	}
	if m.store != nil {
		m.store.Subscribe(func(state.Snapshot) { signal() })
		m.snapshot = m.store.Snapshot()
	}
	if m.guard != nil {
		m.guard.Subscribe(func(session.State, *api.User) { signal() })
		m.user, m.authed = m.guard.Current()
	}
	return m
}

func newLoginInputs() [2]textinput.Model {
	id := textinput.New()
	id.Placeholder = "username or email"
	id.Prompt = "User:     "
	id.CharLimit = 128
	id.Focus()

	pw := textinput.New()
	pw.Placeholder = "password"
	pw.Prompt = "Password: "
	pw.CharLimit = 128
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'

	return [2]textinput.Model{id, pw}
}

// Messages

type changedMsg struct{}

type loadDoneMsg struct{ err error }

type loginDoneMsg struct{ err error }

type actionDoneMsg struct {
	op  string
	err error
}

type activityMsg struct {
	entries []logtail.Entry
	err     error
}

type reportMsg struct {
	report report.Report
	err    error
}

type tickMsg time.Time

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChange(m.changes), tickCmd(activityRefresh), textinput.Blink}
	if m.store != nil && !m.snapshot.Ready() {
		cmds = append(cmds, loadCmd(m.ctx, m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case loadDoneMsg:
		m.busy = false
		m.refresh()
		if msg.err != nil {
			m.setStatus("", msg.err)
		} else {
			m.setStatus("Synced with server", nil)
		}
		return m, nil

	case loginDoneMsg:
		m.loggingIn = false
		m.loginErr = msg.err
		m.refresh()
		if msg.err == nil {
			m.loginInputs = newLoginInputs()
			m.loginFocus = 0
			m.setStatus("Welcome, "+displayName(m.user), nil)
		}
		return m, nil

	case actionDoneMsg:
		m.busy = false
		m.refresh()
		if msg.err != nil {
			m.setStatus("", msg.err)
		} else {
			m.setStatus(msg.op, nil)
		}
		return m, nil

	case activityMsg:
		if msg.err == nil {
			m.activity = msg.entries
		}
		return m, nil

	case reportMsg:
		m.generating = false
		if msg.err != nil {
			m.reportErr = msg.err
			m.report = nil
		} else {
			r := msg.report
			m.report = &r
			m.reportErr = nil
		}
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(activityRefresh)}
		if m.view == ViewActivity {
			cmds = append(cmds, activityCmd(m.logPath))
		}
		return m, tea.Batch(cmds...)
	}

	if !m.authed {
		return m.updateLoginInputs(msg)
	}
	return m, nil
}

func (m *Model) refresh() {
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	if m.guard != nil {
		m.user, m.authed = m.guard.Current()
	}
	if m.view == ViewUsers && !m.user.IsAdmin {
		m.view = ViewInventory
	}
	m.clampCursor()
}

func (m *Model) setStatus(text string, err error) {
	m.statusMsg = text
	m.statusErr = err
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if !m.snapshot.Ready() {
		switch msg.String() {
		case "r":
			if m.busy || m.store == nil {
				return m, nil
			}
			m.busy = true
			return m, loadCmd(m.ctx, m.store)
		case "Q", "esc":
			return m, tea.Quit
		}
		return m, nil
	}

	if !m.authed {
		return m.handleLoginKey(msg)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(1)
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(-1)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		m.busy = true
		return m, loadCmd(m.ctx, m.store)
	case key.Matches(msg, m.keys.Logout):
		m.guard.Logout()
		m.refresh()
		m.setStatus("Logged out", nil)
		return m, nil
	case key.Matches(msg, m.keys.MarkRead):
		return m.markRead()
	}

	switch m.view {
	case ViewInventory:
		return m.handleInventoryKey(msg)
	case ViewRequests:
		return m.handleRequestsKey(msg)
	case ViewUsers:
		return m.handleUsersKey(msg)
	case ViewReport:
		if key.Matches(msg, m.keys.Generate) {
			return m.generateReport()
		}
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		m.focusLogin(1 - m.loginFocus)
		return m, nil
	case "enter":
		if m.loginFocus == 0 {
			m.focusLogin(1)
			return m, nil
		}
		if m.loggingIn {
			return m, nil
		}
		identifier := m.loginInputs[0].Value()
		password := m.loginInputs[1].Value()
		if identifier == "" || password == "" {
			m.loginErr = errors.New("enter both a username and a password")
			return m, nil
		}
		m.loggingIn = true
		m.loginErr = nil
		return m, loginCmd(m.ctx, m.guard, identifier, password)
	}
	return m.updateLoginInputs(msg)
}

func (m *Model) focusLogin(idx int) {
	m.loginFocus = idx
	for i := range m.loginInputs {
		if i == idx {
			m.loginInputs[i].Focus()
		} else {
			m.loginInputs[i].Blur()
		}
	}
}

func (m Model) updateLoginInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for i := range m.loginInputs {
		var cmd tea.Cmd
		m.loginInputs[i], cmd = m.loginInputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) views() []View {
	if m.user.IsAdmin {
		return []View{ViewInventory, ViewRequests, ViewUsers, ViewActivity, ViewReport}
	}
	return []View{ViewInventory, ViewRequests, ViewActivity}
}

func (m Model) switchView(step int) (tea.Model, tea.Cmd) {
	views := m.views()
	idx := 0
	for i, v := range views {
		if v == m.view {
			idx = i
		}
	}
	m.view = views[(idx+step+len(views))%len(views)]
	if m.view == ViewActivity {
		return m, activityCmd(m.logPath)
	}
	return m, nil
}

func (m *Model) moveCursor(step int) {
	m.cursor[m.view] += step
	m.clampCursor()
}

// clampCursor keeps every tab's cursor inside its list, including tabs that
// are hidden while their list changes.
func (m *Model) clampCursor() {
	for _, v := range []View{ViewInventory, ViewRequests, ViewUsers, ViewActivity, ViewReport} {
		n := m.rowCount(v)
		c := m.cursor[v]
		if c >= n {
			c = n - 1
		}
		if c < 0 {
			c = 0
		}
		m.cursor[v] = c
	}
}

// selected returns the cursor of v if it points into a list of n rows.
func (m Model) selected(v View, n int) (int, bool) {
	c := m.cursor[v]
	return c, c >= 0 && c < n
}

func (m Model) rowCount(v View) int {
	switch v {
	case ViewInventory:
		return len(m.snapshot.State.Items)
	case ViewRequests:
		return len(m.requestRows())
	case ViewUsers:
		return len(m.userRows())
	default:
		return 0
	}
}

// requestRows lists pending borrows followed by active ones. Non-admins
// only see their own.
func (m Model) requestRows() []api.LogEntry {
	var rows []api.LogEntry
	for _, l := range m.snapshot.PendingBorrows() {
		if m.user.IsAdmin || l.UserID == m.user.ID {
			rows = append(rows, l)
		}
	}
	owner := m.user.ID
	if m.user.IsAdmin {
		owner = ""
	}
	return append(rows, m.snapshot.ActiveBorrows(owner)...)
}

// userRows lists pending accounts first.
func (m Model) userRows() []api.User {
	rows := m.snapshot.PendingUsers()
	for _, u := range m.snapshot.State.Users {
		if u.Status != api.StatusPending {
			rows = append(rows, u)
		}
	}
	return rows
}

func (m Model) handleInventoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Borrow) {
		return m, nil
	}
	items := m.snapshot.State.Items
	idx, ok := m.selected(ViewInventory, len(items))
	if !ok {
		return m, nil
	}
	item := items[idx]
	if item.AvailableQuantity < 1 {
		m.setStatus("", errors.New(item.Name+" is not available"))
		return m, nil
	}
	userID := m.user.ID
	return m.run("Borrow request sent for "+item.Name, func(ctx context.Context) error {
		_, err := m.store.RequestBorrow(ctx, api.BorrowRequest{UserID: userID, ItemID: item.ID, Quantity: 1})
		return err
	})
}

func (m Model) handleRequestsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.requestRows()
	idx, ok := m.selected(ViewRequests, len(rows))
	if !ok {
		return m, nil
	}
	entry := rows[idx]
	item := m.snapshot.ItemName(entry.ItemID)

	switch {
	case key.Matches(msg, m.keys.Approve) && m.user.IsAdmin && entry.Status == api.LogPending:
		return m.run("Approved borrow of "+item, func(ctx context.Context) error {
			_, err := m.store.ApproveBorrow(ctx, entry.ID)
			return err
		})
	case key.Matches(msg, m.keys.Deny) && m.user.IsAdmin && entry.Status == api.LogPending:
		return m.run("Denied borrow of "+item, func(ctx context.Context) error {
			_, err := m.store.DenyBorrow(ctx, entry.ID, "")
			return err
		})
	case key.Matches(msg, m.keys.Return) && entry.Status == api.LogApproved:
		if m.user.IsAdmin {
			return m.run("Recorded return of "+item, func(ctx context.Context) error {
				_, err := m.store.ReturnItem(ctx, entry, "")
				return err
			})
		}
		if entry.ReturnRequested {
			return m, nil
		}
		return m.run("Return requested for "+item, func(ctx context.Context) error {
			_, err := m.store.RequestReturn(ctx, entry.ID)
			return err
		})
	}
	return m, nil
}

func (m Model) handleUsersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.userRows()
	idx, ok := m.selected(ViewUsers, len(rows))
	if !ok || !m.user.IsAdmin {
		return m, nil
	}
	u := rows[idx]
	name := displayName(u)

	switch {
	case key.Matches(msg, m.keys.Approve) && u.Status != api.StatusApproved:
		return m.run("Approved "+name, func(ctx context.Context) error {
			_, err := m.store.ApproveUser(ctx, u.ID)
			return err
		})
	case key.Matches(msg, m.keys.Deny) && u.Status != api.StatusDenied && u.ID != m.user.ID:
		return m.run("Denied "+name, func(ctx context.Context) error {
			_, err := m.store.DenyUser(ctx, u.ID)
			return err
		})
	}
	return m, nil
}

func (m Model) markRead() (tea.Model, tea.Cmd) {
	unread := m.snapshot.UnreadFor(m.user)
	if len(unread) == 0 {
		return m, nil
	}
	ids := make([]string, 0, len(unread))
	for _, n := range unread {
		ids = append(ids, n.ID)
	}
	return m.run("Notifications marked read", func(ctx context.Context) error {
		return m.store.MarkNotificationsRead(ctx, ids)
	})
}

func (m Model) generateReport() (tea.Model, tea.Cmd) {
	if m.generating || m.reports == nil {
		return m, nil
	}
	m.generating = true
	m.reportErr = nil
	in := report.Input{
		Items: m.snapshot.State.Items,
		Logs:  m.snapshot.State.Logs,
		Users: m.snapshot.State.Users,
	}
	gen, ctx := m.reports, m.ctx
	return m, func() tea.Msg {
		r, err := gen.Generate(ctx, in)
		return reportMsg{report: r, err: err}
	}
}

func (m Model) run(op string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	ctx := m.ctx
	return m, func() tea.Msg {
		return actionDoneMsg{op: op, err: fn(ctx)}
	}
}

// Commands

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func loadCmd(ctx context.Context, store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return loadDoneMsg{err: store.Load(ctx)}
	}
}

func loginCmd(ctx context.Context, guard *session.Guard, identifier, password string) tea.Cmd {
	return func() tea.Msg {
		_, err := guard.Login(ctx, identifier, password)
		return loginDoneMsg{err: err}
	}
}

func activityCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return activityMsg{}
		}
		entries, err := logtail.ReadEntries(path, activityLines, zerolog.InfoLevel)
		return activityMsg{entries: entries, err: err}
	}
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	ctx := m.ctx
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
