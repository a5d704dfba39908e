package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/state"
)

// View implements tea.Model.
func (m Model) View() string {
	switch {
	case !m.snapshot.Ready():
		return m.renderLoading()
	case !m.authed:
		return m.renderLogin()
	case m.showHelp:
		return m.renderHelp()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTabs(),
		m.renderBody(),
		m.renderFooter(),
	)
}

func (m Model) renderLoading() string {
	s := m.styles
	title := s.Logo.Render(m.prefs.Title)
	if m.snapshot.Load != state.LoadFailed {
		return title + "\n\n" + s.WarningText.Render("Loading laboratory data...")
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	b.WriteString(s.DangerText.Render("Could not load data from the server") + "\n")
	if m.snapshot.LoadError != nil {
		b.WriteString(s.Text.Render(m.snapshot.LoadError.Error()) + "\n")
	}
	if m.baseURL != "" {
		b.WriteString(s.MutedText.Render("backend "+m.baseURL) + "\n")
	}
	b.WriteString("\n")
	if m.busy {
		b.WriteString(s.WarningText.Render("Retrying..."))
	} else {
		b.WriteString(s.FaintText.Render("r retry   Q quit"))
	}
	return b.String()
}

func (m Model) renderLogin() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Logo.Render(m.prefs.Title) + "\n")
	if m.prefs.LogoURL != "" {
		b.WriteString(s.FaintText.Render(m.prefs.LogoURL) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.loginInputs[0].View() + "\n")
	b.WriteString(m.loginInputs[1].View() + "\n\n")
	switch {
	case m.loggingIn:
		b.WriteString(s.WarningText.Render("Signing in..."))
	case m.loginErr != nil:
		b.WriteString(s.DangerText.Render(loginErrorText(m.loginErr)))
	default:
		b.WriteString(s.FaintText.Render("enter sign in   tab switch field   esc quit"))
	}
	return s.Panel.Render(b.String())
}

func (m Model) renderHeader() string {
	s := m.styles
	role := "student"
	if m.user.IsAdmin {
		role = "admin"
	}
	parts := []string{
		s.Logo.Render(m.prefs.Title),
		s.Text.Render(displayName(m.user)),
		s.MutedText.Render(role),
		m.syncLabel(),
	}
	if unread := len(m.snapshot.UnreadFor(m.user)); unread > 0 {
		parts = append(parts, s.WarningText.Render(fmt.Sprintf("%d unread", unread)))
	}
	return s.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) syncLabel() string {
	s := m.styles
	snap := m.snapshot
	switch snap.Sync {
	case state.SyncSyncing:
		return s.WarningText.Render("syncing")
	case state.SyncError:
		return s.DangerText.Render("sync error")
	case state.SyncSynced:
		return s.SuccessText.Render("synced " + snap.LastSynced.Format("15:04:05"))
	}
	return s.MutedText.Render("idle")
}

func (m Model) renderTabs() string {
	var tabs []string
	for _, v := range m.views() {
		if v == m.view {
			tabs = append(tabs, m.styles.TabOn.Render(v.String()))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(v.String()))
		}
	}
	return strings.Join(tabs, " ")
}

func (m Model) renderBody() string {
	var body string
	switch m.view {
	case ViewRequests:
		body = m.renderRequests()
	case ViewUsers:
		body = m.renderUsers()
	case ViewActivity:
		body = m.renderActivity()
	case ViewReport:
		body = m.renderReport()
	default:
		body = m.renderInventory()
	}
	style := m.styles.Panel
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.Render(body)
}

func (m Model) renderInventory() string {
	items := m.snapshot.State.Items
	if len(items) == 0 {
		return m.styles.MutedText.Render("No items in the inventory.")
	}
	rows := make([]string, 0, len(items)+1)
	rows = append(rows, m.styles.FaintText.Render(fmt.Sprintf("%-28s %-16s %9s", "ITEM", "CATEGORY", "AVAILABLE")))
	for i, item := range items {
		line := fmt.Sprintf("%-28s %-16s %4d/%-4d",
			truncate(item.Name, 28), truncate(item.Category, 16), item.AvailableQuantity, item.TotalQuantity)
		rows = append(rows, m.row(ViewInventory, i, line))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderRequests() string {
	entries := m.requestRows()
	if len(entries) == 0 {
		return m.styles.MutedText.Render("No open requests.")
	}
	rows := make([]string, 0, len(entries))
	for i, l := range entries {
		status := l.Status
		if l.ReturnRequested {
			status = "RETURN REQUESTED"
		}
		line := fmt.Sprintf("%-22s %-22s x%-3d %s",
			truncate(m.snapshot.ItemName(l.ItemID), 22),
			truncate(m.snapshot.UserName(l.UserID), 22),
			l.Quantity,
			m.styles.StatusStyle(l.Status).Render(status))
		rows = append(rows, m.row(ViewRequests, i, line))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderUsers() string {
	users := m.userRows()
	if len(users) == 0 {
		return m.styles.MutedText.Render("No users.")
	}
	rows := make([]string, 0, len(users))
	for i, u := range users {
		role := u.Role
		if u.IsAdmin {
			role = "Admin"
		}
		line := fmt.Sprintf("%-24s %-28s %-10s %s",
			truncate(displayName(u), 24), truncate(u.Email, 28), truncate(role, 10),
			m.styles.StatusStyle(u.Status).Render(u.Status))
		rows = append(rows, m.row(ViewUsers, i, line))
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderActivity() string {
	if len(m.activity) == 0 {
		return m.styles.MutedText.Render("No activity logged yet.")
	}
	limit := len(m.activity)
	if m.height > 8 && limit > m.height-8 {
		limit = m.height - 8
	}
	lines := make([]string, 0, limit)
	for _, e := range m.activity[len(m.activity)-limit:] {
		lines = append(lines, e.Format())
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderReport() string {
	s := m.styles
	switch {
	case m.generating:
		return s.WarningText.Render("Generating report...")
	case m.reportErr != nil:
		return s.DangerText.Render(m.reportErr.Error()) + "\n" + s.FaintText.Render("g try again")
	case m.report == nil:
		return s.MutedText.Render("Press g to generate an inventory report.")
	}

	r := m.report
	var b strings.Builder
	b.WriteString(s.Text.Render(r.Summary) + "\n")
	if len(r.LowStock) > 0 {
		b.WriteString("\n" + s.AccentText.Render("Low stock") + "\n")
		for _, ls := range r.LowStock {
			fmt.Fprintf(&b, "  %s %d/%d\n", ls.ItemName, ls.Available, ls.Total)
		}
	}
	if len(r.TopBorrowed) > 0 {
		b.WriteString("\n" + s.AccentText.Render("Most borrowed") + "\n")
		for _, tb := range r.TopBorrowed {
			fmt.Fprintf(&b, "  %s (%d)\n", tb.ItemName, tb.BorrowCount)
		}
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("\n" + s.AccentText.Render("Recommendations") + "\n")
		for _, rec := range r.Recommendations {
			b.WriteString("  - " + rec + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderFooter() string {
	s := m.styles
	var text string
	switch {
	case m.statusErr != nil:
		text = s.DangerText.Render(errorText(m.statusErr))
	case m.busy:
		text = s.WarningText.Render("Working...")
	case m.statusMsg != "":
		text = s.SuccessText.Render(m.statusMsg)
	default:
		text = "tab views  ↑/↓ select  r reload  ? help  Q quit"
	}
	return s.Footer.Width(m.width).Render(text)
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.styles.Logo.Render("Keys") + "\n\n")
	for _, binding := range m.keys.helpBindings() {
		h := binding.Help()
		fmt.Fprintf(&b, "  %-10s %s\n", h.Key, h.Desc)
	}
	b.WriteString("\n" + m.styles.FaintText.Render("any key to close"))
	return m.styles.Panel.Render(b.String())
}

func (m Model) row(v View, idx int, line string) string {
	if idx == m.cursor[v] {
		return m.styles.Selected.Render("> " + line)
	}
	return "  " + line
}

func displayName(u api.User) string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	case u.ID != "":
		return u.ID
	}
	return state.Missing
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
