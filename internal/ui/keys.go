package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keyboard bindings of the main screen.
type keyMap struct {
	Quit     key.Binding
	Help     key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
	Up       key.Binding
	Down     key.Binding
	Reload   key.Binding
	Logout   key.Binding

	Approve  key.Binding
	Deny     key.Binding
	Return   key.Binding
	Borrow   key.Binding
	MarkRead key.Binding
	Generate key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "Q"),
			key.WithHelp("Q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "Up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "Down"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reload from server"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log out"),
		),
		Approve: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Approve selected"),
		),
		Deny: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Deny selected"),
		),
		Return: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Record or request return"),
		),
		Borrow: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "Borrow one of selected item"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Mark notifications read"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "Generate report"),
		),
	}
}

func (k keyMap) helpBindings() []key.Binding {
	return []key.Binding{
		k.Tab, k.ShiftTab, k.Up, k.Down, k.Reload,
		k.Borrow, k.Approve, k.Deny, k.Return, k.MarkRead, k.Generate,
		k.Logout, k.Help, k.Quit,
	}
}
