// Package tui renders a practice session in the terminal with Bubble Tea.
package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the practice screen bindings.
type KeyMap struct {
	Record key.Binding
	Reset  key.Binding
	Copy   key.Binding
	Share  key.Binding
	Quit   key.Binding
}

// DefaultKeyMap provides the default key bindings.
var DefaultKeyMap = KeyMap{
	Record: key.NewBinding(
		key.WithKeys(" ", "enter"),
		key.WithHelp("space", "record/stop"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r", "esc"),
		key.WithHelp("r", "start over"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy"),
	),
	Share: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "share"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
