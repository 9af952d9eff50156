package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit      key.Binding
	Switch    key.Binding
	Sort      key.Binding
	Direction key.Binding
	PrevPage  key.Binding
	NextPage  key.Binding
	Filter    key.Binding
	Apply     key.Binding
	Cancel    key.Binding
	Stop      key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Switch: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch view"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort column"),
	),
	Direction: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "direction"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←", "prev page"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→", "next page"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Apply: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "apply"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Stop: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "stop dag"),
	),
}

func (k keyMap) short() []key.Binding {
	return []key.Binding{k.Switch, k.Sort, k.Direction, k.PrevPage, k.NextPage, k.Filter, k.Stop, k.Quit}
}
