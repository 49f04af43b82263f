package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the lead console.
type KeyMap struct {
	// List.
	Up       key.Binding
	Down     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Search   key.Binding
	Sort     key.Binding
	PageSize key.Binding
	Refresh  key.Binding
	CopyID   key.Binding
	Edit     key.Binding

	// Search input.
	SearchAccept key.Binding
	SearchClear  key.Binding

	// Edit form.
	NextField key.Binding
	PrevField key.Binding
	Save      key.Binding
	Revert    key.Binding
	Cancel    key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("↓", "down"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("left", "["),
		key.WithHelp("←/[", "prev page"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("right", "]"),
		key.WithHelp("→/]", "next page"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort"),
	),
	PageSize: key.NewBinding(
		key.WithKeys("z"),
		key.WithHelp("z", "page size"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	CopyID: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy id"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	SearchAccept: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "apply"),
	),
	SearchClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("S-tab", "prev field"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "save"),
	),
	Revert: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "revert"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (keys KeyMap) listHelp() []key.Binding {
	return []key.Binding{keys.Search, keys.Sort, keys.PageSize, keys.PrevPage, keys.NextPage, keys.Refresh, keys.CopyID, keys.Edit, keys.Quit}
}

func (keys KeyMap) editHelp() []key.Binding {
	return []key.Binding{keys.NextField, keys.Save, keys.Revert, keys.Cancel}
}
