package browse

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Switch  key.Binding
	Detail  key.Binding
	Back    key.Binding
	Close   key.Binding
	Open    key.Binding
	Read    key.Binding
	Quit    key.Binding
	Choose  key.Binding
	Abandon key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Switch:  key.NewBinding(key.WithKeys("tab", "left", "right"), key.WithHelp("tab", "switch pane")),
	Detail:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "detail")),
	Back:    key.NewBinding(key.WithKeys("esc", "b"), key.WithHelp("esc", "sources")),
	Close:   key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
	Open:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open url")),
	Read:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "description")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Choose:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Abandon: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) listHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Up, k.Down, k.Detail, k.Back, k.Quit}
}

func (k keyMap) detailHelp(hasDescription bool) []key.Binding {
	if hasDescription {
		return []key.Binding{k.Open, k.Read, k.Close, k.Up, k.Down, k.Quit}
	}
	return []key.Binding{k.Open, k.Close, k.Up, k.Down, k.Quit}
}
