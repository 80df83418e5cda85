package browse

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SourceChoice is one row of the source picker.
type SourceChoice struct {
	Name  string
	Query string
}

func (c SourceChoice) Title() string       { return c.Name }
func (c SourceChoice) Description() string { return fmt.Sprintf("query %q", c.Query) }
func (c SourceChoice) FilterValue() string { return c.Name }

const (
	pickerPending = -1
	pickerQuit    = -2
)

type pickerModel struct {
	list   list.Model
	chosen int
}

func newPickerModel(choices []SourceChoice) pickerModel {
	items := make([]list.Item, len(choices))
	for i, c := range choices {
		items[i] = c
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Browse listings: select a source"
	l.Styles.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39"))
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{keys.Choose} }

	return pickerModel{list: l, chosen: pickerPending}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Abandon):
			m.chosen = pickerQuit
			return m, tea.Quit
		case key.Matches(msg, keys.Choose):
			if len(m.list.Items()) > 0 {
				m.chosen = m.list.Index()
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}

// RunSourcePicker shows an interactive source selector.
// Returns the index of the chosen source, or -1 if the user quit.
func RunSourcePicker(choices []SourceChoice) (int, error) {
	p := tea.NewProgram(newPickerModel(choices))
	result, err := p.Run()
	if err != nil {
		return -1, err
	}

	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}
