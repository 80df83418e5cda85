package browse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

// ErrCancelled is returned by RunLoader when the user aborts the fetch.
var ErrCancelled = errors.New("cancelled")

// FetchTimeout bounds a single interactive fetch.
const FetchTimeout = 2 * time.Minute

type fetchDoneMsg struct {
	result model.FetchResult
}

type loaderModel struct {
	sourceName string
	fetchFn    func(ctx context.Context) model.FetchResult
	spinner    spinner.Model
	result     model.FetchResult
	cancelled  bool
	done       bool
}

func newLoaderModel(sourceName string, fetchFn func(ctx context.Context) model.FetchResult) loaderModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	return loaderModel{
		sourceName: sourceName,
		fetchFn:    fetchFn,
		spinner:    s,
	}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doFetch(), m.spinner.Tick)
}

func (m loaderModel) doFetch() tea.Cmd {
	fetchFn := m.fetchFn
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), FetchTimeout)
		defer cancel()
		return fetchDoneMsg{result: fetchFn(ctx)}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchDoneMsg:
		m.result = msg.result
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Fetching listings from %s...\n", m.spinner.View(), m.sourceName)
}

// RunLoader shows a spinner while fetchFn runs. It renders inline (no alt screen).
func RunLoader(sourceName string, fetchFn func(ctx context.Context) model.FetchResult) (model.FetchResult, error) {
	p := tea.NewProgram(newLoaderModel(sourceName, fetchFn))
	result, err := p.Run()
	if err != nil {
		return model.FetchResult{}, err
	}
	final := result.(loaderModel)
	if final.cancelled {
		return model.FetchResult{}, ErrCancelled
	}
	return final.result, nil
}
