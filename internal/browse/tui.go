package browse

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

// Lines per listing in the list view (title + subtitle + blank separator).
const listingItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

// theme groups every style the browser renders with.
type theme struct {
	activeBorder   lipgloss.Style
	inactiveBorder lipgloss.Style
	activeHeader   lipgloss.Style
	inactiveHeader lipgloss.Style
	statusBar      lipgloss.Style
	title          lipgloss.Style
	subtitle       lipgloss.Style
	selTitle       lipgloss.Style
	selSubtitle    lipgloss.Style
	label          lipgloss.Style
	heading        lipgloss.Style
	divider        lipgloss.Style
	hint           lipgloss.Style
	body           lipgloss.Style
}

func newTheme() theme {
	const (
		accent = lipgloss.Color("39")
		dim    = lipgloss.Color("240")
		muted  = lipgloss.Color("245")
		light  = lipgloss.Color("252")
		bright = lipgloss.Color("15")
		selBg  = lipgloss.Color("24")
	)
	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder())
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	return theme{
		activeBorder:   border.BorderForeground(accent),
		inactiveBorder: border.BorderForeground(dim),
		activeHeader:   header.Foreground(accent),
		inactiveHeader: header.Foreground(dim),
		statusBar:      lipgloss.NewStyle().Padding(0, 1).Foreground(light).Background(lipgloss.Color("236")),
		title:          lipgloss.NewStyle().Bold(true),
		subtitle:       lipgloss.NewStyle().Foreground(muted),
		selTitle:       lipgloss.NewStyle().Bold(true).Foreground(bright).Background(selBg),
		selSubtitle:    lipgloss.NewStyle().Foreground(light).Background(selBg),
		label:          lipgloss.NewStyle().Bold(true).Foreground(accent).Width(14),
		heading:        lipgloss.NewStyle().Bold(true).Foreground(bright).MarginBottom(1),
		divider:        lipgloss.NewStyle().Foreground(dim),
		hint:           lipgloss.NewStyle().Foreground(muted).Italic(true),
		body:           lipgloss.NewStyle().Foreground(light),
	}
}

var styles = newTheme()

type browseModel struct {
	source  string
	all     []model.Listing
	matched []model.Listing
	panes   [2]pane
	active  int // 0=all, 1=matched
	width   int
	height  int
	ready   bool
	help    help.Model

	view            viewState
	detail          model.Listing
	detailViewport  viewport.Model
	showDescription bool

	openFn   func(url string)
	wantQuit bool
}

// pane is one scrollable listing column.
type pane struct {
	viewport viewport.Model
	cursor   int
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.wantQuit = true
		return m, tea.Quit
	case key.Matches(msg, keys.Back):
		return m, tea.Quit
	case key.Matches(msg, keys.Switch):
		m.active = 1 - m.active
		m.refresh()
		return m, nil
	case key.Matches(msg, keys.Up):
		m.step(-1)
		return m, nil
	case key.Matches(msg, keys.Down):
		m.step(1)
		return m, nil
	case key.Matches(msg, keys.Detail):
		return m.openDetail(), nil
	}

	// pgup/pgdn/home/end scroll the active pane.
	var cmd tea.Cmd
	m.panes[m.active].viewport, cmd = m.panes[m.active].viewport.Update(msg)
	return m, cmd
}

func (m browseModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.wantQuit = true
		return m, tea.Quit
	case key.Matches(msg, keys.Close):
		m.view = viewList
		return m, nil
	case key.Matches(msg, keys.Open):
		if m.openFn != nil && m.detail.URL != "" {
			m.openFn(m.detail.URL)
		}
		return m, nil
	case key.Matches(msg, keys.Read):
		if m.detail.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m browseModel) listings(i int) []model.Listing {
	if i == 0 {
		return m.all
	}
	return m.matched
}

// step moves the active cursor and keeps it inside the viewport.
func (m *browseModel) step(delta int) {
	p := &m.panes[m.active]
	p.cursor = clamp(p.cursor+delta, 0, max(len(m.listings(m.active))-1, 0))
	m.refresh()

	top := p.cursor * listingItemHeight
	bottom := top + listingItemHeight - 1
	vp := &p.viewport
	switch {
	case top < vp.YOffset:
		vp.SetYOffset(top)
	case bottom >= vp.YOffset+vp.Height:
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m browseModel) openDetail() browseModel {
	listings := m.listings(m.active)
	if len(listings) == 0 {
		return m
	}

	m.view = viewDetail
	m.detail = listings[m.panes[m.active].cursor]
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m
}

func (m *browseModel) resize() {
	// 2 border chars per pane + 1 gap between panes.
	w := max((m.width-5)/2, 20)
	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	h := max(m.height-4, 5)

	for i := range m.panes {
		if !m.ready {
			m.panes[i].viewport = viewport.New(w, h)
			continue
		}
		m.panes[i].viewport.Width = w
		m.panes[i].viewport.Height = h
	}
	m.ready = true
	m.refresh()
}

func (m *browseModel) refresh() {
	for i := range m.panes {
		m.panes[i].viewport.SetContent(renderListings(m.listings(i), m.panes[i].cursor, m.active == i))
	}
}

func (m browseModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browseModel) viewList() string {
	w := m.panes[0].viewport.Width
	titles := [2]string{
		fmt.Sprintf(" %s: all (%d)", m.source, len(m.all)),
		fmt.Sprintf(" Matched (%d)", len(m.matched)),
	}

	var headers, bodies [2]string
	for i := range m.panes {
		header, border := styles.inactiveHeader, styles.inactiveBorder
		if i == m.active {
			header, border = styles.activeHeader, styles.activeBorder
		}
		headers[i] = lipgloss.NewStyle().Width(w + 2).Render(header.Render(titles[i]))
		bodies[i] = border.Width(w).Render(m.panes[i].viewport.View())
	}

	counts := fmt.Sprintf("%d total | %d matched | %d filtered out   ",
		len(m.all), len(m.matched), len(m.all)-len(m.matched))
	status := styles.statusBar.Width(m.width).Render(counts + m.help.ShortHelpView(keys.listHelp()))

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, headers[0], " ", headers[1]),
		lipgloss.JoinHorizontal(lipgloss.Top, bodies[0], " ", bodies[1]),
		status,
	)
}

func (m browseModel) viewDetail() string {
	content := styles.activeBorder.Width(m.width - 2).Render(m.detailViewport.View())
	status := styles.statusBar.Width(m.width).Render(m.help.ShortHelpView(keys.detailHelp(m.detail.Description != "")))
	return styles.heading.Render("Listing Details") + "\n" + content + "\n" + status
}

func (m browseModel) renderDetail() string {
	l := m.detail
	var b strings.Builder

	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(styles.label.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	field("Title", l.Title)
	field("Company", l.CompanyName)
	field("Location", l.Location)
	field("Modality", l.Modality)
	field("Seniority", l.Seniority)
	if l.Salary != nil {
		field("Salary", formatSalary(*l.Salary))
	}
	b.WriteByte('\n')

	field("Source", l.Source)
	field("Listing ID", l.ID)
	if l.PostedAt != nil {
		field("Posted At", l.PostedAt.Local().Format("2006-01-02 15:04 MST"))
	}
	field("Tags", strings.Join(l.Tags, ", "))
	b.WriteByte('\n')
	field("URL", l.URL)

	if l.Description == "" {
		return b.String()
	}

	wrap := max(m.width-8, 20)
	b.WriteByte('\n')
	if !m.showDescription {
		b.WriteString(styles.hint.Render("  press r to read the description") + "\n")
		return b.String()
	}
	label := "── Description "
	b.WriteString(styles.divider.Render(label+strings.Repeat("─", max(wrap-len(label), 3))) + "\n\n")
	b.WriteString(styles.body.Render(wordWrap(l.Description, wrap)) + "\n")
	return b.String()
}

// formatSalary renders 85000 as "$85,000".
func formatSalary(v int) string {
	s := strconv.Itoa(v)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}

func renderListings(listings []model.Listing, cursor int, isActive bool) string {
	if len(listings) == 0 {
		return "  (no listings)"
	}

	var b strings.Builder
	for i, l := range listings {
		titleSt, subtitleSt, prefix := styles.title, styles.subtitle, "  "
		if isActive && i == cursor {
			titleSt, subtitleSt, prefix = styles.selTitle, styles.selSubtitle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(l.Title))
		b.WriteByte('\n')

		posted := "n/a"
		if l.PostedAt != nil {
			posted = l.PostedAt.Format("2006-01-02")
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %s", l.CompanyName, l.Location, posted)))
		b.WriteByte('\n')

		if i < len(listings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// sortByDate orders newest first; listings without a date go last.
func sortByDate(listings []model.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i].PostedAt, listings[j].PostedAt
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
}

func wordWrap(text string, width int) string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len(line)+1+len(w) <= width {
				line += " " + w
			} else {
				out = append(out, line)
				line = w
			}
		}
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

func newBrowseModel(source string, all, matched []model.Listing) browseModel {
	sortByDate(all)
	sortByDate(matched)
	return browseModel{
		source:  source,
		all:     all,
		matched: matched,
		help:    help.New(),
		openFn:  openURL,
	}
}

// Run launches the split-pane listing browser: every fetched listing on the
// left and those passing the keyword filter on the right.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed
// esc to return to the source picker.
func Run(source string, all, matched []model.Listing) (bool, error) {
	p := tea.NewProgram(newBrowseModel(source, all, matched), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(browseModel).wantQuit, nil
}
