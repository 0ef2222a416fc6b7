package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const refreshInterval = 250 * time.Millisecond

// Actions are the user commands the terminal program forwards to the controller
type Actions interface {
	StartScan()
	SwitchView(view View)
	ReloadView()
	ToggleSelect(deviceID int)
	BulkIgnore()
	BulkUnignore()
	ToggleItem(itemID int)
	DeleteItems()
}

type keyMap struct {
	Quit     key.Binding
	Scan     key.Binding
	Reload   key.Binding
	Views    key.Binding
	Next     key.Binding
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Ignore   key.Binding
	Unignore key.Binding
	Delete   key.Binding
	Help     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Scan:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Views:    key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "view")),
		Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		Ignore:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "ignore selected")),
		Unignore: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unignore selected")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete selected items")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.Reload, k.Views, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Scan, k.Reload, k.Views, k.Next},
		{k.Up, k.Down, k.Select, k.Ignore, k.Unignore, k.Delete},
		{k.Help, k.Quit},
	}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type programModel struct {
	page    *Page
	actions Actions
	keys    keyMap
	help    help.Model
	bar     progress.Model
	spin    spinner.Model
	snap    Snapshot
	cursor  int
	width   int
}

func newProgramModel(page *Page, actions Actions) *programModel {
	return &programModel{
		page:    page,
		actions: actions,
		keys:    newKeyMap(),
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spin: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(colorPink))),
		),
		snap: page.Snapshot(),
	}
}

func (m *programModel) Init() tea.Cmd {
	return tea.Batch(tick(), m.spin.Tick)
}

func (m *programModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.bar.Width = min(max(msg.Width-20, 10), 60)
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *programModel) refresh() {
	m.snap = m.page.Snapshot()
	if n := m.rows(); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

// rows is the number of selectable rows of the active view
func (m *programModel) rows() int {
	switch m.snap.View {
	case ViewScanning:
		return len(m.snap.Devices)
	case ViewInventory:
		return len(m.snap.Inventory)
	}
	return 0
}

func (m *programModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Scan):
		m.actions.StartScan()
	case key.Matches(msg, m.keys.Reload):
		m.actions.ReloadView()
	case key.Matches(msg, m.keys.Views):
		idx := int(msg.String()[0] - '1')
		if idx >= 0 && idx < len(Views) {
			m.switchView(Views[idx])
		}
	case key.Matches(msg, m.keys.Next):
		m.switchView(nextView(m.snap.View))
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.rows()-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select):
		m.toggleRow()
	case key.Matches(msg, m.keys.Ignore):
		m.actions.BulkIgnore()
	case key.Matches(msg, m.keys.Unignore):
		m.actions.BulkUnignore()
	case key.Matches(msg, m.keys.Delete):
		if m.snap.View == ViewInventory {
			m.actions.DeleteItems()
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *programModel) toggleRow() {
	if m.cursor >= m.rows() {
		return
	}
	switch m.snap.View {
	case ViewScanning:
		m.actions.ToggleSelect(m.snap.Devices[m.cursor].Device.ID)
	case ViewInventory:
		m.actions.ToggleItem(m.snap.Inventory[m.cursor].Item.ID)
	}
}

func (m *programModel) switchView(v View) {
	m.cursor = 0
	m.actions.SwitchView(v)
	m.refresh()
}

func nextView(v View) View {
	for i, candidate := range Views {
		if candidate == v {
			return Views[(i+1)%len(Views)]
		}
	}
	return ViewDashboard
}

func (m *programModel) View() string {
	return Render(m.snap, RenderOptions{
		Width:    m.width,
		Cursor:   m.cursor,
		Progress: m.bar.ViewAs,
		Spinner:  m.spin.View(),
		Help:     m.help.View(m.keys),
	})
}

// Run shows the page full screen until the user quits or ctx ends
func Run(ctx context.Context, page *Page, actions Actions) error {
	p := tea.NewProgram(newProgramModel(page, actions), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil) {
		return nil
	}
	return err
}
