package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"mlboard/internal/core/domain"
	"mlboard/internal/core/listview"
	"mlboard/internal/core/ports"
)

// Commander runs dashboard commands.
type Commander interface {
	StopDag(ctx context.Context, id int64) (*domain.DagStopResult, error)
}

// commandMsg carries the outcome of a command for the status line.
type commandMsg struct {
	text string
	err  error
}

// Model is the terminal dashboard: one tab per list view.
type Model struct {
	ctx         context.Context
	cancel      context.CancelFunc
	commands    Commander
	defaultDesc bool

	panes  []pane
	active int

	table  table.Model
	filter textinput.Model
	typing bool
	status string
	err    error
	width  int
}

// NewModel creates the dag and project panes and starts their views.
// commands may be nil, which disables the stop key.
func NewModel(ctx context.Context, svc ports.DataService, commands Commander, opts listview.Options) *Model {
	ctx, cancel := context.WithCancel(ctx)

	panes := []pane{
		&listPane[domain.Dag]{
			name:   listview.EntityDags,
			view:   listview.NewDagView(svc, opts),
			cols:   dagColumns,
			detail: dagDetail,
		},
		&listPane[domain.Project]{
			name: listview.EntityProjects,
			view: listview.NewProjectView(svc, opts),
			cols: projectColumns,
		},
	}
	for _, p := range panes {
		p.Controller().Start(ctx)
	}

	t := table.New(
		table.WithColumns(panes[0].Columns()),
		table.WithFocused(true),
		table.WithStyles(tableStyles()),
		table.WithHeight(12),
	)

	in := textinput.New()
	in.Placeholder = "filter by name"
	in.Prompt = "/ "
	in.CharLimit = 128

	return &Model{
		ctx:         ctx,
		cancel:      cancel,
		commands:    commands,
		defaultDesc: opts.DefaultDescending,
		panes:       panes,
		table:       t,
		filter:      in,
	}
}

// Close stops every view.
func (m *Model) Close() {
	m.cancel()
	for _, p := range m.panes {
		p.Controller().Close()
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, len(m.panes))
	for i, p := range m.panes {
		cmds[i] = waitForUpdate(m.ctx, i, p.Controller())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width - baseStyle.GetHorizontalFrameSize())
		m.table.SetHeight(max(3, msg.Height-baseStyle.GetVerticalFrameSize()-6))
		return m, nil

	case updateMsg:
		if msg.index == m.active {
			m.refresh()
		}
		return m, waitForUpdate(m.ctx, msg.index, m.panes[msg.index].Controller())

	case commandMsg:
		m.status, m.err = msg.text, msg.err
		return m, nil

	case tea.KeyMsg:
		if m.typing {
			return m.updateFilter(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Apply):
		m.typing = false
		m.filter.Blur()
		m.current().Controller().ApplyFilter(strings.TrimSpace(m.filter.Value()))
		return m, nil
	case key.Matches(msg, keys.Cancel):
		m.typing = false
		m.filter.Blur()
		m.filter.SetValue(m.current().Render().Filter)
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.current().Controller()
	state := m.current().Render()

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Switch):
		m.active = (m.active + 1) % len(m.panes)
		m.table.SetRows(nil)
		m.table.SetColumns(m.current().Columns())
		m.table.SetCursor(0)
		m.filter.SetValue(m.current().Render().Filter)
		m.refresh()
		return m, nil
	case key.Matches(msg, keys.Sort):
		column := nextSortColumn(m.current().SortKeys(), state.Sort.Active)
		view.SortChange(column, state.Sort.Direction)
		return m, nil
	case key.Matches(msg, keys.Direction):
		view.SortChange(state.Sort.Active, flipDirection(state.Sort.Direction, m.defaultDesc))
		return m, nil
	case key.Matches(msg, keys.PrevPage):
		if state.PageIndex > 0 {
			view.PageChange(state.PageIndex-1, state.PageSize)
		}
		return m, nil
	case key.Matches(msg, keys.NextPage):
		if (state.PageIndex+1)*state.PageSize < state.Total {
			view.PageChange(state.PageIndex+1, state.PageSize)
		}
		return m, nil
	case key.Matches(msg, keys.Filter):
		m.typing = true
		return m, m.filter.Focus()
	case key.Matches(msg, keys.Stop):
		return m, m.stopSelectedDag()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) stopSelectedDag() tea.Cmd {
	if m.commands == nil || m.current().Name() != listview.EntityDags {
		return nil
	}
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return nil
	}
	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return nil
	}

	ctx, commands := m.ctx, m.commands
	view, page := m.current().Controller(), m.current().Render().PageIndex
	return func() tea.Msg {
		if _, err := commands.StopDag(ctx, id); err != nil {
			return commandMsg{err: err}
		}
		// Reload the page so the dag shows its new state
		view.PageChange(page, 0)
		return commandMsg{text: fmt.Sprintf("dag %d stopped", id)}
	}
}

func (m *Model) current() pane {
	return m.panes[m.active]
}

func (m *Model) refresh() {
	state := m.current().Render()
	m.table.SetRows(state.Rows)
	if c := m.table.Cursor(); c >= len(state.Rows) && len(state.Rows) > 0 {
		m.table.SetCursor(len(state.Rows) - 1)
	}
}

func (m *Model) View() string {
	var b strings.Builder

	tabs := make([]string, len(m.panes))
	for i, p := range m.panes {
		style := tabStyle
		if i == m.active {
			style = activeTabStyle
		}
		tabs[i] = style.Render(p.Name())
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")

	state := m.current().Render()
	b.WriteString(baseStyle.Render(m.table.View()))
	b.WriteString("\n")
	b.WriteString(footer(state))
	b.WriteString("\n")

	if state.Detail != nil {
		if detail := state.Detail(m.table.Cursor()); detail != "" {
			b.WriteString(detail)
			b.WriteString("\n")
		}
	}

	if m.typing {
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(infoStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(infoStyle.Render(helpLine()))
	return b.String()
}

func footer(state paneState) string {
	pages := 0
	if state.PageSize > 0 {
		pages = (state.Total + state.PageSize - 1) / state.PageSize
	}
	parts := []string{
		fmt.Sprintf("page %d/%d", state.PageIndex+1, max(pages, 1)),
		fmt.Sprintf("%d rows", state.Total),
	}
	if state.Sort.Active != "" {
		dir := string(state.Sort.Direction)
		if dir == "" {
			dir = "default"
		}
		parts = append(parts, fmt.Sprintf("sort %s %s", state.Sort.Active, dir))
	}
	if state.Filter != "" {
		parts = append(parts, fmt.Sprintf("filter %q", state.Filter))
	}
	line := infoStyle.Render(strings.Join(parts, " · "))
	if state.Loading {
		line += " " + loadingStyle.Render("loading…")
	}
	return line
}

func helpLine() string {
	bindings := keys.short()
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		h := b.Help()
		parts[i] = h.Key + " " + h.Desc
	}
	return strings.Join(parts, " • ")
}

func dagDetail(d domain.Dag) string {
	badges := make([]string, 0, len(d.TaskStatuses))
	for _, sc := range d.TaskStatuses {
		badges = append(badges, statusBadge(sc))
	}
	if len(badges) == 0 {
		return ""
	}
	return d.Name + ": " + strings.Join(badges, " ")
}

// nextSortColumn cycles through keys, starting over after the last one.
func nextSortColumn(keys []string, active string) string {
	if len(keys) == 0 {
		return ""
	}
	for i, k := range keys {
		if k == active {
			return keys[(i+1)%len(keys)]
		}
	}
	return keys[0]
}

// flipDirection toggles between ascending and descending. An unset direction
// flips away from the default one.
func flipDirection(d listview.Direction, defaultDesc bool) listview.Direction {
	switch d {
	case listview.DirectionAsc:
		return listview.DirectionDesc
	case listview.DirectionDesc:
		return listview.DirectionAsc
	}
	if defaultDesc {
		return listview.DirectionAsc
	}
	return listview.DirectionDesc
}
