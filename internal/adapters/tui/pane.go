package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"mlboard/internal/core/listview"
)

// pane is one tab of the dashboard: a list view plus how to render it.
type pane interface {
	Name() string
	Controller() listview.Controller
	Columns() []table.Column
	SortKeys() []string
	Render() paneState
}

// paneState is the row-independent part of a snapshot plus rendered rows.
type paneState struct {
	Rows      []table.Row
	Total     int
	PageIndex int
	PageSize  int
	Sort      listview.Sort
	Filter    string
	Loading   bool
	// Detail is shown under the table for the selected row.
	Detail func(row int) string
}

type listPane[T any] struct {
	name   string
	view   *listview.View[T]
	cols   []column[T]
	detail func(T) string
}

func (p *listPane[T]) Name() string                    { return p.name }
func (p *listPane[T]) Controller() listview.Controller { return p.view }
func (p *listPane[T]) Columns() []table.Column         { return tableColumns(p.cols) }
func (p *listPane[T]) SortKeys() []string              { return sortKeys(p.cols) }

func (p *listPane[T]) Render() paneState {
	snap := p.view.Snapshot()
	state := paneState{
		Rows:      tableRows(p.cols, snap.Rows),
		Total:     snap.Total,
		PageIndex: snap.PageIndex,
		PageSize:  snap.PageSize,
		Sort:      snap.Sort,
		Filter:    snap.Filter,
		Loading:   snap.Loading,
	}
	if p.detail != nil {
		state.Detail = func(row int) string {
			if row < 0 || row >= len(snap.Rows) {
				return ""
			}
			return p.detail(snap.Rows[row])
		}
	}
	return state
}

// updateMsg reports a state change of the pane at index.
type updateMsg struct {
	index int
}

// waitForUpdate blocks until the view changes state.
func waitForUpdate(ctx context.Context, index int, c listview.Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-c.Updates():
			return updateMsg{index: index}
		case <-c.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
