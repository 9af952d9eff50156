package tui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"mlboard/internal/core/domain"
)

// column describes one table column. Key is the sort column sent upstream;
// empty means the column is not sortable.
type column[T any] struct {
	Title string
	Width int
	Key   string
	Cell  func(T) string
}

func itoa(n int) string { return strconv.Itoa(n) }

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "B"
}

func statusSummary(counts []domain.StatusCount) string {
	parts := make([]string, 0, len(counts))
	for _, sc := range counts {
		if sc.Count > 0 {
			parts = append(parts, sc.Name+":"+itoa(sc.Count))
		}
	}
	return strings.Join(parts, " ")
}

var dagColumns = []column[domain.Dag]{
	{Title: "ID", Width: 6, Key: "id", Cell: func(d domain.Dag) string { return strconv.FormatInt(d.ID, 10) }},
	{Title: "Name", Width: 24, Key: "name", Cell: func(d domain.Dag) string { return d.Name }},
	{Title: "Project", Width: 16, Cell: func(d domain.Dag) string { return d.Project.Name }},
	{Title: "Tasks", Width: 6, Key: "task_count", Cell: func(d domain.Dag) string { return itoa(d.TaskCount) }},
	{Title: "Statuses", Width: 28, Cell: func(d domain.Dag) string { return statusSummary(d.TaskStatuses) }},
	{Title: "Created", Width: 16, Key: "created", Cell: func(d domain.Dag) string { return formatTime(d.Created) }},
	{Title: "Last activity", Width: 16, Key: "last_activity", Cell: func(d domain.Dag) string { return formatTime(d.LastActivity) }},
}

var projectColumns = []column[domain.Project]{
	{Title: "ID", Width: 6, Key: "id", Cell: func(p domain.Project) string { return strconv.FormatInt(p.ID, 10) }},
	{Title: "Name", Width: 28, Key: "name", Cell: func(p domain.Project) string { return p.Name }},
	{Title: "Images", Width: 10, Key: "img_size", Cell: func(p domain.Project) string { return formatBytes(p.ImgSize) }},
	{Title: "Files", Width: 10, Key: "file_size", Cell: func(p domain.Project) string { return formatBytes(p.FileSize) }},
	{Title: "Last activity", Width: 16, Key: "last_activity", Cell: func(p domain.Project) string { return formatTime(p.LastActivity) }},
}

func tableColumns[T any](cols []column[T]) []table.Column {
	out := make([]table.Column, len(cols))
	for i, c := range cols {
		out[i] = table.Column{Title: c.Title, Width: c.Width}
	}
	return out
}

func tableRows[T any](cols []column[T], rows []T) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		row := make(table.Row, len(cols))
		for j, c := range cols {
			row[j] = c.Cell(r)
		}
		out[i] = row
	}
	return out
}

func sortKeys[T any](cols []column[T]) []string {
	var keys []string
	for _, c := range cols {
		if c.Key != "" {
			keys = append(keys, c.Key)
		}
	}
	return keys
}
