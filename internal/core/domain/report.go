package domain

type Img struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name,omitempty"`
	Epoch   int     `json:"epoch"`
	Group   string  `json:"group,omitempty"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"` // base64
}

// ReportItem is one element of a report layout. Items nest.
type ReportItem struct {
	Type     string         `json:"type"`
	Name     string         `json:"name,omitempty"`
	Title    string         `json:"title,omitempty"`
	Source   string         `json:"source,omitempty"`
	Multi    bool           `json:"multi,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Items    []ReportItem   `json:"items,omitempty"`
	Imgs     []Img          `json:"imgs,omitempty"`
	Expanded bool           `json:"expanded,omitempty"`
}

type Report struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	Project          ProjectRef   `json:"project"`
	Layout           string       `json:"layout,omitempty"`
	Items            []ReportItem `json:"items"`
	Tasks            int          `json:"tasks"`
	TasksNotFinished int          `json:"tasks_not_finished"`
}
