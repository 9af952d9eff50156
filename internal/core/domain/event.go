package domain

import "time"

type EventType string

const (
	EventDagStopped    EventType = "dag_stopped"
	EventReportToggled EventType = "report_toggled"
	EventStatusChanged EventType = "status_changed"
)

// Event announces a command executed through the dashboard.
type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
	Time    time.Time `json:"time"`
}

// ReportToggle is the payload of an EventReportToggled.
type ReportToggle struct {
	Task       int64 `json:"task"`
	Report     int64 `json:"report"`
	Remove     bool  `json:"remove"`
	ReportFull bool  `json:"report_full"`
}

// StatusChange is the payload of an EventStatusChanged.
type StatusChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}
