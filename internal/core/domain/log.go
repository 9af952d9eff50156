package domain

import "time"

type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Log is one log record emitted by a worker, a task step or a server component.
type Log struct {
	ID        int64     `json:"id"`
	Message   []string  `json:"message"`
	Time      time.Time `json:"time"`
	Level     LogLevel  `json:"level"`
	Component string    `json:"component"`
	Computer  string    `json:"computer,omitempty"`
	Step      *int64    `json:"step,omitempty"`
	Task      *int64    `json:"task,omitempty"`
	Module    string    `json:"module,omitempty"`
	Line      int       `json:"line,omitempty"`
}
