package domain

// TaskStatus is the lifecycle state of a task or step.
type TaskStatus string

const (
	TaskStatusNotRan     TaskStatus = "not_ran"
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusStopped    TaskStatus = "stopped"
	TaskStatusSkipped    TaskStatus = "skipped"
	TaskStatusSuccess    TaskStatus = "success"
)

// TaskStatuses lists every status in badge order.
var TaskStatuses = []TaskStatus{
	TaskStatusNotRan,
	TaskStatusQueued,
	TaskStatusInProgress,
	TaskStatusFailed,
	TaskStatusStopped,
	TaskStatusSkipped,
	TaskStatusSuccess,
}

func (s TaskStatus) Valid() bool {
	_, ok := statusColors[s]
	return ok
}

// NoDataColor is shown for a status badge whose count is zero.
const NoDataColor = "gainsboro"

var statusColors = map[TaskStatus]string{
	TaskStatusNotRan:     "gray",
	TaskStatusQueued:     "lightblue",
	TaskStatusInProgress: "lime",
	TaskStatusFailed:     "red",
	TaskStatusStopped:    "purple",
	TaskStatusSkipped:    "orange",
	TaskStatusSuccess:    "green",
}

// ColorForTaskStatus returns the badge color of a status with the given
// count. A non-positive count always yields NoDataColor. The second result is
// false when count is positive and the status is unknown.
func ColorForTaskStatus(status string, count int) (string, bool) {
	if count <= 0 {
		return NoDataColor, true
	}
	color, ok := statusColors[TaskStatus(status)]
	return color, ok
}
