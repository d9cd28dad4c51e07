package models

// TaskStatus represents the lifecycle of a single download task
type TaskStatus string

const (
	// TaskStatusPending means the task is queued but no worker picked it up yet
	TaskStatusPending TaskStatus = "Pending"

	// TaskStatusInProgress means a worker is transferring the file
	TaskStatusInProgress TaskStatus = "InProgress"

	// TaskStatusDone means the file is on disk
	TaskStatusDone TaskStatus = "Done"

	// TaskStatusFailed means the transfer failed after the HTTP layer gave up retrying
	TaskStatusFailed TaskStatus = "Failed"

	// TaskStatusSkipped means the source did not exist and the task was dropped
	TaskStatusSkipped TaskStatus = "Skipped"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsFinished returns true if the task reached a terminal state
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusDone || ts == TaskStatusFailed || ts == TaskStatusSkipped
}
