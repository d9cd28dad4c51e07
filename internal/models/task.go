package models

import (
	"time"

	"github.com/google/uuid"
)

// DownloadTask tracks one descriptor through the worker pool.
type DownloadTask struct {
	ID         string
	Descriptor SubtitleDescriptor
	Attempts   int
	Status     TaskStatus
	Bytes      int64
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewDownloadTask creates a pending task for descriptor.
func NewDownloadTask(descriptor SubtitleDescriptor) *DownloadTask {
	return &DownloadTask{
		ID:         uuid.NewString(),
		Descriptor: descriptor,
		Status:     TaskStatusPending,
	}
}

// DownloadReport summarizes a finished batch. Tasks keep the dispatch order.
type DownloadReport struct {
	Tasks   []*DownloadTask
	Done    int
	Failed  int
	Skipped int
	Bytes   int64
}

// Errors returns the errors of every failed task.
func (r DownloadReport) Errors() []error {
	var errs []error
	for _, task := range r.Tasks {
		if task.Status == TaskStatusFailed && task.Err != nil {
			errs = append(errs, task.Err)
		}
	}
	return errs
}
