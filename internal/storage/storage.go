package storage

import (
	"context"

	"github.com/slok/rbrowse/internal/model"
)

// TaskRepository is the interface for the task journal persistence.
type TaskRepository interface {
	// CreateTaskRecord stores a new journal record.
	CreateTaskRecord(ctx context.Context, r model.TaskRecord) error
	// UpdateTaskRecord updates the status, error and finish time of an existing record.
	UpdateTaskRecord(ctx context.Context, r model.TaskRecord) error
	// ListTaskRecords returns the newest records first, limit <= 0 returns all of them.
	ListTaskRecords(ctx context.Context, limit int) ([]model.TaskRecord, error)
	// DeleteTaskRecords removes all the journal records.
	DeleteTaskRecords(ctx context.Context) error
}
