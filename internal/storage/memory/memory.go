package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/slok/rbrowse/internal/log"
	"github.com/slok/rbrowse/internal/model"
	"github.com/slok/rbrowse/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.TaskRepository, used when the
// journal is not persisted.
type Repository struct {
	records map[string]model.TaskRecord
	mu      sync.RWMutex
	logger  log.Logger
}

var _ storage.TaskRepository = &Repository{}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		records: make(map[string]model.TaskRecord),
		logger:  cfg.Logger,
	}, nil
}

// CreateTaskRecord stores a new journal record.
func (r *Repository) CreateTaskRecord(ctx context.Context, rec model.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		return fmt.Errorf("record id is required: %w", model.ErrNotValid)
	}
	if _, ok := r.records[rec.ID]; ok {
		return fmt.Errorf("task record %s: %w", rec.ID, model.ErrAlreadyExists)
	}

	r.records[rec.ID] = rec
	r.logger.Debugf("Created task record: %s", rec.ID)

	return nil
}

// UpdateTaskRecord updates the status, error and finish time of an existing record.
func (r *Repository) UpdateTaskRecord(ctx context.Context, rec model.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[rec.ID]
	if !ok {
		return fmt.Errorf("task record %s: %w", rec.ID, model.ErrNotFound)
	}

	stored.Status = rec.Status
	stored.Error = rec.Error
	stored.FinishedAt = rec.FinishedAt
	r.records[rec.ID] = stored
	r.logger.Debugf("Updated task record: %s", rec.ID)

	return nil
}

// ListTaskRecords returns the newest records first.
func (r *Repository) ListTaskRecords(ctx context.Context, limit int) ([]model.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]model.TaskRecord, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}

	// Ties are broken by id, ULIDs sort by creation time.
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

// DeleteTaskRecords removes all the journal records.
func (r *Repository) DeleteTaskRecords(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[string]model.TaskRecord)
	r.logger.Debugf("Deleted all task records")

	return nil
}
