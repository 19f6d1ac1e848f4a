package task

import "github.com/slok/rbrowse/internal/model"

// Registry tracks the active tasks of a scheduler and the size of the current batch.
//
// It is not safe for concurrent use, it must only be used from the interactive context.
type Registry struct {
	lastID      model.TaskID
	active      map[model.TaskID]struct{}
	totalIssued int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: map[model.TaskID]struct{}{}}
}

// Issue assigns a fresh task id, marks it active and counts it in the current batch.
// Ids come from a monotonic counter so they are never reused while active.
func (r *Registry) Issue() model.TaskID {
	r.lastID++
	id := r.lastID
	r.active[id] = struct{}{}
	r.totalIssued++
	return id
}

// Complete releases an active task. When no task remains active the batch is reset.
// Returns false if the id was not active.
func (r *Registry) Complete(id model.TaskID) bool {
	if _, ok := r.active[id]; !ok {
		return false
	}

	delete(r.active, id)
	if len(r.active) == 0 {
		r.totalIssued = 0
	}
	return true
}

// Active returns the number of active tasks.
func (r *Registry) Active() int { return len(r.active) }

// TotalIssued returns the number of tasks issued since the registry was last empty.
func (r *Registry) TotalIssued() int { return r.totalIssued }

// Progress returns the current batch progress, hidden when there is no batch.
func (r *Registry) Progress() model.Progress {
	if r.totalIssued == 0 {
		return model.Progress{}
	}

	return model.Progress{
		Visible:   true,
		Completed: r.totalIssued - len(r.active),
		Total:     r.totalIssued,
	}
}
