package model

import "fmt"

// Progress is the aggregated progress of the tasks issued since the scheduler was last idle.
type Progress struct {
	// Visible is false when there is no progress to show (nothing running).
	Visible   bool
	Completed int
	Total     int
}

// Percent returns the progress percentage in [0, 100].
func (p Progress) Percent() int {
	if !p.Visible || p.Total <= 0 {
		return 0
	}

	switch {
	case p.Completed <= 0:
		return 0
	case p.Completed >= p.Total:
		return 100
	}

	return 100 * p.Completed / p.Total
}

// Counter returns the "completed/total" literal, empty when not visible.
func (p Progress) Counter() string {
	if !p.Visible {
		return ""
	}
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}
