package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/slok/rbrowse/internal/model"
)

// CreateTaskRecord stores a new journal record.
func (r *Repository) CreateTaskRecord(ctx context.Context, rec model.TaskRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("record id is required: %w", model.ErrNotValid)
	}

	var finishedAt *int64
	if rec.FinishedAt != nil {
		ms := rec.FinishedAt.UnixMilli()
		finishedAt = &ms
	}

	query := `
		INSERT INTO task_records (id, task_id, kind, target, status, error, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		rec.ID,
		int64(rec.TaskID),
		rec.Kind,
		rec.Target,
		rec.Status,
		rec.Error,
		rec.CreatedAt.UnixMilli(),
		finishedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: task_records.") {
			return fmt.Errorf("task record %s: %w", rec.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert task record: %w", err)
	}

	r.logger.Debugf("Created task record: %s", rec.ID)
	return nil
}

// UpdateTaskRecord updates the status, error and finish time of a record.
func (r *Repository) UpdateTaskRecord(ctx context.Context, rec model.TaskRecord) error {
	var finishedAt *int64
	if rec.FinishedAt != nil {
		ms := rec.FinishedAt.UnixMilli()
		finishedAt = &ms
	}

	query := `UPDATE task_records SET status = ?, error = ?, finished_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, rec.Status, rec.Error, finishedAt, rec.ID)
	if err != nil {
		return fmt.Errorf("could not update task record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task record %s: %w", rec.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated task record: %s (status: %s)", rec.ID, rec.Status)
	return nil
}

// ListTaskRecords returns the newest records first, limit <= 0 returns all of them.
func (r *Repository) ListTaskRecords(ctx context.Context, limit int) ([]model.TaskRecord, error) {
	query := `
		SELECT id, task_id, kind, target, status, error, created_at, finished_at
		FROM task_records
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query task records: %w", err)
	}
	defer rows.Close()

	records := []model.TaskRecord{}
	for rows.Next() {
		rec, err := scanTaskRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// DeleteTaskRecords removes all the journal records.
func (r *Repository) DeleteTaskRecords(ctx context.Context) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM task_records`)
	if err != nil {
		return fmt.Errorf("could not delete task records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}

	r.logger.Debugf("Deleted %d task records", rows)
	return nil
}

func scanTaskRecord(s scanner) (model.TaskRecord, error) {
	var rec model.TaskRecord
	var taskID, createdAt int64
	var finishedAt sql.NullInt64

	err := s.Scan(
		&rec.ID,
		&taskID,
		&rec.Kind,
		&rec.Target,
		&rec.Status,
		&rec.Error,
		&createdAt,
		&finishedAt,
	)
	if err != nil {
		return model.TaskRecord{}, err
	}

	rec.TaskID = model.TaskID(taskID)
	rec.CreatedAt = timeFromUnixMilli(createdAt)
	if finishedAt.Valid {
		t := timeFromUnixMilli(finishedAt.Int64)
		rec.FinishedAt = &t
	}

	return rec, nil
}
