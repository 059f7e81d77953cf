package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/classroll/internal/timetable"
)

// TimetableRepository stores the weekly timetable, keeping row order
type TimetableRepository struct {
	pool *Pool
}

// NewTimetableRepository creates a new PostgreSQL timetable repository
func NewTimetableRepository(pool *Pool) *TimetableRepository {
	return &TimetableRepository{pool: pool}
}

// Entries returns the timetable in storage order
func (r *TimetableRepository) Entries(ctx context.Context) ([]timetable.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day, start_time, end_time, subject
		FROM timetable_entries
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query timetable: %w", err)
	}
	defer rows.Close()

	var entries []timetable.Entry
	for rows.Next() {
		var e timetable.Entry
		if err := rows.Scan(&e.Day, &e.Start, &e.End, &e.Subject); err != nil {
			return nil, fmt.Errorf("scan timetable entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timetable: %w", err)
	}
	return entries, nil
}

// ReplaceTimetable swaps the whole timetable in one transaction
func (r *TimetableRepository) ReplaceTimetable(ctx context.Context, entries []timetable.Entry) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM timetable_entries"); err != nil {
		return fmt.Errorf("clear timetable: %w", err)
	}
	for i, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO timetable_entries (position, day, start_time, end_time, subject)
			VALUES ($1, $2, $3, $4, $5)
		`, i, e.Day, e.Start, e.End, e.Subject); err != nil {
			return fmt.Errorf("insert timetable row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
