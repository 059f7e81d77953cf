package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/classroll/internal/database"
)

// LedgerRepository provides PostgreSQL-backed attendance ledger storage.
// Key uniqueness is enforced by a unique index on (name, date, subject).
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

const ledgerColumns = `id, name, to_char(date, 'YYYY-MM-DD'), day, time, slot, subject, status, created_at`

// AppendIfAbsent inserts rec unless its key exists. The unique index makes the
// check and the insert a single statement.
func (r *LedgerRepository) AppendIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	result, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_records (id, name, date, day, time, slot, subject, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name, date, subject) DO NOTHING
	`, rec.ID, rec.Name, rec.Date, rec.Day, rec.Time, rec.Slot, rec.Subject, string(rec.Status))
	if err != nil {
		return false, fmt.Errorf("append attendance record: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n == 1, nil
}

// Exists checks whether any record exists for the key
func (r *LedgerRepository) Exists(ctx context.Context, name, date, subject string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance_records WHERE name = $1 AND date = $2 AND subject = $3)",
		name, date, subject,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance record exists: %w", err)
	}
	return exists, nil
}

// MarkedNames returns the names with a record for (date, subject)
func (r *LedgerRepository) MarkedNames(ctx context.Context, date, subject string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT name FROM attendance_records WHERE date = $1 AND subject = $2",
		date, subject,
	)
	if err != nil {
		return nil, fmt.Errorf("query marked names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan marked name: %w", err)
		}
		names[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marked names: %w", err)
	}
	return names, nil
}

// Scan returns every record in insertion order
func (r *LedgerRepository) Scan(ctx context.Context) ([]database.AttendanceRecord, error) {
	return r.List(ctx, database.LedgerFilter{})
}

// List returns the records matching the filter in insertion order
func (r *LedgerRepository) List(ctx context.Context, filter database.LedgerFilter) ([]database.AttendanceRecord, error) {
	var conds []string
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("date", filter.Date)
	add("subject", filter.Subject)
	add("name", filter.Name)
	add("status", string(filter.Status))

	query := "SELECT " + ledgerColumns + " FROM attendance_records"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]database.AttendanceRecord, error) {
	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var status string
		if err := rows.Scan(
			&rec.ID,
			&rec.Name,
			&rec.Date,
			&rec.Day,
			&rec.Time,
			&rec.Slot,
			&rec.Subject,
			&status,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		rec.Status = database.AttendanceStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}
