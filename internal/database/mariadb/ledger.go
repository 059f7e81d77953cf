package mariadb

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/classroll/internal/database"
)

// LedgerRepository is a database.LedgerWriter on MariaDB. The unique key on
// (name, date, subject) together with INSERT IGNORE keeps one record per key.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new MariaDB ledger repository
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// AppendIfAbsent inserts rec unless its key exists. A duplicate key updates
// nothing and reports zero affected rows; any other error is returned.
func (r *LedgerRepository) AppendIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	result, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, name, date, day, time, slot, subject, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id
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
	err := r.pool.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance_records WHERE name = ? AND date = ? AND subject = ?)",
		name, date, subject,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance record exists: %w", err)
	}
	return exists, nil
}

// MarkedNames returns the names with a record for (date, subject)
func (r *LedgerRepository) MarkedNames(ctx context.Context, date, subject string) (map[string]bool, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		"SELECT name FROM attendance_records WHERE date = ? AND subject = ?", date, subject)
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
	for column, value := range map[string]string{
		"date":    filter.Date,
		"subject": filter.Subject,
		"name":    filter.Name,
		"status":  string(filter.Status),
	} {
		if value != "" {
			conds = append(conds, column+" = ?")
			args = append(args, value)
		}
	}

	query := `SELECT id, name, DATE_FORMAT(date, '%Y-%m-%d'), day, time, slot, subject, status, created_at
		FROM attendance_records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Date, &rec.Day, &rec.Time, &rec.Slot, &rec.Subject, &status, &rec.CreatedAt); err != nil {
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
