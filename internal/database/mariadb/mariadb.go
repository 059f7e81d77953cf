// Package mariadb provides a MariaDB-backed attendance ledger for deployments
// that keep attendance next to an existing school information system.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	cfg.ParseTime = true
	// Over-long values must fail rather than be truncated into another key.
	if cfg.Params == nil {
		cfg.Params = make(map[string]string)
	}
	cfg.Params["sql_mode"] = "'STRICT_ALL_TABLES,NO_ENGINE_SUBSTITUTION'"

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// EnsureSchema creates the attendance table when it does not exist. Key
// columns use a binary collation so names and subjects compare exactly, as
// they do in PostgreSQL.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance_records (
			seq BIGINT AUTO_INCREMENT PRIMARY KEY,
			id CHAR(36) NOT NULL,
			name VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
			date DATE NOT NULL,
			day VARCHAR(16) NOT NULL,
			time VARCHAR(8) NOT NULL,
			slot VARCHAR(32) NOT NULL,
			subject VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY uq_attendance_key (name, date, subject),
			KEY idx_attendance_date_subject (date, subject)
		) CHARACTER SET utf8mb4
	`)
	if err != nil {
		return fmt.Errorf("create attendance table: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
