package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/rsaf-qualification-api/pkg/config"
)

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// schema is idempotent; dates are kept as YYYY-MM-DD text to match the serialized blob.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv_store (
        key TEXT PRIMARY KEY,
        value BYTEA NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS enrollments (
        id TEXT PRIMARY KEY,
        qualification_id INTEGER NOT NULL,
        qualification_code TEXT NOT NULL,
        qualification_name TEXT NOT NULL,
        trainee TEXT NOT NULL,
        enrolled_date TEXT NOT NULL,
        status TEXT NOT NULL,
        trainer_approver TEXT,
        trainer_approved_date TEXT,
        examiner_approver TEXT,
        examiner_approved_date TEXT,
        commander_approver TEXT,
        commander_approved_date TEXT,
        rejection_reason TEXT,
        rejected_by TEXT,
        rejected_by_role TEXT,
        rejected_date TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_enrollments_trainee ON enrollments (trainee)`,
	`CREATE INDEX IF NOT EXISTS idx_enrollments_status ON enrollments (status)`,
}

// Migrate creates the tables used by the postgres storage driver.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
