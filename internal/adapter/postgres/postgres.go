// Package postgres persists poll-cycle history.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"orangemon/internal/domain"
)

// DB wraps a *sql.DB and implements the cycle recorder port.
type DB struct {
	sql *sql.DB
}

var _ domain.CycleRecorder = (*DB)(nil)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS poll_cycles (
			id TEXT PRIMARY KEY,
			collected_at TIMESTAMPTZ NOT NULL,
			total_profiles INTEGER NOT NULL,
			total_subscribers INTEGER NOT NULL,
			total_loyalty_points DOUBLE PRECISION NOT NULL,
			total_unpaid_amount DOUBLE PRECISION NOT NULL,
			total_unpaid_count INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_poll_cycles_collected_at ON poll_cycles(collected_at);`,
		`CREATE TABLE IF NOT EXISTS unpaid_bills (
			cycle_id TEXT NOT NULL REFERENCES poll_cycles(id) ON DELETE CASCADE,
			profile_id TEXT NOT NULL,
			profile_name TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			services DOUBLE PRECISION NOT NULL,
			installments DOUBLE PRECISION NOT NULL,
			due_date TEXT,
			has_invoices BOOLEAN NOT NULL,
			PRIMARY KEY (cycle_id, profile_id)
		);`,
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// RecordCycle inserts the summary of one successful poll cycle together
// with its unpaid-bill breakdown, in a single transaction.
func (d *DB) RecordCycle(ctx context.Context, cycleID string, snap *domain.AccountSnapshot) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO poll_cycles (id, collected_at, total_profiles, total_subscribers, total_loyalty_points, total_unpaid_amount, total_unpaid_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cycleID, time.Now(),
		snap.Summary.TotalProfiles, snap.Summary.TotalSubscribers,
		snap.Summary.TotalLoyaltyPoints, snap.Summary.TotalUnpaidAmount, snap.Summary.TotalUnpaidCount)
	if err != nil {
		return fmt.Errorf("insert poll cycle: %w", err)
	}

	for profileID, bill := range snap.UnpaidBills.ByProfile {
		var dueDate *string
		if bill.DueDate != "" {
			dueDate = &bill.DueDate
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO unpaid_bills (cycle_id, profile_id, profile_name, amount, services, installments, due_date, has_invoices)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			cycleID, profileID, bill.ProfileName,
			bill.Amount, bill.Services, bill.Installments, dueDate, bill.HasInvoices)
		if err != nil {
			return fmt.Errorf("insert unpaid bill: %w", err)
		}
	}

	return tx.Commit()
}
