// internal/database/postgres.go
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB     *sqlx.DB
	logger *slog.Logger
}

var _ Store = (*PostgresDB)(nil)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string, logger *slog.Logger) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	logger.Info("connected to PostgreSQL")

	return &PostgresDB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	p.logger.Info("closing PostgreSQL connection")
	return p.DB.Close()
}

var schema = []struct {
	name string
	ddl  string
}{
	{"patient_contacts", `
		CREATE TABLE IF NOT EXISTS patient_contacts (
			user_id UUID PRIMARY KEY,
			full_name VARCHAR(200) NOT NULL,
			email VARCHAR(200) NOT NULL DEFAULT '',
			phone VARCHAR(50) NOT NULL DEFAULT '',
			emergency_contact VARCHAR(200) NOT NULL DEFAULT '',
			emergency_email VARCHAR(200) NOT NULL DEFAULT ''
		)`},
	// seq breaks ties between messages with the same sent_at.
	{"messages", `
		CREATE TABLE IF NOT EXISTS messages (
			seq BIGSERIAL UNIQUE,
			id UUID PRIMARY KEY,
			sender_id UUID NOT NULL,
			receiver_id UUID NOT NULL,
			body TEXT NOT NULL,
			sent_at TIMESTAMP WITH TIME ZONE NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			read_at TIMESTAMP WITH TIME ZONE
		)`},
	{"messages pair index", `
		CREATE INDEX IF NOT EXISTS idx_messages_pair
		ON messages (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id), sent_at, seq)`},
	{"messages unread index", `
		CREATE INDEX IF NOT EXISTS idx_messages_unread
		ON messages (receiver_id, sender_id) WHERE NOT is_read`},
	{"reminders", `
		CREATE TABLE IF NOT EXISTS reminders (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			subject_id UUID,
			medicine_name VARCHAR(200) NOT NULL,
			dosage VARCHAR(100) NOT NULL,
			frequency VARCHAR(50) NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE CHECK (end_date IS NULL OR end_date >= start_date),
			reminder_times TEXT[] NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`},
	{"reminders owner index", `
		CREATE INDEX IF NOT EXISTS idx_reminders_owner ON reminders (owner_id) WHERE is_active`},
	{"chat_logs", `
		CREATE TABLE IF NOT EXISTS chat_logs (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			input_text TEXT NOT NULL,
			reply_text TEXT NOT NULL,
			category VARCHAR(50) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`},
	{"emergency_alerts", `
		CREATE TABLE IF NOT EXISTS emergency_alerts (
			id UUID PRIMARY KEY,
			patient_id UUID NOT NULL,
			patient JSONB NOT NULL,
			emergency_type VARCHAR(50) NOT NULL,
			location TEXT NOT NULL,
			description TEXT NOT NULL,
			additional_contact TEXT NOT NULL DEFAULT '',
			recipients TEXT[] NOT NULL,
			dispatched_at TIMESTAMP WITH TIME ZONE NOT NULL,
			delivered BOOLEAN NOT NULL
		)`},
}

// InitializeTables creates all necessary tables if they don't exist
func (p *PostgresDB) InitializeTables(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.DB.ExecContext(ctx, stmt.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}
	return nil
}
