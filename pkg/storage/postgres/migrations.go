package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/carelink/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema migrations in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY CHECK (id > 0),
					first_name VARCHAR(255) NOT NULL,
					last_name VARCHAR(255) NOT NULL,
					username VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL,
					password_hash VARCHAR(255) NOT NULL,
					role VARCHAR(16) NOT NULL DEFAULT 'USER' CHECK (role IN ('ADMIN', 'USER')),
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					contact VARCHAR(255),
					created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT users_username_key UNIQUE (username)
				);

				CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email));
				CREATE INDEX IF NOT EXISTS idx_users_created_at ON users (created_at DESC);
			`,
		},
		{
			Version:     2,
			Description: "Create permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS permissions (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					can_manage_patients BOOLEAN NOT NULL DEFAULT FALSE,
					can_manage_doctors BOOLEAN NOT NULL DEFAULT FALSE,
					can_view_mappings BOOLEAN NOT NULL DEFAULT FALSE,
					can_create_mappings BOOLEAN NOT NULL DEFAULT FALSE,
					CONSTRAINT permissions_user_id_key UNIQUE (user_id)
				);
			`,
		},
		{
			Version:     3,
			Description: "Create patients, doctors and mappings tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS patients (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					age INT NOT NULL CHECK (age >= 0),
					disease VARCHAR(255) NOT NULL,
					contact VARCHAR(255),
					created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_patients_created_by ON patients (created_by);

				CREATE TABLE IF NOT EXISTS doctors (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					specialty VARCHAR(255) NOT NULL,
					experience INT NOT NULL DEFAULT 0,
					contact VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS mappings (
					id BIGSERIAL PRIMARY KEY,
					patient_id BIGINT NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
					doctor_id BIGINT NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
					created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_mappings_patient_id ON mappings (patient_id);
				CREATE INDEX IF NOT EXISTS idx_mappings_doctor_id ON mappings (doctor_id);
				CREATE INDEX IF NOT EXISTS idx_mappings_created_by ON mappings (created_by);
			`,
		},
		{
			Version:     4,
			Description: "Create issue requests table",
			SQL: `
				CREATE TABLE IF NOT EXISTS issue_requests (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					subject VARCHAR(255) NOT NULL,
					description TEXT NOT NULL,
					priority VARCHAR(16) NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
					status VARCHAR(16) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in-progress', 'resolved', 'rejected')),
					admin_notes TEXT,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_issue_requests_user_id ON issue_requests (user_id);
				CREATE INDEX IF NOT EXISTS idx_issue_requests_status ON issue_requests (status);
			`,
		},
	}
}

// RunMigrations executes all pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	for _, m := range GetMigrations() {
		if applied[m.Version] {
			continue
		}

		if logger != nil {
			logger.WithField("version", m.Version).Infof("Running migration: %s", m.Description)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
