package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// runMigrations runs all Bun migrations
func runMigrations(ctx context.Context, db *bun.DB) error {
	// Detect database dialect - check if it's PostgreSQL by checking dialect features
	_, isPostgres := db.Dialect().(interface{ SupportsReturning() bool })

	// Create a simple migrations tracking table
	var createTrackingSQL string
	if isPostgres {
		createTrackingSQL = `
			CREATE TABLE IF NOT EXISTS bun_schema_migrations (
				id SERIAL PRIMARY KEY,
				version TEXT NOT NULL UNIQUE,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`
	} else {
		createTrackingSQL = `
			CREATE TABLE IF NOT EXISTS bun_schema_migrations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				version TEXT NOT NULL UNIQUE,
				applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`
	}
	_, err := db.ExecContext(ctx, createTrackingSQL)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Check which migrations have been applied
	type AppliedMigration struct {
		bun.BaseModel `bun:"table:bun_schema_migrations"`
		Version       string `bun:"version"`
	}
	var applied []AppliedMigration
	err = db.NewSelect().
		Model(&applied).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	// Run migrations in order
	migrations := []struct {
		version string
		name    string
		up      func(context.Context, *bun.DB) error
	}{
		{"001", "initial_schema", init001CreateInvocationsTable},
		{"002", "create_jobs_table", init002CreateJobsTable},
		{"003", "add_tool_usage", init003AddToolUsage},
	}

	for _, m := range migrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}

		// Mark as applied
		_, err = db.NewInsert().
			Model(&AppliedMigration{Version: m.version}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.version, err)
		}
	}

	Logger.Info("All migrations completed successfully")
	return nil
}

// Migration 001: Create initial schema (invocations and server_config tables)
func init001CreateInvocationsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 001: Create initial schema")

	// Detect database dialect - check if it's PostgreSQL by checking dialect features
	_, isPostgres := db.Dialect().(interface{ SupportsReturning() bool })

	// Create invocations table
	var createTableSQL string
	if isPostgres {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS invocations (
				id SERIAL PRIMARY KEY,
				tool_name TEXT NOT NULL,
				file_name TEXT NOT NULL,
				file_hash TEXT NOT NULL,
				file_size BIGINT NOT NULL DEFAULT 0,
				ulid TEXT NOT NULL UNIQUE,
				status TEXT NOT NULL,
				summary TEXT,
				error TEXT,
				results TEXT,
				result_dir TEXT,
				page_count INTEGER DEFAULT 0,
				duration_ms BIGINT DEFAULT 0,
				invoked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
	} else {
		createTableSQL = `
			CREATE TABLE IF NOT EXISTS invocations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				tool_name TEXT NOT NULL,
				file_name TEXT NOT NULL,
				file_hash TEXT NOT NULL,
				file_size INTEGER NOT NULL DEFAULT 0,
				ulid TEXT NOT NULL UNIQUE,
				status TEXT NOT NULL,
				summary TEXT,
				error TEXT,
				results TEXT,
				result_dir TEXT,
				page_count INTEGER DEFAULT 0,
				duration_ms INTEGER DEFAULT 0,
				invoked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
	}

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create invocations table: %w", err)
	}

	// Create indexes for invocations
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_invocations_hash ON invocations(file_hash)",
		"CREATE INDEX IF NOT EXISTS idx_invocations_ulid ON invocations(ulid)",
		"CREATE INDEX IF NOT EXISTS idx_invocations_tool_name ON invocations(tool_name)",
		"CREATE INDEX IF NOT EXISTS idx_invocations_invoked_at ON invocations(invoked_at DESC)",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Create server_config table
	var createConfigSQL string
	var insertConfigSQL string
	if isPostgres {
		createConfigSQL = `
			CREATE TABLE IF NOT EXISTS server_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				listen_addr_ip TEXT DEFAULT '',
				listen_addr_port TEXT NOT NULL DEFAULT '8000',
				workspace_path TEXT NOT NULL DEFAULT '',
				results_path TEXT NOT NULL DEFAULT '',
				renderer TEXT NOT NULL DEFAULT 'pdfium',
				render_service_url TEXT DEFAULT '',
				default_zoom INTEGER NOT NULL DEFAULT 2,
				max_zoom INTEGER NOT NULL DEFAULT 8,
				thumbnail_width INTEGER NOT NULL DEFAULT 1024,
				max_upload_mb INTEGER NOT NULL DEFAULT 100,
				sweep_interval INTEGER NOT NULL DEFAULT 30,
				job_retention_hours INTEGER NOT NULL DEFAULT 72,
				result_retention_hours INTEGER NOT NULL DEFAULT 24,
				recent_invocation_number INTEGER NOT NULL DEFAULT 20,
				server_api_url TEXT DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
		insertConfigSQL = `INSERT INTO server_config (id) VALUES (1) ON CONFLICT (id) DO NOTHING`
	} else {
		createConfigSQL = `
			CREATE TABLE IF NOT EXISTS server_config (
				id INTEGER PRIMARY KEY CHECK (id = 1),
				listen_addr_ip TEXT DEFAULT '',
				listen_addr_port TEXT NOT NULL DEFAULT '8000',
				workspace_path TEXT NOT NULL DEFAULT '',
				results_path TEXT NOT NULL DEFAULT '',
				renderer TEXT NOT NULL DEFAULT 'pdfium',
				render_service_url TEXT DEFAULT '',
				default_zoom INTEGER NOT NULL DEFAULT 2,
				max_zoom INTEGER NOT NULL DEFAULT 8,
				thumbnail_width INTEGER NOT NULL DEFAULT 1024,
				max_upload_mb INTEGER NOT NULL DEFAULT 100,
				sweep_interval INTEGER NOT NULL DEFAULT 30,
				job_retention_hours INTEGER NOT NULL DEFAULT 72,
				result_retention_hours INTEGER NOT NULL DEFAULT 24,
				recent_invocation_number INTEGER NOT NULL DEFAULT 20,
				server_api_url TEXT DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
		`
		insertConfigSQL = `INSERT OR IGNORE INTO server_config (id) VALUES (1)`
	}

	_, err = db.ExecContext(ctx, createConfigSQL)
	if err != nil {
		return fmt.Errorf("failed to create server_config table: %w", err)
	}

	// Insert default config row
	_, err = db.ExecContext(ctx, insertConfigSQL)
	if err != nil {
		return fmt.Errorf("failed to insert default config: %w", err)
	}

	Logger.Info("Migration 001 completed successfully")
	return nil
}

func init001RollbackInvocationsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Rolling back migration 001")

	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS server_config")
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS invocations")
	return err
}

// Migration 002: Create jobs table
func init002CreateJobsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 002: Create jobs table")

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT DEFAULT 'pending',
			progress INTEGER DEFAULT 0,
			current_step TEXT DEFAULT '',
			total_steps INTEGER DEFAULT 0,
			message TEXT DEFAULT '',
			error TEXT,
			result TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			started_at TIMESTAMP,
			completed_at TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_type ON jobs(type)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_jobs_completed_at ON jobs(completed_at) WHERE completed_at IS NOT NULL",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			// Partial indexes might not be supported in all SQLite versions
			Logger.Warn("Could not create index (might not be supported)", "error", err)
		}
	}

	Logger.Info("Migration 002 completed successfully")
	return nil
}

func init002RollbackJobsTable(ctx context.Context, db *bun.DB) error {
	Logger.Info("Rolling back migration 002")

	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS jobs")
	return err
}

// Migration 003: Add tool usage tables
func init003AddToolUsage(ctx context.Context, db *bun.DB) error {
	Logger.Info("Running migration 003: Add tool usage tables")

	// Detect database dialect
	_, isPostgres := db.Dialect().(interface{ SupportsReturning() bool })

	// Create tool_usage table
	var createUsageSQL string
	if isPostgres {
		createUsageSQL = `
			CREATE TABLE IF NOT EXISTS tool_usage (
				tool_name TEXT PRIMARY KEY,
				invocations INTEGER DEFAULT 0,
				failures INTEGER DEFAULT 0,
				total_duration_ms BIGINT DEFAULT 0,
				last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`
	} else {
		createUsageSQL = `
			CREATE TABLE IF NOT EXISTS tool_usage (
				tool_name TEXT PRIMARY KEY,
				invocations INTEGER DEFAULT 0,
				failures INTEGER DEFAULT 0,
				total_duration_ms INTEGER DEFAULT 0,
				last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)
		`
	}
	_, err := db.ExecContext(ctx, createUsageSQL)
	if err != nil {
		return fmt.Errorf("failed to create tool_usage table: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_tool_usage_invocations ON tool_usage(invocations DESC)",
		"CREATE INDEX IF NOT EXISTS idx_tool_usage_last_used ON tool_usage(last_used DESC)",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Create usage_metadata table
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS usage_metadata (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_full_recalculation TIMESTAMP,
			total_runs_processed INTEGER DEFAULT 0,
			total_tools_tracked INTEGER DEFAULT 0,
			version INTEGER DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create usage_metadata table: %w", err)
	}

	// Insert default metadata row
	var insertMetadataSQL string
	if isPostgres {
		insertMetadataSQL = `INSERT INTO usage_metadata (id) VALUES (1) ON CONFLICT (id) DO NOTHING`
	} else {
		insertMetadataSQL = `INSERT OR IGNORE INTO usage_metadata (id) VALUES (1)`
	}

	_, err = db.ExecContext(ctx, insertMetadataSQL)
	if err != nil {
		return fmt.Errorf("failed to insert default metadata: %w", err)
	}

	Logger.Info("Migration 003 completed successfully")
	return nil
}

func init003RollbackToolUsage(ctx context.Context, db *bun.DB) error {
	Logger.Info("Rolling back migration 003")

	_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS usage_metadata")
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS tool_usage")
	return err
}
