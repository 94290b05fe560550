package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	config "github.com/drummonds/pdftoolbox/config"
	"github.com/oklog/ulid/v2"
)

// PostgresDB implements Repository for PostgreSQL
type PostgresDB struct {
	db         *sql.DB
	isEmbedded bool // refers to ephemeral instances
}

// SetupPostgresDatabase initializes PostgreSQL database with migrations.
// If connectionString is empty, it will use ephemeral PostgreSQL.
func SetupPostgresDatabase(connectionString string) (*PostgresDB, error) {
	var db *sql.DB
	var isEmbedded bool
	var err error

	if connectionString == "" {
		// Use ephemeral PostgreSQL for development
		Logger.Info("No connection string provided, using ephemeral PostgreSQL...")

		ephemeralDB, err := SetupEphemeralPostgresDatabase()
		if err != nil {
			return nil, fmt.Errorf("failed to setup ephemeral postgres: %w", err)
		}

		// Return the PostgresDB part, the ephemeral wrapper will handle cleanup
		return ephemeralDB.PostgresDB, nil
	} else {
		isEmbedded = false
		Logger.Info("Connecting to external PostgreSQL/CockroachDB server...")
	}

	// Open PostgreSQL database
	db, err = sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Logger.Info("Connected to PostgreSQL database successfully")

	// Run migrations
	Logger.Info("Running database migrations...")
	if err := runPostgresMigrations(db); err != nil {
		Logger.Error("Failed to run database migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	Logger.Info("Database migrations completed successfully")

	return &PostgresDB{
		db:         db,
		isEmbedded: isEmbedded,
	}, nil
}

func runPostgresMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Try to find the migrations directory
	// First try from project root
	migrationsPath, err := filepath.Abs("database/migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// If running from within the database directory (during tests), adjust path
	if _, err := os.Stat(migrationsPath); os.IsNotExist(err) {
		migrationsPath, err = filepath.Abs("migrations")
		if err != nil {
			return fmt.Errorf("failed to get migrations path: %w", err)
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Check current version and apply migrations
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if dirty {
		// Try to force clean and retry
		Logger.Warn("Database is in dirty state, attempting to recover")
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force migration version: %w", err)
		}
	}

	// Apply latest migrations
	Logger.Info("Applying database migrations")
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	Logger.Info("Database migrations completed successfully")
	return nil
}

// Close closes the database connection and stops embedded server if running
func (p *PostgresDB) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return err
		}
	}

	// Note: Ephemeral PostgreSQL cleanup is handled by EphemeralPostgresDB.Close()
	// This method only closes the database connection

	return nil
}

// SaveInvocation saves or updates an invocation record
func (p *PostgresDB) SaveInvocation(inv *Invocation) error {
	query := `
		INSERT INTO invocations (tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT(ulid) DO UPDATE SET
			status = EXCLUDED.status,
			summary = EXCLUDED.summary,
			error = EXCLUDED.error,
			results = EXCLUDED.results,
			result_dir = EXCLUDED.result_dir,
			page_count = EXCLUDED.page_count,
			duration_ms = EXCLUDED.duration_ms,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	err := p.db.QueryRow(query,
		inv.ToolName, inv.FileName, inv.FileHash, inv.FileSize,
		inv.ULID.String(), inv.Status, inv.Summary, inv.Error,
		inv.Results, inv.ResultDir, inv.PageCount, inv.DurationMS, inv.InvokedAt,
	).Scan(&inv.ID)

	return err
}

// GetInvocationByID retrieves an invocation by ID
func (p *PostgresDB) GetInvocationByID(id int) (*Invocation, error) {
	query := `SELECT id, tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at
	          FROM invocations WHERE id = $1`

	return p.queryInvocation(query, id)
}

// GetInvocationByULID retrieves an invocation by ULID
func (p *PostgresDB) GetInvocationByULID(ulidStr string) (*Invocation, error) {
	query := `SELECT id, tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at
	          FROM invocations WHERE ulid = $1`

	return p.queryInvocation(query, ulidStr)
}

// GetInvocationByHash retrieves the most recent invocation of a file by hash
func (p *PostgresDB) GetInvocationByHash(hash string) (*Invocation, error) {
	query := `SELECT id, tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at
	          FROM invocations WHERE file_hash = $1 ORDER BY invoked_at DESC LIMIT 1`

	inv, err := p.queryInvocation(query, hash)
	if err == sql.ErrNoRows {
		return nil, nil // file not seen before
	}
	return inv, err
}

// queryInvocation runs a single-row invocation query
func (p *PostgresDB) queryInvocation(query string, arg interface{}) (*Invocation, error) {
	inv := &Invocation{}
	var ulidStr string

	err := p.db.QueryRow(query, arg).Scan(
		&inv.ID, &inv.ToolName, &inv.FileName, &inv.FileHash, &inv.FileSize,
		&ulidStr, &inv.Status, &inv.Summary, &inv.Error,
		&inv.Results, &inv.ResultDir, &inv.PageCount, &inv.DurationMS, &inv.InvokedAt,
	)

	if err != nil {
		return nil, err
	}

	parsedULID, err := ulid.Parse(ulidStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ULID: %w", err)
	}
	inv.ULID = parsedULID

	return inv, nil
}

// scanInvocations is a helper function to scan rows into Invocation structs
func scanInvocations(rows *sql.Rows) ([]Invocation, error) {
	var invocations []Invocation

	for rows.Next() {
		inv := Invocation{}
		var ulidStr string

		err := rows.Scan(
			&inv.ID, &inv.ToolName, &inv.FileName, &inv.FileHash, &inv.FileSize,
			&ulidStr, &inv.Status, &inv.Summary, &inv.Error,
			&inv.Results, &inv.ResultDir, &inv.PageCount, &inv.DurationMS, &inv.InvokedAt,
		)
		if err != nil {
			return nil, err
		}

		parsedULID, err := ulid.Parse(ulidStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ULID: %w", err)
		}
		inv.ULID = parsedULID

		invocations = append(invocations, inv)
	}

	return invocations, rows.Err()
}

// GetNewestInvocations retrieves the newest invocations
func (p *PostgresDB) GetNewestInvocations(limit int) ([]Invocation, error) {
	query := `SELECT id, tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at
	          FROM invocations ORDER BY invoked_at DESC LIMIT $1`

	rows, err := p.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvocations(rows)
}

// GetNewestInvocationsWithPagination retrieves invocations with pagination support
func (p *PostgresDB) GetNewestInvocationsWithPagination(page int, pageSize int) ([]Invocation, int, error) {
	// Calculate offset
	offset := (page - 1) * pageSize

	// Get total count
	var totalCount int
	countQuery := `SELECT COUNT(*) FROM invocations`
	err := p.db.QueryRow(countQuery).Scan(&totalCount)
	if err != nil {
		return nil, 0, err
	}

	// Get paginated invocations
	query := `SELECT id, tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at
	          FROM invocations ORDER BY invoked_at DESC LIMIT $1 OFFSET $2`

	rows, err := p.db.Query(query, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	invocations, err := scanInvocations(rows)
	if err != nil {
		return nil, 0, err
	}

	return invocations, totalCount, nil
}

// GetAllInvocations retrieves all invocations
func (p *PostgresDB) GetAllInvocations() ([]Invocation, error) {
	query := `SELECT id, tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at
	          FROM invocations ORDER BY id`

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvocations(rows)
}

// GetInvocationsByTool retrieves the recorded runs of a specific tool
func (p *PostgresDB) GetInvocationsByTool(toolName string) ([]Invocation, error) {
	query := `SELECT id, tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at
	          FROM invocations WHERE tool_name = $1 ORDER BY invoked_at DESC`

	rows, err := p.db.Query(query, toolName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvocations(rows)
}

// GetInvocationsOlderThan retrieves invocations recorded before the cutoff,
// used by the retention sweep to remove their result folders first
func (p *PostgresDB) GetInvocationsOlderThan(olderThan time.Duration) ([]Invocation, error) {
	cutoffTime := time.Now().Add(-olderThan)

	query := `SELECT id, tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at
	          FROM invocations WHERE invoked_at < $1 ORDER BY invoked_at`

	rows, err := p.db.Query(query, cutoffTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvocations(rows)
}

// DeleteInvocation deletes an invocation by ULID
func (p *PostgresDB) DeleteInvocation(ulidStr string) error {
	query := `DELETE FROM invocations WHERE ulid = $1`
	_, err := p.db.Exec(query, ulidStr)
	return err
}

// DeleteOldInvocations deletes invocations recorded before the cutoff
func (p *PostgresDB) DeleteOldInvocations(olderThan time.Duration) (int, error) {
	cutoffTime := time.Now().Add(-olderThan)

	query := `DELETE FROM invocations WHERE invoked_at < $1`

	result, err := p.db.Exec(query, cutoffTime)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(rowsAffected), nil
}

// SearchInvocations finds invocations whose file name or tool name
// contains the search term, newest first
func (p *PostgresDB) SearchInvocations(searchTerm string) ([]Invocation, error) {
	if searchTerm == "" {
		return []Invocation{}, nil
	}

	searchPattern := "%" + searchTerm + "%"

	query := `SELECT id, tool_name, file_name, file_hash, file_size, ulid, status, summary, error, results, result_dir, page_count, duration_ms, invoked_at
	          FROM invocations
	          WHERE file_name ILIKE $1 OR tool_name ILIKE $1
	          ORDER BY invoked_at DESC`

	rows, err := p.db.Query(query, searchPattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanInvocations(rows)
}

// SaveConfig saves server configuration
func (p *PostgresDB) SaveConfig(cfg *config.ServerConfig) error {
	query := `
		UPDATE server_config SET
			listen_addr_ip = $1,
			listen_addr_port = $2,
			workspace_path = $3,
			results_path = $4,
			renderer = $5,
			render_service_url = $6,
			default_zoom = $7,
			max_zoom = $8,
			thumbnail_width = $9,
			max_upload_mb = $10,
			sweep_interval = $11,
			job_retention_hours = $12,
			result_retention_hours = $13,
			recent_invocation_number = $14,
			server_api_url = $15,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`

	_, err := p.db.Exec(query,
		cfg.ListenAddrIP, cfg.ListenAddrPort, cfg.WorkspacePath,
		cfg.ResultsPath, cfg.Renderer, cfg.RenderServiceURL,
		cfg.DefaultZoom, cfg.MaxZoom, cfg.ThumbnailWidth,
		cfg.MaxUploadMB, cfg.SweepInterval, cfg.JobRetentionHours,
		cfg.ResultRetentionHours,
		cfg.FrontEndConfig.RecentInvocationNumber, cfg.FrontEndConfig.ServerAPIURL,
	)

	return err
}

// GetConfig retrieves server configuration
func (p *PostgresDB) GetConfig() (*config.ServerConfig, error) {
	query := `
		SELECT listen_addr_ip, listen_addr_port, workspace_path, results_path,
		       renderer, render_service_url, default_zoom, max_zoom,
		       thumbnail_width, max_upload_mb, sweep_interval,
		       job_retention_hours, result_retention_hours,
		       recent_invocation_number, server_api_url
		FROM server_config WHERE id = 1
	`

	cfg := &config.ServerConfig{}
	err := p.db.QueryRow(query).Scan(
		&cfg.ListenAddrIP, &cfg.ListenAddrPort, &cfg.WorkspacePath,
		&cfg.ResultsPath, &cfg.Renderer, &cfg.RenderServiceURL,
		&cfg.DefaultZoom, &cfg.MaxZoom, &cfg.ThumbnailWidth,
		&cfg.MaxUploadMB, &cfg.SweepInterval, &cfg.JobRetentionHours,
		&cfg.ResultRetentionHours,
		&cfg.FrontEndConfig.RecentInvocationNumber, &cfg.FrontEndConfig.ServerAPIURL,
	)

	if err != nil {
		return nil, err
	}

	cfg.ID = 1
	return cfg, nil
}
