package database

import (
	"database/sql"
	"fmt"
	"time"
)

// ToolUsage holds the aggregate counters for one tool
type ToolUsage struct {
	ToolName        string    `json:"toolName"`
	Invocations     int       `json:"invocations"`
	Failures        int       `json:"failures"`
	TotalDurationMS int64     `json:"totalDurationMs"`
	LastUsed        time.Time `json:"lastUsed"`
}

// SuccessRate returns the fraction of runs that completed, 0 to 1
func (tu ToolUsage) SuccessRate() float64 {
	if tu.Invocations == 0 {
		return 0
	}
	return float64(tu.Invocations-tu.Failures) / float64(tu.Invocations)
}

// AverageDurationMS returns the mean run time across all recorded runs
func (tu ToolUsage) AverageDurationMS() int64 {
	if tu.Invocations == 0 {
		return 0
	}
	return tu.TotalDurationMS / int64(tu.Invocations)
}

// UsageMetadata tracks usage recalculation status
type UsageMetadata struct {
	LastRecalculation  time.Time `json:"lastRecalculation"`
	TotalRunsProcessed int       `json:"totalRunsProcessed"`
	TotalToolsTracked  int       `json:"totalToolsTracked"`
	Version            int       `json:"version"`
}

// RecordToolUsage bumps the counters for one tool after a run
func (p *PostgresDB) RecordToolUsage(toolName string, succeeded bool, durationMS int64) error {
	failed := 0
	if !succeeded {
		failed = 1
	}

	query := `
		INSERT INTO tool_usage (tool_name, invocations, failures, total_duration_ms, last_used)
		VALUES ($1, 1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (tool_name) DO UPDATE SET
			invocations = tool_usage.invocations + 1,
			failures = tool_usage.failures + EXCLUDED.failures,
			total_duration_ms = tool_usage.total_duration_ms + EXCLUDED.total_duration_ms,
			last_used = CURRENT_TIMESTAMP
	`
	_, err := p.db.Exec(query, toolName, failed, durationMS)
	if err != nil {
		return fmt.Errorf("failed to update tool usage: %w", err)
	}
	return nil
}

// GetToolUsage retrieves the counters for every tool that has been run
func (p *PostgresDB) GetToolUsage() ([]ToolUsage, error) {
	query := `
		SELECT tool_name, invocations, failures, total_duration_ms, last_used
		FROM tool_usage
		ORDER BY invocations DESC, tool_name ASC
	`

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool usage: %w", err)
	}
	defer rows.Close()

	return scanToolUsage(rows)
}

// GetTopTools retrieves the N most used tools
func (p *PostgresDB) GetTopTools(limit int) ([]ToolUsage, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT tool_name, invocations, failures, total_duration_ms, last_used
		FROM tool_usage
		ORDER BY invocations DESC, tool_name ASC
		LIMIT $1
	`

	rows, err := p.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top tools: %w", err)
	}
	defer rows.Close()

	return scanToolUsage(rows)
}

// scanToolUsage is a helper function to scan rows into ToolUsage structs
func scanToolUsage(rows *sql.Rows) ([]ToolUsage, error) {
	// Initialize as empty slice so JSON marshals to [] instead of null
	usage := make([]ToolUsage, 0)
	for rows.Next() {
		var tu ToolUsage
		err := rows.Scan(&tu.ToolName, &tu.Invocations, &tu.Failures, &tu.TotalDurationMS, &tu.LastUsed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tool usage: %w", err)
		}
		usage = append(usage, tu)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return usage, nil
}

// GetUsageMetadata retrieves metadata about the usage counters
func (p *PostgresDB) GetUsageMetadata() (*UsageMetadata, error) {
	query := `
		SELECT last_full_recalculation, total_runs_processed,
		       total_tools_tracked, version
		FROM usage_metadata
		WHERE id = 1
	`

	var meta UsageMetadata
	var lastCalc sql.NullTime

	err := p.db.QueryRow(query).Scan(
		&lastCalc,
		&meta.TotalRunsProcessed,
		&meta.TotalToolsTracked,
		&meta.Version,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	if lastCalc.Valid {
		meta.LastRecalculation = lastCalc.Time
	}

	return &meta, nil
}

// RecalculateToolUsage rebuilds the usage counters from the invocation
// history. This should be called during database cleaning or on-demand,
// the incremental counters drift if invocations are pruned.
func (p *PostgresDB) RecalculateToolUsage() error {
	Logger.Info("Starting full tool usage recalculation")

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Clear existing counters
	_, err = tx.Exec("TRUNCATE TABLE tool_usage")
	if err != nil {
		return fmt.Errorf("failed to clear tool usage: %w", err)
	}

	// Rebuild from the invocations table in one pass
	rebuild := `
		INSERT INTO tool_usage (tool_name, invocations, failures, total_duration_ms, last_used)
		SELECT tool_name,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = $1),
		       COALESCE(SUM(duration_ms), 0),
		       MAX(invoked_at)
		FROM invocations
		GROUP BY tool_name
	`
	_, err = tx.Exec(rebuild, InvocationStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to rebuild tool usage: %w", err)
	}

	var totalRuns, totalTools int
	err = tx.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT tool_name) FROM invocations`).Scan(&totalRuns, &totalTools)
	if err != nil {
		return fmt.Errorf("failed to count invocations: %w", err)
	}

	// Update metadata
	updateMetadata := `
		UPDATE usage_metadata SET
			last_full_recalculation = CURRENT_TIMESTAMP,
			total_runs_processed = $1,
			total_tools_tracked = $2,
			version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`
	_, err = tx.Exec(updateMetadata, totalRuns, totalTools)
	if err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	Logger.Info("Tool usage recalculation completed", "runs", totalRuns, "tools", totalTools)
	return nil
}
