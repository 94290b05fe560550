package database

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stapelberg/postgrestest"
)

func TestEphemeralPostgres(t *testing.T) {
	// Setup logger for test
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	t.Log("Starting ephemeral PostgreSQL test...")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Try starting ephemeral PostgreSQL with minimal options
	t.Log("Attempting to start postgrestest server...")
	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start ephemeral postgres: %v", err)
	}
	defer pgt.Cleanup()

	t.Log("Ephemeral PostgreSQL server started successfully!")

	// Get the default database DSN
	defaultDSN := pgt.DefaultDatabase()
	t.Logf("Default database DSN: %s", defaultDSN)

	// Try connecting to it
	db, err := sql.Open("postgres", defaultDSN)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Test the connection
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	t.Log("Successfully connected to ephemeral PostgreSQL!")

	// Create a test table
	_, err = db.Exec(`CREATE TABLE test_table (id SERIAL PRIMARY KEY, name VARCHAR(100))`)
	if err != nil {
		t.Fatalf("Failed to create test table: %v", err)
	}

	// Insert test data
	_, err = db.Exec(`INSERT INTO test_table (name) VALUES ('test')`)
	if err != nil {
		t.Fatalf("Failed to insert test data: %v", err)
	}

	// Query test data
	var name string
	err = db.QueryRow(`SELECT name FROM test_table WHERE id = 1`).Scan(&name)
	if err != nil {
		t.Fatalf("Failed to query test data: %v", err)
	}

	if name != "test" {
		t.Fatalf("Expected name 'test', got '%s'", name)
	}

	t.Log("Ephemeral PostgreSQL test completed successfully!")
}

func TestSetupEphemeralPostgresDatabase(t *testing.T) {
	// Setup logger for test
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	t.Log("Testing SetupEphemeralPostgresDatabase function...")

	ephemeralDB, err := SetupEphemeralPostgresDatabase()
	if err != nil {
		t.Fatalf("Failed to setup ephemeral postgres database: %v", err)
	}
	defer ephemeralDB.Close()

	t.Log("Ephemeral database setup successfully!")

	// Test that we can use the database
	inv := &Invocation{
		ToolName:   "page_counter",
		FileName:   "test.pdf",
		FileHash:   "testhash123",
		FileSize:   1024,
		Status:     InvocationStatusCompleted,
		Summary:    "Total pages: 2",
		Results:    "[]",
		PageCount:  2,
		DurationMS: 8,
		InvokedAt:  time.Now(),
	}

	// Generate ULID for the run
	inv.ULID = ulid.Make()

	// Try to save an invocation
	err = ephemeralDB.PostgresDB.SaveInvocation(inv)
	if err != nil {
		t.Fatalf("Failed to save invocation: %v", err)
	}

	t.Logf("Invocation saved with ID: %d", inv.ID)

	// Try to retrieve the invocation
	retrievedInv, err := ephemeralDB.PostgresDB.GetInvocationByID(inv.ID)
	if err != nil {
		t.Fatalf("Failed to retrieve invocation: %v", err)
	}

	if retrievedInv.ToolName != inv.ToolName {
		t.Fatalf("Expected tool name '%s', got '%s'", inv.ToolName, retrievedInv.ToolName)
	}

	// Job lifecycle against the same database
	job, err := ephemeralDB.PostgresDB.CreateJob(JobTypeCleanup, "Retention sweep test")
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}

	err = ephemeralDB.PostgresDB.UpdateJobStatus(job.ID, JobStatusRunning, "Sweeping")
	if err != nil {
		t.Fatalf("Failed to update job status: %v", err)
	}

	err = ephemeralDB.PostgresDB.CompleteJob(job.ID, `{"invocationsSwept": 0}`)
	if err != nil {
		t.Fatalf("Failed to complete job: %v", err)
	}

	completed, err := ephemeralDB.PostgresDB.GetJob(job.ID)
	if err != nil {
		t.Fatalf("Failed to get job: %v", err)
	}

	if completed.Status != JobStatusCompleted {
		t.Fatalf("Expected job status %s, got %s", JobStatusCompleted, completed.Status)
	}

	t.Log("Successfully saved and retrieved records from ephemeral database!")
}
