package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/drummonds/pdftoolbox/database"
	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
	"github.com/oklog/ulid/v2"
)

// invocationOutcome is what one finished tool run hands back to the
// surface that started it: the recorded invocation row and, when the
// run succeeded, the full message stream the tool emitted.
type invocationOutcome struct {
	Invocation *database.Invocation
	Messages   []toolkit.Message
}

// runTool invokes the tool through the collector, converting a panic in
// the tool body into an error so one bad document cannot take the whole
// server down.
func runTool(ctx context.Context, tool toolkit.Tool, req *toolkit.Request, collector *toolkit.Collector) (err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered while running tool", "tool", tool.Spec().Name, "panic", r)
			err = fmt.Errorf("tool panic: %v", r)
		}
	}()
	return tool.Invoke(ctx, req, collector.Emit)
}

// executeInvocation runs one tool against one uploaded file and records
// the run. A tool level failure (bad PDF, bad params) is recorded as a
// failed invocation and returned inside the outcome; only host side
// failures (result folder, database) come back as an error.
func (serverHandler *ServerHandler) executeInvocation(ctx context.Context, tool toolkit.Tool, fileName string, fileData []byte, params map[string]any) (*invocationOutcome, error) {
	toolName := tool.Spec().Name

	invocation, err := database.NewInvocation(toolName, fileName, fileData)
	if err != nil {
		return nil, err
	}

	// Running a tool twice on the same file is fine, just worth a log line
	database.FindPreviousRun(invocation.FileHash, serverHandler.DB)

	// Record the page count when the file opens at all; a tool may still
	// reject it for its own reasons
	if doc, err := pdfengine.Open(fileData); err == nil {
		invocation.PageCount = doc.PageCount()
	}

	request := &toolkit.Request{
		FileName: fileName,
		FileData: fileData,
		Params:   params,
	}
	collector := &toolkit.Collector{}

	started := time.Now()
	runErr := runTool(ctx, tool, request, collector)
	invocation.DurationMS = time.Since(started).Milliseconds()

	if runErr != nil {
		Logger.Info("Tool reported failure", "tool", toolName, "fileName", fileName, "error", runErr)
		invocation.Status = database.InvocationStatusFailed
		invocation.Error = runErr.Error()
		if err := database.RecordInvocation(invocation, serverHandler.DB); err != nil {
			return nil, err
		}
		return &invocationOutcome{Invocation: invocation}, nil
	}

	invocation.Status = database.InvocationStatusCompleted
	if texts := collector.Texts(); len(texts) > 0 {
		invocation.Summary = texts[0]
	}

	files, err := serverHandler.saveResultFiles(invocation, collector.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to save result files: %w", err)
	}
	encoded, err := database.EncodeResults(files)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result descriptors: %w", err)
	}
	invocation.Results = encoded

	if err := database.RecordInvocation(invocation, serverHandler.DB); err != nil {
		return nil, err
	}

	Logger.Info("Tool invocation completed", "tool", toolName, "fileName", fileName, "ulid", invocation.ULID.String(), "messages", len(collector.Messages), "results", len(files), "durationMs", invocation.DurationMS)
	return &invocationOutcome{Invocation: invocation, Messages: collector.Messages}, nil
}

// saveResultFiles writes the blob messages of a finished run into the
// invocation's own folder under the results path. On a write failure
// the whole folder is removed so no half written run survives.
func (serverHandler *ServerHandler) saveResultFiles(invocation *database.Invocation, messages []toolkit.Message) ([]database.ResultFile, error) {
	files := make([]database.ResultFile, 0)
	resultDir := filepath.Join(serverHandler.ServerConfig.ResultsPath, invocation.ULID.String())

	for _, msg := range messages {
		if msg.Kind != toolkit.MessageBlob {
			continue
		}
		if len(files) == 0 {
			if err := os.MkdirAll(resultDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create result directory: %w", err)
			}
		}
		name := filepath.Base(msg.Meta.FileName)
		if err := os.WriteFile(filepath.Join(resultDir, name), msg.Blob, 0644); err != nil {
			os.RemoveAll(resultDir)
			return nil, fmt.Errorf("failed to write result file %s: %w", name, err)
		}
		files = append(files, database.ResultFile{
			Name:     name,
			MimeType: msg.Meta.MimeType,
			Size:     int64(len(msg.Blob)),
		})
	}

	if len(files) > 0 {
		invocation.ResultDir = resultDir
	}
	return files, nil
}

// sweepJobFunc runs one retention sweep under a fresh tracked job. The
// scheduler calls this at startup and on every cron tick.
func (serverHandler *ServerHandler) sweepJobFunc(db database.Repository) {
	// Add panic recovery to prevent entire application crash
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in retention sweep", "panic", r)
		}
	}()

	job, err := db.CreateJob(database.JobTypeCleanup, "Starting retention sweep")
	if err != nil {
		Logger.Error("Failed to create sweep job", "error", err)
		return
	}
	serverHandler.sweepJobFuncWithTracking(db, job.ID)
}

// sweepJobFuncWithTracking deletes jobs past the job retention window
// and invocations (plus their result folders) past the result retention
// window, reporting progress through the given job.
func (serverHandler *ServerHandler) sweepJobFuncWithTracking(db database.Repository, jobID ulid.ULID) {
	// Add panic recovery and update job status on panic
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in retention sweep", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	// Mark job as running
	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "Fetching retention settings"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	serverConfig, err := database.FetchConfigFromDB(db)
	if err != nil {
		Logger.Error("Error reading config from database", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Failed to fetch config: %v", err))
		return
	}

	jobRetention := time.Duration(serverConfig.JobRetentionHours) * time.Hour
	resultRetention := time.Duration(serverConfig.ResultRetentionHours) * time.Hour

	Logger.Info("Starting retention sweep", "jobID", jobID, "jobRetentionHours", serverConfig.JobRetentionHours, "resultRetentionHours", serverConfig.ResultRetentionHours)

	// Step 1: sweep finished jobs past their retention window
	db.UpdateJobProgress(jobID, 10, "Sweeping old jobs")
	jobsSwept, err := db.DeleteOldJobs(jobRetention)
	if err != nil {
		Logger.Error("Failed to delete old jobs", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Job sweep failed: %v", err))
		return
	}

	// Step 2: find invocations past their retention window
	db.UpdateJobProgress(jobID, 30, "Finding expired invocations")
	expired, err := db.GetInvocationsOlderThan(resultRetention)
	if err != nil {
		Logger.Error("Failed to list expired invocations", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Invocation scan failed: %v", err))
		return
	}

	totalExpired := len(expired)
	invocationsSwept := 0
	for i, invocation := range expired {
		progress := 30 + int((float64(i)/float64(totalExpired))*60)
		db.UpdateJobProgress(jobID, progress, fmt.Sprintf("Sweeping invocation %d/%d", i+1, totalExpired))

		// Remove the result folder first so a failed row delete never
		// orphans blobs on disk
		if invocation.ResultDir != "" {
			if err := os.RemoveAll(invocation.ResultDir); err != nil {
				Logger.Error("Failed to remove result directory", "dir", invocation.ResultDir, "error", err)
				continue
			}
		}
		if err := database.DeleteInvocation(invocation.ULID.String(), db); err != nil {
			continue //already logged by the database helper
		}
		invocationsSwept++
	}

	// Complete the job
	result := fmt.Sprintf(`{"jobsSwept": %d, "invocationsScanned": %d, "invocationsSwept": %d}`, jobsSwept, totalExpired, invocationsSwept)
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark sweep job as complete", "error", err)
	}

	Logger.Info("Retention sweep completed", "jobID", jobID, "jobsSwept", jobsSwept, "invocationsScanned", totalExpired, "invocationsSwept", invocationsSwept)
}

// usageRecalcJobFuncWithTracking rebuilds the per tool usage counters
// from the invocation log under a tracked job.
func (serverHandler *ServerHandler) usageRecalcJobFuncWithTracking(db database.Repository, jobID ulid.ULID) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in usage recalculation", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()

	// Mark job as running
	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, "Rebuilding usage counters"); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	db.UpdateJobProgress(jobID, 20, "Recalculating from invocation log")
	if err := db.RecalculateToolUsage(); err != nil {
		Logger.Error("Usage recalculation failed", "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Recalculation failed: %v", err))
		return
	}

	usage, err := db.GetToolUsage()
	if err != nil {
		Logger.Warn("Recalculation finished but reading counters back failed", "error", err)
	}

	result := fmt.Sprintf(`{"toolsTracked": %d}`, len(usage))
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark recalculation job as complete", "error", err)
	}

	Logger.Info("Usage recalculation completed", "jobID", jobID, "toolsTracked", len(usage))
}
