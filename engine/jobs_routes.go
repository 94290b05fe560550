package engine

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/drummonds/pdftoolbox/database"
	"github.com/drummonds/pdftoolbox/toolkit"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// StartToolJob runs a tool asynchronously under a tracked job
// @Summary Start an asynchronous invocation
// @Description Run a tool on an uploaded PDF in the background; poll the returned job ID for progress and the invocation ULID
// @Tags Jobs
// @Accept multipart/form-data
// @Produce json
// @Param name path string true "Tool name"
// @Param file formData file true "PDF file to process"
// @Success 200 {object} map[string]interface{} "Job created with jobId"
// @Failure 400 {object} map[string]interface{} "Bad upload"
// @Failure 404 {object} map[string]interface{} "Unknown tool"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /tools/{name}/jobs [post]
func (serverHandler *ServerHandler) StartToolJob(c echo.Context) error {
	name := c.Param("name")
	tool, ok := serverHandler.Registry.Get(name)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": fmt.Sprintf("Unknown tool: %s", name),
		})
	}

	fileName, fileData, err := readUploadedPDF(c)
	if err != nil {
		Logger.Error("Invalid upload for tool job", "tool", name, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}

	params := formParamMap(c)

	job, err := serverHandler.DB.CreateJob(database.JobTypeInvocation, fmt.Sprintf("Queued %s on %s", name, fileName))
	if err != nil {
		Logger.Error("Failed to create invocation job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create job",
		})
	}

	// Park the upload in the workspace so the goroutine never outlives
	// the request body
	uploadPath, err := serverHandler.parkUpload(job.ID, fileName, fileData)
	if err != nil {
		Logger.Error("Failed to write upload to workspace", "error", err)
		serverHandler.DB.UpdateJobError(job.ID, fmt.Sprintf("Workspace write failed: %v", err))
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to store upload",
		})
	}

	// Run the invocation in a goroutine so we can return immediately
	go func() {
		serverHandler.invocationJobFuncWithTracking(tool, fileName, uploadPath, params, serverHandler.DB, job.ID)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Invocation started",
		"jobId":   job.ID.String(),
	})
}

// parkUpload writes an uploaded file into the workspace under the job's
// ULID so the background run reads its own copy.
func (serverHandler *ServerHandler) parkUpload(jobID ulid.ULID, fileName string, fileData []byte) (string, error) {
	workDir := serverHandler.ServerConfig.WorkspacePath
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create workspace directory: %w", err)
	}
	path := filepath.Join(workDir, jobID.String()+"_"+filepath.Base(fileName))
	if err := os.WriteFile(path, fileData, 0644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

// invocationJobFuncWithTracking wraps one tool run with job tracking
func (serverHandler *ServerHandler) invocationJobFuncWithTracking(tool toolkit.Tool, fileName string, uploadPath string, params map[string]any, db database.Repository, jobID ulid.ULID) {
	// Add panic recovery and update job status on panic
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in invocation job", "panic", r, "jobID", jobID)
			db.UpdateJobError(jobID, fmt.Sprintf("Panic: %v", r))
		}
	}()
	// The upload is only parked for the duration of the run
	defer func() {
		if err := os.Remove(uploadPath); err != nil && !os.IsNotExist(err) {
			Logger.Warn("Failed to remove parked upload", "path", uploadPath, "error", err)
		}
	}()

	toolName := tool.Spec().Name

	// Mark job as running
	if err := db.UpdateJobStatus(jobID, database.JobStatusRunning, fmt.Sprintf("Running %s on %s", toolName, fileName)); err != nil {
		Logger.Error("Failed to update job status", "error", err)
	}

	fileData, err := os.ReadFile(uploadPath)
	if err != nil {
		Logger.Error("Unable to read parked upload", "path", uploadPath, "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Failed to read upload: %v", err))
		return
	}

	db.UpdateJobProgress(jobID, 20, fmt.Sprintf("Invoking %s", toolName))

	outcome, err := serverHandler.executeInvocation(context.Background(), tool, fileName, fileData, params)
	if err != nil {
		Logger.Error("Invocation job failed", "tool", toolName, "fileName", fileName, "error", err)
		db.UpdateJobError(jobID, fmt.Sprintf("Invocation failed: %v", err))
		return
	}

	invocation := outcome.Invocation
	if invocation.Status == database.InvocationStatusFailed {
		Logger.Info("Invocation job finished with tool failure", "jobID", jobID, "tool", toolName, "error", invocation.Error)
		db.UpdateJobError(jobID, invocation.Error)
		return
	}

	db.UpdateJobProgress(jobID, 90, "Saving results")

	resultCount := 0
	for _, msg := range outcome.Messages {
		if msg.Kind == toolkit.MessageBlob {
			resultCount++
		}
	}

	// Complete the job
	result := fmt.Sprintf(`{"invocationUlid": %q, "messages": %d, "results": %d}`, invocation.ULID.String(), len(outcome.Messages), resultCount)
	if err := db.CompleteJob(jobID, result); err != nil {
		Logger.Error("Failed to mark job as complete", "error", err)
	}

	Logger.Info("Invocation job completed", "jobID", jobID, "tool", toolName, "invocation", invocation.ULID.String())
}

// GetJob retrieves a job by ID
// @Summary Get job by ID
// @Description Retrieve details of a specific job by its ID
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID (ULID)"
// @Success 200 {object} database.Job "Job details"
// @Failure 400 {object} map[string]interface{} "Invalid job ID"
// @Failure 404 {object} map[string]interface{} "Job not found"
// @Router /jobs/{id} [get]
func (serverHandler *ServerHandler) GetJob(c echo.Context) error {
	jobIDStr := c.Param("id")

	jobID, err := ulid.Parse(jobIDStr)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid job ID format",
		})
	}

	job, err := serverHandler.DB.GetJob(jobID)
	if err != nil {
		Logger.Error("Failed to get job", "jobID", jobIDStr, "error", err)
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Job not found",
		})
	}

	return c.JSON(http.StatusOK, job)
}

// GetRecentJobs retrieves recent jobs with pagination
// @Summary Get recent jobs
// @Description Retrieve a list of recent jobs with pagination
// @Tags Jobs
// @Accept json
// @Produce json
// @Param limit query int false "Number of jobs to return (default: 20)"
// @Param offset query int false "Offset for pagination (default: 0)"
// @Success 200 {array} database.Job "List of jobs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /jobs [get]
func (serverHandler *ServerHandler) GetRecentJobs(c echo.Context) error {
	limit := 20
	offset := 0

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	jobs, err := serverHandler.DB.GetRecentJobs(limit, offset)
	if err != nil {
		Logger.Error("Failed to get recent jobs", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve jobs",
		})
	}

	if jobs == nil {
		jobs = []database.Job{}
	}

	return c.JSON(http.StatusOK, jobs)
}

// GetActiveJobs retrieves all currently running or pending jobs
// @Summary Get active jobs
// @Description Retrieve all jobs that are currently running or pending
// @Tags Jobs
// @Accept json
// @Produce json
// @Success 200 {array} database.Job "List of active jobs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /jobs/active [get]
func (serverHandler *ServerHandler) GetActiveJobs(c echo.Context) error {
	jobs, err := serverHandler.DB.GetActiveJobs()
	if err != nil {
		Logger.Error("Failed to get active jobs", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve active jobs",
		})
	}

	if jobs == nil {
		jobs = []database.Job{}
	}

	return c.JSON(http.StatusOK, jobs)
}
