package engine

import (
	"net/http"
	"strconv"

	"github.com/drummonds/pdftoolbox/database"
	"github.com/labstack/echo/v4"
)

// GetToolStats returns the per tool usage counters
// @Summary Get tool usage statistics
// @Description Retrieve per tool invocation counters, failure counts and average durations
// @Tags Stats
// @Accept json
// @Produce json
// @Param limit query int false "Return only the top N tools by invocation count"
// @Success 200 {object} map[string]interface{} "Usage counters with metadata and count"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /stats/tools [get]
func (serverHandler *ServerHandler) GetToolStats(c echo.Context) error {
	// Get limit parameter (default to all tools)
	limit := 0
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 && l <= 500 {
			limit = l
		}
	}

	var usage []database.ToolUsage
	var err error
	if limit > 0 {
		usage, err = serverHandler.DB.GetTopTools(limit)
	} else {
		usage, err = serverHandler.DB.GetToolUsage()
	}
	if err != nil {
		Logger.Error("Failed to get tool usage", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to retrieve tool usage",
		})
	}

	// Ensure usage is never nil (should be handled by DB layer, but safety check)
	if usage == nil {
		usage = make([]database.ToolUsage, 0)
	}

	// Get metadata
	metadata, err := serverHandler.DB.GetUsageMetadata()
	if err != nil {
		Logger.Warn("Failed to get usage metadata", "error", err)
		// Return empty metadata instead of nil (zero value for time.Time is 0001-01-01)
		metadata = &database.UsageMetadata{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"tools":    usage,
		"metadata": metadata,
		"count":    len(usage),
	})
}

// RecalculateToolStats triggers a full rebuild of the usage counters
// @Summary Recalculate tool usage
// @Description Rebuild the per tool usage counters from the full invocation log under a tracked job
// @Tags Stats
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Job created with jobId"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /stats/recalculate [post]
func (serverHandler *ServerHandler) RecalculateToolStats(c echo.Context) error {
	Logger.Info("Manual usage recalculation triggered via API")

	// Create a job to track the recalculation
	job, err := serverHandler.DB.CreateJob(database.JobTypeUsageRecalc, "Starting usage recalculation")
	if err != nil {
		Logger.Error("Failed to create recalculation job", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to create job",
		})
	}

	// Run recalculation in a goroutine so we can return immediately
	go func() {
		serverHandler.usageRecalcJobFuncWithTracking(serverHandler.DB, job.ID)
	}()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Usage recalculation started",
		"jobId":   job.ID.String(),
	})
}
