package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/drummonds/pdftoolbox/config"
	"github.com/drummonds/pdftoolbox/database"
	"github.com/drummonds/pdftoolbox/internal/build"
	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/swaggo/swag"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	DB           database.Repository
	Echo         *echo.Echo
	Registry     *toolkit.Registry
	Rasterizer   pdfengine.Rasterizer
	ServerConfig config.ServerConfig
}

// invokeResponse is the JSON envelope a finished invocation returns to
// the caller: the recorded run, the tool's ordered message stream and
// download descriptors for any saved blobs.
type invokeResponse struct {
	Invocation string           `json:"invocation"`
	Tool       string           `json:"tool"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Summary    string           `json:"summary,omitempty"`
	PageCount  int              `json:"pageCount"`
	DurationMS int64            `json:"durationMs"`
	Messages   []messagePayload `json:"messages"`
	Results    []resultPayload  `json:"results"`
}

type messagePayload struct {
	Kind string          `json:"kind"`
	Text string          `json:"text,omitempty"`
	JSON json.RawMessage `json:"json,omitempty"`
	File string          `json:"file,omitempty"`
}

type resultPayload struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// buildInvokeResponse shapes one outcome into the wire envelope. Blob
// bytes never travel in the envelope, only their download descriptors.
func buildInvokeResponse(outcome *invocationOutcome) invokeResponse {
	invocation := outcome.Invocation
	response := invokeResponse{
		Invocation: invocation.ULID.String(),
		Tool:       invocation.ToolName,
		Status:     invocation.Status,
		Error:      invocation.Error,
		Summary:    invocation.Summary,
		PageCount:  invocation.PageCount,
		DurationMS: invocation.DurationMS,
		Messages:   make([]messagePayload, 0, len(outcome.Messages)),
		Results:    make([]resultPayload, 0),
	}

	for _, msg := range outcome.Messages {
		payload := messagePayload{Kind: string(msg.Kind)}
		switch msg.Kind {
		case toolkit.MessageText:
			payload.Text = msg.Text
		case toolkit.MessageJSON:
			payload.JSON = msg.JSON
		case toolkit.MessageBlob:
			name := filepath.Base(msg.Meta.FileName)
			payload.File = name
			response.Results = append(response.Results, resultPayload{
				Name:     name,
				MimeType: msg.Meta.MimeType,
				Size:     int64(len(msg.Blob)),
				URL:      fmt.Sprintf("/api/results/%s/%s", invocation.ULID.String(), name),
			})
		}
		response.Messages = append(response.Messages, payload)
	}
	return response
}

// readUploadedPDF pulls the uploaded file out of the multipart form
func readUploadedPDF(context echo.Context) (string, []byte, error) {
	request := context.Request()
	file, fileHeader, err := request.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file upload: %w", err)
	}
	defer file.Close()
	body, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("unable to read uploaded file: %w", err)
	}
	if len(body) == 0 {
		return "", nil, fmt.Errorf("uploaded file is empty")
	}
	return fileHeader.Filename, body, nil
}

// formParamMap turns the remaining form fields into the tool parameter
// map. Values stay strings; the toolkit request coerces them.
func formParamMap(context echo.Context) map[string]any {
	params := make(map[string]any)
	formParams, err := context.FormParams()
	if err != nil {
		return params
	}
	for key, values := range formParams {
		if key == "file" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	return params
}

// GetTools lists every registered tool with its parameter schema
// @Summary List tools
// @Description Retrieve all registered PDF tools with their parameter schemas
// @Tags Tools
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Tool specs and count"
// @Router /tools [get]
func (serverHandler *ServerHandler) GetTools(c echo.Context) error {
	specs := serverHandler.Registry.Specs()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tools": specs,
		"count": len(specs),
	})
}

// GetTool returns one tool's spec by name
// @Summary Get a tool by name
// @Description Retrieve a single tool's identity and parameter schema
// @Tags Tools
// @Accept json
// @Produce json
// @Param name path string true "Tool name"
// @Success 200 {object} toolkit.Spec "Tool spec"
// @Failure 404 {object} map[string]interface{} "Unknown tool"
// @Router /tools/{name} [get]
func (serverHandler *ServerHandler) GetTool(c echo.Context) error {
	name := c.Param("name")
	tool, ok := serverHandler.Registry.Get(name)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": fmt.Sprintf("Unknown tool: %s", name),
		})
	}
	return c.JSON(http.StatusOK, tool.Spec())
}

// InvokeTool runs a tool synchronously on an uploaded PDF
// @Summary Invoke a tool
// @Description Run a tool on an uploaded PDF and return the message envelope; blobs are saved under the results path
// @Tags Tools
// @Accept multipart/form-data
// @Produce json
// @Param name path string true "Tool name"
// @Param file formData file true "PDF file to process"
// @Success 200 {object} invokeResponse "Completed invocation envelope"
// @Failure 400 {object} map[string]interface{} "Bad upload"
// @Failure 404 {object} map[string]interface{} "Unknown tool"
// @Failure 422 {object} invokeResponse "Tool reported failure"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /tools/{name}/invoke [post]
func (serverHandler *ServerHandler) InvokeTool(c echo.Context) error {
	name := c.Param("name")
	tool, ok := serverHandler.Registry.Get(name)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": fmt.Sprintf("Unknown tool: %s", name),
		})
	}

	fileName, fileData, err := readUploadedPDF(c)
	if err != nil {
		Logger.Error("Invalid upload for tool invocation", "tool", name, "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}

	outcome, err := serverHandler.executeInvocation(c.Request().Context(), tool, fileName, fileData, formParamMap(c))
	if err != nil {
		Logger.Error("Tool invocation failed before completion", "tool", name, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Invocation failed",
		})
	}

	response := buildInvokeResponse(outcome)
	if outcome.Invocation.Status == database.InvocationStatusFailed {
		return c.JSON(http.StatusUnprocessableEntity, response)
	}
	return c.JSON(http.StatusOK, response)
}

// GetResultFile serves one saved output file of an invocation
// @Summary Download a result file
// @Description Serve one output file that a finished invocation saved
// @Tags Results
// @Produce octet-stream
// @Param id path string true "Invocation ULID"
// @Param name path string true "Result file name"
// @Success 200 {file} file "Result file"
// @Failure 400 {object} map[string]interface{} "Invalid invocation ID"
// @Failure 404 {object} map[string]interface{} "Result not found"
// @Router /results/{id}/{name} [get]
func (serverHandler *ServerHandler) GetResultFile(c echo.Context) error {
	ulidStr := c.Param("id")
	if _, err := ulid.Parse(ulidStr); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid invocation ID format",
		})
	}

	invocation, httpStatus, err := database.FetchInvocation(ulidStr, serverHandler.DB)
	if err != nil {
		return c.JSON(httpStatus, map[string]interface{}{
			"error": "Invocation not found",
		})
	}
	if invocation.ResultDir == "" {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Invocation has no saved results",
		})
	}

	// Base strips any path tricks so the lookup stays inside the folder
	name := filepath.Base(c.Param("name"))
	path := filepath.Join(invocation.ResultDir, name)
	if _, err := os.Stat(path); err != nil {
		Logger.Error("Result file missing from result directory", "path", path, "error", err)
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": fmt.Sprintf("No result file named %s", name),
		})
	}
	return c.File(path)
}

// GetLatestInvocations gets the invocations that were recorded last
// @Summary Get latest invocations
// @Description Retrieve the most recently recorded tool runs with pagination
// @Tags Invocations
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Success 200 {object} map[string]interface{} "Paginated invocations with metadata"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /invocations/latest [get]
func (serverHandler *ServerHandler) GetLatestInvocations(context echo.Context) error {
	// Get page parameter (default to 1)
	page := 1
	if pageParam := context.QueryParam("page"); pageParam != "" {
		if p, err := strconv.Atoi(pageParam); err == nil && p > 0 {
			page = p
		}
	}

	// Fixed page size of 20
	pageSize := 20

	invocations, totalCount, err := serverHandler.DB.GetNewestInvocationsWithPagination(page, pageSize)
	if err != nil {
		Logger.Error("Can't find latest invocations", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to fetch invocations",
		})
	}

	// Calculate pagination metadata
	totalPages := (totalCount + pageSize - 1) / pageSize // Ceiling division

	return context.JSON(http.StatusOK, map[string]interface{}{
		"invocations": invocations,
		"page":        page,
		"pageSize":    pageSize,
		"totalCount":  totalCount,
		"totalPages":  totalPages,
		"hasNext":     page < totalPages,
		"hasPrevious": page > 1,
	})
}

// GetInvocation will return an invocation by ULID
// @Summary Get an invocation by ID
// @Description Retrieve one recorded tool run by ULID
// @Tags Invocations
// @Accept json
// @Produce json
// @Param id path string true "Invocation ULID"
// @Success 200 {object} database.Invocation "Invocation details"
// @Failure 404 {object} map[string]interface{} "Invocation not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /invocations/{id} [get]
func (serverHandler *ServerHandler) GetInvocation(context echo.Context) error {
	ulidStr := context.Param("id")
	invocation, httpStatus, err := database.FetchInvocation(ulidStr, serverHandler.DB)
	if err != nil {
		Logger.Error("GetInvocation API call failed", "error", err)
		return context.JSON(httpStatus, err)
	}
	return context.JSON(httpStatus, invocation)
}

// SearchInvocations finds recorded runs by file or tool name
// @Summary Search invocations
// @Description Search recorded tool runs by uploaded file name or tool name
// @Tags Invocations
// @Accept json
// @Produce json
// @Param term query string true "Search term"
// @Success 200 {object} map[string]interface{} "Search results"
// @Success 204 "No results found"
// @Failure 404 {string} string "Empty search term"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /invocations/search [get]
func (serverHandler *ServerHandler) SearchInvocations(context echo.Context) error {
	searchParams := context.QueryParams()
	searchTerm := searchParams.Get("term")
	if searchTerm == "" {
		return context.JSON(http.StatusNotFound, "Empty search term")
	}

	Logger.Debug("Searching invocations", "searchTerm", searchTerm)
	invocations, err := serverHandler.DB.SearchInvocations(searchTerm)
	if err != nil {
		Logger.Error("Search failed", "error", err)
		return context.JSON(http.StatusInternalServerError, err)
	}

	if len(invocations) == 0 {
		Logger.Info("Search returned no results", "searchTerm", searchTerm)
		return context.JSON(http.StatusNoContent, nil)
	}

	return context.JSON(http.StatusOK, map[string]interface{}{
		"invocations": invocations,
		"count":       len(invocations),
	})
}

// GetToolHistory lists the recorded runs of one tool
// @Summary Get tool history
// @Description Retrieve every recorded run of one tool, newest first
// @Tags Tools
// @Accept json
// @Produce json
// @Param name path string true "Tool name"
// @Success 200 {array} database.Invocation "Recorded runs"
// @Failure 404 {object} map[string]interface{} "Unknown tool"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /tools/{name}/history [get]
func (serverHandler *ServerHandler) GetToolHistory(c echo.Context) error {
	name := c.Param("name")
	if _, ok := serverHandler.Registry.Get(name); !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": fmt.Sprintf("Unknown tool: %s", name),
		})
	}

	history, err := database.FetchToolHistory(name, serverHandler.DB)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to fetch tool history",
		})
	}
	if history == nil {
		history = []database.Invocation{}
	}
	return c.JSON(http.StatusOK, history)
}

// GetAPISpec serves the generated OpenAPI document
// @Summary Get the API specification
// @Description Retrieve the generated OpenAPI 2.0 document for this API
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "OpenAPI document"
// @Router /openapi.json [get]
func (serverHandler *ServerHandler) GetAPISpec(c echo.Context) error {
	doc, err := swag.ReadDoc()
	if err != nil {
		Logger.Error("API spec not registered", "error", err)
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "API specification not available",
		})
	}
	return c.Blob(http.StatusOK, "application/json", []byte(doc))
}

// GetAboutInfo returns information about the application configuration
// @Summary Get application information
// @Description Retrieve information about the application configuration, version, renderer and database
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Application information"
// @Router /about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {

	// Get database type
	dbType := serverHandler.ServerConfig.DatabaseType
	dbHost := serverHandler.ServerConfig.DatabaseHost
	dbPort := serverHandler.ServerConfig.DatabasePort
	dbName := serverHandler.ServerConfig.DatabaseDbname

	aboutInfo := map[string]interface{}{
		"version":       build.Version,
		"commit":        build.Commit,
		"built":         build.Date,
		"renderer":      serverHandler.ServerConfig.Renderer,
		"toolCount":     len(serverHandler.Registry.Names()),
		"databaseType":  dbType,
		"databaseHost":  dbHost,
		"databasePort":  dbPort,
		"databaseName":  dbName,
		"workspacePath": serverHandler.ServerConfig.WorkspacePath,
		"resultsPath":   serverHandler.ServerConfig.ResultsPath,
	}

	return c.JSON(http.StatusOK, aboutInfo)
}
