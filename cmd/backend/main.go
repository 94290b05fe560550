package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/pdftoolbox/config"
	database "github.com/drummonds/pdftoolbox/database"
	_ "github.com/drummonds/pdftoolbox/docs" // registers the generated API spec
	engine "github.com/drummonds/pdftoolbox/engine"
	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
	"github.com/drummonds/pdftoolbox/tools"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

// @title pdftoolbox Backend API
// @version 1.0
// @description PDF page tool server API - Backend service for running page tools against uploaded PDFs
// @description Supports page counting, extraction, splitting, rasterization, text extraction and thumbnails

// @contact.name API Support
// @contact.url https://github.com/drummonds/pdftoolbox

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @tag.name Tools
// @tag.description Tool catalog and invocation operations

// @tag.name Invocations
// @tag.description Recorded tool run history and result downloads

// @tag.name Jobs
// @tag.description Background job tracking operations

// @tag.name Stats
// @tag.description Per-tool usage statistics

// @tag.name Admin
// @tag.description Administrative operations

// @tag.name Health
// @tag.description Service health check

func main() {
	// Parse command-line flags
	port := flag.String("port", "8000", "Port to run backend server on")
	flag.Parse()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🔧  pdftoolbox Backend API Server")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("• API-only mode (no frontend)")
	fmt.Println("• All endpoints under /api/*")
	fmt.Println("• CORS enabled for frontend access")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Show info banner if using ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println("• Database will be destroyed on exit")
		fmt.Println()
	}

	// Setup invocation repository
	repo := database.NewRepository(serverConfig)
	defer repo.Close()

	// Write config to database if it's a fresh ephemeral database
	if serverConfig.DatabaseType == "ephemeral" {
		database.WriteConfigToDB(serverConfig, repo)
	}

	// Build the render backend and the tool registry
	rasterizer, err := pdfengine.NewRasterizer(serverConfig.Renderer, serverConfig.RenderServiceURL)
	if err != nil {
		Logger.Error("Failed to initialize rasterizer", "renderer", serverConfig.Renderer, "error", err)
		os.Exit(1)
	}
	defer rasterizer.Close()

	registry := toolkit.NewRegistry()
	if err := tools.RegisterAll(registry, rasterizer, tools.Options{
		DefaultZoom:    float64(serverConfig.DefaultZoom),
		MaxZoom:        float64(serverConfig.MaxZoom),
		ThumbnailWidth: serverConfig.ThumbnailWidth,
	}); err != nil {
		Logger.Error("Failed to register tools", "error", err)
		os.Exit(1)
	}

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Custom 404 handler for API endpoints
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound {
			// Return JSON for API endpoints
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		// For other errors, use default handler
		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler := engine.ServerHandler{
		DB:           repo,
		Echo:         e,
		Registry:     registry,
		Rasterizer:   rasterizer,
		ServerConfig: serverConfig,
	}
	Logger.Info("Initializing backend services...")
	serverHandler.InitializeSchedules(repo) //initialize all the cron jobs
	serverHandler.StartupChecks()           //Run all the sanity checks
	Logger.Info("Backend services initialized", "tools", len(registry.Names()))

	// CORS configuration - allow frontend from different origin
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"}, // In production, specify your frontend URL
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Request logging
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))

	// Uploaded PDFs arrive as multipart bodies
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", serverConfig.MaxUploadMB)))

	Logger.Info("Setting up API routes...")

	// Tool API routes
	e.GET("/api/tools", serverHandler.GetTools)
	e.GET("/api/tools/:name", serverHandler.GetTool)
	e.GET("/api/tools/:name/history", serverHandler.GetToolHistory)
	e.POST("/api/tools/:name/invoke", serverHandler.InvokeTool)
	e.POST("/api/tools/:name/jobs", serverHandler.StartToolJob)

	// Invocation API routes
	e.GET("/api/invocations/latest", serverHandler.GetLatestInvocations)
	e.GET("/api/invocations/search", serverHandler.SearchInvocations)
	e.GET("/api/invocations/:id", serverHandler.GetInvocation)

	// Result download routes (serve saved output files, not JSON)
	e.GET("/api/results/:id/:name", serverHandler.GetResultFile)

	// Usage statistics API routes
	e.GET("/api/stats/tools", serverHandler.GetToolStats)
	e.POST("/api/stats/recalculate", serverHandler.RecalculateToolStats)

	// Admin API routes
	e.GET("/api/about", serverHandler.GetAboutInfo)
	e.GET("/api/openapi.json", serverHandler.GetAPISpec)

	// Job tracking API routes
	e.GET("/api/jobs", serverHandler.GetRecentJobs)
	e.GET("/api/jobs/active", serverHandler.GetActiveJobs)
	e.GET("/api/jobs/:id", serverHandler.GetJob)

	// Health check endpoint
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "pdftoolbox Backend API",
		})
	})

	// Override port if specified via flag
	if *port != "8000" {
		serverConfig.ListenAddrPort = *port
	}

	// Start server
	addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
	Logger.Info("Starting Backend API Server", "address", addr)
	fmt.Printf("\n✅  Backend API Server running on %s\n", addr)
	fmt.Printf("📡  API endpoints available at http://%s/api/\n", addr)
	fmt.Printf("🏥  Health check: http://%s/api/health\n\n", addr)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
