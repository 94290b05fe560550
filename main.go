package main

import (
	"embed"
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
	"github.com/drummonds/pdftoolbox/webapp"
)

//go:embed webapp/webapp.css
var webappFS embed.FS

//go:embed public/built/favicon.ico public/built/404.html
var publicFS embed.FS

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
}

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Setup database (handles postgres and sqlite)
	Logger.Info("Setting up database", "type", serverConfig.DatabaseType)
	db := database.NewRepository(serverConfig)
	defer db.Close()

	Logger.Info("Database setup complete")
	database.WriteConfigToDB(serverConfig, db) //writing the config to the database
	Logger.Info("Config written to DB")

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
	Logger.Info("Tool registry ready", "tools", len(registry.Names()))

	e := echo.New()
	Logger.Info("Echo created")

	// Custom 404 handler
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		// For 404 errors, serve custom HTML page
		if code == http.StatusNotFound {
			// Check if this is an API request
			if strings.HasPrefix(c.Request().URL.Path, "/api/") {
				// Return JSON for API endpoints
				c.JSON(http.StatusNotFound, map[string]string{
					"error":   "Not Found",
					"message": "The requested API endpoint does not exist",
					"path":    c.Request().URL.Path,
				})
				return
			}

			// For non-API requests, serve custom 404 HTML from embedded filesystem
			if data, err := publicFS.ReadFile("public/built/404.html"); err == nil {
				c.HTMLBlob(http.StatusNotFound, data)
				return
			}

			// Fallback: serve inline HTML if embedded file doesn't exist
			c.HTML(http.StatusNotFound, `<!DOCTYPE html>
<html>
<head><title>404 - Not Found</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
	<h1>404 - Page Not Found</h1>
	<p>The page you're looking for doesn't exist.</p>
	<a href="/" style="color: #3498db; text-decoration: none; font-size: 18px;">← Go to Home Page</a>
</body>
</html>`)
			return
		}

		// For other errors, use default handler
		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler := engine.ServerHandler{
		DB:           db,
		Echo:         e,
		Registry:     registry,
		Rasterizer:   rasterizer,
		ServerConfig: serverConfig,
	}
	Logger.Info("About to initialize schedules")
	serverHandler.InitializeSchedules(db) //initialize all the cron jobs
	Logger.Info("Schedules initialized, about to run startup checks")
	serverHandler.StartupChecks() //Run all the sanity checks
	Logger.Info("Startup checks complete")
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", serverConfig.MaxUploadMB)))

	Logger.Info("Setting up go-app WASM UI")
	appHandler := webapp.Handler()

	// go-app serves its own generated resources, wasm_exec.js included
	e.GET("/wasm_exec.js", echo.WrapHandler(appHandler))
	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))
	e.GET("/manifest.webmanifest", echo.WrapHandler(appHandler))

	// app.wasm is produced by the wasm build of cmd/webapp and dropped
	// into web/ next to the binary
	e.Static("/web", "web")

	// Serve CSS files from embedded filesystem
	e.GET("/webapp/webapp.css", func(c echo.Context) error {
		data, err := webappFS.ReadFile("webapp/webapp.css")
		if err != nil {
			return c.String(http.StatusNotFound, "webapp.css not found")
		}
		return c.Blob(http.StatusOK, "text/css", data)
	})

	// Serve favicon from embedded filesystem
	e.GET("/favicon.ico", func(c echo.Context) error {
		data, err := publicFS.ReadFile("public/built/favicon.ico")
		if err != nil {
			return c.String(http.StatusNotFound, "favicon.ico not found")
		}
		return c.Blob(http.StatusOK, "image/x-icon", data)
	})

	// Inject backend API URL into the page
	e.GET("/config.js", func(c echo.Context) error {
		configJS := fmt.Sprintf(`
// pdftoolbox frontend configuration
window.pdftoolboxConfig = {
    apiURL: "%s",
    recentInvocationCount: %d
};
console.log("pdftoolbox config loaded:", window.pdftoolboxConfig);
`, serverConfig.ServerAPIURL, serverConfig.RecentInvocationNumber)
		c.Response().Header().Set("Content-Type", "application/javascript")
		return c.String(http.StatusOK, configJS)
	})

	Logger.Info("Logger enabled!!")

	//Start the API routes - all under /api/* prefix for clarity

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

	// Serve go-app handler for all other routes (must be last)
	// The WASM app handles its own client-side routing and 404s via NotFoundPage component
	e.Any("/*", echo.WrapHandler(appHandler))

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		// Check if error is "address already in use"
		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			// Increment port for next attempt
			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				Logger.Error("Please reboot your computer to free up ports or manually stop conflicting processes")
				os.Exit(1)
			}
		} else if startErr != nil {
			// Some other error occurred
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			// Server started successfully
			break
		}
	}

	// If we got here and startErr is nil, server started successfully
	if startErr == nil && serverConfig.ListenAddrPort != startPort {
		Logger.Warn("Server started on alternative port due to conflicts",
			"requested_port", startPort,
			"actual_port", serverConfig.ListenAddrPort)
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "address already in use")
}
