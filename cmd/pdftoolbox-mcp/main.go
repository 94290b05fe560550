// pdftoolbox-mcp serves the PDF tool registry over MCP on stdio, for
// LLM hosts that drive tools directly. Stdout belongs to the protocol,
// so all logging goes to stderr.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/drummonds/pdftoolbox/internal/build"
	"github.com/drummonds/pdftoolbox/mcpserver"
	"github.com/drummonds/pdftoolbox/pdfengine"
	"github.com/drummonds/pdftoolbox/toolkit"
	"github.com/drummonds/pdftoolbox/tools"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func main() {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	// The full server config loader prints a startup banner to stdout,
	// which would corrupt the stdio transport; read the handful of
	// settings this entry point needs directly.
	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	mcpserver.Logger = Logger

	renderer := getEnv("RENDERER", "pdfium")
	renderServiceURL := getEnv("RENDER_SERVICE_URL", "")
	if renderer == "remote" && renderServiceURL == "" {
		Logger.Warn("RENDERER=remote but RENDER_SERVICE_URL is empty, falling back to pdfium")
		renderer = "pdfium"
	}

	rasterizer, err := pdfengine.NewRasterizer(renderer, renderServiceURL)
	if err != nil {
		Logger.Error("Failed to initialize rasterizer", "renderer", renderer, "error", err)
		os.Exit(1)
	}
	defer rasterizer.Close()

	registry := toolkit.NewRegistry()
	if err := tools.RegisterAll(registry, rasterizer, tools.Options{
		DefaultZoom:    float64(getEnvInt("DEFAULT_ZOOM", 2)),
		MaxZoom:        float64(getEnvInt("MAX_ZOOM", 8)),
		ThumbnailWidth: getEnvInt("THUMBNAIL_WIDTH", 1024),
	}); err != nil {
		Logger.Error("Failed to register tools", "error", err)
		os.Exit(1)
	}

	Logger.Info("Starting MCP server on stdio", "version", build.Version, "tools", len(registry.Names()), "renderer", renderer)

	mcpServer := mcpserver.New(registry, build.Version)
	if err := server.ServeStdio(mcpServer); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
