package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ID                   int
	ListenAddrIP         string
	ListenAddrPort       string
	DatabaseType         string
	DatabaseHost         string
	DatabasePort         string
	DatabaseUser         string
	DatabasePassword     string
	DatabaseDbname       string
	DatabaseSslmode      string
	DatabasePath         string // sqlite database file
	DatabaseDebug        bool   // verbose query logging
	WorkspacePath        string // scratch space for uploaded files during invocation
	ResultsPath          string // persisted tool output blobs, one folder per invocation
	Renderer             string // pdfium, fitz or remote
	RenderServiceURL     string
	DefaultZoom          int
	MaxZoom              int
	ThumbnailWidth       int
	MaxUploadMB          int
	SweepInterval        int // minutes between retention sweeps
	JobRetentionHours    int
	ResultRetentionHours int
	FrontEndConfig
}

// FrontEndConfig stores all of the frontend settings
type FrontEndConfig struct {
	RecentInvocationNumber int
	ServerAPIURL           string
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
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

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	serverConfigLive := ServerConfig{}
	frontEndConfigLive := FrontEndConfig{}

	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	// Load configuration from environment variables with defaults

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "pdftoolbox")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "pdftoolbox")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "")
	serverConfigLive.DatabasePath = filepath.ToSlash(getEnv("DATABASE_PATH", "pdftoolbox.db"))
	serverConfigLive.DatabaseDebug = getEnvBool("DATABASE_DEBUG", false)

	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)

	// Workspace configuration
	workspaceDir := filepath.ToSlash(getEnv("WORKSPACE_PATH", "workspace"))
	workspaceDirAbs, err := filepath.Abs(workspaceDir)
	if err != nil {
		logger.Error("Failed creating absolute path for workspace directory", "error", err)
	}
	serverConfigLive.WorkspacePath = workspaceDirAbs

	resultsDir := filepath.ToSlash(getEnv("RESULTS_PATH", "results"))
	resultsDirAbs, err := filepath.Abs(resultsDir)
	if err != nil {
		logger.Error("Failed creating absolute path for results directory", "error", err)
	}
	serverConfigLive.ResultsPath = resultsDirAbs

	// Renderer configuration
	serverConfigLive.Renderer = getEnv("RENDERER", "pdfium")
	serverConfigLive.RenderServiceURL = getEnv("RENDER_SERVICE_URL", "")
	if serverConfigLive.Renderer == "remote" && serverConfigLive.RenderServiceURL == "" {
		logger.Warn("RENDERER=remote but RENDER_SERVICE_URL is empty, falling back to pdfium")
		serverConfigLive.Renderer = "pdfium"
	}
	serverConfigLive.DefaultZoom = getEnvInt("DEFAULT_ZOOM", 2)
	serverConfigLive.MaxZoom = getEnvInt("MAX_ZOOM", 8)
	serverConfigLive.ThumbnailWidth = getEnvInt("THUMBNAIL_WIDTH", 1024)
	serverConfigLive.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", 100)

	// Retention configuration
	serverConfigLive.SweepInterval = getEnvInt("SWEEP_INTERVAL", 30)
	serverConfigLive.JobRetentionHours = getEnvInt("JOB_RETENTION_HOURS", 72)
	serverConfigLive.ResultRetentionHours = getEnvInt("RESULT_RETENTION_HOURS", 24)

	fmt.Println("\n========================================")
	fmt.Println("   pdftoolbox - PDF Page Tool Server")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "pdftoolbox.log"))
	fmt.Println("Initializing...")

	// Frontend configuration
	frontEndConfigLive.RecentInvocationNumber = getEnvInt("RECENT_INVOCATION_COUNT", 20)
	frontEndConfigLive.ServerAPIURL = getEnv("SERVER_API_URL", "")
	serverConfigLive.FrontEndConfig = frontEndConfigLive

	logger.Info("About to setup database", "type", serverConfigLive.DatabaseType)

	return serverConfigLive, logger
}

// SetupFrontend loads configuration for frontend-only server
func SetupFrontend() (FrontEndConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")
	_ = godotenv.Load("frontend.env")

	logger := setupLogging()
	Logger = logger

	frontendConfig := FrontEndConfig{}

	// Frontend configuration
	frontendConfig.RecentInvocationNumber = getEnvInt("RECENT_INVOCATION_COUNT", 20)
	frontendConfig.ServerAPIURL = getEnv("SERVER_API_URL", "http://localhost:8000")

	logger.Info("Frontend configuration loaded",
		"apiURL", frontendConfig.ServerAPIURL,
		"recentInvocationCount", frontendConfig.RecentInvocationNumber)

	return frontendConfig, logger
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "pdftoolbox.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
