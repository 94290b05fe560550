package engine

import (
	"fmt"
	"os"

	"github.com/drummonds/pdftoolbox/config"
	"github.com/drummonds/pdftoolbox/database"
	"github.com/drummonds/pdftoolbox/pdfengine"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	serverConfig, err := database.FetchConfigFromDB(serverHandler.DB)
	if err != nil {
		Logger.Error("Error fetching config", "error", err)
		return err
	}
	workspaceDirectoryChecks(serverConfig)
	resultsDirectoryChecks(serverConfig)
	serverHandler.rasterizerChecks()
	return nil
}

// workspaceDirectoryChecks ensures the workspace directory exists
func workspaceDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.WorkspacePath == "" {
		Logger.Warn("Workspace path not configured")
		return nil
	}

	// Check if directory exists
	workspaceInfo, err := os.Stat(serverConfig.WorkspacePath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create the directory
			Logger.Info("Creating workspace directory", "path", serverConfig.WorkspacePath)
			err = os.MkdirAll(serverConfig.WorkspacePath, 0755)
			if err != nil {
				Logger.Error("Failed to create workspace directory", "path", serverConfig.WorkspacePath, "error", err)
				return err
			}
			Logger.Info("Workspace directory created successfully", "path", serverConfig.WorkspacePath)
			return nil
		}
		Logger.Error("Error checking workspace directory", "path", serverConfig.WorkspacePath, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !workspaceInfo.IsDir() {
		Logger.Error("Workspace path exists but is not a directory", "path", serverConfig.WorkspacePath)
		return fmt.Errorf("workspace path is not a directory: %s", serverConfig.WorkspacePath)
	}

	Logger.Info("Workspace directory exists", "path", serverConfig.WorkspacePath)
	return nil
}

// resultsDirectoryChecks ensures the results directory exists
func resultsDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.ResultsPath == "" {
		Logger.Warn("Results path not configured")
		return nil
	}

	// Check if directory exists
	resultsInfo, err := os.Stat(serverConfig.ResultsPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create the directory
			Logger.Info("Creating results directory", "path", serverConfig.ResultsPath)
			err = os.MkdirAll(serverConfig.ResultsPath, 0755)
			if err != nil {
				Logger.Error("Failed to create results directory", "path", serverConfig.ResultsPath, "error", err)
				return err
			}
			Logger.Info("Results directory created successfully", "path", serverConfig.ResultsPath)
			return nil
		}
		Logger.Error("Error checking results directory", "path", serverConfig.ResultsPath, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !resultsInfo.IsDir() {
		Logger.Error("Results path exists but is not a directory", "path", serverConfig.ResultsPath)
		return fmt.Errorf("results path is not a directory: %s", serverConfig.ResultsPath)
	}

	Logger.Info("Results directory exists", "path", serverConfig.ResultsPath)
	return nil
}

// rasterizerChecks renders the built in sample document through the
// configured backend so a broken renderer shows up at startup instead
// of on the first pdf_to_png call
func (serverHandler *ServerHandler) rasterizerChecks() error {
	if serverHandler.Rasterizer == nil {
		Logger.Warn("No rasterizer configured, render tools will be unavailable")
		return nil
	}

	sample := pdfengine.SamplePDF(1)
	if _, err := pdfengine.Open(sample); err != nil {
		Logger.Warn("PDF engine self-check failed", "error", err)
		return nil // Don't return error, the page tools may still work on real files
	}

	images, err := serverHandler.Rasterizer.Render(sample, 1)
	if err != nil {
		Logger.Warn("Renderer self-check failed, render tools may not work", "renderer", serverHandler.ServerConfig.Renderer, "error", err)
		return nil // Don't return error, just continue without render tools
	}
	if len(images) == 0 {
		Logger.Warn("Renderer self-check produced no pages", "renderer", serverHandler.ServerConfig.Renderer)
		return nil
	}

	Logger.Info("Renderer self-check passed", "renderer", serverHandler.ServerConfig.Renderer, "pages", len(images))
	return nil
}
