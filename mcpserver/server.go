// Package mcpserver exposes the tool registry over the Model Context
// Protocol, so LLM hosts can drive the PDF tools directly. Files come
// in by path rather than upload; generated files are written next to
// the source PDF (or into output_dir) and reported by path.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/drummonds/pdftoolbox/toolkit"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// New builds an MCP server exposing every tool in the registry.
func New(registry *toolkit.Registry, version string) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"pdftoolbox",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, name := range registry.Names() {
		tool, _ := registry.Get(name)
		mcpServer.AddTool(definition(tool.Spec()), handler(tool))
	}
	return mcpServer
}

// definition translates a tool spec into its MCP registration. The
// file parameter becomes a file_path string argument, everything else
// keeps its name, requiredness and default.
func definition(spec toolkit.Spec) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(spec.Description.EnUS),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Absolute path to the PDF document to process"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory for generated files (defaults to the PDF's directory)"),
		),
	}

	for _, param := range spec.Params {
		switch param.Type {
		case toolkit.ParamTypeFile:
			// covered by file_path
		case toolkit.ParamTypeNumber:
			propOpts := []mcp.PropertyOption{mcp.Description(param.Description.EnUS)}
			if param.Required {
				propOpts = append(propOpts, mcp.Required())
			}
			if value, ok := defaultNumber(param.Default); ok {
				propOpts = append(propOpts, mcp.DefaultNumber(value))
			}
			opts = append(opts, mcp.WithNumber(param.Name, propOpts...))
		default:
			propOpts := []mcp.PropertyOption{mcp.Description(param.Description.EnUS)}
			if param.Required {
				propOpts = append(propOpts, mcp.Required())
			}
			if value, ok := param.Default.(string); ok && value != "" {
				propOpts = append(propOpts, mcp.DefaultString(value))
			}
			opts = append(opts, mcp.WithString(param.Name, propOpts...))
		}
	}
	return mcp.NewTool(spec.Name, opts...)
}

// defaultNumber coerces the shapes a schema default may carry.
func defaultNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// handler wraps one tool invocation for MCP: read the file, run the
// tool, write blobs to disk and return the message stream as text.
func handler(tool toolkit.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		filePath, ok := args["file_path"].(string)
		if !ok || filePath == "" {
			return mcp.NewToolResultError("missing or invalid required parameter: file_path"), nil
		}
		if !filepath.IsAbs(filePath) {
			return mcp.NewToolResultError("file_path must be an absolute path"), nil
		}

		fileData, err := os.ReadFile(filePath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", filePath, err)), nil
		}

		outputDir := filepath.Dir(filePath)
		if dir, ok := args["output_dir"].(string); ok && dir != "" {
			outputDir = dir
		}

		params := make(map[string]any, len(args))
		for key, value := range args {
			if key == "file_path" || key == "output_dir" {
				continue
			}
			params[key] = value
		}

		toolName := tool.Spec().Name
		if Logger != nil {
			Logger.Info("MCP tool call", "tool", toolName, "filePath", filePath)
		}

		collector := &toolkit.Collector{}
		req := &toolkit.Request{
			FileName: filepath.Base(filePath),
			FileData: fileData,
			Params:   params,
		}
		if err := tool.Invoke(ctx, req, collector.Emit); err != nil {
			if Logger != nil {
				Logger.Info("MCP tool call failed", "tool", toolName, "error", err)
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		// One output line per message, in emission order; blobs land on
		// disk and are reported by path
		var lines []string
		for _, msg := range collector.Messages {
			switch msg.Kind {
			case toolkit.MessageText:
				lines = append(lines, msg.Text)
			case toolkit.MessageJSON:
				lines = append(lines, string(msg.JSON))
			case toolkit.MessageBlob:
				name := filepath.Base(msg.Meta.FileName)
				outPath := filepath.Join(outputDir, name)
				if err := os.MkdirAll(outputDir, 0755); err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("failed to create output directory: %v", err)), nil
				}
				if err := os.WriteFile(outPath, msg.Blob, 0644); err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("failed to write %s: %v", outPath, err)), nil
				}
				lines = append(lines, fmt.Sprintf("Saved: %s", outPath))
			}
		}
		return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
	}
}
