// Package app exposes the analyzers as MCP tools.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/qdlab/qd-analyzer/internal/analysis"
)

const (
	serverName    = "QDAnalyzer"
	serverVersion = "0.1.0"

	ToolLIV = "analyze_liv"
	ToolOSA = "analyze_osa"

	argFolderPath = "folder_path"
)

var errMissingFolder = errors.New("missing or invalid required argument: folder_path (string)")

type runner func(folder string, opts ...analysis.Option) string

// NewServer creates the MCP server with the analyzer tools registered
func NewServer(logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	livTool := mcp.NewTool(ToolLIV,
		mcp.WithDescription("Analyze a folder of LIV sweep CSV files: threshold current and power at 150 mA per device, written to liv_summary.csv."),
		mcp.WithString(argFolderPath,
			mcp.Description("Folder containing the LIV CSV files."),
			mcp.Required(),
		),
	)
	osaTool := mcp.NewTool(ToolOSA,
		mcp.WithDescription("Analyze a folder of OSA spectrum CSV files: tone count per device, written to osa_summary.csv."),
		mcp.WithString(argFolderPath,
			mcp.Description("Folder containing the OSA CSV files."),
			mcp.Required(),
		),
	)

	s.AddTool(livTool, toolHandler(analysis.RunLIV, logger))
	s.AddTool(osaTool, toolHandler(analysis.RunOSA, logger))

	return s
}

func toolHandler(run runner, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		folder, ok := request.Params.Arguments[argFolderPath].(string)
		if !ok || folder == "" {
			return nil, errMissingFolder
		}

		logger.Info("handling tool call",
			slog.String("tool", request.Params.Name),
			slog.String("folder", folder))

		msg := run(folder, analysis.WithLogger(logger))

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{
					Type: "text",
					Text: msg,
				},
			},
		}, nil
	}
}
