package service

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/workbenchd/workbench/internal/mcp/domain"
)

func registerToolchainTools(s *Server) {
	mcp.AddTool(s.mcpServer, domain.ToolchainVersionTool(),
		recorded(s, "toolchain_version", domain.ToolchainVersionHandler(domain.ExecRunner)))
	mcp.AddTool(s.mcpServer, domain.ProjectBuildTool(),
		recorded(s, "project_build", domain.ProjectBuildHandler(domain.ExecRunner)))
	mcp.AddTool(s.mcpServer, domain.ProjectTestTool(),
		recorded(s, "project_test", domain.ProjectTestHandler(domain.ExecRunner)))
}

func registerBridgeTools(s *Server) {
	mcp.AddTool(s.mcpServer, domain.CompanionStatusTool(),
		recorded(s, "companion_status", domain.CompanionStatusHandler(s.coordinator)))
	mcp.AddTool(s.mcpServer, domain.CompanionSyncTool(),
		recorded(s, "companion_sync", domain.CompanionSyncHandler(s.coordinator)))
	mcp.AddTool(s.mcpServer, domain.CompanionDisconnectTool(),
		recorded(s, "companion_disconnect", domain.CompanionDisconnectHandler(s.coordinator)))
}

// registerHistoryTools registers the history listing when a store is open.
func registerHistoryTools(s *Server) {
	if s.history == nil {
		return
	}
	mcp.AddTool(s.mcpServer, domain.ToolHistoryTool(),
		recorded(s, "tool_history", domain.ToolHistoryHandler(s.history)))
}
