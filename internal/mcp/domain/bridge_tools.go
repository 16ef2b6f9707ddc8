package domain

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/workbenchd/workbench/internal/bridge"
)

// Bridge is the companion orchestration surface the admin tools act on.
type Bridge interface {
	Sync(ctx context.Context, reason bridge.SyncReason) (bridge.SyncResult, error)
	Status() bridge.Status
	Disconnect() error
	RegisteredCount() int
}

// CompanionStatusInput represents the MCP tool input for the status query.
type CompanionStatusInput struct{}

// CompanionStatusResult represents the MCP tool output for the status query.
type CompanionStatusResult struct {
	Connected       bool   `json:"connected" jsonschema:"whether a companion session is live"`
	PeerPID         int    `json:"peer_pid" jsonschema:"companion process id, zero when not connected"`
	RegisteredTools int    `json:"registered_tools" jsonschema:"number of live proxy tools"`
	LastError       string `json:"last_error" jsonschema:"most recent companion failure, empty when healthy"`
}

// CompanionSyncInput represents the MCP tool input for a manual catalog sync.
type CompanionSyncInput struct{}

// CompanionDisconnectInput represents the MCP tool input for a disconnect.
type CompanionDisconnectInput struct{}

// CompanionDisconnectResult represents the MCP tool output for a disconnect.
type CompanionDisconnectResult struct {
	Disconnected bool `json:"disconnected" jsonschema:"whether the session was torn down"`
}

// CompanionStatusTool defines the MCP tool schema for the status query.
func CompanionStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "companion_status",
		Description: "Reports companion bridge connection state",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}
}

// CompanionSyncTool defines the MCP tool schema for a manual catalog sync.
func CompanionSyncTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "companion_sync",
		Description: "Reconciles the host catalog against the companion catalog",
	}
}

// CompanionDisconnectTool defines the MCP tool schema for a disconnect.
func CompanionDisconnectTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "companion_disconnect",
		Description: "Tears down the companion session and removes its proxy tools",
	}
}

// CompanionStatusHandler executes the status query.
func CompanionStatusHandler(bridgeAPI Bridge) mcp.ToolHandlerFor[CompanionStatusInput, CompanionStatusResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ CompanionStatusInput) (*mcp.CallToolResult, CompanionStatusResult, error) {
		status := bridgeAPI.Status()
		result := CompanionStatusResult{
			Connected:       status.Connected,
			PeerPID:         status.PeerPID,
			RegisteredTools: bridgeAPI.RegisteredCount(),
			LastError:       status.LastError,
		}
		return nil, result, nil
	}
}

// CompanionSyncHandler executes a manual catalog sync.
func CompanionSyncHandler(bridgeAPI Bridge) mcp.ToolHandlerFor[CompanionSyncInput, bridge.SyncResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ CompanionSyncInput) (*mcp.CallToolResult, bridge.SyncResult, error) {
		result, err := bridgeAPI.Sync(ctx, bridge.SyncReasonManual)
		if err != nil {
			return nil, bridge.SyncResult{}, err
		}
		return nil, result, nil
	}
}

// CompanionDisconnectHandler executes a companion disconnect.
func CompanionDisconnectHandler(bridgeAPI Bridge) mcp.ToolHandlerFor[CompanionDisconnectInput, CompanionDisconnectResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ CompanionDisconnectInput) (*mcp.CallToolResult, CompanionDisconnectResult, error) {
		if err := bridgeAPI.Disconnect(); err != nil {
			return nil, CompanionDisconnectResult{}, err
		}
		return nil, CompanionDisconnectResult{Disconnected: true}, nil
	}
}
