package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/workbenchd/workbench/internal/storage/sqlite"
)

// defaultHistoryLimit caps the history listing when no limit is given.
const defaultHistoryLimit = 20

// HistoryStore is the invocation history surface the history tool reads.
type HistoryStore interface {
	ListRecent(ctx context.Context, limit int) ([]sqlite.Invocation, error)
}

// ToolHistoryInput represents the MCP tool input for the history listing.
type ToolHistoryInput struct {
	Limit int `json:"limit" jsonschema:"maximum number of entries, defaults to 20"`
}

// ToolHistoryEntry represents one recorded invocation.
type ToolHistoryEntry struct {
	Tool       string `json:"tool" jsonschema:"local tool name"`
	RemoteName string `json:"remote_name" jsonschema:"companion remote name, empty for native tools"`
	Origin     string `json:"origin" jsonschema:"native or companion"`
	Outcome    string `json:"outcome" jsonschema:"ok or a failure code"`
	DurationMs int64  `json:"duration_ms" jsonschema:"invocation duration in milliseconds"`
	CalledAt   string `json:"called_at" jsonschema:"invocation time in RFC 3339"`
}

// ToolHistoryResult represents the MCP tool output for the history listing.
type ToolHistoryResult struct {
	Invocations []ToolHistoryEntry `json:"invocations" jsonschema:"recent invocations, newest first"`
}

// ToolHistoryTool defines the MCP tool schema for the history listing.
func ToolHistoryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "tool_history",
		Description: "Lists recent tool invocations, newest first",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}
}

// ToolHistoryHandler executes a history listing request.
func ToolHistoryHandler(store HistoryStore) mcp.ToolHandlerFor[ToolHistoryInput, ToolHistoryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ToolHistoryInput) (*mcp.CallToolResult, ToolHistoryResult, error) {
		if store == nil {
			return nil, ToolHistoryResult{}, fmt.Errorf("invocation history is not configured")
		}
		limit := input.Limit
		if limit <= 0 {
			limit = defaultHistoryLimit
		}

		invocations, err := store.ListRecent(ctx, limit)
		if err != nil {
			return nil, ToolHistoryResult{}, fmt.Errorf("tool history failed: %w", err)
		}

		result := ToolHistoryResult{Invocations: make([]ToolHistoryEntry, 0, len(invocations))}
		for _, invocation := range invocations {
			result.Invocations = append(result.Invocations, ToolHistoryEntry{
				Tool:       invocation.ToolName,
				RemoteName: invocation.RemoteName,
				Origin:     invocation.Origin,
				Outcome:    invocation.Outcome,
				DurationMs: invocation.Duration.Milliseconds(),
				CalledAt:   invocation.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil, result, nil
	}
}
