// Package service hosts the workbench MCP server and its transports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/workbenchd/workbench/internal/bridge"
	"github.com/workbenchd/workbench/internal/platform/timeouts"
	"github.com/workbenchd/workbench/internal/storage/sqlite"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "Workbench MCP"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves MCP over a local HTTP listener.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	Transport TransportKind
	HTTPAddr  string

	// HistoryPath is the SQLite invocation history location. Empty disables
	// history recording and the tool_history tool.
	HistoryPath string

	// CompanionEnabled gates the companion bridge feature.
	CompanionEnabled bool
	// CompanionBinary is the companion helper binary located via PATH.
	CompanionBinary string
	// CompanionArgs are passed to the companion subprocess.
	CompanionArgs []string
}

// Server hosts the MCP server, the companion bridge, and invocation history.
type Server struct {
	mcpServer   *mcp.Server
	coordinator *bridge.Coordinator
	history     *sqlite.Store
}

// New creates a configured MCP server with its native tools registered and
// the companion bridge wired into the catalog.
func New(cfg Config) (*Server, error) {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	var history *sqlite.Store
	if cfg.HistoryPath != "" {
		store, err := sqlite.Open(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("open invocation history: %w", err)
		}
		history = store
	}

	server := &Server{mcpServer: mcpServer, history: history}

	server.coordinator = bridge.NewCoordinator(bridge.CoordinatorConfig{
		Enabled:        cfg.CompanionEnabled,
		BinaryName:     companionBinary(cfg.CompanionBinary),
		Args:           cfg.CompanionArgs,
		ConnectTimeout: timeouts.CompanionConnect,
		ListTimeout:    timeouts.CompanionList,
		CallTimeout:    timeouts.CompanionCall,
	}, &serverCatalog{server: server})

	registerToolchainTools(server)
	registerBridgeTools(server)
	registerHistoryTools(server)

	return server, nil
}

// companionBinary resolves the companion binary name with its default.
func companionBinary(name string) string {
	if name == "" {
		return "workbench-companion"
	}
	return name
}

// Run creates and serves the MCP server until the context ends. When the
// bridge is enabled a startup sync runs in the background so native tools
// are available immediately regardless of companion health.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	server, err := New(cfg)
	if err != nil {
		return err
	}

	if cfg.CompanionEnabled {
		go func() {
			if _, err := server.coordinator.Sync(ctx, bridge.SyncReasonStartup); err != nil {
				log.Printf("startup companion sync failed: %v", err)
			}
		}()
	}

	switch cfg.Transport {
	case TransportStdio:
		return server.serveWithTransport(ctx, &mcp.StdioTransport{})
	case TransportHTTP:
		return server.serveHTTP(ctx, cfg.HTTPAddr)
	default:
		closeErr := server.Close()
		if closeErr != nil {
			return fmt.Errorf("transport %q is not supported; close server: %w", cfg.Transport, closeErr)
		}
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport starts the MCP server using the provided transport.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	closeErr := s.Close()
	if closeErr != nil {
		if err == nil {
			return fmt.Errorf("close server: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close server: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// serveHTTP serves the MCP server over the HTTP transport.
func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	defer s.Close()
	transport := newHTTPTransport(addr, s.mcpServer)
	return transport.Start(ctx)
}

// Close releases the companion session and the history store.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.coordinator != nil {
		if err := s.coordinator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close companion bridge: %w", err))
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close invocation history: %w", err))
		}
	}
	return errors.Join(errs...)
}

// serverCatalog adapts the MCP server to the bridge catalog surface. The SDK
// emits tools/list_changed notifications on add and remove, so proxy churn
// reaches connected clients without extra plumbing.
type serverCatalog struct {
	server *Server
}

type serverRegistration struct {
	server *mcp.Server
	name   string
}

func (r *serverRegistration) Remove() {
	r.server.RemoveTools(r.name)
}

func (c *serverCatalog) Register(name string, def bridge.ToolDefinition, handler mcp.ToolHandler) (bridge.Registration, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	tool := &mcp.Tool{
		Name:        name,
		Title:       def.Title,
		Description: def.Description,
		InputSchema: def.InputSchema,
		Annotations: def.Annotations,
		Meta:        def.Meta,
	}
	remoteName, _ := def.Meta[bridge.RemoteNameMetaKey].(string)
	c.server.mcpServer.AddTool(tool, c.server.recordedRaw(name, remoteName, handler))
	return &serverRegistration{server: c.server.mcpServer, name: name}, nil
}

// recordedRaw wraps a proxy handler with invocation history recording.
func (s *Server) recordedRaw(toolName, remoteName string, handler mcp.ToolHandler) mcp.ToolHandler {
	if s.history == nil {
		return handler
	}
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, req)
		s.recordInvocation(toolName, remoteName, sqlite.OriginCompanion, err, time.Since(start))
		return result, err
	}
}

// recorded wraps a native typed handler with invocation history recording.
func recorded[I, O any](s *Server, toolName string, handler mcp.ToolHandlerFor[I, O]) mcp.ToolHandlerFor[I, O] {
	if s.history == nil {
		return handler
	}
	return func(ctx context.Context, req *mcp.CallToolRequest, input I) (*mcp.CallToolResult, O, error) {
		start := time.Now()
		result, output, err := handler(ctx, req, input)
		s.recordInvocation(toolName, "", sqlite.OriginNative, err, time.Since(start))
		return result, output, err
	}
}

// recordInvocation persists one invocation outcome. History failures are
// logged, never surfaced to the caller.
func (s *Server) recordInvocation(toolName, remoteName, origin string, callErr error, duration time.Duration) {
	outcome := "ok"
	if callErr != nil {
		outcome = "error"
		var bridgeErr *bridge.Error
		if errors.As(callErr, &bridgeErr) {
			outcome = string(bridgeErr.Code)
		}
	}

	recordCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.history.RecordInvocation(recordCtx, sqlite.Invocation{
		ToolName:   toolName,
		RemoteName: remoteName,
		Origin:     origin,
		Outcome:    outcome,
		Duration:   duration,
	})
	if err != nil {
		log.Printf("record invocation %s: %v", toolName, err)
	}
}
