package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// SyncReason says why a sync was requested. It only affects logging of the
// completed sync, never its behavior.
type SyncReason string

const (
	// SyncReasonStartup is the background sync triggered at boot.
	SyncReasonStartup SyncReason = "startup"
	// SyncReasonManual is an explicit caller-invoked sync.
	SyncReasonManual SyncReason = "manual"
	// SyncReasonCatalogChanged is the background sync triggered by the
	// companion's catalog-changed signal.
	SyncReasonCatalogChanged SyncReason = "catalog-changed"
)

// CoordinatorConfig configures bridge orchestration.
type CoordinatorConfig struct {
	// Enabled gates the whole feature; when false every list/call refuses
	// immediately with CodeBridgeDisabled and nothing is probed or spawned.
	Enabled bool
	// BinaryName is the fixed companion helper binary located via PATH.
	BinaryName string
	// Args are passed to the companion subprocess.
	Args []string

	ConnectTimeout time.Duration
	ListTimeout    time.Duration
	CallTimeout    time.Duration

	// LookPath overrides binary discovery; defaults to exec.LookPath.
	LookPath func(name string) (string, error)
	// NotifyCatalogChanged tells the host its own catalog changed. May be
	// nil.
	NotifyCatalogChanged func()
	// Dial is passed through to the client; tests use it to connect to an
	// in-process companion.
	Dial func(ctx context.Context) (mcp.Transport, func() int, error)
}

// Coordinator is the sole orchestration surface of the bridge. It is
// constructed once per process and passed to call sites; Close releases the
// registry and the companion session.
type Coordinator struct {
	cfg      CoordinatorConfig
	client   *Client
	registry *ProxyRegistry
	tracer   trace.Tracer

	syncGroup singleflight.Group

	mu          sync.Mutex
	lastSyncErr string
}

// NewCoordinator wires a coordinator over the given host catalog.
func NewCoordinator(cfg CoordinatorConfig, catalog Catalog) *Coordinator {
	if cfg.LookPath == nil {
		cfg.LookPath = exec.LookPath
	}

	c := &Coordinator{
		cfg:      cfg,
		registry: NewProxyRegistry(catalog),
		tracer:   otel.Tracer("workbench/bridge"),
	}
	c.client = NewClient(ClientConfig{
		ConnectTimeout:     cfg.ConnectTimeout,
		ListTimeout:        cfg.ListTimeout,
		CallTimeout:        cfg.CallTimeout,
		Args:               cfg.Args,
		Dial:               cfg.Dial,
		OnToolListChanged:  c.onCatalogChanged,
		OnConnectionClosed: c.onConnectionClosed,
	})
	return c
}

// onCatalogChanged re-syncs in the background. Errors never escape this
// trigger; they are recorded in status and logged.
func (c *Coordinator) onCatalogChanged() {
	go func() {
		if _, err := c.Sync(context.Background(), SyncReasonCatalogChanged); err != nil {
			log.Printf("companion catalog sync failed: %v", err)
		}
	}()
}

// onConnectionClosed drops all derived state when the session dies.
func (c *Coordinator) onConnectionClosed() {
	cleared := c.registry.Clear()
	if cleared > 0 {
		c.notifyCatalogChanged()
	}
	log.Printf("companion connection closed, cleared %d proxy tools", cleared)
}

// Sync reconciles the host catalog against the companion's. Concurrent
// callers share one in-flight sync. An explicit caller receives any error;
// background triggers swallow it after state recovery.
func (c *Coordinator) Sync(ctx context.Context, reason SyncReason) (SyncResult, error) {
	value, err, _ := c.syncGroup.Do("sync", func() (any, error) {
		result, syncErr := c.runSync(ctx)
		return result, syncErr
	})
	result, _ := value.(SyncResult)
	if err == nil && reason != SyncReasonCatalogChanged {
		log.Printf("companion sync (%s): added=%d updated=%d removed=%d total=%d",
			reason, result.Added, result.Updated, result.Removed, result.Total)
	}
	return result, err
}

func (c *Coordinator) runSync(ctx context.Context) (SyncResult, error) {
	ctx, span := c.tracer.Start(ctx, "bridge.sync")
	defer span.End()

	if !c.cfg.Enabled {
		return SyncResult{}, NewError(CodeBridgeDisabled, "companion bridge is not enabled")
	}

	// Probe before any connection attempt: an absent binary is a clean
	// empty catalog, not a connection failure.
	binary, err := c.cfg.LookPath(c.cfg.BinaryName)
	if err != nil {
		removed := c.registry.Clear()
		c.setSyncError(fmt.Sprintf("companion binary %q not found in PATH", c.cfg.BinaryName))
		c.notifyCatalogChanged()
		return SyncResult{Removed: removed}, nil
	}

	result, err := c.syncConnected(ctx, binary)
	if err != nil {
		span.RecordError(err)
		c.registry.Clear()
		c.setSyncError(err.Error())
		c.notifyCatalogChanged()
		// Callers always see the stable taxonomy, never raw transport text.
		return SyncResult{}, c.structured(err, OpList)
	}

	c.setSyncError("")
	c.notifyCatalogChanged()
	return result, nil
}

func (c *Coordinator) syncConnected(ctx context.Context, binary string) (SyncResult, error) {
	c.client.setCommand(binary)

	if err := c.client.ConnectOnce(ctx); err != nil {
		return SyncResult{}, err
	}
	tools, err := c.client.ListTools(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	return c.registry.Sync(ctx, tools, c.invoke)
}

// invoke is the forwarding callback handed to the registry; every proxy
// handler funnels through it.
func (c *Coordinator) invoke(ctx context.Context, remoteName string, args map[string]any) (*mcp.CallToolResult, error) {
	ctx, span := c.tracer.Start(ctx, "bridge.call")
	defer span.End()

	result, err := c.client.CallTool(ctx, remoteName, args)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// ListTools returns the sorted local names of the registered proxy tools,
// optionally re-syncing first. When the feature is disabled it refuses
// without touching probe or client.
func (c *Coordinator) ListTools(ctx context.Context, refresh bool) ([]string, error) {
	if !c.cfg.Enabled {
		return nil, NewError(CodeBridgeDisabled, "companion bridge is not enabled")
	}
	if refresh {
		if _, err := c.Sync(ctx, SyncReasonManual); err != nil {
			return nil, c.structured(err, OpList)
		}
	}
	return c.registry.RegisteredToolNames(), nil
}

// CallTool invokes one companion tool by remote name. timeout, when
// positive, tightens the call deadline below the configured default. Every
// failure comes back as a structured *Error.
func (c *Coordinator) CallTool(ctx context.Context, remoteName string, args map[string]any, timeout time.Duration) (*mcp.CallToolResult, error) {
	if !c.cfg.Enabled {
		return nil, NewError(CodeBridgeDisabled, "companion bridge is not enabled")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := c.invoke(ctx, remoteName, args)
	if err != nil {
		return nil, c.structured(err, OpCall)
	}
	return result, nil
}

// structured wraps a lower-level failure into the stable error taxonomy.
func (c *Coordinator) structured(err error, op Operation) *Error {
	var bridgeErr *Error
	if errors.As(err, &bridgeErr) {
		return bridgeErr
	}
	code := Classify(err, op, c.client.Status().Connected)
	return &Error{Code: code, Message: err.Error()}
}

// Status reports connection state. The most recent sync failure takes
// precedence over the client's own last error; both persist until the next
// success of their layer.
func (c *Coordinator) Status() Status {
	status := c.client.Status()
	c.mu.Lock()
	if c.lastSyncErr != "" {
		status.LastError = c.lastSyncErr
	}
	c.mu.Unlock()
	return status
}

// Disconnect tears down the companion session and drops every proxy
// registration.
func (c *Coordinator) Disconnect() error {
	cleared := c.registry.Clear()
	if cleared > 0 {
		c.notifyCatalogChanged()
	}
	return c.client.Disconnect()
}

// Close releases the registry and the companion session.
func (c *Coordinator) Close() error {
	return c.Disconnect()
}

// RegisteredCount exposes the live proxy count for status surfaces.
func (c *Coordinator) RegisteredCount() int {
	return c.registry.RegisteredCount()
}

func (c *Coordinator) setSyncError(message string) {
	c.mu.Lock()
	c.lastSyncErr = message
	c.mu.Unlock()
}

func (c *Coordinator) notifyCatalogChanged() {
	if c.cfg.NotifyCatalogChanged != nil {
		c.cfg.NotifyCatalogChanged()
	}
}
