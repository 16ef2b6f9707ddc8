package bridge

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/singleflight"

	"github.com/workbenchd/workbench/internal/platform/timeouts"
)

// clientName identifies the host to the companion during the handshake.
const clientName = "workbench"

// clientVersion identifies the host build to the companion.
const clientVersion = "0.1.0"

// taskResultMetaKey marks a companion reply as a deferred task handle. The
// bridge does not support task execution, so such replies fail the call.
const taskResultMetaKey = "workbench-companion/task"

// ClientConfig configures the companion session.
type ClientConfig struct {
	// Command is the resolved companion binary path.
	Command string
	// Args are passed to the companion subprocess.
	Args []string

	ConnectTimeout time.Duration
	ListTimeout    time.Duration
	CallTimeout    time.Duration

	// OnToolListChanged fires when the companion signals that its catalog
	// changed. OnConnectionClosed fires when the session ends without a
	// deliberate Disconnect. Both may be nil.
	OnToolListChanged  func()
	OnConnectionClosed func()

	// Dial overrides subprocess transport creation; tests connect the
	// client to an in-process companion through it. The returned pid
	// function may be nil when no real process backs the transport.
	Dial func(ctx context.Context) (mcp.Transport, func() int, error)
}

// Status reports the observable connection state of the companion session.
type Status struct {
	Connected bool
	PeerPID   int
	LastError string
}

// Client owns the single logical session to the companion process.
type Client struct {
	cfg ClientConfig

	connect singleflight.Group

	mu      sync.Mutex
	session *mcp.ClientSession
	peerPID int
	lastErr string
	gen     uint64
}

// NewClient builds a client; no subprocess is spawned until ConnectOnce.
func NewClient(cfg ClientConfig) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = timeouts.CompanionConnect
	}
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = timeouts.CompanionList
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = timeouts.CompanionCall
	}
	return &Client{cfg: cfg}
}

// ConnectOnce establishes the companion session if absent. It is idempotent
// and collapses concurrent callers onto one in-flight handshake, so no
// duplicate subprocess is ever spawned. On failure the session is torn down,
// the error recorded, and returned to every waiting caller.
func (c *Client) ConnectOnce(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	_, err, _ := c.connect.Do("connect", func() (any, error) {
		return nil, c.establishSession(ctx)
	})
	return err
}

func (c *Client) establishSession(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	transport, pid, err := c.dial(connectCtx)
	if err != nil {
		c.recordError(fmt.Errorf("create companion transport: %w", err))
		return fmt.Errorf("create companion transport: %w", err)
	}

	mcpClient := mcp.NewClient(
		&mcp.Implementation{Name: clientName, Version: clientVersion},
		&mcp.ClientOptions{
			ToolListChangedHandler: func(context.Context, *mcp.ToolListChangedRequest) {
				if c.cfg.OnToolListChanged != nil {
					c.cfg.OnToolListChanged()
				}
			},
		},
	)

	session, err := mcpClient.Connect(connectCtx, transport, nil)
	if err != nil {
		c.recordError(fmt.Errorf("connect to companion: %w", err))
		return fmt.Errorf("connect to companion: %w", err)
	}

	c.mu.Lock()
	c.session = session
	c.lastErr = ""
	c.peerPID = 0
	if pid != nil {
		c.peerPID = pid()
	}
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.watchSession(session, gen)
	return nil
}

// dial builds the subprocess transport, or delegates to the injected dialer.
func (c *Client) dial(ctx context.Context) (mcp.Transport, func() int, error) {
	c.mu.Lock()
	command, args := c.cfg.Command, c.cfg.Args
	c.mu.Unlock()

	if c.cfg.Dial != nil {
		return c.cfg.Dial(ctx)
	}
	if command == "" {
		return nil, nil, fmt.Errorf("companion command is not configured")
	}
	cmd := exec.Command(command, args...)
	pid := func() int {
		if cmd.Process == nil {
			return 0
		}
		return cmd.Process.Pid
	}
	return &mcp.CommandTransport{Command: cmd}, pid, nil
}

// watchSession waits for the session to end and fires the closed callback
// when the teardown was not a deliberate Disconnect.
func (c *Client) watchSession(session *mcp.ClientSession, gen uint64) {
	waitErr := session.Wait()

	c.mu.Lock()
	current := c.session == session && c.gen == gen
	if current {
		c.session = nil
		c.peerPID = 0
		if waitErr != nil {
			c.lastErr = fmt.Sprintf("companion connection closed: %v", waitErr)
		} else {
			c.lastErr = "companion connection closed unexpectedly"
		}
	}
	c.mu.Unlock()

	if current && c.cfg.OnConnectionClosed != nil {
		c.cfg.OnConnectionClosed()
	}
}

// ListTools fetches the companion's current catalog, following pagination.
func (c *Client) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	session := c.currentSession()
	if session == nil {
		return nil, errNotConnected
	}

	listCtx, cancel := context.WithTimeout(ctx, c.cfg.ListTimeout)
	defer cancel()

	var tools []*mcp.Tool
	cursor := ""
	for {
		result, err := session.ListTools(listCtx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("list companion tools: %w", err)
		}
		tools = append(tools, result.Tools...)
		if result.NextCursor == "" {
			return tools, nil
		}
		cursor = result.NextCursor
	}
}

// CallTool invokes one companion tool by its remote name.
func (c *Client) CallTool(ctx context.Context, remoteName string, args map[string]any) (*mcp.CallToolResult, error) {
	session := c.currentSession()
	if session == nil {
		return nil, errNotConnected
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	result, err := session.CallTool(callCtx, &mcp.CallToolParams{
		Name:      remoteName,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("call companion tool %q: %w", remoteName, err)
	}
	if result == nil {
		return nil, fmt.Errorf("tool %q: %w", remoteName, errUnexpectedResult)
	}
	if _, deferred := result.Meta[taskResultMetaKey]; deferred {
		return nil, fmt.Errorf("tool %q: %w", remoteName, errDeferredResult)
	}
	return result, nil
}

// Disconnect tears the session down. It is a no-op when not connected and
// the last recorded error survives until the next successful connect.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.peerPID = 0
	if session != nil {
		c.gen++
	}
	c.mu.Unlock()

	if session == nil {
		return nil
	}
	if err := session.Close(); err != nil {
		return fmt.Errorf("close companion session: %w", err)
	}
	return nil
}

// Status reports the current connection state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Connected: c.session != nil,
		PeerPID:   c.peerPID,
		LastError: c.lastErr,
	}
}

// setCommand records the resolved companion binary path for the next dial.
func (c *Client) setCommand(command string) {
	c.mu.Lock()
	c.cfg.Command = command
	c.mu.Unlock()
}

func (c *Client) currentSession() *mcp.ClientSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) recordError(err error) {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}
