package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/workbenchd/workbench/internal/platform/timeouts"
)

// sessionHeader carries the client's session identity across HTTP requests.
const sessionHeader = "X-MCP-Session-ID"

// sessionIdleTimeout bounds the session map: sessions quiet for longer are
// evicted and their clients must start a fresh session.
const sessionIdleTimeout = 10 * time.Minute

// sessionCounter disambiguates sessions created within one clock tick.
var sessionCounter atomic.Int64

// httpTransport serves MCP over a local HTTP listener. Each client is keyed
// by a session header; JSON-RPC requests arrive over POST and streamed
// server messages go out over SSE.
type httpTransport struct {
	addr   string
	server *mcp.Server

	mu       sync.Mutex
	sessions map[string]*httpSession

	runCtx    context.Context
	runCancel context.CancelFunc
}

// httpSession pairs one client with its live connection.
type httpSession struct {
	id       string
	conn     *httpConn
	started  sync.Once
	lastUsed time.Time
}

// httpConn implements mcp.Connection over channel-backed HTTP plumbing.
type httpConn struct {
	sessionID string
	incoming  chan jsonrpc.Message
	outgoing  chan jsonrpc.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newHTTPTransport(addr string, server *mcp.Server) *httpTransport {
	if addr == "" {
		addr = "localhost:8081"
	}
	return &httpTransport{
		addr:     addr,
		server:   server,
		sessions: make(map[string]*httpSession),
	}
}

// Start runs the HTTP listener until the context ends.
func (t *httpTransport) Start(ctx context.Context) error {
	t.runCtx, t.runCancel = context.WithCancel(ctx)
	defer t.runCancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp/messages", t.handleMessages)
	mux.HandleFunc("/mcp/events", t.handleEvents)
	mux.HandleFunc("/mcp/health", t.handleHealth)

	httpServer := &http.Server{
		Addr:              t.addr,
		Handler:           mux,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	log.Printf("serving MCP over HTTP on %s", t.addr)

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// session finds or creates the session for one request, evicting idle ones.
func (t *httpTransport) session(id string) *httpSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for staleID, stale := range t.sessions {
		if now.Sub(stale.lastUsed) > sessionIdleTimeout {
			_ = stale.conn.Close()
			delete(t.sessions, staleID)
		}
	}

	if id != "" {
		if session, ok := t.sessions[id]; ok {
			session.lastUsed = now
			return session
		}
	}

	conn := &httpConn{
		sessionID: fmt.Sprintf("session-%d-%d", time.Now().UnixNano(), sessionCounter.Add(1)),
		incoming:  make(chan jsonrpc.Message, 10),
		outgoing:  make(chan jsonrpc.Message, 10),
		closed:    make(chan struct{}),
	}
	session := &httpSession{id: conn.sessionID, conn: conn, lastUsed: time.Now()}
	t.sessions[session.id] = session
	return session
}

// ensureRunning starts the MCP server loop for this session exactly once.
func (t *httpTransport) ensureRunning(session *httpSession) {
	session.started.Do(func() {
		go func() {
			_ = t.server.Run(t.runCtx, &connTransport{conn: session.conn})
		}()
	})
}

// handleMessages handles POST /mcp/messages for JSON-RPC requests.
func (t *httpTransport) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := t.session(r.Header.Get(sessionHeader))
	w.Header().Set(sessionHeader, session.id)
	t.ensureRunning(session)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("read request: %v", err), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var msg jsonrpc.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON-RPC message: %v", err), http.StatusBadRequest)
		return
	}

	select {
	case session.conn.incoming <- msg:
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	// Notifications get no reply; requests block for one.
	if request, ok := msg.(*jsonrpc.Request); ok && request.ID == (jsonrpc.ID{}) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	select {
	case reply := <-session.conn.outgoing:
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(reply); err != nil {
			log.Printf("encode MCP reply: %v", err)
		}
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
	}
}

// handleEvents handles GET /mcp/events as a Server-Sent Events stream.
func (t *httpTransport) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := t.session(r.URL.Query().Get("session"))
	t.ensureRunning(session)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(sessionHeader, session.id)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-session.conn.closed:
			return
		case msg := <-session.conn.outgoing:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("marshal SSE message: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// handleHealth handles GET /mcp/health.
func (t *httpTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Read implements mcp.Connection.
func (c *httpConn) Read(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg := <-c.incoming:
		return msg, nil
	case <-c.closed:
		return nil, fmt.Errorf("connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write implements mcp.Connection.
func (c *httpConn) Write(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case c.outgoing <- msg:
		return nil
	case <-c.closed:
		return fmt.Errorf("connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements mcp.Connection.
func (c *httpConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// SessionID implements mcp.Connection.
func (c *httpConn) SessionID() string {
	return c.sessionID
}

// connTransport hands a pre-built connection to Server.Run.
type connTransport struct {
	conn mcp.Connection
}

func (t *connTransport) Connect(context.Context) (mcp.Connection, error) {
	return t.conn, nil
}
