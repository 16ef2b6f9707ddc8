package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition is what the registry hands the host catalog for one proxy
// registration.
type ToolDefinition struct {
	Title       string
	Description string
	InputSchema *jsonschema.Schema
	Annotations *mcp.ToolAnnotations
	Meta        mcp.Meta
}

// Registration is the host catalog's opaque handle for one registered tool.
// Remove releases it; the handle is owned by the catalog implementation.
type Registration interface {
	Remove()
}

// Catalog is the host's own tool catalog, seen from the registry.
type Catalog interface {
	Register(name string, def ToolDefinition, handler mcp.ToolHandler) (Registration, error)
}

// Invoker forwards a proxy invocation to the companion by remote name.
type Invoker func(ctx context.Context, remoteName string, args map[string]any) (*mcp.CallToolResult, error)

// SyncResult counts the effect of one catalog reconciliation.
type SyncResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// proxyEntry tracks one live registration keyed by remote name.
type proxyEntry struct {
	localName    string
	fingerprint  string
	registration Registration
}

// ProxyRegistry owns the set of companion proxy registrations in the host
// catalog. A registration exists iff its remote name existed in the last
// completed sync.
type ProxyRegistry struct {
	catalog Catalog

	mu      sync.Mutex
	entries map[string]*proxyEntry
}

// NewProxyRegistry builds an empty registry over the given host catalog.
func NewProxyRegistry(catalog Catalog) *ProxyRegistry {
	return &ProxyRegistry{
		catalog: catalog,
		entries: make(map[string]*proxyEntry),
	}
}

// catalogDiff is the pure reconciliation plan for one sync: which remote
// tools to add, which to re-register, which remote names to drop, and the
// fingerprint map describing the post-sync state.
type catalogDiff struct {
	toAdd    []*mcp.Tool
	toUpdate []*mcp.Tool
	toRemove []string
	next     map[string]string
}

// diffCatalog computes the reconciliation plan from the previous fingerprint
// map and a fresh companion listing. Duplicate remote names in the listing
// resolve last-one-wins.
func diffCatalog(old map[string]string, tools []*mcp.Tool) catalogDiff {
	latest := make(map[string]*mcp.Tool, len(tools))
	order := make([]string, 0, len(tools))
	for _, tool := range tools {
		if tool == nil || tool.Name == "" {
			continue
		}
		if _, seen := latest[tool.Name]; !seen {
			order = append(order, tool.Name)
		}
		latest[tool.Name] = tool
	}

	diff := catalogDiff{next: make(map[string]string, len(latest))}
	for _, name := range order {
		tool := latest[name]
		fingerprint := Fingerprint(tool)
		diff.next[name] = fingerprint
		previous, exists := old[name]
		switch {
		case !exists:
			diff.toAdd = append(diff.toAdd, tool)
		case previous != fingerprint:
			diff.toUpdate = append(diff.toUpdate, tool)
		}
	}
	for name := range old {
		if _, still := diff.next[name]; !still {
			diff.toRemove = append(diff.toRemove, name)
		}
	}
	sort.Strings(diff.toRemove)
	return diff
}

// Sync reconciles the registry against a fresh companion catalog.
// Fingerprint-equal registrations are untouched; changed ones are replaced;
// vanished remote names are unregistered. The returned counts describe
// exactly what happened.
func (r *ProxyRegistry) Sync(ctx context.Context, tools []*mcp.Tool, invoker Invoker) (SyncResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := make(map[string]string, len(r.entries))
	for name, entry := range r.entries {
		old[name] = entry.fingerprint
	}
	diff := diffCatalog(old, tools)

	for _, tool := range diff.toUpdate {
		if entry, ok := r.entries[tool.Name]; ok {
			entry.registration.Remove()
			delete(r.entries, tool.Name)
		}
		if err := r.register(tool, diff.next[tool.Name], invoker); err != nil {
			return SyncResult{}, err
		}
	}
	for _, tool := range diff.toAdd {
		if err := r.register(tool, diff.next[tool.Name], invoker); err != nil {
			return SyncResult{}, err
		}
	}
	for _, name := range diff.toRemove {
		if entry, ok := r.entries[name]; ok {
			entry.registration.Remove()
			delete(r.entries, name)
		}
	}

	return SyncResult{
		Added:   len(diff.toAdd),
		Updated: len(diff.toUpdate),
		Removed: len(diff.toRemove),
		Total:   len(diff.next),
	}, nil
}

// register translates the tool schema, builds the forwarding handler, and
// registers the proxy under its local name.
func (r *ProxyRegistry) register(tool *mcp.Tool, fingerprint string, invoker Invoker) error {
	localName := LocalToolName(tool.Name)
	schema, _ := tool.InputSchema.(*jsonschema.Schema)
	validator := TranslateSchema(schema)

	meta := mcp.Meta{
		OriginMetaKey:     OriginCompanion,
		RemoteNameMetaKey: tool.Name,
	}
	def := ToolDefinition{
		Title:       tool.Title,
		Description: tool.Description,
		InputSchema: validator.Schema(),
		Annotations: inferAnnotations(tool),
		Meta:        meta,
	}

	remoteName := tool.Name
	handler := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArguments(req)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", localName, err)
		}
		if err := validator.Validate(normalizeArguments(args)); err != nil {
			return nil, fmt.Errorf("tool %s: invalid arguments: %w", localName, err)
		}
		return invoker(ctx, remoteName, args)
	}

	registration, err := r.catalog.Register(localName, def, handler)
	if err != nil {
		return fmt.Errorf("register proxy tool %s: %w", localName, err)
	}
	r.entries[tool.Name] = &proxyEntry{
		localName:    localName,
		fingerprint:  fingerprint,
		registration: registration,
	}
	return nil
}

// Clear unregisters everything unconditionally. Used on disconnect and on
// unrecoverable sync errors.
func (r *ProxyRegistry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cleared := len(r.entries)
	for name, entry := range r.entries {
		entry.registration.Remove()
		delete(r.entries, name)
	}
	return cleared
}

// RegisteredCount returns the number of live proxy registrations.
func (r *ProxyRegistry) RegisteredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RegisteredToolNames returns the local proxy names in sorted order.
func (r *ProxyRegistry) RegisteredToolNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		names = append(names, entry.localName)
	}
	sort.Strings(names)
	return names
}

// decodeArguments extracts the call arguments from a raw tool request.
func decodeArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil, nil
	}
	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	return args, nil
}

// normalizeArguments widens a nil argument map to an empty object so object
// validators can enforce required fields uniformly.
func normalizeArguments(args map[string]any) any {
	if args == nil {
		return map[string]any{}
	}
	return args
}
