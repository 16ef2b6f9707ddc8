package bridge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LocalToolPrefix is prepended to every companion tool name to form its
// local name in the host catalog. Remote names are unique within the
// companion catalog, so prefixing keeps local names collision free.
const LocalToolPrefix = "companion_"

// Provenance metadata keys attached to every proxy registration.
const (
	OriginMetaKey     = "workbench/origin"
	RemoteNameMetaKey = "workbench/remote-name"
	OriginCompanion   = "companion"
)

// LocalToolName derives the host catalog name for a companion tool.
func LocalToolName(remoteName string) string {
	return LocalToolPrefix + remoteName
}

// fingerprintFields is the stable serialization input: every descriptor
// field that affects proxy behavior, nothing else.
type fingerprintFields struct {
	Name         string               `json:"name"`
	Title        string               `json:"title,omitempty"`
	Description  string               `json:"description,omitempty"`
	InputSchema  json.RawMessage      `json:"inputSchema,omitempty"`
	OutputSchema json.RawMessage      `json:"outputSchema,omitempty"`
	Annotations  *mcp.ToolAnnotations `json:"annotations,omitempty"`
	Meta         mcp.Meta             `json:"meta,omitempty"`
}

// Fingerprint produces a stable digest of a descriptor's behavior-affecting
// fields. Equal fingerprints mean a registration needs no change. Local
// serialization failures degrade to a best-effort digest rather than failing
// the sync.
func Fingerprint(tool *mcp.Tool) string {
	if tool == nil {
		return ""
	}
	fields := fingerprintFields{
		Name:        tool.Name,
		Title:       tool.Title,
		Description: tool.Description,
		Annotations: tool.Annotations,
		Meta:        tool.Meta,
	}
	fields.InputSchema = marshalLenient(tool.InputSchema)
	fields.OutputSchema = marshalLenient(tool.OutputSchema)

	serialized, err := json.Marshal(fields)
	if err != nil {
		serialized = []byte(tool.Name + "\x00" + tool.Description)
	}
	digest := sha256.Sum256(serialized)
	return hex.EncodeToString(digest[:])
}

// marshalLenient serializes a value, treating failure as absence.
func marshalLenient(value any) json.RawMessage {
	if value == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return data
}

// readOnlyInspectionPrefixes lists remote-name shapes treated as safe
// inspection tools when the descriptor declares no read-only annotation.
// This is a conservative safety default, not a correctness guarantee.
var readOnlyInspectionPrefixes = []string{
	"get_", "list_", "read_", "find_", "search_", "describe_", "inspect_", "status",
}

// inferAnnotations returns the annotations to register a proxy under. A
// declared annotation wins; otherwise the tool defaults to mutating unless
// its remote name matches the inspection allow-list.
func inferAnnotations(tool *mcp.Tool) *mcp.ToolAnnotations {
	if tool.Annotations != nil {
		clone := *tool.Annotations
		return &clone
	}
	annotations := &mcp.ToolAnnotations{Title: tool.Title}
	name := strings.ToLower(tool.Name)
	for _, prefix := range readOnlyInspectionPrefixes {
		if strings.HasPrefix(name, prefix) {
			annotations.ReadOnlyHint = true
			break
		}
	}
	return annotations
}
