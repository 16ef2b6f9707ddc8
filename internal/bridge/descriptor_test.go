package bridge

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestLocalToolNameInjective(t *testing.T) {
	names := []string{"build", "build_fast", "Build", "test", "test2"}
	seen := make(map[string]string, len(names))
	for _, remote := range names {
		local := LocalToolName(remote)
		if prior, dup := seen[local]; dup {
			t.Fatalf("local name %q collides for remotes %q and %q", local, prior, remote)
		}
		seen[local] = remote
	}
}

func TestFingerprintStable(t *testing.T) {
	tool := func() *mcp.Tool {
		return &mcp.Tool{
			Name:        "build",
			Description: "builds the project",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"target": {Type: "string"},
				},
			},
		}
	}

	if Fingerprint(tool()) != Fingerprint(tool()) {
		t.Fatal("expected identical descriptors to fingerprint equally")
	}
}

func TestFingerprintChangesWithBehavior(t *testing.T) {
	base := &mcp.Tool{Name: "build", Description: "builds the project"}

	changedDescription := &mcp.Tool{Name: "build", Description: "builds the project faster"}
	if Fingerprint(base) == Fingerprint(changedDescription) {
		t.Fatal("expected description change to change the fingerprint")
	}

	changedSchema := &mcp.Tool{
		Name:        "build",
		Description: "builds the project",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}
	if Fingerprint(base) == Fingerprint(changedSchema) {
		t.Fatal("expected schema change to change the fingerprint")
	}

	changedAnnotations := &mcp.Tool{
		Name:        "build",
		Description: "builds the project",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}
	if Fingerprint(base) == Fingerprint(changedAnnotations) {
		t.Fatal("expected annotation change to change the fingerprint")
	}
}

func TestInferAnnotationsDeclaredWins(t *testing.T) {
	tool := &mcp.Tool{
		Name:        "wipe_cache",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}
	if !inferAnnotations(tool).ReadOnlyHint {
		t.Fatal("expected declared read-only hint to be kept")
	}
}

func TestInferAnnotationsDefaultsToMutating(t *testing.T) {
	tool := &mcp.Tool{Name: "apply_patch"}
	if inferAnnotations(tool).ReadOnlyHint {
		t.Fatal("expected undeclared non-inspection tool to default to mutating")
	}
}

func TestInferAnnotationsInspectionAllowList(t *testing.T) {
	for _, name := range []string{"get_config", "list_modules", "status", "describe_target"} {
		tool := &mcp.Tool{Name: name}
		if !inferAnnotations(tool).ReadOnlyHint {
			t.Fatalf("expected %q to infer read-only", name)
		}
	}
}
