package bridge

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
)

func TestTranslateSchemaNilAcceptsEverything(t *testing.T) {
	validator := TranslateSchema(nil)

	for _, value := range []any{nil, "text", 42.0, true, []any{1.0}, map[string]any{"k": "v"}} {
		if err := validator.Validate(value); err != nil {
			t.Fatalf("expected any-validator to accept %v, got %v", value, err)
		}
	}
}

func TestTranslateSchemaScalars(t *testing.T) {
	tests := []struct {
		schemaType string
		accept     []any
		reject     []any
	}{
		{"string", []any{"a", ""}, []any{1.0, true, nil}},
		{"boolean", []any{true, false}, []any{"true", 0.0}},
		{"number", []any{1.5, 2.0, -3.0}, []any{"1", true}},
		{"integer", []any{1.0, -4.0, 0.0}, []any{1.5, "2", true}},
	}
	for _, tc := range tests {
		validator := TranslateSchema(&jsonschema.Schema{Type: tc.schemaType})
		for _, value := range tc.accept {
			if err := validator.Validate(value); err != nil {
				t.Fatalf("type %s: expected accept of %v, got %v", tc.schemaType, value, err)
			}
		}
		for _, value := range tc.reject {
			if err := validator.Validate(value); err == nil {
				t.Fatalf("type %s: expected rejection of %v", tc.schemaType, value)
			}
		}
	}
}

func TestTranslateSchemaMixedEnum(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{Enum: []any{"a", 1, true}})

	for _, value := range []any{"a", 1.0, true} {
		if err := validator.Validate(value); err != nil {
			t.Fatalf("expected enum to accept %v, got %v", value, err)
		}
	}
	for _, value := range []any{"b", 2.0, false, nil} {
		if err := validator.Validate(value); err == nil {
			t.Fatalf("expected enum to reject %v", value)
		}
	}
}

func TestTranslateSchemaSingleLiteralEnum(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{Enum: []any{"only"}})

	if err := validator.Validate("only"); err != nil {
		t.Fatalf("expected literal accept, got %v", err)
	}
	if err := validator.Validate("other"); err == nil {
		t.Fatal("expected literal rejection")
	}
}

func TestTranslateSchemaObjectPermissiveExtras(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"a": {Type: "string"},
		},
		Required: []string{"a"},
	})

	if err := validator.Validate(map[string]any{"a": "x"}); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
	if err := validator.Validate(map[string]any{"a": "x", "extra": 1.0}); err != nil {
		t.Fatalf("expected extra field pass-through, got %v", err)
	}
	if err := validator.Validate(map[string]any{}); err == nil {
		t.Fatal("expected rejection of missing required field")
	}
	if err := validator.Validate(map[string]any{"a": 7.0}); err == nil {
		t.Fatal("expected rejection of wrong field type")
	}
}

func TestTranslateSchemaUntypedWithProperties(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{
		Properties: map[string]*jsonschema.Schema{
			"name": {Type: "string"},
		},
	})

	if err := validator.Validate(map[string]any{"name": "x"}); err != nil {
		t.Fatalf("expected object translation for untyped schema, got %v", err)
	}
	if err := validator.Validate(map[string]any{"name": 1.0}); err == nil {
		t.Fatal("expected field validation for untyped schema with properties")
	}
}

func TestTranslateSchemaArray(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{
		Type:  "array",
		Items: &jsonschema.Schema{Type: "integer"},
	})

	if err := validator.Validate([]any{1.0, 2.0}); err != nil {
		t.Fatalf("expected array accept, got %v", err)
	}
	if err := validator.Validate([]any{1.5}); err == nil {
		t.Fatal("expected item rejection")
	}
	if err := validator.Validate("not-an-array"); err == nil {
		t.Fatal("expected non-array rejection")
	}
}

func TestTranslateSchemaArrayWithoutItemsAcceptsAnything(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{Type: "array"})

	if err := validator.Validate([]any{"a", 1.0, nil}); err != nil {
		t.Fatalf("expected items to pass without item schema, got %v", err)
	}
}

func TestTranslateSchemaCompositionDegradesToAny(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{
		OneOf: []*jsonschema.Schema{{Type: "string"}, {Type: "integer"}},
	})

	if err := validator.Validate(map[string]any{"anything": true}); err != nil {
		t.Fatalf("expected oneOf node to degrade to any, got %v", err)
	}
}

func TestTranslateSchemaCompositionInsideObjectKeepsStructure(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"loose":  {Ref: "#/defs/something"},
			"strict": {Type: "string"},
		},
		Required: []string{"strict"},
	})

	// The $ref field accepts anything, the sibling stays enforced.
	if err := validator.Validate(map[string]any{"strict": "ok", "loose": 99.0}); err != nil {
		t.Fatalf("expected surrounding structure to hold, got %v", err)
	}
	if err := validator.Validate(map[string]any{"loose": true}); err == nil {
		t.Fatal("expected missing required sibling to fail")
	}
}

func TestTranslateSchemaDeeplyNestedUnknownKeywords(t *testing.T) {
	schema := &jsonschema.Schema{Type: "object"}
	node := schema
	for range 200 {
		child := &jsonschema.Schema{
			Type:  "object",
			Not:   &jsonschema.Schema{Type: "string"},
			AnyOf: []*jsonschema.Schema{{Type: "boolean"}},
		}
		node.Properties = map[string]*jsonschema.Schema{"next": child}
		node = child
	}

	validator := TranslateSchema(schema)
	if err := validator.Validate(map[string]any{"next": map[string]any{"next": 1.0}}); err != nil {
		t.Fatalf("expected deep unknown-keyword document to validate permissively, got %v", err)
	}
}

func TestValidatorDescriptionCarriedOver(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{Type: "string", Description: "a label"})
	if validator.Description() != "a label" {
		t.Fatalf("expected description carry-over, got %q", validator.Description())
	}
}

func TestValidatorSanitizedSchema(t *testing.T) {
	validator := TranslateSchema(&jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"mode":  {Enum: []any{"fast", "slow"}},
			"count": {Type: "integer"},
			"loose": {AnyOf: []*jsonschema.Schema{{Type: "string"}}},
		},
		Required: []string{"mode"},
	})

	rendered := validator.Schema()
	if rendered.Type != "object" {
		t.Fatalf("expected object schema, got %q", rendered.Type)
	}
	if len(rendered.Required) != 1 || rendered.Required[0] != "mode" {
		t.Fatalf("expected required [mode], got %v", rendered.Required)
	}
	if len(rendered.Properties["mode"].Enum) != 2 {
		t.Fatalf("expected enum advertisement, got %v", rendered.Properties["mode"].Enum)
	}
	if rendered.Properties["loose"].Type != "" || rendered.Properties["loose"].Items != nil {
		t.Fatal("expected degraded node to render as an empty schema")
	}
}
