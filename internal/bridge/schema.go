package bridge

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

// validatorKind enumerates the shapes a translated validator can take. The
// accept-everything fallback is an explicit kind, not an absent validator.
type validatorKind int

const (
	kindAny validatorKind = iota
	kindScalar
	kindEnum
	kindArray
	kindObject
)

// maxTranslateDepth caps schema recursion so a hostile document cannot
// recurse the translator to death.
const maxTranslateDepth = 64

// Validator checks one already-decoded JSON value against the shape a
// companion schema declared. Validators are built by TranslateSchema and are
// deliberately permissive: anything the translation did not understand is
// accepted.
type Validator struct {
	kind        validatorKind
	description string

	// kindScalar: one of "string", "integer", "number", "boolean".
	scalarType string

	// kindEnum: accepted literals, in declaration order.
	literals    []any
	stringsOnly bool

	// kindArray
	elem *Validator

	// kindObject
	fields   map[string]*Validator
	required []string
}

// TranslateSchema converts one companion schema document into a runtime
// validator. It never fails: a nil schema, an unsupported composition
// keyword, or any shape the translator does not recognize degrades to an
// always-accepting validator. The companion is an externally versioned
// source, so rejecting what we do not understand would break on every
// provider addition.
func TranslateSchema(schema *jsonschema.Schema) *Validator {
	return translate(schema, 0)
}

func translate(schema *jsonschema.Schema, depth int) *Validator {
	if schema == nil || depth > maxTranslateDepth {
		return anyValidator("")
	}

	if len(schema.Enum) > 0 {
		return enumValidator(schema)
	}

	// Composition keywords degrade this node to "any"; surrounding object
	// and array structure is still translated by the caller.
	if schema.Ref != "" || len(schema.OneOf) > 0 || len(schema.AnyOf) > 0 ||
		len(schema.AllOf) > 0 || schema.Not != nil {
		return anyValidator(schema.Description)
	}

	switch schema.Type {
	case "string", "integer", "number", "boolean":
		return &Validator{kind: kindScalar, scalarType: schema.Type, description: schema.Description}
	case "array":
		return &Validator{
			kind:        kindArray,
			elem:        translate(schema.Items, depth+1),
			description: schema.Description,
		}
	case "object":
		return objectValidator(schema, depth)
	case "":
		// Untyped with a properties map still translates as an object.
		if len(schema.Properties) > 0 {
			return objectValidator(schema, depth)
		}
		return anyValidator(schema.Description)
	default:
		return anyValidator(schema.Description)
	}
}

func anyValidator(description string) *Validator {
	return &Validator{kind: kindAny, description: description}
}

func enumValidator(schema *jsonschema.Schema) *Validator {
	stringsOnly := true
	literals := make([]any, 0, len(schema.Enum))
	for _, literal := range schema.Enum {
		if _, ok := literal.(string); !ok {
			stringsOnly = false
		}
		literals = append(literals, literal)
	}
	return &Validator{
		kind:        kindEnum,
		literals:    literals,
		stringsOnly: stringsOnly,
		description: schema.Description,
	}
}

func objectValidator(schema *jsonschema.Schema, depth int) *Validator {
	fields := make(map[string]*Validator, len(schema.Properties))
	for name, property := range schema.Properties {
		fields[name] = translate(property, depth+1)
	}
	required := make([]string, 0, len(schema.Required))
	for _, name := range schema.Required {
		// Only names that exist in properties are enforceable.
		if _, ok := fields[name]; ok {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return &Validator{
		kind:        kindObject,
		fields:      fields,
		required:    required,
		description: schema.Description,
	}
}

// Description returns the non-functional description carried over from the
// source schema, if any.
func (v *Validator) Description() string {
	if v == nil {
		return ""
	}
	return v.description
}

// Validate checks a decoded JSON value (map[string]any, []any, string,
// float64, bool, nil) against the validator. A nil validator accepts
// everything.
func (v *Validator) Validate(value any) error {
	if v == nil {
		return nil
	}
	switch v.kind {
	case kindAny:
		return nil
	case kindScalar:
		return validateScalar(v.scalarType, value)
	case kindEnum:
		for _, literal := range v.literals {
			if literalEqual(literal, value) {
				return nil
			}
		}
		return fmt.Errorf("value %v is not one of the allowed literals", value)
	case kindArray:
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("expected an array, got %T", value)
		}
		for i, item := range items {
			if err := v.elem.Validate(item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	case kindObject:
		object, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("expected an object, got %T", value)
		}
		for _, name := range v.required {
			if _, present := object[name]; !present {
				return fmt.Errorf("missing required field %q", name)
			}
		}
		// Unrecognized extra fields pass through: the companion schema is
		// not guaranteed exhaustive or stable.
		for name, field := range object {
			validator, known := v.fields[name]
			if !known {
				continue
			}
			if err := validator.Validate(field); err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
		}
		return nil
	default:
		return nil
	}
}

// Schema renders the sanitized schema the validator actually enforces, for
// advertisement in the host catalog. Degraded nodes render as an empty
// (accept-everything) schema.
func (v *Validator) Schema() *jsonschema.Schema {
	if v == nil {
		return &jsonschema.Schema{}
	}
	out := &jsonschema.Schema{Description: v.description}
	switch v.kind {
	case kindScalar:
		out.Type = v.scalarType
	case kindEnum:
		out.Enum = append([]any(nil), v.literals...)
	case kindArray:
		out.Type = "array"
		out.Items = v.elem.Schema()
	case kindObject:
		out.Type = "object"
		out.Properties = make(map[string]*jsonschema.Schema, len(v.fields))
		for name, field := range v.fields {
			out.Properties[name] = field.Schema()
		}
		out.Required = append([]string(nil), v.required...)
	}
	return out
}

func validateScalar(scalarType string, value any) error {
	switch scalarType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected a string, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected a boolean, got %T", value)
		}
	case "number":
		if _, ok := asFloat(value); !ok {
			return fmt.Errorf("expected a number, got %T", value)
		}
	case "integer":
		number, ok := asFloat(value)
		if !ok {
			return fmt.Errorf("expected an integer, got %T", value)
		}
		if number != math.Trunc(number) {
			return fmt.Errorf("expected a whole number, got %v", number)
		}
	}
	return nil
}

// asFloat widens every numeric representation JSON decoding can produce.
func asFloat(value any) (float64, bool) {
	switch number := value.(type) {
	case float64:
		return number, true
	case float32:
		return float64(number), true
	case int:
		return float64(number), true
	case int32:
		return float64(number), true
	case int64:
		return float64(number), true
	case interface{ Float64() (float64, error) }:
		parsed, err := number.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// literalEqual compares an enum literal against a decoded value, widening
// numbers so 1 and 1.0 compare equal regardless of decoding path.
func literalEqual(literal, value any) bool {
	if literal == nil || value == nil {
		return literal == nil && value == nil
	}
	if ls, ok := literal.(string); ok {
		vs, ok := value.(string)
		return ok && ls == vs
	}
	if lb, ok := literal.(bool); ok {
		vb, ok := value.(bool)
		return ok && lb == vb
	}
	lf, lok := asFloat(literal)
	vf, vok := asFloat(value)
	if lok && vok {
		return lf == vf
	}
	return false
}
