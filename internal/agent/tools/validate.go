package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaDoc is a minimal decode of the ArgsSchema JSON document, used only to
// walk declared defaults before validation; structural and type/enum
// validation itself is delegated entirely to the compiled jsonschema.Schema.
type schemaDoc struct {
	Type                 string                `json:"type"`
	Properties           map[string]*schemaDoc `json:"properties"`
	Default              any                   `json:"default"`
	AdditionalProperties *bool                 `json:"additionalProperties"`
}

// ValidateAndDefault applies schema-declared defaults to missing keys, then
// validates the result against the compiled schema. It returns the
// (possibly defaulted) args on success, or the original args plus a
// non-empty issue list on failure.
func ValidateAndDefault(schema *jsonschema.Schema, rawSchema json.RawMessage, args map[string]any) (map[string]any, []FieldIssue, error) {
	if args == nil {
		args = map[string]any{}
	}
	merged := make(map[string]any, len(args))
	for k, v := range args {
		merged[k] = v
	}
	var doc schemaDoc
	if len(rawSchema) > 0 {
		if err := json.Unmarshal(rawSchema, &doc); err == nil {
			applyDefaults(&doc, merged)
		}
	}
	if schema == nil {
		return merged, nil, nil
	}
	if err := schema.Validate(merged); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return args, flattenIssues(ve), nil
		}
		return args, []FieldIssue{{Field: "", Constraint: "invalid"}}, fmt.Errorf("tools: validate: %w", err)
	}
	return merged, nil, nil
}

func applyDefaults(doc *schemaDoc, args map[string]any) {
	if doc == nil {
		return
	}
	for field, sub := range doc.Properties {
		if sub == nil {
			continue
		}
		if _, present := args[field]; !present && sub.Default != nil {
			args[field] = sub.Default
		}
		if nested, ok := args[field].(map[string]any); ok {
			applyDefaults(sub, nested)
		}
	}
}

// flattenIssues walks a jsonschema ValidationError tree into a flat,
// field-addressable issue list suitable for E_BAD_ARGS / retry hints.
func flattenIssues(ve *jsonschema.ValidationError) []FieldIssue {
	var out []FieldIssue
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if e == nil {
			return
		}
		field := instanceLocationToField(e.InstanceLocation)
		out = append(out, FieldIssue{Field: field, Constraint: e.Error()})
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return out
}

func instanceLocationToField(loc []string) string {
	if len(loc) == 0 {
		return ""
	}
	out := loc[0]
	for _, seg := range loc[1:] {
		out += "." + seg
	}
	return out
}

// RejectUnknownKeys reports the subset of args keys that are not declared in
// the schema's top-level properties when additionalProperties is false (or
// unset, since the orchestration core treats every tool schema as closed by
// default regardless of what the document says).
func RejectUnknownKeys(rawSchema json.RawMessage, args map[string]any) []FieldIssue {
	var doc schemaDoc
	if len(rawSchema) == 0 {
		return nil
	}
	if err := json.Unmarshal(rawSchema, &doc); err != nil || doc.Properties == nil {
		return nil
	}
	if doc.AdditionalProperties != nil && *doc.AdditionalProperties {
		return nil
	}
	var issues []FieldIssue
	for key := range args {
		if _, ok := doc.Properties[key]; !ok {
			issues = append(issues, FieldIssue{Field: key, Constraint: "unknown_field"})
		}
	}
	return issues
}
