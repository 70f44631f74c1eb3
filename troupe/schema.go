package troupe

import (
	"fmt"
	"sort"
	"strings"
)

// ParamSpec declares a single tool parameter.
//
// Type uses the declaring tool's semantic vocabulary ("integer", "float",
// "boolean", "array", anything else); JSONSchema normalizes it to the
// JSON-Schema type set. Items carries the element schema for array
// parameters. Enum restricts string parameters to a fixed value set.
type ParamSpec struct {
	Type        string
	Description string
	Required    bool
	Enum        []string
	Items       *ParamSpec
}

// ToolSpec is the machine- and human-readable definition of a tool:
// a unique name, a description, and a parameter table.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]ParamSpec
}

// NormalizeType maps a semantic parameter type to its JSON-Schema type.
// Adapters that build provider-native schemas instead of going through
// JSONSchema must apply the same mapping.
func NormalizeType(t string) string {
	switch strings.ToLower(t) {
	case "integer", "int", "float", "number", "double":
		return "number"
	case "boolean", "bool":
		return "boolean"
	case "array", "sequence", "list":
		return "array"
	default:
		return "string"
	}
}

// JSONSchema renders the parameter table as a JSON-Schema object
// ({"type":"object","properties":...,"required":...}) suitable for a
// chat-completion tools array.
func (s ToolSpec) JSONSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(s.Parameters))
	required := make([]string, 0)

	for _, name := range s.paramNames() {
		p := s.Parameters[name]
		properties[name] = p.schema()
		if p.Required {
			required = append(required, name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (p ParamSpec) schema() map[string]interface{} {
	schema := map[string]interface{}{
		"type": NormalizeType(p.Type),
	}
	if p.Description != "" {
		schema["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		schema["enum"] = p.Enum
	}
	if NormalizeType(p.Type) == "array" && p.Items != nil {
		schema["items"] = p.Items.schema()
	}
	return schema
}

// Definition renders a human-readable text block describing the tool,
// used when a tool catalog is appended to a system prompt.
func (s ToolSpec) Definition() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tool: %s\n", s.Name)
	fmt.Fprintf(&b, "Description: %s\n", s.Description)
	if len(s.Parameters) == 0 {
		b.WriteString("Parameters: none\n")
		return b.String()
	}
	b.WriteString("Parameters:\n")
	for _, name := range s.paramNames() {
		p := s.Parameters[name]
		requirement := "optional"
		if p.Required {
			requirement = "required"
		}
		fmt.Fprintf(&b, "  - %s (%s, %s): %s\n", name, NormalizeType(p.Type), requirement, p.Description)
	}
	return b.String()
}

// paramNames returns parameter names in deterministic order.
func (s ToolSpec) paramNames() []string {
	names := make([]string, 0, len(s.Parameters))
	for name := range s.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
