package chat

// ToolSpec describes a tool to the model. InputSchema is a JSON Schema
// object (type, properties, required) kept as a plain map so each backend
// can translate it into its own schema type.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// SchemaProperties returns the schema's properties map, or nil.
func (s ToolSpec) SchemaProperties() map[string]any {
	props, _ := s.InputSchema["properties"].(map[string]any)
	return props
}

// SchemaRequired returns the schema's required field names. JSON decoding
// yields []any, hand-written schemas use []string; both are accepted.
func (s ToolSpec) SchemaRequired() []string {
	switch req := s.InputSchema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if name, ok := v.(string); ok {
				out = append(out, name)
			}
		}
		return out
	}
	return nil
}
