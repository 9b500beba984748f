package chat

import (
	"reflect"
	"testing"
)

func TestSchemaRequiredAcceptsBothSliceForms(t *testing.T) {
	typed := ToolSpec{InputSchema: map[string]any{"required": []string{"to", "body"}}}
	if got := typed.SchemaRequired(); !reflect.DeepEqual(got, []string{"to", "body"}) {
		t.Fatalf("typed slice: got %v", got)
	}

	decoded := ToolSpec{InputSchema: map[string]any{"required": []any{"query", 7, "url"}}}
	if got := decoded.SchemaRequired(); !reflect.DeepEqual(got, []string{"query", "url"}) {
		t.Fatalf("decoded slice: got %v", got)
	}

	empty := ToolSpec{InputSchema: map[string]any{}}
	if got := empty.SchemaRequired(); got != nil {
		t.Fatalf("missing required: got %v", got)
	}
}

func TestToolResultBindsCall(t *testing.T) {
	call := ToolCall{ID: "call-3", Name: "browse_website"}
	msg := ToolResult(call, "page text")
	if msg.Role != RoleTool || msg.ToolCallID != "call-3" || msg.ToolName != "browse_website" || msg.Content != "page text" {
		t.Fatalf("unexpected tool message: %+v", msg)
	}
}
