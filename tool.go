package errand

import (
	"context"

	"github.com/jwhitelaw/errand/pkg/chat"
)

// ToolRequest captures an invocation request for a tool.
type ToolRequest struct {
	SessionID string
	Arguments map[string]any
}

// ToolResponse is the structured response returned by a tool. Tools report
// external-API failures inside Content as "Error: ..." strings so the model
// can read them and recover; the error return is reserved for invocations
// that could not be attempted at all.
type ToolResponse struct {
	Content string
}

// Tool exposes structured metadata and an invocation handler.
type Tool interface {
	Spec() chat.ToolSpec
	Invoke(ctx context.Context, req ToolRequest) (ToolResponse, error)
}
