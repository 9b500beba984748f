// Package chat defines the provider-neutral conversation types shared by the
// agent loop and the model backends. Each backend translates these into its
// own wire format.
package chat

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model's request to run one tool with decoded arguments.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message is one entry in a conversation transcript. Assistant messages may
// carry tool calls; tool messages carry the result for one call, identified
// by ToolCallID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

// Reply is what a model returns for one turn: text, tool calls, or both.
type Reply struct {
	Content   string
	ToolCalls []ToolCall
}

func (r Reply) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AssistantReply records a model reply in the transcript, tool calls included.
func AssistantReply(r Reply) Message {
	return Message{Role: RoleAssistant, Content: r.Content, ToolCalls: r.ToolCalls}
}

// ToolResult builds the tool message answering the given call.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, ToolName: call.Name}
}
