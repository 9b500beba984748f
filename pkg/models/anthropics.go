package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jwhitelaw/errand/pkg/chat"
)

// AnthropicLLM implements the Agent interface using Anthropic's Messages API.
type AnthropicLLM struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int
}

// NewAnthropicLLM constructs a client. It reads ANTHROPIC_API_KEY from the env.
func NewAnthropicLLM(model string) *AnthropicLLM {
	key := os.Getenv("ANTHROPIC_API_KEY")
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(key),
	)
	return &AnthropicLLM{
		Client:    &cl,
		Model:     model, // e.g. "claude-3-5-sonnet-latest"
		MaxTokens: 1024,
	}
}

func (a *AnthropicLLM) Chat(ctx context.Context, msgs []chat.Message, tools []chat.ToolSpec) (chat.Reply, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages:  anthropicMessages(msgs),
	}
	if sys := systemText(msgs); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	for _, spec := range tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        spec.Name,
				Description: anthropic.String(spec.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: spec.SchemaProperties(),
					Required:   spec.SchemaRequired(),
				},
			},
		})
	}

	msg, err := a.Client.Messages.New(ctx, params)
	if err != nil {
		return chat.Reply{}, err
	}
	if len(msg.Content) == 0 {
		return chat.Reply{}, errors.New("anthropic: empty response")
	}

	var reply chat.Reply
	var text strings.Builder
	calls := 0
	for _, cb := range msg.Content {
		switch block := cb.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(block.Text)
		case anthropic.ToolUseBlock:
			calls++
			id := block.ID
			if id == "" {
				id = fmt.Sprintf("call-%d", calls)
			}
			args := map[string]any{}
			if len(block.Input) > 0 {
				_ = json.Unmarshal(block.Input, &args)
			}
			reply.ToolCalls = append(reply.ToolCalls, chat.ToolCall{ID: id, Name: block.Name, Arguments: args})
		}
	}
	reply.Content = text.String()
	return reply, nil
}

func anthropicMessages(msgs []chat.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case chat.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Arguments, call.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case chat.RoleTool:
			isError := strings.HasPrefix(m.Content, "Error:")
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolCallID, m.Content, isError)))
		}
	}
	return out
}
