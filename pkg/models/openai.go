package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/jwhitelaw/errand/pkg/chat"
)

type OpenAILLM struct {
	Client *openai.Client
	Model  string
}

func NewOpenAILLM(model string) *OpenAILLM {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_KEY") // fallback
	}
	client := openai.NewClient(apiKey)
	return &OpenAILLM{Client: client, Model: model}
}

func (o *OpenAILLM) Chat(ctx context.Context, msgs []chat.Message, tools []chat.ToolSpec) (chat.Reply, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.Model,
		Messages: openaiMessages(msgs),
	}
	for _, spec := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.InputSchema,
			},
		})
	}

	resp, err := o.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return chat.Reply{}, err
	}
	if len(resp.Choices) == 0 {
		return chat.Reply{}, errors.New("no response from OpenAI")
	}

	msg := resp.Choices[0].Message
	reply := chat.Reply{Content: msg.Content}
	for i, tc := range msg.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call-%d", i+1)
		}
		reply.ToolCalls = append(reply.ToolCalls, chat.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: decodeArguments(tc.Function.Arguments),
		})
	}
	return reply, nil
}

func openaiMessages(msgs []chat.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})
		case chat.RoleUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case chat.RoleAssistant:
			oc := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
			for _, call := range m.ToolCalls {
				args, _ := json.Marshal(call.Arguments)
				oc.ToolCalls = append(oc.ToolCalls, openai.ToolCall{
					ID:       call.ID,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: call.Name, Arguments: string(args)},
				})
			}
			out = append(out, oc)
		case chat.RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				Name:       m.ToolName,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out
}

// decodeArguments parses the JSON argument payload the API returns. Invalid
// payloads are preserved under "input" rather than dropped.
func decodeArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"input": raw}
	}
	return args
}
