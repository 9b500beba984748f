package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/jwhitelaw/errand/pkg/chat"
)

// ---------------------------- Ollama -----------------------------------------

type OllamaLLM struct {
	Client *ollama.Client
	Model  string
}

func NewOllamaLLM(model string) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
	}

	c := ollama.NewClient(u, httpClient)
	return &OllamaLLM{Client: c, Model: model}, nil
}

func (o *OllamaLLM) Chat(ctx context.Context, msgs []chat.Message, tools []chat.ToolSpec) (chat.Reply, error) {
	stream := false
	req := &ollama.ChatRequest{
		Model:    o.Model,
		Messages: ollamaMessages(msgs),
		Tools:    ollamaTools(tools),
		Stream:   &stream,
		Options:  map[string]any{"temperature": 0},
	}

	var last ollama.ChatResponse
	if err := o.Client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		last = resp
		return nil
	}); err != nil {
		return chat.Reply{}, fmt.Errorf("ollama chat: %w", err)
	}

	reply := chat.Reply{Content: last.Message.Content}
	for i, tc := range last.Message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, chat.ToolCall{
			// Ollama does not issue call IDs; synthesize ordinals.
			ID:        fmt.Sprintf("call-%d", i+1),
			Name:      tc.Function.Name,
			Arguments: map[string]any(tc.Function.Arguments),
		})
	}
	return reply, nil
}

func ollamaMessages(msgs []chat.Message) []ollama.Message {
	out := make([]ollama.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			out = append(out, ollama.Message{Role: "system", Content: m.Content})
		case chat.RoleUser:
			out = append(out, ollama.Message{Role: "user", Content: m.Content})
		case chat.RoleAssistant:
			om := ollama.Message{Role: "assistant", Content: m.Content}
			for _, call := range m.ToolCalls {
				om.ToolCalls = append(om.ToolCalls, ollama.ToolCall{
					Function: ollama.ToolCallFunction{
						Name:      call.Name,
						Arguments: ollama.ToolCallFunctionArguments(call.Arguments),
					},
				})
			}
			out = append(out, om)
		case chat.RoleTool:
			out = append(out, ollama.Message{Role: "tool", Content: m.Content, ToolName: m.ToolName})
		}
	}
	return out
}

func ollamaTools(specs []chat.ToolSpec) ollama.Tools {
	tools := make(ollama.Tools, 0, len(specs))
	for _, spec := range specs {
		var t ollama.Tool
		t.Type = "function"
		t.Function.Name = spec.Name
		t.Function.Description = spec.Description
		t.Function.Parameters.Type = "object"
		t.Function.Parameters.Required = spec.SchemaRequired()
		props := spec.SchemaProperties()
		t.Function.Parameters.Properties = make(map[string]ollama.ToolProperty, len(props))
		for name, value := range props {
			raw, ok := value.(map[string]any)
			if !ok {
				continue
			}
			prop := ollama.ToolProperty{}
			if typ, ok := raw["type"].(string); ok {
				prop.Type = ollama.PropertyType{typ}
			}
			if desc, ok := raw["description"].(string); ok {
				prop.Description = desc
			}
			if enum, ok := raw["enum"].([]any); ok {
				prop.Enum = enum
			}
			t.Function.Parameters.Properties[name] = prop
		}
		tools = append(tools, t)
	}
	return tools
}
