package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jwhitelaw/errand/pkg/chat"
)

// ---------------------------- Google Gemini ----------------------------------

type GeminiLLM struct {
	Client *genai.Client
	Model  string
}

func NewGeminiLLM(ctx context.Context, model string) (*GeminiLLM, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client, Model: model}, nil
}

func (g *GeminiLLM) Chat(ctx context.Context, msgs []chat.Message, tools []chat.ToolSpec) (chat.Reply, error) {
	model := g.Client.GenerativeModel(g.Model)
	model.SetTemperature(0)

	if sys := systemText(msgs); sys != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, spec := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  geminiSchema(spec.InputSchema),
			})
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	history, last, err := geminiContents(msgs)
	if err != nil {
		return chat.Reply{}, err
	}

	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, last...)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return chat.Reply{}, errors.New("gemini: empty response")
	}

	var reply chat.Reply
	var text strings.Builder
	calls := 0
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			calls++
			reply.ToolCalls = append(reply.ToolCalls, chat.ToolCall{
				// Gemini does not issue call IDs; synthesize ordinals.
				ID:        fmt.Sprintf("call-%d", calls),
				Name:      p.Name,
				Arguments: p.Args,
			})
		}
	}
	reply.Content = text.String()
	return reply, nil
}

// geminiContents splits the history into the chat-session prefix and the
// parts of the final message group, which SendMessage expects separately.
// A trailing run of tool messages is one group: their function responses are
// all sent together.
func geminiContents(msgs []chat.Message) ([]*genai.Content, []genai.Part, error) {
	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			// handled via SystemInstruction
		case chat.RoleUser:
			contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		case chat.RoleAssistant:
			var parts []genai.Part
			if m.Content != "" {
				parts = append(parts, genai.Text(m.Content))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Arguments})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: "model", Parts: parts})
		case chat.RoleTool:
			part := genai.FunctionResponse{
				Name:     m.ToolName,
				Response: map[string]any{"content": m.Content},
			}
			if n := len(contents); n > 0 && contents[n-1].Role == "function" {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: "function", Parts: []genai.Part{part}})
		}
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("gemini: no sendable messages")
	}
	final := contents[len(contents)-1]
	return contents[:len(contents)-1], final.Parts, nil
}

func geminiSchema(raw map[string]any) *genai.Schema {
	if len(raw) == 0 {
		return &genai.Schema{Type: genai.TypeObject}
	}
	typ, _ := raw["type"].(string)
	schema := &genai.Schema{Type: geminiType(typ)}
	if desc, ok := raw["description"].(string); ok {
		schema.Description = desc
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, value := range props {
			if sub, ok := value.(map[string]any); ok {
				schema.Properties[name] = geminiSchema(sub)
			}
		}
	}
	if items, ok := raw["items"].(map[string]any); ok {
		schema.Items = geminiSchema(items)
	}
	schema.Required = chat.ToolSpec{InputSchema: raw}.SchemaRequired()
	if enum, ok := raw["enum"].([]any); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, s)
			}
		}
	}
	return schema
}

func geminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeObject
	}
}
