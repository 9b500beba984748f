package errand

import (
	"context"
	"strings"
	"testing"

	"github.com/jwhitelaw/errand/pkg/chat"
	"github.com/jwhitelaw/errand/pkg/models"
)

type fakeTool struct {
	name    string
	content string
	err     error

	gotArgs map[string]any
	calls   int
}

func (f *fakeTool) Spec() chat.ToolSpec {
	return chat.ToolSpec{
		Name:        f.name,
		Description: "test tool",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	}
}

func (f *fakeTool) Invoke(_ context.Context, req ToolRequest) (ToolResponse, error) {
	f.calls++
	f.gotArgs = req.Arguments
	if f.err != nil {
		return ToolResponse{}, f.err
	}
	return ToolResponse{Content: f.content}, nil
}

func newTestAgent(t *testing.T, model models.Agent, tools ...Tool) *Agent {
	t.Helper()
	ag, err := New(Options{Model: model, Tools: tools})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return ag
}

func TestRunDirectAnswer(t *testing.T) {
	model := models.NewScriptedLLM(chat.Reply{Content: "Paris is the capital of France."})
	ag := newTestAgent(t, model)

	res, err := ag.Run(context.Background(), "s1", []chat.Message{chat.User("capital of France?")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.FinalText != "Paris is the capital of France." {
		t.Fatalf("unexpected final text: %q", res.FinalText)
	}
	if model.Calls() != 1 {
		t.Fatalf("expected a single model call, got %d", model.Calls())
	}
	if got := res.ResponseType(); got != ResponseGeneralKnowledge {
		t.Fatalf("expected general_knowledge, got %s", got)
	}
	last := res.Messages[len(res.Messages)-1]
	if last.Role != chat.RoleAssistant || last.Content != res.FinalText {
		t.Fatalf("history does not end with the assistant answer: %+v", last)
	}
}

func TestRunExecutesRequestedTools(t *testing.T) {
	search := &fakeTool{name: "google_search", content: "Title: Go\nLink: https://go.dev\nSnippet: The Go site.\n---"}
	model := models.NewScriptedLLM(
		chat.Reply{ToolCalls: []chat.ToolCall{{
			ID:        "call-1",
			Name:      "google_search",
			Arguments: map[string]any{"query": "golang"},
		}}},
		chat.Reply{Content: "Go's website is go.dev."},
	)
	ag := newTestAgent(t, model, search)

	res, err := ag.Run(context.Background(), "s1", []chat.Message{chat.User("find the go website")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if search.calls != 1 {
		t.Fatalf("expected 1 tool invocation, got %d", search.calls)
	}
	if search.gotArgs["query"] != "golang" {
		t.Fatalf("tool did not receive model arguments: %v", search.gotArgs)
	}
	if res.FinalText != "Go's website is go.dev." {
		t.Fatalf("unexpected final text: %q", res.FinalText)
	}
	if got := res.ResponseType(); got != ResponseToolSuccess {
		t.Fatalf("expected tool_success, got %s", got)
	}
	if names := res.ToolNames(); len(names) != 1 || names[0] != "google_search" {
		t.Fatalf("unexpected tool names: %v", names)
	}

	// The tool result must be threaded back to the model, bound to its call.
	var toolMsg *chat.Message
	for i := range res.Messages {
		if res.Messages[i].Role == chat.RoleTool {
			toolMsg = &res.Messages[i]
		}
	}
	if toolMsg == nil {
		t.Fatalf("no tool message in history")
	}
	if toolMsg.ToolCallID != "call-1" || toolMsg.ToolName != "google_search" {
		t.Fatalf("tool message not bound to its call: %+v", toolMsg)
	}
	if model.Calls() != 2 {
		t.Fatalf("expected 2 model calls, got %d", model.Calls())
	}
}

func TestRunUnknownToolKeepsLoopGoing(t *testing.T) {
	model := models.NewScriptedLLM(
		chat.Reply{ToolCalls: []chat.ToolCall{{ID: "call-1", Name: "launch_rocket"}}},
		chat.Reply{Content: "I don't have that tool."},
	)
	ag := newTestAgent(t, model)

	res, err := ag.Run(context.Background(), "s1", []chat.Message{chat.User("launch the rocket")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(res.Steps) != 1 || !res.Steps[0].Failed {
		t.Fatalf("expected a single failed step, got %+v", res.Steps)
	}
	if !strings.HasPrefix(res.Steps[0].Content, "Error:") {
		t.Fatalf("unknown tool should produce an error string, got %q", res.Steps[0].Content)
	}
	if res.FinalText != "I don't have that tool." {
		t.Fatalf("loop did not continue after the failed step: %q", res.FinalText)
	}
	if got := res.ResponseType(); got != ResponseToolFailure {
		t.Fatalf("expected tool_failure, got %s", got)
	}
}

func TestRunToolErrorBecomesErrorString(t *testing.T) {
	broken := &fakeTool{name: "read_email", err: context.DeadlineExceeded}
	model := models.NewScriptedLLM(
		chat.Reply{ToolCalls: []chat.ToolCall{{ID: "call-1", Name: "read_email"}}},
		chat.Reply{Content: "Could not reach your inbox."},
	)
	ag := newTestAgent(t, model, broken)

	res, err := ag.Run(context.Background(), "s1", []chat.Message{chat.User("check my mail")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Steps[0].Failed || !strings.HasPrefix(res.Steps[0].Content, "Error:") {
		t.Fatalf("tool error not converted to error string: %+v", res.Steps[0])
	}
}

func TestRunStopsAtMaxTurns(t *testing.T) {
	tool := &fakeTool{name: "google_search", content: "result"}
	loop := chat.Reply{ToolCalls: []chat.ToolCall{{ID: "call-1", Name: "google_search", Arguments: map[string]any{"query": "x"}}}}
	model := models.NewScriptedLLM(loop, loop, loop, loop, loop)

	ag, err := New(Options{Model: model, Tools: []Tool{tool}, MaxTurns: 3})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	res, err := ag.Run(context.Background(), "s1", []chat.Message{chat.User("search forever")})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if model.Calls() != 3 {
		t.Fatalf("expected the loop to cap at 3 model calls, got %d", model.Calls())
	}
	// The final turn's requested tools are never executed: no model call
	// follows to consume their output.
	if len(res.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(res.Steps))
	}
	if tool.calls != 2 {
		t.Fatalf("tool requested on the last turn must not run, got %d invocations", tool.calls)
	}
}

func TestRunPrependsSystemPromptOnce(t *testing.T) {
	model := models.NewScriptedLLM(chat.Reply{Content: "hi"})
	ag := newTestAgent(t, model)

	if _, err := ag.Run(context.Background(), "s1", []chat.Message{chat.User("hello")}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	prompt := model.Prompts()[0]
	if prompt[0].Role != chat.RoleSystem {
		t.Fatalf("system prompt not prepended")
	}

	model = models.NewScriptedLLM(chat.Reply{Content: "hi"})
	ag = newTestAgent(t, model)
	history := []chat.Message{chat.System("custom"), chat.User("hello")}
	if _, err := ag.Run(context.Background(), "s1", history); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	prompt = model.Prompts()[0]
	if len(prompt) != 2 || prompt[0].Content != "custom" {
		t.Fatalf("existing system prompt must be kept as-is, got %+v", prompt)
	}
}

func TestRunEmptyHistoryErrors(t *testing.T) {
	ag := newTestAgent(t, models.NewScriptedLLM())
	if _, err := ag.Run(context.Background(), "s1", nil); err == nil {
		t.Fatalf("expected error for empty history")
	}
}

func TestNormalizeReplyPlaceholders(t *testing.T) {
	reply := normalizeReply(chat.Reply{ToolCalls: []chat.ToolCall{{Name: "google_search"}}})
	if reply.Content != placeholderDeciding {
		t.Fatalf("unexpected placeholder: %q", reply.Content)
	}
	reply = normalizeReply(chat.Reply{})
	if reply.Content != placeholderEmpty {
		t.Fatalf("unexpected placeholder: %q", reply.Content)
	}
	reply = normalizeReply(chat.Reply{Content: "answer"})
	if reply.Content != "answer" {
		t.Fatalf("non-empty content must be untouched, got %q", reply.Content)
	}
}

func TestToolNamesDeduplicates(t *testing.T) {
	res := Result{Steps: []Step{
		{Call: chat.ToolCall{Name: "google_search"}},
		{Call: chat.ToolCall{Name: "browse_website"}},
		{Call: chat.ToolCall{Name: "google_search"}},
	}}
	names := res.ToolNames()
	if len(names) != 2 || names[0] != "google_search" || names[1] != "browse_website" {
		t.Fatalf("unexpected names: %v", names)
	}
}
