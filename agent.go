package errand

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jwhitelaw/errand/pkg/chat"
	"github.com/jwhitelaw/errand/pkg/models"
)

const defaultSystemPrompt = `You are a helpful AI assistant designed to integrate with external tools.
Your available tools are: google_search, browse_website, read_email, send_email.

Instructions:
1. Analyze the user's request carefully, paying attention to context from previous messages (e.g., if the user says "it", figure out what "it" refers to).
2. Determine if any of your available tools can fulfill the request. Break down multi-step requests into sequential tool calls if necessary.
3. If a tool is available for the task, you MUST attempt to use it. Do not claim you cannot perform the action if a relevant tool exists.
4. Think step-by-step before deciding which tool to use and what arguments to provide. Construct the arguments precisely according to the tool's requirements.
5. If multiple tools are needed (e.g., browse a website then send its content via email), plan and execute the steps sequentially. Use the output from one step as input for the next.
6. If no tool is suitable, or if a tool fails unexpectedly after you attempt to use it, explain the situation clearly.
7. If unsure about context or the required action, ask the user for clarification.`

// defaultMaxTurns caps the decide/act cycle. Each turn is one model call, so
// a runaway model cannot loop forever.
const defaultMaxTurns = 10

// Placeholders for degenerate model replies, so the history never carries an
// empty assistant message.
const (
	placeholderDeciding = "[Deciding which tool to use...]"
	placeholderEmpty    = "[LLM returned empty response]"
)

// Agent drives the decide/act cycle between a chat model and a fixed tool
// catalog: ask the model, execute any tools it requested, feed the results
// back, and repeat until the model answers with no further tool calls.
type Agent struct {
	model        models.Agent
	catalog      *Catalog
	systemPrompt string
	maxTurns     int
}

// Options configure a new Agent.
type Options struct {
	Model        models.Agent
	Tools        []Tool
	SystemPrompt string
	MaxTurns     int
}

// New creates an Agent with the provided options.
func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, errors.New("agent requires a language model")
	}

	systemPrompt := opts.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	catalog := NewCatalog()
	for _, tool := range opts.Tools {
		if tool == nil {
			continue
		}
		if err := catalog.Register(tool); err != nil {
			return nil, err
		}
	}

	return &Agent{
		model:        opts.Model,
		catalog:      catalog,
		systemPrompt: systemPrompt,
		maxTurns:     maxTurns,
	}, nil
}

// Step records one tool invocation made during a turn.
type Step struct {
	Call    chat.ToolCall
	Content string
	Failed  bool
}

// Result is the outcome of one conversational turn.
type Result struct {
	// Messages is the full history after the turn: the input history plus
	// every assistant and tool message the loop appended.
	Messages []chat.Message
	// FinalText is the assistant's closing textual answer.
	FinalText string
	// Steps lists the tool invocations made this turn, in order.
	Steps []Step
}

// Run processes one conversational turn. The history must already end with
// the user's latest message; Run appends the assistant and tool messages the
// turn produces and returns the extended history.
func (a *Agent) Run(ctx context.Context, sessionID string, history []chat.Message) (Result, error) {
	if len(history) == 0 {
		return Result{}, errors.New("conversation history is empty")
	}

	msgs := a.withSystemPrompt(history)
	specs := a.catalog.Specs()

	result := Result{}
	for turn := 1; turn <= a.maxTurns; turn++ {
		reply, err := a.model.Chat(ctx, msgs, specs)
		if err != nil {
			return Result{}, fmt.Errorf("model call: %w", err)
		}
		reply = normalizeReply(reply)

		msgs = append(msgs, chat.AssistantReply(reply))
		result.FinalText = reply.Content

		if !reply.HasToolCalls() {
			log.Debug().
				Str("session", sessionID).
				Int("turn", turn).
				Msg("model answered without tool calls")
			break
		}

		// No model call follows the last turn, so any tool output would be
		// discarded. Skip the side effects.
		if turn == a.maxTurns {
			log.Warn().
				Str("session", sessionID).
				Int("turn", turn).
				Msg("turn limit reached with pending tool calls")
			break
		}

		for _, call := range reply.ToolCalls {
			step := a.invoke(ctx, sessionID, call)
			msgs = append(msgs, chat.ToolResult(call, step.Content))
			result.Steps = append(result.Steps, step)

			log.Info().
				Str("session", sessionID).
				Str("tool", call.Name).
				Bool("failed", step.Failed).
				Int("turn", turn).
				Msg("tool invoked")
		}
	}

	result.Messages = msgs
	return result, nil
}

// invoke runs a single requested tool. Failures become "Error: ..." content
// so the model sees them and the loop keeps going; nothing here aborts the
// turn.
func (a *Agent) invoke(ctx context.Context, sessionID string, call chat.ToolCall) Step {
	tool, _, ok := a.catalog.Lookup(call.Name)
	if !ok {
		return Step{
			Call:    call,
			Content: fmt.Sprintf("Error: unknown tool %q", call.Name),
			Failed:  true,
		}
	}

	resp, err := tool.Invoke(ctx, ToolRequest{SessionID: sessionID, Arguments: call.Arguments})
	if err != nil {
		return Step{
			Call:    call,
			Content: fmt.Sprintf("Error: %v", err),
			Failed:  true,
		}
	}

	return Step{
		Call:    call,
		Content: resp.Content,
		Failed:  strings.HasPrefix(resp.Content, "Error:"),
	}
}

// withSystemPrompt prepends the agent's system message unless the history
// already opens with one.
func (a *Agent) withSystemPrompt(history []chat.Message) []chat.Message {
	if history[0].Role == chat.RoleSystem {
		return append([]chat.Message(nil), history...)
	}
	msgs := make([]chat.Message, 0, len(history)+1)
	msgs = append(msgs, chat.System(a.systemPrompt))
	return append(msgs, history...)
}

// Specs returns the registered tool specifications in deterministic order.
func (a *Agent) Specs() []chat.ToolSpec {
	return a.catalog.Specs()
}

func normalizeReply(reply chat.Reply) chat.Reply {
	if reply.Content != "" {
		return reply
	}
	if reply.HasToolCalls() {
		reply.Content = placeholderDeciding
	} else {
		reply.Content = placeholderEmpty
	}
	return reply
}
