package models

import (
	"context"
	"strings"

	"github.com/jwhitelaw/errand/pkg/chat"
)

// ScriptedLLM replays a fixed sequence of replies. It backs loop and
// front-end tests and the "scripted" provider, where no network or API key
// is available.
type ScriptedLLM struct {
	Replies []chat.Reply

	calls   int
	history [][]chat.Message
}

func NewScriptedLLM(replies ...chat.Reply) *ScriptedLLM {
	return &ScriptedLLM{Replies: replies}
}

func (s *ScriptedLLM) Chat(_ context.Context, msgs []chat.Message, _ []chat.ToolSpec) (chat.Reply, error) {
	snapshot := append([]chat.Message(nil), msgs...)
	s.history = append(s.history, snapshot)

	idx := s.calls
	s.calls++
	if idx < len(s.Replies) {
		return s.Replies[idx], nil
	}
	// Past the script: echo the last non-empty line, like a very small model.
	return chat.Reply{Content: "Scripted response: " + lastLine(msgs)}, nil
}

// Calls reports how many times the model was invoked.
func (s *ScriptedLLM) Calls() int { return s.calls }

// Prompts returns the message snapshots seen by each invocation.
func (s *ScriptedLLM) Prompts() [][]chat.Message { return s.history }

func lastLine(msgs []chat.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(msgs[i].Content); line != "" {
			return line
		}
	}
	return "<empty prompt>"
}
