package models

import (
	"context"

	"github.com/jwhitelaw/errand/pkg/chat"
)

// Agent is a chat model that can either answer in text or request tool
// invocations. Implementations are thin wrappers over hosted APIs and do no
// orchestration of their own.
type Agent interface {
	Chat(ctx context.Context, msgs []chat.Message, tools []chat.ToolSpec) (chat.Reply, error)
}

func systemText(msgs []chat.Message) string {
	for _, m := range msgs {
		if m.Role == chat.RoleSystem {
			return m.Content
		}
	}
	return ""
}
