// Package transcript persists per-session conversation history so the web
// front-end can carry context across requests.
package transcript

import (
	"context"

	"github.com/jwhitelaw/errand/pkg/chat"
)

// Store holds the ordered message history for each session.
type Store interface {
	// Append adds messages to the end of the session's history.
	Append(ctx context.Context, sessionID string, msgs ...chat.Message) error
	// History returns the session's messages in append order. A session
	// that was never written to yields an empty slice, not an error.
	History(ctx context.Context, sessionID string) ([]chat.Message, error)
	// Clear discards the session's history.
	Clear(ctx context.Context, sessionID string) error
}
