// Package web serves the browser chat front-end: a single page plus a JSON
// endpoint that routes each message through the agent.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	errand "github.com/jwhitelaw/errand"
	"github.com/jwhitelaw/errand/pkg/chat"
	"github.com/jwhitelaw/errand/pkg/transcript"
)

//go:embed index.html
var assets embed.FS

const sessionCookie = "session_id"

// Server exposes the chat UI and API over HTTP. Each browser session gets a
// cookie-bound transcript; loading the page starts the conversation over.
type Server struct {
	agent *errand.Agent
	store transcript.Store
	mux   *http.ServeMux
}

func NewServer(agent *errand.Agent, store transcript.Store) *Server {
	if store == nil {
		store = transcript.NewMemoryStore()
	}
	s := &Server{agent: agent, store: store, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("POST /clear", s.handleClear)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	log.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Dur("elapsed", time.Since(start)).
		Msg("request")
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	ResponseText string   `json:"response_text"`
	ResponseType string   `json:"response_type"`
	ToolNames    []string `json:"tool_names"`
}

type errorResponse struct {
	Error        string `json:"error"`
	ResponseType string `json:"response_type"`
}

// handleIndex serves the chat page. Reloading resets the session transcript,
// so every page load starts a fresh conversation.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sessionID := s.ensureSession(w, r)
	if err := s.store.Clear(r.Context(), sessionID); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("reset transcript")
	}

	page, err := assets.ReadFile("index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sessionID := s.ensureSession(w, r)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No message provided", ResponseType: "error"})
		return
	}

	ctx := r.Context()
	history, err := s.store.History(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("load transcript")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load conversation history", ResponseType: "error"})
		return
	}

	history = append(history, chat.User(req.Message))
	result, err := s.agent.Run(ctx, sessionID, history)
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("agent turn failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:        "Sorry, an internal error occurred. Please check the server logs.",
			ResponseType: "error",
		})
		return
	}

	s.persistTurn(ctx, sessionID, history, result)

	writeJSON(w, http.StatusOK, chatResponse{
		ResponseText: result.FinalText,
		ResponseType: result.ResponseType(),
		ToolNames:    result.ToolNames(),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sessionID := s.ensureSession(w, r)
	if err := s.store.Clear(r.Context(), sessionID); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("clear transcript")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to clear conversation", ResponseType: "error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// persistTurn appends the user message and everything the turn produced.
// Result.Messages may open with a system message the loop prepended; that
// stays out of the stored transcript.
func (s *Server) persistTurn(ctx context.Context, sessionID string, history []chat.Message, result errand.Result) {
	offset := len(history)
	if len(result.Messages) > 0 && result.Messages[0].Role == chat.RoleSystem && history[0].Role != chat.RoleSystem {
		offset++
	}
	turn := append([]chat.Message{history[len(history)-1]}, result.Messages[offset:]...)
	if err := s.store.Append(ctx, sessionID, turn...); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("persist transcript")
	}
}

func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
