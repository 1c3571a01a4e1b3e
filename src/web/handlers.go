package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/elee1766/gemchat/src/app"
	"github.com/elee1766/gemchat/src/history"
)

var avatars = map[history.Role]string{
	history.RoleUser: "🧑",
	history.RoleBot:  "🤖",
}

// notices are looked up by code so that query strings never reach the page verbatim
var notices = map[string]string{
	"empty":  "Please type a message first.",
	"save":   "The reply could not be saved to the history file.",
	"failed": "Something went wrong. Check the server log.",
}

type pageMessage struct {
	Role   history.Role
	Avatar string
	HTML   template.HTML
}

type pageData struct {
	Title    string
	Messages []pageMessage
	Notice   string
}

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse is returned by POST /api/messages.
type MessageResponse struct {
	Reply   history.Turn   `json:"reply"`
	History []history.Turn `json:"history"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	turns := s.chat.Turns()
	data := pageData{
		Title:    Title,
		Messages: make([]pageMessage, 0, len(turns)),
		Notice:   notices[r.URL.Query().Get("notice")],
	}
	for _, t := range turns {
		data.Messages = append(data.Messages, pageMessage{
			Role:   t.Role,
			Avatar: avatars[t.Role],
			HTML:   s.renderer.Render(t.Content),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", "request_id", RequestID(r.Context()), "error", err)
	}
}

func (s *Server) handleFormMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	_, err := s.chat.Send(r.Context(), r.PostForm.Get("message"))
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, app.ErrEmptyMessage):
		http.Redirect(w, r, "/?notice=empty", http.StatusSeeOther)
	default:
		s.logger.Error("exchange failed", "request_id", RequestID(r.Context()), "error", err)
		http.Redirect(w, r, "/?notice=save", http.StatusSeeOther)
	}
}

func (s *Server) handleFormClear(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Clear(r.Context()); err != nil {
		s.logger.Error("clear failed", "request_id", RequestID(r.Context()), "error", err)
		http.Redirect(w, r, "/?notice=failed", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, nonNil(s.chat.Turns()))
}

func (s *Server) handleAPIMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.chat.Send(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, app.ErrEmptyMessage) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("exchange failed", "request_id", RequestID(r.Context()), "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, MessageResponse{
		Reply:   reply,
		History: nonNil(s.chat.Turns()),
	})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.Clear(r.Context()); err != nil {
		s.logger.Error("clear failed", "request_id", RequestID(r.Context()), "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.config.Models.ListModels(r.Context())
	if err != nil {
		s.logger.Warn("failed to list models", "request_id", RequestID(r.Context()), "error", err)
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"current": s.config.Model,
		"models":  models,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"model":    s.config.Model,
		"turns":    len(s.chat.Turns()),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"platform": s.platform,
	})
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"code":    status,
		},
	})
}

func nonNil(turns []history.Turn) []history.Turn {
	if turns == nil {
		return []history.Turn{}
	}
	return turns
}
