// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/selimdilsadercan/iklim-chat-api/internal/chat"
	"github.com/selimdilsadercan/iklim-chat-api/internal/middleware"
	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
	"github.com/selimdilsadercan/iklim-chat-api/internal/persona"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/logger"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/metrics"
)

// ChatHandler handles chat session endpoints.
type ChatHandler struct {
	service *chat.Service
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *chat.Service, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// InitializeSession handles POST /api/v1/chat/{persona}/session
func (h *ChatHandler) InitializeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	personaID := chi.URLParam(r, "persona")

	resp, err := h.service.Initialize(ctx, userID, personaID)
	if err != nil {
		if errors.Is(err, persona.ErrUnknownPersona) {
			writeError(w, http.StatusNotFound, "unknown persona")
			return
		}
		h.logger.Error("failed to initialize session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to initialize session")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListMessages handles GET /api/v1/chat/{persona}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	personaID := chi.URLParam(r, "persona")

	msgs, err := h.service.History(ctx, userID, personaID)
	if err != nil {
		if errors.Is(err, persona.ErrUnknownPersona) {
			writeError(w, http.StatusNotFound, "unknown persona")
			return
		}
		h.logger.Error("failed to list messages", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		Messages: msgs,
		Total:    len(msgs),
	})
}

// Send handles POST /api/v1/chat/{persona}/messages
//
// The assistant reply is streamed back as SSE token events followed by
// a message_complete event.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	personaID := chi.URLParam(r, "persona")

	if _, err := persona.Get(personaID); err != nil {
		writeError(w, http.StatusNotFound, "unknown persona")
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	botMsg, err := h.service.Send(ctx, userID, personaID, req.Text, func(fragment string, index int) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		return sendSSEEvent(w, flusher, "token", &model.TokenEvent{
			Token: fragment,
			Index: index,
		})
	})

	if err != nil {
		code := "stream_error"
		switch {
		case errors.Is(err, chat.ErrSessionBusy):
			code = "session_busy"
		case errors.Is(err, chat.ErrEmptyMessage):
			code = "empty_message"
		default:
			h.logger.Error("send failed",
				zap.String("persona_id", personaID),
				zap.Error(err),
			)
		}
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    code,
			Message: "Failed to send message",
		})
		return
	}

	sendSSEEvent(w, flusher, "message_complete", &model.MessageCompleteEvent{
		Message: botMsg,
	})
	sendSSEEvent(w, flusher, "done", map[string]bool{"success": true})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
