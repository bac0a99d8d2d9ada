package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/selimdilsadercan/iklim-chat-api/internal/chat"
	"github.com/selimdilsadercan/iklim-chat-api/internal/export"
	"github.com/selimdilsadercan/iklim-chat-api/internal/middleware"
	"github.com/selimdilsadercan/iklim-chat-api/internal/persona"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/logger"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/metrics"
)

// ExportHandler serves conversation downloads.
type ExportHandler struct {
	service *chat.Service
	logger  *logger.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(svc *chat.Service, log *logger.Logger) *ExportHandler {
	return &ExportHandler{
		service: svc,
		logger:  log,
	}
}

// Export handles GET /api/v1/chat/{persona}/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	personaID := chi.URLParam(r, "persona")

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	onlyUser := r.URL.Query().Get("only_user") == "true"

	msgs, err := h.service.History(ctx, userID, personaID)
	if err != nil {
		if errors.Is(err, persona.ErrUnknownPersona) {
			writeError(w, http.StatusNotFound, "unknown persona")
			return
		}
		h.logger.Error("failed to load history for export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export conversation")
		return
	}

	data, err := export.Export(msgs, format, onlyUser)
	if err != nil {
		h.logger.Error("failed to encode export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export conversation")
		return
	}

	metrics.ExportsTotal.WithLabelValues(string(format)).Inc()

	filename := export.Filename(personaID, format, time.Now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
