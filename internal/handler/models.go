package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/selimdilsadercan/iklim-chat-api/internal/gateway"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/logger"
)

// ModelsHandler exposes the gateway's advertised model list.
type ModelsHandler struct {
	client *gateway.Client
	logger *logger.Logger
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(client *gateway.Client, log *logger.Logger) *ModelsHandler {
	return &ModelsHandler{
		client: client,
		logger: log,
	}
}

// List handles GET /api/v1/models
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": h.client.Models(),
	})
}

// Refresh handles POST /api/v1/models/refresh
func (h *ModelsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.client.RefreshModels(r.Context()); err != nil {
		h.logger.Error("failed to refresh models", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to refresh models")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": h.client.Models(),
	})
}
