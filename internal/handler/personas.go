package handler

import (
	"net/http"

	"github.com/selimdilsadercan/iklim-chat-api/internal/persona"
)

// PersonaHandler serves the persona registry to the dashboards.
type PersonaHandler struct{}

// NewPersonaHandler creates a new persona handler.
func NewPersonaHandler() *PersonaHandler {
	return &PersonaHandler{}
}

// List handles GET /api/v1/personas
func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"personas": persona.All(),
	})
}
