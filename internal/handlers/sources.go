package handlers

import (
	"net/http"

	"learningdash-backend/internal/services"
)

type SourcesHandler struct{}

func NewSourcesHandler() *SourcesHandler {
	return &SourcesHandler{}
}

// List returns the supported source types and their required metadata fields.
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources": services.ListSources(),
	})
}
