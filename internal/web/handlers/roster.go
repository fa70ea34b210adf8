package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facewatch/internal/roster"
)

// RosterHandler serves the persons of interest.
type RosterHandler struct {
	roster *roster.Roster
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(r *roster.Roster) *RosterHandler {
	return &RosterHandler{roster: r}
}

// List returns every roster entry.
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.roster.All())
}

// Get returns one roster entry by id.
func (h *RosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, ok := h.roster.ByID(id)
	if !ok {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}
