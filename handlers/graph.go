package handlers

import (
	"net/http"
	"strconv"

	"github.com/camden-git/peoplegraph/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type GraphHandler struct {
	Graph      *services.GraphService
	Duplicates *services.DuplicateService
	Log        *zap.Logger
}

type pathResponse struct {
	Found   bool     `json:"found"`
	Degrees int      `json:"degrees"`
	Path    []string `json:"path"`
}

func (h *GraphHandler) PersonSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Graph.PersonSummary(r.Context(), chi.URLParam(r, "person_id"))
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *GraphHandler) Network(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Graph.Network(r.Context(), chi.URLParam(r, "owner_id"))
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Path finds the shortest chain of acquaintances between ?from= and ?to=
func (h *GraphHandler) Path(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	maxDegrees := 0
	if raw := q.Get("max_degrees"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "max_degrees must be an integer")
			return
		}
		maxDegrees = v
	}

	path, err := h.Graph.Path(r.Context(), chi.URLParam(r, "owner_id"), q.Get("from"), q.Get("to"), maxDegrees)
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	resp := pathResponse{Path: []string{}}
	if len(path) > 0 {
		resp = pathResponse{Found: true, Degrees: len(path) - 1, Path: path}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *GraphHandler) ScanDuplicates(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.Duplicates.Scan(r.Context(), chi.URLParam(r, "owner_id"))
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}
