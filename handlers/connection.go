package handlers

import (
	"net/http"

	"github.com/camden-git/peoplegraph/models"
	"github.com/camden-git/peoplegraph/realtime"
	"github.com/camden-git/peoplegraph/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ConnectionHandler struct {
	Connections *services.ConnectionService
	Events      EventPublisher
	Log         *zap.Logger
}

func (h *ConnectionHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req services.NewConnection
	if !decodeJSON(w, r, &req) {
		return
	}

	conn, err := h.Connections.Create(r.Context(), req)
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}

	publish(h.Events, realtime.Event{
		Type:         realtime.EventConnectionCreated,
		OwnerID:      conn.OwnerID,
		PersonID:     conn.FromPersonID,
		ConnectionID: conn.ID,
	})
	writeJSON(w, http.StatusCreated, conn)
}

func (h *ConnectionHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Connections.Delete(r.Context(), chi.URLParam(r, "connection_id"))
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	publish(h.Events, realtime.Event{
		Type:         realtime.EventConnectionDeleted,
		OwnerID:      deleted.OwnerID,
		PersonID:     deleted.FromPersonID,
		ConnectionID: deleted.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.Connections.ListByOwner(r.Context(), chi.URLParam(r, "owner_id"))
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	if conns == nil {
		conns = []models.Connection{}
	}
	writeJSON(w, http.StatusOK, conns)
}
