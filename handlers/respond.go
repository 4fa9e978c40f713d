package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/camden-git/peoplegraph/realtime"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeJSON decodes the request body into dst, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "invalid request body: "+err.Error())
		return false
	}
	return true
}

func requireParam(w http.ResponseWriter, name, value string) bool {
	if strings.TrimSpace(value) == "" {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", "missing required parameter: "+name)
		return false
	}
	return true
}

// EventPublisher receives change notifications after successful writes
type EventPublisher interface {
	Broadcast(event realtime.Event)
}

func publish(p EventPublisher, event realtime.Event) {
	if p != nil {
		p.Broadcast(event)
	}
}
