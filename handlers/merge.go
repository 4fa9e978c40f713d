package handlers

import (
	"net/http"

	"github.com/camden-git/peoplegraph/media"
	"github.com/camden-git/peoplegraph/realtime"
	"github.com/camden-git/peoplegraph/services"
	"go.uber.org/zap"
)

type MergeHandler struct {
	Merges *services.MergeService
	Media  media.Store
	Events EventPublisher
	Log    *zap.Logger
}

type mergePairRequest struct {
	TargetID string `json:"target_id"`
	SourceID string `json:"source_id"`
}

type mergeResponse struct {
	*services.MergeResult
	Target personResponse `json:"target"`
}

func (h *MergeHandler) PreviewMerge(w http.ResponseWriter, r *http.Request) {
	var req mergePairRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	preview, err := h.Merges.Preview(r.Context(), req.TargetID, req.SourceID)
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *MergeHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req services.MergeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.Merges.Merge(r.Context(), req)
	if err != nil {
		writeEngineError(w, h.Log, err)
		return
	}

	publish(h.Events, realtime.Event{
		Type:     realtime.EventPersonMerged,
		OwnerID:  result.Target.OwnerID,
		PersonID: result.Target.ID,
		SourceID: result.DeletedSourceID,
		Extra: map[string]interface{}{
			"rewritten_connections": len(result.RewrittenConnectionIDs),
			"deleted_connections":   len(result.DeletedConnectionIDs),
		},
	})
	writeJSON(w, http.StatusOK, mergeResponse{MergeResult: result, Target: toPersonResponse(result.Target, h.Media)})
}
