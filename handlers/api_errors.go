package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/camden-git/peoplegraph/repository"
	"github.com/camden-git/peoplegraph/services"
	"go.uber.org/zap"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps an engine or repository error onto the error envelope
func writeEngineError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, repository.ErrRecordNotFound):
		WriteAPIError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrValidation):
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	case errors.Is(err, services.ErrInvalidOperation):
		WriteAPIError(w, http.StatusConflict, "invalid_operation", err.Error())
	case services.IsRetryable(err), errors.Is(err, repository.ErrStaleRecord):
		WriteAPIError(w, http.StatusConflict, "merge_conflict_retry", "the records changed concurrently, retry the request")
	case errors.Is(err, context.Canceled):
		// client went away
		log.Debug("request canceled", zap.Error(err))
	default:
		log.Error("unhandled engine error", zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
