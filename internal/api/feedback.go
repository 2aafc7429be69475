package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/facturabot/facturabot/internal/chatlog"
)

type feedbackRequest struct {
	SessionID string `json:"session_id"`
	Rating    int    `json:"rating"`
	Text      string `json:"text"`
}

func handleFeedback(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Feedback == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "FEEDBACK_NOT_CONFIGURED", "feedback dependency is not configured", false, nil)
		return
	}

	var request feedbackRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid feedback request body", false, map[string]any{"details": err.Error()})
		return
	}
	if request.SessionID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_REQUIRED", "session_id is required", false, nil)
		return
	}
	if request.Rating < 1 || request.Rating > 5 {
		writeError(r.Context(), w, http.StatusBadRequest, "RATING_OUT_OF_RANGE", "rating must be between 1 and 5", false, nil)
		return
	}

	err := deps.Feedback.RecordFeedback(r.Context(), chatlog.Feedback{
		SessionID: request.SessionID,
		Rating:    request.Rating,
		Text:      request.Text,
	})
	if err != nil {
		if errors.Is(err, chatlog.ErrSessionNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "FEEDBACK_FAILED", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "recorded"})
}
