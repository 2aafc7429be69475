package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/facturabot/facturabot/internal/agent"
)

type chatRequest struct {
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	Message   string        `json:"message"`
	Filters   agent.Filters `json:"filters"`
}

type chatResponse struct {
	SessionID     string     `json:"session_id"`
	Reply         string     `json:"reply"`
	Intent        string     `json:"intent"`
	NeedsSQL      bool       `json:"needs_sql"`
	Confidence    float64    `json:"confidence"`
	QueryType     string     `json:"query_type,omitempty"`
	SQL           string     `json:"sql,omitempty"`
	Table         *chatTable `json:"table,omitempty"`
	Clarification bool       `json:"clarification"`
	ResponseMs    int64      `json:"response_time_ms"`
}

type chatTable struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	TotalRows int      `json:"total_rows"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat dependencies are not configured", false, nil)
		return
	}

	var request chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}

	turn, err := deps.Agent.HandleTurn(r.Context(), agent.Request{
		SessionID: request.SessionID,
		UserID:    request.UserID,
		Input:     request.Message,
		Filters:   request.Filters,
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "CHAT_FAILED", err.Error(), true, nil)
		return
	}

	response := chatResponse{
		SessionID:     turn.SessionID,
		Reply:         turn.Reply,
		Intent:        string(turn.Intent.Type),
		NeedsSQL:      turn.Intent.NeedsSQL,
		Confidence:    turn.Intent.Confidence,
		SQL:           turn.SQL,
		Clarification: turn.Clarification,
		ResponseMs:    turn.LatencyMS,
	}
	if turn.Intent.NeedsSQL {
		response.QueryType = turn.QueryType
	}
	if turn.Table != nil {
		response.Table = &chatTable{
			Columns:   turn.Table.Columns,
			Rows:      turn.Table.Rows,
			TotalRows: turn.Table.TotalRows,
		}
	}
	writeJSON(w, http.StatusOK, response)
}
