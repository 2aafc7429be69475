// Package postgres persists chat analytics to the chat_analytics table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/facturabot/facturabot/internal/chatlog"
)

const insertTurnSQL = `INSERT INTO chat_analytics
 (session_id, user_id, user_input, corrected_entities, generated_sql, query_type, sql_error, execution_success, response_time_ms)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const updateFeedbackSQL = `UPDATE chat_analytics
 SET feedback_rating = $2, feedback_text = $3
 WHERE id = (SELECT id FROM chat_analytics WHERE session_id = $1 ORDER BY created_at DESC LIMIT 1)`

// Writer stores analytics rows through a shared *sql.DB.
type Writer struct {
	db *sql.DB
}

func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

func (w *Writer) Write(ctx context.Context, record chatlog.Record) error {
	entities := record.EntitiesJSON
	if len(entities) == 0 {
		entities = []byte("{}")
	}
	_, err := w.db.ExecContext(ctx, insertTurnSQL,
		record.SessionID,
		record.UserID,
		record.UserInput,
		entities,
		nullString(record.GeneratedSQL),
		nullString(record.QueryType),
		nullString(record.SQLError),
		record.ExecutionSuccess,
		record.ResponseTimeMS,
	)
	if err != nil {
		return fmt.Errorf("insert chat analytics: %w", err)
	}
	return nil
}

// RecordFeedback attaches a rating to the most recent turn of the session.
// A session with no logged turns is reported as an error so the API can
// return 404.
func (w *Writer) RecordFeedback(ctx context.Context, feedback chatlog.Feedback) error {
	result, err := w.db.ExecContext(ctx, updateFeedbackSQL,
		feedback.SessionID,
		feedback.Rating,
		nullString(feedback.Text),
	)
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	if affected == 0 {
		return chatlog.ErrSessionNotFound
	}
	return nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
