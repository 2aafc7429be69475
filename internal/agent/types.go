// Package agent implements the query-routing pipeline: intent
// classification, entity extraction, static/semantic SQL generation,
// execution with a bounded retry, and response generation.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/facturabot/facturabot/internal/catalog"
	"github.com/facturabot/facturabot/internal/llm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in the conversation. Immutable once appended to
// history.
type Turn struct {
	Role    Role
	Content string
	Table   *ResultTable
}

// ResultTable is a tabular query result. Rows hold normalized scalar values.
type ResultTable struct {
	Columns   []string
	Rows      [][]any
	TotalRows int
}

// SampleJSON serializes up to limit rows as an array of records for model
// consumption.
func (t *ResultTable) SampleJSON(limit int) (string, error) {
	rows := t.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]any, len(t.Columns))
		for i, column := range t.Columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal result sample: %w", err)
	}
	return string(raw), nil
}

// Entities are the canonicalized values extracted from one utterance. Empty
// string means "not mentioned or not confidently mapped" and must never be
// substituted with a guess.
type Entities struct {
	Project     string `json:"obra,omitempty"`
	Supplier    string `json:"proveedor,omitempty"`
	Description string `json:"descripcion,omitempty"`
}

func (e Entities) Empty() bool {
	return e.Project == "" && e.Supplier == "" && e.Description == ""
}

// EqualityFilters maps the canonical entities onto their fact-table columns.
// Description is excluded: it drives similarity search, never equality.
func (e Entities) EqualityFilters() [][2]string {
	filters := make([][2]string, 0, 2)
	if e.Project != "" {
		filters = append(filters, [2]string{"obra", e.Project})
	}
	if e.Supplier != "" {
		filters = append(filters, [2]string{"proveedor", e.Supplier})
	}
	return filters
}

type QueryType int

const (
	QueryTypeUnset QueryType = iota
	QueryTypeStatic
	QueryTypeSemantic
)

func (t QueryType) String() string {
	switch t {
	case QueryTypeStatic:
		return "STATIC"
	case QueryTypeSemantic:
		return "SEMANTIC"
	default:
		return "UNSET"
	}
}

type IntentType string

const (
	IntentSQLQuery        IntentType = "sql_query"
	IntentSmallTalk       IntentType = "small_talk"
	IntentClarification   IntentType = "clarification"
	IntentGeneralQuestion IntentType = "general_question"
	IntentFollowUp        IntentType = "follow_up"
)

func validIntentType(value IntentType) bool {
	switch value {
	case IntentSQLQuery, IntentSmallTalk, IntentClarification, IntentGeneralQuestion, IntentFollowUp:
		return true
	default:
		return false
	}
}

type Intent struct {
	NeedsSQL   bool
	Type       IntentType
	Confidence float64
	Reasoning  string
}

// Filters are the restrictions already active in the caller's UI session.
type Filters struct {
	Projects      []string `json:"obras,omitempty"`
	Suppliers     []string `json:"proveedores,omitempty"`
	Subcategories []string `json:"subcategorias,omitempty"`
}

// State is the working state of one turn. It is built fresh per turn,
// mutated by the pipeline stages, and discarded afterwards; only the final
// reply and result table survive into conversation history.
type State struct {
	SessionID     string
	UserID        string
	Input         string
	History       []Turn
	Filters       Filters
	Catalog       catalog.Snapshot
	Intent        Intent
	Entities      Entities
	QueryType     QueryType
	SQL           string
	Result        *ResultTable
	ExecError     string
	Clarification string
	Attempts      int
	Reply         string
}

// Completer is the completion-service boundary consumed by the pipeline
// stages.
type Completer interface {
	Complete(ctx context.Context, system string, messages []llm.Message) (string, error)
	CompleteJSON(ctx context.Context, system string, messages []llm.Message, schemaName string, jsonSchema map[string]any, out any) error
}

// Embedder is the embedding-service boundary.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
