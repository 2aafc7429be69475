package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/facturabot/facturabot/internal/catalog"
	"github.com/facturabot/facturabot/internal/chatlog"
	"github.com/facturabot/facturabot/internal/observability"
	"github.com/facturabot/facturabot/internal/query"
)

// HistoryStore holds per-session conversation history.
type HistoryStore interface {
	Snapshot(sessionID string) []Turn
	Append(sessionID string, turns ...Turn)
}

// Request is one incoming chat turn.
type Request struct {
	SessionID string
	UserID    string
	Input     string
	Filters   Filters
}

// Response is the completed turn returned to the API layer.
type Response struct {
	SessionID     string
	Reply         string
	Intent        Intent
	QueryType     string
	SQL           string
	Table         *ResultTable
	Clarification bool
	LatencyMS     int64
}

// Orchestrator wires the pipeline stages into the per-turn state machine.
type Orchestrator struct {
	intents   *IntentClassifier
	extractor *EntityExtractor
	types     *TypeClassifier
	static    *StaticGenerator
	semantic  *SemanticGenerator
	responder *Responder
	executor  query.Executor
	catalog   catalog.Provider
	history   HistoryStore
	analytics chatlog.Writer
	logger    *slog.Logger
	timeout   time.Duration
}

type OrchestratorConfig struct {
	Intents   *IntentClassifier
	Extractor *EntityExtractor
	Types     *TypeClassifier
	Static    *StaticGenerator
	Semantic  *SemanticGenerator
	Responder *Responder
	Executor  query.Executor
	Catalog   catalog.Provider
	History   HistoryStore
	Analytics chatlog.Writer
	Logger    *slog.Logger
	Timeout   time.Duration
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		intents:   cfg.Intents,
		extractor: cfg.Extractor,
		types:     cfg.Types,
		static:    cfg.Static,
		semantic:  cfg.Semantic,
		responder: cfg.Responder,
		executor:  cfg.Executor,
		catalog:   cfg.Catalog,
		history:   cfg.History,
		analytics: cfg.Analytics,
		logger:    cfg.Logger,
		timeout:   cfg.Timeout,
	}
}

// HandleTurn runs one chat turn end to end. A turn always produces a reply:
// pipeline failures degrade to a clarification request or an apology, never
// to a transport error, so the only error returned is an empty input.
func (o *Orchestrator) HandleTurn(ctx context.Context, req Request) (Response, error) {
	if req.Input == "" {
		return Response{}, fmt.Errorf("agent: empty input")
	}
	start := time.Now()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	// The caller context decides whether the turn was abandoned; the
	// internal deadline only bounds the boundary calls.
	caller := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	st := &State{
		SessionID: sessionID,
		UserID:    req.UserID,
		Input:     req.Input,
		History:   o.history.Snapshot(sessionID),
		Filters:   req.Filters,
	}
	if snapshot, err := o.catalog.Snapshot(); err != nil {
		o.logger.Warn("catalog unavailable, extracting without it", "error", err)
	} else {
		st.Catalog = snapshot
	}

	st.Intent = o.intents.Classify(ctx, st)
	o.logger.Info("intent classified",
		"session_id", sessionID,
		"intent", string(st.Intent.Type),
		"needs_sql", st.Intent.NeedsSQL,
		"confidence", st.Intent.Confidence,
	)

	if st.Intent.NeedsSQL {
		o.runQueryPipeline(ctx, st)
	} else {
		st.Reply = o.responder.Conversational(ctx, st)
	}

	elapsed := time.Since(start)
	observability.ObserveTurn(string(st.Intent.Type), elapsed)

	if caller.Err() == nil {
		o.history.Append(sessionID,
			Turn{Role: RoleUser, Content: st.Input},
			Turn{Role: RoleAssistant, Content: st.Reply, Table: st.Result},
		)
	}
	o.logTurn(st, elapsed)

	return Response{
		SessionID:     sessionID,
		Reply:         st.Reply,
		Intent:        st.Intent,
		QueryType:     st.QueryType.String(),
		SQL:           st.SQL,
		Table:         st.Result,
		Clarification: st.Clarification != "",
		LatencyMS:     elapsed.Milliseconds(),
	}, nil
}

// runQueryPipeline is the needs-sql branch: extract, classify, then at most
// two generate-and-execute attempts. The second attempt sees the first
// failure through st.ExecError.
func (o *Orchestrator) runQueryPipeline(ctx context.Context, st *State) {
	st.Entities = o.extractor.Extract(ctx, st)
	st.QueryType = o.types.Classify(ctx, st)
	observability.ObserveQueryType(st.QueryType.String())

	executed := false
	var lastErr error
	for attempt := 0; attempt <= 1; attempt++ {
		st.Attempts = attempt + 1
		if attempt > 0 {
			observability.IncrementSQLRetry()
		}

		sqlText, err := o.generate(ctx, st)
		if err != nil {
			lastErr = err
			st.ExecError = err.Error()
			o.logger.Warn("sql generation failed",
				"session_id", st.SessionID,
				"query_type", st.QueryType.String(),
				"attempt", st.Attempts,
				"error", err,
			)
			continue
		}
		st.SQL = sqlText

		result, err := o.executor.Execute(ctx, sqlText)
		if err != nil {
			executed = true
			lastErr = err
			st.ExecError = err.Error()
			o.logger.Warn("sql execution failed",
				"session_id", st.SessionID,
				"attempt", st.Attempts,
				"error", err,
			)
			continue
		}

		st.ExecError = ""
		st.Result = &ResultTable{
			Columns:   result.Columns,
			Rows:      result.Rows,
			TotalRows: len(result.Rows),
		}
		observability.ObserveSQLExecution(result.Duration)
		break
	}

	switch {
	case st.Result != nil:
		st.Reply = o.responder.Summarize(ctx, st)
	case !executed:
		st.Clarification = clarificationMessage
		st.Reply = clarificationMessage
	default:
		st.Reply = fmt.Sprintf(apologyMessage, lastErr)
	}
}

func (o *Orchestrator) generate(ctx context.Context, st *State) (string, error) {
	if st.QueryType == QueryTypeSemantic {
		return o.semantic.Generate(ctx, st)
	}
	return o.static.Generate(ctx, st)
}

// logTurn persists analytics without blocking the reply. Failures are
// logged and dropped; analytics never affect the user-facing turn.
func (o *Orchestrator) logTurn(st *State, elapsed time.Duration) {
	if o.analytics == nil {
		return
	}
	entities, err := json.Marshal(st.Entities)
	if err != nil {
		entities = []byte("{}")
	}
	queryType := ""
	if st.QueryType != QueryTypeUnset {
		queryType = st.QueryType.String()
	}
	record := chatlog.Record{
		SessionID:        st.SessionID,
		UserID:           st.UserID,
		UserInput:        st.Input,
		EntitiesJSON:     entities,
		GeneratedSQL:     st.SQL,
		QueryType:        queryType,
		SQLError:         st.ExecError,
		ExecutionSuccess: st.Result != nil,
		ResponseTimeMS:   elapsed.Milliseconds(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.analytics.Write(ctx, record); err != nil {
			o.logger.Error("chat analytics write failed", "session_id", record.SessionID, "error", err)
		}
	}()
}
