package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/facturabot/facturabot/internal/llm"
	"github.com/facturabot/facturabot/internal/observability"
)

const intentSystemPrompt = `Eres un clasificador de intenciones para un asistente de facturas de construccion.
El asistente consulta una base de datos de facturas desglosadas (obras, proveedores, importes, conceptos).

Clasifica el ultimo mensaje del usuario en una de estas intenciones:
- "sql_query": el usuario pide datos de facturas que requieren consultar la base de datos.
- "follow_up": el usuario pregunta sobre datos que el asistente ya devolvio en esta conversacion.
- "small_talk": saludos, agradecimientos o conversacion trivial.
- "clarification": el usuario responde a una pregunta aclaratoria del asistente.
- "general_question": preguntas sobre el asistente o su funcionamiento, sin datos.

Indica needs_sql=true solo cuando haga falta ejecutar una consulta nueva.
Ante la duda entre consultar o no, prefiere needs_sql=true.`

var intentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"needs_sql": map[string]any{"type": "boolean"},
		"intent_type": map[string]any{
			"type": "string",
			"enum": []string{"sql_query", "small_talk", "clarification", "general_question", "follow_up"},
		},
		"confidence": map[string]any{"type": "number"},
		"reasoning":  map[string]any{"type": "string"},
	},
	"required":             []string{"needs_sql", "intent_type", "confidence", "reasoning"},
	"additionalProperties": false,
}

// IntentClassifier decides whether a turn needs a database query at all.
type IntentClassifier struct {
	completer     Completer
	logger        *slog.Logger
	historyPrefix string
	window        int
}

func NewIntentClassifier(completer Completer, logger *slog.Logger, historyPrefix string, window int) *IntentClassifier {
	return &IntentClassifier{
		completer:     completer,
		logger:        logger,
		historyPrefix: historyPrefix,
		window:        window,
	}
}

// Classify resolves the intent of st.Input. Inputs carrying the history
// prefix are follow-ups by contract and bypass the model entirely; the
// prefix is stripped from the state so downstream stages never see it.
// Classification failures degrade to a SQL query rather than dropping the
// turn.
func (c *IntentClassifier) Classify(ctx context.Context, st *State) Intent {
	trimmed := strings.TrimSpace(st.Input)
	if c.historyPrefix != "" && strings.HasPrefix(trimmed, c.historyPrefix) {
		st.Input = strings.TrimSpace(strings.TrimPrefix(trimmed, c.historyPrefix))
		return Intent{
			NeedsSQL:   false,
			Type:       IntentFollowUp,
			Confidence: 1.0,
			Reasoning:  "prefijo de historial presente",
		}
	}

	var decoded struct {
		NeedsSQL   bool    `json:"needs_sql"`
		IntentType string  `json:"intent_type"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}

	messages := []llm.Message{{
		Role: "user",
		Content: "Historial reciente:\n" + renderHistory(tailTurns(st.History, c.window), false, 0) +
			"\n\nMensaje del usuario: " + st.Input,
	}}
	err := c.completer.CompleteJSON(ctx, intentSystemPrompt, messages, "intent_classification", intentSchema, &decoded)
	if err != nil || !validIntentType(IntentType(decoded.IntentType)) {
		if err != nil {
			c.logger.Warn("intent classification failed, defaulting to sql query", "error", err)
		} else {
			c.logger.Warn("intent classification returned unknown type, defaulting to sql query", "intent_type", decoded.IntentType)
		}
		observability.IncrementClassifierFallback("intent")
		return Intent{NeedsSQL: true, Type: IntentSQLQuery, Confidence: 0.0, Reasoning: "clasificacion fallida"}
	}

	return Intent{
		NeedsSQL:   decoded.NeedsSQL,
		Type:       IntentType(decoded.IntentType),
		Confidence: decoded.Confidence,
		Reasoning:  decoded.Reasoning,
	}
}
