package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/facturabot/facturabot/internal/llm"
)

const (
	noResultsMessage = "No encontré facturas que coincidan con tu consulta. Prueba a reformularla o a quitar algún filtro."

	clarificationMessage = "No he podido construir una consulta con esa pregunta. ¿Puedes indicarme la obra, el proveedor o el concepto que te interesa?"

	conversationalFallbackMessage = "Lo siento, tuve un problema al procesar tu mensaje. ¿Podrías reformularlo de otra manera?"

	apologyMessage = "Lo siento, no he podido completar la consulta. Error técnico: %s"
)

const summarizeSystemPrompt = `Eres un asistente de facturas de construccion. El usuario hizo una pregunta y la base de datos devolvio los resultados adjuntos en JSON.
Redacta en español una respuesta breve y directa que conteste la pregunta con esos datos. Formatea los importes con separador de miles y el simbolo €. No inventes datos que no esten en los resultados.`

const conversationalSystemPrompt = `Eres un asistente de facturas de construccion para el equipo de administracion.
Responde en español, breve y cordial. Si el usuario pregunta sobre datos ya mostrados en la conversacion, usa esos datos. Si pide datos nuevos que no tienes, indícale que formule la consulta y se la buscarás.`

// Responder turns execution results or plain conversation into the reply
// shown to the user.
type Responder struct {
	completer  Completer
	logger     *slog.Logger
	sampleRows int
	window     int
}

func NewResponder(completer Completer, logger *slog.Logger, sampleRows, window int) *Responder {
	return &Responder{completer: completer, logger: logger, sampleRows: sampleRows, window: window}
}

// Summarize writes the natural-language answer for a successful query.
// Empty results short-circuit to a fixed message; a summarization failure
// falls back to reporting the row count so the user still learns the query
// ran.
func (r *Responder) Summarize(ctx context.Context, st *State) string {
	if st.Result == nil || len(st.Result.Rows) == 0 {
		return noResultsMessage
	}
	sample, err := st.Result.SampleJSON(r.sampleRows)
	if err != nil {
		r.logger.Warn("result sample serialization failed", "error", err)
		return fmt.Sprintf("La consulta devolvió %d filas.", st.Result.TotalRows)
	}

	prompt := fmt.Sprintf("Pregunta del usuario: %s\n\nResultados (%d filas en total, muestra de hasta %d):\n%s",
		st.Input, st.Result.TotalRows, r.sampleRows, sample)
	reply, err := r.completer.Complete(ctx, summarizeSystemPrompt, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		r.logger.Warn("result summarization failed, falling back to row count", "error", err)
		return fmt.Sprintf("La consulta devolvió %d filas.", st.Result.TotalRows)
	}
	return reply
}

// Conversational answers turns that need no new query. Follow-ups see the
// whole conversation including previously returned tables; every other
// intent sees only the recent window without tables.
func (r *Responder) Conversational(ctx context.Context, st *State) string {
	var history []Turn
	withTables := false
	if st.Intent.Type == IntentFollowUp {
		history = st.History
		withTables = true
	} else {
		history = tailTurns(st.History, r.window)
	}

	prompt := "Historial:\n" + renderHistory(history, withTables, r.sampleRows) +
		"\n\nMensaje del usuario: " + st.Input
	reply, err := r.completer.Complete(ctx, conversationalSystemPrompt, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		r.logger.Warn("conversational response failed", "error", err)
		return conversationalFallbackMessage
	}
	return reply
}
