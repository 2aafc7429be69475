package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/facturabot/facturabot/internal/llm"
	"github.com/facturabot/facturabot/internal/observability"
)

const querytypeSystemPrompt = `Clasifica la consulta del usuario sobre una base de facturas en STATIC o SEMANTIC.

Subcategorias conocidas en la base:
%SUBCATEGORIAS%

STATIC: la consulta se resuelve con filtros exactos y agregaciones SQL (sumas, conteos, promedios, listados ordenados) sobre campos estructurados: obra, proveedor, categoria, subcategoria, fechas, importes. Si el usuario pide cuantificar ("cuánto", "cuántas") un material o servicio que corresponde a una subcategoria conocida, la consulta es STATIC aunque lo exprese como "comprado" o "usado".
SEMANTIC: la consulta busca la existencia de facturas que coincidan con un concepto, sinónimo o descripción libre que NO corresponde a ninguna subcategoria o categoria conocida, y la respuesta es un conjunto de filas parecidas, no un agregado numérico.

Responde con una sola palabra: STATIC o SEMANTIC.`

// TypeClassifier routes a query to exact-filter SQL or similarity search.
type TypeClassifier struct {
	completer Completer
	logger    *slog.Logger
}

func NewTypeClassifier(completer Completer, logger *slog.Logger) *TypeClassifier {
	return &TypeClassifier{completer: completer, logger: logger}
}

// Classify returns the query type for st.Input. Any answer containing
// "SEMANTIC" normalizes to semantic; everything else, including model
// failures, normalizes to static since exact SQL is the safer default.
func (c *TypeClassifier) Classify(ctx context.Context, st *State) QueryType {
	system := strings.Replace(querytypeSystemPrompt, "%SUBCATEGORIAS%", bulletList(st.Catalog.Subcategories), 1)

	var b strings.Builder
	if !st.Entities.Empty() {
		b.WriteString("Entidades detectadas:\n")
		for _, filter := range st.Entities.EqualityFilters() {
			b.WriteString("- " + filter[0] + ": " + filter[1] + "\n")
		}
		if st.Entities.Description != "" {
			b.WriteString("- descripcion: " + st.Entities.Description + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Consulta del usuario: ")
	b.WriteString(st.Input)

	messages := []llm.Message{{Role: "user", Content: b.String()}}
	raw, err := c.completer.Complete(ctx, system, messages)
	if err != nil {
		c.logger.Warn("query type classification failed, defaulting to static", "error", err)
		observability.IncrementClassifierFallback("query_type")
		return QueryTypeStatic
	}
	if strings.Contains(strings.ToUpper(raw), "SEMANTIC") {
		return QueryTypeSemantic
	}
	return QueryTypeStatic
}
