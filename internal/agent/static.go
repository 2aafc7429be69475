package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/facturabot/facturabot/internal/llm"
	"github.com/facturabot/facturabot/internal/schema"
)

const staticSystemPrompt = `Eres un generador de SQL para PostgreSQL sobre una base de facturas de construccion.
Genera UNA consulta SQL que responda la pregunta del usuario. Devuelve solo el SQL, sin explicaciones.

Esquema de la tabla:
%SCHEMA%

Documentacion de columnas:
%DOCS%

Reglas:
- Usa unicamente la tabla y columnas del esquema.
- Para las entidades canonicas listadas abajo usa SIEMPRE igualdad exacta (columna = 'valor'). Nunca uses LIKE ni ILIKE sobre ellas: ya estan normalizadas al valor exacto de la base.
- Los importes se agregan con SUM(importe) salvo que el usuario pida otra cosa.
- Limita los listados largos con LIMIT cuando el usuario no pida todo.`

// StaticGenerator writes exact-filter SQL for questions the model can answer
// with equality predicates and aggregations.
type StaticGenerator struct {
	completer Completer
	logger    *slog.Logger
	window    int
}

func NewStaticGenerator(completer Completer, logger *slog.Logger, window int) *StaticGenerator {
	return &StaticGenerator{completer: completer, logger: logger, window: window}
}

// Generate produces SQL for st.Input. When st.ExecError carries the failure
// of a previous attempt, the prompt includes it so the model can repair the
// query.
func (g *StaticGenerator) Generate(ctx context.Context, st *State) (string, error) {
	system := strings.NewReplacer(
		"%SCHEMA%", schema.Text(),
		"%DOCS%", schema.ColumnDocs(st.Catalog.Subcategories),
	).Replace(staticSystemPrompt)

	var b strings.Builder
	b.WriteString("Historial reciente:\n")
	b.WriteString(renderHistory(tailTurns(st.History, g.window), false, 0))
	b.WriteString("\n\n")
	if !st.Entities.Empty() {
		b.WriteString("Entidades canonicas (usar igualdad exacta):\n")
		for _, filter := range st.Entities.EqualityFilters() {
			fmt.Fprintf(&b, "- %s = '%s'\n", filter[0], filter[1])
		}
		if st.Entities.Description != "" {
			b.WriteString("- concepto buscado: " + st.Entities.Description + "\n")
		}
		b.WriteString("\n")
	}
	if filters := describeFilters(st.Filters); filters != "" {
		b.WriteString("Filtros activos en la sesion del usuario:\n")
		b.WriteString(filters)
		b.WriteString("\n\n")
	}
	if st.ExecError != "" {
		b.WriteString("La consulta anterior fallo con este error, corrigela:\n")
		b.WriteString(st.SQL)
		b.WriteString("\nError: ")
		b.WriteString(st.ExecError)
		b.WriteString("\n\n")
	}
	b.WriteString("Pregunta del usuario: ")
	b.WriteString(st.Input)

	messages := []llm.Message{{Role: "user", Content: b.String()}}
	raw, err := g.completer.Complete(ctx, system, messages)
	if err != nil {
		return "", fmt.Errorf("generate static sql: %w", err)
	}
	sqlText := stripSQLFences(raw)
	if sqlText == "" {
		return "", fmt.Errorf("generate static sql: model returned empty query")
	}
	g.logger.Debug("generated static sql", "sql", sqlText)
	return sqlText, nil
}

func describeFilters(f Filters) string {
	parts := make([]string, 0, 3)
	if len(f.Projects) > 0 {
		raw, _ := json.Marshal(f.Projects)
		parts = append(parts, "- obras: "+string(raw))
	}
	if len(f.Suppliers) > 0 {
		raw, _ := json.Marshal(f.Suppliers)
		parts = append(parts, "- proveedores: "+string(raw))
	}
	if len(f.Subcategories) > 0 {
		raw, _ := json.Marshal(f.Subcategories)
		parts = append(parts, "- subcategorias: "+string(raw))
	}
	return strings.Join(parts, "\n")
}

// stripSQLFences removes a surrounding markdown code fence if the model
// wrapped its answer in one.
func stripSQLFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	return strings.TrimSpace(trimmed)
}
