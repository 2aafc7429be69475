package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/facturabot/facturabot/internal/schema"
)

// SemanticGenerator builds pgvector similarity queries. Unlike the static
// path there is no model-written SQL: the query shape is fixed and only the
// embedding and equality filters vary.
type SemanticGenerator struct {
	embedder Embedder
	logger   *slog.Logger
	rowLimit int
}

func NewSemanticGenerator(embedder Embedder, logger *slog.Logger, rowLimit int) *SemanticGenerator {
	return &SemanticGenerator{embedder: embedder, logger: logger, rowLimit: rowLimit}
}

// Generate embeds the extracted description and renders the similarity
// query. When extraction produced no description the raw input is embedded
// instead, which degrades precision but keeps the turn alive.
func (g *SemanticGenerator) Generate(ctx context.Context, st *State) (string, error) {
	text := st.Entities.Description
	if text == "" {
		g.logger.Warn("semantic query without extracted description, embedding raw input", "input", st.Input)
		text = st.Input
	}

	vector, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("generate semantic sql: %w", err)
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(schema.TableName)
	if filters := st.Entities.EqualityFilters(); len(filters) > 0 {
		b.WriteString(" WHERE ")
		for i, filter := range filters {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.WriteString(filter[0])
			b.WriteString(" = '")
			b.WriteString(strings.ReplaceAll(filter[1], "'", "''"))
			b.WriteString("'")
		}
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(schema.EmbeddingColumn)
	b.WriteString(" <-> '")
	b.WriteString(formatVector(vector))
	b.WriteString("'::vector LIMIT ")
	b.WriteString(strconv.Itoa(g.rowLimit))
	b.WriteString(";")
	return b.String(), nil
}

func formatVector(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
