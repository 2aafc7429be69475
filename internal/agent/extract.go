package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/facturabot/facturabot/internal/llm"
)

const extractSystemPrompt = `Extrae entidades del mensaje del usuario para consultar una base de facturas.

Catalogo de obras validas:
%OBRAS%

Catalogo de proveedores validos:
%PROVEEDORES%

Reglas:
- "obra": el nombre EXACTO del catalogo que corresponde a la obra mencionada. Si el usuario usa una variante o abreviatura, devuelve el nombre canonico del catalogo.
- "proveedor": igual, con el catalogo de proveedores.
- Si el usuario no menciona una obra o proveedor, o no corresponde claramente a ninguna entrada del catalogo, devuelve cadena vacia. Nunca inventes valores.`

const descriptionSystemPrompt = `El usuario consulta una base de facturas de construccion. Si el mensaje describe el concepto o material buscado (por ejemplo "hormigon", "alquiler de grua", "seguridad y salud"), devuelve esa descripcion en pocas palabras, tal como la expresa el usuario. Si el mensaje no describe ningun concepto, responde exactamente NONE.`

var extractSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"obra":      map[string]any{"type": "string"},
		"proveedor": map[string]any{"type": "string"},
	},
	"required":             []string{"obra", "proveedor"},
	"additionalProperties": false,
}

// EntityExtractor maps free-text mentions onto canonical catalog values.
type EntityExtractor struct {
	completer Completer
	logger    *slog.Logger
}

func NewEntityExtractor(completer Completer, logger *slog.Logger) *EntityExtractor {
	return &EntityExtractor{completer: completer, logger: logger}
}

// Extract fills st.Entities from st.Input. Values that do not match the
// catalog exactly are discarded. Extraction never fails the turn; on model
// errors the entities stay empty and generation proceeds without them.
func (e *EntityExtractor) Extract(ctx context.Context, st *State) Entities {
	entities := e.extractStructured(ctx, st)
	entities.Description = e.extractDescription(ctx, st)
	return entities
}

func (e *EntityExtractor) extractStructured(ctx context.Context, st *State) Entities {
	system := strings.NewReplacer(
		"%OBRAS%", bulletList(st.Catalog.Projects),
		"%PROVEEDORES%", bulletList(st.Catalog.Suppliers),
	).Replace(extractSystemPrompt)

	var decoded struct {
		Project  string `json:"obra"`
		Supplier string `json:"proveedor"`
	}
	messages := []llm.Message{{Role: "user", Content: st.Input}}
	if err := e.completer.CompleteJSON(ctx, system, messages, "entity_extraction", extractSchema, &decoded); err != nil {
		e.logger.Warn("entity extraction failed, continuing without entities", "error", err)
		return Entities{}
	}

	var out Entities
	if project := strings.TrimSpace(decoded.Project); project != "" {
		if st.Catalog.HasProject(project) {
			out.Project = project
		} else {
			e.logger.Warn("extracted project not in catalog, dropping", "obra", project)
		}
	}
	if supplier := strings.TrimSpace(decoded.Supplier); supplier != "" {
		if st.Catalog.HasSupplier(supplier) {
			out.Supplier = supplier
		} else {
			e.logger.Warn("extracted supplier not in catalog, dropping", "proveedor", supplier)
		}
	}
	return out
}

func (e *EntityExtractor) extractDescription(ctx context.Context, st *State) string {
	messages := []llm.Message{{Role: "user", Content: st.Input}}
	raw, err := e.completer.Complete(ctx, descriptionSystemPrompt, messages)
	if err != nil {
		e.logger.Warn("description extraction failed, continuing without description", "error", err)
		return ""
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "NONE") {
		return ""
	}
	return raw
}

func bulletList(values []string) string {
	if len(values) == 0 {
		return "(catalogo vacio)"
	}
	var b strings.Builder
	for _, v := range values {
		b.WriteString("- ")
		b.WriteString(v)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
