// Package schema describes the invoice fact table the agent queries. The
// column documentation is static domain knowledge maintained alongside the
// table, not derived from the database at runtime.
package schema

import (
	"fmt"
	"strings"
)

const (
	TableName       = "portal_desglosado"
	EmbeddingColumn = "embedding"
)

type Column struct {
	Name string
	Type string
	Doc  string
}

var columns = []Column{
	{Name: "obra", Type: "text", Doc: "Nombre del proyecto de construcción."},
	{Name: "folio", Type: "text", Doc: "Número de factura o identificador único."},
	{Name: "fecha_factura", Type: "date", Doc: "Fecha en que se emitió la factura (formato YYYY-MM-DD)."},
	{Name: "cantidad", Type: "numeric", Doc: "Cantidad del producto o material adquirido."},
	{Name: "tipo_gasto", Type: "text", Doc: "Indica si la compra es costo directo, garantía o servicio."},
	{Name: "subtotal", Type: "numeric", Doc: "Monto antes de impuestos."},
	{Name: "total", Type: "numeric", Doc: "Monto total de la factura incluyendo impuestos."},
	{Name: "descripcion", Type: "text", Doc: "Descripción general del producto que NO debe usarse para búsquedas de categorías o materiales específicos."},
	{Name: "categoria_id", Type: "text", Doc: "[IMPORTANTE] Agrupación macro de los costos (ej. ACERO, CIMBRA, FERRETERÍA, HERRERÍA, MAQUINARIA, SUBCONTRATO). Úsala para filtros de alto nivel o para resumir el gasto por rubro."},
	{Name: "subcategoria", Type: "text", Doc: "[MUY IMPORTANTE] Clasificación específica del material o servicio. AQUÍ ES DONDE SE DEBE BUSCAR MATERIALES ESPECÍFICOS como CEMENTO, VARILLA, ARENA, GRAVA. NUNCA busques materiales en 'descripcion', SIEMPRE en 'subcategoria'."},
	{Name: "proveedor", Type: "text", Doc: "Nombre del proveedor que emitió la factura."},
	{Name: "residente", Type: "text", Doc: "Persona responsable del proyecto."},
	{Name: "estatus", Type: "text", Doc: "Estado actual de la factura (ej. Pagado, Proceso de pago)."},
	{Name: "moneda", Type: "text", Doc: "Tipo de moneda (ej. MXN, USD)."},
	{Name: "precio_unitario", Type: "numeric", Doc: "Precio por unidad del material o servicio."},
	{Name: "unidad", Type: "text", Doc: "Unidad de medida (ej. kg, m3, pieza)."},
	{Name: EmbeddingColumn, Type: "vector", Doc: "Vector de la descripción para búsquedas por similitud. No se selecciona ni se filtra directamente."},
}

// Text renders a CREATE TABLE shaped view of the fact table for model context.
func Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", TableName)
	for i, col := range columns {
		fmt.Fprintf(&b, "    %q %s", col.Name, col.Type)
		if i < len(columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// ColumnDocs renders the per-column documentation. The subcategory entry is
// extended with live example values so the model maps material terms onto
// known subcategories instead of free text.
func ColumnDocs(subcategories []string) string {
	var b strings.Builder
	for _, col := range columns {
		fmt.Fprintf(&b, "- %q: %s", col.Name, col.Doc)
		if col.Name == "subcategoria" && len(subcategories) > 0 {
			fmt.Fprintf(&b, " Ejemplos de valores: %s.", strings.Join(subcategories, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
