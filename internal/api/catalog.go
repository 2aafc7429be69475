package api

import (
	"errors"
	"net/http"

	"github.com/facturabot/facturabot/internal/catalog"
)

type catalogResponse struct {
	Projects      []string `json:"obras"`
	Suppliers     []string `json:"proveedores"`
	Subcategories []string `json:"subcategorias"`
	Categories    []string `json:"categorias"`
	LoadedAt      string   `json:"loaded_at"`
}

func handleCatalog(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CATALOG_NOT_CONFIGURED", "catalog dependency is not configured", false, nil)
		return
	}

	snapshot, err := deps.Catalog.Snapshot()
	if err != nil {
		if errors.Is(err, catalog.ErrNotLoaded) {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "CATALOG_NOT_LOADED", err.Error(), true, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "CATALOG_FAILED", err.Error(), true, nil)
		return
	}

	writeJSON(w, http.StatusOK, catalogResponse{
		Projects:      snapshot.Projects,
		Suppliers:     snapshot.Suppliers,
		Subcategories: snapshot.Subcategories,
		Categories:    snapshot.Categories,
		LoadedAt:      snapshot.LoadedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}
