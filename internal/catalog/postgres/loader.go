package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/facturabot/facturabot/internal/catalog"
	"github.com/facturabot/facturabot/internal/schema"
)

// Loader builds catalog snapshots from the distinct values present in the
// invoice fact table.
type Loader struct {
	db *sql.DB
}

func NewLoader(db *sql.DB) *Loader {
	return &Loader{db: db}
}

func (l *Loader) Load(ctx context.Context) (catalog.Snapshot, error) {
	var snapshot catalog.Snapshot
	var err error

	if snapshot.Projects, err = l.distinctValues(ctx, "obra"); err != nil {
		return catalog.Snapshot{}, err
	}
	if snapshot.Suppliers, err = l.distinctValues(ctx, "proveedor"); err != nil {
		return catalog.Snapshot{}, err
	}
	if snapshot.Subcategories, err = l.distinctValues(ctx, "subcategoria"); err != nil {
		return catalog.Snapshot{}, err
	}
	if snapshot.Categories, err = l.distinctValues(ctx, "categoria_id"); err != nil {
		return catalog.Snapshot{}, err
	}
	return snapshot, nil
}

func (l *Loader) distinctValues(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT DISTINCT %q FROM %s WHERE %q IS NOT NULL ORDER BY %q ASC`,
		column, schema.TableName, column, column,
	)

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load distinct %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", column, err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", column, err)
	}
	return values, nil
}
