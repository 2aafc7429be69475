package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Refresher keeps the latest snapshot in memory and reloads it on a fixed
// interval. Readers always get the snapshot that was current when they asked.
type Refresher struct {
	loader   Loader
	interval time.Duration
	logger   *slog.Logger
	current  atomic.Pointer[Snapshot]
}

func NewRefresher(loader Loader, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		loader:   loader,
		interval: interval,
		logger:   logger,
	}
}

// Refresh loads a fresh snapshot and publishes it.
func (r *Refresher) Refresh(ctx context.Context) error {
	snapshot, err := r.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	snapshot.LoadedAt = time.Now().UTC()
	r.current.Store(&snapshot)
	r.logger.Info("catalog refreshed",
		slog.Int("projects", len(snapshot.Projects)),
		slog.Int("suppliers", len(snapshot.Suppliers)),
		slog.Int("subcategories", len(snapshot.Subcategories)),
		slog.Int("categories", len(snapshot.Categories)),
	)
	return nil
}

// Start runs the periodic reload until ctx is cancelled. A failed reload
// keeps the previous snapshot in place.
func (r *Refresher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil {
					r.logger.Warn("catalog refresh failed", slog.Any("error", err))
				}
			}
		}
	}()
}

func (r *Refresher) Snapshot() (Snapshot, error) {
	snapshot := r.current.Load()
	if snapshot == nil {
		return Snapshot{}, ErrNotLoaded
	}
	return *snapshot, nil
}
