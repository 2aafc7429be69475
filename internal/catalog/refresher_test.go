package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeLoader struct {
	snapshots []Snapshot
	errs      []error
	calls     int
}

func (l *fakeLoader) Load(_ context.Context) (Snapshot, error) {
	index := l.calls
	l.calls++
	if index < len(l.errs) && l.errs[index] != nil {
		return Snapshot{}, l.errs[index]
	}
	if index >= len(l.snapshots) {
		index = len(l.snapshots) - 1
	}
	return l.snapshots[index], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshotBeforeLoadReturnsError(t *testing.T) {
	refresher := NewRefresher(&fakeLoader{}, time.Minute, discardLogger())
	if _, err := refresher.Snapshot(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("err = %v, want ErrNotLoaded", err)
	}
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	loader := &fakeLoader{snapshots: []Snapshot{{
		Projects:      []string{"Bodega Acatlán E2"},
		Suppliers:     []string{"CEMEX"},
		Subcategories: []string{"CEMENTO"},
	}}}
	refresher := NewRefresher(loader, time.Minute, discardLogger())

	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	snapshot, err := refresher.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !snapshot.HasProject("Bodega Acatlán E2") {
		t.Fatal("missing project")
	}
	if !snapshot.HasSupplier("CEMEX") {
		t.Fatal("missing supplier")
	}
	if !snapshot.HasSubcategory("CEMENTO") {
		t.Fatal("missing subcategory")
	}
	if snapshot.LoadedAt.IsZero() {
		t.Fatal("LoadedAt not set")
	}
}

func TestFailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	loader := &fakeLoader{
		snapshots: []Snapshot{{Projects: []string{"Casa ZDT"}}},
		errs:      []error{nil, errors.New("connection reset")},
	}
	refresher := NewRefresher(loader, time.Minute, discardLogger())

	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	if err := refresher.Refresh(context.Background()); err == nil {
		t.Fatal("second Refresh() expected error")
	}
	snapshot, err := refresher.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !snapshot.HasProject("Casa ZDT") {
		t.Fatal("previous snapshot lost after failed refresh")
	}
}

func TestSnapshotIsStableAcrossRefresh(t *testing.T) {
	loader := &fakeLoader{snapshots: []Snapshot{
		{Projects: []string{"Muro Altozano"}},
		{Projects: []string{"Torre Insurgentes"}},
	}}
	refresher := NewRefresher(loader, time.Minute, discardLogger())

	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	held, _ := refresher.Snapshot()
	if err := refresher.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !held.HasProject("Muro Altozano") {
		t.Fatal("held snapshot changed after refresh")
	}
	latest, _ := refresher.Snapshot()
	if !latest.HasProject("Torre Insurgentes") {
		t.Fatal("latest snapshot not published")
	}
}
