// Package catalog holds the reference lists of canonical values (projects,
// suppliers, subcategories, categories) the agent uses for entity
// canonicalization. Snapshots are immutable once loaded; refresh swaps the
// whole snapshot so a turn never observes a catalog mutating mid-flight.
package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotLoaded = errors.New("catalog: not loaded")

type Snapshot struct {
	Projects      []string
	Suppliers     []string
	Subcategories []string
	Categories    []string
	LoadedAt      time.Time
}

func (s Snapshot) HasProject(name string) bool {
	return contains(s.Projects, name)
}

func (s Snapshot) HasSupplier(name string) bool {
	return contains(s.Suppliers, name)
}

func (s Snapshot) HasSubcategory(name string) bool {
	return contains(s.Subcategories, name)
}

func (s Snapshot) Empty() bool {
	return len(s.Projects) == 0 && len(s.Suppliers) == 0 &&
		len(s.Subcategories) == 0 && len(s.Categories) == 0
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

// Provider hands out the current snapshot. Implementations must return
// fully-built snapshots and never mutate one after publication.
type Provider interface {
	Snapshot() (Snapshot, error)
}

// Loader builds a fresh snapshot from the backing store.
type Loader interface {
	Load(ctx context.Context) (Snapshot, error)
}
