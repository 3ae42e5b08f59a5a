package api

import (
	"log/slog"
	"sync"

	"github.com/fixturelab/plumbline/internal/notestore"
	"github.com/fixturelab/plumbline/internal/report"
	"github.com/fixturelab/plumbline/internal/storage"
)

// ReportCache memoizes the compiled report between mutations. The HTTP
// handler and the MCP server share one instance so an edit on either surface
// invalidates both.
type ReportCache struct {
	mu    sync.Mutex
	notes []report.CompiledNote
	valid bool
}

// NewReportCache creates an empty, invalid cache.
func NewReportCache() *ReportCache {
	return &ReportCache{}
}

// Get returns the cached compiled report, rebuilding it with build when
// stale.
func (c *ReportCache) Get(build func() []report.CompiledNote) []report.CompiledNote {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		c.notes = build()
		c.valid = true
	}
	return c.notes
}

// Invalidate marks the cache stale.
func (c *ReportCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}

// compileReport runs the full compilation pipeline over the current persisted
// state. Any collection that fails to load is logged and treated as empty, so
// the result is always a well-formed (possibly empty) list.
func compileReport(store *storage.Store, notes *notestore.Service, unitColumn string) []report.CompiledNote {
	rows, err := store.ListRows()
	if err != nil {
		slog.Warn("loading installation rows failed, treating as empty", "error", err)
		rows = nil
	}
	cells, err := store.ListSelectedCells()
	if err != nil {
		slog.Warn("loading selected cells failed, treating as empty", "error", err)
		cells = nil
	}
	columns, err := store.ListSelectedColumns()
	if err != nil {
		slog.Warn("loading selected columns failed, treating as empty", "error", err)
		columns = nil
	}

	return report.Compile(report.Input{
		Rows:            rows,
		UnitColumn:      unitColumn,
		SelectedCells:   cells,
		SelectedColumns: columns,
		StoredNotes:     notestore.StoredByUnit(notes.Load()),
	})
}
