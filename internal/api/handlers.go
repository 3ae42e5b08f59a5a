package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fixturelab/plumbline/internal/ingest"
	"github.com/fixturelab/plumbline/internal/notestore"
	"github.com/fixturelab/plumbline/internal/report"
	"github.com/fixturelab/plumbline/internal/storage"
)

const maxRequestBodySize = 1 << 20  // 1MB
const maxDatasetBodySize = 10 << 20 // 10MB
const maxURLFetchSize = 5 << 20     // 5MB

// IngestRequest attaches annotation content to a unit from raw text, a
// fetched URL, or a base64-encoded PDF.
type IngestRequest struct {
	Unit    string `json:"unit"`
	Type    string `json:"type"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

type AppDeps struct {
	Store      *storage.Store
	Notes      *notestore.Service
	Token      string
	HTTPClient *http.Client
	Cache      *ReportCache // optional; created when nil
	UnitColumn string       // optional; forces the unit column instead of detecting it
}

type app struct {
	deps  AppDeps
	cache *ReportCache
}

// NewAppHandler builds the management API. All routes except /health require
// bearer auth. The compiled report is cached and invalidated on every
// mutation, including note edits arriving through the shared note store
// (e.g. from the MCP surface).
func NewAppHandler(deps AppDeps) http.Handler {
	a := &app{deps: deps, cache: deps.Cache}
	if a.cache == nil {
		a.cache = NewReportCache()
	}
	deps.Notes.Subscribe(func([]storage.Note) { a.cache.Invalidate() })

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/report/notes", a.handleReportNotes)
		r.Get("/report/export.csv", a.handleReportCSV)

		r.Get("/notes", a.handleListNotes)
		r.Put("/notes/{unit}", a.handleUpdateNote)
		r.Delete("/notes", a.handleClearNotes)

		r.Post("/dataset", a.handleReplaceDataset)
		r.Get("/dataset/columns", a.handleDatasetColumns)

		r.Get("/selected-columns", a.handleGetSelectedColumns)
		r.Put("/selected-columns", a.handleSetSelectedColumns)

		r.Get("/selected-cells", a.handleGetSelectedCells)
		r.Put("/selected-cells", a.handleSetSelectedCells)
		r.Post("/selected-cells/{unit}", a.handleAppendSelectedCell)

		r.Post("/ingest", a.handleIngest)
	})

	return r
}

func (a *app) compiled(unitColumn string) []report.CompiledNote {
	if unitColumn != "" {
		// Explicit unit column bypasses the cache, which only holds the
		// detected-column compilation.
		return compileReport(a.deps.Store, a.deps.Notes, unitColumn)
	}
	return a.cache.Get(func() []report.CompiledNote {
		return compileReport(a.deps.Store, a.deps.Notes, a.deps.UnitColumn)
	})
}

func (a *app) handleReportNotes(w http.ResponseWriter, r *http.Request) {
	notes := a.compiled(r.URL.Query().Get("unit_column"))
	if notes == nil {
		notes = []report.CompiledNote{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notes)
}

func (a *app) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	notes := a.compiled(r.URL.Query().Get("unit_column"))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="installation-notes.csv"`)
	if err := report.WriteCSV(w, notes); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to write csv: %v", err)
	}
}

func (a *app) handleListNotes(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.deps.Notes.Load())
}

func (a *app) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	unit := chi.URLParam(r, "unit")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	a.deps.Notes.Update(unit, req.Content)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "updated", "unit": unit})
}

func (a *app) handleClearNotes(w http.ResponseWriter, _ *http.Request) {
	a.deps.Notes.ClearAll()
	// ClearAll dispatches no notification, so the cache is dropped here.
	a.cache.Invalidate()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
}

func (a *app) handleReplaceDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDatasetBodySize)
	var rows []storage.Row
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	if err := a.deps.Store.ReplaceRows(rows); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to save dataset: %v", err)
		return
	}
	a.cache.Invalidate()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "imported", "rows": len(rows)})
}

func (a *app) handleDatasetColumns(w http.ResponseWriter, _ *http.Request) {
	rows, err := a.deps.Store.ListRows()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to load dataset: %v", err)
		return
	}

	var columns []string
	if len(rows) > 0 {
		columns = report.Columns(rows[0])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"columns":     columns,
		"unit_column": report.DetectUnitColumn(columns),
	})
}

func (a *app) handleGetSelectedColumns(w http.ResponseWriter, _ *http.Request) {
	columns, err := a.deps.Store.ListSelectedColumns()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to load selected columns: %v", err)
		return
	}
	if columns == nil {
		columns = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(columns)
}

func (a *app) handleSetSelectedColumns(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var columns []string
	if err := json.NewDecoder(r.Body).Decode(&columns); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	if err := a.deps.Store.ReplaceSelectedColumns(columns); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to save selected columns: %v", err)
		return
	}
	a.cache.Invalidate()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

func (a *app) handleGetSelectedCells(w http.ResponseWriter, _ *http.Request) {
	cells, err := a.deps.Store.ListSelectedCells()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to load selected cells: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cells)
}

func (a *app) handleSetSelectedCells(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var cells map[string][]string
	if err := json.NewDecoder(r.Body).Decode(&cells); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	if err := a.deps.Store.ReplaceSelectedCells(cells); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to save selected cells: %v", err)
		return
	}
	a.cache.Invalidate()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "updated"})
}

func (a *app) handleAppendSelectedCell(w http.ResponseWriter, r *http.Request) {
	unit := chi.URLParam(r, "unit")

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req struct {
		Annotation string `json:"annotation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if req.Annotation == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "annotation is required")
		return
	}

	if err := a.deps.Store.AppendSelectedCell(unit, req.Annotation); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to save annotation: %v", err)
		return
	}
	a.cache.Invalidate()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "attached", "unit": unit})
}

func (a *app) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDatasetBodySize)
	defer r.Body.Close()

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}

	if req.Unit == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "unit is required")
		return
	}
	if req.Content == "" && req.URL == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one of content or url is required")
		return
	}
	if req.Type == "" {
		req.Type = "text"
	}

	var resolved string
	switch {
	case req.Type == "url" && req.URL != "":
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid url: %v", err)
			return
		}
		resp, err := a.deps.HTTPClient.Do(httpReq)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to fetch url: %v", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			httpError(w, http.StatusBadGateway, "api_error", "url returned status %d", resp.StatusCode)
			return
		}

		resolved, err = ingest.ExtractHTMLText(io.LimitReader(resp.Body, maxURLFetchSize))
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to read url response: %v", err)
			return
		}

	case req.Type == "pdf" && req.Content != "":
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
			return
		}
		resolved, err = ingest.ExtractPDFText(decoded)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to extract pdf text: %v", err)
			return
		}

	default:
		resolved = ingest.NormalizeText(req.Content)
	}

	if resolved == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "no text content resolved")
		return
	}

	if err := a.deps.Store.AppendSelectedCell(req.Unit, resolved); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to save annotation: %v", err)
		return
	}
	a.cache.Invalidate()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "attached", "unit": req.Unit})
}
