package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ridoystarlord/redatlas/boundary"
	"github.com/ridoystarlord/redatlas/query"
	"github.com/ridoystarlord/redatlas/table"
)

// MessageTableNotFound is shown when a declared table cannot be read.
const MessageTableNotFound = "Selected table not found."

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, status, map[string]string{"status": "error", "message": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.Options(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// regionsResponse is the body of /api/regions.
type regionsResponse struct {
	Selection query.Selection `json:"selection"`
	*query.Result
}

// selection resolves the repid, disease and q parameters against the
// vocabulary.
func (s *Server) selection(ctx context.Context, params url.Values) (query.Selection, *query.Vocabulary, error) {
	vocab, err := s.engine.Options(ctx)
	if err != nil {
		return query.Selection{}, nil, err
	}
	sel := query.ParseSelection(params["repid"], params["disease"], params.Get("q"), vocab)
	return sel, vocab, nil
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	sel, _, err := s.selection(r.Context(), r.URL.Query())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	res, err := s.engine.Regions(r.Context(), sel.Repids, sel.Diseases)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, regionsResponse{Selection: sel, Result: res})
}

func (s *Server) handleBoundaries(w http.ResponseWriter, r *http.Request) {
	layer, err := s.boundaries.Layer(r.Context(), s.cfg.Boundary)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, boundary.ErrFetch) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{"boundary_error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	json.NewEncoder(w).Encode(layer)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":  s.catalog.Names(),
		"filters": s.catalog.Filters(),
	})
}

// loadTable reads the named table and writes the not-found warning itself.
func (s *Server) loadTable(w http.ResponseWriter, r *http.Request, name string) (*table.Table, bool) {
	t, err := s.catalog.Load(r.Context(), name)
	if errors.Is(err, table.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "warning", "message": MessageTableNotFound})
		return nil, false
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return nil, false
	}
	return t, true
}

// tableQuery reads filter selections from the parameters named after the
// active filter columns, plus q and search.
func tableQuery(t *table.Table, allow []string, params url.Values) table.Query {
	q := table.Query{
		Selections: make(map[string][]string),
		Text:       params.Get("q"),
	}
	for _, col := range t.ActiveFilters(allow) {
		if vals := params[col]; len(vals) > 0 {
			q.Selections[col] = vals
		}
	}
	for _, c := range params["search"] {
		q.SearchColumns = append(q.SearchColumns, strings.Split(c, ",")...)
	}
	return q
}

// tableResponse is the body of /api/tables/{name}.
type tableResponse struct {
	Name    string              `json:"name"`
	Columns []string            `json:"columns"`
	Filters map[string][]string `json:"filters"`
	Total   int                 `json:"total"`
	Page    int                 `json:"page"`
	Limit   int                 `json:"limit"`
	Rows    []map[string]string `json:"rows"`
}

func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, ok := s.loadTable(w, r, name)
	if !ok {
		return
	}
	params := r.URL.Query()
	filtered := t.Filter(s.catalog.Filters(), tableQuery(t, s.catalog.Filters(), params))

	page, _ := strconv.Atoi(params.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(params.Get("limit"))
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	records := filtered.Records()
	start := min((page-1)*limit, len(records))
	end := min(start+limit, len(records))

	filters := make(map[string][]string)
	for _, col := range t.ActiveFilters(s.catalog.Filters()) {
		filters[col] = t.DistinctValues(col)
	}
	writeJSON(w, http.StatusOK, tableResponse{
		Name:    name,
		Columns: filtered.Columns,
		Filters: filters,
		Total:   filtered.Len(),
		Page:    page,
		Limit:   limit,
		Rows:    records[start:end],
	})
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func exportFilename(name, ext string) string {
	slug := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		slug = "table"
	}
	return slug + "_filtered." + ext
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = table.FormatTSV
	}
	contentType := table.ContentType(format)
	if contentType == "" {
		http.Error(w, "Invalid format. Supported formats: tsv, csv, json", http.StatusBadRequest)
		return
	}

	t, ok := s.loadTable(w, r, name)
	if !ok {
		return
	}
	filtered := t.Filter(s.catalog.Filters(), tableQuery(t, s.catalog.Filters(), r.URL.Query()))

	var buf bytes.Buffer
	if err := filtered.Export(&buf, format); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.metrics.TableExportsTotal.WithLabelValues(name).Inc()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(name, format)))
	w.Write(buf.Bytes())
}
