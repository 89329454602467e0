package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/ridoystarlord/redatlas/query"
	"github.com/ridoystarlord/redatlas/table"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxPageRows caps the rows rendered in the table page; the export carries
// the full filtered view.
const maxPageRows = 500

func parsePages() *template.Template {
	return template.Must(template.New("pages").Funcs(template.FuncMap{
		"has": func(list []string, v string) bool {
			for _, x := range list {
				if x == v {
					return true
				}
			}
			return false
		},
	}).ParseFS(templateFS, "templates/*.html"))
}

// marshalTemplateJS encodes v as JSON for embedding in a script block.
func marshalTemplateJS(v any) (template.JS, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return template.JS(""), err
	}
	return template.JS(payload), nil
}

// popup renders the marker popup. Link already holds rendered anchors.
func popup(m query.Marker) string {
	var b strings.Builder
	b.WriteString("<h3>" + html.EscapeString(m.DiseaseName) + "</h3>")
	b.WriteString("<i>" + html.EscapeString(m.RepidName) + "</i> in " + html.EscapeString(m.RepeatLocation) + "<br>")
	b.WriteString("<b>" + m.Link + "</b><br>")
	b.WriteString("<b>Normal Range:</b> " + html.EscapeString(m.NormalRange) + "<br>")
	if m.IntermediateRange != "-" {
		b.WriteString(" <b>Intermediate Range:</b> " + html.EscapeString(m.IntermediateRange) + "<br>")
	}
	if m.FullMutationRange != "" {
		b.WriteString(" <b>Full Mutation Range:</b> " + html.EscapeString(m.FullMutationRange))
	}
	return b.String()
}

type mapMarker struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Radius  float64 `json:"radius"`
	Color   string  `json:"color"`
	Tooltip string  `json:"tooltip"`
	Popup   string  `json:"popup"`
}

type indexPage struct {
	Vocab         *query.Vocabulary
	Selected      query.Selection
	Text          string
	Result        *query.Result
	MarkersJSON   template.JS
	CenterJSON    template.JS
	BoundaryJSON  template.JS
	BoundaryError string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()
	sel, vocab, err := s.selection(ctx, params)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	res, err := s.engine.Regions(ctx, sel.Repids, sel.Diseases)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	page := indexPage{Vocab: vocab, Selected: sel, Text: params.Get("q"), Result: res}
	if res.Status == query.StatusOK {
		markers := make([]mapMarker, len(res.Markers))
		for i, m := range res.Markers {
			markers[i] = mapMarker{
				Lat:     m.Latitude,
				Lng:     m.Longitude,
				Radius:  m.Radius,
				Color:   m.Color,
				Tooltip: m.DiseaseName,
				Popup:   popup(m),
			}
		}
		if page.MarkersJSON, err = marshalTemplateJS(markers); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		if page.CenterJSON, err = marshalTemplateJS(res.Center); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}

		// The overlay is decoration; the markers are drawn without it.
		page.BoundaryJSON = template.JS("null")
		layer, err := s.boundaries.Layer(ctx, s.cfg.Boundary)
		if err != nil {
			page.BoundaryError = err.Error()
			s.log.Warn("Rendering map without boundaries", zap.Error(err))
		} else if page.BoundaryJSON, err = marshalTemplateJS(layer); err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
	}
	s.render(w, r, "index.html", page)
}

type filterView struct {
	Column   string
	Values   []string
	Selected []string
}

type tablesPage struct {
	Names     []string
	Selected  string
	Warning   string
	Filters   []filterView
	Search    []string
	Text      string
	Columns   []string
	Rows      [][]string
	Total     int
	Truncated bool
	ExportURL string
}

func (s *Server) handleTablesPage(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	page := tablesPage{
		Names:    s.catalog.Names(),
		Selected: params.Get("table"),
		Text:     params.Get("q"),
		Search:   params["search"],
	}
	if page.Selected != "" {
		t, err := s.catalog.Load(r.Context(), page.Selected)
		switch {
		case errors.Is(err, table.ErrNotFound):
			page.Warning = MessageTableNotFound
		case err != nil:
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		default:
			allow := s.catalog.Filters()
			q := tableQuery(t, allow, params)
			for _, col := range t.ActiveFilters(allow) {
				page.Filters = append(page.Filters, filterView{
					Column:   col,
					Values:   t.DistinctValues(col),
					Selected: q.Selections[col],
				})
			}
			filtered := t.Filter(allow, q)
			page.Columns = filtered.Columns
			page.Total = filtered.Len()
			page.Rows = filtered.Rows
			if len(page.Rows) > maxPageRows {
				page.Rows = page.Rows[:maxPageRows]
				page.Truncated = true
			}
			export := url.Values{}
			for k, v := range params {
				if k != "table" {
					export[k] = v
				}
			}
			page.ExportURL = "/api/tables/" + url.PathEscape(page.Selected) + "/export?" + export.Encode()
		}
	}
	s.render(w, r, "tables.html", page)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("Rendering page", zap.String("page", name), zap.String("path", r.URL.Path), zap.Error(err))
	}
}
