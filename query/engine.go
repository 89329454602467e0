// Package query answers region lookups for the map: it joins observations to
// their locus and disease, assigns marker colors and sizes, and resolves the
// user's selection against the known vocabulary.
package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/database"
	"github.com/ridoystarlord/redatlas/metrics"
	"github.com/ridoystarlord/redatlas/schema"
	"github.com/ridoystarlord/redatlas/utils"
)

// Fields that can drive a query and its coloring.
const (
	FieldRepid   = "RepidName"
	FieldDisease = "DiseaseName"
)

// Result statuses.
const (
	StatusPrompt = "prompt"
	StatusEmpty  = "empty"
	StatusOK     = "ok"
)

// User-facing messages for the non-error empty states.
const (
	MessagePrompt = "Please select a Repid, Disease, or enter a search term."
	MessageEmpty  = "No matching records found."
)

// Row is one distinct region observation joined to its locus and disease.
type Row struct {
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	DiseaseName       string   `json:"disease_name"`
	RepidName         string   `json:"repid_name"`
	Link              string   `json:"link"`
	RepeatLocation    string   `json:"repeat_location"`
	NormalRange       string   `json:"normal_range"`
	IntermediateRange string   `json:"intermediate_range"`
	FullMutationRange string   `json:"full_mutation_range"`
	Frequency         *float64 `json:"frequency"`
}

// Name returns the value of the driving field.
func (r Row) Name(field string) string {
	if field == FieldDisease {
		return r.DiseaseName
	}
	return r.RepidName
}

// Marker is a Row ready to be drawn.
type Marker struct {
	Row
	Color  string  `json:"color"`
	Radius float64 `json:"radius"`
}

// LegendEntry pairs a name with its marker color.
type LegendEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// LatLng is a map position.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Result is the answer to one region query.
type Result struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Field   string            `json:"field,omitempty"`
	Markers []Marker          `json:"markers"`
	Colors  map[string]string `json:"colors"`
	Legend  []LegendEntry     `json:"legend"`
	Center  *LatLng           `json:"center,omitempty"`
}

// Engine runs region queries against the store.
type Engine struct {
	db      *database.DB
	palette []string
	stable  bool
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewEngine returns an Engine coloring markers from cfg. log and m may be nil.
func NewEngine(db *database.DB, cfg config.ColorsConfig, log *zap.Logger, m *metrics.Metrics) *Engine {
	palette := cfg.Palette
	if len(palette) == 0 {
		palette = config.DefaultPalette
	}
	return &Engine{
		db:      db,
		palette: palette,
		stable:  cfg.Stable,
		log:     utils.OrNop(log),
		metrics: metrics.OrDiscard(m),
	}
}

// Regions returns the observations of the named loci or, when repeatIDs is
// empty, of the named diseases. The two filters are never combined. With
// neither set the result is empty and carries the prompt status.
func (e *Engine) Regions(ctx context.Context, repeatIDs, diseases []string) (*Result, error) {
	if len(repeatIDs) == 0 && len(diseases) == 0 {
		e.metrics.RegionQueriesTotal.WithLabelValues("", metrics.OutcomePrompt).Inc()
		return &Result{
			Status:  StatusPrompt,
			Message: MessagePrompt,
			Markers: []Marker{},
			Colors:  map[string]string{},
			Legend:  []LegendEntry{},
		}, nil
	}

	start := time.Now()
	field, rows, err := e.rows(ctx, repeatIDs, diseases)
	e.metrics.RegionQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.metrics.RegionQueriesTotal.WithLabelValues(field, metrics.OutcomeError).Inc()
		return nil, err
	}

	res := e.build(field, rows)
	outcome := metrics.OutcomeMatch
	if res.Status == StatusEmpty {
		outcome = metrics.OutcomeEmpty
	}
	e.metrics.RegionQueriesTotal.WithLabelValues(field, outcome).Inc()
	e.log.Debug("Region query",
		zap.String("field", field),
		zap.Strings("repids", repeatIDs),
		zap.Strings("diseases", diseases),
		zap.Int("rows", len(rows)),
	)
	return res, nil
}

func (e *Engine) rows(ctx context.Context, repeatIDs, diseases []string) (string, []Row, error) {
	q := e.db.WithContext(ctx).
		Table("region AS r").
		Select("DISTINCT r.latitude, r.longitude, COALESCE(d.disease_name, '') AS disease_name, re.repid_name, re.link, " +
			"re.repeat_location, re.normal_range, re.intermediate_range, re.full_mutation_range, r.frequency").
		Joins("JOIN repid re ON re.rep_id = r.rep_id").
		Joins("JOIN disease d ON d.rep_id = re.rep_id")

	field := FieldRepid
	if len(repeatIDs) > 0 {
		q = q.Where("re.repid_name IN ?", repeatIDs)
	} else {
		field = FieldDisease
		q = q.Where("d.disease_name IN ?", diseases)
	}

	var rows []Row
	err := q.Order("re.repid_name, disease_name, r.latitude, r.longitude").Scan(&rows).Error
	if err != nil {
		return field, nil, fmt.Errorf("query regions by %s: %w", field, err)
	}
	return field, rows, nil
}

func (e *Engine) build(field string, rows []Row) *Result {
	res := &Result{
		Field:   field,
		Markers: make([]Marker, 0, len(rows)),
		Legend:  []LegendEntry{},
	}
	if len(rows) == 0 {
		res.Status = StatusEmpty
		res.Message = MessageEmpty
		res.Colors = map[string]string{}
		return res
	}
	res.Status = StatusOK

	if e.stable {
		res.Colors = StableColors(rows, field, e.palette)
	} else {
		res.Colors = AssignColors(rows, field, e.palette)
	}
	for _, n := range DistinctNames(rows, field) {
		res.Legend = append(res.Legend, LegendEntry{Name: n, Color: res.Colors[n]})
	}

	var lat, lng float64
	for _, r := range rows {
		c, ok := res.Colors[r.Name(field)]
		if !ok {
			c = FallbackColor
		}
		res.Markers = append(res.Markers, Marker{Row: r, Color: c, Radius: Radius(r.Frequency)})
		lat += r.Latitude
		lng += r.Longitude
	}
	n := float64(len(rows))
	res.Center = &LatLng{Lat: lat / n, Lng: lng / n}
	return res
}

// Options returns the sorted distinct locus and disease names in the store.
func (e *Engine) Options(ctx context.Context) (*Vocabulary, error) {
	v := &Vocabulary{Repids: []string{}, Diseases: []string{}}
	if !e.db.Migrator().HasTable(&schema.Repid{}) {
		return v, nil
	}
	db := e.db.WithContext(ctx)
	if err := db.Model(&schema.Repid{}).
		Where("repid_name <> ''").Distinct().Order("repid_name").
		Pluck("repid_name", &v.Repids).Error; err != nil {
		return nil, fmt.Errorf("listing loci: %w", err)
	}
	if err := db.Model(&schema.Disease{}).
		Where("disease_name IS NOT NULL AND disease_name <> ''").Distinct().Order("disease_name").
		Pluck("disease_name", &v.Diseases).Error; err != nil {
		return nil, fmt.Errorf("listing diseases: %w", err)
	}
	// Collations differ between drivers; ParseSelection needs byte order.
	sort.Strings(v.Repids)
	sort.Strings(v.Diseases)
	return v, nil
}
