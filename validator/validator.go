// Package validator reports problems in the spreadsheets before ingestion
// and in the loaded store afterwards.
package validator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/database"
	"github.com/ridoystarlord/redatlas/loader"
	"github.com/ridoystarlord/redatlas/schema"
)

// Severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Finding is a single reported problem.
type Finding struct {
	Type     string `json:"type"`
	Table    string `json:"table,omitempty"`
	Row      int    `json:"row,omitempty"`
	Column   string `json:"column,omitempty"`
	Count    int64  `json:"count,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Result groups findings by severity.
type Result struct {
	Valid    bool      `json:"valid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
	Info     []Finding `json:"info"`
}

func newResult() *Result {
	return &Result{Valid: true, Errors: []Finding{}, Warnings: []Finding{}, Info: []Finding{}}
}

func (r *Result) add(f Finding) {
	switch f.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, f)
		r.Valid = false
	case SeverityWarning:
		r.Warnings = append(r.Warnings, f)
	default:
		r.Info = append(r.Info, f)
	}
}

// ValidateInputs parses both spreadsheets without touching the store and
// reports every malformed row, plus coordinate rows naming loci the locus
// sheet does not define.
func ValidateInputs(src config.SourcesConfig) *Result {
	res := newResult()

	loci, err := loader.ReadLoci(src.Loci)
	reportReadError(res, src.Loci, err)
	coords, err := loader.ReadCoordinates(src.Coordinates)
	reportReadError(res, src.Coordinates, err)

	if loci != nil {
		seen := make(map[string]int)
		for _, l := range loci {
			if l.RepidName == "" {
				res.add(blankLocus(src.Loci, l.Line))
				continue
			}
			seen[l.RepidName]++
		}
		for _, name := range sortedKeys(seen) {
			if seen[name] > 1 {
				res.add(Finding{
					Type:     "duplicate_locus",
					Table:    src.Loci,
					Count:    int64(seen[name]),
					Message:  fmt.Sprintf("locus %q is listed %d times; its observations will be repeated per row", name, seen[name]),
					Severity: SeverityWarning,
				})
			}
		}
		if coords != nil {
			unknown := make(map[string]int)
			var nullFreq int64
			for _, c := range coords {
				if c.RepidName == "" {
					res.add(blankLocus(src.Coordinates, c.Line))
				} else if _, ok := seen[c.RepidName]; !ok {
					unknown[c.RepidName]++
				}
				if c.Frequency == nil {
					nullFreq++
				}
			}
			for _, name := range sortedKeys(unknown) {
				res.add(Finding{
					Type:     "unknown_locus",
					Table:    src.Coordinates,
					Count:    int64(unknown[name]),
					Message:  fmt.Sprintf("%d coordinate row(s) name %q, which is not in the locus sheet", unknown[name], name),
					Severity: SeverityWarning,
				})
			}
			if nullFreq > 0 {
				res.add(Finding{
					Type:     "null_frequency",
					Table:    src.Coordinates,
					Count:    nullFreq,
					Message:  fmt.Sprintf("%d coordinate row(s) have no frequency and will use the fallback radius", nullFreq),
					Severity: SeverityInfo,
				})
			}
		}
	}
	return res
}

func blankLocus(table string, line int) Finding {
	return Finding{
		Type:     "blank_locus",
		Table:    table,
		Row:      line,
		Column:   loader.ColRepidName,
		Message:  "row has no locus name; it is loaded without a locus key",
		Severity: SeverityWarning,
	}
}

func reportReadError(res *Result, path string, err error) {
	if err == nil {
		return
	}
	var rowErrs []*loader.RowError
	collectRowErrors(err, &rowErrs)
	if len(rowErrs) == 0 {
		res.add(Finding{Type: "input", Table: path, Message: err.Error(), Severity: SeverityError})
		return
	}
	for _, re := range rowErrs {
		res.add(Finding{
			Type:     "format",
			Table:    re.Source,
			Row:      re.Row,
			Column:   re.Column,
			Message:  re.Err.Error(),
			Severity: SeverityError,
		})
	}
}

// collectRowErrors walks an error tree and gathers every RowError in it.
func collectRowErrors(err error, out *[]*loader.RowError) {
	switch u := err.(type) {
	case *loader.RowError:
		*out = append(*out, u)
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			collectRowErrors(e, out)
		}
	case interface{ Unwrap() error }:
		if inner := u.Unwrap(); inner != nil {
			collectRowErrors(inner, out)
		}
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StoreValidator checks the integrity of a loaded store.
type StoreValidator struct {
	db *database.DB
}

// NewStoreValidator returns a validator for db.
func NewStoreValidator(db *database.DB) *StoreValidator {
	return &StoreValidator{db: db}
}

// Check inspects the loaded tables. A missing table is an error; the other
// findings describe data that the queries tolerate.
func (v *StoreValidator) Check(ctx context.Context) (*Result, error) {
	res := newResult()
	for i, m := range schema.DataModels() {
		if !v.db.Migrator().HasTable(m) {
			res.add(Finding{
				Type:     "missing_table",
				Table:    schema.TableNames()[i],
				Message:  "table does not exist; run ingest first",
				Severity: SeverityError,
			})
		}
	}
	if !res.Valid {
		return res, nil
	}

	db := v.db.WithContext(ctx)
	for _, t := range []string{schema.Disease{}.TableName(), schema.Region{}.TableName()} {
		var orphans int64
		if err := db.Table(t).Where("rep_id IS NULL").Count(&orphans).Error; err != nil {
			return nil, fmt.Errorf("counting orphaned %s rows: %w", t, err)
		}
		if orphans > 0 {
			res.add(Finding{
				Type:     "orphaned_rows",
				Table:    t,
				Count:    orphans,
				Message:  fmt.Sprintf("%d row(s) are not linked to any locus and never appear on the map", orphans),
				Severity: SeverityWarning,
			})
		}

		var dangling int64
		if err := db.Table(t+" AS x").
			Joins("LEFT JOIN repid re ON re.rep_id = x.rep_id").
			Where("x.rep_id IS NOT NULL AND re.rep_id IS NULL").
			Count(&dangling).Error; err != nil {
			return nil, fmt.Errorf("counting dangling %s rows: %w", t, err)
		}
		if dangling > 0 {
			res.add(Finding{
				Type:     "dangling_key",
				Table:    t,
				Count:    dangling,
				Message:  fmt.Sprintf("%d row(s) reference a locus key that no longer exists", dangling),
				Severity: SeverityError,
			})
		}
	}

	var dups []string
	if err := db.Model(&schema.Repid{}).Where("repid_name <> ''").
		Group("repid_name").Having("COUNT(*) > 1").Order("repid_name").
		Pluck("repid_name", &dups).Error; err != nil {
		return nil, fmt.Errorf("finding duplicated loci: %w", err)
	}
	if len(dups) > 0 {
		res.add(Finding{
			Type:     "duplicate_locus",
			Table:    schema.Repid{}.TableName(),
			Count:    int64(len(dups)),
			Message:  "loci stored more than once (append ingestion): " + strings.Join(dups, ", "),
			Severity: SeverityWarning,
		})
	}

	var unnamed int64
	if err := db.Model(&schema.Repid{}).Where("repid_name = ''").Count(&unnamed).Error; err != nil {
		return nil, fmt.Errorf("counting unnamed loci: %w", err)
	}
	if unnamed > 0 {
		res.add(Finding{
			Type:     "blank_locus",
			Table:    schema.Repid{}.TableName(),
			Count:    unnamed,
			Message:  fmt.Sprintf("%d locus row(s) have no name and cannot be selected", unnamed),
			Severity: SeverityWarning,
		})
	}

	var bare []string
	if err := db.Table("repid AS re").
		Where("re.repid_name <> ''").
		Where("NOT EXISTS (SELECT 1 FROM region r WHERE r.rep_id = re.rep_id)").
		Distinct().Order("re.repid_name").
		Pluck("re.repid_name", &bare).Error; err != nil {
		return nil, fmt.Errorf("finding loci without regions: %w", err)
	}
	if len(bare) > 0 {
		res.add(Finding{
			Type:     "locus_without_regions",
			Table:    schema.Repid{}.TableName(),
			Count:    int64(len(bare)),
			Message:  "loci with no observations: " + strings.Join(bare, ", "),
			Severity: SeverityWarning,
		})
	}

	var nullFreq int64
	if err := db.Model(&schema.Region{}).Where("frequency IS NULL").Count(&nullFreq).Error; err != nil {
		return nil, fmt.Errorf("counting null frequencies: %w", err)
	}
	if nullFreq > 0 {
		res.add(Finding{
			Type:     "null_frequency",
			Table:    schema.Region{}.TableName(),
			Count:    nullFreq,
			Message:  fmt.Sprintf("%d observation(s) have no frequency", nullFreq),
			Severity: SeverityInfo,
		})
	}
	return res, nil
}
