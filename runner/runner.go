// Package runner executes the ingestion pipeline that turns the locus and
// coordinate spreadsheets into the repid, disease and region tables.
package runner

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/database"
	"github.com/ridoystarlord/redatlas/loader"
	"github.com/ridoystarlord/redatlas/metrics"
	"github.com/ridoystarlord/redatlas/schema"
	"github.com/ridoystarlord/redatlas/utils"
)

const batchSize = 500

// Options controls a single ingestion run.
type Options struct {
	// Mode is config.ModeReplace or config.ModeAppend. Empty means replace.
	Mode string
	// Force ingests even when the inputs match the last successful run.
	Force bool
}

// Runner loads spreadsheets into the store.
type Runner struct {
	db      *database.DB
	sources config.SourcesConfig
	log     *zap.Logger
	metrics *metrics.Metrics
	user    string
}

// New returns a Runner reading the given sources. log and m may be nil.
func New(db *database.DB, sources config.SourcesConfig, log *zap.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		db:      db,
		sources: sources,
		log:     utils.OrNop(log),
		metrics: metrics.OrDiscard(m),
		user:    currentUser(),
	}
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// input is the fully parsed pair of spreadsheets.
type input struct {
	loci     []loader.LocusRow
	coords   []loader.CoordinateRow
	checksum string
}

func (r *Runner) read(mode string) (*input, error) {
	loci, err := loader.ReadLoci(r.sources.Loci)
	if err != nil {
		return nil, fmt.Errorf("reading loci: %w", err)
	}
	coords, err := loader.ReadCoordinates(r.sources.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("reading coordinates: %w", err)
	}
	sum, err := checksum(mode, r.sources.Loci, r.sources.Coordinates)
	if err != nil {
		return nil, err
	}
	return &input{loci: loci, coords: coords, checksum: sum}, nil
}

// checksum hashes the mode and the raw bytes of every input file.
func checksum(mode string, paths ...string) (string, error) {
	h := sha256.New()
	io.WriteString(h, mode)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
		h.Write([]byte{0})
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", p, err)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Ingest runs the pipeline once and returns the recorded run. Both
// spreadsheets are parsed completely before the store is touched, so a
// malformed row aborts the run with nothing written. The three tables are
// rewritten in a single transaction.
func (r *Runner) Ingest(ctx context.Context, opts Options) (*schema.IngestRun, error) {
	mode := opts.Mode
	if mode == "" {
		mode = config.ModeReplace
	}
	if mode != config.ModeReplace && mode != config.ModeAppend {
		return nil, fmt.Errorf("unknown ingest mode %q", mode)
	}
	if err := r.db.Migrate(ctx); err != nil {
		return nil, err
	}

	run := &schema.IngestRun{
		StartedAt:  time.Now(),
		ExecutedBy: r.user,
		Mode:       mode,
	}
	r.activity(ctx, nil, schema.LevelInfo, "Starting ingestion", fmt.Sprintf("mode=%s loci=%s coordinates=%s", mode, r.sources.Loci, r.sources.Coordinates))

	in, err := r.read(mode)
	if err != nil {
		return r.fail(ctx, run, err)
	}
	run.Checksum = in.checksum

	if !opts.Force {
		last, err := LastSuccess(ctx, r.db)
		if err != nil {
			return r.fail(ctx, run, err)
		}
		if last != nil && last.Checksum == in.checksum {
			run.Status = schema.StatusSkipped
			run.Loci, run.Diseases, run.Regions = last.Loci, last.Diseases, last.Regions
			r.finish(ctx, run)
			r.activity(ctx, &run.ID, schema.LevelWarn, "Ingestion skipped", fmt.Sprintf("inputs unchanged since run %d", last.ID))
			r.log.Info("Inputs unchanged, skipping ingestion", zap.Uint("last_run", last.ID))
			return run, nil
		}
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.write(tx, mode, in, run)
	})
	if err != nil {
		return r.fail(ctx, run, err)
	}

	run.Status = schema.StatusSuccess
	r.finish(ctx, run)
	r.activity(ctx, &run.ID, schema.LevelSuccess, "Ingestion completed", fmt.Sprintf("loci=%d diseases=%d regions=%d duration=%s", run.Loci, run.Diseases, run.Regions, run.Duration))
	r.metrics.IngestedRows.WithLabelValues(schema.Repid{}.TableName()).Set(float64(run.Loci))
	r.metrics.IngestedRows.WithLabelValues(schema.Disease{}.TableName()).Set(float64(run.Diseases))
	r.metrics.IngestedRows.WithLabelValues(schema.Region{}.TableName()).Set(float64(run.Regions))
	r.log.Info("Ingestion completed",
		zap.String("mode", mode),
		zap.Int("loci", run.Loci),
		zap.Int("diseases", run.Diseases),
		zap.Int("regions", run.Regions),
		zap.Duration("duration", run.Duration),
	)
	return run, nil
}

func (r *Runner) write(tx *gorm.DB, mode string, in *input, run *schema.IngestRun) error {
	all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := all.Delete(&schema.Region{}).Error; err != nil {
		return fmt.Errorf("clearing regions: %w", err)
	}
	if err := all.Delete(&schema.Disease{}).Error; err != nil {
		return fmt.Errorf("clearing diseases: %w", err)
	}
	if mode == config.ModeReplace {
		if err := all.Delete(&schema.Repid{}).Error; err != nil {
			return fmt.Errorf("clearing loci: %w", err)
		}
	}

	repids := make([]schema.Repid, len(in.loci))
	for i, l := range in.loci {
		repids[i] = schema.Repid{
			RepidName:         l.RepidName,
			Link:              l.Link,
			RepeatLocation:    l.RepeatLocation,
			NormalRange:       l.NormalRange,
			IntermediateRange: l.IntermediateRange,
			FullMutationRange: l.FullMutationRange,
		}
	}
	if err := createAll(tx, repids); err != nil {
		return fmt.Errorf("inserting loci: %w", err)
	}

	keys, err := loadKeys(tx)
	if err != nil {
		return err
	}

	var diseases []schema.Disease
	for _, l := range in.loci {
		name := nullable(l.DiseaseName)
		for _, k := range keys.lookup(l.RepidName) {
			diseases = append(diseases, schema.Disease{DiseaseName: name, RepID: k})
		}
	}
	if err := createAll(tx, diseases); err != nil {
		return fmt.Errorf("inserting diseases: %w", err)
	}

	var regions []schema.Region
	unmatched := 0
	for _, c := range in.coords {
		ks := keys.lookup(c.RepidName)
		if ks[0] == nil {
			unmatched++
		}
		for _, k := range ks {
			regions = append(regions, schema.Region{
				Latitude:  c.Latitude,
				Longitude: c.Longitude,
				RepID:     k,
				Frequency: c.Frequency,
			})
		}
	}
	if err := createAll(tx, regions); err != nil {
		return fmt.Errorf("inserting regions: %w", err)
	}
	if unmatched > 0 {
		r.log.Warn("Coordinate rows name unknown loci", zap.Int("rows", unmatched))
	}

	var total int64
	if err := tx.Model(&schema.Repid{}).Count(&total).Error; err != nil {
		return fmt.Errorf("counting loci: %w", err)
	}
	run.Loci = int(total)
	run.Diseases = len(diseases)
	run.Regions = len(regions)
	return nil
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(&rows, batchSize).Error
}

// locusKeys maps a locus name to every key the store assigned to it. After
// an append the same name owns several keys.
type locusKeys map[string][]uint

func loadKeys(tx *gorm.DB) (locusKeys, error) {
	var rows []schema.Repid
	if err := tx.Select("rep_id", "repid_name").Order("rep_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reading locus keys: %w", err)
	}
	keys := make(locusKeys, len(rows))
	for _, r := range rows {
		if r.RepidName == "" {
			continue
		}
		keys[r.RepidName] = append(keys[r.RepidName], r.RepID)
	}
	return keys, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// lookup left-joins name against the keys: one entry per key, or a single
// nil entry when the name is unknown or blank. Blank names never join, the
// same way a missing value never equals another.
func (k locusKeys) lookup(name string) []*uint {
	ids := k[name]
	if len(ids) == 0 {
		return []*uint{nil}
	}
	out := make([]*uint, len(ids))
	for i := range ids {
		out[i] = &ids[i]
	}
	return out
}

func (r *Runner) fail(ctx context.Context, run *schema.IngestRun, err error) (*schema.IngestRun, error) {
	run.Status = schema.StatusFailed
	run.ErrorMessage = err.Error()
	run.Loci, run.Diseases, run.Regions = 0, 0, 0
	r.finish(ctx, run)
	r.activity(ctx, &run.ID, schema.LevelError, "Ingestion failed", err.Error())
	r.log.Error("Ingestion failed", zap.String("mode", run.Mode), zap.Error(err))
	return run, err
}

// finish stamps the duration and records the run. Recording is best effort
// so the original error, if any, is what the caller sees.
func (r *Runner) finish(ctx context.Context, run *schema.IngestRun) {
	run.Duration = time.Since(run.StartedAt)
	r.metrics.IngestRunsTotal.WithLabelValues(run.Mode, run.Status).Inc()
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		r.log.Warn("Recording ingest run", zap.Error(err))
	}
}

func (r *Runner) activity(ctx context.Context, runID *uint, level, message, details string) {
	entry := &schema.IngestLog{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		User:      r.user,
		Details:   details,
	}
	if runID != nil && *runID != 0 {
		id := *runID
		entry.RunID = &id
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Warn("Writing ingest log", zap.Error(err))
	}
}

// LastSuccess returns the newest successful run, or nil if there is none.
func LastSuccess(ctx context.Context, db *database.DB) (*schema.IngestRun, error) {
	var run schema.IngestRun
	err := db.WithContext(ctx).Where("status = ?", schema.StatusSuccess).Order("id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last ingest run: %w", err)
	}
	return &run, nil
}
