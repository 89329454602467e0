package runner_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/database"
	"github.com/ridoystarlord/redatlas/database/dbtest"
	"github.com/ridoystarlord/redatlas/loader"
	"github.com/ridoystarlord/redatlas/loader/loadertest"
	"github.com/ridoystarlord/redatlas/runner"
	"github.com/ridoystarlord/redatlas/schema"
)

func setup(t *testing.T) (*database.DB, config.SourcesConfig) {
	t.Helper()
	loci, coords := loadertest.Dataset(t, t.TempDir())
	return dbtest.Open(t), config.SourcesConfig{Loci: loci, Coordinates: coords}
}

func count(t *testing.T, db *database.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestIngestReplace(t *testing.T) {
	ctx := context.Background()
	db, src := setup(t)
	r := runner.New(db, src, nil, nil)

	run, err := r.Ingest(ctx, runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, schema.StatusSuccess, run.Status)
	assert.Equal(t, config.ModeReplace, run.Mode)
	assert.Equal(t, 2, run.Loci)
	assert.Equal(t, 2, run.Diseases)
	assert.Equal(t, 4, run.Regions)
	assert.Len(t, run.Checksum, 64)

	var atxn1 schema.Repid
	require.NoError(t, db.Where("repid_name = ?", "ATXN1").First(&atxn1).Error)
	assert.Contains(t, atxn1.Link, `<a href="https://a.example/1" target="_blank"><i>Reference</i></a><br>`)

	var ghost schema.Region
	require.NoError(t, db.Where("latitude = ? AND longitude = ?", 0, 0).First(&ghost).Error)
	assert.Nil(t, ghost.RepID, "unknown locus keeps a null key")

	var sca1 schema.Disease
	require.NoError(t, db.Where("disease_name = ?", "Spinocerebellar ataxia 1").First(&sca1).Error)
	require.NotNil(t, sca1.RepID)
	assert.Equal(t, atxn1.RepID, *sca1.RepID)

	// A forced second run recomputes everything instead of accumulating.
	run, err = r.Ingest(ctx, runner.Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, schema.StatusSuccess, run.Status)
	assert.EqualValues(t, 2, count(t, db, &schema.Repid{}))
	assert.EqualValues(t, 2, count(t, db, &schema.Disease{}))
	assert.EqualValues(t, 4, count(t, db, &schema.Region{}))
}

func TestIngestAppendGrowsLoci(t *testing.T) {
	ctx := context.Background()
	db, src := setup(t)
	r := runner.New(db, src, nil, nil)

	_, err := r.Ingest(ctx, runner.Options{Mode: config.ModeAppend})
	require.NoError(t, err)
	run, err := r.Ingest(ctx, runner.Options{Mode: config.ModeAppend, Force: true})
	require.NoError(t, err)

	assert.EqualValues(t, 4, count(t, db, &schema.Repid{}))
	// Disease and region rows are fully determined by the current loci:
	// each spreadsheet row is joined against both copies of its locus.
	assert.EqualValues(t, 4, count(t, db, &schema.Disease{}))
	// ATXN1 x2 rows x2 keys, HTT x1 row x2 keys, GHOST x1 unmatched.
	assert.EqualValues(t, 7, count(t, db, &schema.Region{}))
	assert.Equal(t, 4, run.Loci)
	assert.Equal(t, 7, run.Regions)
}

func TestIngestSkipsUnchangedInputs(t *testing.T) {
	ctx := context.Background()
	db, src := setup(t)
	r := runner.New(db, src, nil, nil)

	first, err := r.Ingest(ctx, runner.Options{})
	require.NoError(t, err)
	second, err := r.Ingest(ctx, runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, schema.StatusSkipped, second.Status)
	assert.Equal(t, first.Checksum, second.Checksum)

	// Switching mode changes the checksum, so append runs.
	third, err := r.Ingest(ctx, runner.Options{Mode: config.ModeAppend})
	require.NoError(t, err)
	assert.Equal(t, schema.StatusSuccess, third.Status)
	assert.EqualValues(t, 4, count(t, db, &schema.Repid{}))

	runs, err := runner.History(ctx, db, runner.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, third.ID, runs[0].ID)

	skipped, err := runner.History(ctx, db, runner.HistoryFilter{Status: schema.StatusSkipped})
	require.NoError(t, err)
	assert.Len(t, skipped, 1)

	logs, err := runner.Logs(ctx, db, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, schema.LevelSuccess, logs[0].Level)
	require.NotNil(t, logs[0].RunID)
	assert.Equal(t, third.ID, *logs[0].RunID)
}

func TestIngestMissingInput(t *testing.T) {
	ctx := context.Background()
	db, src := setup(t)
	require.NoError(t, os.Remove(src.Coordinates))

	run, err := runner.New(db, src, nil, nil).Ingest(ctx, runner.Options{})
	require.ErrorIs(t, err, loader.ErrMissingInput)
	assert.Equal(t, schema.StatusFailed, run.Status)
	assert.NotEmpty(t, run.ErrorMessage)
	assert.EqualValues(t, 0, count(t, db, &schema.Repid{}))

	rep, err := runner.Status(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rep.Failed)
	require.NotNil(t, rep.LastRun)
	assert.Equal(t, schema.StatusFailed, rep.LastRun.Status)
}

func TestIngestMalformedCoordinatesWritesNothing(t *testing.T) {
	ctx := context.Background()
	db, src := setup(t)
	r := runner.New(db, src, nil, nil)
	_, err := r.Ingest(ctx, runner.Options{})
	require.NoError(t, err)

	src.Coordinates = loadertest.WriteWorkbook(t, t.TempDir(), "coordinate_info.xlsx", [][]any{
		loadertest.CoordinatesHeader,
		{"HTT", "1,2", 1.0},
		{"ATXN1", "12.34", 1.0},
	})
	_, err = runner.New(db, src, nil, nil).Ingest(ctx, runner.Options{})
	require.ErrorIs(t, err, loader.ErrFormat)

	// The previous load is untouched.
	assert.EqualValues(t, 2, count(t, db, &schema.Repid{}))
	assert.EqualValues(t, 4, count(t, db, &schema.Region{}))
}

func TestIngestKeepsRowsWithoutLocusName(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := config.SourcesConfig{
		Loci: loadertest.WriteWorkbook(t, dir, "repid.xlsx", [][]any{
			loadertest.LociHeader,
			{"HTT", "", "https://h.example"},
			{"", "Orphan disease", "https://o.example"},
		}),
		Coordinates: loadertest.WriteWorkbook(t, dir, "coordinate_info.xlsx", [][]any{
			loadertest.CoordinatesHeader,
			{"HTT", "1,2", 1.0},
			{"", "3,4", 1.0},
		}),
	}
	db := dbtest.Open(t)

	run, err := runner.New(db, src, nil, nil).Ingest(ctx, runner.Options{})
	require.NoError(t, err)
	assert.Equal(t, schema.StatusSuccess, run.Status)
	assert.Equal(t, 2, run.Loci)
	assert.Equal(t, 2, run.Diseases)
	assert.Equal(t, 2, run.Regions)

	var region schema.Region
	require.NoError(t, db.Where("latitude = ?", 3).First(&region).Error)
	assert.Nil(t, region.RepID, "blank name joins no locus")

	var orphan schema.Disease
	require.NoError(t, db.Where("disease_name = ?", "Orphan disease").First(&orphan).Error)
	assert.Nil(t, orphan.RepID)

	var htt schema.Disease
	require.NoError(t, db.Where("rep_id IS NOT NULL").First(&htt).Error)
	assert.Nil(t, htt.DiseaseName, "empty disease cell is stored as NULL")
}

func TestIngestRejectsUnknownMode(t *testing.T) {
	db, src := setup(t)
	_, err := runner.New(db, src, nil, nil).Ingest(context.Background(), runner.Options{Mode: "merge"})
	assert.Error(t, err)
}

func TestStatusOnFreshStore(t *testing.T) {
	db, _ := setup(t)
	rep, err := runner.Status(context.Background(), db)
	require.NoError(t, err)
	assert.Nil(t, rep.LastRun)
	assert.Len(t, rep.Tables, 3)
}
