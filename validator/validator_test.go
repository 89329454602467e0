package validator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/database/dbtest"
	"github.com/ridoystarlord/redatlas/loader/loadertest"
	"github.com/ridoystarlord/redatlas/runner"
	"github.com/ridoystarlord/redatlas/schema"
)

func types(fs []Finding) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Type
	}
	return out
}

func TestValidateInputsClean(t *testing.T) {
	loci, coords := loadertest.Dataset(t, t.TempDir())
	res := ValidateInputs(config.SourcesConfig{Loci: loci, Coordinates: coords})

	assert.True(t, res.Valid)
	assert.Equal(t, []string{"unknown_locus"}, types(res.Warnings))
	assert.EqualValues(t, 1, res.Warnings[0].Count)
	require.Len(t, res.Info, 1)
	assert.EqualValues(t, 1, res.Info[0].Count)
}

func TestValidateInputsReportsEveryRow(t *testing.T) {
	dir := t.TempDir()
	loci := loadertest.WriteWorkbook(t, dir, "repid.xlsx", [][]any{
		loadertest.LociHeader,
		{"HTT", "Huntington disease", "https://h.example"},
		{"HTT", "Huntington disease like", "https://h.example"},
	})
	coords := loadertest.WriteWorkbook(t, dir, "coordinate_info.xlsx", [][]any{
		loadertest.CoordinatesHeader,
		{"HTT", "12.34", 1.0},
		{"HTT", "1,2", "high"},
		{"HTT", "1,2", 3.0},
	})

	res := ValidateInputs(config.SourcesConfig{Loci: loci, Coordinates: coords})
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 2, res.Errors[0].Row)
	assert.Equal(t, "Coordinates", res.Errors[0].Column)
	assert.Equal(t, 3, res.Errors[1].Row)
	assert.Equal(t, "Frequency", res.Errors[1].Column)
	assert.Equal(t, []string{"duplicate_locus"}, types(res.Warnings))
}

func TestValidateInputsBlankNames(t *testing.T) {
	dir := t.TempDir()
	loci := loadertest.WriteWorkbook(t, dir, "repid.xlsx", [][]any{
		loadertest.LociHeader,
		{"HTT", "Huntington disease", "https://h.example"},
		{"", "Orphan disease", "https://o.example"},
	})
	coords := loadertest.WriteWorkbook(t, dir, "coordinate_info.xlsx", [][]any{
		loadertest.CoordinatesHeader,
		{"HTT", "1,2", 1.0},
		{},
		{"", "3,4", 1.0},
	})

	res := ValidateInputs(config.SourcesConfig{Loci: loci, Coordinates: coords})
	assert.True(t, res.Valid)
	assert.Equal(t, []string{"blank_locus", "blank_locus"}, types(res.Warnings))
	assert.Equal(t, 3, res.Warnings[0].Row)
	assert.Equal(t, 4, res.Warnings[1].Row)
}

func TestValidateInputsMissingFile(t *testing.T) {
	dir := t.TempDir()
	res := ValidateInputs(config.SourcesConfig{
		Loci:        filepath.Join(dir, "repid.xlsx"),
		Coordinates: filepath.Join(dir, "coordinate_info.xlsx"),
	})
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"input", "input"}, types(res.Errors))
}

func TestCheckEmptyStore(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Reset(context.Background()))

	res, err := NewStoreValidator(db).Check(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Len(t, res.Errors, 3)
}

func TestCheckLoadedStore(t *testing.T) {
	ctx := context.Background()
	loci, coords := loadertest.Dataset(t, t.TempDir())
	db := dbtest.Open(t)
	r := runner.New(db, config.SourcesConfig{Loci: loci, Coordinates: coords}, nil, nil)
	_, err := r.Ingest(ctx, runner.Options{Mode: config.ModeAppend})
	require.NoError(t, err)
	_, err = r.Ingest(ctx, runner.Options{Mode: config.ModeAppend, Force: true})
	require.NoError(t, err)

	// A locus that was never observed.
	require.NoError(t, db.Create(&schema.Repid{RepidName: "FMR1"}).Error)
	// A disease pointing at a key that does not exist.
	missing := uint(9999)
	fragileX := "Fragile X"
	require.NoError(t, db.Create(&schema.Disease{DiseaseName: &fragileX, RepID: &missing}).Error)

	res, err := NewStoreValidator(db).Check(ctx)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"dangling_key"}, types(res.Errors))
	assert.Equal(t, "disease", res.Errors[0].Table)
	assert.Equal(t, []string{"orphaned_rows", "duplicate_locus", "locus_without_regions"}, types(res.Warnings))
	assert.Equal(t, "region", res.Warnings[0].Table)
	assert.Contains(t, res.Warnings[1].Message, "ATXN1, HTT")
	assert.Contains(t, res.Warnings[2].Message, "FMR1")
	require.Len(t, res.Info, 1)
	assert.EqualValues(t, 2, res.Info[0].Count)
}
