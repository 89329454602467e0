package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/database"
	"github.com/ridoystarlord/redatlas/database/dbtest"
	"github.com/ridoystarlord/redatlas/loader/loadertest"
	"github.com/ridoystarlord/redatlas/query"
	"github.com/ridoystarlord/redatlas/runner"
)

func loaded(t *testing.T) *database.DB {
	t.Helper()
	loci, coords := loadertest.Dataset(t, t.TempDir())
	db := dbtest.Open(t)
	_, err := runner.New(db, config.SourcesConfig{Loci: loci, Coordinates: coords}, nil, nil).
		Ingest(context.Background(), runner.Options{})
	require.NoError(t, err)
	return db
}

func TestRegionsByLocus(t *testing.T) {
	e := query.NewEngine(loaded(t), config.ColorsConfig{}, nil, nil)

	res, err := e.Regions(context.Background(), []string{"ATXN1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, query.StatusOK, res.Status)
	assert.Equal(t, query.FieldRepid, res.Field)
	require.Len(t, res.Markers, 2)
	for _, m := range res.Markers {
		assert.Equal(t, "ATXN1", m.RepidName)
		assert.Equal(t, "Spinocerebellar ataxia 1", m.DiseaseName)
		assert.Equal(t, "39-91", m.FullMutationRange)
		assert.Equal(t, config.DefaultPalette[0], m.Color)
	}

	// Rows are ordered by latitude within a locus.
	assert.Equal(t, 12.34, res.Markers[0].Latitude)
	assert.Equal(t, 13.5, res.Markers[0].Radius)
	assert.Equal(t, 48.85, res.Markers[1].Latitude)
	assert.Nil(t, res.Markers[1].Frequency)
	assert.Equal(t, 3.0, res.Markers[1].Radius)

	assert.Equal(t, []query.LegendEntry{{Name: "ATXN1", Color: config.DefaultPalette[0]}}, res.Legend)
	require.NotNil(t, res.Center)
	assert.InDelta(t, (12.34+48.85)/2, res.Center.Lat, 1e-9)
	assert.InDelta(t, (-56.78+2.35)/2, res.Center.Lng, 1e-9)
}

func TestRegionsLocusFilterWins(t *testing.T) {
	ctx := context.Background()
	e := query.NewEngine(loaded(t), config.ColorsConfig{}, nil, nil)

	both, err := e.Regions(ctx, []string{"ATXN1"}, []string{"Huntington disease"})
	require.NoError(t, err)
	only, err := e.Regions(ctx, []string{"ATXN1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, only, both)
}

func TestRegionsByDisease(t *testing.T) {
	e := query.NewEngine(loaded(t), config.ColorsConfig{Palette: []string{"red", "blue"}}, nil, nil)

	res, err := e.Regions(context.Background(), nil, []string{"Spinocerebellar ataxia 1", "Huntington disease"})
	require.NoError(t, err)
	assert.Equal(t, query.FieldDisease, res.Field)
	assert.Len(t, res.Markers, 3)
	assert.Equal(t, map[string]string{
		"Huntington disease":       "red",
		"Spinocerebellar ataxia 1": "blue",
	}, res.Colors)
}

func TestRegionsEmptyStates(t *testing.T) {
	ctx := context.Background()
	e := query.NewEngine(loaded(t), config.ColorsConfig{}, nil, nil)

	res, err := e.Regions(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, query.StatusPrompt, res.Status)
	assert.Equal(t, query.MessagePrompt, res.Message)
	assert.Empty(t, res.Markers)

	res, err = e.Regions(ctx, []string{"GHOST"}, nil)
	require.NoError(t, err)
	assert.Equal(t, query.StatusEmpty, res.Status)
	assert.Equal(t, query.MessageEmpty, res.Message)
	assert.Nil(t, res.Center)
}

func TestOptions(t *testing.T) {
	ctx := context.Background()
	e := query.NewEngine(loaded(t), config.ColorsConfig{}, nil, nil)

	v, err := e.Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ATXN1", "HTT"}, v.Repids)
	assert.Equal(t, []string{"Huntington disease", "Spinocerebellar ataxia 1"}, v.Diseases)

	empty, err := query.NewEngine(dbtest.Open(t), config.ColorsConfig{}, nil, nil).Options(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Repids)
}
