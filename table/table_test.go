package table

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/redatlas/config"
)

const population = "Locus\tPopulation\tAlleleClass\tCount\n" +
	"X\tP1\tnormal\t4\n" +
	"X\tP2\tnormal\t7\n" +
	"Y\tP1\tfull\t1\n"

func parse(t *testing.T, text string) *Table {
	t.Helper()
	tbl, err := Parse("Population Table", strings.NewReader(text))
	require.NoError(t, err)
	return tbl
}

func column(tbl *Table, name string) []string {
	idx := tbl.Index(name)
	var out []string
	for _, r := range tbl.Rows {
		out = append(out, r[idx])
	}
	return out
}

func TestParse(t *testing.T) {
	tbl := parse(t, "\ufeff Locus \tPopulation\nX\tP1\n")
	assert.Equal(t, []string{"Locus", "Population"}, tbl.Columns)
	assert.Equal(t, 1, tbl.Len())

	_, err := Parse("empty", strings.NewReader(""))
	assert.Error(t, err)

	_, err = Parse("ragged", strings.NewReader("A\tB\n1\n"))
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	tbl := parse(t, population)
	allow := DefaultFilters

	tests := map[string]struct {
		q         Query
		wantLocus []string
		wantPop   []string
	}{
		"no filter": {
			q:         Query{},
			wantLocus: []string{"X", "X", "Y"},
			wantPop:   []string{"P1", "P2", "P1"},
		},
		"and across columns": {
			q:         Query{Selections: map[string][]string{"Locus": {"X"}, "Population": {"P1"}}},
			wantLocus: []string{"X"},
			wantPop:   []string{"P1"},
		},
		"or within column": {
			q:         Query{Selections: map[string][]string{"Population": {"P1", "P2"}, "locus": {"X"}}},
			wantLocus: []string{"X", "X"},
			wantPop:   []string{"P1", "P2"},
		},
		"empty selection ignored": {
			q:         Query{Selections: map[string][]string{"Locus": {}}},
			wantLocus: []string{"X", "X", "Y"},
			wantPop:   []string{"P1", "P2", "P1"},
		},
		"non filter column ignored": {
			q:         Query{Selections: map[string][]string{"Count": {"4"}}},
			wantLocus: []string{"X", "X", "Y"},
			wantPop:   []string{"P1", "P2", "P1"},
		},
		"text terms are anded": {
			q:         Query{Text: "x, p1"},
			wantLocus: []string{"X"},
			wantPop:   []string{"P1"},
		},
		"text restricted to columns": {
			q:         Query{Text: "P", SearchColumns: []string{"Locus"}},
			wantLocus: nil,
			wantPop:   nil,
		},
		"text plus selection": {
			q:         Query{Text: "full", Selections: map[string][]string{"Population": {"P1"}}},
			wantLocus: []string{"Y"},
			wantPop:   []string{"P1"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := tbl.Filter(allow, tc.q)
			assert.Equal(t, tc.wantLocus, column(got, "Locus"))
			assert.Equal(t, tc.wantPop, column(got, "Population"))
		})
	}
	assert.Equal(t, 3, tbl.Len(), "filtering leaves the source table alone")
}

func TestFilterFreeTextAcrossColumns(t *testing.T) {
	tbl := parse(t, "Locus\tPopulation\nATXN1\tP1\nATXN1\tP2\nHTT\tP1\n")
	got := tbl.Filter(DefaultFilters, Query{Text: "ATXN1,P1"})
	require.Equal(t, 1, got.Len())
	assert.Equal(t, []string{"ATXN1", "P1"}, got.Rows[0])
}

func TestActiveFiltersAndDistinct(t *testing.T) {
	tbl := parse(t, population)
	assert.Equal(t, []string{"Locus", "Population", "AlleleClass"}, tbl.ActiveFilters(DefaultFilters))
	assert.Equal(t, []string{"P1", "P2"}, tbl.DistinctValues("population"))
	assert.Nil(t, tbl.DistinctValues("Superpopulation"))
}

func TestWriteTSVEchoesFilteredView(t *testing.T) {
	tbl := parse(t, population)
	var buf bytes.Buffer
	require.NoError(t, tbl.Filter(DefaultFilters, Query{Selections: map[string][]string{"Locus": {"X"}}}).WriteTSV(&buf))
	assert.Equal(t, "Locus\tPopulation\tAlleleClass\tCount\nX\tP1\tnormal\t4\nX\tP2\tnormal\t7\n", buf.String())
}

func TestWriteTSVKeepsCellText(t *testing.T) {
	text := "Locus\tPopulation\tNote\n" +
		"X\t EUR\tsays \"hi\"\n" +
		"Y\tAFR \t5\" tall\n"
	tbl := parse(t, text)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteTSV(&buf))
	assert.Equal(t, text, buf.String())

	again := parse(t, buf.String())
	assert.Equal(t, tbl.Rows, again.Rows)
}

func TestWriteTSVQuotesEmbeddedSeparators(t *testing.T) {
	tbl := &Table{Name: "t", Columns: []string{"A", "B"}, Rows: [][]string{{"a\tb", "line\n\"two\""}}}
	var buf bytes.Buffer
	require.NoError(t, tbl.WriteTSV(&buf))
	assert.Equal(t, "A\tB\n\"a\tb\"\t\"line\n\"\"two\"\"\"\n", buf.String())
}

func TestRecords(t *testing.T) {
	tbl := parse(t, "A\tB\n1\t2\n")
	assert.Equal(t, []map[string]string{{"A": "1", "B": "2"}}, tbl.Records())
}

func TestExportFormats(t *testing.T) {
	tbl := parse(t, "A\tB\n1\t2,3\n")

	var buf bytes.Buffer
	require.NoError(t, tbl.Export(&buf, FormatCSV))
	assert.Equal(t, "A,B\n1,\"2,3\"\n", buf.String())

	buf.Reset()
	require.NoError(t, tbl.Export(&buf, FormatJSON))
	assert.JSONEq(t, `[{"A":"1","B":"2,3"}]`, buf.String())

	assert.Error(t, tbl.Export(&buf, "xml"))
	assert.Equal(t, "text/tab-separated-values", ContentType(FormatTSV))
	assert.Empty(t, ContentType("xml"))
}

func TestParseS3URL(t *testing.T) {
	b, k, ok := ParseS3URL("s3://atlas/tables/summary_all.tsv")
	assert.True(t, ok)
	assert.Equal(t, "atlas", b)
	assert.Equal(t, "tables/summary_all.tsv", k)

	for _, p := range []string{"summary_all.tsv", "s3://atlas", "s3:///key", "s3://atlas/"} {
		_, _, ok := ParseS3URL(p)
		assert.False(t, ok, p)
	}
}

type fakeS3 map[string]string

func (f fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	local := filepath.Join(dir, "summary_all.tsv")
	require.NoError(t, os.WriteFile(local, []byte("Locus\tCount\nHTT\t3\n"), 0o644))

	cfg := config.Default()
	cfg.Tables = []config.TableSource{
		{Name: "Summary Table", Path: local},
		{Name: "Population Table", Path: "s3://atlas/all_REDatlas.tsv"},
		{Name: "Gone", Path: filepath.Join(dir, "gone.tsv")},
		{Name: "Gone Remote", Path: "s3://atlas/gone.tsv"},
	}
	c := NewCatalog(cfg, nil, WithS3Client(fakeS3{"atlas/all_REDatlas.tsv": population}))
	assert.Equal(t, []string{"Summary Table", "Population Table", "Gone", "Gone Remote"}, c.Names())

	tbl, err := c.Load(ctx, "Summary Table")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"HTT", "3"}}, tbl.Rows)

	tbl, err = c.Load(ctx, "Population Table")
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	for _, name := range []string{"Gone", "Gone Remote", "Undeclared"} {
		_, err = c.Load(ctx, name)
		assert.True(t, errors.Is(err, ErrNotFound), name)
	}
}
