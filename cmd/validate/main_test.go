package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/occurrence-aggregator/internal/dataset"
	"github.com/couchcryptid/occurrence-aggregator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func fixtureSources() dataset.Sources {
	dir := filepath.Join("..", "..", "internal", "domain", "testdata")
	return dataset.Sources{
		OccurrencesPath: filepath.Join(dir, "occurrences.tsv"),
		CantonsPath:     filepath.Join(dir, "cantones.geojson"),
		Occurrences:     domain.DefaultOccurrenceSchema(),
		Cantons:         domain.DefaultCantonSchema(),
		Provinces:       domain.DefaultProvinceSchema(),
	}
}

func square(x0, y0, x1, y1 float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0},
	}}})
}

func TestRun_Fixture(t *testing.T) {
	var out bytes.Buffer

	code := run(&out, fixtureSources(), 0.5)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All validations passed.")
	assert.Contains(t, out.String(), "1 of 11 records have no coordinates")
}

func TestRun_CoverageLimit(t *testing.T) {
	var out bytes.Buffer

	// 1007 (hole), 1009 (offshore) and 1011 (shared border) are outside.
	code := run(&out, fixtureSources(), 0.1)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "30.0% of located records fall outside every canton")
}

func TestRun_LoadFailure(t *testing.T) {
	var out bytes.Buffer
	src := fixtureSources()
	src.CantonsPath = filepath.Join(t.TempDir(), "missing.geojson")

	assert.Equal(t, 1, run(&out, src, 1))
	assert.Contains(t, out.String(), "FATAL")
}

func TestValidateRegions_OrphanCanton(t *testing.T) {
	reg, err := domain.NewRegistry(
		domain.NewRegion(1, "P1", domain.LevelProvince, 0, square(0, 0, 1, 1)),
		domain.NewRegion(2, "P2", domain.LevelProvince, 0, square(1, 0, 2, 1)),
		domain.NewRegion(101, "A", domain.LevelCanton, 1, square(0, 0, 1, 1)),
		domain.NewRegion(301, "Z", domain.LevelCanton, 3, square(1, 0, 2, 1)),
	)
	require.NoError(t, err)

	p := validateRegions(reg)
	require.Len(t, p.errors, 2)
	assert.Contains(t, p.errors[0], "canton 301 (Z) references unknown province 3")
	assert.Contains(t, p.errors[1], "province 2 (P2) has no cantons")
}

func TestValidateRecords(t *testing.T) {
	records := []domain.OccurrenceRecord{
		{SourceID: "1", Point: domain.Point{Lon: -84, Lat: 10}},
		{SourceID: "2", Point: domain.Point{Lon: 200, Lat: 10}},
		{SourceID: "1", Point: domain.NoPoint},
	}

	p := validateRecords(records)
	require.Len(t, p.errors, 2)
	assert.Contains(t, p.errors[0], "outside WGS-84 bounds")
	assert.Contains(t, p.errors[1], `duplicate source id "1"`)
	assert.Equal(t, []string{"1 of 3 records have no coordinates"}, p.notes)
}
