package domain

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// square returns a one-part boundary covering [x0,x1]×[y0,y1].
func square(x0, y0, x1, y1 float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0},
	}}})
}

func loadFixtureCantons(t *testing.T) []Region {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", "cantones.geojson"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	cantons, err := DecodeRegionLayer(f, LevelCanton, DefaultCantonSchema())
	require.NoError(t, err)
	return cantons
}

func fixtureRegistry(t *testing.T) *Registry {
	t.Helper()
	cantons := loadFixtureCantons(t)
	provinces, err := DeriveProvinces(cantons)
	require.NoError(t, err)
	reg, err := NewRegistry(append(provinces, cantons...)...)
	require.NoError(t, err)
	return reg
}

func TestRegionContains(t *testing.T) {
	r := NewRegion(101, "Alpha", LevelCanton, 1, square(0, 0, 10, 10))

	assert.True(t, r.Contains(Point{Lon: 5, Lat: 5}))
	assert.False(t, r.Contains(Point{Lon: 15, Lat: 5}), "outside bounding box")
	assert.False(t, r.Contains(Point{Lon: 10, Lat: 5}), "on edge")
	assert.False(t, r.Contains(Point{Lon: 0, Lat: 0}), "on vertex")
	assert.False(t, r.Contains(NoPoint))
}

func TestRegionContains_Hole(t *testing.T) {
	boundary := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}})
	r := NewRegion(1, "Donut", LevelProvince, 0, boundary)

	assert.True(t, r.Contains(Point{Lon: 2, Lat: 2}))
	assert.False(t, r.Contains(Point{Lon: 5, Lat: 5}), "inside hole")
	assert.False(t, r.Contains(Point{Lon: 4, Lat: 5}), "on hole ring")
}

func TestRegionContains_SharedEdgeCountedAtMostOnce(t *testing.T) {
	left := NewRegion(101, "Left", LevelCanton, 1, square(0, 0, 1, 1))
	right := NewRegion(102, "Right", LevelCanton, 1, square(1, 0, 2, 1))

	p := Point{Lon: 1, Lat: 0.5}
	hits := 0
	for _, r := range []Region{left, right} {
		if r.Contains(p) {
			hits++
		}
	}
	assert.LessOrEqual(t, hits, 1)
}

func TestRegionContains_EmptyBoundary(t *testing.T) {
	r := NewRegion(1, "Nowhere", LevelProvince, 0, nil)
	assert.False(t, r.Contains(Point{Lon: 0, Lat: 0}))
}

func TestDecodeRegionLayer_Fixture(t *testing.T) {
	cantons := loadFixtureCantons(t)
	require.Len(t, cantons, 4)

	codes := make([]int, len(cantons))
	for i, c := range cantons {
		codes[i] = c.Code
		assert.Equal(t, LevelCanton, c.Level)
	}
	assert.Equal(t, []int{101, 102, 201, 202}, codes)

	assert.Equal(t, "Alpha", cantons[0].Name)
	assert.Equal(t, 1, cantons[0].ParentCode)
	assert.Equal(t, "San José", cantons[0].ParentName)

	// Gamma has a string code and no CODPROV: parent comes from code/100.
	gamma := cantons[2]
	assert.Equal(t, 201, gamma.Code)
	assert.Equal(t, 2, gamma.ParentCode)
	assert.Equal(t, 2, gamma.Boundary.NumPolygons())
	assert.True(t, gamma.Contains(Point{Lon: -84.75, Lat: 10.25}), "islet part")

	delta := cantons[3]
	assert.False(t, delta.Contains(Point{Lon: -82.5, Lat: 10.5}), "hole")
	assert.True(t, delta.Contains(Point{Lon: -82.1, Lat: 10.1}))
}

func TestDecodeRegionLayer_Errors(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
		cause error
	}{
		{
			name:  "not json",
			body:  "{{",
			cause: ErrMalformed,
		},
		{
			name:  "not a collection",
			body:  `{"type":"Feature","properties":{},"geometry":null}`,
			field: "type",
			cause: ErrMalformed,
		},
		{
			name:  "missing code",
			body:  `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"NCANTON":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`,
			field: "CODNUM",
			cause: ErrMissingAttribute,
		},
		{
			name:  "fractional code",
			body:  `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"CODNUM":1.5,"NCANTON":"A"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`,
			field: "CODNUM",
			cause: ErrInvalidValue,
		},
		{
			name:  "missing name",
			body:  `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"CODNUM":1},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`,
			field: "NCANTON",
			cause: ErrMissingAttribute,
		},
		{
			name:  "null geometry",
			body:  `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"CODNUM":1,"NCANTON":"A"},"geometry":null}]}`,
			field: "geometry",
			cause: ErrMissingAttribute,
		},
		{
			name:  "point geometry",
			body:  `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"CODNUM":1,"NCANTON":"A"},"geometry":{"type":"Point","coordinates":[0,0]}}]}`,
			field: "geometry",
			cause: ErrMalformed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			schema := DefaultCantonSchema()
			schema.Source = "cantons.geojson"
			_, err := DecodeRegionLayer(strings.NewReader(tc.body), LevelCanton, schema)
			require.Error(t, err)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, "cantons.geojson", le.Source)
			assert.Equal(t, tc.field, le.Field)
			assert.ErrorIs(t, err, tc.cause)
		})
	}
}

func TestDecodeRegionLayer_DropsZ(t *testing.T) {
	body := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"CODNUM":7,"NCANTON":"A"},` +
		`"geometry":{"type":"Polygon","coordinates":[[[0,0,5],[2,0,5],[2,2,5],[0,2,5],[0,0,5]]]}}]}`

	regions, err := DecodeRegionLayer(strings.NewReader(body), LevelProvince, DefaultCantonSchema())
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, geom.XY, regions[0].Boundary.Layout())
	assert.True(t, regions[0].Contains(Point{Lon: 1, Lat: 1}))
	assert.Equal(t, 0, regions[0].ParentCode, "provinces have no parent")
}

func TestDecodeRegionLayer_EmptyCollection(t *testing.T) {
	regions, err := DecodeRegionLayer(strings.NewReader(`{"type":"FeatureCollection","features":[]}`), LevelCanton, DefaultCantonSchema())
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestDeriveProvinces(t *testing.T) {
	provinces, err := DeriveProvinces(loadFixtureCantons(t))
	require.NoError(t, err)
	require.Len(t, provinces, 2)

	assert.Equal(t, 1, provinces[0].Code)
	assert.Equal(t, "San José", provinces[0].Name)
	assert.Equal(t, LevelProvince, provinces[0].Level)
	assert.Equal(t, 2, provinces[0].Boundary.NumPolygons())

	assert.Equal(t, 2, provinces[1].Code)
	assert.Equal(t, "Alajuela", provinces[1].Name)
	assert.Equal(t, 3, provinces[1].Boundary.NumPolygons())
	assert.True(t, provinces[1].Contains(Point{Lon: -84.75, Lat: 10.25}))
}

func TestDeriveProvinces_MissingName(t *testing.T) {
	cantons := []Region{NewRegion(301, "Epsilon", LevelCanton, 3, square(0, 0, 1, 1))}

	_, err := DeriveProvinces(cantons)
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestRegistry(t *testing.T) {
	reg := fixtureRegistry(t)

	assert.Equal(t, 2, reg.Len(LevelProvince))
	assert.Equal(t, 4, reg.Len(LevelCanton))

	r, ok := reg.Lookup(202)
	require.True(t, ok)
	assert.Equal(t, "Delta", r.Name)
	assert.Equal(t, LevelCanton, r.Level)

	p, ok := reg.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, LevelProvince, p.Level)

	_, ok = reg.Lookup(999)
	assert.False(t, ok)
}

func TestRegistry_DuplicateCode(t *testing.T) {
	_, err := NewRegistry(
		NewRegion(1, "A", LevelProvince, 0, square(0, 0, 1, 1)),
		NewRegion(1, "B", LevelCanton, 0, square(1, 1, 2, 2)),
	)
	assert.ErrorIs(t, err, ErrDuplicateRegion)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("Canton")
	require.NoError(t, err)
	assert.Equal(t, LevelCanton, l)

	l, err = ParseLevel("province")
	require.NoError(t, err)
	assert.Equal(t, LevelProvince, l)

	_, err = ParseLevel("district")
	assert.Error(t, err)
}
