package domain

import (
	"fmt"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Level is the granularity of an administrative polygon layer.
type Level int

const (
	LevelProvince Level = iota + 1
	LevelCanton
)

// Levels lists every level from coarsest to finest.
var Levels = []Level{LevelProvince, LevelCanton}

func (l Level) String() string {
	switch l {
	case LevelProvince:
		return "province"
	case LevelCanton:
		return "canton"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel accepts "province" or "canton", case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "province":
		return LevelProvince, nil
	case "canton":
		return LevelCanton, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Region is an administrative polygon. Boundaries are XY multipolygons in
// WGS-84 lon/lat; a single Polygon source geometry becomes a one-part
// multipolygon.
type Region struct {
	Code       int
	Name       string
	Level      Level
	ParentCode int    // province code for cantons, zero for provinces
	ParentName string // province name for cantons when the source carries one
	Boundary   *geom.MultiPolygon

	bounds *geom.Bounds
	parts  []polygonPart
}

// polygonPart caches the flat rings of one polygon of the boundary.
type polygonPart struct {
	bounds *geom.Bounds
	shell  []float64
	holes  [][]float64
}

// NewRegion builds a region and caches the bounding boxes used to skip
// containment tests. boundary must use the XY layout.
func NewRegion(code int, name string, level Level, parentCode int, boundary *geom.MultiPolygon) Region {
	r := Region{
		Code:       code,
		Name:       name,
		Level:      level,
		ParentCode: parentCode,
		Boundary:   boundary,
	}
	r.index()
	return r
}

func (r *Region) index() {
	r.parts = r.parts[:0]
	if r.Boundary == nil || r.Boundary.Empty() {
		r.bounds = nil
		return
	}
	r.bounds = r.Boundary.Bounds()
	for i := 0; i < r.Boundary.NumPolygons(); i++ {
		poly := r.Boundary.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		part := polygonPart{
			bounds: poly.Bounds(),
			shell:  poly.LinearRing(0).FlatCoords(),
		}
		for j := 1; j < poly.NumLinearRings(); j++ {
			part.holes = append(part.holes, poly.LinearRing(j).FlatCoords())
		}
		r.parts = append(r.parts, part)
	}
}

// Contains reports whether p lies strictly inside the region: in the interior
// of some polygon shell and outside every hole of that polygon. Points on any
// ring are not contained.
func (r Region) Contains(p Point) bool {
	if !p.Valid() || r.bounds == nil {
		return false
	}
	c := geom.Coord{p.Lon, p.Lat}
	if !r.bounds.OverlapsPoint(geom.XY, c) {
		return false
	}
	for _, part := range r.parts {
		if part.contains(c) {
			return true
		}
	}
	return false
}

func (pp polygonPart) contains(c geom.Coord) bool {
	if !pp.bounds.OverlapsPoint(geom.XY, c) {
		return false
	}
	if xy.LocatePointInRing(geom.XY, c, pp.shell) != location.Interior {
		return false
	}
	for _, hole := range pp.holes {
		if xy.LocatePointInRing(geom.XY, c, hole) != location.Exterior {
			return false
		}
	}
	return true
}
