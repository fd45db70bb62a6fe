package domain

import (
	"fmt"

	"github.com/twpayne/go-geom"
)

// Registry holds the regions of every level, keyed by their shared code space.
// It is read-only after NewRegistry and safe for concurrent use.
type Registry struct {
	byCode  map[int]Region
	byLevel map[Level][]Region
}

// NewRegistry indexes regions, keeping per-level load order. A code seen twice,
// at any level, is a *LoadError.
func NewRegistry(regions ...Region) (*Registry, error) {
	reg := &Registry{
		byCode:  make(map[int]Region, len(regions)),
		byLevel: make(map[Level][]Region),
	}
	for _, r := range regions {
		if prev, dup := reg.byCode[r.Code]; dup {
			return nil, loadErr("", 0, "",
				fmt.Errorf("%w: %d (%s %q and %s %q)", ErrDuplicateRegion, r.Code, prev.Level, prev.Name, r.Level, r.Name))
		}
		reg.byCode[r.Code] = r
		reg.byLevel[r.Level] = append(reg.byLevel[r.Level], r)
	}
	return reg, nil
}

// Lookup returns the region with the given code at any level.
func (r *Registry) Lookup(code int) (Region, bool) {
	if r == nil {
		return Region{}, false
	}
	region, ok := r.byCode[code]
	return region, ok
}

// Regions returns the regions of one level in load order. Callers must not
// modify the returned slice.
func (r *Registry) Regions(level Level) []Region {
	if r == nil {
		return nil
	}
	return r.byLevel[level]
}

// Len returns the number of regions at a level.
func (r *Registry) Len(level Level) int {
	return len(r.Regions(level))
}

// DeriveProvinces builds the province level from a canton layer when no
// separate province layer is available. Cantons are grouped by ParentCode in
// first-appearance order, and each province boundary collects the polygons of
// its cantons. Every group needs a ParentName on at least one canton.
func DeriveProvinces(cantons []Region) ([]Region, error) {
	type group struct {
		name     string
		boundary *geom.MultiPolygon
	}
	var order []int
	groups := make(map[int]*group)

	for _, c := range cantons {
		g, ok := groups[c.ParentCode]
		if !ok {
			g = &group{boundary: geom.NewMultiPolygon(geom.XY)}
			groups[c.ParentCode] = g
			order = append(order, c.ParentCode)
		}
		if g.name == "" {
			g.name = c.ParentName
		}
		if c.Boundary == nil {
			continue
		}
		for i := 0; i < c.Boundary.NumPolygons(); i++ {
			if err := g.boundary.Push(c.Boundary.Polygon(i)); err != nil {
				return nil, loadErr("", 0, "geometry", fmt.Errorf("%w: canton %d: %v", ErrMalformed, c.Code, err))
			}
		}
	}

	provinces := make([]Region, 0, len(order))
	for _, code := range order {
		g := groups[code]
		if g.name == "" {
			return nil, loadErr("", 0, "", fmt.Errorf("%w: no province name for province code %d", ErrMissingAttribute, code))
		}
		provinces = append(provinces, NewRegion(code, g.name, LevelProvince, 0, g.boundary))
	}
	return provinces, nil
}
