package domain

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultBins is the number of color classes of a choropleth layer.
const DefaultBins = 8

// RegionClass assigns a region to a choropleth color class.
type RegionClass struct {
	Code  int    `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
	Class int    `json:"class"`
}

// Choropleth holds equal-width class edges and the class of every region.
type Choropleth struct {
	Level   Level         `json:"level"`
	Edges   []float64     `json:"edges"`
	Classes []RegionClass `json:"classes"`
}

// Classify bins the counts of the regions of level into equal-width classes
// spanning the minimum to maximum count, zeros included. The upper edge is
// inclusive, so the largest count lands in the last class. When every region
// has the same count the range is widened by one so edges stay strictly
// increasing.
func Classify(counts RegionCounts, reg *Registry, level Level, bins int) Choropleth {
	if bins <= 0 {
		bins = DefaultBins
	}
	regions := reg.Regions(level)
	if len(regions) == 0 {
		return Choropleth{Level: level, Edges: []float64{}, Classes: []RegionClass{}}
	}

	values := make([]float64, len(regions))
	for i, g := range regions {
		values[i] = float64(counts[g.Code])
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi <= lo {
		hi = lo + 1
	}
	edges := floats.Span(make([]float64, bins+1), lo, hi)

	classes := make([]RegionClass, len(regions))
	for i, g := range regions {
		classes[i] = RegionClass{
			Code:  g.Code,
			Name:  g.Name,
			Count: counts[g.Code],
			Class: classOf(edges, values[i]),
		}
	}
	return Choropleth{Level: level, Edges: edges, Classes: classes}
}

// classOf returns the index of the bin [edges[i], edges[i+1]) containing v,
// with the last bin closed on the right.
func classOf(edges []float64, v float64) int {
	last := len(edges) - 2
	i := sort.SearchFloat64s(edges, v)
	// SearchFloat64s returns the first edge >= v; an exact match starts bin i.
	if i < len(edges) && edges[i] == v {
		return min(i, last)
	}
	return max(0, min(i-1, last))
}
