package domain

// RegionCounts maps a region code to the number of records inside it.
type RegionCounts map[int]int

// RegionCount is one entry of RegionCounts with the region name attached.
type RegionCount struct {
	Code  int    `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Aggregate performs a containment join of records against every region of
// level and counts records per region. Each region of the level appears in the
// result, with zero when nothing falls inside it. Records without a valid
// point are never attributed. Every record counts once, so duplicates of the
// same observation are all counted.
func Aggregate(records []OccurrenceRecord, reg *Registry, level Level) RegionCounts {
	regions := reg.Regions(level)
	counts := make(RegionCounts, len(regions))
	for _, g := range regions {
		counts[g.Code] = 0
	}
	if len(regions) == 0 {
		return counts
	}

	for _, rec := range records {
		if !rec.Point.Valid() {
			continue
		}
		for _, g := range regions {
			if g.Contains(rec.Point) {
				counts[g.Code]++
			}
		}
	}
	return counts
}

// Total sums all counts.
func (c RegionCounts) Total() int {
	var n int
	for _, v := range c {
		n += v
	}
	return n
}

// Ordered returns the counts in the order of regions, with names attached.
// Codes missing from c are reported as zero.
func (c RegionCounts) Ordered(regions []Region) []RegionCount {
	out := make([]RegionCount, 0, len(regions))
	for _, g := range regions {
		out = append(out, RegionCount{Code: g.Code, Name: g.Name, Count: c[g.Code]})
	}
	return out
}
