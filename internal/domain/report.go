package domain

import (
	"time"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// Dataset is one loaded session: the occurrence records and the region
// registry they are counted against. It is never mutated after loading.
type Dataset struct {
	Records []OccurrenceRecord
	Regions *Registry
}

// ReportOptions tunes the presentation artifacts of a report.
type ReportOptions struct {
	CantonTopN int // rows kept in the canton table; <= 0 uses DefaultCantonTopN
	Bins       int // choropleth classes; <= 0 uses DefaultBins
}

// LevelSummary gathers the aggregates of one level.
type LevelSummary struct {
	Table      AggregationResult `json:"table"`
	Counts     []RegionCount     `json:"counts"`
	Choropleth Choropleth        `json:"choropleth"`
}

// Report is everything the presentation layer needs for one species
// selection.
type Report struct {
	Species     string                     `json:"species"`
	Records     []TableRow                 `json:"records"`
	Located     int                        `json:"located"` // records with a valid point
	Provinces   LevelSummary               `json:"provinces"`
	Cantons     LevelSummary               `json:"cantons"`
	Points      *geojson.FeatureCollection `json:"points"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// Species lists the distinct species of the dataset.
func (d *Dataset) Species() []string {
	return DistinctSpecies(d.Records)
}

// Report filters the dataset to one species and builds the tables, counts,
// choropleth classes and point layer for both levels. A species with no
// records yields an empty but complete report.
func (d *Dataset) Report(species string, opts ReportOptions) Report {
	topN := opts.CantonTopN
	if topN <= 0 {
		topN = DefaultCantonTopN
	}

	selected := FilterBySpecies(d.Records, species)
	rows := make([]TableRow, len(selected))
	located := 0
	for i, r := range selected {
		rows[i] = r.Row()
		if r.Point.Valid() {
			located++
		}
	}

	return Report{
		Species:     species,
		Records:     rows,
		Located:     located,
		Provinces:   d.summarize(selected, LevelProvince, 0, opts.Bins),
		Cantons:     d.summarize(selected, LevelCanton, topN, opts.Bins),
		Points:      PointLayer(selected),
		GeneratedAt: clock.Now().UTC(),
	}
}

func (d *Dataset) summarize(records []OccurrenceRecord, level Level, topN, bins int) LevelSummary {
	counts := Aggregate(records, d.Regions, level)
	return LevelSummary{
		Table:      BuildTable(counts, d.Regions, level, topN),
		Counts:     counts.Ordered(d.Regions.Regions(level)),
		Choropleth: Classify(counts, d.Regions, level, bins),
	}
}
