package domain

import (
	"context"
	"math"
	"time"
)

// Point is a WGS-84 longitude/latitude pair. Either coordinate may be NaN when
// the source record is not georeferenced.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// NoPoint is the point attached to records without coordinates.
var NoPoint = Point{Lon: math.NaN(), Lat: math.NaN()}

// Valid reports whether both coordinates are finite numbers.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lon) && !math.IsNaN(p.Lat) && !math.IsInf(p.Lon, 0) && !math.IsInf(p.Lat, 0)
}

// OccurrenceRecord is one observed instance of a species at a place and time.
type OccurrenceRecord struct {
	SourceID    string
	SpeciesName string
	Province    string
	Locality    string
	EventDate   time.Time // UTC midnight; zero when the source left it blank
	Point       Point

	// GeoSource records where Point came from: "original", "forward", or
	// "failed". Empty when geocoding enrichment is disabled.
	GeoSource string
}

// TableRow is the tabular view of a record consumed by the presentation layer.
type TableRow struct {
	Species  string `json:"species"`
	Province string `json:"province"`
	Locality string `json:"locality"`
	Date     string `json:"date"`
}

// Row formats the record for the tabular view.
func (r OccurrenceRecord) Row() TableRow {
	return TableRow{
		Species:  r.SpeciesName,
		Province: r.Province,
		Locality: r.Locality,
		Date:     formatDate(r.EventDate),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

// RawSelection represents an unprocessed species selection message from the
// source topic.
type RawSelection struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Selection is a parsed request for one species report.
type Selection struct {
	Species string `json:"species"`
}
