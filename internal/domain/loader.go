package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// OccurrenceSchema names the Darwin Core columns read by LoadOccurrences.
type OccurrenceSchema struct {
	Source    string // label used in errors, usually the file name
	Species   string
	Longitude string
	Latitude  string
	EventDate string
	Province  string
	Locality  string
	ID        string
}

// DefaultOccurrenceSchema matches the GBIF simple occurrence download.
func DefaultOccurrenceSchema() OccurrenceSchema {
	return OccurrenceSchema{
		Species:   "species",
		Longitude: "decimalLongitude",
		Latitude:  "decimalLatitude",
		EventDate: "eventDate",
		Province:  "stateProvince",
		Locality:  "locality",
		ID:        "gbifID",
	}
}

func (s OccurrenceSchema) columns() []string {
	return []string{s.Species, s.Longitude, s.Latitude, s.EventDate, s.Province, s.Locality, s.ID}
}

// eventDateLayouts are tried in order. Partial dates resolve to the first day
// of the period.
var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"2006-01",
	"2006",
}

// LoadOccurrences parses a tab-separated Darwin Core table into records,
// preserving input order. Rows with a blank species are dropped. Missing
// columns, ragged rows, unparseable dates and non-numeric coordinates fail the
// whole load with a *LoadError.
func LoadOccurrences(r io.Reader, schema OccurrenceSchema) ([]OccurrenceRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, loadErr(schema.Source, 1, "", fmt.Errorf("%w: empty table", ErrMalformed))
	}
	if err != nil {
		return nil, csvLoadErr(schema.Source, err)
	}

	idx, err := columnIndex(header, schema)
	if err != nil {
		return nil, err
	}

	var records []OccurrenceRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvLoadErr(schema.Source, err)
		}
		line, _ := cr.FieldPos(0)

		rec, keep, err := parseRow(row, idx, schema, line)
		if err != nil {
			return nil, err
		}
		if keep {
			records = append(records, rec)
		}
	}
	return records, nil
}

type columnPositions struct {
	species, lon, lat, date, province, locality, id int
}

func columnIndex(header []string, schema OccurrenceSchema) (columnPositions, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	for _, col := range schema.columns() {
		if _, ok := pos[col]; !ok {
			return columnPositions{}, loadErr(schema.Source, 1, col, ErrMissingColumn)
		}
	}
	return columnPositions{
		species:  pos[schema.Species],
		lon:      pos[schema.Longitude],
		lat:      pos[schema.Latitude],
		date:     pos[schema.EventDate],
		province: pos[schema.Province],
		locality: pos[schema.Locality],
		id:       pos[schema.ID],
	}, nil
}

func parseRow(row []string, idx columnPositions, schema OccurrenceSchema, line int) (OccurrenceRecord, bool, error) {
	species := strings.TrimSpace(row[idx.species])
	if species == "" {
		return OccurrenceRecord{}, false, nil
	}

	lon, err := parseCoordinate(row[idx.lon])
	if err != nil {
		return OccurrenceRecord{}, false, loadErr(schema.Source, line, schema.Longitude, err)
	}
	lat, err := parseCoordinate(row[idx.lat])
	if err != nil {
		return OccurrenceRecord{}, false, loadErr(schema.Source, line, schema.Latitude, err)
	}
	date, err := ParseEventDate(row[idx.date])
	if err != nil {
		return OccurrenceRecord{}, false, loadErr(schema.Source, line, schema.EventDate, err)
	}

	return OccurrenceRecord{
		SourceID:    strings.TrimSpace(row[idx.id]),
		SpeciesName: species,
		Province:    strings.TrimSpace(row[idx.province]),
		Locality:    strings.TrimSpace(row[idx.locality]),
		EventDate:   date,
		Point:       Point{Lon: lon, Lat: lat},
	}, true, nil
}

// parseCoordinate returns NaN for a blank field.
func parseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %q", ErrInvalidValue, s)
	}
	return v, nil
}

// ParseEventDate reduces a Darwin Core eventDate to a calendar date at UTC
// midnight. A blank value yields the zero time; an interval yields its start.
func ParseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if start, _, ok := strings.Cut(s, "/"); ok {
		s = strings.TrimSpace(start)
	}
	for _, layout := range eventDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("%w: event date %q", ErrInvalidValue, s)
}

func csvLoadErr(source string, err error) *LoadError {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return loadErr(source, pe.Line, "", fmt.Errorf("%w: %v", ErrMalformed, pe.Err))
	}
	return loadErr(source, 0, "", fmt.Errorf("%w: %v", ErrMalformed, err))
}
