// Package domain models species occurrence records and the administrative
// regions they are counted against.
//
// # Data Source
//
// Occurrence records come from Darwin Core (DwC) exports such as the GBIF
// occurrence download, a tab-separated file with one occurrence per row and a
// header naming the DwC terms (https://dwc.tdwg.org/terms/). Region polygons
// come from a GeoJSON FeatureCollection of cantons, optionally paired with a
// separate province layer.
//
// # Darwin Core Conventions
//
// Columns read by the loader (names configurable through [OccurrenceSchema]):
//
//	species           binomial name, e.g. "Ramphastos sulfuratus"; blank rows are dropped
//	decimalLongitude  WGS-84 degrees, blank when the record is not georeferenced
//	decimalLatitude   WGS-84 degrees, blank when the record is not georeferenced
//	eventDate         ISO 8601 date, partial date or interval ("2019-03", "2019-03-01/2019-03-05")
//	stateProvince     free-text province as recorded by the publisher
//	locality          free-text locality description
//	gbifID            unique record identifier
//
// Intervals are reduced to their start date. Times and offsets are dropped:
// only the calendar date is kept.
//
// # Region Codes
//
// Canton features carry a numeric code (CODNUM in the national dataset) whose
// leading digit(s) identify the province: canton 101 (San José) belongs to
// province 1. When the canton layer has no explicit province code attribute,
// [DecodeRegionLayer] derives ParentCode as code/100. Province and canton codes
// share one key space in the [Registry].
//
// # Containment
//
// A record counts toward a region only when its point lies strictly inside the
// region boundary. Points on a shell or hole ring belong to no region, so a
// point on the edge shared by two cantons is never counted twice.
package domain
