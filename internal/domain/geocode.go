package domain

import (
	"context"
	"log/slog"
)

// Geocoding outcomes stored in OccurrenceRecord.GeoSource.
const (
	GeoSourceOriginal = "original"
	GeoSourceForward  = "forward"
	GeoSourceFailed   = "failed"
)

// EnrichWithGeocoding fills in the point of a record that has a locality but
// no coordinates. Records that already have a valid point, or nothing to look
// up, are marked "original". If geocoder is nil the record is returned
// untouched; if geocoding fails the record keeps its missing point and is
// marked "failed".
func EnrichWithGeocoding(ctx context.Context, rec OccurrenceRecord, geocoder Geocoder, logger *slog.Logger) OccurrenceRecord {
	if geocoder == nil {
		return rec
	}

	if rec.Point.Valid() || rec.Locality == "" {
		rec.GeoSource = GeoSourceOriginal
		return rec
	}

	result, err := geocoder.ForwardGeocode(ctx, rec.Locality, rec.Province)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"source_id", rec.SourceID,
			"locality", rec.Locality,
			"province", rec.Province,
			"error", err,
		)
		rec.GeoSource = GeoSourceFailed
		return rec
	}
	if result.Lat == 0 && result.Lon == 0 {
		rec.GeoSource = GeoSourceOriginal
		return rec
	}

	rec.Point = Point{Lon: result.Lon, Lat: result.Lat}
	rec.GeoSource = GeoSourceForward
	return rec
}
