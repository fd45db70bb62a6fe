package domain

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// PointLayer returns the heat/marker layer: one GeoJSON Point feature per
// record with a valid point. Popup fields travel as properties.
func PointLayer(records []OccurrenceRecord) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, len(records))
	for _, r := range records {
		if !r.Point.Valid() {
			continue
		}
		features = append(features, &geojson.Feature{
			ID:       r.SourceID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{r.Point.Lon, r.Point.Lat}),
			Properties: map[string]any{
				"species":  r.SpeciesName,
				"province": r.Province,
				"locality": r.Locality,
				"date":     formatDate(r.EventDate),
			},
		})
	}
	return &geojson.FeatureCollection{Features: features}
}

// RegionLayer returns the choropleth fill layer: every classified region's
// boundary with its code, name, count and class as properties.
func RegionLayer(reg *Registry, c Choropleth) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, len(c.Classes))
	for _, rc := range c.Classes {
		region, ok := reg.Lookup(rc.Code)
		if !ok || region.Boundary == nil {
			continue
		}
		features = append(features, &geojson.Feature{
			Geometry: region.Boundary,
			Properties: map[string]any{
				"code":  rc.Code,
				"name":  rc.Name,
				"level": c.Level.String(),
				"count": rc.Count,
				"class": rc.Class,
			},
		})
	}
	return &geojson.FeatureCollection{Features: features}
}
