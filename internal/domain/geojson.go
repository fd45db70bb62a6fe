package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// LayerSchema names the feature properties read from a region layer.
type LayerSchema struct {
	Source          string // label used in errors, usually the file name
	CodeField       string
	NameField       string
	ParentCodeField string // optional; cantons fall back to code/100
	ParentNameField string // optional
}

// DefaultCantonSchema matches the national canton layer (Cantones.geojson).
func DefaultCantonSchema() LayerSchema {
	return LayerSchema{
		CodeField:       "CODNUM",
		NameField:       "NCANTON",
		ParentCodeField: "CODPROV",
		ParentNameField: "provincia",
	}
}

// DefaultProvinceSchema matches a province layer keyed like the canton
// layer's parent attributes.
func DefaultProvinceSchema() LayerSchema {
	return LayerSchema{
		CodeField: "CODPROV",
		NameField: "provincia",
	}
}

type rawFeatureCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

type rawFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// DecodeRegionLayer reads a GeoJSON FeatureCollection of Polygon or
// MultiPolygon features into regions of the given level, in feature order.
// Any malformed feature fails the whole layer with a *LoadError whose Line is
// the 1-based feature index.
func DecodeRegionLayer(r io.Reader, level Level, schema LayerSchema) ([]Region, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, loadErr(schema.Source, 0, "", fmt.Errorf("read layer: %w", err))
	}

	var fc rawFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, loadErr(schema.Source, 0, "", fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if !strings.EqualFold(fc.Type, "FeatureCollection") {
		return nil, loadErr(schema.Source, 0, "type", fmt.Errorf("%w: expected FeatureCollection, got %q", ErrMalformed, fc.Type))
	}

	regions := make([]Region, 0, len(fc.Features))
	for i, f := range fc.Features {
		region, err := decodeFeature(f, level, schema)
		if err != nil {
			err.Source = schema.Source
			err.Line = i + 1
			return nil, err
		}
		regions = append(regions, region)
	}
	return regions, nil
}

func decodeFeature(f rawFeature, level Level, schema LayerSchema) (Region, *LoadError) {
	code, err := intProperty(f.Properties, schema.CodeField)
	if err != nil {
		return Region{}, loadErr("", 0, schema.CodeField, err)
	}
	name, err := stringProperty(f.Properties, schema.NameField)
	if err != nil {
		return Region{}, loadErr("", 0, schema.NameField, err)
	}

	var parentCode int
	if v, ok := f.Properties[schema.ParentCodeField]; ok && v != nil && schema.ParentCodeField != "" {
		if parentCode, err = intProperty(f.Properties, schema.ParentCodeField); err != nil {
			return Region{}, loadErr("", 0, schema.ParentCodeField, err)
		}
	} else if level == LevelCanton {
		parentCode = code / 100
	}
	var parentName string
	if schema.ParentNameField != "" {
		parentName, _ = stringProperty(f.Properties, schema.ParentNameField)
	}

	boundary, err := decodeBoundary(f.Geometry)
	if err != nil {
		return Region{}, loadErr("", 0, "geometry", err)
	}

	region := NewRegion(code, name, level, parentCode, boundary)
	region.ParentName = parentName
	return region, nil
}

func decodeBoundary(raw json.RawMessage) (*geom.MultiPolygon, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: null geometry", ErrMissingAttribute)
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	switch g := g.(type) {
	case *geom.Polygon:
		if err := mp.Push(polygonXY(g)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if err := mp.Push(polygonXY(g.Polygon(i))); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unsupported geometry %T", ErrMalformed, g)
	}
	return mp, nil
}

// polygonXY drops any Z or M ordinates.
func polygonXY(p *geom.Polygon) *geom.Polygon {
	if p.Layout() == geom.XY {
		return p
	}
	stride := p.Stride()
	src := p.FlatCoords()
	flat := make([]float64, 0, len(src)/stride*2)
	for i := 0; i+1 < len(src); i += stride {
		flat = append(flat, src[i], src[i+1])
	}
	ends := make([]int, len(p.Ends()))
	for i, e := range p.Ends() {
		ends[i] = e / stride * 2
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends)
}

func intProperty(props map[string]any, key string) (int, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return 0, ErrMissingAttribute
	}
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%w: non-integer code %v", ErrInvalidValue, x)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: code %q", ErrInvalidValue, x)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: code of type %T", ErrInvalidValue, v)
	}
}

func stringProperty(props map[string]any, key string) (string, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return "", ErrMissingAttribute
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidValue, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMissingAttribute
	}
	return s, nil
}
