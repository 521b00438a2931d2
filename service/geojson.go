package service

import (
	"fmt"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"
)

// UnmarshalGeometry, merging featureCollections and geometryCollections into a multipolygon
func UnmarshalGeometry(data []byte) (_ geom.Geometry, err error) {
	var g geojson.Geometry
	if err := g.UnmarshalJSON(data); err != nil {
		return g.Geometry, err
	}
	switch geo := g.Geometry.(type) {
	case geojson.FeatureCollection:
		var mp geom.MultiPolygon
		for _, f := range geo.Features {
			if err := mergeMultiPolygons(f.Geometry.Geometry, &mp); err != nil {
				return nil, err
			}
		}
		return mp, nil
	case geojson.Feature:
		return geo.Geometry.Geometry, nil
	default:
		return g.Geometry, nil
	}
}

func mergeMultiPolygons(g geom.Geometry, mp *geom.MultiPolygon) error {
	switch g := g.(type) {
	case geom.MultiPolygon:
		*mp = append(*mp, g.Polygons()...)
	case geom.Polygon:
		*mp = append(*mp, g.LinearRings())
	case geom.Collection:
		for _, g := range g.Geometries() {
			if err := mergeMultiPolygons(g, mp); err != nil {
				return err
			}
		}
	}
	return nil
}

// GeometryBBox returns the bounding box [minx, miny, maxx, maxy] of a GeoJSON geometry
func GeometryBBox(data []byte) ([]float64, error) {
	g, err := UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("GeometryBBox.%w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("GeometryBBox: empty geometry")
	}
	ext, err := geom.NewExtentFromGeometry(g)
	if err != nil {
		return nil, fmt.Errorf("GeometryBBox.NewExtentFromGeometry: %w", err)
	}
	return []float64{ext.MinX(), ext.MinY(), ext.MaxX(), ext.MaxY()}, nil
}

// BBoxPolygon returns the polygon covering the bounding box [minx, miny, maxx, maxy]
func BBoxPolygon(bbox []float64) (geom.Polygon, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("BBoxPolygon: expecting 4 coordinates, got %d", len(bbox))
	}
	return geom.Polygon{{
		{bbox[0], bbox[1]},
		{bbox[2], bbox[1]},
		{bbox[2], bbox[3]},
		{bbox[0], bbox[3]},
	}}, nil
}
