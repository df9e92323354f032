package spatial

import (
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// PlacesFeatureCollection renders located places as GeoJSON points.
// Places without a location are skipped.
func PlacesFeatureCollection(places []models.Place) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(places))}
	for _, p := range places {
		if !p.HasLocation() {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.FormatInt(p.ID, 10),
			Geometry: geom.NewPointFlat(geom.XY, []float64{*p.Longitude, *p.Latitude}),
			Properties: map[string]interface{}{
				"name":     p.Name,
				"icon":     p.Icon,
				"color":    p.Color,
				"regionId": p.RegionID,
			},
		})
	}
	return fc
}

// VisitsFeatureCollection renders visits at their snapshotted place location
func VisitsFeatureCollection(visits []models.VisitEvent) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(visits))}
	for _, v := range visits {
		if v.Latitude == nil || v.Longitude == nil {
			continue
		}
		props := map[string]interface{}{
			"placeId":    v.PlaceID,
			"placeName":  v.PlaceName,
			"tripName":   v.TripName,
			"regionName": v.RegionName,
			"arrivedAt":  v.ArrivedAt.UnixMilli(),
			"lastSeenAt": v.LastSeenAt.UnixMilli(),
			"open":       v.IsOpen(),
		}
		if v.EndedAt != nil {
			props["endedAt"] = v.EndedAt.UnixMilli()
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.FormatInt(v.ID, 10),
			Geometry:   geom.NewPointFlat(geom.XY, []float64{*v.Longitude, *v.Latitude}),
			Properties: props,
		})
	}
	return fc
}
