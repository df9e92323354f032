package spatial

import (
	"github.com/golang/geo/s2"
)

// IndexLevel is the s2 level places are indexed at (cells of roughly 150m)
const IndexLevel = 16

// maxCoverCells bounds the number of ranges a radius query expands into
const maxCoverCells = 12

// CellRange is an inclusive range of leaf cell ids stored as SQLite integers
type CellRange struct {
	Min int64
	Max int64
}

// CellID returns the indexed cell id for a coordinate as a signed integer.
// Cell ids are uint64; reinterpreting them as int64 keeps ordering within a
// cube face, and every covering range lies inside a single face.
func CellID(lat, lon float64) int64 {
	id := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(IndexLevel)
	return int64(id)
}

// CoverRadius returns the id ranges that together cover the spherical cap
// of radiusMeters around (lat, lon). Any indexed point within the radius
// falls inside one of the ranges; points outside may too and must be
// filtered by exact distance.
func CoverRadius(lat, lon, radiusMeters float64) []CellRange {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	capRegion := s2.CapFromCenterAngle(center, MetersToAngle(radiusMeters))

	coverer := &s2.RegionCoverer{
		MinLevel: 0,
		MaxLevel: IndexLevel,
		MaxCells: maxCoverCells,
	}
	covering := coverer.Covering(capRegion)

	ranges := make([]CellRange, 0, len(covering))
	for _, c := range covering {
		ranges = append(ranges, CellRange{
			Min: int64(c.RangeMin().Parent(IndexLevel)),
			Max: int64(c.RangeMax().Parent(IndexLevel)),
		})
	}
	return ranges
}
