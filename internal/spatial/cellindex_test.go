package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inRanges(id int64, ranges []CellRange) bool {
	for _, r := range ranges {
		if id >= r.Min && id <= r.Max {
			return true
		}
	}
	return false
}

func TestCoverRadius_ContainsNearbyCells(t *testing.T) {
	lat, lon := 52.5200, 13.4050
	ranges := CoverRadius(lat, lon, 150)
	require.NotEmpty(t, ranges)
	assert.LessOrEqual(t, len(ranges), maxCoverCells)

	// Points at increasing offsets up to roughly 140m in each direction.
	for _, d := range []float64{0, 0.0003, 0.0008, 0.00125} {
		for _, p := range [][2]float64{{lat + d, lon}, {lat - d, lon}, {lat, lon + d}, {lat, lon - d}} {
			require.LessOrEqual(t, HaversineDistance(lat, lon, p[0], p[1]), 150.0)
			assert.True(t, inRanges(CellID(p[0], p[1]), ranges), "point %v should be covered", p)
		}
	}
}

func TestCoverRadius_ExcludesFarCells(t *testing.T) {
	ranges := CoverRadius(52.5200, 13.4050, 150)
	assert.False(t, inRanges(CellID(48.8566, 2.3522), ranges))
}

func TestCoverRadius_RangesAreOrdered(t *testing.T) {
	for _, r := range CoverRadius(-33.8688, 151.2093, 500) {
		assert.LessOrEqual(t, r.Min, r.Max)
	}
}

func TestHaversineDistance(t *testing.T) {
	// Berlin to Paris is about 878km.
	d := HaversineDistance(52.5200, 13.4050, 48.8566, 2.3522)
	assert.InDelta(t, 878000, d, 5000)
	assert.Zero(t, HaversineDistance(1, 2, 1, 2))
}
