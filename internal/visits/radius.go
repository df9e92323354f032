package visits

import (
	"math"

	"github.com/jengzang/visits-backend-go/internal/models"
)

// ShouldReject reports whether a ping is too inaccurate to use at all.
// A zero threshold disables rejection.
func ShouldReject(accuracy *float64, s models.VisitSettings) bool {
	if s.AccuracyRejectMeters == 0 || accuracy == nil {
		return false
	}
	return *accuracy > s.AccuracyRejectMeters
}

// EffectiveRadius is the accuracy-scaled distance within which a ping counts
// as being at a place. The result always lies in [min, max].
func EffectiveRadius(accuracy *float64, s models.VisitSettings) float64 {
	acc := 0.0
	if accuracy != nil && !math.IsNaN(*accuracy) {
		acc = *accuracy
	}
	base := math.Max(s.MinRadiusMeters, acc*s.AccuracyMultiplier)
	return math.Min(math.Max(base, s.MinRadiusMeters), s.MaxRadiusMeters)
}
