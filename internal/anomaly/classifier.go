package anomaly

import (
	"math"

	"github.com/duckworks/sensor-analytics/internal/domain"
)

// Classify reports whether r deviates from b by more than threshold standard
// deviations on temperature or on vibration.
//
// The threshold is not validated: zero or negative values flag everything that
// is not an exact mean match, which is the caller's concern.
func Classify(r domain.Reading, b domain.Baseline, threshold float64) bool {
	return math.Abs(r.Temperature-b.MeanTemperature) > threshold*b.StdTemperature ||
		math.Abs(r.Vibration-b.MeanVibration) > threshold*b.StdVibration
}
