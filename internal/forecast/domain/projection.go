package forecast

import "math"

const (
	// MinBaselineFraction guards the extrapolation against tiny early-night denominators.
	MinBaselineFraction = 0.03
	// RampSlope converts baseline progress into blend confidence.
	RampSlope = 1.65
	// MinRampWeight is the lowest confidence given to the raw extrapolation.
	MinRampWeight = 0.1
)

// ProjectionMetrics is the result of one end-of-night projection.
// RampedProjectedTotalCents is authoritative; RawProjectedTotalCents is diagnostic.
type ProjectionMetrics struct {
	BaselineFraction          float64 `json:"baselineFraction"`
	RawProjectedTotalCents    int64   `json:"rawProjectedTotalCents"`
	RampedProjectedTotalCents int64   `json:"rampedProjectedTotalCents"`
	RampWeight                float64 `json:"rampWeight"`
	ElapsedFraction           float64 `json:"elapsedFraction"`
}

// ComputeProjection extrapolates revenue-so-far by the expected fraction of the
// night already earned, then blends toward the rolling average with a weight
// that grows with that fraction.
func ComputeProjection(currentRevenueCents int64, baselineFractionAtNow float64, rollingAverageRevenueCents int64, elapsedFraction float64) ProjectionMetrics {
	baseline := clampFloat(sanitizeFloat(baselineFractionAtNow), 0, 1)
	guarded := math.Max(baseline, MinBaselineFraction)

	raw := rollingAverageRevenueCents
	if baseline > 0 {
		raw = int64(math.Round(float64(currentRevenueCents) / guarded))
	}

	weight := clampFloat(guarded*RampSlope, MinRampWeight, 1)
	ramped := int64(math.Round(float64(raw)*weight + float64(rollingAverageRevenueCents)*(1-weight)))

	return ProjectionMetrics{
		BaselineFraction:          baseline,
		RawProjectedTotalCents:    raw,
		RampedProjectedTotalCents: ramped,
		RampWeight:                weight,
		ElapsedFraction:           clampFloat(sanitizeFloat(elapsedFraction), 0, 1),
	}
}
