package forecast

// WagePoint is one bucket of the wage-percent trend line.
type WagePoint struct {
	Label             string   `json:"label"`
	CurrentPercent    *float64 `json:"currentPercent"`
	TargetPercent     float64  `json:"targetPercent"`
	HistoricalPercent float64  `json:"historicalPercent"`
}

// ToPercent returns num/den*100, or nil when den <= 0.
func ToPercent(num, den int64) *float64 {
	if den <= 0 {
		return nil
	}
	value := float64(num) / float64(den) * 100
	return &value
}

// ComputeWageSeries zips labels with cumulative revenue and labor. Buckets past
// the end of the cumulative series are treated as not yet elapsed.
func ComputeWageSeries(labels []string, cumulativeRevenue, cumulativeLabor []int64, targetWagePercent float64, historicalWagePercentByBucket []float64) []WagePoint {
	points := make([]WagePoint, len(labels))
	for i, label := range labels {
		point := WagePoint{
			Label:             label,
			TargetPercent:     targetWagePercent,
			HistoricalPercent: targetWagePercent,
		}
		if i < len(historicalWagePercentByBucket) {
			point.HistoricalPercent = sanitizeFloat(historicalWagePercentByBucket[i])
		}
		if i < len(cumulativeRevenue) {
			var labor int64
			if i < len(cumulativeLabor) {
				labor = cumulativeLabor[i]
			}
			point.CurrentPercent = ToPercent(labor, cumulativeRevenue[i])
		}
		points[i] = point
	}
	return points
}
