package forecast

import "math"

// ComparableNights is the number of trailing same-weekday nights used as history.
const ComparableNights = 4

// EmptyBaselineFraction is returned when there is no usable history.
const EmptyBaselineFraction = 0.02

// ComparableNight is one historical reference night.
type ComparableNight struct {
	Date                LocalDate `json:"-"`
	DateISO             string    `json:"date"`
	TotalRevenueCents   int64     `json:"totalRevenueCents"`
	TotalLaborCents     int64     `json:"totalLaborCents"`
	BucketRevenueCents  []int64   `json:"-"`
	CumulativeFractions []float64 `json:"-"`
	WagePercentByBucket []float64 `json:"-"`
}

// NewComparableNight derives fractions and wage percents from bucket series.
// Buckets with no cumulative revenue yet hold NaN in WagePercentByBucket and are
// skipped when averaging history.
func NewComparableNight(date LocalDate, bucketRevenue, bucketLabor []int64) ComparableNight {
	revenue := append([]int64(nil), bucketRevenue...)
	cumRevenue := Cumulative(revenue)
	cumLabor := Cumulative(bucketLabor)
	total := Sum(revenue)

	wage := make([]float64, len(revenue))
	for i := range revenue {
		var labor int64
		if len(cumLabor) > 0 {
			labor = cumLabor[minInt(i, len(cumLabor)-1)]
		}
		if pct := ToPercent(labor, cumRevenue[i]); pct != nil {
			wage[i] = *pct
		} else {
			wage[i] = math.NaN()
		}
	}

	return ComparableNight{
		Date:                date,
		DateISO:             date.String(),
		TotalRevenueCents:   total,
		TotalLaborCents:     Sum(bucketLabor),
		BucketRevenueCents:  revenue,
		CumulativeFractions: cumulativeFractions(revenue),
		WagePercentByBucket: wage,
	}
}

func cumulativeFractions(series []int64) []float64 {
	out := make([]float64, len(series))
	total := Sum(series)
	if total <= 0 {
		return out
	}
	cum := Cumulative(series)
	for i, value := range cum {
		out[i] = clampFloat(float64(value)/float64(total), 0, 1)
	}
	return out
}

// BuildBaselineFractions averages the cumulative revenue fraction curves of the
// given nights. Shorter curves hold their last value out to the longest one.
func BuildBaselineFractions(series [][]int64) []float64 {
	maxBuckets := 0
	anyRevenue := false
	for _, s := range series {
		if len(s) > maxBuckets {
			maxBuckets = len(s)
		}
		if Sum(s) > 0 {
			anyRevenue = true
		}
	}
	if maxBuckets == 0 || !anyRevenue {
		return []float64{EmptyBaselineFraction}
	}

	sums := make([]float64, maxBuckets)
	nights := 0
	for _, s := range series {
		if len(s) == 0 {
			continue
		}
		curve := cumulativeFractions(s)
		for i := 0; i < maxBuckets; i++ {
			sums[i] += curve[minInt(i, len(curve)-1)]
		}
		nights++
	}

	out := make([]float64, maxBuckets)
	for i, sum := range sums {
		out[i] = clampFloat(sum/float64(nights), 0, 1)
	}
	return out
}

// BaselineFromNights is BuildBaselineFractions over the nights' bucket revenue.
func BaselineFromNights(nights []ComparableNight) []float64 {
	series := make([][]int64, 0, len(nights))
	for _, night := range nights {
		series = append(series, night.BucketRevenueCents)
	}
	return BuildBaselineFractions(series)
}

// LinearFractions is the even-demand curve (i+1)/count.
func LinearFractions(count int) []float64 {
	if count <= 0 {
		return []float64{}
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = float64(i+1) / float64(count)
	}
	return out
}

// NormalizeFractions aligns fractions to count buckets: longer curves are
// truncated, shorter ones are ramped linearly from their last value to 1.0.
// The result is non-decreasing and bounded to [0,1].
func NormalizeFractions(fractions []float64, count int) []float64 {
	if count <= 0 {
		return []float64{}
	}
	if len(fractions) == 0 {
		return LinearFractions(count)
	}
	out := make([]float64, count)
	n := copy(out, fractions)
	if n < count {
		last := clampFloat(sanitizeFloat(fractions[n-1]), 0, 1)
		gap := count - n
		for i := n; i < count; i++ {
			out[i] = last + (1-last)*float64(i-n+1)/float64(gap)
		}
	}
	running := 0.0
	for i, value := range out {
		value = clampFloat(sanitizeFloat(value), 0, 1)
		if value < running {
			value = running
		}
		running = value
		out[i] = value
	}
	return out
}

// FractionAt reads fractions at index, clamping the index into range.
// Index -1 means "before the first bucket" and yields 0.
func FractionAt(fractions []float64, index int) float64 {
	if len(fractions) == 0 || index < 0 {
		return 0
	}
	return fractions[minInt(index, len(fractions)-1)]
}

// RollingAverageRevenue returns the rounded mean total of the nights.
func RollingAverageRevenue(nights []ComparableNight) int64 {
	if len(nights) == 0 {
		return 0
	}
	var total int64
	for _, night := range nights {
		total += night.TotalRevenueCents
	}
	return int64(math.Round(float64(total) / float64(len(nights))))
}

// HistoricalWagePercents averages the nights' wage percent per bucket over the
// nights that had revenue by then. Buckets with no history use fallback.
func HistoricalWagePercents(nights []ComparableNight, count int, fallback float64) []float64 {
	if count < 0 {
		count = 0
	}
	out := make([]float64, count)
	for i := range out {
		var sum float64
		var n int
		for _, night := range nights {
			if len(night.WagePercentByBucket) == 0 {
				continue
			}
			value := night.WagePercentByBucket[minInt(i, len(night.WagePercentByBucket)-1)]
			if math.IsNaN(value) || math.IsInf(value, 0) {
				continue
			}
			sum += value
			n++
		}
		if n == 0 {
			out[i] = fallback
			continue
		}
		out[i] = sum / float64(n)
	}
	return out
}

func clampFloat(value, lo, hi float64) float64 {
	if math.IsNaN(value) {
		return lo
	}
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func sanitizeFloat(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
