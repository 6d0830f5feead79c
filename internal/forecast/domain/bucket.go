package forecast

import (
	"math"
	"time"
)

// BucketSize is the discretization unit for every series.
const BucketSize = 15 * time.Minute

// RevenueEvent is a timestamped amount in cents.
type RevenueEvent struct {
	At          time.Time
	AmountCents int64
}

// LaborInterval is a worked shift. A zero End means the shift is still open.
type LaborInterval struct {
	Start           time.Time
	End             time.Time
	HourlyRateCents int64
}

// IsOpen reports whether the shift has not been clocked out.
func (l LaborInterval) IsOpen() bool { return l.End.IsZero() }

// BucketCount returns ceil(window / BucketSize).
func BucketCount(window Window) int {
	d := window.Duration()
	if d <= 0 {
		return 0
	}
	count := int(d / BucketSize)
	if d%BucketSize != 0 {
		count++
	}
	return count
}

// BucketStart returns the start instant of bucket i.
func BucketStart(window Window, i int) time.Time {
	return window.Start.Add(time.Duration(i) * BucketSize)
}

// BucketLabels renders the local start clock of every bucket.
func BucketLabels(window Window, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	count := BucketCount(window)
	labels := make([]string, count)
	for i := 0; i < count; i++ {
		labels[i] = BucketStart(window, i).In(loc).Format("15:04")
	}
	return labels
}

// EffectiveNow clamps now into [start, end].
func EffectiveNow(window Window, now time.Time) time.Time {
	if now.Before(window.Start) {
		return window.Start
	}
	if now.After(window.End) {
		return window.End
	}
	return now
}

// ElapsedBuckets returns how many buckets have started by now (0..BucketCount).
func ElapsedBuckets(window Window, now time.Time) int {
	effective := EffectiveNow(window, now)
	elapsed := effective.Sub(window.Start)
	if elapsed <= 0 {
		return 0
	}
	count := int(elapsed / BucketSize)
	if elapsed%BucketSize != 0 {
		count++
	}
	if total := BucketCount(window); count > total {
		count = total
	}
	return count
}

// ElapsedFraction returns the elapsed share of the window in [0,1].
func ElapsedFraction(window Window, now time.Time) float64 {
	total := window.Duration()
	if total <= 0 {
		return 0
	}
	return clampFloat(float64(EffectiveNow(window, now).Sub(window.Start))/float64(total), 0, 1)
}

// BucketizeEvents sums events into per-bucket cents.
// Events outside [start, effectiveNow) are dropped.
func BucketizeEvents(window Window, now time.Time, events []RevenueEvent) []int64 {
	buckets := make([]int64, BucketCount(window))
	if len(buckets) == 0 {
		return buckets
	}
	effective := EffectiveNow(window, now)
	for _, event := range events {
		if event.At.Before(window.Start) || !event.At.Before(effective) {
			continue
		}
		index := int(event.At.Sub(window.Start) / BucketSize)
		if index >= len(buckets) {
			continue
		}
		buckets[index] += event.AmountCents
	}
	return buckets
}

// DistributeLabor splits every interval across the buckets it overlaps,
// proportionally to seconds worked in each bucket at the interval's hourly rate.
// Open intervals run through effectiveNow.
func DistributeLabor(window Window, now time.Time, intervals []LaborInterval) []int64 {
	count := BucketCount(window)
	buckets := make([]int64, count)
	if count == 0 {
		return buckets
	}
	effective := EffectiveNow(window, now)
	exact := make([]float64, count)
	for _, interval := range intervals {
		if interval.HourlyRateCents <= 0 {
			continue
		}
		start := maxTime(interval.Start, window.Start)
		end := interval.End
		if interval.IsOpen() || end.After(effective) {
			end = effective
		}
		if !end.After(start) {
			continue
		}
		perSecond := float64(interval.HourlyRateCents) / 3600
		first := int(start.Sub(window.Start) / BucketSize)
		for i := first; i < count; i++ {
			bucketStart := BucketStart(window, i)
			if !bucketStart.Before(end) {
				break
			}
			bucketEnd := minTime(bucketStart.Add(BucketSize), window.End)
			overlap := minTime(end, bucketEnd).Sub(maxTime(start, bucketStart))
			if overlap <= 0 {
				continue
			}
			exact[i] += overlap.Seconds() * perSecond
		}
	}
	for i, value := range exact {
		buckets[i] = int64(math.Round(value))
	}
	return buckets
}

// CurrentHourlyRate sums the hourly rates of everyone clocked in at now.
func CurrentHourlyRate(intervals []LaborInterval, now time.Time) int64 {
	var total int64
	for _, interval := range intervals {
		if interval.HourlyRateCents <= 0 || interval.Start.After(now) {
			continue
		}
		if interval.IsOpen() || interval.End.After(now) {
			total += interval.HourlyRateCents
		}
	}
	return total
}

// Cumulative returns the running prefix sum of series.
func Cumulative(series []int64) []int64 {
	out := make([]int64, len(series))
	var running int64
	for i, value := range series {
		running += value
		out[i] = running
	}
	return out
}

// Sum returns the total of series.
func Sum(series []int64) int64 {
	var total int64
	for _, value := range series {
		total += value
	}
	return total
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// LaborCost prices intervals over [from, to). Open intervals run through to.
func LaborCost(intervals []LaborInterval, from, to time.Time) int64 {
	var exact float64
	for _, interval := range intervals {
		if interval.HourlyRateCents <= 0 {
			continue
		}
		start := maxTime(interval.Start, from)
		end := interval.End
		if interval.IsOpen() || end.After(to) {
			end = to
		}
		if !end.After(start) {
			continue
		}
		exact += end.Sub(start).Hours() * float64(interval.HourlyRateCents)
	}
	return int64(math.Round(exact))
}
