package forecast

import (
	"math"
	"time"
)

// PONRStatus describes the state of the point-of-no-return estimate.
type PONRStatus string

const (
	PONRUnavailable  PONRStatus = "unavailable"
	PONRNotLastShift PONRStatus = "not_last_shift"
	PONRSafeAllShift PONRStatus = "safe_all_shift"
	PONRUpcoming     PONRStatus = "upcoming"
	PONRPassed       PONRStatus = "passed"
)

// PointOfNoReturnSnapshot is the weekly wage-safety estimate for the last shift.
type PointOfNoReturnSnapshot struct {
	TargetWagePercent             float64    `json:"targetWagePercent"`
	Status                        PONRStatus `json:"status"`
	PointTimeISO                  *string    `json:"pointTimeIso"`
	MinutesFromNow                *int       `json:"minutesFromNow"`
	ProjectedWeekWagePercentAtNow *float64   `json:"projectedWeekWagePercentAtNow"`
	ShiftStartISO                 string     `json:"shiftStartIso"`
	ShiftEndISO                   string     `json:"shiftEndIso"`
}

// PONRInput carries everything the solver needs for one evaluation.
// WeekRevenueCents and WeekWagesCents are week-to-date totals including the
// current shift; nil means the upstream data was unavailable.
type PONRInput struct {
	Now                  time.Time
	Location             *time.Location
	BusinessDayStartHour int
	WeekStartDay         time.Weekday
	Hours                map[time.Weekday]OperatingHours
	ThresholdPercent     float64

	WeekRevenueCents *int64
	WeekWagesCents   *int64

	ShiftRevenueBuckets []int64
	ShiftLaborBuckets   []int64
	BaselineFractions   []float64
	ProjectedTotalCents int64

	CurrentHourlyRateCents  int64
	FallbackHourlyRateCents int64
}

// WagePercentSample is one (time, projected weekly wage percent) point.
type WagePercentSample struct {
	At      time.Time
	Percent float64
}

// LastOpenDay returns the last weekday of the configured week that is not closed.
// Weekdays missing from hours count as closed.
func LastOpenDay(hours map[time.Weekday]OperatingHours, weekStart time.Weekday) (time.Weekday, bool) {
	for offset := 6; offset >= 0; offset-- {
		day := time.Weekday((int(weekStart) + offset) % 7)
		h, ok := hours[day]
		if ok && !h.IsClosed {
			return day, true
		}
	}
	return time.Sunday, false
}

// SolvePointOfNoReturn estimates when, during the last shift of the week, the
// projected weekly wage percentage crosses the threshold.
func SolvePointOfNoReturn(in PONRInput) PointOfNoReturnSnapshot {
	out := PointOfNoReturnSnapshot{
		TargetWagePercent: in.ThresholdPercent,
		Status:            PONRUnavailable,
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	lastDay, ok := LastOpenDay(in.Hours, in.WeekStartDay)
	if !ok {
		return out
	}
	today := BusinessDayReference(in.Now, loc, in.BusinessDayStartHour)
	weekStart := WeekStart(today, in.WeekStartDay)
	lastDate := weekStart.AddDays((int(lastDay) - int(in.WeekStartDay) + 7) % 7)
	window, err := BuildOperatingWindow(lastDate, in.Hours[lastDay], loc)
	if err == nil {
		out.ShiftStartISO = formatISO(window.Start)
		out.ShiftEndISO = formatISO(window.End)
	}

	if today.Weekday() != lastDay || err != nil || !window.Contains(in.Now) {
		out.Status = PONRNotLastShift
		return out
	}
	if in.WeekRevenueCents == nil || in.WeekWagesCents == nil {
		return out
	}
	if math.IsNaN(in.ThresholdPercent) || in.ThresholdPercent <= 0 {
		return out
	}

	samples := buildShiftSamples(in, window)
	for _, sample := range samples {
		if sample.At.Equal(in.Now) {
			pct := sample.Percent
			out.ProjectedWeekWagePercentAtNow = &pct
		}
	}

	crossing, found := FindThresholdCrossing(samples, in.ThresholdPercent)
	if !found {
		out.Status = PONRSafeAllShift
		return out
	}
	iso := formatISO(crossing)
	minutes := int(math.Round(crossing.Sub(in.Now).Minutes()))
	out.PointTimeISO = &iso
	out.MinutesFromNow = &minutes
	if crossing.After(in.Now) {
		out.Status = PONRUpcoming
	} else {
		out.Status = PONRPassed
	}
	return out
}

// buildShiftSamples lays out the projected weekly wage percent at shift start,
// at every elapsed bucket boundary (observed), at now, and at every future
// bucket boundary (expected). Points where weekly revenue is still zero are left out.
func buildShiftSamples(in PONRInput, window Window) []WagePercentSample {
	n := BucketCount(window)
	revenue := fitSeries(in.ShiftRevenueBuckets, n)
	labor := fitSeries(in.ShiftLaborBuckets, n)
	cumRevenue := Cumulative(revenue)
	cumLabor := Cumulative(labor)
	shiftRevenue := Sum(revenue)
	shiftLabor := Sum(labor)

	revenueBefore := maxInt64(*in.WeekRevenueCents-shiftRevenue, 0)
	wagesBefore := maxInt64(*in.WeekWagesCents-shiftLabor, 0)

	fractions := NormalizeFractions(in.BaselineFractions, n)
	preShift := boundaryFraction(fractions, 0)
	expectedAt := func(pos float64) float64 {
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		f := boundaryFraction(fractions, lo)
		if hi != lo {
			f += (boundaryFraction(fractions, hi) - f) * (pos - float64(lo))
		}
		return (f - preShift) * float64(in.ProjectedTotalCents)
	}
	position := func(t time.Time) float64 {
		return float64(t.Sub(window.Start)) / float64(BucketSize)
	}
	offset := float64(shiftRevenue) - expectedAt(position(in.Now))

	rate := in.CurrentHourlyRateCents
	if rate <= 0 {
		rate = in.FallbackHourlyRateCents
	}

	samples := make([]WagePercentSample, 0, n+2)
	add := func(at time.Time, shiftRev, shiftWages float64) {
		den := float64(revenueBefore) + shiftRev
		if den <= 0 {
			return
		}
		samples = append(samples, WagePercentSample{
			At:      at,
			Percent: (float64(wagesBefore) + shiftWages) / den * 100,
		})
	}

	add(window.Start, 0, 0)
	elapsed := int(in.Now.Sub(window.Start) / BucketSize)
	for b := 1; b <= elapsed && b <= n; b++ {
		at := BucketStart(window, b)
		if !at.Before(in.Now) {
			break
		}
		add(at, float64(cumRevenue[b-1]), float64(cumLabor[b-1]))
	}
	add(in.Now, float64(shiftRevenue), float64(shiftLabor))
	for b := elapsed + 1; b <= n; b++ {
		at := minTime(BucketStart(window, b), window.End)
		if !at.After(in.Now) {
			continue
		}
		expected := math.Max(expectedAt(position(at))+offset, float64(shiftRevenue))
		wages := float64(shiftLabor) + float64(rate)*at.Sub(in.Now).Hours()
		add(at, expected, wages)
	}
	return samples
}

// FindThresholdCrossing returns the first instant the samples reach threshold,
// linearly interpolated against the preceding sample.
func FindThresholdCrossing(samples []WagePercentSample, threshold float64) (time.Time, bool) {
	for i, sample := range samples {
		if sample.Percent < threshold {
			continue
		}
		if i == 0 {
			return sample.At, true
		}
		prev := samples[i-1]
		ratio := 1.0
		if span := sample.Percent - prev.Percent; span > 0 {
			ratio = clampFloat((threshold-prev.Percent)/span, 0, 1)
		}
		gap := sample.At.Sub(prev.At)
		return prev.At.Add(time.Duration(ratio * float64(gap))), true
	}
	return time.Time{}, false
}

// boundaryFraction is the baseline fraction reached by the start of bucket b.
func boundaryFraction(fractions []float64, b int) float64 {
	if b <= 0 {
		return 0
	}
	return FractionAt(fractions, b-1)
}

func fitSeries(series []int64, n int) []int64 {
	out := make([]int64, n)
	copy(out, series)
	return out
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func formatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
