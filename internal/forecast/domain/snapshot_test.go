package forecast

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

// evenSplit spreads total over n buckets, putting the remainder in the first ones.
func evenSplit(total int64, n int) []int64 {
	out := make([]int64, n)
	base := total / int64(n)
	rem := total % int64(n)
	for i := range out {
		out[i] = base
		if int64(i) < rem {
			out[i]++
		}
	}
	return out
}

func fridayOnlyHours() map[time.Weekday]OperatingHours {
	hours := map[time.Weekday]OperatingHours{}
	for day := time.Sunday; day <= time.Saturday; day++ {
		hours[day] = OperatingHours{IsClosed: true}
	}
	hours[time.Friday] = OperatingHours{OpeningTime: "15:00", ClosingTime: "03:00"}
	return hours
}

func fridayInput(t *testing.T) SnapshotInput {
	t.Helper()
	friday := LocalDate{2026, time.October, 16}
	nights := make([]ComparableNight, 0, ComparableNights)
	for i := 1; i <= ComparableNights; i++ {
		revenue := append(evenSplit(100000, 24), evenSplit(100000, 24)...)
		nights = append(nights, NewComparableNight(friday.AddDays(-7*i), revenue, repeatSeries(1000, 48)))
	}
	tonight := append(evenSplit(100000, 24), make([]int64, 24)...)
	labor := append(repeatSeries(1000, 24), make([]int64, 24)...)

	in := SnapshotInput{
		SnapshotID:             "snap-1",
		Mode:                   ModeRealtime,
		VenueName:              "The Anchor",
		LocationID:             "loc-1",
		Now:                    time.Date(2026, time.October, 16, 21, 0, 0, 0, time.UTC),
		Location:               time.UTC,
		BusinessDayStartHour:   5,
		WeekStartDay:           time.Monday,
		WeekHours:              fridayOnlyHours(),
		BusinessDate:           friday,
		Targets:                DayTargets{RevenueCents: 180000, WagePercent: 25},
		RevenueBuckets:         tonight,
		LaborBuckets:           labor,
		CurrentHourlyRateCents: 4000,
		AverageHourlyRateCents: 1500,
		Comparables:            nights,
	}
	in.WeeklyWageThresholdPercent = 22
	return in
}

func TestAssembleSnapshotOpenNight(t *testing.T) {
	snap := AssembleSnapshot(fridayInput(t))

	if snap.IsClosed {
		t.Fatalf("expected open night")
	}
	if snap.WindowStartISO != "2026-10-16T15:00:00Z" || snap.WindowEndISO != "2026-10-17T03:00:00Z" {
		t.Fatalf("unexpected window: %s - %s", snap.WindowStartISO, snap.WindowEndISO)
	}
	if len(snap.Timeline.Labels) != 48 || snap.Timeline.Labels[0] != "15:00" {
		t.Fatalf("unexpected labels: %v", snap.Timeline.Labels)
	}
	if snap.Timeline.CurrentBucketIndex != 23 {
		t.Fatalf("expected current bucket 23, got %d", snap.Timeline.CurrentBucketIndex)
	}
	if snap.Totals.RevenueCents != 100000 || snap.Totals.LaborCents != 24000 {
		t.Fatalf("unexpected totals: %+v", snap.Totals)
	}
	if snap.Comparison.RollingAverageRevenueCents != 200000 {
		t.Fatalf("unexpected rolling average: %d", snap.Comparison.RollingAverageRevenueCents)
	}
	if math.Abs(snap.Projection.BaselineFraction-0.5) > 1e-9 {
		t.Fatalf("expected baseline 0.5, got %v", snap.Projection.BaselineFraction)
	}
	if snap.Projection.RawProjectedTotalCents != 200000 || snap.Projection.RampedProjectedTotalCents != 200000 {
		t.Fatalf("unexpected projection: %+v", snap.Projection.ProjectionMetrics)
	}
	if snap.Projection.ProjectedLaborCents != 48000 {
		t.Fatalf("expected projected labor 48000, got %d", snap.Projection.ProjectedLaborCents)
	}
	if !snap.Projection.OnTrack || snap.Projection.ProjectedVsTargetCents != 20000 {
		t.Fatalf("expected on track by 20000, got %+v", snap.Projection)
	}
	if snap.Comparison.RevenueVsExpectedCents != 0 {
		t.Fatalf("expected tonight to match history, got %d", snap.Comparison.RevenueVsExpectedCents)
	}
	if got := snap.Timeline.ExpectedCumulativeRevenueCents[47]; got != 200000 {
		t.Fatalf("expected curve to end at projection, got %d", got)
	}

	points := snap.Timeline.WagePoints
	if points[23].CurrentPercent == nil || math.Abs(*points[23].CurrentPercent-24) > 1e-9 {
		t.Fatalf("expected 24%% wage at bucket 23, got %v", points[23].CurrentPercent)
	}
	if points[24].CurrentPercent != nil {
		t.Fatalf("expected future bucket to be null")
	}
	if snap.PointOfNoReturn.Status != PONRUnavailable {
		t.Fatalf("expected unavailable without weekly data, got %s", snap.PointOfNoReturn.Status)
	}
}

func TestAssembleSnapshotWithoutHistoryUsesTarget(t *testing.T) {
	in := fridayInput(t)
	in.Comparables = nil
	snap := AssembleSnapshot(in)

	if snap.Comparison.RollingAverageRevenueCents != in.Targets.RevenueCents {
		t.Fatalf("expected rolling average to fall back to target")
	}
	if math.Abs(snap.Timeline.BaselineFractions[47]-1) > 1e-9 || math.Abs(snap.Timeline.BaselineFractions[23]-0.5) > 1e-9 {
		t.Fatalf("expected linear baseline, got %v", snap.Timeline.BaselineFractions)
	}
}

func TestAssembleSnapshotClosedDay(t *testing.T) {
	in := fridayInput(t)
	in.BusinessDate = LocalDate{2026, time.October, 17}
	in.Now = time.Date(2026, time.October, 17, 20, 0, 0, 0, time.UTC)
	snap := AssembleSnapshot(in)

	if !snap.IsClosed {
		t.Fatalf("expected closed day")
	}
	if len(snap.Timeline.Labels) != 1 || snap.Timeline.Labels[0] != ClosedLabel {
		t.Fatalf("unexpected closed labels: %v", snap.Timeline.Labels)
	}
	if snap.Totals.RevenueCents != 0 || snap.Totals.WagePercent != nil {
		t.Fatalf("expected zero totals, got %+v", snap.Totals)
	}
	if snap.PointOfNoReturn.Status != PONRNotLastShift {
		t.Fatalf("expected not_last_shift, got %s", snap.PointOfNoReturn.Status)
	}

	delete(in.WeekHours, time.Saturday)
	if !AssembleSnapshot(in).IsClosed {
		t.Fatalf("expected missing weekday to count as closed")
	}
}

func TestAssembleSnapshotWeeklyAndJSON(t *testing.T) {
	in := fridayInput(t)
	in.Weekly = WeeklyInput{
		WeekStart:    LocalDate{2026, time.October, 12},
		RevenueCents: int64Ptr(400000),
		WagesCents:   int64Ptr(80000),
	}
	snap := AssembleSnapshot(in)

	if snap.Weekly.WeekStartDate != "2026-10-12" {
		t.Fatalf("unexpected week start: %s", snap.Weekly.WeekStartDate)
	}
	if snap.Weekly.WagePercent == nil || *snap.Weekly.WagePercent != 20 {
		t.Fatalf("expected 20%% weekly wage, got %v", snap.Weekly.WagePercent)
	}
	if snap.PointOfNoReturn.Status == PONRNotLastShift || snap.PointOfNoReturn.Status == PONRUnavailable {
		t.Fatalf("expected a solved status on the last shift, got %s", snap.PointOfNoReturn.Status)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if decoded["dayKey"] != "friday" || decoded["mode"] != "realtime" {
		t.Fatalf("unexpected json fields: %v %v", decoded["dayKey"], decoded["mode"])
	}
}

func TestBaselineFractionAtInterpolatesWithinBucket(t *testing.T) {
	start := time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)
	window := Window{Start: start, End: start.Add(time.Hour)}
	fractions := []float64{0.1, 0.3, 0.6, 1.0}

	cases := []struct {
		at   time.Time
		want float64
	}{
		{start.Add(-time.Hour), 0},
		{start, 0},
		{start.Add(15 * time.Minute), 0.1},
		{start.Add(22*time.Minute + 30*time.Second), 0.2},
		{start.Add(45 * time.Minute), 0.6},
		{start.Add(2 * time.Hour), 1.0},
	}
	for _, tc := range cases {
		if got := BaselineFractionAt(fractions, window, tc.at); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("at %s expected %v, got %v", tc.at.Format("15:04:05"), tc.want, got)
		}
	}
}
