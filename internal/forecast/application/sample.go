package application

import (
	"fmt"
	"math"
	"time"

	forecast "venue-pulse/internal/forecast/domain"
)

const (
	sampleFallbackRevenueCents = 400000
	sampleEventsPerBucket      = 3
)

// BuildSampleInput produces deterministic synthetic engine input. The same venue
// name, weekday and business date always yield the same night; only the part of
// it visible at now changes.
func BuildSampleInput(cfg VenueConfig, loc *time.Location, now time.Time) forecast.SnapshotInput {
	date := forecast.BusinessDayReference(now, loc, cfg.BusinessDayStartHour)
	weekHours := cfg.WeekHours()
	weekStart := forecast.WeekStart(date, cfg.WeekStart())

	input := forecast.SnapshotInput{
		Mode:                       forecast.ModeSample,
		VenueName:                  cfg.VenueName,
		LocationID:                 cfg.LocationID,
		Now:                        now,
		Location:                   loc,
		BusinessDayStartHour:       cfg.BusinessDayStartHour,
		WeekStartDay:               cfg.WeekStart(),
		WeekHours:                  weekHours,
		BusinessDate:               date,
		Targets:                    cfg.TargetsFor(date.Weekday()),
		AverageHourlyRateCents:     cfg.AverageHourlyRateCents,
		WeeklyWageThresholdPercent: cfg.WeeklyWageThresholdPercent,
		Integrations:               []forecast.IntegrationStatus{{Source: string(forecast.ModeSample), OK: true}},
	}

	var weekRevenue, weekWages int64
	for d := weekStart; d != date; d = d.AddDays(1) {
		night, ok := sampleNight(cfg, d, weekHours[d.Weekday()], loc)
		if !ok {
			continue
		}
		weekRevenue += forecast.Sum(night.revenue)
		weekWages += forecast.LaborCost(night.labor, night.window.Start, night.window.End)
	}

	tonight, open := sampleNight(cfg, date, weekHours[date.Weekday()], loc)
	if open {
		input.RevenueBuckets = forecast.BucketizeEvents(tonight.window, now, sampleEvents(tonight))
		input.LaborBuckets = forecast.DistributeLabor(tonight.window, now, tonight.labor)
		input.CurrentHourlyRateCents = forecast.CurrentHourlyRate(tonight.labor, now)
		input.OpenOrdersCents = int64(math.Round(float64(forecast.Sum(input.RevenueBuckets)) * forecast.SeededRange(sampleSeed(cfg, date, "open-orders"), 0.03, 0.08)))

		for i := 1; i <= forecast.ComparableNights; i++ {
			past := date.AddDays(-7 * i)
			night, ok := sampleNight(cfg, past, weekHours[date.Weekday()], loc)
			if !ok {
				continue
			}
			labor := forecast.DistributeLabor(night.window, night.window.End, night.labor)
			input.Comparables = append(input.Comparables, forecast.NewComparableNight(past, night.revenue, labor))
		}

		weekRevenue += forecast.Sum(input.RevenueBuckets)
		weekWages += forecast.Sum(input.LaborBuckets)
	}

	input.Weekly = forecast.WeeklyInput{
		WeekStart:    weekStart,
		RevenueCents: &weekRevenue,
		WagesCents:   &weekWages,
	}
	return input
}

type syntheticNight struct {
	window  forecast.Window
	revenue []int64
	labor   []forecast.LaborInterval
}

func sampleSeed(cfg VenueConfig, date forecast.LocalDate, part string) string {
	return fmt.Sprintf("%s|%s|%s|%s", cfg.VenueName, forecast.DayKey(date.Weekday()), date, part)
}

// sampleNight generates one full night: a bell-shaped demand curve with seeded
// noise, and a roster sized to the night's revenue.
func sampleNight(cfg VenueConfig, date forecast.LocalDate, hours forecast.OperatingHours, loc *time.Location) (syntheticNight, bool) {
	window, err := forecast.BuildOperatingWindow(date, hours, loc)
	if err != nil {
		return syntheticNight{}, false
	}
	n := forecast.BucketCount(window)
	if n == 0 {
		return syntheticNight{}, false
	}

	target := cfg.TargetsFor(date.Weekday())
	base := target.RevenueCents
	if base <= 0 {
		base = sampleFallbackRevenueCents
	}
	total := float64(base) * forecast.SeededRange(sampleSeed(cfg, date, "total"), 0.82, 1.15)
	peak := forecast.SeededRange(sampleSeed(cfg, date, "peak"), 0.45, 0.7)

	weights := make([]float64, n)
	var weightSum float64
	for i := range weights {
		pos := (float64(i) + 0.5) / float64(n)
		shape := math.Exp(-math.Pow((pos-peak)/0.28, 2))
		noise := forecast.SeededRange(sampleSeed(cfg, date, fmt.Sprintf("bucket-%d", i)), 0.75, 1.25)
		weights[i] = (0.15 + shape) * noise
		weightSum += weights[i]
	}
	revenue := make([]int64, n)
	for i, w := range weights {
		revenue[i] = int64(math.Round(total * w / weightSum))
	}

	rate := cfg.AverageHourlyRateCents
	if rate <= 0 {
		rate = defaultAverageHourlyRateCents
	}
	wageShare := target.WagePercent / 100 * forecast.SeededRange(sampleSeed(cfg, date, "wage"), 0.85, 1.2)
	hoursWorked := total * wageShare / float64(rate)
	shiftHours := window.Duration().Hours()
	staff := int(math.Max(1, math.Round(hoursWorked/shiftHours)))

	labor := make([]forecast.LaborInterval, 0, staff)
	for k := 0; k < staff; k++ {
		seed := sampleSeed(cfg, date, fmt.Sprintf("staff-%d", k))
		lead := time.Duration(forecast.SeededRange(seed+"-in", -0.5, 1.5) * float64(time.Hour))
		early := time.Duration(forecast.SeededRange(seed+"-out", 0, 2) * float64(time.Hour))
		start := window.Start.Add(lead).Truncate(time.Minute)
		end := window.End.Add(-early).Truncate(time.Minute)
		if !end.After(start) {
			end = window.End
		}
		labor = append(labor, forecast.LaborInterval{
			Start:           start,
			End:             end,
			HourlyRateCents: int64(math.Round(float64(rate) * forecast.SeededRange(seed+"-rate", 0.85, 1.2))),
		})
	}

	return syntheticNight{window: window, revenue: revenue, labor: labor}, true
}

// sampleEvents spreads each bucket's revenue over a few payments inside it.
func sampleEvents(night syntheticNight) []forecast.RevenueEvent {
	events := make([]forecast.RevenueEvent, 0, len(night.revenue)*sampleEventsPerBucket)
	step := forecast.BucketSize / sampleEventsPerBucket
	for i, cents := range night.revenue {
		start := forecast.BucketStart(night.window, i)
		share := cents / sampleEventsPerBucket
		for k := 0; k < sampleEventsPerBucket; k++ {
			amount := share
			if k == sampleEventsPerBucket-1 {
				amount = cents - share*(sampleEventsPerBucket-1)
			}
			events = append(events, forecast.RevenueEvent{At: start.Add(time.Duration(k) * step), AmountCents: amount})
		}
	}
	return events
}
