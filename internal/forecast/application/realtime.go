package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	forecast "venue-pulse/internal/forecast/domain"
)

const (
	sourcePOSPayments     = "pos_payments"
	sourcePOSOpenOrders   = "pos_open_orders"
	sourcePOSHistory      = "pos_history"
	sourcePOSWeek         = "pos_week"
	sourceRosterTimesheet = "roster_timesheets"
	sourceRosterEmployees = "roster_employees"
	sourceRosterHistory   = "roster_history"
	sourceRosterWeek      = "roster_week"
)

// Sources groups the realtime upstream collaborators.
type Sources struct {
	Payments      PaymentSource
	OpenOrders    OpenOrderSource
	Timesheets    TimesheetSource
	EmployeeRates EmployeeRateSource
}

func (s Sources) complete() bool {
	return s.Payments != nil && s.OpenOrders != nil && s.Timesheets != nil && s.EmployeeRates != nil
}

type nightFetch struct {
	date       forecast.LocalDate
	window     forecast.Window
	payments   Settled[[]Payment]
	timesheets Settled[[]Timesheet]
}

type realtimeFetch struct {
	payments   Settled[[]Payment]
	openOrders Settled[[]OpenOrder]
	timesheets Settled[[]Timesheet]
	rates      Settled[map[string]int64]
	history    []*nightFetch

	weekPayments   Settled[[]Payment]
	weekTimesheets Settled[[]Timesheet]
}

// buildRealtime fans out every upstream fetch for one snapshot, waits for all of
// them and normalizes whatever succeeded into engine input.
func (s *SnapshotService) buildRealtime(ctx context.Context, cfg VenueConfig, loc *time.Location, now time.Time) forecast.SnapshotInput {
	date := forecast.BusinessDayReference(now, loc, cfg.BusinessDayStartHour)
	weekHours := cfg.WeekHours()
	hours := weekHours[date.Weekday()]
	window, windowErr := forecast.BuildOperatingWindow(date, hours, loc)
	open := windowErr == nil
	bill := cfg.AverageBill()

	weekStart := forecast.WeekStart(date, cfg.WeekStart())
	weekFrom := forecast.ZonedClockToUTC(weekStart, cfg.BusinessDayStartHour*60, loc)

	var fetched realtimeFetch
	var wg sync.WaitGroup

	if open {
		fanOut(ctx, &wg, sourcePOSPayments, &fetched.payments, func(ctx context.Context) ([]Payment, error) {
			return s.sources.Payments.ListPayments(ctx, cfg.LocationID, window.Start, window.End.Add(bill))
		})
		fanOut(ctx, &wg, sourcePOSOpenOrders, &fetched.openOrders, func(ctx context.Context) ([]OpenOrder, error) {
			return s.sources.OpenOrders.ListOpenOrders(ctx, cfg.LocationID)
		})
		fanOut(ctx, &wg, sourceRosterTimesheet, &fetched.timesheets, func(ctx context.Context) ([]Timesheet, error) {
			return s.sources.Timesheets.ListTimesheets(ctx, cfg.LocationID, window.Start, window.End)
		})
		for i := 1; i <= forecast.ComparableNights; i++ {
			pastDate := date.AddDays(-7 * i)
			pastWindow, err := forecast.BuildOperatingWindow(pastDate, hours, loc)
			if err != nil {
				continue
			}
			night := &nightFetch{date: pastDate, window: pastWindow}
			fetched.history = append(fetched.history, night)
			fanOut(ctx, &wg, sourcePOSHistory, &night.payments, func(ctx context.Context) ([]Payment, error) {
				return s.sources.Payments.ListPayments(ctx, cfg.LocationID, night.window.Start, night.window.End.Add(bill))
			})
			fanOut(ctx, &wg, sourceRosterHistory, &night.timesheets, func(ctx context.Context) ([]Timesheet, error) {
				return s.sources.Timesheets.ListTimesheets(ctx, cfg.LocationID, night.window.Start, night.window.End)
			})
		}
	}
	fanOut(ctx, &wg, sourceRosterEmployees, &fetched.rates, func(ctx context.Context) (map[string]int64, error) {
		return s.sources.EmployeeRates.EmployeeRates(ctx, cfg.LocationID)
	})
	fanOut(ctx, &wg, sourcePOSWeek, &fetched.weekPayments, func(ctx context.Context) ([]Payment, error) {
		return s.sources.Payments.ListPayments(ctx, cfg.LocationID, weekFrom, now)
	})
	fanOut(ctx, &wg, sourceRosterWeek, &fetched.weekTimesheets, func(ctx context.Context) ([]Timesheet, error) {
		return s.sources.Timesheets.ListTimesheets(ctx, cfg.LocationID, weekFrom, now)
	})
	wg.Wait()

	input := forecast.SnapshotInput{
		Mode:                       forecast.ModeRealtime,
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
		Weekly:                     forecast.WeeklyInput{WeekStart: weekStart},
	}

	rates := fetched.rates.Value
	if !fetched.rates.OK() {
		rates = nil
	}

	var tonightOpenOrderCents int64
	if open {
		if fetched.payments.OK() {
			events := attributePayments(fetched.payments.Value, window, bill)
			if fetched.openOrders.OK() {
				orderEvents, total := s.openOrderEvents(cfg, window, now, fetched.openOrders.Value)
				events = append(events, orderEvents...)
				input.OpenOrdersCents = total
				tonightOpenOrderCents = total
			}
			input.RevenueBuckets = forecast.BucketizeEvents(window, now, events)
		}
		if fetched.timesheets.OK() {
			intervals := laborIntervals(fetched.timesheets.Value, rates, cfg.AverageHourlyRateCents)
			input.LaborBuckets = forecast.DistributeLabor(window, now, intervals)
			input.CurrentHourlyRateCents = forecast.CurrentHourlyRate(intervals, now)
		}
		input.Comparables = comparableNights(fetched.history, bill, rates, cfg.AverageHourlyRateCents)
	}

	// The week totals include tonight, so a missing shift series leaves them
	// inconsistent with the buckets and the solver must report unavailable.
	shiftComplete := !open || (fetched.payments.OK() && fetched.timesheets.OK())
	if shiftComplete && fetched.weekPayments.OK() && fetched.weekTimesheets.OK() {
		var revenue int64
		for _, payment := range fetched.weekPayments.Value {
			revenue += payment.AmountCents
		}
		revenue += tonightOpenOrderCents
		wages := forecast.LaborCost(laborIntervals(fetched.weekTimesheets.Value, rates, cfg.AverageHourlyRateCents), weekFrom, now)
		input.Weekly.RevenueCents = &revenue
		input.Weekly.WagesCents = &wages
	}

	input.Integrations = s.integrationStatuses(open, fetched)
	return input
}

func (s *SnapshotService) integrationStatuses(open bool, fetched realtimeFetch) []forecast.IntegrationStatus {
	statuses := make([]forecast.IntegrationStatus, 0, 8)
	add := func(source string, err error) {
		status := forecast.IntegrationStatus{Source: source, OK: err == nil}
		if err != nil {
			status.Code = source + "_failed"
			status.Error = err.Error()
			s.logger.Printf("snapshot fetch failed: source=%s err=%v", source, err)
		}
		statuses = append(statuses, status)
	}
	if open {
		add(sourcePOSPayments, fetched.payments.Err)
		add(sourcePOSOpenOrders, fetched.openOrders.Err)
		add(sourceRosterTimesheet, fetched.timesheets.Err)
		add(sourcePOSHistory, firstError(fetched.history, func(n *nightFetch) error { return n.payments.Err }))
		add(sourceRosterHistory, firstError(fetched.history, func(n *nightFetch) error { return n.timesheets.Err }))
	}
	add(sourceRosterEmployees, fetched.rates.Err)
	add(sourcePOSWeek, fetched.weekPayments.Err)
	add(sourceRosterWeek, fetched.weekTimesheets.Err)
	return statuses
}

// attributePayments moves each payment back by the average bill length so that
// revenue lands roughly when the order was placed, never before the window opens.
func attributePayments(payments []Payment, window forecast.Window, bill time.Duration) []forecast.RevenueEvent {
	events := make([]forecast.RevenueEvent, 0, len(payments))
	for _, payment := range payments {
		if payment.CreatedAt.Before(window.Start) {
			continue
		}
		at := payment.CreatedAt.Add(-bill)
		if at.Before(window.Start) {
			at = window.Start
		}
		events = append(events, forecast.RevenueEvent{At: at, AmountCents: payment.AmountCents})
	}
	return events
}

// openOrderEvents counts open tabs as revenue at their creation time. Tabs with
// an excluded label only count what they gained since the first poll of this window.
func (s *SnapshotService) openOrderEvents(cfg VenueConfig, window forecast.Window, now time.Time, orders []OpenOrder) ([]forecast.RevenueEvent, int64) {
	var events []forecast.RevenueEvent
	var excluded int64
	for _, order := range orders {
		if cfg.IsExcludedLabel(order.Label) {
			excluded += order.AmountCents
			continue
		}
		at := order.CreatedAt
		if at.Before(window.Start) {
			at = window.Start
		}
		events = append(events, forecast.RevenueEvent{At: at, AmountCents: order.AmountCents})
	}

	if excluded > 0 && s.carryover != nil {
		key := CarryoverKey(cfg.LocationID, window.Start, cfg.ExcludedOpenOrderLabels)
		baseline, ok := s.carryover.Get(key)
		if !ok {
			s.carryover.Add(key, excluded)
			baseline = excluded
		}
		if excess := excluded - baseline; excess > 0 {
			at := forecast.EffectiveNow(window, now).Add(-time.Nanosecond)
			if at.Before(window.Start) {
				at = window.Start
			}
			events = append(events, forecast.RevenueEvent{At: at, AmountCents: excess})
		}
	}

	effective := forecast.EffectiveNow(window, now)
	var total int64
	for _, event := range events {
		if event.At.Before(effective) {
			total += event.AmountCents
		}
	}
	return events, total
}

// CarryoverKey identifies one service window's excluded open order baseline.
func CarryoverKey(locationID string, windowStart time.Time, labels []string) string {
	return fmt.Sprintf("%s|%s|%s", locationID, windowStart.UTC().Format(time.RFC3339), strings.Join(labels, ","))
}

// laborIntervals prices timesheets: the sheet's own rate, then the employee's
// roster rate, then the venue average.
func laborIntervals(sheets []Timesheet, rates map[string]int64, fallback int64) []forecast.LaborInterval {
	intervals := make([]forecast.LaborInterval, 0, len(sheets))
	for _, sheet := range sheets {
		rate := fallback
		if rateCents, ok := rates[sheet.EmployeeID]; ok && sheet.EmployeeID != "" && rateCents > 0 {
			rate = rateCents
		}
		if sheet.HourlyRateCents != nil && *sheet.HourlyRateCents > 0 {
			rate = *sheet.HourlyRateCents
		}
		interval := forecast.LaborInterval{Start: sheet.StartAt, HourlyRateCents: rate}
		if sheet.EndAt != nil {
			interval.End = *sheet.EndAt
		}
		intervals = append(intervals, interval)
	}
	return intervals
}

func comparableNights(history []*nightFetch, bill time.Duration, rates map[string]int64, fallback int64) []forecast.ComparableNight {
	nights := make([]forecast.ComparableNight, 0, len(history))
	for _, night := range history {
		if !night.payments.OK() {
			continue
		}
		events := attributePayments(night.payments.Value, night.window, bill)
		revenue := forecast.BucketizeEvents(night.window, night.window.End, events)
		var labor []int64
		if night.timesheets.OK() {
			intervals := laborIntervals(night.timesheets.Value, rates, fallback)
			labor = forecast.DistributeLabor(night.window, night.window.End, intervals)
		}
		nights = append(nights, forecast.NewComparableNight(night.date, revenue, labor))
	}
	return nights
}

func firstError(history []*nightFetch, pick func(*nightFetch) error) error {
	for _, night := range history {
		if err := pick(night); err != nil {
			return err
		}
	}
	return nil
}
