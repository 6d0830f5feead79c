package forecast

import (
	"math"
	"time"
)

// SnapshotMode selects synthetic or live inputs.
type SnapshotMode string

const (
	ModeSample   SnapshotMode = "sample"
	ModeRealtime SnapshotMode = "realtime"
)

// ClosedLabel is the single bucket label of a closed day.
const ClosedLabel = "Closed"

// DayTargets are the configured goals for one weekday.
type DayTargets struct {
	RevenueCents int64   `json:"revenueCents"`
	WagePercent  float64 `json:"wagePercent"`
}

// IntegrationStatus records the outcome of one upstream fetch.
type IntegrationStatus struct {
	Source string `json:"source"`
	OK     bool   `json:"ok"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WeeklyInput holds week-to-date totals including tonight. Nil means unavailable.
type WeeklyInput struct {
	WeekStart    LocalDate
	RevenueCents *int64
	WagesCents   *int64
}

// SnapshotInput is everything AssembleSnapshot needs, already normalized into
// bucket series by the caller.
type SnapshotInput struct {
	SnapshotID  string
	Mode        SnapshotMode
	VenueName   string
	LocationID  string
	GeneratedAt time.Time
	Now         time.Time

	Location             *time.Location
	BusinessDayStartHour int
	WeekStartDay         time.Weekday
	WeekHours            map[time.Weekday]OperatingHours

	BusinessDate LocalDate
	Targets      DayTargets

	RevenueBuckets         []int64
	OpenOrdersCents        int64
	LaborBuckets           []int64
	CurrentHourlyRateCents int64
	AverageHourlyRateCents int64

	Comparables []ComparableNight
	Weekly      WeeklyInput

	WeeklyWageThresholdPercent float64
	Integrations               []IntegrationStatus
}

// SnapshotTotals are tonight's figures so far.
type SnapshotTotals struct {
	RevenueCents           int64    `json:"revenueCents"`
	OpenOrdersCents        int64    `json:"openOrdersCents"`
	LaborCents             int64    `json:"laborCents"`
	WagePercent            *float64 `json:"wagePercent"`
	TargetRevenueCents     int64    `json:"targetRevenueCents"`
	TargetWagePercent      float64  `json:"targetWagePercent"`
	RevenueVsTargetPercent *float64 `json:"revenueVsTargetPercent"`
}

// SnapshotComparison relates tonight to the comparable nights.
type SnapshotComparison struct {
	RollingAverageRevenueCents int64             `json:"rollingAverageRevenueCents"`
	ExpectedRevenueSoFarCents  int64             `json:"expectedRevenueSoFarCents"`
	RevenueVsExpectedCents     int64             `json:"revenueVsExpectedCents"`
	HistoricalWagePercentNow   *float64          `json:"historicalWagePercentNow"`
	ComparableNights           []ComparableNight `json:"comparableNights"`
}

// SnapshotProjection is the end-of-night outlook.
type SnapshotProjection struct {
	ProjectionMetrics
	ProjectedLaborCents    int64    `json:"projectedLaborCents"`
	ProjectedWagePercent   *float64 `json:"projectedWagePercent"`
	ProjectedVsTargetCents int64    `json:"projectedVsTargetCents"`
	OnTrack                bool     `json:"onTrack"`
}

// SnapshotTimeline holds the per-bucket series for charting.
type SnapshotTimeline struct {
	Labels                         []string    `json:"labels"`
	BucketRevenueCents             []int64     `json:"bucketRevenueCents"`
	CumulativeRevenueCents         []int64     `json:"cumulativeRevenueCents"`
	BucketLaborCents               []int64     `json:"bucketLaborCents"`
	CumulativeLaborCents           []int64     `json:"cumulativeLaborCents"`
	ExpectedCumulativeRevenueCents []int64     `json:"expectedCumulativeRevenueCents"`
	BaselineFractions              []float64   `json:"baselineFractions"`
	CurrentBucketIndex             int         `json:"currentBucketIndex"`
	WagePoints                     []WagePoint `json:"wagePoints"`
}

// SnapshotWeekly is the week-to-date wage position.
type SnapshotWeekly struct {
	WeekStartDate    string   `json:"weekStartDate"`
	RevenueCents     *int64   `json:"revenueCents"`
	WagesCents       *int64   `json:"wagesCents"`
	WagePercent      *float64 `json:"wagePercent"`
	ThresholdPercent float64  `json:"thresholdPercent"`
}

// LiveSnapshot is the single output of one engine invocation.
type LiveSnapshot struct {
	SnapshotID      string                  `json:"snapshotId"`
	GeneratedAtISO  string                  `json:"generatedAtIso"`
	Mode            SnapshotMode            `json:"mode"`
	VenueName       string                  `json:"venueName"`
	LocationID      string                  `json:"locationId"`
	BusinessDate    string                  `json:"businessDate"`
	DayKey          string                  `json:"dayKey"`
	Timezone        string                  `json:"timezone"`
	IsClosed        bool                    `json:"isClosed"`
	WindowStartISO  string                  `json:"windowStartIso"`
	WindowEndISO    string                  `json:"windowEndIso"`
	Totals          SnapshotTotals          `json:"totals"`
	Comparison      SnapshotComparison      `json:"comparison"`
	Projection      SnapshotProjection      `json:"projection"`
	Timeline        SnapshotTimeline        `json:"timeline"`
	Weekly          SnapshotWeekly          `json:"weekly"`
	PointOfNoReturn PointOfNoReturnSnapshot `json:"pointOfNoReturn"`
	Integrations    []IntegrationStatus     `json:"integrations"`
}

// BaselineFractionAt interpolates the baseline curve at the current instant,
// treating fractions[i] as reached at the end of bucket i.
func BaselineFractionAt(fractions []float64, window Window, now time.Time) float64 {
	pos := float64(EffectiveNow(window, now).Sub(window.Start)) / float64(BucketSize)
	lo := int(math.Floor(pos))
	f := boundaryFraction(fractions, lo)
	if frac := pos - float64(lo); frac > 0 {
		f += (boundaryFraction(fractions, lo+1) - f) * frac
	}
	return clampFloat(f, 0, 1)
}

// AssembleSnapshot runs the engine over normalized inputs.
func AssembleSnapshot(in SnapshotInput) LiveSnapshot {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	generatedAt := in.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = in.Now
	}
	hours, ok := in.WeekHours[in.BusinessDate.Weekday()]
	if !ok {
		hours.IsClosed = true
	}

	snap := LiveSnapshot{
		SnapshotID:     in.SnapshotID,
		GeneratedAtISO: formatISO(generatedAt),
		Mode:           in.Mode,
		VenueName:      in.VenueName,
		LocationID:     in.LocationID,
		BusinessDate:   in.BusinessDate.String(),
		DayKey:         DayKey(in.BusinessDate.Weekday()),
		Timezone:       loc.String(),
		Integrations:   append([]IntegrationStatus{}, in.Integrations...),
	}
	snap.Weekly = assembleWeekly(in)

	window, err := BuildOperatingWindow(in.BusinessDate, hours, loc)
	if err != nil {
		assembleClosed(&snap, in)
	} else {
		assembleOpen(&snap, in, window, loc)
	}

	ponr := PONRInput{
		Now:                     in.Now,
		Location:                loc,
		BusinessDayStartHour:    in.BusinessDayStartHour,
		WeekStartDay:            in.WeekStartDay,
		Hours:                   in.WeekHours,
		ThresholdPercent:        in.WeeklyWageThresholdPercent,
		WeekRevenueCents:        in.Weekly.RevenueCents,
		WeekWagesCents:          in.Weekly.WagesCents,
		ShiftRevenueBuckets:     snap.Timeline.BucketRevenueCents,
		ShiftLaborBuckets:       snap.Timeline.BucketLaborCents,
		BaselineFractions:       snap.Timeline.BaselineFractions,
		ProjectedTotalCents:     snap.Projection.RampedProjectedTotalCents,
		CurrentHourlyRateCents:  in.CurrentHourlyRateCents,
		FallbackHourlyRateCents: in.AverageHourlyRateCents,
	}
	snap.PointOfNoReturn = SolvePointOfNoReturn(ponr)
	return snap
}

func assembleClosed(snap *LiveSnapshot, in SnapshotInput) {
	snap.IsClosed = true
	snap.Totals = SnapshotTotals{
		TargetRevenueCents: in.Targets.RevenueCents,
		TargetWagePercent:  in.Targets.WagePercent,
	}
	snap.Comparison = SnapshotComparison{ComparableNights: []ComparableNight{}}
	snap.Projection = SnapshotProjection{ProjectionMetrics: ComputeProjection(0, 0, 0, 0)}
	snap.Timeline = SnapshotTimeline{
		Labels:                         []string{ClosedLabel},
		BucketRevenueCents:             []int64{0},
		CumulativeRevenueCents:         []int64{0},
		BucketLaborCents:               []int64{0},
		CumulativeLaborCents:           []int64{0},
		ExpectedCumulativeRevenueCents: []int64{0},
		BaselineFractions:              []float64{0},
		WagePoints: []WagePoint{{
			Label:             ClosedLabel,
			TargetPercent:     in.Targets.WagePercent,
			HistoricalPercent: in.Targets.WagePercent,
		}},
	}
}

func assembleOpen(snap *LiveSnapshot, in SnapshotInput, window Window, loc *time.Location) {
	n := BucketCount(window)
	labels := BucketLabels(window, loc)
	elapsed := ElapsedBuckets(window, in.Now)

	revenue := fitSeries(in.RevenueBuckets, n)
	labor := fitSeries(in.LaborBuckets, n)
	cumRevenue := Cumulative(revenue)
	cumLabor := Cumulative(labor)
	revenueSoFar := Sum(revenue)
	laborSoFar := Sum(labor)

	fractions := LinearFractions(n)
	if hasRevenueHistory(in.Comparables) {
		fractions = NormalizeFractions(BaselineFromNights(in.Comparables), n)
	}
	baselineNow := BaselineFractionAt(fractions, window, in.Now)

	rollingAverage := RollingAverageRevenue(in.Comparables)
	if rollingAverage <= 0 {
		rollingAverage = in.Targets.RevenueCents
	}
	projection := ComputeProjection(revenueSoFar, baselineNow, rollingAverage, ElapsedFraction(window, in.Now))

	remaining := window.End.Sub(EffectiveNow(window, in.Now))
	projectedLabor := laborSoFar + int64(math.Round(float64(in.CurrentHourlyRateCents)*remaining.Hours()))

	expected := make([]int64, n)
	for i, f := range fractions {
		expected[i] = int64(math.Round(f * float64(projection.RampedProjectedTotalCents)))
	}
	historical := HistoricalWagePercents(in.Comparables, n, in.Targets.WagePercent)

	snap.WindowStartISO = formatISO(window.Start)
	snap.WindowEndISO = formatISO(window.End)
	snap.Totals = SnapshotTotals{
		RevenueCents:           revenueSoFar,
		OpenOrdersCents:        in.OpenOrdersCents,
		LaborCents:             laborSoFar,
		WagePercent:            ToPercent(laborSoFar, revenueSoFar),
		TargetRevenueCents:     in.Targets.RevenueCents,
		TargetWagePercent:      in.Targets.WagePercent,
		RevenueVsTargetPercent: ToPercent(revenueSoFar, in.Targets.RevenueCents),
	}

	expectedSoFar := int64(math.Round(baselineNow * float64(rollingAverage)))
	var historicalNow *float64
	if elapsed > 0 {
		value := historical[elapsed-1]
		historicalNow = &value
	}
	snap.Comparison = SnapshotComparison{
		RollingAverageRevenueCents: rollingAverage,
		ExpectedRevenueSoFarCents:  expectedSoFar,
		RevenueVsExpectedCents:     revenueSoFar - expectedSoFar,
		HistoricalWagePercentNow:   historicalNow,
		ComparableNights:           append([]ComparableNight{}, in.Comparables...),
	}

	snap.Projection = SnapshotProjection{
		ProjectionMetrics:      projection,
		ProjectedLaborCents:    projectedLabor,
		ProjectedWagePercent:   ToPercent(projectedLabor, projection.RampedProjectedTotalCents),
		ProjectedVsTargetCents: projection.RampedProjectedTotalCents - in.Targets.RevenueCents,
		OnTrack:                projection.RampedProjectedTotalCents >= in.Targets.RevenueCents,
	}

	snap.Timeline = SnapshotTimeline{
		Labels:                         labels,
		BucketRevenueCents:             revenue,
		CumulativeRevenueCents:         cumRevenue,
		BucketLaborCents:               labor,
		CumulativeLaborCents:           cumLabor,
		ExpectedCumulativeRevenueCents: expected,
		BaselineFractions:              fractions,
		CurrentBucketIndex:             elapsed - 1,
		WagePoints:                     ComputeWageSeries(labels, cumRevenue[:elapsed], cumLabor[:elapsed], in.Targets.WagePercent, historical),
	}
}

func assembleWeekly(in SnapshotInput) SnapshotWeekly {
	weekly := SnapshotWeekly{
		RevenueCents:     in.Weekly.RevenueCents,
		WagesCents:       in.Weekly.WagesCents,
		ThresholdPercent: in.WeeklyWageThresholdPercent,
	}
	if !in.Weekly.WeekStart.IsZero() {
		weekly.WeekStartDate = in.Weekly.WeekStart.String()
	}
	if in.Weekly.RevenueCents != nil && in.Weekly.WagesCents != nil {
		weekly.WagePercent = ToPercent(*in.Weekly.WagesCents, *in.Weekly.RevenueCents)
	}
	return weekly
}

func hasRevenueHistory(nights []ComparableNight) bool {
	for _, night := range nights {
		if night.TotalRevenueCents > 0 {
			return true
		}
	}
	return false
}
