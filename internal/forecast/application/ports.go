package application

import (
	"context"
	"time"

	forecast "venue-pulse/internal/forecast/domain"
)

// Payment is a settled POS payment.
type Payment struct {
	CreatedAt   time.Time `json:"createdAt"`
	AmountCents int64     `json:"amountCents"`
}

// OpenOrder is an unpaid POS order (tab).
type OpenOrder struct {
	Label       string    `json:"label"`
	CreatedAt   time.Time `json:"createdAt"`
	AmountCents int64     `json:"amountCents"`
}

// Timesheet is one roster clock-in. A nil EndAt means still clocked in.
type Timesheet struct {
	StartAt         time.Time  `json:"startAt"`
	EndAt           *time.Time `json:"endAt"`
	EmployeeID      string     `json:"employeeId,omitempty"`
	HourlyRateCents *int64     `json:"hourlyRateCents,omitempty"`
}

// PaymentSource lists POS payments created in [from, to).
type PaymentSource interface {
	ListPayments(ctx context.Context, locationID string, from, to time.Time) ([]Payment, error)
}

// OpenOrderSource lists currently open POS orders.
type OpenOrderSource interface {
	ListOpenOrders(ctx context.Context, locationID string) ([]OpenOrder, error)
}

// TimesheetSource lists roster timesheets overlapping [from, to).
type TimesheetSource interface {
	ListTimesheets(ctx context.Context, locationID string, from, to time.Time) ([]Timesheet, error)
}

// EmployeeRateSource returns hourly rates in cents keyed by employee id.
type EmployeeRateSource interface {
	EmployeeRates(ctx context.Context, locationID string) (map[string]int64, error)
}

// ConfigStore loads and saves the venue configuration.
type ConfigStore interface {
	Load(ctx context.Context) (VenueConfig, error)
	Save(ctx context.Context, cfg VenueConfig) error
}

// CarryoverCache remembers the first-seen excluded open order total per service window.
type CarryoverCache interface {
	Get(key string) (int64, bool)
	Add(key string, cents int64)
}

// SnapshotPublisher emits built snapshots to downstream consumers.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap forecast.LiveSnapshot) error
}

// WageAlert is raised when the weekly wage crossing becomes upcoming or passed.
type WageAlert struct {
	VenueName           string
	LocationID          string
	BusinessDate        string
	Status              forecast.PONRStatus
	PointTimeISO        string
	MinutesFromNow      int
	ThresholdPercent    float64
	WeekWagePercent     *float64
	ProjectedTotalCents int64
}

// WageAlertNotifier delivers wage alerts.
type WageAlertNotifier interface {
	NotifyWageAlert(ctx context.Context, alert WageAlert) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDFactory issues snapshot ids.
type IDFactory interface {
	NewID() string
}
