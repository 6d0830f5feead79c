package memory

import (
	"context"
	"sync"
	"time"

	"venue-pulse/internal/forecast/application"
)

// FeedStore is an in-memory POS and roster feed for demo/testing.
// It implements every realtime source interface.
type FeedStore struct {
	mu         sync.RWMutex
	payments   []application.Payment
	openOrders []application.OpenOrder
	timesheets []application.Timesheet
	rates      map[string]int64
}

// NewFeedStore constructs an empty feed.
func NewFeedStore() *FeedStore {
	return &FeedStore{rates: make(map[string]int64)}
}

// AddPayments appends payments.
func (s *FeedStore) AddPayments(payments ...application.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, payments...)
}

// SetOpenOrders replaces the open orders.
func (s *FeedStore) SetOpenOrders(orders ...application.OpenOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openOrders = append([]application.OpenOrder(nil), orders...)
}

// AddTimesheets appends timesheets.
func (s *FeedStore) AddTimesheets(sheets ...application.Timesheet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timesheets = append(s.timesheets, sheets...)
}

// SetEmployeeRate sets an employee's hourly rate in cents.
func (s *FeedStore) SetEmployeeRate(employeeID string, cents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[employeeID] = cents
}

// ListPayments returns payments created in [from, to).
func (s *FeedStore) ListPayments(ctx context.Context, locationID string, from, to time.Time) ([]application.Payment, error) {
	_ = ctx
	_ = locationID
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]application.Payment, 0, len(s.payments))
	for _, payment := range s.payments {
		if payment.CreatedAt.Before(from) || !payment.CreatedAt.Before(to) {
			continue
		}
		result = append(result, payment)
	}
	return result, nil
}

// ListOpenOrders returns the current open orders.
func (s *FeedStore) ListOpenOrders(ctx context.Context, locationID string) ([]application.OpenOrder, error) {
	_ = ctx
	_ = locationID
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]application.OpenOrder(nil), s.openOrders...), nil
}

// ListTimesheets returns timesheets overlapping [from, to).
func (s *FeedStore) ListTimesheets(ctx context.Context, locationID string, from, to time.Time) ([]application.Timesheet, error) {
	_ = ctx
	_ = locationID
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]application.Timesheet, 0, len(s.timesheets))
	for _, sheet := range s.timesheets {
		if !sheet.StartAt.Before(to) {
			continue
		}
		if sheet.EndAt != nil && !sheet.EndAt.After(from) {
			continue
		}
		result = append(result, sheet)
	}
	return result, nil
}

// EmployeeRates returns a copy of the rate map.
func (s *FeedStore) EmployeeRates(ctx context.Context, locationID string) (map[string]int64, error) {
	_ = ctx
	_ = locationID
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.rates))
	for id, cents := range s.rates {
		out[id] = cents
	}
	return out, nil
}
