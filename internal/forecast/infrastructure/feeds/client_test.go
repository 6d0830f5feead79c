package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"venue-pulse/internal/breaker"
)

func TestClientListPaymentsFollowsCursor(t *testing.T) {
	from := time.Date(2026, time.October, 16, 15, 0, 0, 0, time.UTC)
	to := from.Add(12 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/locations/loc-1/payments" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("from") != "2026-10-16T15:00:00Z" {
			http.Error(w, "bad from", http.StatusBadRequest)
			return
		}
		page := map[string]any{}
		switch r.URL.Query().Get("cursor") {
		case "":
			page["payments"] = []map[string]any{
				{"createdAt": "2026-10-16T16:00:00Z", "amountCents": 1200, "status": "COMPLETED"},
				{"createdAt": "2026-10-16T16:05:00Z", "amountCents": 900, "status": "FAILED"},
			}
			page["nextCursor"] = "p2"
		case "p2":
			page["payments"] = []map[string]any{
				{"createdAt": "2026-10-16T17:00:00Z", "amountCents": 800},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/", "secret")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	payments, err := client.ListPayments(context.Background(), "loc-1", from, to)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected 2 completed payments, got %d", len(payments))
	}
	if payments[0].AmountCents != 1200 || payments[1].AmountCents != 800 {
		t.Fatalf("unexpected payments: %+v", payments)
	}
}

func TestClientTimesheetsAndRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/locations/loc-1/timesheets":
			_, _ = w.Write([]byte(`{"timesheets":[{"startAt":"2026-10-16T15:00:00Z","endAt":null,"employeeId":"e1"},{"startAt":"2026-10-16T15:00:00Z","endAt":"2026-10-16T19:00:00Z","hourlyRateCents":3100}]}`))
		case "/v1/locations/loc-1/employees":
			_, _ = w.Write([]byte(`{"employees":[{"id":"e1","hourlyRateCents":2600},{"id":"e2","hourlyRateCents":0}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	from := time.Date(2026, time.October, 16, 15, 0, 0, 0, time.UTC)
	sheets, err := client.ListTimesheets(context.Background(), "loc-1", from, from.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("list timesheets: %v", err)
	}
	if len(sheets) != 2 || sheets[0].EndAt != nil || sheets[1].HourlyRateCents == nil || *sheets[1].HourlyRateCents != 3100 {
		t.Fatalf("unexpected timesheets: %+v", sheets)
	}

	rates, err := client.EmployeeRates(context.Background(), "loc-1")
	if err != nil {
		t.Fatalf("employee rates: %v", err)
	}
	if len(rates) != 1 || rates["e1"] != 2600 {
		t.Fatalf("unexpected rates: %v", rates)
	}
}

func TestClientBreakerOpensOnUpstreamErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pos := breaker.New("pos-test", breaker.Config{MaxFailures: 2, ResetTimeout: time.Hour})
	client, err := NewClient(srv.URL, "", WithBreakers(pos, nil))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	for i := 0; i < 3; i++ {
		_, err = client.ListOpenOrders(context.Background(), "loc-1")
		if err == nil {
			t.Fatalf("expected error on call %d", i)
		}
	}
	if !errors.Is(err, breaker.ErrOpen) {
		t.Fatalf("expected breaker to fail fast, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", got)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient("", ""); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
