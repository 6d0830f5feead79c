package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var guardNow = time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)

type venueLocation struct {
	mu  sync.Mutex
	id  string
	err error
}

func (v *venueLocation) CurrentLocationID(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.id, v.err
}

func (v *venueLocation) set(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.id = id
}

func newTestGuard(t *testing.T, venue *venueLocation, opts ...GuardOption) *Guard {
	t.Helper()
	opts = append([]GuardOption{WithNow(func() time.Time { return guardNow }), WithExemptPaths("/healthz")}, opts...)
	guard, err := NewGuard([]byte("test-secret"), venue, opts...)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	return guard
}

func signGrant(t *testing.T, location, scope string, expires time.Time) string {
	t.Helper()
	grant := Grant{
		Location: location,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  "manager-7",
			IssuedAt: jwt.NewNumericDate(guardNow.Add(-time.Minute)),
		},
	}
	if !expires.IsZero() {
		grant.ExpiresAt = jwt.NewNumericDate(expires)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, grant).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign grant: %v", err)
	}
	return signed
}

func serve(handler http.Handler, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp.Code
}

func TestNewGuardValidates(t *testing.T) {
	if _, err := NewGuard(nil, &venueLocation{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewGuard([]byte("s"), nil); err == nil {
		t.Fatalf("expected error for nil resolver")
	}
}

func TestGuardConfigWriteNeedsGrantForCurrentVenue(t *testing.T) {
	venue := &venueLocation{id: "loc-1"}
	var seen Identity
	handler := newTestGuard(t, venue).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	expires := guardNow.Add(time.Hour)

	if code := serve(handler, http.MethodPut, "/api/v1/config", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without grant, got %d", code)
	}
	if code := serve(handler, http.MethodPut, "/api/v1/config", signGrant(t, "loc-1", "snapshot:read", expires)); code != http.StatusForbidden {
		t.Fatalf("expected 403 for read-only grant, got %d", code)
	}
	if code := serve(handler, http.MethodPut, "/api/v1/config", signGrant(t, "loc-2", "config:write", expires)); code != http.StatusForbidden {
		t.Fatalf("expected 403 for another venue, got %d", code)
	}

	grant := signGrant(t, "loc-1", "config:write", expires)
	if code := serve(handler, http.MethodPut, "/api/v1/config", grant); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if seen.Subject != "manager-7" || seen.LocationID != "loc-1" || seen.Scope != "config:write" {
		t.Fatalf("unexpected identity: %+v", seen)
	}

	// The venue moved; grants for the old location stop working.
	venue.set("loc-9")
	if code := serve(handler, http.MethodPut, "/api/v1/config", grant); code != http.StatusForbidden {
		t.Fatalf("expected 403 after venue moved, got %d", code)
	}
}

func TestGuardRejectsExpiredAndUnboundedGrants(t *testing.T) {
	handler := newTestGuard(t, &venueLocation{id: "loc-1"}).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	if code := serve(handler, http.MethodPut, "/api/v1/config", signGrant(t, "loc-1", "config:write", guardNow.Add(-time.Minute))); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired grant, got %d", code)
	}
	if code := serve(handler, http.MethodPut, "/api/v1/config", signGrant(t, "loc-1", "config:write", time.Time{})); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for grant without expiry, got %d", code)
	}
}

func TestGuardReads(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	venue := &venueLocation{id: "loc-1"}

	open := newTestGuard(t, venue).Wrap(ok)
	if code := serve(open, http.MethodGet, "/api/v1/snapshot", ""); code != http.StatusOK {
		t.Fatalf("expected open reads, got %d", code)
	}

	protected := newTestGuard(t, venue, WithProtectedReads(true)).Wrap(ok)
	if code := serve(protected, http.MethodGet, "/api/v1/snapshot/export.pdf", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := serve(protected, http.MethodGet, "/api/v1/snapshot", signGrant(t, "loc-1", "snapshot:read", guardNow.Add(time.Hour))); code != http.StatusOK {
		t.Fatalf("expected 200 for read grant, got %d", code)
	}
	if code := serve(protected, http.MethodGet, "/api/v1/config", signGrant(t, "loc-1", "config:write", guardNow.Add(time.Hour))); code != http.StatusOK {
		t.Fatalf("expected config:write to imply read, got %d", code)
	}
	if code := serve(protected, http.MethodGet, "/healthz", ""); code != http.StatusOK {
		t.Fatalf("expected exempt healthz, got %d", code)
	}
}

func TestGuardLocationLookupFailure(t *testing.T) {
	venue := &venueLocation{err: errors.New("db down")}
	handler := newTestGuard(t, venue).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	if code := serve(handler, http.MethodPut, "/api/v1/config", signGrant(t, "loc-1", "config:write", guardNow.Add(time.Hour))); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}

func TestParseGrantRejectsWrongSecretAndEmptyScope(t *testing.T) {
	token := signGrant(t, "loc-1", "config:write", guardNow.Add(time.Hour))
	if _, err := ParseGrant(token, []byte("other"), guardNow); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant, got %v", err)
	}
	if _, err := ParseGrant(signGrant(t, "loc-1", " ", guardNow.Add(time.Hour)), []byte("test-secret"), guardNow); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant for empty scope, got %v", err)
	}
	if _, err := ParseGrant("", []byte("test-secret"), guardNow); !errors.Is(err, ErrMissingGrant) {
		t.Fatalf("expected ErrMissingGrant, got %v", err)
	}
}
