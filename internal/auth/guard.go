package auth

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// LocationResolver returns the location id of the venue currently configured.
type LocationResolver interface {
	CurrentLocationID(ctx context.Context) (string, error)
}

// LocationFunc adapts a function to LocationResolver.
type LocationFunc func(ctx context.Context) (string, error)

// CurrentLocationID calls f.
func (f LocationFunc) CurrentLocationID(ctx context.Context) (string, error) {
	return f(ctx)
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithProtectedReads requires snapshot:read on API reads.
func WithProtectedReads(enabled bool) GuardOption {
	return func(g *Guard) {
		g.protectReads = enabled
	}
}

// WithExemptPaths skips the guard for exact paths.
func WithExemptPaths(paths ...string) GuardOption {
	return func(g *Guard) {
		for _, path := range paths {
			g.exempt[path] = struct{}{}
		}
	}
}

// WithGuardLogger sets the logger for rejected requests.
func WithGuardLogger(logger *log.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithNow overrides the clock used for grant expiry.
func WithNow(now func() time.Time) GuardOption {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// Guard checks venue edit grants. The location a grant must name is resolved
// on every request, so a config change that moves the venue invalidates grants
// issued for the old location.
type Guard struct {
	secret       []byte
	locations    LocationResolver
	protectReads bool
	exempt       map[string]struct{}
	logger       *log.Logger
	now          func() time.Time
}

// NewGuard constructs a guard.
func NewGuard(secret []byte, locations LocationResolver, opts ...GuardOption) (*Guard, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth guard: empty secret")
	}
	if locations == nil {
		return nil, errors.New("auth guard: nil location resolver")
	}
	g := &Guard{
		secret:    secret,
		locations: locations,
		exempt:    make(map[string]struct{}),
		logger:    log.New(io.Discard, "", 0),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Required resolves the permission a request needs, if any.
func (g *Guard) Required(r *http.Request) (Permission, bool) {
	if r == nil {
		return "", false
	}
	if _, ok := g.exempt[r.URL.Path]; ok {
		return "", false
	}
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		return "", false
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		if g.protectReads {
			return PermSnapshotRead, true
		}
		return "", false
	default:
		return PermConfigWrite, true
	}
}

// Wrap applies the guard to next.
func (g *Guard) Wrap(next http.Handler) http.Handler {
	if g == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perm, ok := g.Required(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		grant, err := ParseGrant(bearerToken(r), g.secret, g.now())
		if err != nil {
			g.logger.Printf("auth guard rejected: path=%s err=%v", r.URL.Path, err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		locationID, err := g.locations.CurrentLocationID(r.Context())
		if err != nil {
			g.logger.Printf("auth guard location lookup failed: err=%v", err)
			http.Error(w, "venue config unavailable", http.StatusServiceUnavailable)
			return
		}
		if grant.Location != locationID {
			g.logger.Printf("auth guard rejected: path=%s grant_location=%s venue_location=%s", r.URL.Path, grant.Location, locationID)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if !grant.Allows(perm) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ctx := WithIdentity(r.Context(), Identity{Subject: grant.Subject, LocationID: grant.Location, Scope: grant.Scope})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
