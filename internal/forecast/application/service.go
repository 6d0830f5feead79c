package application

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	forecast "venue-pulse/internal/forecast/domain"
	"venue-pulse/internal/observability/metrics"
)

var (
	// ErrUnknownMode is returned for a snapshot mode other than sample or realtime.
	ErrUnknownMode = errors.New("snapshot service: unknown mode")
	// ErrRealtimeUnavailable is returned when realtime sources are not wired.
	ErrRealtimeUnavailable = errors.New("snapshot service: realtime sources not configured")
)

// ParseMode resolves a snapshot mode name; empty means fallback.
func ParseMode(value string, fallback forecast.SnapshotMode) (forecast.SnapshotMode, error) {
	switch forecast.SnapshotMode(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return fallback, nil
	case forecast.ModeSample:
		return forecast.ModeSample, nil
	case forecast.ModeRealtime:
		return forecast.ModeRealtime, nil
	default:
		return "", ErrUnknownMode
	}
}

type uuidFactory struct{}

func (uuidFactory) NewID() string { return uuid.NewString() }

// ServiceOption configures a SnapshotService.
type ServiceOption func(*SnapshotService)

// WithCarryoverCache injects the excluded open order baseline cache.
func WithCarryoverCache(cache CarryoverCache) ServiceOption {
	return func(s *SnapshotService) {
		s.carryover = cache
	}
}

// WithPublisher publishes every built snapshot.
func WithPublisher(publisher SnapshotPublisher) ServiceOption {
	return func(s *SnapshotService) {
		s.publisher = publisher
	}
}

// WithWageAlertNotifier sends weekly wage alerts.
func WithWageAlertNotifier(notifier WageAlertNotifier) ServiceOption {
	return func(s *SnapshotService) {
		s.notifier = notifier
	}
}

// WithClock overrides the wall clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *SnapshotService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDFactory overrides snapshot id generation.
func WithIDFactory(ids IDFactory) ServiceOption {
	return func(s *SnapshotService) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *SnapshotService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// SnapshotService builds live snapshots for the configured venue.
type SnapshotService struct {
	config    ConfigStore
	sources   Sources
	carryover CarryoverCache
	publisher SnapshotPublisher
	notifier  WageAlertNotifier
	ids       IDFactory
	clock     Clock
	logger    *log.Logger
	alerts    alertTracker
}

// NewSnapshotService constructs the service. Sample mode needs only the config
// store; realtime mode needs every source.
func NewSnapshotService(config ConfigStore, sources Sources, opts ...ServiceOption) (*SnapshotService, error) {
	if config == nil {
		return nil, errors.New("snapshot service: nil config store")
	}
	s := &SnapshotService{
		config:  config,
		sources: sources,
		ids:     uuidFactory{},
		clock:   SystemClock{},
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RealtimeReady reports whether every realtime source is wired.
func (s *SnapshotService) RealtimeReady() bool {
	return s.sources.complete()
}

// Config returns the current venue configuration.
func (s *SnapshotService) Config(ctx context.Context) (VenueConfig, error) {
	return s.config.Load(ctx)
}

// UpdateConfig sanitizes and stores a new venue configuration.
func (s *SnapshotService) UpdateConfig(ctx context.Context, cfg VenueConfig) (VenueConfig, error) {
	cfg, err := NormalizeVenueConfig(cfg)
	if err != nil {
		return VenueConfig{}, err
	}
	if err := s.config.Save(ctx, cfg); err != nil {
		return VenueConfig{}, err
	}
	s.logger.Printf("venue config updated: venue=%s location=%s", cfg.VenueName, cfg.LocationID)
	return cfg, nil
}

// Build assembles one snapshot as of at; a zero at means now.
func (s *SnapshotService) Build(ctx context.Context, mode forecast.SnapshotMode, at time.Time) (forecast.LiveSnapshot, error) {
	started := time.Now()
	snap, err := s.build(ctx, mode, at)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveSnapshotBuild(string(mode), result, time.Since(started))
	if err != nil {
		return forecast.LiveSnapshot{}, err
	}
	metrics.IncPONRStatus(string(snap.PointOfNoReturn.Status))

	s.publish(ctx, snap)
	s.alertIfNeeded(ctx, snap)
	return snap, nil
}

func (s *SnapshotService) build(ctx context.Context, mode forecast.SnapshotMode, at time.Time) (forecast.LiveSnapshot, error) {
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return forecast.LiveSnapshot{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return forecast.LiveSnapshot{}, err
	}
	now := at
	if now.IsZero() {
		now = s.clock.Now()
	}

	var input forecast.SnapshotInput
	switch mode {
	case forecast.ModeSample:
		input = BuildSampleInput(cfg, loc, now)
	case forecast.ModeRealtime:
		if !s.sources.complete() {
			return forecast.LiveSnapshot{}, ErrRealtimeUnavailable
		}
		input = s.buildRealtime(ctx, cfg, loc, now)
	default:
		return forecast.LiveSnapshot{}, ErrUnknownMode
	}
	input.SnapshotID = s.ids.NewID()
	input.GeneratedAt = s.clock.Now()
	return forecast.AssembleSnapshot(input), nil
}

func (s *SnapshotService) publish(ctx context.Context, snap forecast.LiveSnapshot) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
		s.logger.Printf("snapshot publish failed: id=%s err=%v", snap.SnapshotID, err)
	}
}

func (s *SnapshotService) alertIfNeeded(ctx context.Context, snap forecast.LiveSnapshot) {
	if s.notifier == nil || snap.Mode != forecast.ModeRealtime {
		return
	}
	ponr := snap.PointOfNoReturn
	if ponr.Status != forecast.PONRUpcoming && ponr.Status != forecast.PONRPassed {
		return
	}
	if !s.alerts.claim(snap.LocationID, snap.BusinessDate, ponr.Status) {
		return
	}
	alert := WageAlert{
		VenueName:           snap.VenueName,
		LocationID:          snap.LocationID,
		BusinessDate:        snap.BusinessDate,
		Status:              ponr.Status,
		ThresholdPercent:    ponr.TargetWagePercent,
		WeekWagePercent:     ponr.ProjectedWeekWagePercentAtNow,
		ProjectedTotalCents: snap.Projection.RampedProjectedTotalCents,
	}
	if ponr.PointTimeISO != nil {
		alert.PointTimeISO = *ponr.PointTimeISO
	}
	if ponr.MinutesFromNow != nil {
		alert.MinutesFromNow = *ponr.MinutesFromNow
	}
	if err := s.notifier.NotifyWageAlert(ctx, alert); err != nil {
		s.alerts.release(snap.LocationID, snap.BusinessDate, ponr.Status)
		metrics.IncWageAlert(string(ponr.Status), metrics.ResultError)
		s.logger.Printf("wage alert failed: location=%s date=%s status=%s err=%v", snap.LocationID, snap.BusinessDate, ponr.Status, err)
		return
	}
	metrics.IncWageAlert(string(ponr.Status), metrics.ResultSuccess)
	s.logger.Printf("wage alert sent: location=%s date=%s status=%s", snap.LocationID, snap.BusinessDate, ponr.Status)
}

// alertTracker sends each (location, business date, status) alert at most once.
// Entries from earlier business dates are dropped when a new date is seen.
type alertTracker struct {
	mu   sync.Mutex
	date string
	sent map[string]struct{}
}

func (t *alertTracker) claim(locationID, date string, status forecast.PONRStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sent == nil || t.date != date {
		t.sent = make(map[string]struct{})
		t.date = date
	}
	key := locationID + "|" + string(status)
	if _, ok := t.sent[key]; ok {
		return false
	}
	t.sent[key] = struct{}{}
	return true
}

func (t *alertTracker) release(locationID, date string, status forecast.PONRStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.date == date {
		delete(t.sent, locationID+"|"+string(status))
	}
}
