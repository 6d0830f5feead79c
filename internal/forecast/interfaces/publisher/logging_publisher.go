package publisher

import (
	"context"
	"errors"
	"log"

	forecast "venue-pulse/internal/forecast/domain"
)

// LoggingPublisher logs snapshot summaries.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishSnapshot logs the snapshot.
func (p *LoggingPublisher) PublishSnapshot(ctx context.Context, snap forecast.LiveSnapshot) error {
	_ = ctx
	if p == nil {
		return errors.New("snapshot publisher: nil publisher")
	}
	p.logger.Printf("snapshot built: id=%s mode=%s location=%s date=%s revenue=%d projected=%d ponr=%s",
		snap.SnapshotID, snap.Mode, snap.LocationID, snap.BusinessDate,
		snap.Totals.RevenueCents, snap.Projection.RampedProjectedTotalCents, snap.PointOfNoReturn.Status)
	return nil
}
