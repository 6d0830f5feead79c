package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	forecast "venue-pulse/internal/forecast/domain"
	"venue-pulse/internal/observability/metrics"
)

// DefaultTopic receives snapshot summaries when no topic is configured.
const DefaultTopic = "venue.snapshots"

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// SnapshotSummary is the event payload emitted for every built snapshot.
type SnapshotSummary struct {
	SnapshotID               string                `json:"snapshotId"`
	GeneratedAtISO           string                `json:"generatedAtIso"`
	Mode                     forecast.SnapshotMode `json:"mode"`
	VenueName                string                `json:"venueName"`
	LocationID               string                `json:"locationId"`
	BusinessDate             string                `json:"businessDate"`
	IsClosed                 bool                  `json:"isClosed"`
	RevenueCents             int64                 `json:"revenueCents"`
	LaborCents               int64                 `json:"laborCents"`
	WagePercent              *float64              `json:"wagePercent"`
	ProjectedRevenueCents    int64                 `json:"projectedRevenueCents"`
	ProjectedWagePercent     *float64              `json:"projectedWagePercent"`
	WeekWagePercent          *float64              `json:"weekWagePercent"`
	PointOfNoReturnStatus    forecast.PONRStatus   `json:"pointOfNoReturnStatus"`
	PointOfNoReturnTimeISO   *string               `json:"pointOfNoReturnTimeIso"`
	FailedIntegrationSources []string              `json:"failedIntegrationSources,omitempty"`
}

// Summarize reduces a snapshot to its event payload.
func Summarize(snap forecast.LiveSnapshot) SnapshotSummary {
	summary := SnapshotSummary{
		SnapshotID:             snap.SnapshotID,
		GeneratedAtISO:         snap.GeneratedAtISO,
		Mode:                   snap.Mode,
		VenueName:              snap.VenueName,
		LocationID:             snap.LocationID,
		BusinessDate:           snap.BusinessDate,
		IsClosed:               snap.IsClosed,
		RevenueCents:           snap.Totals.RevenueCents,
		LaborCents:             snap.Totals.LaborCents,
		WagePercent:            snap.Totals.WagePercent,
		ProjectedRevenueCents:  snap.Projection.RampedProjectedTotalCents,
		ProjectedWagePercent:   snap.Projection.ProjectedWagePercent,
		WeekWagePercent:        snap.Weekly.WagePercent,
		PointOfNoReturnStatus:  snap.PointOfNoReturn.Status,
		PointOfNoReturnTimeISO: snap.PointOfNoReturn.PointTimeISO,
	}
	for _, status := range snap.Integrations {
		if !status.OK {
			summary.FailedIntegrationSources = append(summary.FailedIntegrationSources, status.Source)
		}
	}
	return summary
}

// KafkaPublisher writes snapshot summaries keyed by location id.
type KafkaPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

// NewKafkaWriter builds a synchronous writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
}

// NewKafkaPublisher constructs a publisher over writer.
func NewKafkaPublisher(writer MessageWriter) (*KafkaPublisher, error) {
	if writer == nil {
		return nil, errors.New("snapshot publisher: nil writer")
	}
	return &KafkaPublisher{writer: writer, timeout: 5 * time.Second}, nil
}

// PublishSnapshot writes one summary message.
func (p *KafkaPublisher) PublishSnapshot(ctx context.Context, snap forecast.LiveSnapshot) error {
	payload, err := json.Marshal(Summarize(snap))
	if err != nil {
		metrics.IncSnapshotPublish(metrics.ResultError)
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	msg := kafka.Message{
		Key:   []byte(snap.LocationID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "snapshot_id", Value: []byte(snap.SnapshotID)},
			{Key: "mode", Value: []byte(snap.Mode)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.IncSnapshotPublish(metrics.ResultError)
		return err
	}
	metrics.IncSnapshotPublish(metrics.ResultSuccess)
	return nil
}
