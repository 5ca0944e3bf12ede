package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/veritrace/veritrace-backend/pkg/enums"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/outbox"
)

const analyticsConsumerName = "analytics"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer streams verification facts into BigQuery while honoring Redis
// idempotency, so dashboards can chart verification volume and degraded-mode
// rates without touching the primary database.
type Consumer struct {
	client       tableInserter
	table        string
	manager      idempotencyChecker
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds a verification analytics consumer.
func NewConsumer(client tableInserter, table string, subscription *pubsub.Subscriber, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("analytics subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		client:       client,
		table:        strings.TrimSpace(table),
		manager:      manager,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process handles one message and reports whether it should be nacked for
// redelivery. Everything else, including poison messages, is acked.
func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) (nack bool) {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventVerificationCompleted) {
		c.logg.Info(logCtx, "event not handled by analytics consumer")
		return false
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return false
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return false
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, analyticsConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return false
	}

	row, err := buildRow(envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build verification row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return false
	}

	if err := c.client.InsertRows(ctx, c.table, []any{row}); err != nil {
		c.logg.Error(logCtx, "failed to insert verification row", err)
		_ = c.manager.Delete(ctx, analyticsConsumerName, eventID)
		return true
	}

	c.logg.Info(logCtx, "verification event ingested")
	return false
}

type verificationEventRow struct {
	EventID       string             `bigquery:"event_id"`
	BatchID       string             `bigquery:"batch_id"`
	OverallStatus string             `bigquery:"overall_status"`
	Source        string             `bigquery:"source"`
	DurationMS    int64              `bigquery:"duration_ms"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

func buildRow(envelope outbox.PayloadEnvelope) (*verificationEventRow, error) {
	var payload outbox.VerificationCompletedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if strings.TrimSpace(payload.BatchID) == "" {
		return nil, fmt.Errorf("batch id missing from payload")
	}

	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = envelope.OccurredAt
	}

	payloadJSON := cbigquery.NullJSON{}
	if len(envelope.Data) > 0 {
		payloadJSON.Valid = true
		payloadJSON.JSONVal = string(envelope.Data)
	}

	return &verificationEventRow{
		EventID:       envelope.EventID,
		BatchID:       payload.BatchID,
		OverallStatus: string(payload.OverallStatus),
		Source:        string(payload.Source),
		DurationMS:    payload.DurationMS,
		OccurredAt:    occurredAt,
		Payload:       payloadJSON,
	}, nil
}
