package notary

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/hedera"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/outbox"
	"github.com/veritrace/veritrace-backend/pkg/outbox/idempotency"
)

const notaryConsumerName = "notary"

type notarizer interface {
	Notarize(ctx context.Context, params hedera.NotarizeParams) (*hedera.Receipt, error)
}

type claimUpdater interface {
	UpdateClaimNotarization(ctx context.Context, claimID uuid.UUID, transactionID, timestamp string) error
}

// Consumer watches claim submissions and records each claim on the consensus
// ledger, then stamps the claim row with the resulting transaction.
type Consumer struct {
	ledger       notarizer
	claims       claimUpdater
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a claim notarization consumer.
func NewConsumer(ledger notarizer, claims claimUpdater, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger gateway required")
	}
	if claims == nil {
		return nil, fmt.Errorf("claim repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notarization subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		ledger:       ledger,
		claims:       claims,
		subscription: subscription,
		idempotency:  manager,
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

	if eventType != string(enums.EventClaimSubmitted) {
		c.logg.Info(logCtx, "skipping non-claim event")
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notaryConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return false
	}

	var payload outbox.ClaimSubmittedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, notaryConsumerName, eventID)
		return false
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"claim_id": payload.ClaimID.String(),
		"batch_id": payload.BatchID,
	})

	if err := c.notarizeClaim(ctx, payload, logCtx); err != nil {
		_ = c.idempotency.Delete(ctx, notaryConsumerName, eventID)
		if retryable(err) {
			c.logg.Warn(logCtx, "notarization failed, will retry")
			return true
		}
		c.logg.Error(logCtx, "notarization failed terminally", err)
		return false
	}

	c.logg.Info(logCtx, "claim notarized")
	return false
}

func (c *Consumer) notarizeClaim(ctx context.Context, payload outbox.ClaimSubmittedEvent, logCtx context.Context) error {
	if payload.ClaimID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "claim id missing from payload")
	}

	receipt, err := c.ledger.Notarize(ctx, hedera.NotarizeParams{
		ClaimID:          payload.ClaimID.String(),
		ProductID:        payload.ProductID.String(),
		BatchID:          payload.BatchID,
		ClaimType:        payload.ClaimType,
		ClaimDescription: payload.ClaimDescription,
	})
	if err != nil {
		return err
	}

	if err := c.claims.UpdateClaimNotarization(ctx, payload.ClaimID, receipt.TransactionID, receipt.ConsensusTimestamp); err != nil {
		c.logg.Error(logCtx, "claim row update failed after notarization", err)
		return err
	}
	return nil
}

// retryable treats coded errors per their retry flag and anything uncoded
// (raw transport or database failures) as transient.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if typed := pkgerrors.As(err); typed != nil {
		return pkgerrors.IsRetryable(err)
	}
	return true
}
