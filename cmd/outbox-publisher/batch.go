package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// processBatch publishes one locked batch. Publish failures are recorded on
// their rows and summarised in one log line; only bookkeeping failures abort
// the batch and roll it back.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	var publishErrs error
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		processed = len(events) > 0
		for _, event := range events {
			if err := s.deliver(ctx, tx, event, &publishErrs); err != nil {
				return err
			}
		}
		return nil
	})
	if failures := multierr.Errors(publishErrs); len(failures) > 0 {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"failed_events": len(failures),
			"errors":        publishErrs.Error(),
		}), "outbox batch finished with failures")
	}
	return processed, err
}

// deliver moves one event to a published, retry or terminal state. Publish
// failures are appended to failures; the returned error is a bookkeeping
// failure.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, failures *error) error {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		s.metrics.IncFailure(string(event.EventType))
		multierr.AppendInto(failures, fmt.Errorf("resolve %s: %w", event.ID, err))
		return s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, nil)
	}

	fields := s.eventFields(event, resolved.Envelope, resolved.Descriptor.Topic)
	claimed, err := s.claim(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("claim %s: %w", event.ID, err)
	}
	if !claimed {
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event already published by another attempt")
		return s.markPublished(tx, event.ID)
	}

	started := time.Now()
	err = s.publishResolved(ctx, event, resolved)
	s.metrics.ObserveDuration(string(event.EventType), time.Since(started))
	if err == nil {
		s.metrics.IncSuccess(string(event.EventType))
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return s.markPublished(tx, event.ID)
	}

	s.metrics.IncFailure(string(event.EventType))
	s.release(ctx, event.ID)
	multierr.AppendInto(failures, fmt.Errorf("publish %s: %w", event.ID, err))

	if registry.IsNonRetryable(err) {
		return s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	fields["attempt_count"] = event.AttemptCount + 1
	if event.AttemptCount+1 >= s.maxAttempts {
		fields["terminal_reason"] = "max_attempts"
		terminalErr := fmt.Errorf("max publish attempts reached: %w", err)
		return s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminalErr, fields)
	}

	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error()), "outbox publish failed")
	if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return nil
}

func (s *Service) markPublished(tx *gorm.DB, id uuid.UUID) error {
	if err := s.repo.MarkPublishedTx(tx, id); err != nil {
		return fmt.Errorf("mark published %s: %w", id, err)
	}
	return nil
}

func (s *Service) claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if s.claims == nil {
		return true, nil
	}
	return s.claims.Claim(ctx, eventID)
}

func (s *Service) release(ctx context.Context, eventID uuid.UUID) {
	if s.claims == nil {
		return
	}
	if err := s.claims.Release(ctx, eventID); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "outbox_id", eventID.String()), "release outbox claim", err)
	}
}

// handleTerminal parks the event in the DLQ and stops retries for it.
func (s *Service) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{}, "")
	}
	fields["error_reason"] = reason
	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error()), "outbox event will not be retried")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"order_id":       event.AggregateID.String(),
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}
