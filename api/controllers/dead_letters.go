package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

// DeadLetterReader is the read side of the outbox DLQ.
type DeadLetterReader interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
}

type deadLetterResponse struct {
	ID           uuid.UUID                  `json:"id"`
	EventID      uuid.UUID                  `json:"event_id"`
	EventType    enums.OutboxEventType      `json:"event_type"`
	OrderID      uuid.UUID                  `json:"order_id"`
	Reason       enums.OutboxDLQErrorReason `json:"reason"`
	ErrorMessage *string                    `json:"error_message,omitempty"`
	AttemptCount int                        `json:"attempt_count"`
	FailedAt     time.Time                  `json:"failed_at"`
	Payload      json.RawMessage            `json:"payload"`
}

// AdminDeadLetters lists order events the publisher gave up on, newest
// first. Filters: order_id, reason, limit.
func AdminDeadLetters(reader DeadLetterReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := deadLetterFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := reader.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		out := make([]deadLetterResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, deadLetterResponse{
				ID:           row.ID,
				EventID:      row.EventID,
				EventType:    row.EventType,
				OrderID:      row.AggregateID,
				Reason:       row.ErrorReason,
				ErrorMessage: row.ErrorMessage,
				AttemptCount: row.AttemptCount,
				FailedAt:     row.FailedAt,
				Payload:      row.Payload,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

func deadLetterFilter(r *http.Request) (outbox.DLQFilter, error) {
	var filter outbox.DLQFilter
	limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit

	if filter.AggregateID, err = validators.ParseQueryUUID(r, "order_id"); err != nil {
		return filter, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("reason")); raw != "" {
		reason := enums.OutboxDLQErrorReason(raw)
		if !reason.IsValid() {
			return filter, pkgerrors.Invalid("reason", "unknown dead letter reason")
		}
		filter.Reason = reason
	}
	return filter, nil
}
