// Package idempotency lets replicas of an event consumer agree on who
// handles an outbox event, using Redis SETNX with a TTL.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClaimStore is the part of the redis client claims use.
type ClaimStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Manager claims event ids for one consumer. The claim value is the owning
// instance, so an operator can see who holds a stuck key.
// Keys look like sf:idempotency:evt:<consumer>:<event_id>.
type Manager struct {
	store    ClaimStore
	consumer string
	owner    string
	ttl      time.Duration
}

func NewManager(store ClaimStore, consumer, owner string, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case strings.TrimSpace(consumer) == "":
		return nil, errors.New("consumer name is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	if owner == "" {
		owner = "unknown"
	}
	return &Manager{store: store, consumer: consumer, owner: owner, ttl: ttl}, nil
}

// Claim reports whether this instance now owns eventID. False means another
// replica claimed it first and the caller must skip it.
func (m *Manager) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("event id is required")
	}
	return m.store.SetNX(ctx, m.key(eventID), m.owner, m.ttl)
}

// Release drops the claim so a later batch can retry the event.
func (m *Manager) Release(ctx context.Context, eventID uuid.UUID) error {
	if eventID == uuid.Nil {
		return errors.New("event id is required")
	}
	return m.store.Del(ctx, m.key(eventID))
}

func (m *Manager) key(eventID uuid.UUID) string {
	return m.store.IdempotencyKey("evt:"+m.consumer, eventID.String())
}
