package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	mapStore
	setErr  error
	lastTTL time.Duration
	deleted []string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{mapStore: mapStore{}}
}

func (r *recordingStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	r.lastTTL = ttl
	if r.setErr != nil {
		return false, r.setErr
	}
	return r.mapStore.SetNX(ctx, key, value, ttl)
}

func (r *recordingStore) Del(ctx context.Context, keys ...string) error {
	r.deleted = append(r.deleted, keys...)
	return r.mapStore.Del(ctx, keys...)
}

func newManager(t *testing.T, store ClaimStore) *Manager {
	t.Helper()
	m, err := NewManager(store, "outbox-publisher", "publisher-7", 24*time.Hour)
	require.NoError(t, err)
	return m
}

func TestClaimStoresOwnerUnderConsumerScope(t *testing.T) {
	store := newRecordingStore()
	manager := newManager(t, store)
	eventID := uuid.New()

	claimed, err := manager.Claim(context.Background(), eventID)
	require.NoError(t, err)
	require.True(t, claimed)

	key := "sf:idempotency:evt:outbox-publisher:" + eventID.String()
	require.Equal(t, "publisher-7", store.mapStore[key])
	require.Equal(t, 24*time.Hour, store.lastTTL)
}

func TestSecondClaimLoses(t *testing.T) {
	store := newRecordingStore()
	first := newManager(t, store)
	other, err := NewManager(store, "outbox-publisher", "publisher-8", time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	ok, err := first.Claim(context.Background(), eventID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = other.Claim(context.Background(), eventID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConsumersClaimIndependently(t *testing.T) {
	store := newRecordingStore()
	eventID := uuid.New()
	audit, err := NewManager(store, "order-audit", "", time.Hour)
	require.NoError(t, err)

	ok, err := newManager(t, store).Claim(context.Background(), eventID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = audit.Claim(context.Background(), eventID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "unknown", store.mapStore["sf:idempotency:evt:order-audit:"+eventID.String()])
}

func TestClaimPropagatesStoreError(t *testing.T) {
	store := newRecordingStore()
	store.setErr = errors.New("boom")

	_, err := newManager(t, store).Claim(context.Background(), uuid.New())
	require.EqualError(t, err, "boom")
}

func TestClaimAndReleaseRequireEventID(t *testing.T) {
	manager := newManager(t, newRecordingStore())

	_, err := manager.Claim(context.Background(), uuid.Nil)
	require.Error(t, err)
	require.Error(t, manager.Release(context.Background(), uuid.Nil))
}

func TestReleaseDeletesKey(t *testing.T) {
	store := newRecordingStore()
	manager := newManager(t, store)
	eventID := uuid.New()

	require.NoError(t, manager.Release(context.Background(), eventID))
	require.Equal(t, []string{"sf:idempotency:evt:outbox-publisher:" + eventID.String()}, store.deleted)
}

func TestNewManagerValidates(t *testing.T) {
	_, err := NewManager(nil, "outbox-publisher", "", time.Hour)
	require.Error(t, err)
	_, err = NewManager(newRecordingStore(), " ", "", time.Hour)
	require.Error(t, err)
	_, err = NewManager(newRecordingStore(), "outbox-publisher", "", -time.Second)
	require.Error(t, err)
}
