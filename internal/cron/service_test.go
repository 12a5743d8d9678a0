package cron

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	registry := NewRegistry()
	require.NoError(t, registry.Register(ok))
	require.NoError(t, registry.Register(failing))

	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(reg),
	})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "fail: boom")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)

	count, err := testutil.GatherAndCount(reg, "storefront_job_failure_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	registry := NewRegistry()
	require.NoError(t, registry.Register(job))
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: &fakeLock{held: true}})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Zero(t, job.runs)
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.Nop()})
	require.Error(t, err)
}

func TestRetentionJobComputesCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	var gotCutoff time.Time
	jobIface, err := NewRetentionJob(RetentionJobParams{
		Name:   "outbox-retention",
		Logger: logger.Nop(),
		DB:     passthroughTx{},
		Purge: func(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 4, nil
		},
		Retention: 30 * 24 * time.Hour,
	})
	require.NoError(t, err)
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, now.Add(-30*24*time.Hour), gotCutoff)
	require.Equal(t, "outbox-retention", job.Name())
}

func TestRetentionJobWrapsPurgeError(t *testing.T) {
	job, err := NewRetentionJob(RetentionJobParams{
		Name:   "dlq-retention",
		Logger: logger.Nop(),
		DB:     passthroughTx{},
		Purge: func(context.Context, *gorm.DB, time.Time) (int64, error) {
			return 0, errors.New("db down")
		},
		Retention: time.Hour,
	})
	require.NoError(t, err)
	require.ErrorContains(t, job.Run(context.Background()), "dlq-retention: db down")
}

func TestNewRetentionJobValidates(t *testing.T) {
	_, err := NewRetentionJob(RetentionJobParams{Name: "x", Logger: logger.Nop(), DB: passthroughTx{}, Retention: time.Hour})
	require.Error(t, err)
	_, err = NewRetentionJob(RetentionJobParams{Name: "x", Logger: logger.Nop(), DB: passthroughTx{}, Purge: func(context.Context, *gorm.DB, time.Time) (int64, error) { return 0, nil }})
	require.Error(t, err)
}

type memoryRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) DeleteIfValue(_ context.Context, key, expected string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] != expected {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func TestRedisLockIsExclusivePerEnv(t *testing.T) {
	store := &memoryRedis{data: map[string]string{}}
	ctx := context.Background()

	first, err := NewRedisLock(store, "prod", "worker-a", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "prod", "worker-b", time.Minute)
	require.NoError(t, err)
	require.Equal(t, "sf:cron:lock:prod", first.Key())

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(store.data[first.Key()], "worker-a/"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, second.Release(ctx))
	require.Contains(t, store.data, first.Key())

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockReleaseIgnoresStolenKey(t *testing.T) {
	store := &memoryRedis{data: map[string]string{}}
	ctx := context.Background()
	lock, err := NewRedisLock(store, "", "", 0)
	require.NoError(t, err)
	require.Equal(t, "sf:cron:lock:local", lock.Key())

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	store.data[lock.Key()] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	require.Equal(t, "someone-else", store.data[lock.Key()])
}

type panickingJob struct{}

func (panickingJob) Name() string { return "explodes" }

func (panickingJob) Run(context.Context) error { panic("kaboom") }

func TestRunOnceRecoversJobPanic(t *testing.T) {
	after := &testJob{name: "after"}
	registry := NewRegistry()
	require.NoError(t, registry.Register(panickingJob{}))
	require.NoError(t, registry.Register(after))
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{Logger: logger.Nop(), Registry: registry, Lock: lock})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.ErrorContains(t, err, "explodes: panic: kaboom")
	require.Equal(t, 1, after.runs)
	require.False(t, lock.held)
}

type deadlineJob struct {
	deadline time.Time
}

func (*deadlineJob) Name() string { return "deadline" }

func (d *deadlineJob) Run(ctx context.Context) error {
	d.deadline, _ = ctx.Deadline()
	return nil
}

func TestRunOnceBoundsJobsByTimeout(t *testing.T) {
	job := &deadlineJob{}
	registry := NewRegistry()
	require.NoError(t, registry.Register(job))
	svc, err := NewService(ServiceParams{
		Logger:     logger.Nop(),
		Registry:   registry,
		Lock:       &fakeLock{},
		JobTimeout: time.Minute,
	})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, svc.RunOnce(context.Background()))
	require.WithinDuration(t, start.Add(time.Minute), job.deadline, 5*time.Second)
}
