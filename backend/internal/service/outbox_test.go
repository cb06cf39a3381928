package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/shared/domain"
)

type MockSender struct {
	SendFunc func(id domain.MessageId) (SendStats, error)
}

func (m *MockSender) Send(ctx context.Context, id domain.MessageId) (SendStats, error) {
	return m.SendFunc(id)
}

type MockOutboxStorage struct {
	ids []domain.MessageId
	err error
}

func (m *MockOutboxStorage) ListPendingSends(ctx context.Context, limit int) ([]domain.MessageId, error) {
	if len(m.ids) > limit {
		return m.ids[:limit], m.err
	}
	return m.ids, m.err
}

func TestFlushPendingSends(t *testing.T) {
	ctx := context.Background()
	f := newMessageFixture(t)

	queued := f.draft(t)
	require.NoError(t, f.service.AddRecipient(ctx, queued.Id, userB.Id, domain.DeliveryTo))
	require.NoError(t, f.service.RequestSend(ctx, queued.Id))

	empty := f.draft(t)
	require.NoError(t, f.service.RequestSend(ctx, empty.Id))

	unqueued := f.draft(t)
	require.NoError(t, f.service.AddRecipient(ctx, unqueued.Id, userC.Id, domain.DeliveryTo))

	o := NewOutbox(f.store, f.service, OutboxConfig{Concurrency: 2})
	stats, err := o.FlushPendingSends(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, stats, o.LastStats())

	got, err := f.service.Get(ctx, queued.Id)
	require.NoError(t, err)
	assert.True(t, got.Sent())
	assert.Nil(t, got.SendRequestedAt)

	got, err = f.service.Get(ctx, unqueued.Id)
	require.NoError(t, err)
	assert.False(t, got.Sent())

	// the sent message left the queue; the empty one stays until it has recipients
	stats, err = o.FlushPendingSends(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Zero(t, stats.Sent)
	assert.Len(t, f.transport.emails(), 1)
}

func TestFlushPendingSendsFailuresDoNotAbort(t *testing.T) {
	ids := []domain.MessageId{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	boom := errors.New("smtp down")
	var calls atomic.Int32
	sender := &MockSender{SendFunc: func(id domain.MessageId) (SendStats, error) {
		calls.Add(1)
		switch id {
		case ids[0]:
			return SendStats{}, boom
		case ids[1]:
			return SendStats{}, internal_errors.AlreadySent
		default:
			return SendStats{Total: 2, Delivered: 2}, nil
		}
	}}

	o := NewOutbox(&MockOutboxStorage{ids: ids}, sender, OutboxConfig{Concurrency: 3})
	stats, err := o.FlushPendingSends(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, calls.Load())
	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 4, stats.Emails)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0], "smtp down")
}

func TestFlushPendingSendsBatchSize(t *testing.T) {
	ids := []domain.MessageId{uuid.New(), uuid.New(), uuid.New()}
	sender := &MockSender{SendFunc: func(domain.MessageId) (SendStats, error) { return SendStats{}, nil }}

	o := NewOutbox(&MockOutboxStorage{ids: ids}, sender, OutboxConfig{BatchSize: 2})
	stats, err := o.FlushPendingSends(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 2, stats.Sent)
}

func TestFlushPendingSendsListError(t *testing.T) {
	boom := errors.New("db down")
	o := NewOutbox(&MockOutboxStorage{err: boom}, &MockSender{}, OutboxConfig{})
	_, err := o.FlushPendingSends(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestStartScheduleRejectsInvalidCron(t *testing.T) {
	o := NewOutbox(&MockOutboxStorage{}, &MockSender{}, OutboxConfig{Cron: "every minute"})
	assert.Error(t, o.StartSchedule(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o = NewOutbox(&MockOutboxStorage{}, &MockSender{}, OutboxConfig{Cron: "*/5 * * * *"})
	assert.NoError(t, o.StartSchedule(ctx))
}
