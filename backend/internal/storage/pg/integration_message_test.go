package pg

import (
	"context"
	"net/http"
	"testing"
	"time"

	backend_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/shared/domain"
	internal_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMessage_ThreadAssignment(t *testing.T) {
	ctx := context.Background()
	author := createTestUser(t, "author")

	root, err := storage.CreateMessage(ctx, domain.Message{
		Author:      author,
		Subject:     "Popcorn sale",
		Attachments: []domain.FileRef{"flyers/popcorn.pdf", "forms/order.pdf"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, root.Id)
	assert.True(t, root.HasThread())

	reply, err := storage.CreateMessage(ctx, domain.Message{Author: author, Subject: "Re: Popcorn sale", ParentId: &root.Id})
	require.NoError(t, err)
	assert.Equal(t, root.ThreadId, reply.ThreadId)

	got, err := storage.GetMessage(ctx, root.Id)
	require.NoError(t, err)
	assert.Equal(t, author.Id, got.Author.Id)
	assert.Equal(t, author.Email, got.Author.Email)
	assert.Equal(t, []domain.FileRef{"flyers/popcorn.pdf", "forms/order.pdf"}, got.Attachments)
	assert.Nil(t, got.DateSent)

	t.Run("missing parent", func(t *testing.T) {
		missing := uuid.New()
		_, err := storage.CreateMessage(ctx, domain.Message{Author: author, Subject: "orphan", ParentId: &missing})
		assert.Equal(t, http.StatusNotFound, internal_errors.StatusCode(err))
	})

	t.Run("existing thread is kept", func(t *testing.T) {
		msg, err := storage.CreateMessage(ctx, domain.Message{Author: author, Subject: "same thread", ThreadId: root.ThreadId})
		require.NoError(t, err)
		assert.Equal(t, root.ThreadId, msg.ThreadId)
	})
}

func TestDraftMutations(t *testing.T) {
	ctx := context.Background()
	author := createTestUser(t, "author")
	msg := createTestMessage(t, author)

	require.NoError(t, storage.UpdateDraft(ctx, msg.Id, "Campout moved", "Now on Sunday"))
	require.NoError(t, storage.AddAttachment(ctx, msg.Id, "maps/site.png"))
	require.NoError(t, storage.AddAttachment(ctx, msg.Id, "maps/site.png"))

	got, err := storage.GetMessage(ctx, msg.Id)
	require.NoError(t, err)
	assert.Equal(t, "Campout moved", got.Subject)
	assert.Equal(t, "Now on Sunday", got.Body)
	assert.Equal(t, []domain.FileRef{"maps/site.png"}, got.Attachments)

	require.NoError(t, storage.MarkSent(ctx, msg.Id, time.Now()))

	assert.ErrorIs(t, storage.UpdateDraft(ctx, msg.Id, "x", "y"), backend_errors.AlreadySent)
	assert.ErrorIs(t, storage.AddAttachment(ctx, msg.Id, "late.pdf"), backend_errors.AlreadySent)
	assert.ErrorIs(t, storage.DeleteDraft(ctx, msg.Id), backend_errors.AlreadySent)
	assert.ErrorIs(t, storage.RequestSend(ctx, msg.Id), backend_errors.AlreadySent)

	t.Run("unsent draft can be deleted", func(t *testing.T) {
		draft := createTestMessage(t, author)
		require.NoError(t, storage.CreateRecipient(ctx, domain.RecipientCopy{MessageId: draft.Id, Recipient: author, Delivery: domain.DeliveryTo}))
		require.NoError(t, storage.DeleteDraft(ctx, draft.Id))
		_, err := storage.GetMessage(ctx, draft.Id)
		assert.Equal(t, http.StatusNotFound, internal_errors.StatusCode(err))
	})
}

func TestMarkSent_OneShot(t *testing.T) {
	ctx := context.Background()
	msg := createTestMessage(t, createTestUser(t, "author"))
	require.NoError(t, storage.RequestSend(ctx, msg.Id))

	sentAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, storage.MarkSent(ctx, msg.Id, sentAt))
	assert.ErrorIs(t, storage.MarkSent(ctx, msg.Id, time.Now()), backend_errors.AlreadySent)

	got, err := storage.GetMessage(ctx, msg.Id)
	require.NoError(t, err)
	require.NotNil(t, got.DateSent)
	assert.True(t, sentAt.Equal(*got.DateSent))
	assert.Nil(t, got.SendRequestedAt, "sending clears the queue marker")

	err = storage.MarkSent(ctx, uuid.New(), time.Now())
	assert.Equal(t, http.StatusNotFound, internal_errors.StatusCode(err))
}

func TestListPendingSends(t *testing.T) {
	ctx := context.Background()
	author := createTestUser(t, "author")
	first := createTestMessage(t, author)
	second := createTestMessage(t, author)
	sent := createTestMessage(t, author)
	draft := createTestMessage(t, author)

	require.NoError(t, storage.RequestSend(ctx, first.Id))
	require.NoError(t, storage.RequestSend(ctx, second.Id))
	require.NoError(t, storage.RequestSend(ctx, sent.Id))
	require.NoError(t, storage.MarkSent(ctx, sent.Id, time.Now()))

	pending, err := storage.ListPendingSends(ctx, 1000)
	require.NoError(t, err)
	assert.Contains(t, pending, first.Id)
	assert.Contains(t, pending, second.Id)
	assert.NotContains(t, pending, sent.Id)
	assert.NotContains(t, pending, draft.Id)

	before, err := storage.GetMessage(ctx, first.Id)
	require.NoError(t, err)
	require.NoError(t, storage.RequestSend(ctx, first.Id))
	after, err := storage.GetMessage(ctx, first.Id)
	require.NoError(t, err)
	assert.Equal(t, before.SendRequestedAt, after.SendRequestedAt, "requesting twice keeps the first request time")
}

func TestGetDistributions_Order(t *testing.T) {
	ctx := context.Background()
	msg := createTestMessage(t, createTestUser(t, "author"))
	cc := createTestList(t)
	to := createTestList(t)

	require.NoError(t, storage.AttachDistribution(ctx, msg.Id, cc.Id, domain.DeliveryCc))
	require.NoError(t, storage.AttachDistribution(ctx, msg.Id, to.Id, domain.DeliveryCc))
	require.NoError(t, storage.AttachDistribution(ctx, msg.Id, to.Id, domain.DeliveryTo))

	ds, err := storage.GetDistributions(ctx, msg.Id)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, to.Id, ds[0].List.Id)
	assert.Equal(t, domain.DeliveryTo, ds[0].Delivery)
	assert.Equal(t, cc.Id, ds[1].List.Id)
	assert.Equal(t, cc.Name, ds[1].List.Name)

	err = storage.AttachDistribution(ctx, msg.Id, -1, domain.DeliveryTo)
	assert.Equal(t, http.StatusNotFound, internal_errors.StatusCode(err))
}
