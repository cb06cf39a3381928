package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	internal_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/shared/domain"
	shared_errors "github.com/Pack144/packman-sub000/shared/errors"
)

const (
	defaultMailboxPage = 50
	maxMailboxPage     = 200
)

type MailboxStorage interface {
	ListMailbox(ctx context.Context, userId domain.UserId, box domain.Mailbox, limit, offset int) ([]domain.MessageSummary, error)
	MailboxCounts(ctx context.Context, userId domain.UserId) (domain.MailboxCounts, error)
}

type MailboxService interface {
	List(ctx context.Context, userId domain.UserId, box domain.Mailbox, limit, offset int) ([]domain.MessageSummary, error)
	Counts(ctx context.Context, userId domain.UserId) (domain.MailboxCounts, error)
	MailboxFor(ctx context.Context, msgId domain.MessageId, userId domain.UserId) (domain.Mailbox, error)
	Transition(ctx context.Context, msgId domain.MessageId, userId domain.UserId, t domain.Transition) (domain.Mailbox, error)
}

type Mailbox struct {
	storage    MailboxStorage
	messages   MessageStorage
	recipients RecipientStorage
	now        func() time.Time
}

func NewMailbox(storage MailboxStorage, messages MessageStorage, recipients RecipientStorage) *Mailbox {
	return &Mailbox{storage: storage, messages: messages, recipients: recipients, now: time.Now}
}

func (m *Mailbox) List(ctx context.Context, userId domain.UserId, box domain.Mailbox, limit, offset int) ([]domain.MessageSummary, error) {
	if !box.Valid() {
		return nil, shared_errors.BadRequest(fmt.Sprintf("unknown mailbox %q", box))
	}
	switch {
	case limit <= 0:
		limit = defaultMailboxPage
	case limit > maxMailboxPage:
		limit = maxMailboxPage
	}
	if offset < 0 {
		offset = 0
	}
	return m.storage.ListMailbox(ctx, userId, box, limit, offset)
}

func (m *Mailbox) Counts(ctx context.Context, userId domain.UserId) (domain.MailboxCounts, error) {
	return m.storage.MailboxCounts(ctx, userId)
}

// MailboxFor reports where a message shows up for a user. Authors without a
// copy of their own see it in Drafts, Outbox or Sent.
func (m *Mailbox) MailboxFor(ctx context.Context, msgId domain.MessageId, userId domain.UserId) (domain.Mailbox, error) {
	msg, err := m.messages.GetMessage(ctx, msgId)
	if err != nil {
		return "", err
	}
	c, err := m.recipients.GetRecipient(ctx, msgId, userId)
	switch {
	case err == nil:
		if c.Recipient.Id == msg.Author.Id && !msg.Sent() {
			return domain.AuthorMailbox(&msg), nil
		}
		return domain.Classify(&c, &msg), nil
	case isNotFound(err) && msg.Author.Id == userId:
		return domain.AuthorMailbox(&msg), nil
	default:
		return "", err
	}
}

// Transition applies a lifecycle change to the user's copy under a row lock
// and returns the mailbox the copy lands in.
func (m *Mailbox) Transition(ctx context.Context, msgId domain.MessageId, userId domain.UserId, t domain.Transition) (domain.Mailbox, error) {
	msg, err := m.messages.GetMessage(ctx, msgId)
	if err != nil {
		return "", err
	}
	now := m.now().UTC()
	c, err := m.recipients.UpdateRecipientState(ctx, msgId, userId, func(c *domain.RecipientCopy) error {
		if !c.ApplyTransition(t, now) {
			return shared_errors.BadRequest(fmt.Sprintf("unknown transition %q", t))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return domain.Classify(&c, &msg), nil
}

func isNotFound(err error) bool {
	if errors.Is(err, internal_errors.NotFound) {
		return true
	}
	return shared_errors.StatusCode(err) == 404
}
