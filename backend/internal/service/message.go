package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	internal_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/backend/internal/transport"
	"github.com/Pack144/packman-sub000/shared/domain"
	shared_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/logger"
	"github.com/Pack144/packman-sub000/shared/middleware/metrics"
	"github.com/Pack144/packman-sub000/shared/validation"
)

type MessageService interface {
	Save(ctx context.Context, data domain.MessageCreationData) (domain.Message, error)
	Get(ctx context.Context, id domain.MessageId) (domain.Message, error)
	UpdateDraft(ctx context.Context, id domain.MessageId, subject domain.Subject, body string) error
	DeleteDraft(ctx context.Context, id domain.MessageId) error
	AddAttachment(ctx context.Context, id domain.MessageId, ref domain.FileRef) error
	AddRecipient(ctx context.Context, id domain.MessageId, userId domain.UserId, d domain.Delivery) error
	AttachDistribution(ctx context.Context, id domain.MessageId, listId domain.ListId, d domain.Delivery) error
	Recipients(ctx context.Context, id domain.MessageId) ([]domain.RecipientCopy, error)
	RequestSend(ctx context.Context, id domain.MessageId) error
	Send(ctx context.Context, id domain.MessageId) (SendStats, error)
	Upload(ctx context.Context, id domain.MessageId, filename string, data io.Reader) (domain.FileRef, error)
}

type MessageStorage interface {
	CreateMessage(ctx context.Context, msg domain.Message) (domain.Message, error)
	GetMessage(ctx context.Context, id domain.MessageId) (domain.Message, error)
	UpdateDraft(ctx context.Context, id domain.MessageId, subject domain.Subject, body string) error
	DeleteDraft(ctx context.Context, id domain.MessageId) error
	AddAttachment(ctx context.Context, id domain.MessageId, ref domain.FileRef) error
	AttachDistribution(ctx context.Context, id domain.MessageId, listId domain.ListId, d domain.Delivery) error
	GetDistributions(ctx context.Context, id domain.MessageId) ([]domain.Distribution, error)
	RequestSend(ctx context.Context, id domain.MessageId) error
	MarkSent(ctx context.Context, id domain.MessageId, at time.Time) error
}

// EmailBuilder personalizes outbound emails for a message's copies.
type EmailBuilder interface {
	Build(ctx context.Context, msg *domain.Message, copies []domain.RecipientCopy) ([]*transport.OutboundEmail, error)
}

// SendStats summarizes one completed send.
type SendStats struct {
	Expansion ExpansionStats
	Total     int
	Delivered int
}

type Message struct {
	storage    MessageStorage
	recipients RecipientStorage
	expander   *Expander
	builder    EmailBuilder
	transport  transport.Transport
	files      AttachmentStorage
	now        func() time.Time
}

func NewMessage(storage MessageStorage, recipients RecipientStorage, expander *Expander, builder EmailBuilder, tr transport.Transport) *Message {
	return &Message{
		storage:    storage,
		recipients: recipients,
		expander:   expander,
		builder:    builder,
		transport:  tr,
		now:        time.Now,
	}
}

// Save creates a draft. Thread assignment happens in the same transaction,
// before anything else is written.
func (m *Message) Save(ctx context.Context, data domain.MessageCreationData) (domain.Message, error) {
	data.Subject = strings.TrimSpace(data.Subject)
	if err := validation.Struct(data); err != nil {
		return domain.Message{}, err
	}
	if data.Author.Id == 0 {
		return domain.Message{}, shared_errors.BadRequest("author is required")
	}

	msg, err := m.storage.CreateMessage(ctx, domain.Message{
		Author:      data.Author,
		Subject:     data.Subject,
		Body:        data.Body,
		ParentId:    data.ParentId,
		Attachments: data.Attachments,
	})
	if err != nil {
		return domain.Message{}, err
	}
	logger.Log.Info("draft created", "message_id", msg.Id, "thread_id", msg.ThreadId, "author_id", msg.Author.Id)
	return msg, nil
}

func (m *Message) Get(ctx context.Context, id domain.MessageId) (domain.Message, error) {
	return m.storage.GetMessage(ctx, id)
}

func (m *Message) UpdateDraft(ctx context.Context, id domain.MessageId, subject domain.Subject, body string) error {
	subject = strings.TrimSpace(subject)
	if err := validation.Var(subject, "required,max=150"); err != nil {
		return err
	}
	return m.storage.UpdateDraft(ctx, id, subject, body)
}

func (m *Message) DeleteDraft(ctx context.Context, id domain.MessageId) error {
	return m.storage.DeleteDraft(ctx, id)
}

func (m *Message) AddAttachment(ctx context.Context, id domain.MessageId, ref domain.FileRef) error {
	if ref == "" {
		return shared_errors.BadRequest("attachment reference is required")
	}
	return m.storage.AddAttachment(ctx, id, ref)
}

// AddRecipient addresses a user directly. A direct copy is never
// weakened by later list expansion.
func (m *Message) AddRecipient(ctx context.Context, id domain.MessageId, userId domain.UserId, d domain.Delivery) error {
	if !d.Valid() {
		return shared_errors.BadRequest(fmt.Sprintf("unknown delivery %q", d))
	}
	msg, err := m.storage.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if msg.Sent() {
		return internal_errors.AlreadySent
	}
	_, _, err = m.expander.AddDirect(ctx, id, userId, d)
	return err
}

func (m *Message) AttachDistribution(ctx context.Context, id domain.MessageId, listId domain.ListId, d domain.Delivery) error {
	if !d.Valid() {
		return shared_errors.BadRequest(fmt.Sprintf("unknown delivery %q", d))
	}
	return m.storage.AttachDistribution(ctx, id, listId, d)
}

func (m *Message) Recipients(ctx context.Context, id domain.MessageId) ([]domain.RecipientCopy, error) {
	return m.recipients.ListRecipients(ctx, id)
}

// RequestSend queues the draft for the next outbox flush.
func (m *Message) RequestSend(ctx context.Context, id domain.MessageId) error {
	if err := m.storage.RequestSend(ctx, id); err != nil {
		return err
	}
	logger.Log.Info("send requested", "message_id", id)
	return nil
}

// Send expands the message, hands one email per copy to the transport and
// marks the message sent. It runs at most once per message: a second call
// reports AlreadySent without contacting the transport. Emails the
// transport rejects one by one do not fail the send.
func (m *Message) Send(ctx context.Context, id domain.MessageId) (SendStats, error) {
	var stats SendStats
	log := logger.Log.With("message_id", id)

	msg, err := m.storage.GetMessage(ctx, id)
	if err != nil {
		return stats, err
	}
	if msg.Sent() {
		metrics.SendRejections.WithLabelValues("already_sent").Inc()
		return stats, internal_errors.AlreadySent
	}

	ds, err := m.storage.GetDistributions(ctx, id)
	if err != nil {
		return stats, err
	}
	if stats.Expansion, err = m.expander.Expand(ctx, id, ds); err != nil {
		return stats, fmt.Errorf("failed to expand message %s: %w", id, err)
	}

	copies, err := m.recipients.ListRecipients(ctx, id)
	if err != nil {
		return stats, err
	}
	if len(copies) == 0 {
		metrics.SendRejections.WithLabelValues("no_recipients").Inc()
		return stats, internal_errors.NoRecipients
	}

	emails, err := m.builder.Build(ctx, &msg, copies)
	if err != nil {
		return stats, fmt.Errorf("failed to build emails for message %s: %w", id, err)
	}
	stats.Total = len(emails)

	if stats.Delivered, err = m.deliver(ctx, emails); err != nil {
		return stats, err
	}
	log.Info("message delivered", "success", stats.Delivered, "total", stats.Total)

	if err := m.storage.MarkSent(ctx, id, m.now().UTC()); err != nil {
		if errors.Is(err, internal_errors.AlreadySent) {
			metrics.SendRejections.WithLabelValues("already_sent").Inc()
			log.Warn("message was marked sent concurrently")
		}
		return stats, err
	}
	metrics.MessagesSent.Inc()
	return stats, nil
}

func (m *Message) deliver(ctx context.Context, emails []*transport.OutboundEmail) (int, error) {
	conn, err := m.transport.Open(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to open transport: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Log.Warn("failed to close transport connection", "error", err)
		}
	}()

	n, err := conn.SendBatch(ctx, emails)
	if err != nil {
		return n, fmt.Errorf("failed to send batch: %w", err)
	}
	return n, nil
}
