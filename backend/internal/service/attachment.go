package service

import (
	"context"
	"io"

	"github.com/dustin/go-humanize"

	internal_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/shared/domain"
	shared_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/logger"
)

// AttachmentStorage keeps attachment bytes outside the database.
type AttachmentStorage interface {
	// Save stores data under the message and returns an opaque reference.
	Save(data io.Reader, msgId domain.MessageId, filename string) (domain.FileRef, error)
	Size(ref domain.FileRef) (int64, error)
}

// Upload stores a file and attaches it to a draft.
func (m *Message) Upload(ctx context.Context, id domain.MessageId, filename string, data io.Reader) (domain.FileRef, error) {
	if m.files == nil {
		return "", shared_errors.BadRequest("attachments are not configured")
	}
	msg, err := m.storage.GetMessage(ctx, id)
	if err != nil {
		return "", err
	}
	if msg.Sent() {
		return "", internal_errors.AlreadySent
	}

	ref, err := m.files.Save(data, id, filename)
	if err != nil {
		return "", err
	}
	if err := m.storage.AddAttachment(ctx, id, ref); err != nil {
		return "", err
	}

	if size, err := m.files.Size(ref); err == nil {
		logger.Log.Info("attachment stored", "message_id", id, "ref", ref, "size", humanize.Bytes(uint64(size)))
	}
	return ref, nil
}

// WithAttachments enables Upload.
func (m *Message) WithAttachments(files AttachmentStorage) *Message {
	m.files = files
	return m
}
