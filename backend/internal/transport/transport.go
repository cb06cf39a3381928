// Package transport hands personalized emails to an outbound mail system.
// Every adapter resolves attachments itself, once per batch, through an
// AttachmentStore.
package transport

import (
	"context"
	"io"
	"net/mail"
	"slices"

	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/Pack144/packman-sub000/shared/logger"
	"github.com/Pack144/packman-sub000/shared/middleware/metrics"
)

// OutboundEmail is one personalized email for one recipient copy.
type OutboundEmail struct {
	MessageId   domain.MessageId
	From        mail.Address
	To          mail.Address
	ReplyTo     mail.Address
	Subject     string
	Text        string
	HTML        string
	Headers     map[string]string
	Attachments []domain.FileRef
}

type AttachmentStore interface {
	Open(ref domain.FileRef) (io.ReadCloser, error)
}

// Transport opens connections to the outbound mail system.
type Transport interface {
	Open(ctx context.Context) (Connection, error)
}

// Connection is a scoped delivery session. Callers close it on every path.
type Connection interface {
	// SendBatch reports how many emails were accepted. Failures of single
	// emails are logged and counted, not returned.
	SendBatch(ctx context.Context, emails []*OutboundEmail) (int, error)
	Close() error
}

// sendEach runs send for every email, in order, and returns the number that
// succeeded. It stops early only when ctx is done.
func sendEach(ctx context.Context, kind string, emails []*OutboundEmail, send func(*OutboundEmail) error) (int, error) {
	log := logger.Component("transport").With("transport", kind)
	success := 0
	for _, e := range emails {
		if err := ctx.Err(); err != nil {
			return success, err
		}
		if err := send(e); err != nil {
			metrics.EmailsDelivered.WithLabelValues("failed").Inc()
			log.Warn("failed to deliver email", "message_id", e.MessageId, "to", e.To.Address, "error", err)
			continue
		}
		metrics.EmailsDelivered.WithLabelValues("ok").Inc()
		success++
	}
	return success, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
