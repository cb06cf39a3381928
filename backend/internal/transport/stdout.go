package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/dustin/go-humanize"
)

// Sizer is implemented by attachment stores that can report file sizes
// without reading them.
type Sizer interface {
	Size(ref domain.FileRef) (int64, error)
}

// Stdout prints a readable summary of each email instead of sending it.
type Stdout struct {
	w     io.Writer
	store AttachmentStore
}

func NewStdout(w io.Writer, store AttachmentStore) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{w: w, store: store}
}

func (s *Stdout) Open(ctx context.Context) (Connection, error) {
	return &stdoutConnection{w: s.w, store: s.store}, nil
}

type stdoutConnection struct {
	w     io.Writer
	store AttachmentStore
}

func (c *stdoutConnection) SendBatch(ctx context.Context, emails []*OutboundEmail) (int, error) {
	return sendEach(ctx, "stdout", emails, func(e *OutboundEmail) error {
		_, err := io.WriteString(c.w, c.format(e))
		return err
	})
}

func (c *stdoutConnection) format(e *OutboundEmail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\nTo: %s\n", e.From.String(), e.To.String())
	if e.ReplyTo.Address != "" {
		fmt.Fprintf(&b, "Reply-To: %s\n", e.ReplyTo.String())
	}
	fmt.Fprintf(&b, "Subject: %s\n", e.Subject)
	for _, k := range sortedKeys(e.Headers) {
		fmt.Fprintf(&b, "%s: %s\n", k, e.Headers[k])
	}
	for _, ref := range e.Attachments {
		fmt.Fprintf(&b, "Attachment: %s (%s)\n", ref, c.size(ref))
	}
	fmt.Fprintf(&b, "\n%s\n%s\n", e.Text, strings.Repeat("-", 72))
	return b.String()
}

func (c *stdoutConnection) size(ref domain.FileRef) string {
	sizer, ok := c.store.(Sizer)
	if !ok {
		return "size unknown"
	}
	n, err := sizer.Size(ref)
	if err != nil {
		return "missing"
	}
	return humanize.Bytes(uint64(n))
}

func (c *stdoutConnection) Close() error {
	return nil
}
