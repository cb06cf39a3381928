package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"

	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/jhillyerd/enmime"
)

type attachment struct {
	name        string
	contentType string
	data        []byte
}

// attachmentCache reads each referenced file at most once per connection.
// Access is sequential.
type attachmentCache struct {
	store AttachmentStore
	files map[domain.FileRef]attachment
}

func newAttachmentCache(store AttachmentStore) *attachmentCache {
	return &attachmentCache{store: store, files: make(map[domain.FileRef]attachment)}
}

func (c *attachmentCache) get(ref domain.FileRef) (attachment, error) {
	if a, ok := c.files[ref]; ok {
		return a, nil
	}
	if c.store == nil {
		return attachment{}, fmt.Errorf("no attachment store configured for %s", ref)
	}

	rc, err := c.store.Open(ref)
	if err != nil {
		return attachment{}, fmt.Errorf("failed to open attachment %s: %w", ref, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return attachment{}, fmt.Errorf("failed to read attachment %s: %w", ref, err)
	}

	a := attachment{name: path.Base(ref), data: data}
	if a.contentType = mime.TypeByExtension(path.Ext(ref)); a.contentType == "" {
		a.contentType = http.DetectContentType(data)
	}
	c.files[ref] = a
	return a, nil
}

// compose renders an email as RFC 5322 bytes.
func compose(e *OutboundEmail, files *attachmentCache) ([]byte, error) {
	b := enmime.Builder().
		From(e.From.Name, e.From.Address).
		To(e.To.Name, e.To.Address).
		Subject(e.Subject).
		Text([]byte(e.Text))
	if e.ReplyTo.Address != "" {
		b = b.ReplyTo(e.ReplyTo.Name, e.ReplyTo.Address)
	}
	if e.HTML != "" {
		b = b.HTML([]byte(e.HTML))
	}

	for _, k := range sortedKeys(e.Headers) {
		b = b.Header(k, e.Headers[k])
	}

	for _, ref := range e.Attachments {
		a, err := files.get(ref)
		if err != nil {
			return nil, err
		}
		b = b.AddAttachment(a.data, a.contentType, a.name)
	}

	part, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build MIME message: %w", err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode MIME message: %w", err)
	}
	return buf.Bytes(), nil
}
