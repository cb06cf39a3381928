package transport

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/emersion/go-mbox"
)

// Mbox appends every email to a local mbox file. Useful in development and
// for archiving what a send produced.
type Mbox struct {
	path  string
	store AttachmentStore
	now   func() time.Time
	mu    sync.Mutex // one writer at a time per file
}

func NewMbox(path string, store AttachmentStore) *Mbox {
	return &Mbox{path: path, store: store, now: time.Now}
}

func (m *Mbox) Open(ctx context.Context) (Connection, error) {
	m.mu.Lock()
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to open mbox %s: %w", m.path, err)
	}
	return &mboxConnection{
		owner: m,
		file:  f,
		w:     mbox.NewWriter(f),
		files: newAttachmentCache(m.store),
	}, nil
}

type mboxConnection struct {
	owner *Mbox
	file  *os.File
	w     *mbox.Writer
	files *attachmentCache
}

func (c *mboxConnection) SendBatch(ctx context.Context, emails []*OutboundEmail) (int, error) {
	return sendEach(ctx, "mbox", emails, func(e *OutboundEmail) error {
		raw, err := compose(e, c.files)
		if err != nil {
			return err
		}
		mw, err := c.w.CreateMessage(e.From.Address, c.owner.now())
		if err != nil {
			return fmt.Errorf("failed to start mbox message: %w", err)
		}
		if _, err := mw.Write(raw); err != nil {
			return fmt.Errorf("failed to write mbox message: %w", err)
		}
		return nil
	})
}

func (c *mboxConnection) Close() error {
	defer c.owner.mu.Unlock()
	werr := c.w.Close()
	ferr := c.file.Close()
	if werr != nil {
		return fmt.Errorf("failed to finish mbox: %w", werr)
	}
	return ferr
}
