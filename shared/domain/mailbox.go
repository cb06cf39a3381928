package domain

import "time"

type Mailbox string

const (
	MailboxInbox    Mailbox = "inbox"
	MailboxDrafts   Mailbox = "drafts"
	MailboxSent     Mailbox = "sent"
	MailboxOutbox   Mailbox = "outbox"
	MailboxArchives Mailbox = "archives"
	MailboxTrash    Mailbox = "trash"
)

func (m Mailbox) Valid() bool {
	switch m {
	case MailboxInbox, MailboxDrafts, MailboxSent, MailboxOutbox, MailboxArchives, MailboxTrash:
		return true
	}
	return false
}

// Classify derives the mailbox a recipient copy belongs to. The order of
// the checks is fixed: a sent, self-addressed copy reads as Sent even after
// it was archived.
func Classify(c *RecipientCopy, m *Message) Mailbox {
	switch {
	case c.Recipient.Id == m.Author.Id && m.DateSent != nil:
		return MailboxSent
	case c.Recipient.Id == m.Author.Id:
		return MailboxDrafts
	case c.DateDeleted != nil:
		return MailboxTrash
	case c.DateArchived != nil:
		return MailboxArchives
	default:
		return MailboxInbox
	}
}

// AuthorMailbox is where an author who holds no copy of their own message
// finds it.
func AuthorMailbox(m *Message) Mailbox {
	switch {
	case m.DateSent != nil:
		return MailboxSent
	case m.SendRequestedAt != nil:
		return MailboxOutbox
	default:
		return MailboxDrafts
	}
}

type MailboxCount struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}

type MailboxCounts map[Mailbox]MailboxCount

// MessageSummary is one row of a mailbox listing.
type MessageSummary struct {
	Id          MessageId  `json:"id"`
	ThreadId    ThreadId   `json:"thread_id"`
	Subject     Subject    `json:"subject"`
	Author      User       `json:"author"`
	DateSent    *time.Time `json:"date_sent,omitempty"`
	Delivery    Delivery   `json:"delivery,omitempty"`
	Read        bool       `json:"read"`
	LastUpdated time.Time  `json:"last_updated"`
}
