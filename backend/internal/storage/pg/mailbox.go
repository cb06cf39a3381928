package pg

import (
	"context"
	"fmt"

	"github.com/Pack144/packman-sub000/shared/domain"
	internal_errors "github.com/Pack144/packman-sub000/shared/errors"
)

// Recipient-side views only ever show sent messages the user did not write;
// self-addressed copies are reached through the author views.
const receivedFrom = `
		FROM message_recipients r
		JOIN messages m ON m.id = r.message_id
		JOIN users u ON u.id = m.author_id
		WHERE r.recipient_id = $1 AND m.author_id <> $1 AND m.date_sent IS NOT NULL`

var mailboxFilters = map[domain.Mailbox]string{
	domain.MailboxInbox:    " AND r.date_deleted IS NULL AND r.date_archived IS NULL",
	domain.MailboxArchives: " AND r.date_archived IS NOT NULL",
	domain.MailboxTrash:    " AND r.date_deleted IS NOT NULL",
	domain.MailboxDrafts:   " AND m.date_sent IS NULL AND m.send_requested_at IS NULL",
	domain.MailboxOutbox:   " AND m.date_sent IS NULL AND m.send_requested_at IS NOT NULL",
	domain.MailboxSent:     " AND m.date_sent IS NOT NULL",
}

// ListMailbox returns one page of a user's mailbox, newest first.
func (s *Storage) ListMailbox(ctx context.Context, userId domain.UserId, box domain.Mailbox, limit, offset int) ([]domain.MessageSummary, error) {
	filter, ok := mailboxFilters[box]
	if !ok {
		return nil, internal_errors.BadRequest(fmt.Sprintf("unknown mailbox %q", box))
	}

	var query string
	switch box {
	case domain.MailboxInbox, domain.MailboxArchives, domain.MailboxTrash:
		query = `
		SELECT m.id, m.thread_id, m.subject, m.date_sent, m.last_updated,
			u.id, u.display_name, u.email, u.is_active,
			r.delivery, r.date_read IS NOT NULL` + receivedFrom + filter + `
		ORDER BY m.date_sent DESC, m.id
		LIMIT $2 OFFSET $3`
	default:
		query = `
		SELECT m.id, m.thread_id, m.subject, m.date_sent, m.last_updated,
			u.id, u.display_name, u.email, u.is_active,
			'', TRUE
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.author_id = $1` + filter + `
		ORDER BY COALESCE(m.date_sent, m.last_updated) DESC, m.id
		LIMIT $2 OFFSET $3`
	}

	rows, err := s.db.QueryContext(ctx, query, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s mailbox: %w", box, err)
	}
	defer rows.Close()

	var out []domain.MessageSummary
	for rows.Next() {
		var ms domain.MessageSummary
		if err := rows.Scan(
			&ms.Id, &ms.ThreadId, &ms.Subject, &ms.DateSent, &ms.LastUpdated,
			&ms.Author.Id, &ms.Author.DisplayName, &ms.Author.Email, &ms.Author.Active,
			&ms.Delivery, &ms.Read,
		); err != nil {
			return nil, fmt.Errorf("failed to scan mailbox row: %w", err)
		}
		out = append(out, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mailbox rows: %w", err)
	}
	return out, nil
}

// MailboxCounts returns total and unread counts for every mailbox.
func (s *Storage) MailboxCounts(ctx context.Context, userId domain.UserId) (domain.MailboxCounts, error) {
	var inbox, archives, trash domain.MailboxCount
	err := s.db.QueryRowContext(ctx, `
		SELECT
			count(*) FILTER (WHERE r.date_deleted IS NULL AND r.date_archived IS NULL),
			count(*) FILTER (WHERE r.date_deleted IS NULL AND r.date_archived IS NULL AND r.date_read IS NULL),
			count(*) FILTER (WHERE r.date_archived IS NOT NULL),
			count(*) FILTER (WHERE r.date_archived IS NOT NULL AND r.date_read IS NULL),
			count(*) FILTER (WHERE r.date_deleted IS NOT NULL),
			count(*) FILTER (WHERE r.date_deleted IS NOT NULL AND r.date_read IS NULL)`+receivedFrom,
		userId,
	).Scan(&inbox.Total, &inbox.Unread, &archives.Total, &archives.Unread, &trash.Total, &trash.Unread)
	if err != nil {
		return nil, fmt.Errorf("failed to count received mail: %w", err)
	}

	var drafts, outbox, sent domain.MailboxCount
	err = s.db.QueryRowContext(ctx, `
		SELECT
			count(*) FILTER (WHERE date_sent IS NULL AND send_requested_at IS NULL),
			count(*) FILTER (WHERE date_sent IS NULL AND send_requested_at IS NOT NULL),
			count(*) FILTER (WHERE date_sent IS NOT NULL)
		FROM messages
		WHERE author_id = $1`,
		userId,
	).Scan(&drafts.Total, &outbox.Total, &sent.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to count authored mail: %w", err)
	}

	return domain.MailboxCounts{
		domain.MailboxInbox:    inbox,
		domain.MailboxArchives: archives,
		domain.MailboxTrash:    trash,
		domain.MailboxDrafts:   drafts,
		domain.MailboxOutbox:   outbox,
		domain.MailboxSent:     sent,
	}, nil
}
