package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	backend_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/shared/domain"
	internal_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/storage/pg"
	"github.com/lib/pq"
)

const recipientPairKey = "message_recipients_pkey"

// =========================================================================
// Public Methods (satisfy the service.RecipientStorage interface)
// =========================================================================

// CreateRecipient inserts a new copy with its source lists. An existing copy
// for the same (message, recipient) pair is reported as DuplicateRecipient
// so the caller can fall back to MergeRecipient.
func (s *Storage) CreateRecipient(ctx context.Context, c domain.RecipientCopy) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.createRecipient(ctx, tx, c)
	})
}

// MergeRecipient folds another addressing path into an existing copy under a
// row lock.
func (s *Storage) MergeRecipient(ctx context.Context, msgId domain.MessageId, userId domain.UserId, d domain.Delivery, source *domain.ListRef) (domain.MergeResult, error) {
	var res domain.MergeResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = s.mergeRecipient(ctx, tx, msgId, userId, d, source)
		return err
	})
	return res, err
}

func (s *Storage) GetRecipient(ctx context.Context, msgId domain.MessageId, userId domain.UserId) (domain.RecipientCopy, error) {
	return s.getRecipient(ctx, s.db, msgId, userId, false)
}

// ListRecipients returns every copy of a message ordered To first, then by
// recipient email.
func (s *Storage) ListRecipients(ctx context.Context, msgId domain.MessageId) ([]domain.RecipientCopy, error) {
	rows, err := s.db.QueryContext(ctx, recipientSelect+`
		WHERE r.message_id = $1
		ORDER BY r.delivery DESC, u.email`,
		msgId,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipients: %w", err)
	}
	defer rows.Close()

	var copies []domain.RecipientCopy
	for rows.Next() {
		c, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		copies = append(copies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}
	return copies, nil
}

func (s *Storage) CountRecipients(ctx context.Context, msgId domain.MessageId) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM message_recipients WHERE message_id = $1", msgId,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count recipients: %w", err)
	}
	return n, nil
}

// UpdateRecipientState applies a lifecycle transition atomically: the copy
// is locked, handed to fn and its timestamps written back.
func (s *Storage) UpdateRecipientState(ctx context.Context, msgId domain.MessageId, userId domain.UserId, fn func(*domain.RecipientCopy) error) (domain.RecipientCopy, error) {
	var c domain.RecipientCopy
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if c, err = s.getRecipient(ctx, tx, msgId, userId, true); err != nil {
			return err
		}
		if err = fn(&c); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE message_recipients
			SET date_read = $3, date_archived = $4, date_deleted = $5
			WHERE message_id = $1 AND recipient_id = $2`,
			msgId, userId, c.DateRead, c.DateArchived, c.DateDeleted,
		)
		if err != nil {
			return fmt.Errorf("failed to update recipient state: %w", err)
		}
		return nil
	})
	return c, err
}

// =========================================================================
// Internal Methods (Core Database Logic)
// =========================================================================

func (s *Storage) createRecipient(ctx context.Context, q Querier, c domain.RecipientCopy) error {
	received := c.DateReceived
	if received.IsZero() {
		received = s.now()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO message_recipients (message_id, recipient_id, delivery, from_distribution, date_received)
		VALUES ($1, $2, $3, $4, $5)`,
		c.MessageId, c.Recipient.Id, c.Delivery, c.FromDistribution, received,
	)
	if err != nil {
		if pg.IsUniqueViolation(err, recipientPairKey) {
			return backend_errors.DuplicateRecipient
		}
		if pg.IsForeignKeyViolation(err) {
			return internal_errors.NotFound("Message or recipient")
		}
		return fmt.Errorf("failed to insert recipient: %w", err)
	}

	for _, l := range c.SourceLists {
		if err := s.addSource(ctx, q, c.MessageId, c.Recipient.Id, l.Id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) mergeRecipient(ctx context.Context, q Querier, msgId domain.MessageId, userId domain.UserId, d domain.Delivery, source *domain.ListRef) (domain.MergeResult, error) {
	c, err := s.getRecipient(ctx, q, msgId, userId, true)
	if err != nil {
		return domain.MergeResult{}, err
	}

	res := c.Merge(d, source)
	if res.Promoted {
		_, err := q.ExecContext(ctx,
			"UPDATE message_recipients SET delivery = $3 WHERE message_id = $1 AND recipient_id = $2",
			msgId, userId, c.Delivery,
		)
		if err != nil {
			return domain.MergeResult{}, fmt.Errorf("failed to promote recipient: %w", err)
		}
	}
	if res.SourceAdded {
		if err := s.addSource(ctx, q, msgId, userId, source.Id); err != nil {
			return domain.MergeResult{}, err
		}
	}
	return res, nil
}

func (s *Storage) addSource(ctx context.Context, q Querier, msgId domain.MessageId, userId domain.UserId, listId domain.ListId) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO message_recipient_sources (message_id, recipient_id, list_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		msgId, userId, listId,
	)
	if err != nil {
		return fmt.Errorf("failed to record recipient source: %w", err)
	}
	return nil
}

const recipientSelect = `
		SELECT
			r.message_id, r.delivery, r.from_distribution,
			r.date_received, r.date_read, r.date_archived, r.date_deleted,
			u.id, u.display_name, u.email, u.is_active,
			src.ids, src.names
		FROM message_recipients r
		JOIN users u ON u.id = r.recipient_id
		LEFT JOIN LATERAL (
			SELECT array_agg(l.id ORDER BY l.name) AS ids, array_agg(l.name ORDER BY l.name) AS names
			FROM message_recipient_sources rs
			JOIN distribution_lists l ON l.id = rs.list_id
			WHERE rs.message_id = r.message_id AND rs.recipient_id = r.recipient_id
		) src ON TRUE`

func (s *Storage) getRecipient(ctx context.Context, q Querier, msgId domain.MessageId, userId domain.UserId, forUpdate bool) (domain.RecipientCopy, error) {
	if forUpdate {
		var locked int
		err := q.QueryRowContext(ctx,
			"SELECT 1 FROM message_recipients WHERE message_id = $1 AND recipient_id = $2 FOR UPDATE",
			msgId, userId,
		).Scan(&locked)
		if err != nil {
			return domain.RecipientCopy{}, notFoundOr(err, "Recipient copy", "failed to lock recipient")
		}
	}
	c, err := scanRecipient(q.QueryRowContext(ctx, recipientSelect+`
		WHERE r.message_id = $1 AND r.recipient_id = $2`,
		msgId, userId,
	))
	if err != nil {
		return domain.RecipientCopy{}, notFoundOr(err, "Recipient copy", "failed to fetch recipient")
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipient(row scanner) (domain.RecipientCopy, error) {
	var c domain.RecipientCopy
	var ids []int64
	var names []string
	var read, archived, deleted sql.NullTime
	err := row.Scan(
		&c.MessageId, &c.Delivery, &c.FromDistribution,
		&c.DateReceived, &read, &archived, &deleted,
		&c.Recipient.Id, &c.Recipient.DisplayName, &c.Recipient.Email, &c.Recipient.Active,
		pq.Array(&ids), pq.Array(&names),
	)
	if err != nil {
		return domain.RecipientCopy{}, err
	}
	c.DateRead = timePtr(read)
	c.DateArchived = timePtr(archived)
	c.DateDeleted = timePtr(deleted)
	for i := range ids {
		c.SourceLists = append(c.SourceLists, domain.ListRef{Id: ids[i], Name: names[i]})
	}
	return c, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
