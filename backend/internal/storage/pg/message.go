package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	backend_errors "github.com/Pack144/packman-sub000/backend/internal/errors"
	"github.com/Pack144/packman-sub000/shared/domain"
	internal_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/storage/pg"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// =========================================================================
// Public Methods (satisfy the service.MessageStorage interface)
// =========================================================================

// CreateMessage stores a draft. A message without a thread gets a fresh one,
// and a reply inherits its parent's thread, before anything else is written.
func (s *Storage) CreateMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		msg, err = s.createMessage(ctx, tx, msg)
		return err
	})
	return msg, err
}

func (s *Storage) GetMessage(ctx context.Context, id domain.MessageId) (domain.Message, error) {
	return s.getMessage(ctx, s.db, id)
}

func (s *Storage) UpdateDraft(ctx context.Context, id domain.MessageId, subject domain.Subject, body string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockDraft(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE messages SET subject = $2, body = $3, last_updated = now() WHERE id = $1",
			id, subject, body,
		)
		if err != nil {
			return fmt.Errorf("failed to update draft: %w", err)
		}
		return nil
	})
}

// DeleteDraft removes an unsent message together with its copies,
// distributions and attachment references.
func (s *Storage) DeleteDraft(ctx context.Context, id domain.MessageId) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockDraft(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id); err != nil {
			return fmt.Errorf("failed to delete draft: %w", err)
		}
		return nil
	})
}

func (s *Storage) AddAttachment(ctx context.Context, id domain.MessageId, ref domain.FileRef) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockDraft(ctx, tx, id); err != nil {
			return err
		}
		return s.addAttachments(ctx, tx, id, []domain.FileRef{ref})
	})
}

// AttachDistribution attaches a list, or changes the requested strength of
// an already attached one.
func (s *Storage) AttachDistribution(ctx context.Context, id domain.MessageId, listId domain.ListId, d domain.Delivery) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockDraft(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO message_distributions (message_id, list_id, delivery)
			VALUES ($1, $2, $3)
			ON CONFLICT (message_id, list_id) DO UPDATE SET delivery = EXCLUDED.delivery`,
			id, listId, d,
		)
		if err != nil {
			if pg.IsForeignKeyViolation(err) {
				return internal_errors.NotFound("Distribution list")
			}
			return fmt.Errorf("failed to attach distribution: %w", err)
		}
		return nil
	})
}

// GetDistributions returns the attached lists fully loaded, in expansion
// order.
func (s *Storage) GetDistributions(ctx context.Context, id domain.MessageId) ([]domain.Distribution, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT list_id, delivery FROM message_distributions WHERE message_id = $1", id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query distributions: %w", err)
	}
	defer rows.Close()

	var ds []domain.Distribution
	for rows.Next() {
		d := domain.Distribution{MessageId: id}
		if err := rows.Scan(&d.List.Id, &d.Delivery); err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}
		ds = append(ds, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distributions: %w", err)
	}
	rows.Close()

	for i := range ds {
		if ds[i].List, err = s.getList(ctx, s.db, ds[i].List.Id); err != nil {
			return nil, err
		}
	}
	domain.SortDistributions(ds)
	return ds, nil
}

// RequestSend queues a draft for the scheduled flush. Requesting twice keeps
// the original request time.
func (s *Storage) RequestSend(ctx context.Context, id domain.MessageId) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.lockDraft(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE messages
			SET send_requested_at = COALESCE(send_requested_at, now()), last_updated = now()
			WHERE id = $1`,
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to request send: %w", err)
		}
		return nil
	})
}

// MarkSent performs the one-way draft to sent transition. Losing a race to
// another sender reports AlreadySent.
func (s *Storage) MarkSent(ctx context.Context, id domain.MessageId, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET date_sent = $2, send_requested_at = NULL, last_updated = now()
		WHERE id = $1 AND date_sent IS NULL`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark message sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for mark sent: %w", err)
	}
	if n == 0 {
		// distinguish a missing message from a lost race
		if _, err := s.getMessage(ctx, s.db, id); err != nil {
			return err
		}
		return backend_errors.AlreadySent
	}
	return nil
}

// ListPendingSends returns queued, unsent messages, oldest request first.
func (s *Storage) ListPendingSends(ctx context.Context, limit int) ([]domain.MessageId, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id
		FROM messages
		WHERE send_requested_at IS NOT NULL AND date_sent IS NULL
		ORDER BY send_requested_at, id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending sends: %w", err)
	}
	defer rows.Close()

	var ids []domain.MessageId
	for rows.Next() {
		var id domain.MessageId
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pending send: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending sends: %w", err)
	}
	return ids, nil
}

// =========================================================================
// Internal Methods (Core Database Logic)
// =========================================================================

func (s *Storage) createMessage(ctx context.Context, q Querier, msg domain.Message) (domain.Message, error) {
	if !msg.HasThread() {
		if msg.ParentId != nil {
			threadId, err := s.threadOf(ctx, q, *msg.ParentId)
			if err != nil {
				return domain.Message{}, err
			}
			msg.ThreadId = threadId
		} else {
			thread, err := s.createThread(ctx, q)
			if err != nil {
				return domain.Message{}, err
			}
			msg.ThreadId = thread.Id
		}
	}
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO messages (id, author_id, subject, body, thread_id, parent_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, last_updated`,
		msg.Id, msg.Author.Id, msg.Subject, msg.Body, msg.ThreadId, msg.ParentId,
	).Scan(&msg.CreatedAt, &msg.LastUpdated)
	if err != nil {
		if pg.IsForeignKeyViolation(err) {
			return domain.Message{}, internal_errors.NotFound("Author")
		}
		return domain.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := s.addAttachments(ctx, q, msg.Id, msg.Attachments); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (s *Storage) addAttachments(ctx context.Context, q Querier, id domain.MessageId, refs []domain.FileRef) error {
	for _, ref := range refs {
		_, err := q.ExecContext(ctx, `
			INSERT INTO message_attachments (message_id, position, file_ref)
			SELECT $1, COALESCE(MAX(position), -1) + 1, $2
			FROM message_attachments WHERE message_id = $1
			ON CONFLICT (message_id, file_ref) DO NOTHING`,
			id, ref,
		)
		if err != nil {
			return fmt.Errorf("failed to insert attachment: %w", err)
		}
	}
	return nil
}

func (s *Storage) getMessage(ctx context.Context, q Querier, id domain.MessageId) (domain.Message, error) {
	var msg domain.Message
	var attachments pq.StringArray
	err := q.QueryRowContext(ctx, `
		SELECT
			m.id, m.subject, m.body, m.thread_id, m.parent_id,
			m.date_sent, m.send_requested_at, m.created_at, m.last_updated,
			u.id, u.display_name, u.email, u.is_active,
			COALESCE(
				(SELECT array_agg(a.file_ref ORDER BY a.position)
				 FROM message_attachments a WHERE a.message_id = m.id),
				'{}'
			)
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.id = $1`,
		id,
	).Scan(
		&msg.Id, &msg.Subject, &msg.Body, &msg.ThreadId, &msg.ParentId,
		&msg.DateSent, &msg.SendRequestedAt, &msg.CreatedAt, &msg.LastUpdated,
		&msg.Author.Id, &msg.Author.DisplayName, &msg.Author.Email, &msg.Author.Active,
		&attachments,
	)
	if err != nil {
		return domain.Message{}, notFoundOr(err, "Message", "failed to fetch message")
	}
	if len(attachments) > 0 {
		msg.Attachments = []domain.FileRef(attachments)
	}
	return msg, nil
}

// lockDraft row-locks a message for a draft-only mutation.
func (s *Storage) lockDraft(ctx context.Context, q Querier, id domain.MessageId) error {
	var dateSent *time.Time
	err := q.QueryRowContext(ctx, "SELECT date_sent FROM messages WHERE id = $1 FOR UPDATE", id).Scan(&dateSent)
	if err != nil {
		return notFoundOr(err, "Message", "failed to lock message")
	}
	if dateSent != nil {
		return backend_errors.AlreadySent
	}
	return nil
}

func notFoundOr(err error, what, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return internal_errors.NotFound(what)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
