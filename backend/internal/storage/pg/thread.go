package pg

import (
	"context"
	"fmt"

	"github.com/Pack144/packman-sub000/shared/domain"
	"github.com/google/uuid"
)

func (s *Storage) createThread(ctx context.Context, q Querier) (domain.Thread, error) {
	t := domain.Thread{Id: uuid.New()}
	err := q.QueryRowContext(ctx,
		"INSERT INTO threads (id) VALUES ($1) RETURNING created_at", t.Id,
	).Scan(&t.CreatedAt)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("failed to insert thread: %w", err)
	}
	return t, nil
}

// threadOf returns the thread of an existing message.
func (s *Storage) threadOf(ctx context.Context, q Querier, id domain.MessageId) (domain.ThreadId, error) {
	var threadId domain.ThreadId
	err := q.QueryRowContext(ctx, "SELECT thread_id FROM messages WHERE id = $1", id).Scan(&threadId)
	if err != nil {
		return uuid.Nil, notFoundOr(err, "Parent message", "failed to fetch parent thread")
	}
	return threadId, nil
}
