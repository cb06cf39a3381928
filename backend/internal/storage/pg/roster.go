package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Pack144/packman-sub000/shared/domain"
	internal_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/lib/pq"
)

// The roster tables belong to the membership side of the application. These
// queries are the read-only resolver the messaging engine consumes.

// AllActiveMembers returns every active user, sorted by id.
func (s *Storage) AllActiveMembers(ctx context.Context) ([]domain.UserId, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM users WHERE is_active ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	return scanIds(rows)
}

// CurrentActiveMembers returns the active users that belong to any of refs
// in the reporting period covering today. Past and future periods never
// match.
func (s *Storage) CurrentActiveMembers(ctx context.Context, refs []domain.SubGroupRef) ([]domain.UserId, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	kinds := make([]string, len(refs))
	ids := make([]int64, len(refs))
	for i, r := range refs {
		kinds[i] = string(r.Kind)
		ids[i] = r.Id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT u.id
		FROM users u
		JOIN sub_group_memberships sgm ON sgm.user_id = u.id
		JOIN reporting_periods p ON p.id = sgm.period_id
		JOIN unnest($1::text[], $2::bigint[]) AS sel(kind, sub_group_id)
			ON sel.kind = sgm.kind AND sel.sub_group_id = sgm.sub_group_id
		WHERE u.is_active
			AND p.start_date <= CURRENT_DATE
			AND CURRENT_DATE < p.end_date
		ORDER BY u.id`,
		pq.Array(kinds), pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query current sub-group members: %w", err)
	}
	return scanIds(rows)
}

func (s *Storage) GetUser(ctx context.Context, id domain.UserId) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, display_name, email, is_active FROM users WHERE id = $1", id,
	).Scan(&u.Id, &u.DisplayName, &u.Email, &u.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, internal_errors.NotFound("User")
		}
		return domain.User{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}
