package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Pack144/packman-sub000/shared/domain"
)

// GetListSettings returns nil when the singleton was never configured.
func (s *Storage) GetListSettings(ctx context.Context) (*domain.ListSettings, error) {
	var ls domain.ListSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT list_id, display_name, from_name, from_email, subject_prefix, last_updated
		FROM list_settings
		WHERE id = 1`,
	).Scan(&ls.ListId, &ls.DisplayName, &ls.FromName, &ls.FromEmail, &ls.SubjectPrefix, &ls.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch list settings: %w", err)
	}
	return &ls, nil
}

func (s *Storage) SaveListSettings(ctx context.Context, ls domain.ListSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO list_settings (id, list_id, display_name, from_name, from_email, subject_prefix, last_updated)
		VALUES (1, $1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			list_id = EXCLUDED.list_id,
			display_name = EXCLUDED.display_name,
			from_name = EXCLUDED.from_name,
			from_email = EXCLUDED.from_email,
			subject_prefix = EXCLUDED.subject_prefix,
			last_updated = now()`,
		ls.ListId, ls.DisplayName, ls.FromName, ls.FromEmail, ls.SubjectPrefix,
	)
	if err != nil {
		return fmt.Errorf("failed to save list settings: %w", err)
	}
	return nil
}
