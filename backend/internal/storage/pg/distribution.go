package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Pack144/packman-sub000/shared/domain"
	internal_errors "github.com/Pack144/packman-sub000/shared/errors"
	"github.com/Pack144/packman-sub000/shared/storage/pg"
)

// =========================================================================
// Public Methods (satisfy the service.DistributionStorage interface)
// =========================================================================

func (s *Storage) CreateList(ctx context.Context, list domain.DistributionList) (domain.ListId, error) {
	var id domain.ListId
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.createList(ctx, tx, list)
		return err
	})
	return id, err
}

func (s *Storage) GetList(ctx context.Context, id domain.ListId) (domain.DistributionList, error) {
	return s.getList(ctx, s.db, id)
}

func (s *Storage) GetListByName(ctx context.Context, name domain.ListName) (domain.DistributionList, error) {
	var id domain.ListId
	err := s.db.QueryRowContext(ctx, "SELECT id FROM distribution_lists WHERE name = $1", name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DistributionList{}, internal_errors.NotFound("Distribution list")
		}
		return domain.DistributionList{}, fmt.Errorf("failed to fetch distribution list by name: %w", err)
	}
	return s.getList(ctx, s.db, id)
}

func (s *Storage) ListLists(ctx context.Context) ([]domain.DistributionList, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM distribution_lists ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution lists: %w", err)
	}
	ids, err := scanIds(rows)
	if err != nil {
		return nil, err
	}

	lists := make([]domain.DistributionList, 0, len(ids))
	for _, id := range ids {
		l, err := s.getList(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, nil
}

// DeleteList fails with 409 while any message still references the list.
func (s *Storage) DeleteList(ctx context.Context, id domain.ListId) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM distribution_lists WHERE id = $1", id)
	if err != nil {
		if pg.IsForeignKeyViolation(err) {
			return internal_errors.Conflict("Distribution list is referenced by a message")
		}
		return fmt.Errorf("failed to delete distribution list: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for list delete: %w", err)
	}
	if n == 0 {
		return internal_errors.NotFound("Distribution list")
	}
	return nil
}

// UpdateListAddresses locks the list, hands it to fn and stores whatever
// address set fn leaves behind.
func (s *Storage) UpdateListAddresses(ctx context.Context, id domain.ListId, fn func(*domain.DistributionList) error) (domain.DistributionList, error) {
	var list domain.DistributionList
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if err = s.lockList(ctx, tx, id); err != nil {
			return err
		}
		if list, err = s.getList(ctx, tx, id); err != nil {
			return err
		}
		if err = fn(&list); err != nil {
			return err
		}
		return s.replaceAddresses(ctx, tx, id, list.Addresses)
	})
	return list, err
}

// =========================================================================
// Internal Methods (Core Database Logic)
// These methods accept a Querier and are transaction-agnostic.
// =========================================================================

func (s *Storage) createList(ctx context.Context, q Querier, list domain.DistributionList) (domain.ListId, error) {
	var id domain.ListId
	err := q.QueryRowContext(ctx, `
		INSERT INTO distribution_lists (name, addresses_everyone)
		VALUES ($1, $2)
		RETURNING id`,
		list.Name, list.AddressesEveryone,
	).Scan(&id)
	if err != nil {
		if pg.IsUniqueViolation(err, "distribution_lists_name_key") {
			return 0, internal_errors.Conflict("Distribution list with this name already exists")
		}
		return 0, fmt.Errorf("failed to insert distribution list: %w", err)
	}

	for _, g := range list.SubGroups {
		_, err := q.ExecContext(ctx, `
			INSERT INTO distribution_list_sub_groups (list_id, kind, sub_group_id)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			id, g.Kind, g.Id,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert sub-group selector: %w", err)
		}
	}

	if err := s.replaceAddresses(ctx, q, id, list.Addresses); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Storage) lockList(ctx context.Context, q Querier, id domain.ListId) error {
	var locked domain.ListId
	err := q.QueryRowContext(ctx, "SELECT id FROM distribution_lists WHERE id = $1 FOR UPDATE", id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return internal_errors.NotFound("Distribution list")
		}
		return fmt.Errorf("failed to lock distribution list: %w", err)
	}
	return nil
}

func (s *Storage) getList(ctx context.Context, q Querier, id domain.ListId) (domain.DistributionList, error) {
	var list domain.DistributionList
	err := q.QueryRowContext(ctx, `
		SELECT id, name, addresses_everyone, created_at, last_updated
		FROM distribution_lists
		WHERE id = $1`,
		id,
	).Scan(&list.Id, &list.Name, &list.AddressesEveryone, &list.CreatedAt, &list.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DistributionList{}, internal_errors.NotFound("Distribution list")
		}
		return domain.DistributionList{}, fmt.Errorf("failed to fetch distribution list: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT kind, sub_group_id
		FROM distribution_list_sub_groups
		WHERE list_id = $1
		ORDER BY kind, sub_group_id`,
		id,
	)
	if err != nil {
		return domain.DistributionList{}, fmt.Errorf("failed to fetch sub-group selectors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g domain.SubGroupRef
		if err := rows.Scan(&g.Kind, &g.Id); err != nil {
			return domain.DistributionList{}, fmt.Errorf("failed to scan sub-group selector: %w", err)
		}
		list.SubGroups = append(list.SubGroups, g)
	}
	if err := rows.Err(); err != nil {
		return domain.DistributionList{}, fmt.Errorf("error iterating sub-group selectors: %w", err)
	}

	addrRows, err := q.QueryContext(ctx, `
		SELECT address, is_default
		FROM distribution_list_addresses
		WHERE list_id = $1
		ORDER BY is_default DESC, address`,
		id,
	)
	if err != nil {
		return domain.DistributionList{}, fmt.Errorf("failed to fetch list addresses: %w", err)
	}
	defer addrRows.Close()
	for addrRows.Next() {
		var a domain.ListAddress
		if err := addrRows.Scan(&a.Address, &a.IsDefault); err != nil {
			return domain.DistributionList{}, fmt.Errorf("failed to scan list address: %w", err)
		}
		list.Addresses = append(list.Addresses, a)
	}
	if err := addrRows.Err(); err != nil {
		return domain.DistributionList{}, fmt.Errorf("error iterating list addresses: %w", err)
	}

	return list, nil
}

// replaceAddresses rewrites the address set. Callers normalize the default
// flag with DistributionList.PutAddress before calling.
func (s *Storage) replaceAddresses(ctx context.Context, q Querier, id domain.ListId, addrs []domain.ListAddress) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM distribution_list_addresses WHERE list_id = $1", id); err != nil {
		return fmt.Errorf("failed to clear list addresses: %w", err)
	}
	for _, a := range addrs {
		_, err := q.ExecContext(ctx, `
			INSERT INTO distribution_list_addresses (list_id, address, is_default)
			VALUES ($1, $2, $3)`,
			id, a.Address, a.IsDefault,
		)
		if err != nil {
			if pg.IsUniqueViolation(err) {
				return internal_errors.BadRequest("Distribution list must have exactly one default address")
			}
			return fmt.Errorf("failed to insert list address: %w", err)
		}
	}
	if _, err := q.ExecContext(ctx, "UPDATE distribution_lists SET last_updated = now() WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to touch distribution list: %w", err)
	}
	return nil
}

func scanIds(rows *sql.Rows) ([]int64, error) {
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids: %w", err)
	}
	return ids, nil
}
