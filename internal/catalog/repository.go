package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/platform/db"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, kind Kind, e Entry) (Entry, error) {
	info, ok := kinds[kind]
	if !ok {
		return Entry{}, ErrBadKind
	}
	q := fmt.Sprintf(`INSERT INTO %s (owner_id, name) VALUES ($1, $2) RETURNING id`, info.table)
	if err := r.pool.QueryRow(ctx, q, e.OwnerID, e.Name).Scan(&e.ID); err != nil {
		if db.IsUniqueViolation(err) {
			return Entry{}, ErrDuplicate
		}
		return Entry{}, fmt.Errorf("insert %s: %w", info.table, err)
	}
	return e, nil
}

func (r *Repository) List(ctx context.Context, kind Kind, ownerID int64) ([]Entry, error) {
	info, ok := kinds[kind]
	if !ok {
		return nil, ErrBadKind
	}
	q := fmt.Sprintf(`SELECT id, owner_id, name FROM %s WHERE owner_id = $1 ORDER BY name ASC`, info.table)
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", info.table, err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", info.table, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) Get(ctx context.Context, kind Kind, ownerID, id int64) (Entry, error) {
	info, ok := kinds[kind]
	if !ok {
		return Entry{}, ErrBadKind
	}
	q := fmt.Sprintf(`SELECT id, owner_id, name FROM %s WHERE owner_id = $1 AND id = $2`, info.table)
	var e Entry
	err := r.pool.QueryRow(ctx, q, ownerID, id).Scan(&e.ID, &e.OwnerID, &e.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w", info.table, err)
	}
	return e, nil
}

func (r *Repository) Rename(ctx context.Context, kind Kind, ownerID, id int64, name string) (Entry, error) {
	info, ok := kinds[kind]
	if !ok {
		return Entry{}, ErrBadKind
	}
	q := fmt.Sprintf(`UPDATE %s SET name = $1 WHERE owner_id = $2 AND id = $3`, info.table)
	tag, err := r.pool.Exec(ctx, q, name, ownerID, id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Entry{}, ErrDuplicate
		}
		return Entry{}, fmt.Errorf("rename %s: %w", info.table, err)
	}
	if tag.RowsAffected() == 0 {
		return Entry{}, ErrNotFound
	}
	return Entry{ID: id, OwnerID: ownerID, Name: name}, nil
}

// DeleteCascade removes the entry and runs detach inside one transaction,
// so products are never left detached from an entry that still exists.
func (r *Repository) DeleteCascade(ctx context.Context, kind Kind, ownerID, id int64, detach func(context.Context, pgx.Tx) error) error {
	info, ok := kinds[kind]
	if !ok {
		return ErrBadKind
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := detach(ctx, tx); err != nil {
			return err
		}
		q := fmt.Sprintf(`DELETE FROM %s WHERE owner_id = $1 AND id = $2`, info.table)
		tag, err := tx.Exec(ctx, q, ownerID, id)
		if err != nil {
			return fmt.Errorf("delete %s: %w", info.table, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
