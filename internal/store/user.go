package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
)

// ensureUser inserts the user row unless it already exists.
func (s *Store) ensureUser(ctx context.Context, ex sqlx.ExecerContext, userKey string) error {
	q, args := s.builder().Insert("users").
		Set("user_key", userKey).
		Set("total_points", 0).
		Set("created_at", time.Now().UTC()).
		OnConflict(
			entsql.ConflictColumns("user_key"),
			entsql.DoNothing(),
		).
		Query()
	if _, err := ex.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (s *Store) userPoints(ctx context.Context, qx sqlx.QueryerContext, userKey string) (int, error) {
	q, args := s.builder().Select("total_points").
		From(s.builder().Table("users")).
		Where(entsql.EQ("user_key", userKey)).
		Query()
	var points int
	if err := sqlx.GetContext(ctx, qx, &points, q, args...); err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("query user points: %w", err)
	}
	return points, nil
}

// inTx runs fn inside a transaction and commits if fn returns nil.
// Callers must use tx, never s.x, while fn runs: SQLite has one connection.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.x.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
