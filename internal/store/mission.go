package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
)

var missionColumns = []string{
	"id", "user_key", "title", "type", "config", "points",
	"deadline", "status", "created_at", "completed_at",
}

var progressColumns = []string{
	"mission_id", "user_key", "current_count", "required_count", "accuracy",
	"unique_questions", "correct_questions", "total_time_spent_sec", "last_activity",
}

// missionRepo implements MissionRepo on top of the dialect builder.
type missionRepo struct {
	s *Store
}

func (r *missionRepo) EnsureUser(ctx context.Context, userKey string) error {
	return r.s.ensureUser(ctx, r.s.x, userKey)
}

func (r *missionRepo) CreateMission(ctx context.Context, m *Mission, requiredCount int) error {
	b := r.s.builder()
	return r.s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.s.ensureUser(ctx, tx, m.UserKey); err != nil {
			return err
		}

		ins := b.Insert("missions").
			Set("id", m.ID).
			Set("user_key", m.UserKey).
			Set("title", m.Title).
			Set("type", m.Type).
			Set("config", m.Config).
			Set("points", m.Points).
			Set("status", m.Status).
			Set("created_at", m.CreatedAt)
		if m.Deadline != nil {
			ins = ins.Set("deadline", *m.Deadline)
		}
		q, args := ins.Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("save mission: %w", err)
		}

		q, args = b.Insert("mission_progress").
			Set("mission_id", m.ID).
			Set("user_key", m.UserKey).
			Set("current_count", 0).
			Set("required_count", requiredCount).
			Set("accuracy", 0.0).
			Set("unique_questions", 0).
			Set("correct_questions", 0).
			Set("total_time_spent_sec", 0).
			Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("save mission progress: %w", err)
		}
		return nil
	})
}

func (r *missionRepo) GetMission(ctx context.Context, id string) (*Mission, error) {
	q, args := r.s.builder().Select(missionColumns...).
		From(r.s.builder().Table("missions")).
		Where(entsql.EQ("id", id)).
		Query()
	var m Mission
	if err := sqlx.GetContext(ctx, r.s.x, &m, q, args...); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query mission: %w", err)
	}
	return &m, nil
}

func (r *missionRepo) ListMissions(ctx context.Context, userKey string) ([]Mission, error) {
	q, args := r.s.builder().Select(missionColumns...).
		From(r.s.builder().Table("missions")).
		Where(entsql.EQ("user_key", userKey)).
		OrderBy(entsql.Desc("created_at")).
		Query()
	var ms []Mission
	if err := sqlx.SelectContext(ctx, r.s.x, &ms, q, args...); err != nil {
		return nil, fmt.Errorf("query missions: %w", err)
	}
	return ms, nil
}

func (r *missionRepo) GetProgress(ctx context.Context, missionID, userKey string) (*Progress, error) {
	return r.s.getProgress(ctx, r.s.x, missionID, userKey)
}

func (r *missionRepo) ListProgress(ctx context.Context, userKey string) ([]Progress, error) {
	q, args := r.s.builder().Select(progressColumns...).
		From(r.s.builder().Table("mission_progress")).
		Where(entsql.EQ("user_key", userKey)).
		Query()
	var ps []Progress
	if err := sqlx.SelectContext(ctx, r.s.x, &ps, q, args...); err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return ps, nil
}

func (r *missionRepo) UserPoints(ctx context.Context, userKey string) (int, error) {
	return r.s.userPoints(ctx, r.s.x, userKey)
}

func (s *Store) getProgress(ctx context.Context, qx sqlx.QueryerContext, missionID, userKey string) (*Progress, error) {
	q, args := s.builder().Select(progressColumns...).
		From(s.builder().Table("mission_progress")).
		Where(entsql.And(
			entsql.EQ("mission_id", missionID),
			entsql.EQ("user_key", userKey),
		)).
		Query()
	var p Progress
	if err := sqlx.GetContext(ctx, qx, &p, q, args...); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return &p, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
