package store

import (
	"context"
	"fmt"
	"math"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
)

var attemptColumns = []string{
	"mission_id", "user_key", "question_id", "question_text", "is_correct",
	"attempts_count", "first_attempt_at", "last_attempt_at",
}

var sectionColumns = []string{
	"mission_id", "user_key", "lecture_id", "section_id", "is_completed",
	"time_spent_sec", "completed_at",
}

func (r *missionRepo) UpsertAttempt(ctx context.Context, a Attempt) (int, error) {
	if a.FirstAttemptAt.IsZero() {
		a.FirstAttemptAt = time.Now().UTC()
	}
	if a.LastAttemptAt.IsZero() {
		a.LastAttemptAt = a.FirstAttemptAt
	}
	q, args := r.s.builder().Insert("mission_attempts").
		Set("mission_id", a.MissionID).
		Set("user_key", a.UserKey).
		Set("question_id", a.QuestionID).
		Set("question_text", a.QuestionText).
		Set("is_correct", a.IsCorrect).
		Set("attempts_count", 1).
		Set("first_attempt_at", a.FirstAttemptAt).
		Set("last_attempt_at", a.LastAttemptAt).
		OnConflict(
			entsql.ConflictColumns("mission_id", "user_key", "question_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("is_correct")
				u.SetExcluded("last_attempt_at")
				u.Add("attempts_count", 1)
			}),
		).
		Returning("attempts_count").
		Query()

	var count int
	if err := r.s.x.QueryRowxContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("upsert attempt: %w", err)
	}
	return count, nil
}

func (r *missionRepo) RefreshPracticeProgress(ctx context.Context, missionID, userKey string, at time.Time) (*Progress, error) {
	b := r.s.builder()
	var p *Progress
	err := r.s.inTx(ctx, func(tx *sqlx.Tx) error {
		q, args := b.SelectExpr(
			entsql.Expr("COUNT(*)"),
			entsql.Expr("COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0)"),
		).
			From(b.Table("mission_attempts")).
			Where(ownedBy(missionID, userKey)).
			Query()
		var total, correct int
		if err := tx.QueryRowxContext(ctx, q, args...).Scan(&total, &correct); err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}

		q, args = b.Update("mission_progress").
			Set("current_count", atLeast("current_count", total)).
			Set("unique_questions", total).
			Set("correct_questions", correct).
			Set("accuracy", percent(correct, total)).
			Set("last_activity", at).
			Where(ownedBy(missionID, userKey)).
			Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("update practice progress: %w", err)
		}

		var err error
		p, err = r.s.getProgress(ctx, tx, missionID, userKey)
		return err
	})
	return p, err
}

func (r *missionRepo) UpsertSection(ctx context.Context, sec Section) error {
	if sec.CompletedAt.IsZero() {
		sec.CompletedAt = time.Now().UTC()
	}
	q, args := r.s.builder().Insert("section_progress").
		Set("mission_id", sec.MissionID).
		Set("user_key", sec.UserKey).
		Set("lecture_id", sec.LectureID).
		Set("section_id", sec.SectionID).
		Set("is_completed", true).
		Set("time_spent_sec", sec.TimeSpentSec).
		Set("completed_at", sec.CompletedAt).
		OnConflict(
			entsql.ConflictColumns("mission_id", "user_key", "lecture_id", "section_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.Set("is_completed", true)
				u.Add("time_spent_sec", sec.TimeSpentSec)
				u.SetExcluded("completed_at")
			}),
		).
		Query()
	if _, err := r.s.x.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}
	return nil
}

func (r *missionRepo) RefreshLectureProgress(ctx context.Context, missionID, userKey string, at time.Time) (*Progress, error) {
	b := r.s.builder()
	var p *Progress
	err := r.s.inTx(ctx, func(tx *sqlx.Tx) error {
		q, args := b.SelectExpr(
			entsql.Expr("COUNT(*)"),
			entsql.Expr("COALESCE(SUM(time_spent_sec), 0)"),
		).
			From(b.Table("section_progress")).
			Where(entsql.And(
				ownedBy(missionID, userKey),
				entsql.EQ("is_completed", true),
			)).
			Query()
		var completed, spent int
		if err := tx.QueryRowxContext(ctx, q, args...).Scan(&completed, &spent); err != nil {
			return fmt.Errorf("count sections: %w", err)
		}

		q, args = b.Update("mission_progress").
			Set("current_count", atLeast("current_count", completed)).
			Set("total_time_spent_sec", spent).
			Set("last_activity", at).
			Where(ownedBy(missionID, userKey)).
			Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("update lecture progress: %w", err)
		}

		var err error
		p, err = r.s.getProgress(ctx, tx, missionID, userKey)
		return err
	})
	return p, err
}

func (r *missionRepo) CompleteMission(ctx context.Context, missionID, userKey string, at time.Time) (Completion, error) {
	b := r.s.builder()
	var c Completion
	err := r.s.inTx(ctx, func(tx *sqlx.Tx) error {
		q, args := b.SelectExpr(entsql.Expr("current_count >= required_count")).
			From(b.Table("mission_progress")).
			Where(ownedBy(missionID, userKey)).
			Query()
		if err := sqlx.GetContext(ctx, tx, &c.Reached, q, args...); err != nil {
			if isNoRows(err) {
				return ErrNotFound
			}
			return fmt.Errorf("check requirement: %w", err)
		}
		if !c.Reached {
			return nil
		}

		// Only the caller that flips active to completed gets a row back.
		q, args = b.Update("missions").
			Set("status", MissionCompleted).
			Set("completed_at", at).
			Where(entsql.And(
				entsql.EQ("id", missionID),
				entsql.EQ("user_key", userKey),
				entsql.EQ("status", MissionActive),
			)).
			Returning("points").
			Query()
		var points int
		if err := tx.QueryRowxContext(ctx, q, args...).Scan(&points); err != nil {
			if isNoRows(err) {
				return nil
			}
			return fmt.Errorf("mark mission completed: %w", err)
		}
		c.Newly = true

		q, args = b.Insert("mission_rewards").
			Set("mission_id", missionID).
			Set("user_key", userKey).
			Set("points", points).
			Set("awarded_at", at).
			OnConflict(
				entsql.ConflictColumns("mission_id", "user_key"),
				entsql.DoNothing(),
			).
			Query()
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("save reward: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 || points == 0 {
			return nil
		}

		if err := r.s.ensureUser(ctx, tx, userKey); err != nil {
			return err
		}
		q, args = b.Update("users").
			Add("total_points", points).
			Where(entsql.EQ("user_key", userKey)).
			Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("award points: %w", err)
		}
		c.Awarded = points
		return nil
	})
	if err != nil {
		return Completion{}, err
	}
	return c, nil
}

func (r *missionRepo) ListAttempts(ctx context.Context, missionID, userKey string) ([]Attempt, error) {
	q, args := r.s.builder().Select(attemptColumns...).
		From(r.s.builder().Table("mission_attempts")).
		Where(ownedBy(missionID, userKey)).
		OrderBy(entsql.Asc("first_attempt_at"), entsql.Asc("id")).
		Query()
	var as []Attempt
	if err := sqlx.SelectContext(ctx, r.s.x, &as, q, args...); err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	return as, nil
}

func (r *missionRepo) ListSections(ctx context.Context, missionID, userKey string) ([]Section, error) {
	q, args := r.s.builder().Select(sectionColumns...).
		From(r.s.builder().Table("section_progress")).
		Where(ownedBy(missionID, userKey)).
		OrderBy(entsql.Asc("completed_at"), entsql.Asc("id")).
		Query()
	var ss []Section
	if err := sqlx.SelectContext(ctx, r.s.x, &ss, q, args...); err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	return ss, nil
}

func ownedBy(missionID, userKey string) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("mission_id", missionID),
		entsql.EQ("user_key", userKey),
	)
}

// atLeast evaluates to max(col, n) without dialect-specific functions.
func atLeast(col string, n int) entsql.Querier {
	return entsql.ExprFunc(func(b *entsql.Builder) {
		b.WriteString("CASE WHEN ").Ident(col).WriteString(" < ").Arg(n).
			WriteString(" THEN ").Arg(n).
			WriteString(" ELSE ").Ident(col).WriteString(" END")
	})
}

// percent returns correct/total as a percentage rounded to two decimals.
func percent(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*10000) / 100
}
