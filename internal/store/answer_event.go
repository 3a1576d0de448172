package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
)

var answerColumns = []string{
	"id", "user_key", "topic_id", "subtopic_id", "difficulty", "is_correct",
	"time_taken_sec", "hints_used", "attempt_index", "timestamp",
}

// answerRepo implements AnswerRepo on top of the dialect builder.
type answerRepo struct {
	s *Store
}

func (r *answerRepo) EnsureUser(ctx context.Context, userKey string) error {
	return r.s.ensureUser(ctx, r.s.x, userKey)
}

func (r *answerRepo) AppendAnswer(ctx context.Context, ev *AnswerEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	q, args := r.s.builder().Insert("answer_events").
		Set("user_key", ev.UserKey).
		Set("topic_id", ev.TopicID).
		Set("subtopic_id", ev.SubtopicID).
		Set("difficulty", ev.Difficulty).
		Set("is_correct", ev.IsCorrect).
		Set("time_taken_sec", ev.TimeTakenSec).
		Set("hints_used", ev.HintsUsed).
		Set("attempt_index", ev.AttemptIndex).
		Set("timestamp", ev.Timestamp).
		Returning("id").
		Query()
	if err := r.s.x.QueryRowxContext(ctx, q, args...).Scan(&ev.ID); err != nil {
		return fmt.Errorf("save answer event: %w", err)
	}
	return nil
}

func (r *answerRepo) RecentAnswers(ctx context.Context, userKey, topicID string, limit int) ([]AnswerEvent, error) {
	preds := []*entsql.Predicate{entsql.EQ("user_key", userKey)}
	if topicID != "" {
		preds = append(preds, entsql.EQ("topic_id", topicID))
	}
	sel := r.s.builder().Select(answerColumns...).
		From(r.s.builder().Table("answer_events")).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	q, args := sel.Query()

	var events []AnswerEvent
	if err := sqlx.SelectContext(ctx, r.s.x, &events, q, args...); err != nil {
		return nil, fmt.Errorf("query recent answers: %w", err)
	}
	return events, nil
}
