package difficulty

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tirgul/tirgul/internal/keylock"
	"github.com/tirgul/tirgul/internal/logger"
	"github.com/tirgul/tirgul/internal/store"
)

// SaveFailedReason is returned when the triggering answer could not be stored.
const SaveFailedReason = "could not save your answer, please try again"

// Answer is one graded answer submitted for evaluation.
type Answer struct {
	UserKey      string
	TopicID      string
	SubtopicID   string
	Difficulty   Difficulty
	IsCorrect    bool
	TimeTakenSec int
	HintsUsed    int
	AttemptIndex int
}

// Engine records answers and decides difficulty changes. It holds no
// per-user state; every call reads the window from the store.
type Engine struct {
	repo   store.AnswerRepo
	locker keylock.Locker
	log    *logger.Logger
	policy Policy
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker serializes evaluations per (user, topic).
func WithLocker(l keylock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithClock overrides time.Now for answer timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over repo.
func NewEngine(repo store.AnswerRepo, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		log:    logger.Nop(),
		policy: DefaultPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the thresholds in use.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Evaluate records a minimal answer and decides. See EvaluateAnswer.
func (e *Engine) Evaluate(ctx context.Context, userKey, topicID string, current Difficulty, isCorrect bool) Decision {
	return e.EvaluateAnswer(ctx, Answer{
		UserKey:    userKey,
		TopicID:    topicID,
		Difficulty: current,
		IsCorrect:  isCorrect,
	})
}

// EvaluateAnswer stores a, then decides from the window that includes it.
// Failures never panic or return an error value: they come back as a
// decision that keeps the current level, with Err set.
func (e *Engine) EvaluateAnswer(ctx context.Context, a Answer) Decision {
	a.UserKey = strings.TrimSpace(a.UserKey)
	a.TopicID = strings.TrimSpace(a.TopicID)
	a.SubtopicID = strings.TrimSpace(a.SubtopicID)
	if err := a.validate(); err != nil {
		return Decision{
			NewDifficulty: a.Difficulty,
			Reason:        err.Error(),
			Err:           err,
		}
	}

	log := e.log.With("user_key", a.UserKey, "topic_id", a.TopicID)

	if e.locker != nil {
		unlock, err := e.locker.Lock(ctx, keylock.Key(a.UserKey, a.TopicID))
		if err != nil {
			log.Warn("evaluate without lock", "error", err)
		} else {
			defer unlock()
		}
	}

	if err := e.repo.EnsureUser(ctx, a.UserKey); err != nil {
		log.Error("ensure user failed", "error", err)
		return saveFailed(a.Difficulty, err)
	}
	ev := &store.AnswerEvent{
		UserKey:      a.UserKey,
		TopicID:      a.TopicID,
		SubtopicID:   a.SubtopicID,
		Difficulty:   string(a.Difficulty),
		IsCorrect:    a.IsCorrect,
		TimeTakenSec: a.TimeTakenSec,
		HintsUsed:    a.HintsUsed,
		AttemptIndex: a.AttemptIndex,
		Timestamp:    e.now().UTC(),
	}
	if err := e.repo.AppendAnswer(ctx, ev); err != nil {
		log.Error("append answer failed", "error", err)
		return saveFailed(a.Difficulty, err)
	}

	events, err := e.repo.RecentAnswers(ctx, a.UserKey, a.TopicID, e.policy.WindowSize)
	if err != nil {
		log.Error("load window failed", "error", err)
		return saveFailed(a.Difficulty, err)
	}

	outcomes := make([]bool, len(events))
	for i, ev := range events {
		outcomes[i] = ev.IsCorrect
	}
	d := Decide(outcomes, a.Difficulty, e.policy)
	if d.ShouldAdjust {
		log.Info("difficulty change", "from", a.Difficulty, "to", d.NewDifficulty, "reason", d.Reason)
	}
	return d
}

func saveFailed(current Difficulty, cause error) Decision {
	return Decision{
		NewDifficulty: current,
		Reason:        SaveFailedReason,
		Err:           fmt.Errorf("%w: %v", ErrStoreUnavailable, cause),
	}
}

func (a Answer) validate() error {
	switch {
	case a.UserKey == "":
		return fmt.Errorf("%w: user key is required", ErrInvalidInput)
	case a.TopicID == "":
		return fmt.Errorf("%w: topic id is required", ErrInvalidInput)
	case !a.Difficulty.Valid():
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, a.Difficulty)
	case a.TimeTakenSec < 0, a.HintsUsed < 0, a.AttemptIndex < 0:
		return fmt.Errorf("%w: counters must not be negative", ErrInvalidInput)
	}
	return nil
}
