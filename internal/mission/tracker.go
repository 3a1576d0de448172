package mission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tirgul/tirgul/internal/logger"
	"github.com/tirgul/tirgul/internal/store"
)

// Learner-facing messages.
const (
	msgAttemptCounted   = "attempt recorded"
	msgAttemptRepeated  = "attempt recorded; this question was already counted"
	msgSectionRecorded  = "section completed"
	msgSaveFailed       = "could not save your progress, please try again"
	msgProgressFailed   = "your answer was saved but progress could not be updated, please try again"
	msgCompletionFailed = "your progress was saved but the mission could not be checked, please try again"
)

// Tracker records mission work and completes missions. It holds no
// per-mission state: deduplication and completion are enforced by the store.
type Tracker struct {
	repo store.MissionRepo
	log  *logger.Logger
	now  func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker over repo.
func NewTracker(repo store.MissionRepo, opts ...Option) *Tracker {
	t := &Tracker{
		repo: repo,
		log:  logger.Nop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordPracticeAttempt records an answer to questionID. Only the first
// attempt at a question counts toward the mission; later attempts update
// its correctness and attempt count.
func (t *Tracker) RecordPracticeAttempt(ctx context.Context, missionID, userKey, questionID, questionText string, isCorrect bool) AttemptResult {
	missionID, userKey, questionID = trim(missionID), trim(userKey), trim(questionID)
	if err := required("mission id", missionID, "user key", userKey, "question id", questionID); err != nil {
		return AttemptResult{Message: err.Error(), Err: err}
	}
	log := t.log.With("mission_id", missionID, "user_key", userKey)

	if _, err := t.loadMission(ctx, missionID, userKey, TypePractice); err != nil {
		return AttemptResult{Message: failureMessage(err), Err: err}
	}

	now := t.now().UTC()
	count, err := t.repo.UpsertAttempt(ctx, store.Attempt{
		MissionID:      missionID,
		UserKey:        userKey,
		QuestionID:     questionID,
		QuestionText:   questionText,
		IsCorrect:      isCorrect,
		FirstAttemptAt: now,
		LastAttemptAt:  now,
	})
	if err != nil {
		log.Error("upsert attempt failed", "question_id", questionID, "error", err)
		return AttemptResult{Message: msgSaveFailed, Err: unavailable(err)}
	}
	res := AttemptResult{CountsForMission: count == 1}

	if _, err := t.repo.RefreshPracticeProgress(ctx, missionID, userKey, now); err != nil {
		log.Error("refresh practice progress failed", "error", err)
		res.Message, res.Err = msgProgressFailed, unavailable(err)
		return res
	}

	c, err := t.complete(ctx, missionID, userKey)
	if err != nil {
		log.Error("completion check failed", "error", err)
		res.Message, res.Err = msgCompletionFailed, err
		return res
	}

	res.Success = true
	res.Completed = c.Reached
	res.PointsAwarded = c.Awarded
	res.Message = msgAttemptRepeated
	if res.CountsForMission {
		res.Message = msgAttemptCounted
	}
	if c.Newly {
		res.Message = completedMessage(c.Awarded)
	}
	return res
}

// RecordLectureSection marks a section completed. Repeating a section adds
// to its time spent without counting it twice.
func (t *Tracker) RecordLectureSection(ctx context.Context, missionID, userKey, lectureID, sectionID string, timeSpentSec int) Result {
	missionID, userKey = trim(missionID), trim(userKey)
	lectureID, sectionID = trim(lectureID), trim(sectionID)
	if err := required("mission id", missionID, "user key", userKey, "lecture id", lectureID, "section id", sectionID); err != nil {
		return Result{Message: err.Error(), Err: err}
	}
	if timeSpentSec < 0 {
		err := fmt.Errorf("%w: time spent must not be negative", ErrInvalidInput)
		return Result{Message: err.Error(), Err: err}
	}
	log := t.log.With("mission_id", missionID, "user_key", userKey)

	m, err := t.loadMission(ctx, missionID, userKey, TypeLecture)
	if err != nil {
		return Result{Message: failureMessage(err), Err: err}
	}
	cfg, err := parseLectureConfig([]byte(m.Config))
	if err != nil {
		return Result{Message: err.Error(), Err: err}
	}
	if cfg.LectureID != lectureID || !cfg.HasSection(sectionID) {
		err := fmt.Errorf("%w: section %s/%s is not part of this mission", ErrInvalidInput, lectureID, sectionID)
		return Result{Message: err.Error(), Err: err}
	}

	now := t.now().UTC()
	err = t.repo.UpsertSection(ctx, store.Section{
		MissionID:    missionID,
		UserKey:      userKey,
		LectureID:    lectureID,
		SectionID:    sectionID,
		TimeSpentSec: timeSpentSec,
		CompletedAt:  now,
	})
	if err != nil {
		log.Error("upsert section failed", "section_id", sectionID, "error", err)
		return Result{Message: msgSaveFailed, Err: unavailable(err)}
	}

	if _, err := t.repo.RefreshLectureProgress(ctx, missionID, userKey, now); err != nil {
		log.Error("refresh lecture progress failed", "error", err)
		return Result{Message: msgProgressFailed, Err: unavailable(err)}
	}

	c, err := t.complete(ctx, missionID, userKey)
	if err != nil {
		log.Error("completion check failed", "error", err)
		return Result{Message: msgCompletionFailed, Err: err}
	}

	res := Result{Success: true, Completed: c.Reached, PointsAwarded: c.Awarded, Message: msgSectionRecorded}
	if c.Newly {
		res.Message = completedMessage(c.Awarded)
	}
	return res
}

// CheckCompletion reports whether the mission's requirement is met. The
// first call that sees it met marks the mission completed and awards its
// points; later calls return true without awarding again.
func (t *Tracker) CheckCompletion(ctx context.Context, missionID, userKey string) (bool, error) {
	missionID, userKey = trim(missionID), trim(userKey)
	if err := required("mission id", missionID, "user key", userKey); err != nil {
		return false, err
	}
	c, err := t.complete(ctx, missionID, userKey)
	if err != nil {
		return false, err
	}
	return c.Reached, nil
}

func (t *Tracker) complete(ctx context.Context, missionID, userKey string) (store.Completion, error) {
	c, err := t.repo.CompleteMission(ctx, missionID, userKey, t.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c, fmt.Errorf("%w: %s", ErrNotFound, missionID)
		}
		return c, unavailable(err)
	}
	if c.Newly {
		t.log.Info("mission completed", "mission_id", missionID, "user_key", userKey, "points", c.Awarded)
	}
	return c, nil
}

// loadMission returns the mission if it exists, belongs to userKey and has
// type want. A mission owned by someone else is reported as not found.
func (t *Tracker) loadMission(ctx context.Context, missionID, userKey string, want Type) (*store.Mission, error) {
	m, err := t.repo.GetMission(ctx, missionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, missionID)
		}
		t.log.Error("load mission failed", "mission_id", missionID, "user_key", userKey, "error", err)
		return nil, unavailable(err)
	}
	if m.UserKey != userKey {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, missionID)
	}
	if want != "" && Type(m.Type) != want {
		return nil, fmt.Errorf("%w: mission %s is %s, not %s", ErrWrongType, missionID, m.Type, want)
	}
	return m, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "mission not found"
	case errors.Is(err, ErrWrongType):
		return err.Error()
	}
	return msgSaveFailed
}

func completedMessage(points int) string {
	if points > 0 {
		return fmt.Sprintf("mission completed! +%d points", points)
	}
	return "mission completed!"
}

func trim(s string) string {
	return strings.TrimSpace(s)
}

// required takes (name, value) pairs and rejects the first empty value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, pairs[i])
		}
	}
	return nil
}
