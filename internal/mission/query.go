package mission

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tirgul/tirgul/internal/store"
)

// ListMissions returns every mission of userKey with its progress, sorted
// by Sort.
func (t *Tracker) ListMissions(ctx context.Context, userKey string) ([]Mission, error) {
	userKey = trim(userKey)
	if err := required("user key", userKey); err != nil {
		return nil, err
	}

	rows, err := t.repo.ListMissions(ctx, userKey)
	if err != nil {
		t.log.Error("list missions failed", "user_key", userKey, "error", err)
		return nil, unavailable(err)
	}
	progress, err := t.repo.ListProgress(ctx, userKey)
	if err != nil {
		t.log.Error("list progress failed", "user_key", userKey, "error", err)
		return nil, unavailable(err)
	}

	byMission := make(map[string]*store.Progress, len(progress))
	for i := range progress {
		byMission[progress[i].MissionID] = &progress[i]
	}

	out := make([]Mission, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromStore(m, byMission[m.ID]))
	}
	Sort(out, t.now())
	return out, nil
}

// GetMissionDetails returns the mission, its progress and its attempt or
// section history. Progress and history are loaded concurrently.
func (t *Tracker) GetMissionDetails(ctx context.Context, missionID, userKey string) (*Detail, error) {
	missionID, userKey = trim(missionID), trim(userKey)
	if err := required("mission id", missionID, "user key", userKey); err != nil {
		return nil, err
	}

	m, err := t.loadMission(ctx, missionID, userKey, "")
	if err != nil {
		return nil, err
	}

	var (
		progress *store.Progress
		attempts []store.Attempt
		sections []store.Section
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := t.repo.GetProgress(gctx, missionID, userKey)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load progress: %w", err)
		}
		progress = p
		return nil
	})
	g.Go(func() error {
		var err error
		switch Type(m.Type) {
		case TypePractice:
			attempts, err = t.repo.ListAttempts(gctx, missionID, userKey)
		case TypeLecture:
			sections, err = t.repo.ListSections(gctx, missionID, userKey)
		}
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		t.log.Error("load mission details failed", "mission_id", missionID, "user_key", userKey, "error", err)
		return nil, unavailable(err)
	}

	d := &Detail{Mission: fromStore(*m, progress)}
	for _, a := range attempts {
		d.Attempts = append(d.Attempts, Attempt{
			QuestionID:     a.QuestionID,
			QuestionText:   a.QuestionText,
			IsCorrect:      a.IsCorrect,
			AttemptsCount:  a.AttemptsCount,
			FirstAttemptAt: a.FirstAttemptAt,
			LastAttemptAt:  a.LastAttemptAt,
		})
	}
	for _, s := range sections {
		d.Sections = append(d.Sections, Section{
			LectureID:    s.LectureID,
			SectionID:    s.SectionID,
			IsCompleted:  s.IsCompleted,
			TimeSpentSec: s.TimeSpentSec,
			CompletedAt:  s.CompletedAt,
		})
	}
	return d, nil
}

// UserPoints returns the points userKey has earned from completed missions.
func (t *Tracker) UserPoints(ctx context.Context, userKey string) (int, error) {
	userKey = trim(userKey)
	if err := required("user key", userKey); err != nil {
		return 0, err
	}
	points, err := t.repo.UserPoints(ctx, userKey)
	if err != nil {
		return 0, unavailable(err)
	}
	return points, nil
}
