package mission

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tirgul/tirgul/internal/store"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// stepClock advances by one minute on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Options{
		Driver: store.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	s := openTestStore(t)
	clock := &stepClock{now: t0}
	return NewTracker(s.MissionRepo(), WithClock(clock.Now)), s
}

func assignPractice(t *testing.T, tr *Tracker, userKey string, questions, points int) *Mission {
	t.Helper()
	m, err := tr.AssignMission(context.Background(), NewMission{
		UserKey: userKey,
		Title:   "Fractions drill",
		Type:    TypePractice,
		Config:  json.RawMessage(`{"questionCount": ` + itoa(questions) + `, "topicId": "fractions"}`),
		Points:  points,
	})
	require.NoError(t, err)
	return m
}

func assignLecture(t *testing.T, tr *Tracker, userKey string, config string, points int) *Mission {
	t.Helper()
	m, err := tr.AssignMission(context.Background(), NewMission{
		UserKey: userKey,
		Title:   "Intro to geometry",
		Type:    TypeLecture,
		Config:  json.RawMessage(config),
		Points:  points,
	})
	require.NoError(t, err)
	return m
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestAssignMission(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	m := assignPractice(t, tr, "u1", 3, 10)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, StatusActive, m.Status)
	assert.Equal(t, 3, m.Progress.RequiredCount)

	d, err := tr.GetMissionDetails(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, d.Mission.Progress.CurrentCount)
	assert.Equal(t, 3, d.Mission.Progress.RequiredCount)
	assert.Empty(t, d.Attempts)

	l := assignLecture(t, tr, "u1", `{"lectureId": "L1", "sections": ["s1", "s2", "s3"]}`, 5)
	assert.Equal(t, 3, l.Progress.RequiredCount)

	l = assignLecture(t, tr, "u1", `{"lectureId": "L1", "sections": ["s1", "s2", "s3"], "requiredSections": 2}`, 5)
	assert.Equal(t, 2, l.Progress.RequiredCount)

	l = assignLecture(t, tr, "u1", `{"lectureId": "L2", "requiredSections": 4}`, 5)
	assert.Equal(t, 4, l.Progress.RequiredCount)
}

func TestAssignMission_Invalid(t *testing.T) {
	tests := []struct {
		name string
		nm   NewMission
	}{
		{"empty user", NewMission{Title: "x", Type: TypePractice, Config: json.RawMessage(`{"questionCount": 1}`)}},
		{"empty title", NewMission{UserKey: "u1", Title: " ", Type: TypePractice, Config: json.RawMessage(`{"questionCount": 1}`)}},
		{"negative points", NewMission{UserKey: "u1", Title: "x", Type: TypePractice, Points: -1, Config: json.RawMessage(`{"questionCount": 1}`)}},
		{"unknown type", NewMission{UserKey: "u1", Title: "x", Type: "exam", Config: json.RawMessage(`{}`)}},
		{"missing question count", NewMission{UserKey: "u1", Title: "x", Type: TypePractice, Config: json.RawMessage(`{"topicId": "a"}`)}},
		{"zero question count", NewMission{UserKey: "u1", Title: "x", Type: TypePractice, Config: json.RawMessage(`{"questionCount": 0}`)}},
		{"fractional question count", NewMission{UserKey: "u1", Title: "x", Type: TypePractice, Config: json.RawMessage(`{"questionCount": 2.5}`)}},
		{"bad difficulty", NewMission{UserKey: "u1", Title: "x", Type: TypePractice, Config: json.RawMessage(`{"questionCount": 2, "difficulty": "extreme"}`)}},
		{"not json", NewMission{UserKey: "u1", Title: "x", Type: TypePractice, Config: json.RawMessage(`{questionCount: 2`)}},
		{"lecture without sections", NewMission{UserKey: "u1", Title: "x", Type: TypeLecture, Config: json.RawMessage(`{"lectureId": "L1"}`)}},
		{"lecture empty sections", NewMission{UserKey: "u1", Title: "x", Type: TypeLecture, Config: json.RawMessage(`{"lectureId": "L1", "sections": []}`)}},
		{"lecture duplicate sections", NewMission{UserKey: "u1", Title: "x", Type: TypeLecture, Config: json.RawMessage(`{"lectureId": "L1", "sections": ["a", "a"]}`)}},
		{"lecture requires too many", NewMission{UserKey: "u1", Title: "x", Type: TypeLecture, Config: json.RawMessage(`{"lectureId": "L1", "sections": ["a"], "requiredSections": 2}`)}},
	}

	tr, _ := newTestTracker(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.AssignMission(context.Background(), tt.nm)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	ms, err := tr.ListMissions(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, ms, "rejected missions must not be stored")
}

func TestRecordPracticeAttempt_Dedup(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	m := assignPractice(t, tr, "u1", 5, 10)

	r := tr.RecordPracticeAttempt(ctx, m.ID, "u1", "q1", "1/2 + 1/4 = ?", false)
	require.True(t, r.Success, r.Message)
	assert.True(t, r.CountsForMission)
	assert.False(t, r.Completed)

	r = tr.RecordPracticeAttempt(ctx, m.ID, "u1", "q1", "1/2 + 1/4 = ?", true)
	require.True(t, r.Success, r.Message)
	assert.False(t, r.CountsForMission)

	d, err := tr.GetMissionDetails(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Mission.Progress.CurrentCount)
	assert.Equal(t, 1, d.Mission.Progress.UniqueQuestions)
	require.Len(t, d.Attempts, 1)
	assert.Equal(t, 2, d.Attempts[0].AttemptsCount)
	assert.True(t, d.Attempts[0].IsCorrect, "later attempts update correctness")
	assert.Equal(t, 100.0, d.Mission.Progress.Accuracy)
	assert.NotNil(t, d.Mission.Progress.LastActivity)
}

func TestRecordPracticeAttempt_Accuracy(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	m := assignPractice(t, tr, "u1", 10, 0)

	for i, ok := range []bool{true, false, false} {
		r := tr.RecordPracticeAttempt(ctx, m.ID, "u1", "q"+itoa(i), "", ok)
		require.True(t, r.Success, r.Message)
	}
	d, err := tr.GetMissionDetails(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 33.33, d.Mission.Progress.Accuracy)
	assert.Equal(t, 1, d.Mission.Progress.CorrectQuestions)
}

func TestPracticeCompletion_AwardsOnce(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	m := assignPractice(t, tr, "u1", 2, 25)

	r := tr.RecordPracticeAttempt(ctx, m.ID, "u1", "q1", "", true)
	require.True(t, r.Success)
	assert.False(t, r.Completed)

	r = tr.RecordPracticeAttempt(ctx, m.ID, "u1", "q2", "", false)
	require.True(t, r.Success)
	assert.True(t, r.Completed)
	assert.Equal(t, 25, r.PointsAwarded)
	assert.Contains(t, r.Message, "+25")

	r = tr.RecordPracticeAttempt(ctx, m.ID, "u1", "q3", "", true)
	require.True(t, r.Success)
	assert.True(t, r.Completed)
	assert.Zero(t, r.PointsAwarded)

	for i := 0; i < 3; i++ {
		done, err := tr.CheckCompletion(ctx, m.ID, "u1")
		require.NoError(t, err)
		assert.True(t, done)
	}

	points, err := tr.UserPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 25, points)

	d, err := tr.GetMissionDetails(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, d.Mission.Status)
	assert.NotNil(t, d.Mission.CompletedAt)
	assert.Equal(t, 3, d.Mission.Progress.CurrentCount, "count may pass the requirement")
}

func TestConcurrentCompletionAwardsOnce(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()
	m := assignPractice(t, tr, "u1", 1, 7)

	_, err := s.MissionRepo().UpsertAttempt(ctx, store.Attempt{MissionID: m.ID, UserKey: "u1", QuestionID: "q1", IsCorrect: true})
	require.NoError(t, err)
	_, err = s.MissionRepo().RefreshPracticeProgress(ctx, m.ID, "u1", t0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := tr.CheckCompletion(ctx, m.ID, "u1")
			assert.NoError(t, err)
			assert.True(t, done)
		}()
	}
	wg.Wait()

	points, err := tr.UserPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, points)
}

func TestConcurrentDuplicateAttemptsCountOnce(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	m := assignPractice(t, tr, "u1", 5, 10)

	const workers = 8
	results := make(chan AttemptResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- tr.RecordPracticeAttempt(ctx, m.ID, "u1", "q1", "", true)
		}()
	}
	wg.Wait()
	close(results)

	counted := 0
	for r := range results {
		assert.True(t, r.Success, r.Message)
		if r.CountsForMission {
			counted++
		}
	}
	assert.Equal(t, 1, counted)

	d, err := tr.GetMissionDetails(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Mission.Progress.CurrentCount)
	require.Len(t, d.Attempts, 1)
	assert.Equal(t, workers, d.Attempts[0].AttemptsCount)
}

func TestRecordLectureSection_Idempotent(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	m := assignLecture(t, tr, "u1", `{"lectureId": "L1", "sections": ["s1", "s2"]}`, 15)

	r := tr.RecordLectureSection(ctx, m.ID, "u1", "L1", "s1", 30)
	require.True(t, r.Success, r.Message)
	r = tr.RecordLectureSection(ctx, m.ID, "u1", "L1", "s1", 45)
	require.True(t, r.Success, r.Message)
	assert.False(t, r.Completed)

	d, err := tr.GetMissionDetails(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Mission.Progress.CurrentCount)
	assert.Equal(t, 75, d.Mission.Progress.TotalTimeSpentSec)
	require.Len(t, d.Sections, 1)
	assert.Equal(t, 75, d.Sections[0].TimeSpentSec)
	assert.True(t, d.Sections[0].IsCompleted)

	r = tr.RecordLectureSection(ctx, m.ID, "u1", "L1", "s2", 10)
	require.True(t, r.Success, r.Message)
	assert.True(t, r.Completed)
	assert.Equal(t, 15, r.PointsAwarded)

	r = tr.RecordLectureSection(ctx, m.ID, "u1", "L1", "s2", 10)
	require.True(t, r.Success, r.Message)
	assert.Zero(t, r.PointsAwarded)

	points, err := tr.UserPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 15, points)
}

func TestRecordLectureSection_Rejects(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	m := assignLecture(t, tr, "u1", `{"lectureId": "L1", "sections": ["s1"]}`, 5)

	tests := []struct {
		name      string
		lecture   string
		section   string
		timeSpent int
	}{
		{"unknown section", "L1", "s9", 10},
		{"other lecture", "L2", "s1", 10},
		{"negative time", "L1", "s1", -5},
		{"empty section", "L1", "", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tr.RecordLectureSection(ctx, m.ID, "u1", tt.lecture, tt.section, tt.timeSpent)
			assert.False(t, r.Success)
			assert.ErrorIs(t, r.Err, ErrInvalidInput)
			assert.NotEmpty(t, r.Message)
		})
	}

	d, err := tr.GetMissionDetails(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.Empty(t, d.Sections)
}

func TestLectureAnySectionWhenUnlisted(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	m := assignLecture(t, tr, "u1", `{"lectureId": "L1", "requiredSections": 2}`, 5)

	assert.True(t, tr.RecordLectureSection(ctx, m.ID, "u1", "L1", "intro", 5).Success)
	r := tr.RecordLectureSection(ctx, m.ID, "u1", "L1", "summary", 5)
	assert.True(t, r.Success)
	assert.True(t, r.Completed)
}

func TestMissionLookupErrors(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	practice := assignPractice(t, tr, "u1", 2, 0)
	lecture := assignLecture(t, tr, "u1", `{"lectureId": "L1", "sections": ["s1"]}`, 0)

	r := tr.RecordPracticeAttempt(ctx, lecture.ID, "u1", "q1", "", true)
	assert.ErrorIs(t, r.Err, ErrWrongType)

	lr := tr.RecordLectureSection(ctx, practice.ID, "u1", "L1", "s1", 1)
	assert.ErrorIs(t, lr.Err, ErrWrongType)

	r = tr.RecordPracticeAttempt(ctx, practice.ID, "intruder", "q1", "", true)
	assert.ErrorIs(t, r.Err, ErrNotFound)

	r = tr.RecordPracticeAttempt(ctx, "missing", "u1", "q1", "", true)
	assert.ErrorIs(t, r.Err, ErrNotFound)
	assert.Equal(t, "mission not found", r.Message)

	r = tr.RecordPracticeAttempt(ctx, practice.ID, "u1", "", "", true)
	assert.ErrorIs(t, r.Err, ErrInvalidInput)

	_, err := tr.GetMissionDetails(ctx, practice.ID, "intruder")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tr.CheckCompletion(ctx, "missing", "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tr.ListMissions(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCheckCompletion_NotReached(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	m := assignPractice(t, tr, "u1", 2, 10)

	done, err := tr.CheckCompletion(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.False(t, done)

	points, err := tr.UserPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, points)
}

func TestListMissions_Ordering(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()

	deadline := func(d time.Duration) *time.Time {
		v := t0.Add(d)
		return &v
	}
	assign := func(title string, dl *time.Time) *Mission {
		m, err := tr.AssignMission(ctx, NewMission{
			UserKey:  "u1",
			Title:    title,
			Type:     TypePractice,
			Config:   json.RawMessage(`{"questionCount": 1}`),
			Points:   10,
			Deadline: dl,
		})
		require.NoError(t, err)
		return m
	}

	a := assign("A", deadline(48*time.Hour))
	b := assign("B", nil)
	c := assign("C", deadline(24*time.Hour))
	d := assign("D", nil)
	e := assign("E", deadline(-time.Hour))
	f := assign("F", nil)
	_, err := tr.AssignMission(ctx, NewMission{
		UserKey: "u2",
		Title:   "not mine",
		Type:    TypePractice,
		Config:  json.RawMessage(`{"questionCount": 1}`),
	})
	require.NoError(t, err)

	r := tr.RecordPracticeAttempt(ctx, d.ID, "u1", "q1", "", true)
	require.True(t, r.Completed)

	ms, err := tr.ListMissions(ctx, "u1")
	require.NoError(t, err)

	var got []string
	for _, m := range ms {
		got = append(got, m.ID)
	}
	assert.Equal(t, []string{c.ID, a.ID, f.ID, b.ID, d.ID, e.ID}, got)
	assert.Equal(t, 1, ms[4].Progress.CurrentCount)

	assert.Equal(t, StatusExpired, ms[5].DisplayStatus(t0.Add(time.Hour)))

	// The expired projection is never written back.
	row, err := s.MissionRepo().GetMission(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, store.MissionActive, row.Status)
}

// flakyRepo fails selected writes and delegates everything else.
type flakyRepo struct {
	store.MissionRepo
	upsertErr   error
	refreshErr  error
	completeErr error
	getErr      error
}

func (f *flakyRepo) GetMission(ctx context.Context, id string) (*store.Mission, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MissionRepo.GetMission(ctx, id)
}

func (f *flakyRepo) UpsertAttempt(ctx context.Context, a store.Attempt) (int, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	return f.MissionRepo.UpsertAttempt(ctx, a)
}

func (f *flakyRepo) RefreshPracticeProgress(ctx context.Context, missionID, userKey string, at time.Time) (*store.Progress, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.MissionRepo.RefreshPracticeProgress(ctx, missionID, userKey, at)
}

func (f *flakyRepo) CompleteMission(ctx context.Context, missionID, userKey string, at time.Time) (store.Completion, error) {
	if f.completeErr != nil {
		return store.Completion{}, f.completeErr
	}
	return f.MissionRepo.CompleteMission(ctx, missionID, userKey, at)
}

func TestRecordPracticeAttempt_StoreFailures(t *testing.T) {
	boom := errors.New("connection reset")
	s := openTestStore(t)
	ctx := context.Background()
	m := assignPractice(t, NewTracker(s.MissionRepo()), "u1", 1, 10)

	tests := []struct {
		name   string
		repo   *flakyRepo
		counts bool
	}{
		{"load", &flakyRepo{getErr: boom}, false},
		{"upsert", &flakyRepo{upsertErr: boom}, false},
		{"refresh", &flakyRepo{refreshErr: boom}, true},
		{"complete", &flakyRepo{completeErr: boom}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.repo.MissionRepo = s.MissionRepo()
			r := NewTracker(tt.repo).RecordPracticeAttempt(ctx, m.ID, "u1", "q-"+tt.name, "", true)
			assert.False(t, r.Success)
			assert.ErrorIs(t, r.Err, ErrStoreUnavailable)
			assert.NotEmpty(t, r.Message)
			assert.Equal(t, tt.counts, r.CountsForMission)
		})
	}

	// A retry after a failed check completes the mission and awards once.
	tr := NewTracker(s.MissionRepo())
	done, err := tr.CheckCompletion(ctx, m.ID, "u1")
	require.NoError(t, err)
	assert.True(t, done)
	points, err := tr.UserPoints(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, points)
}
