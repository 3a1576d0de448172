package difficulty

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tirgul/tirgul/internal/keylock"
	"github.com/tirgul/tirgul/internal/logger"
	"github.com/tirgul/tirgul/internal/store"
)

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

// mockAnswerRepo implements store.AnswerRepo with injectable failures.
type mockAnswerRepo struct {
	mu        sync.Mutex
	events    []store.AnswerEvent
	ensureErr error
	appendErr error
	recentErr error
	writes    int
}

func (m *mockAnswerRepo) EnsureUser(_ context.Context, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.writes++
	return nil
}

func (m *mockAnswerRepo) AppendAnswer(_ context.Context, ev *store.AnswerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.writes++
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, *ev)
	return nil
}

func (m *mockAnswerRepo) RecentAnswers(_ context.Context, userKey, topicID string, limit int) ([]store.AnswerEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recentErr != nil {
		return nil, m.recentErr
	}
	var out []store.AnswerEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		ev := m.events[i]
		if ev.UserKey == userKey && (topicID == "" || ev.TopicID == topicID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func TestEvaluate_ColdStartThenPromote(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s.AnswerRepo(), WithLogger(logger.FromZap(zaptest.NewLogger(t))))
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		d := e.Evaluate(ctx, "u1", "fractions", Medium, true)
		require.NoError(t, d.Err)
		assert.False(t, d.ShouldAdjust)
		assert.InDelta(t, float64(i)/3, d.Confidence, 1e-9)
	}

	for i := 3; i <= 4; i++ {
		d := e.Evaluate(ctx, "u1", "fractions", Medium, true)
		require.NoError(t, d.Err)
		// 3 or 4 correct of a five-wide window is 60% or 80%.
		assert.False(t, d.ShouldAdjust, "answer %d", i)
	}

	d := e.Evaluate(ctx, "u1", "fractions", Medium, true)
	require.NoError(t, d.Err)
	assert.True(t, d.ShouldAdjust)
	assert.Equal(t, Hard, d.NewDifficulty)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, 5, d.Stats.CorrectCount)
}

func TestEvaluate_OneOfFiveAtMediumDemotes(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s.AnswerRepo())
	ctx := context.Background()

	var d Decision
	for _, ok := range []bool{true, false, false, false, false} {
		d = e.Evaluate(ctx, "u1", "algebra", Medium, ok)
	}
	assert.True(t, d.ShouldAdjust)
	assert.Equal(t, Easy, d.NewDifficulty)
	assert.Equal(t, 20.0, d.Stats.Accuracy)
}

func TestEvaluate_StreakAtHard(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s.AnswerRepo())
	ctx := context.Background()

	var d Decision
	for _, ok := range []bool{true, true, false, false, false} {
		d = e.Evaluate(ctx, "u1", "geometry", Hard, ok)
	}
	assert.True(t, d.ShouldAdjust)
	assert.Equal(t, Medium, d.NewDifficulty)
	assert.Equal(t, Streak{Count: 3, Type: Incorrect}, d.Stats.Streak)
}

func TestEvaluate_TopicsAreIndependent(t *testing.T) {
	s := openTestStore(t)
	e := NewEngine(s.AnswerRepo())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e.Evaluate(ctx, "u1", "algebra", Medium, true)
	}
	d := e.Evaluate(ctx, "u1", "geometry", Medium, true)
	assert.False(t, d.ShouldAdjust)
	assert.Equal(t, "need 2 more answers", d.Reason)
}

func TestEvaluateAnswer_InvalidInputWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		a    Answer
	}{
		{"empty user", Answer{UserKey: "  ", TopicID: "t", Difficulty: Easy}},
		{"empty topic", Answer{UserKey: "u", TopicID: "", Difficulty: Easy}},
		{"bad difficulty", Answer{UserKey: "u", TopicID: "t", Difficulty: "expert"}},
		{"negative time", Answer{UserKey: "u", TopicID: "t", Difficulty: Easy, TimeTakenSec: -1}},
		{"negative hints", Answer{UserKey: "u", TopicID: "t", Difficulty: Easy, HintsUsed: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockAnswerRepo{}
			d := NewEngine(repo).EvaluateAnswer(context.Background(), tt.a)
			assert.ErrorIs(t, d.Err, ErrInvalidInput)
			assert.False(t, d.ShouldAdjust)
			assert.Zero(t, d.Confidence)
			assert.NotEmpty(t, d.Reason)
			assert.Zero(t, repo.writes)
		})
	}
}

func TestEvaluate_StoreFailures(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name string
		repo *mockAnswerRepo
	}{
		{"ensure user", &mockAnswerRepo{ensureErr: boom}},
		{"append", &mockAnswerRepo{appendErr: boom}},
		{"read window", &mockAnswerRepo{recentErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewEngine(tt.repo).Evaluate(context.Background(), "u1", "t1", Hard, false)
			assert.ErrorIs(t, d.Err, ErrStoreUnavailable)
			assert.False(t, d.ShouldAdjust)
			assert.Equal(t, Hard, d.NewDifficulty)
			assert.Equal(t, SaveFailedReason, d.Reason)
			assert.Zero(t, d.Confidence)
		})
	}
}

func TestEvaluate_ConcurrentWithLocalLock(t *testing.T) {
	s := openTestStore(t)
	locker := keylock.NewLocal()
	e := NewEngine(s.AnswerRepo(), WithLocker(locker))
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := e.Evaluate(ctx, "u1", "algebra", Medium, true)
			assert.NoError(t, d.Err)
		}()
	}
	wg.Wait()

	events, err := s.AnswerRepo().RecentAnswers(ctx, "u1", "algebra", 100)
	require.NoError(t, err)
	assert.Len(t, events, n)
	assert.Equal(t, 0, locker.Len())
}

func TestEvaluate_CustomPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.WindowSize = 3
	p.MinQuestions = 1
	e := NewEngine(&mockAnswerRepo{}, WithPolicy(p))

	d := e.Evaluate(context.Background(), "u1", "t", Easy, true)
	// One correct answer in a three-wide window is 33%.
	assert.False(t, d.ShouldAdjust)
	assert.InDelta(t, 33.33, d.Stats.Accuracy, 0.01)
}

func TestRecommend_Engine(t *testing.T) {
	repo := &mockAnswerRepo{}
	e := NewEngine(repo)
	ctx := context.Background()

	r := e.Recommend(ctx, "u1", "")
	assert.Equal(t, Medium, r.Difficulty)
	assert.Equal(t, ReasonNoData, r.Reason)
	assert.Zero(t, r.Confidence)

	for i := 0; i < 10; i++ {
		e.Evaluate(ctx, "u1", "algebra", Medium, true)
	}
	writes := repo.writes

	r = e.Recommend(ctx, "u1", "")
	assert.Equal(t, Hard, r.Difficulty)
	assert.Equal(t, ReasonHighAccuracy, r.Reason)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, writes, repo.writes, "recommend must not write")

	r = e.Recommend(ctx, "u1", "geometry")
	assert.Equal(t, ReasonNoData, r.Reason)

	r = e.Recommend(ctx, " ", "")
	assert.ErrorIs(t, r.Err, ErrInvalidInput)

	failing := NewEngine(&mockAnswerRepo{recentErr: errors.New("down")})
	r = failing.Recommend(ctx, "u1", "")
	assert.Equal(t, Medium, r.Difficulty)
	assert.Equal(t, ReasonUnavailable, r.Reason)
	assert.ErrorIs(t, r.Err, ErrStoreUnavailable)
}
