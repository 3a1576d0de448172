package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Mission status values as stored. "expired" is never stored.
const (
	MissionActive    = "active"
	MissionCompleted = "completed"
)

// AnswerEvent is one stored answer in the difficulty history.
type AnswerEvent struct {
	ID           int64     `db:"id"`
	UserKey      string    `db:"user_key"`
	TopicID      string    `db:"topic_id"`
	SubtopicID   string    `db:"subtopic_id"`
	Difficulty   string    `db:"difficulty"`
	IsCorrect    bool      `db:"is_correct"`
	TimeTakenSec int       `db:"time_taken_sec"`
	HintsUsed    int       `db:"hints_used"`
	AttemptIndex int       `db:"attempt_index"`
	Timestamp    time.Time `db:"timestamp"`
}

// AnswerRepo stores answer history and users.
type AnswerRepo interface {
	// EnsureUser creates the user row if it does not exist yet.
	EnsureUser(ctx context.Context, userKey string) error

	// AppendAnswer stores one answer. ID and Timestamp are filled in.
	AppendAnswer(ctx context.Context, ev *AnswerEvent) error

	// RecentAnswers returns up to limit answers, newest first.
	// An empty topicID matches every topic.
	RecentAnswers(ctx context.Context, userKey, topicID string, limit int) ([]AnswerEvent, error)
}

// Mission is a stored mission row.
type Mission struct {
	ID          string     `db:"id"`
	UserKey     string     `db:"user_key"`
	Title       string     `db:"title"`
	Type        string     `db:"type"`
	Config      string     `db:"config"`
	Points      int        `db:"points"`
	Deadline    *time.Time `db:"deadline"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// Progress is the aggregate progress of one user on one mission.
type Progress struct {
	MissionID         string     `db:"mission_id"`
	UserKey           string     `db:"user_key"`
	CurrentCount      int        `db:"current_count"`
	RequiredCount     int        `db:"required_count"`
	Accuracy          float64    `db:"accuracy"`
	UniqueQuestions   int        `db:"unique_questions"`
	CorrectQuestions  int        `db:"correct_questions"`
	TotalTimeSpentSec int        `db:"total_time_spent_sec"`
	LastActivity      *time.Time `db:"last_activity"`
}

// Attempt is the per-question record of a practice mission.
type Attempt struct {
	MissionID      string    `db:"mission_id"`
	UserKey        string    `db:"user_key"`
	QuestionID     string    `db:"question_id"`
	QuestionText   string    `db:"question_text"`
	IsCorrect      bool      `db:"is_correct"`
	AttemptsCount  int       `db:"attempts_count"`
	FirstAttemptAt time.Time `db:"first_attempt_at"`
	LastAttemptAt  time.Time `db:"last_attempt_at"`
}

// Section is the per-section record of a lecture mission.
type Section struct {
	MissionID    string    `db:"mission_id"`
	UserKey      string    `db:"user_key"`
	LectureID    string    `db:"lecture_id"`
	SectionID    string    `db:"section_id"`
	IsCompleted  bool      `db:"is_completed"`
	TimeSpentSec int       `db:"time_spent_sec"`
	CompletedAt  time.Time `db:"completed_at"`
}

// Completion reports the outcome of CompleteMission.
type Completion struct {
	Reached bool // current_count >= required_count
	Newly   bool // this call moved the mission to completed
	Awarded int  // points credited by this call
}

// MissionRepo stores missions and their progress.
type MissionRepo interface {
	EnsureUser(ctx context.Context, userKey string) error

	// CreateMission stores the mission and its zeroed progress row atomically.
	CreateMission(ctx context.Context, m *Mission, requiredCount int) error

	// GetMission returns ErrNotFound if no mission has the id.
	GetMission(ctx context.Context, id string) (*Mission, error)
	ListMissions(ctx context.Context, userKey string) ([]Mission, error)

	// GetProgress returns ErrNotFound if no progress row exists.
	GetProgress(ctx context.Context, missionID, userKey string) (*Progress, error)
	ListProgress(ctx context.Context, userKey string) ([]Progress, error)

	// UpsertAttempt inserts or updates the attempt row for a question and
	// returns its attempts_count after the write. A count of 1 means this
	// call created the row.
	UpsertAttempt(ctx context.Context, a Attempt) (int, error)

	// RefreshPracticeProgress recomputes progress from the attempt rows.
	// current_count never decreases.
	RefreshPracticeProgress(ctx context.Context, missionID, userKey string, at time.Time) (*Progress, error)

	// UpsertSection marks a section completed, accumulating time spent.
	UpsertSection(ctx context.Context, sec Section) error

	// RefreshLectureProgress recomputes progress from the section rows.
	RefreshLectureProgress(ctx context.Context, missionID, userKey string, at time.Time) (*Progress, error)

	// CompleteMission marks the mission completed and credits its points
	// once if the requirement is met.
	CompleteMission(ctx context.Context, missionID, userKey string, at time.Time) (Completion, error)

	ListAttempts(ctx context.Context, missionID, userKey string) ([]Attempt, error)
	ListSections(ctx context.Context, missionID, userKey string) ([]Section, error)

	// UserPoints returns the user's total points, 0 for unknown users.
	UserPoints(ctx context.Context, userKey string) (int, error)
}
