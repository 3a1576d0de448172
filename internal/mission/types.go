// Package mission tracks progress on assigned practice and lecture missions.
package mission

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/tirgul/tirgul/internal/store"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("mission not found")
	ErrWrongType        = errors.New("wrong mission type")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Type is the kind of work a mission asks for.
type Type string

const (
	TypePractice Type = "practice"
	TypeLecture  Type = "lecture"
)

// Valid reports whether t is a known mission type.
func (t Type) Valid() bool {
	return t == TypePractice || t == TypeLecture
}

// Status is a mission's lifecycle state. StatusExpired is never stored; it
// is derived from the deadline at read time.
type Status string

const (
	StatusActive    Status = store.MissionActive
	StatusCompleted Status = store.MissionCompleted
	StatusExpired   Status = "expired"
)

// Progress is the aggregate of a user's work on one mission.
type Progress struct {
	CurrentCount      int        `json:"currentCount"`
	RequiredCount     int        `json:"requiredCount"`
	Accuracy          float64    `json:"accuracy"`
	UniqueQuestions   int        `json:"uniqueQuestions"`
	CorrectQuestions  int        `json:"correctQuestions"`
	TotalTimeSpentSec int        `json:"totalTimeSpentSec"`
	LastActivity      *time.Time `json:"lastActivity,omitempty"`
}

// Percent returns completion in [0, 100].
func (p Progress) Percent() float64 {
	if p.RequiredCount <= 0 {
		return 0
	}
	pct := float64(p.CurrentCount) * 100 / float64(p.RequiredCount)
	if pct > 100 {
		return 100
	}
	return pct
}

// Mission is a mission joined with its progress.
type Mission struct {
	ID          string          `json:"id"`
	UserKey     string          `json:"userKey"`
	Title       string          `json:"title"`
	Type        Type            `json:"type"`
	Config      json.RawMessage `json:"config"`
	Points      int             `json:"points"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Progress    Progress        `json:"progress"`
}

// DisplayStatus returns StatusExpired for an active mission whose deadline
// has passed, and the stored status otherwise.
func (m Mission) DisplayStatus(now time.Time) Status {
	if m.Status == StatusActive && m.Deadline != nil && m.Deadline.Before(now) {
		return StatusExpired
	}
	return m.Status
}

// Attempt is one question's record within a practice mission.
type Attempt struct {
	QuestionID     string    `json:"questionId"`
	QuestionText   string    `json:"questionText,omitempty"`
	IsCorrect      bool      `json:"isCorrect"`
	AttemptsCount  int       `json:"attemptsCount"`
	FirstAttemptAt time.Time `json:"firstAttemptAt"`
	LastAttemptAt  time.Time `json:"lastAttemptAt"`
}

// Section is one completed section within a lecture mission.
type Section struct {
	LectureID    string    `json:"lectureId"`
	SectionID    string    `json:"sectionId"`
	IsCompleted  bool      `json:"isCompleted"`
	TimeSpentSec int       `json:"timeSpentSec"`
	CompletedAt  time.Time `json:"completedAt"`
}

// Detail is a mission with its full history. Only the history matching the
// mission type is filled.
type Detail struct {
	Mission  Mission   `json:"mission"`
	Attempts []Attempt `json:"attempts,omitempty"`
	Sections []Section `json:"sections,omitempty"`
}

// AttemptResult reports the outcome of RecordPracticeAttempt.
type AttemptResult struct {
	Success          bool   `json:"success"`
	CountsForMission bool   `json:"countsForMission"`
	Completed        bool   `json:"completed"`
	PointsAwarded    int    `json:"pointsAwarded,omitempty"`
	Message          string `json:"message"`
	Err              error  `json:"-"`
}

// Result reports the outcome of RecordLectureSection.
type Result struct {
	Success       bool   `json:"success"`
	Completed     bool   `json:"completed"`
	PointsAwarded int    `json:"pointsAwarded,omitempty"`
	Message       string `json:"message"`
	Err           error  `json:"-"`
}

// Sort orders missions active first, then completed, then anything else
// (expired). Within a group, sooner deadlines come first with missing
// deadlines last, then newer missions first. The sort is stable.
func Sort(ms []Mission, now time.Time) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if ra, rb := statusRank(a.DisplayStatus(now)), statusRank(b.DisplayStatus(now)); ra != rb {
			return ra < rb
		}
		switch {
		case a.Deadline != nil && b.Deadline == nil:
			return true
		case a.Deadline == nil && b.Deadline != nil:
			return false
		case a.Deadline != nil && !a.Deadline.Equal(*b.Deadline):
			return a.Deadline.Before(*b.Deadline)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func statusRank(s Status) int {
	switch s {
	case StatusActive:
		return 0
	case StatusCompleted:
		return 1
	}
	return 2
}

func fromStore(m store.Mission, p *store.Progress) Mission {
	out := Mission{
		ID:          m.ID,
		UserKey:     m.UserKey,
		Title:       m.Title,
		Type:        Type(m.Type),
		Config:      json.RawMessage(m.Config),
		Points:      m.Points,
		Deadline:    m.Deadline,
		Status:      Status(m.Status),
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
	if p != nil {
		out.Progress = progressFromStore(*p)
	}
	return out
}

func progressFromStore(p store.Progress) Progress {
	return Progress{
		CurrentCount:      p.CurrentCount,
		RequiredCount:     p.RequiredCount,
		Accuracy:          p.Accuracy,
		UniqueQuestions:   p.UniqueQuestions,
		CorrectQuestions:  p.CorrectQuestions,
		TotalTimeSpentSec: p.TotalTimeSpentSec,
		LastActivity:      p.LastActivity,
	}
}
