package mission

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tirgul/tirgul/internal/store"
)

// NewMission describes a mission to assign.
type NewMission struct {
	UserKey  string
	Title    string
	Type     Type
	Config   json.RawMessage
	Points   int
	Deadline *time.Time
}

// AssignMission validates nm and stores it together with its empty
// progress row.
func (t *Tracker) AssignMission(ctx context.Context, nm NewMission) (*Mission, error) {
	nm.UserKey = trim(nm.UserKey)
	nm.Title = strings.TrimSpace(nm.Title)
	if err := required("user key", nm.UserKey, "title", nm.Title); err != nil {
		return nil, err
	}
	if nm.Points < 0 {
		return nil, fmt.Errorf("%w: points must not be negative", ErrInvalidInput)
	}
	requiredCount, err := ValidateConfig(nm.Type, nm.Config)
	if err != nil {
		return nil, err
	}

	now := t.now().UTC()
	row := &store.Mission{
		ID:        uuid.NewString(),
		UserKey:   nm.UserKey,
		Title:     nm.Title,
		Type:      string(nm.Type),
		Config:    string(nm.Config),
		Points:    nm.Points,
		Status:    store.MissionActive,
		CreatedAt: now,
	}
	if nm.Deadline != nil {
		d := nm.Deadline.UTC()
		row.Deadline = &d
	}

	if err := t.repo.CreateMission(ctx, row, requiredCount); err != nil {
		t.log.Error("create mission failed", "user_key", nm.UserKey, "error", err)
		return nil, unavailable(err)
	}
	t.log.Info("mission assigned", "mission_id", row.ID, "user_key", nm.UserKey, "type", nm.Type, "required", requiredCount)

	m := fromStore(*row, nil)
	m.Progress.RequiredCount = requiredCount
	return &m, nil
}
