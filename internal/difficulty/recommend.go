package difficulty

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Recommendation reasons.
const (
	ReasonNoData         = "no_data"
	ReasonHighAccuracy   = "high_accuracy"
	ReasonSteadyAccuracy = "steady_accuracy"
	ReasonLowAccuracy    = "low_accuracy"
	ReasonUnavailable    = "unavailable"
	ReasonInvalidInput   = "invalid_input"
)

// Recommendation is a starting level suggested before a session.
type Recommendation struct {
	Difficulty Difficulty `json:"difficulty"`
	Reason     string     `json:"reason"`
	Confidence float64    `json:"confidence"`
	Message    string     `json:"message"`
	Err        error      `json:"-"`
}

// Recommend suggests a level from the user's recent answers. An empty
// topicID considers every topic. It never writes.
func (e *Engine) Recommend(ctx context.Context, userKey, topicID string) Recommendation {
	userKey = strings.TrimSpace(userKey)
	topicID = strings.TrimSpace(topicID)
	if userKey == "" {
		return Recommendation{
			Difficulty: Medium,
			Reason:     ReasonInvalidInput,
			Message:    "A user is required.",
			Err:        fmt.Errorf("%w: user key is required", ErrInvalidInput),
		}
	}

	events, err := e.repo.RecentAnswers(ctx, userKey, topicID, e.policy.RecommendWindow)
	if err != nil {
		e.log.Error("load recommendation window failed", "user_key", userKey, "topic_id", topicID, "error", err)
		return Recommendation{
			Difficulty: Medium,
			Reason:     ReasonUnavailable,
			Message:    "We could not load your history, so let's start at medium.",
			Err:        fmt.Errorf("%w: %v", ErrStoreUnavailable, err),
		}
	}

	outcomes := make([]bool, len(events))
	for i, ev := range events {
		outcomes[i] = ev.IsCorrect
	}
	return Recommend(outcomes, e.policy)
}

// Recommend maps outcomes, newest first, to a starting level. Accuracy is
// taken over the outcomes present, up to p.RecommendWindow.
func Recommend(outcomes []bool, p Policy) Recommendation {
	if len(outcomes) > p.RecommendWindow {
		outcomes = outcomes[:p.RecommendWindow]
	}
	n := len(outcomes)
	if n == 0 {
		return Recommendation{
			Difficulty: Medium,
			Reason:     ReasonNoData,
			Message:    "No answers yet, so let's start at medium.",
		}
	}

	correct := 0
	for _, ok := range outcomes {
		if ok {
			correct++
		}
	}
	accuracy := float64(correct*100) / float64(n)
	r := Recommendation{Confidence: math.Min(float64(n)/float64(p.RecommendWindow), 1)}

	switch {
	case accuracy >= p.RecommendHardAt:
		r.Difficulty, r.Reason = Hard, ReasonHighAccuracy
		r.Message = fmt.Sprintf("You got %d of your last %d right. Ready for hard questions.", correct, n)
	case accuracy >= p.RecommendMediumAt:
		r.Difficulty, r.Reason = Medium, ReasonSteadyAccuracy
		r.Message = fmt.Sprintf("You got %d of your last %d right. Medium questions fit well.", correct, n)
	default:
		r.Difficulty, r.Reason = Easy, ReasonLowAccuracy
		r.Message = fmt.Sprintf("You got %d of your last %d right. Let's warm up with easy questions.", correct, n)
	}
	return r
}
