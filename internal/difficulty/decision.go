package difficulty

import (
	"fmt"
	"math"
)

// Outcome is the result type of a streak.
type Outcome string

const (
	Correct   Outcome = "correct"
	Incorrect Outcome = "incorrect"
)

// Streak is the run of identical outcomes counting back from the newest answer.
type Streak struct {
	Count int     `json:"count"`
	Type  Outcome `json:"type"`
}

// Stats describes the window a decision was based on.
type Stats struct {
	Accuracy     float64 `json:"accuracy"`
	CorrectCount int     `json:"correctCount"`
	TotalCount   int     `json:"totalCount"`
	Streak       Streak  `json:"streak"`
}

// Decision is the engine's answer to "should the level change?".
// Err is set when the decision is a degraded fallback.
type Decision struct {
	ShouldAdjust  bool       `json:"shouldAdjust"`
	NewDifficulty Difficulty `json:"newDifficulty"`
	Reason        string     `json:"reason"`
	Confidence    float64    `json:"confidence"`
	Stats         *Stats     `json:"stats,omitempty"`
	Err           error      `json:"-"`
}

// Decide applies the decision table to outcomes, newest first. Only the
// first p.WindowSize outcomes are considered. The first matching rule wins.
func Decide(outcomes []bool, current Difficulty, p Policy) Decision {
	if len(outcomes) > p.WindowSize {
		outcomes = outcomes[:p.WindowSize]
	}
	n := len(outcomes)

	if n < p.MinQuestions {
		return Decision{
			NewDifficulty: current,
			Reason:        needMore(p.MinQuestions - n),
			Confidence:    float64(n) / float64(p.MinQuestions),
		}
	}

	correct := 0
	for _, ok := range outcomes {
		if ok {
			correct++
		}
	}
	accuracy := float64(correct*100) / float64(p.WindowSize)
	streak := streakOf(outcomes)

	d := Decision{
		NewDifficulty: current,
		Confidence:    math.Min(float64(n)/float64(p.WindowSize), 1),
		Stats: &Stats{
			Accuracy:     math.Round(accuracy*100) / 100,
			CorrectCount: correct,
			TotalCount:   n,
			Streak:       streak,
		},
	}

	switch {
	case accuracy >= p.PromoteAt && current != Hard:
		d.move(current.Up(), fmt.Sprintf("accuracy %.0f%% is high, moving up to %s", accuracy, current.Up()))
	case accuracy >= p.PromoteEasyAt && current == Easy:
		d.move(Medium, fmt.Sprintf("accuracy %.0f%% on easy, moving up to medium", accuracy))
	case accuracy < p.DemoteBelow && current != Easy:
		d.move(current.Down(), fmt.Sprintf("accuracy %.0f%% is low, moving down to %s", accuracy, current.Down()))
	case accuracy < p.DemoteMediumBelow && current == Medium:
		d.move(Easy, fmt.Sprintf("accuracy %.0f%% on medium, moving down to easy", accuracy))
	case streak.Type == Incorrect && streak.Count >= p.IncorrectStreak && current != Easy:
		d.move(current.Down(), fmt.Sprintf("%d incorrect in a row, moving down to %s", streak.Count, current.Down()))
	default:
		d.Reason = fmt.Sprintf("accuracy %.0f%%, staying at %s", accuracy, current)
	}
	return d
}

func (d *Decision) move(to Difficulty, reason string) {
	d.ShouldAdjust = true
	d.NewDifficulty = to
	d.Reason = reason
}

func streakOf(outcomes []bool) Streak {
	if len(outcomes) == 0 {
		return Streak{}
	}
	first := outcomes[0]
	count := 0
	for _, ok := range outcomes {
		if ok != first {
			break
		}
		count++
	}
	typ := Incorrect
	if first {
		typ = Correct
	}
	return Streak{Count: count, Type: typ}
}

func needMore(k int) string {
	if k == 1 {
		return "need 1 more answer"
	}
	return fmt.Sprintf("need %d more answers", k)
}
