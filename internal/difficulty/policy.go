package difficulty

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the window sizes and thresholds used by Decide and Recommend.
// Thresholds are percentages in [0, 100].
type Policy struct {
	WindowSize      int `yaml:"window_size"`
	MinQuestions    int `yaml:"min_questions"`
	RecommendWindow int `yaml:"recommend_window"`

	PromoteAt         float64 `yaml:"promote_at"`          // any level below hard moves up
	PromoteEasyAt     float64 `yaml:"promote_easy_at"`     // easy moves to medium
	DemoteBelow       float64 `yaml:"demote_below"`        // any level above easy moves down
	DemoteMediumBelow float64 `yaml:"demote_medium_below"` // medium moves to easy
	IncorrectStreak   int     `yaml:"incorrect_streak"`

	RecommendHardAt   float64 `yaml:"recommend_hard_at"`
	RecommendMediumAt float64 `yaml:"recommend_medium_at"`
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		WindowSize:        5,
		MinQuestions:      3,
		RecommendWindow:   10,
		PromoteAt:         85,
		PromoteEasyAt:     70,
		DemoteBelow:       40,
		DemoteMediumBelow: 50,
		IncorrectStreak:   3,
		RecommendHardAt:   85,
		RecommendMediumAt: 60,
	}
}

// LoadPolicy reads a YAML file over the defaults. Keys missing from the
// file keep their default values.
func LoadPolicy(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate checks that sizes are positive and thresholds are ordered.
func (p Policy) Validate() error {
	switch {
	case p.WindowSize <= 0:
		return fmt.Errorf("policy: window_size must be positive")
	case p.MinQuestions <= 0 || p.MinQuestions > p.WindowSize:
		return fmt.Errorf("policy: min_questions must be in [1, window_size]")
	case p.RecommendWindow <= 0:
		return fmt.Errorf("policy: recommend_window must be positive")
	case p.IncorrectStreak <= 0:
		return fmt.Errorf("policy: incorrect_streak must be positive")
	}
	for name, v := range map[string]float64{
		"promote_at":          p.PromoteAt,
		"promote_easy_at":     p.PromoteEasyAt,
		"demote_below":        p.DemoteBelow,
		"demote_medium_below": p.DemoteMediumBelow,
		"recommend_hard_at":   p.RecommendHardAt,
		"recommend_medium_at": p.RecommendMediumAt,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("policy: %s must be in [0, 100], got %v", name, v)
		}
	}
	if p.DemoteBelow > p.DemoteMediumBelow {
		return fmt.Errorf("policy: demote_below must not exceed demote_medium_below")
	}
	if p.RecommendMediumAt > p.RecommendHardAt {
		return fmt.Errorf("policy: recommend_medium_at must not exceed recommend_hard_at")
	}
	return nil
}
