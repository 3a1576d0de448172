// Package difficulty decides when a learner should move between difficulty
// levels, based on a short window of their most recent answers.
package difficulty

import (
	"errors"
	"fmt"
	"strings"
)

// Difficulty is an ordered level: Easy < Medium < Hard.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var (
	// ErrInvalidInput marks requests rejected before any write.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable marks requests that failed on a store read or write.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Parse accepts a level name in any case.
func Parse(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidInput, s)
	}
	return d, nil
}

// Valid reports whether d is one of the three levels.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// Up returns the next harder level, or d itself at Hard.
func (d Difficulty) Up() Difficulty {
	switch d {
	case Easy:
		return Medium
	case Medium:
		return Hard
	}
	return d
}

// Down returns the next easier level, or d itself at Easy.
func (d Difficulty) Down() Difficulty {
	switch d {
	case Hard:
		return Medium
	case Medium:
		return Easy
	}
	return d
}

func (d Difficulty) String() string {
	return string(d)
}
