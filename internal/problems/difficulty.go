package problems

import "strings"

// Difficulty is the canonical upper-case difficulty of a problem.
type Difficulty string

const (
	Easy   Difficulty = "EASY"
	Medium Difficulty = "MEDIUM"
	Hard   Difficulty = "HARD"

	// All is only valid as a filter value.
	All Difficulty = "ALL"
)

// NormalizeDifficulty trims and upper-cases a raw difficulty value.
// Unknown values are kept so they still render; they rank below Easy.
func NormalizeDifficulty(raw string) Difficulty {
	return Difficulty(strings.ToUpper(strings.TrimSpace(raw)))
}

// Rank orders difficulties for sorting. Unknown values rank 0.
func (d Difficulty) Rank() int {
	switch d {
	case Easy:
		return 1
	case Medium:
		return 2
	case Hard:
		return 3
	default:
		return 0
	}
}

// Known reports whether d is one of the three real difficulties.
func (d Difficulty) Known() bool {
	return d.Rank() > 0
}

// ParseDifficultyFilter maps user input to a filter value. Empty input
// means All.
func ParseDifficultyFilter(raw string) (Difficulty, bool) {
	d := NormalizeDifficulty(raw)
	if d == "" {
		return All, true
	}
	if d == All || d.Known() {
		return d, true
	}
	return "", false
}
