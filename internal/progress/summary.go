package progress

import "companywise/internal/problems"

// Tally counts problems and how many of them are completed.
type Tally struct {
	Total  int `json:"total"`
	Solved int `json:"solved"`
}

// Summary is the progress overview for one problem list.
type Summary struct {
	Tally
	Percent      float64                       `json:"percent"`
	ByDifficulty map[problems.Difficulty]Tally `json:"by_difficulty"`
	Streak       int                           `json:"streak"`
}

// Summarize tallies records against the completed set in s.
func Summarize(records []problems.Record, s State) Summary {
	sum := Summary{
		ByDifficulty: map[problems.Difficulty]Tally{
			problems.Easy:   {},
			problems.Medium: {},
			problems.Hard:   {},
		},
		Streak: s.StreakCount,
	}

	completed := make(map[string]struct{}, len(s.CompletedTitles))
	for _, title := range s.CompletedTitles {
		completed[title] = struct{}{}
	}

	for _, r := range records {
		_, done := completed[r.Title]
		sum.Total++
		if done {
			sum.Solved++
		}
		if !r.Difficulty.Known() {
			continue
		}
		t := sum.ByDifficulty[r.Difficulty]
		t.Total++
		if done {
			t.Solved++
		}
		sum.ByDifficulty[r.Difficulty] = t
	}

	if sum.Total > 0 {
		sum.Percent = float64(sum.Solved) / float64(sum.Total) * 100
	}
	return sum
}
