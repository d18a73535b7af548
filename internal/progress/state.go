package progress

import (
	"encoding/json"
	"slices"
	"sort"
)

// State is the persisted progress of one identity.
type State struct {
	CompletedTitles []string `json:"completedTitles"`
	StreakCount     int      `json:"streakCount"`
	LastVisitDate   *string  `json:"lastVisitDate"`
	PracticeDates   []string `json:"practiceDates"`
}

// NewState returns the empty state.
func NewState() State {
	return State{
		CompletedTitles: []string{},
		PracticeDates:   []string{},
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{
		CompletedTitles: append([]string{}, s.CompletedTitles...),
		StreakCount:     s.StreakCount,
		PracticeDates:   append([]string{}, s.PracticeDates...),
	}
	if s.LastVisitDate != nil {
		d := *s.LastVisitDate
		out.LastVisitDate = &d
	}
	return out
}

// IsCompleted reports whether title is in the completed set.
func (s State) IsCompleted(title string) bool {
	return slices.Contains(s.CompletedTitles, title)
}

// PracticedOn reports whether day is a practice date.
func (s State) PracticedOn(day string) bool {
	return slices.Contains(s.PracticeDates, day)
}

// EvaluateStreak advances the streak for today. It reports whether the
// state changed; a second call on the same day never does.
func EvaluateStreak(s State, today string) (State, bool) {
	if s.LastVisitDate != nil && *s.LastVisitDate == today {
		return s, false
	}

	next := s.Clone()
	if s.LastVisitDate != nil && *s.LastVisitDate == previousDay(today) {
		next.StreakCount = s.StreakCount + 1
	} else {
		next.StreakCount = 1
	}
	next.LastVisitDate = &today
	return next, true
}

// ToggleCompletion flips title's membership and reports whether it is now
// completed. Completing adds today to the practice dates; un-completing
// leaves them alone.
func ToggleCompletion(s State, title, today string) (State, bool) {
	next := s.Clone()

	if i := slices.Index(next.CompletedTitles, title); i >= 0 {
		next.CompletedTitles = slices.Delete(next.CompletedTitles, i, i+1)
		return next, false
	}

	next.CompletedTitles = append(next.CompletedTitles, title)
	if !next.PracticedOn(today) {
		next.PracticeDates = append(next.PracticeDates, today)
	}
	return next, true
}

// Merge folds src into dst. Titles keep dst order followed by titles only
// src had. Practice dates are unioned. The streak pair is taken whole from
// whichever side visited last, preferring the longer streak on a tie.
func Merge(dst, src State) State {
	out := dst.Clone()

	for _, title := range src.CompletedTitles {
		if !out.IsCompleted(title) {
			out.CompletedTitles = append(out.CompletedTitles, title)
		}
	}

	for _, day := range src.PracticeDates {
		if !out.PracticedOn(day) {
			out.PracticeDates = append(out.PracticeDates, day)
		}
	}
	sort.Strings(out.PracticeDates)

	if takeStreakFrom(src, dst) {
		out.StreakCount = src.StreakCount
		out.LastVisitDate = nil
		if src.LastVisitDate != nil {
			d := *src.LastVisitDate
			out.LastVisitDate = &d
		}
	}
	return out
}

func takeStreakFrom(src, dst State) bool {
	switch {
	case src.LastVisitDate == nil:
		return false
	case dst.LastVisitDate == nil:
		return true
	case *src.LastVisitDate != *dst.LastVisitDate:
		return *src.LastVisitDate > *dst.LastVisitDate
	default:
		return src.StreakCount > dst.StreakCount
	}
}

// legacyState is the shape written by the original browser client.
type legacyState struct {
	CompletedProblems []string `json:"completedProblems"`
	Streak            int      `json:"streak"`
	LastVisit         *string  `json:"lastVisit"`
}

// Encode serializes the state.
func Encode(s State) ([]byte, error) {
	if s.CompletedTitles == nil {
		s.CompletedTitles = []string{}
	}
	if s.PracticeDates == nil {
		s.PracticeDates = []string{}
	}
	return json.Marshal(s)
}

// Decode parses a stored blob. Dates in the legacy browser form are
// rewritten, unreadable dates are dropped, and duplicate titles collapse.
// Blobs written by the browser client (completedProblems/streak/lastVisit)
// are read as well.
func Decode(data []byte) (State, error) {
	var raw struct {
		State
		legacyState
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewState(), err
	}

	s := raw.State
	if s.CompletedTitles == nil && raw.CompletedProblems != nil {
		s.CompletedTitles = raw.CompletedProblems
		s.StreakCount = raw.Streak
		s.LastVisitDate = raw.LastVisit
	}

	out := NewState()
	for _, title := range s.CompletedTitles {
		if title != "" && !out.IsCompleted(title) {
			out.CompletedTitles = append(out.CompletedTitles, title)
		}
	}
	for _, d := range s.PracticeDates {
		if day, ok := normalizeDate(d); ok && !out.PracticedOn(day) {
			out.PracticeDates = append(out.PracticeDates, day)
		}
	}

	if s.LastVisitDate != nil {
		if day, ok := normalizeDate(*s.LastVisitDate); ok {
			out.LastVisitDate = &day
			out.StreakCount = max(s.StreakCount, 0)
		}
	}
	return out, nil
}
