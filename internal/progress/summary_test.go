package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companywise/internal/problems"
)

func TestSummarize(t *testing.T) {
	records := []problems.Record{
		{Difficulty: problems.Easy, Title: "A"},
		{Difficulty: problems.Easy, Title: "B"},
		{Difficulty: problems.Medium, Title: "C"},
		{Difficulty: problems.Hard, Title: "D"},
	}
	s := State{CompletedTitles: []string{"A", "C", "Elsewhere"}, StreakCount: 3}

	sum := Summarize(records, s)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Solved)
	assert.Equal(t, 50.0, sum.Percent)
	assert.Equal(t, 3, sum.Streak)
	assert.Equal(t, Tally{Total: 2, Solved: 1}, sum.ByDifficulty[problems.Easy])
	assert.Equal(t, Tally{Total: 1, Solved: 1}, sum.ByDifficulty[problems.Medium])
	assert.Equal(t, Tally{Total: 1, Solved: 0}, sum.ByDifficulty[problems.Hard])
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil, NewState())
	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.Percent)
	assert.Len(t, sum.ByDifficulty, 3)
}

func TestMonthCalendar(t *testing.T) {
	s := State{PracticeDates: []string{"2026-10-01", "2026-10-19", "2026-09-30"}}

	cal := MonthCalendar(s, 2026, time.October, "2026-10-19")
	assert.Equal(t, 2026, cal.Year)
	assert.Equal(t, time.October, cal.Month)
	assert.Equal(t, int(time.Thursday), cal.Offset)
	require.Len(t, cal.Days, 31)
	assert.Equal(t, 2, cal.PracticedDays)

	assert.True(t, cal.Days[0].Practiced)
	assert.Equal(t, "2026-10-01", cal.Days[0].Date)
	assert.True(t, cal.Days[18].Practiced)
	assert.True(t, cal.Days[18].Today)
	assert.False(t, cal.Days[1].Practiced)
}

func TestMonthCalendar_LeapFebruary(t *testing.T) {
	cal := MonthCalendar(NewState(), 2028, time.February, "")
	assert.Len(t, cal.Days, 29)
}

func TestParseMonth(t *testing.T) {
	today := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	y, m, err := ParseMonth("", today)
	require.NoError(t, err)
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.October, m)

	y, m, err = ParseMonth("2025-02", today)
	require.NoError(t, err)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.February, m)

	_, _, err = ParseMonth("February", today)
	assert.Error(t, err)
}
