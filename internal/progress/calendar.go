package progress

import "time"

// CalendarDay is one cell of the monthly activity calendar.
type CalendarDay struct {
	Date      string `json:"date"`
	Day       int    `json:"day"`
	Practiced bool   `json:"practiced"`
	Today     bool   `json:"today"`
}

// Calendar is a month of practice activity. Offset is the number of empty
// cells before the first day in a Sunday-first week grid.
type Calendar struct {
	Year          int           `json:"year"`
	Month         time.Month    `json:"month"`
	Offset        int           `json:"offset"`
	Days          []CalendarDay `json:"days"`
	PracticedDays int           `json:"practiced_days"`
}

// MonthCalendar lays out year/month with the practice dates of s marked.
func MonthCalendar(s State, year int, month time.Month, today string) Calendar {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysIn := first.AddDate(0, 1, -1).Day()

	cal := Calendar{
		Year:   first.Year(),
		Month:  first.Month(),
		Offset: int(first.Weekday()),
		Days:   make([]CalendarDay, 0, daysIn),
	}
	for d := 1; d <= daysIn; d++ {
		date := first.AddDate(0, 0, d-1).Format(DateLayout)
		practiced := s.PracticedOn(date)
		if practiced {
			cal.PracticedDays++
		}
		cal.Days = append(cal.Days, CalendarDay{
			Date:      date,
			Day:       d,
			Practiced: practiced,
			Today:     date == today,
		})
	}
	return cal
}

// ParseMonth parses "YYYY-MM". Empty input yields the month of today.
func ParseMonth(raw string, today time.Time) (int, time.Month, error) {
	if raw == "" {
		return today.Year(), today.Month(), nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}
