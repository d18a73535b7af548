package problems

import (
	"fmt"
	"strings"
)

// Window is a fixed recency bucket selecting which frequency table applies.
type Window struct {
	ID       string `json:"id"`
	Ordinal  int    `json:"ordinal"`
	Label    string `json:"label"`
	FileName string `json:"file_name"`
}

var (
	ThirtyDays        = Window{ID: "thirty-days", Ordinal: 1, Label: "Thirty Days", FileName: "1. Thirty Days.csv"}
	ThreeMonths       = Window{ID: "three-months", Ordinal: 2, Label: "Three Months", FileName: "2. Three Months.csv"}
	SixMonths         = Window{ID: "six-months", Ordinal: 3, Label: "Six Months", FileName: "3. Six Months.csv"}
	MoreThanSixMonths = Window{ID: "more-than-six-months", Ordinal: 4, Label: "More Than Six Months", FileName: "4. More Than Six Months.csv"}
	AllTime           = Window{ID: "all", Ordinal: 5, Label: "All", FileName: "5. All.csv"}
)

// DefaultWindow is selected whenever a company is (re)selected.
var DefaultWindow = ThirtyDays

// Windows returns the five windows in ordinal order.
func Windows() []Window {
	return []Window{ThirtyDays, ThreeMonths, SixMonths, MoreThanSixMonths, AllTime}
}

// ParseWindow resolves a window by id, ordinal ("1".."5") or label.
// Empty input resolves to DefaultWindow.
func ParseWindow(raw string) (Window, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultWindow, nil
	}
	for _, w := range Windows() {
		if strings.EqualFold(raw, w.ID) ||
			raw == fmt.Sprint(w.Ordinal) ||
			strings.EqualFold(raw, w.Label) {
			return w, nil
		}
	}
	return Window{}, fmt.Errorf("unknown window %q", raw)
}

func (w Window) String() string {
	return w.ID
}
