package problems

// ViewState holds the user controls applied to a loaded table.
type ViewState struct {
	Difficulty Difficulty `json:"difficulty"`
	Search     string     `json:"search"`
	Sort       SortState  `json:"sort"`
}

// DefaultViewState is the state after a company is selected.
func DefaultViewState() ViewState {
	return ViewState{Difficulty: All, Sort: SortState{Ascending: true}}
}

// View is the displayable result of applying a ViewState.
type View struct {
	Records []Record `json:"records"`
	// Total is the number of parsed records before filtering.
	Total int `json:"total"`
}

// Count is the number of records shown.
func (v View) Count() int {
	return len(v.Records)
}

// Apply filters then sorts records according to the view state.
func (s ViewState) Apply(records []Record) View {
	filtered := Filter(records, s.Difficulty, s.Search)
	if s.Sort.Column != ColumnNone {
		filtered = Sort(filtered, s.Sort.Column, s.Sort.Ascending)
	}
	return View{Records: filtered, Total: len(records)}
}
