package problems

import "strings"

// Filter keeps the records matching both the difficulty filter and the
// search term. All disables the difficulty check and an empty term
// disables the search check. The term is matched as given, surrounding
// whitespace included. The input slice is not modified.
func Filter(records []Record, difficulty Difficulty, search string) []Record {
	term := strings.ToLower(search)

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if difficulty != All && difficulty != "" && r.Difficulty != difficulty {
			continue
		}
		if term != "" && !strings.Contains(r.searchText(), term) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterCompanies returns the names containing term, case-insensitively,
// in their input order. Like Filter, the term is not trimmed.
func FilterCompanies(companies []string, term string) []string {
	term = strings.ToLower(term)
	out := make([]string, 0, len(companies))
	for _, c := range companies {
		if term == "" || strings.Contains(strings.ToLower(c), term) {
			out = append(out, c)
		}
	}
	return out
}
