package problems

import "strings"

// Record is one interview question for a company/window table.
type Record struct {
	Difficulty     Difficulty `json:"difficulty"`
	Title          string     `json:"title"`
	Frequency      float64    `json:"frequency"`
	AcceptanceRate float64    `json:"acceptance_rate"`
	Link           string     `json:"link"`
	Topics         []string   `json:"topics"`

	// topicsRaw is the topics cell as it appeared in the table.
	topicsRaw string
}

// searchText is the haystack for free-text search: title, a space, then
// the topics cell as written in the source table. Records built outside
// the parser fall back to the topics joined with ", ".
func (r Record) searchText() string {
	topics := r.topicsRaw
	if topics == "" {
		topics = strings.Join(r.Topics, ", ")
	}
	return strings.ToLower(r.Title + " " + topics)
}
