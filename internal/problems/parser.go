package problems

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// MinFields is the number of columns a data row must have to be kept.
const MinFields = 6

const maxLineSize = 1024 * 1024

// ParseError reports input that cannot be read as a problem table at all.
type ParseError struct {
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse problems: line %d: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse problems: line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseStats counts what the leniency policies absorbed during a parse.
type ParseStats struct {
	Rows          int `json:"rows"`
	DroppedRows   int `json:"dropped_rows"`
	CoercedFields int `json:"coerced_fields"`
}

// Parse parses a raw problem table.
func Parse(raw string) ([]Record, error) {
	records, _, err := ParseReader(strings.NewReader(raw))
	return records, err
}

// ParseReader parses a problem table from r.
//
// The first non-blank line is the header and is discarded. Data rows with
// fewer than MinFields fields are dropped, and frequency or acceptance
// values that are not numbers become 0. A header with fewer than MinFields
// columns means the payload is not a problem table and yields a
// *ParseError.
func ParseReader(r io.Reader) ([]Record, ParseStats, error) {
	var stats ParseStats
	records := make([]Record, 0)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	headerSeen := false
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := splitFields(line)
		if !headerSeen {
			headerSeen = true
			if len(fields) < MinFields {
				return nil, stats, &ParseError{
					Line:   lineNo,
					Reason: fmt.Sprintf("header has %d columns, want at least %d", len(fields), MinFields),
				}
			}
			continue
		}

		if len(fields) < MinFields {
			stats.DroppedRows++
			continue
		}

		freq, ok := parseNumber(fields[2])
		if !ok {
			stats.CoercedFields++
		}
		acceptance, ok := parseNumber(fields[3])
		if !ok {
			stats.CoercedFields++
		}

		records = append(records, Record{
			Difficulty:     NormalizeDifficulty(fields[0]),
			Title:          fields[1],
			Frequency:      freq,
			AcceptanceRate: acceptance,
			Link:           fields[4],
			Topics:         splitTopics(fields[5]),
			topicsRaw:      fields[5],
		})
		stats.Rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, &ParseError{Line: lineNo + 1, Reason: "read failed", Err: err}
	}

	return records, stats, nil
}

// splitFields splits one line on commas outside double quotes. Quote
// characters toggle the quoted state and are dropped from the value;
// a doubled quote is not an escape.
func splitFields(line string) []string {
	fields := make([]string, 0, MinFields)
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

func splitTopics(raw string) []string {
	topics := make([]string, 0)
	if raw == "" {
		return topics
	}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// parseNumber reports false when the value was coerced to 0.
func parseNumber(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
