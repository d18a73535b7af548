package exporter

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("exporter: unknown format")

// ParseFormat accepts "csv" or "xlsx" in any case. Empty means CSV.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

// ContentType is the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// FileName builds a download name such as "google-thirty-days.csv".
func FileName(company, window string, f Format) string {
	base := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(company+"-"+window), "-"), "-")
	if base == "" {
		base = "problems"
	}
	return base + "." + string(f)
}

// formatFloat formats with exactly 2 decimal places so 13.4 exports as 13.40.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
