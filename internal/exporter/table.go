package exporter

import (
	"io"
	"strings"

	"companywise/internal/problems"
)

// Headers are the exported columns in order.
var Headers = []string{"Difficulty", "Title", "Frequency", "Acceptance Rate", "Link", "Topics", "Completed"}

// Row is one exported problem.
type Row struct {
	Record    problems.Record
	Completed bool
}

// Table is an export-ready view.
type Table struct {
	Company string
	Window  string
	Rows    []Row
}

// NewTable joins the view rows with their completion flags.
func NewTable(company, window string, view problems.View, completed func(title string) bool) Table {
	rows := make([]Row, 0, len(view.Records))
	for _, r := range view.Records {
		rows = append(rows, Row{Record: r, Completed: completed != nil && completed(r.Title)})
	}
	return Table{Company: company, Window: window, Rows: rows}
}

// FileName is the suggested download name for the table.
func (t Table) FileName(f Format) string {
	return FileName(t.Company, t.Window, f)
}

// strings renders a row as CSV fields.
func (r Row) strings() []string {
	return []string{
		string(r.Record.Difficulty),
		r.Record.Title,
		formatFloat(r.Record.Frequency),
		formatFloat(r.Record.AcceptanceRate),
		r.Record.Link,
		strings.Join(r.Record.Topics, ", "),
		formatBool(r.Completed),
	}
}

// Write encodes t to w in format f.
func Write(w io.Writer, t Table, f Format) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, t)
	default:
		return WriteCSV(w, t, WriteOptions{BOMPrefix: true})
	}
}
