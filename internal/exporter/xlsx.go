package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Problems"

// WriteXLSX writes the table as a single-sheet workbook. Numeric columns
// stay numeric so spreadsheet sorting works.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			string(row.Record.Difficulty),
			row.Record.Title,
			row.Record.Frequency,
			row.Record.AcceptanceRate,
			row.Record.Link,
			strings.Join(row.Record.Topics, ", "),
			row.Completed,
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
