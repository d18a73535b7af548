package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"companywise/internal/config"
	"companywise/internal/problems"
	"companywise/internal/shared/testutil"
)

func sampleTable() Table {
	view := problems.View{
		Records: []problems.Record{
			{Difficulty: problems.Easy, Title: "Two Sum", Frequency: 100, AcceptanceRate: 0.55, Link: "https://leetcode.com/problems/two-sum", Topics: []string{"Array", "Hash Table"}},
			{Difficulty: problems.Hard, Title: "Median, \"of\" Two", Frequency: 42.5, AcceptanceRate: 0.4, Link: "https://leetcode.com/problems/median"},
		},
		Total: 5,
	}
	done := map[string]bool{"Two Sum": true}
	return NewTable("Google", "thirty-days", view, func(title string) bool { return done[title] })
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		raw     string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" xlsx ", FormatXLSX, false},
		{"excel", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseFormat(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "google-thirty-days.csv", FileName("Google", "thirty-days", FormatCSV))
	assert.Equal(t, "jane-street-all.xlsx", FileName("Jane Street", "all", FormatXLSX))
	assert.Equal(t, "problems.csv", FileName("", "", FormatCSV))
	assert.Contains(t, FormatXLSX.ContentType(), "spreadsheetml")
}

func TestWriteCSV(t *testing.T) {
	t.Run("with BOM and headers", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, sampleTable(), WriteOptions{BOMPrefix: true}))

		data := buf.Bytes()
		require.True(t, bytes.HasPrefix(data, utf8BOM))

		rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, Headers, rows[0])
		assert.Equal(t, []string{"EASY", "Two Sum", "100.00", "0.55", "https://leetcode.com/problems/two-sum", "Array, Hash Table", "true"}, rows[1])
		assert.Equal(t, `Median, "of" Two`, rows[2][1])
		assert.Equal(t, "false", rows[2][6])
	})

	t.Run("without headers", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, sampleTable(), WriteOptions{OmitHeaders: true}))
		assert.True(t, strings.HasPrefix(buf.String(), "EASY,Two Sum"))
	})
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleTable(), FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "Two Sum", rows[1][1])
	assert.Equal(t, "HARD", rows[2][0])

	acceptance, err := f.GetCellValue(sheetName, "D2")
	require.NoError(t, err)
	assert.Equal(t, "0.55", acceptance)
}

func TestCSVWriter_WriteFile(t *testing.T) {
	dir := t.TempDir()
	logger, handler := testutil.NewTestLogger(t)
	w := NewCSVWriter(&config.Paths{ExportsDir: filepath.Join(dir, "exports")}, logger)

	path, err := w.WriteFile("", sampleTable(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exports", "google-thirty-days.csv"), path)
	assert.True(t, handler.ContainsMessage("Writing export file"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Two Sum")

	abs := filepath.Join(dir, "elsewhere.xlsx")
	path, err = w.WriteFile(abs, sampleTable(), FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, abs, path)
	assert.FileExists(t, abs)
}
