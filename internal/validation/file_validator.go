package validation

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"companywise/internal/problems"
)

// companiesFile mirrors datasource.CompaniesFile without importing it.
const companiesFile = "companies.json"

// ErrNoCompanies is returned when a data directory holds no company tables.
var ErrNoCompanies = errors.New("data directory contains no company tables")

// DataDirReport summarizes what a local data directory provides.
type DataDirReport struct {
	Dir       string
	HasIndex  bool
	Companies int
	// Tables counts window files found across all companies.
	Tables int
	// Missing lists "company/file" pairs absent for indexed companies.
	Missing []string
}

// FileValidator checks the filesystem locations the program reads and writes.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateDataDirectory checks that dir is a company-wise data checkout:
// either companies.json or company subdirectories holding window tables.
func (v *FileValidator) ValidateDataDirectory(dir string) (DataDirReport, error) {
	report := DataDirReport{Dir: dir}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Warn("Data directory does not exist", slog.String("directory", dir))
		return report, fmt.Errorf("data directory %s does not exist", dir)
	}
	if err != nil {
		return report, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("%s is not a directory", dir)
	}

	companies, hasIndex, err := v.listCompanies(dir)
	if err != nil {
		return report, err
	}
	report.HasIndex = hasIndex

	for _, company := range companies {
		found := 0
		for _, w := range problems.Windows() {
			if fileExists(filepath.Join(dir, company, w.FileName)) {
				found++
				continue
			}
			if hasIndex {
				report.Missing = append(report.Missing, company+"/"+w.FileName)
			}
		}
		if found > 0 {
			report.Companies++
			report.Tables += found
		}
	}

	if report.Companies == 0 {
		v.logger.Warn("No company tables found", slog.String("directory", dir))
		return report, fmt.Errorf("%w: %s", ErrNoCompanies, dir)
	}

	v.logger.Info("Data directory validated",
		slog.String("directory", dir),
		slog.Bool("has_index", report.HasIndex),
		slog.Int("companies", report.Companies),
		slog.Int("tables", report.Tables),
		slog.Int("missing", len(report.Missing)))
	return report, nil
}

func (v *FileValidator) listCompanies(dir string) ([]string, bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, companiesFile))
	if err == nil {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, true, fmt.Errorf("invalid %s: %w", companiesFile, err)
		}
		return names, true, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, false, nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateTableFile checks that path is a readable .csv whose header row has
// at least problems.MinFields columns.
func (v *FileValidator) ValidateTableFile(path string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return fmt.Errorf("file %s is not a CSV file (extension: %s)", path, ext)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		return fmt.Errorf("file %s is empty", path)
	}
	if cols := len(strings.Split(scanner.Text(), ",")); cols < problems.MinFields {
		v.logger.Warn("Table header too short",
			slog.String("file", path),
			slog.Int("columns", cols))
		return fmt.Errorf("file %s has %d header columns, want at least %d", path, cols, problems.MinFields)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
