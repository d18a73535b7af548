package datasource

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"companywise/internal/problems"
)

// CompaniesFile is the company index at the root of the data directory.
const CompaniesFile = "companies.json"

// FileSource reads a local checkout of the company-wise data repository.
type FileSource struct {
	root string
}

func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

// Companies reads companies.json. Without it, every non-hidden
// subdirectory of the root is taken as a company.
func (s *FileSource) Companies(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, CompaniesFile))
	if err == nil {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return nil, unavailable("decode %s: %v", CompaniesFile, err)
		}
		return sortedCopy(names), nil
	}
	if !os.IsNotExist(err) {
		return nil, unavailable("read %s: %v", CompaniesFile, err)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, unavailable("read data directory: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, unavailable("no companies under %s", s.root)
	}
	return sortedCopy(names), nil
}

func (s *FileSource) Table(ctx context.Context, company string, window problems.Window) ([]byte, error) {
	if err := ValidateCompany(company); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, company, window.FileName))
	if err != nil {
		return nil, unavailable("%s/%s: %v", company, window.FileName, err)
	}
	return data, nil
}
