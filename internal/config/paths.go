package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved, absolute file system locations used at runtime.
type Paths struct {
	BaseDir    string
	DataDir    string
	StoreDir   string
	ExportsDir string
	LogsDir    string
	WebDir     string
}

// ResolvePaths turns the configured directories into absolute paths.
// Relative entries are joined onto Paths.BaseDir, which defaults to the
// current working directory.
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:    base,
		DataDir:    resolve(c.Data.Dir),
		StoreDir:   resolve(c.Storage.Path),
		ExportsDir: resolve(c.Paths.ExportsDir),
		LogsDir:    resolve(c.Paths.LogsDir),
		WebDir:     resolve(c.Paths.WebDir),
	}, nil
}

// EnsureDirectories creates the writable directories. The data directory is
// read-only input and is not created.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ExportsDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// ExportPath returns the location of an export file.
func (p *Paths) ExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
