package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/config"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
)

// FileValidator checks the files and directories the load pipeline reads
// and writes
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: infrastructure.WithComponent(logger, "file_validator"),
	}
}

// ValidateDataDirectory ensures dir exists or can be created and is writable,
// since discovered locations and local copies are persisted there
func (v *FileValidator) ValidateDataDirectory(dir string) error {
	if dir == "" {
		return fmt.Errorf("data directory is not configured")
	}

	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		v.logger.Error("Data path is not a directory", slog.String("path", dir))
		return fmt.Errorf("%s is not a directory", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create data directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("Data directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("data directory %s is not writable: %w", dir, err)
	}
	tmp.Close()
	os.Remove(tmp.Name())

	v.logger.Debug("Data directory validated", slog.String("directory", dir))
	return nil
}

// ValidateFile checks that path exists, is a regular file and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateWorkbook checks the bundled spreadsheet
func (v *FileValidator) ValidateWorkbook(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" {
		return fmt.Errorf("file %s is not an xlsx workbook (extension: %s)", path, ext)
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}
	return nil
}

// CountDatasetFiles counts the local dataset copies in dir
func (v *FileValidator) CountDatasetFiles(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	count := 0
	for _, match := range matches {
		if match == "" || strings.HasPrefix(filepath.Base(match), ".") {
			continue
		}
		if info, err := os.Stat(match); err == nil && !info.IsDir() {
			count++
		}
	}
	return count, nil
}

// CheckPaths validates every configured path and joins the problems found.
// A missing bundled workbook only matters when the bundled fallback is on.
func (v *FileValidator) CheckPaths(paths config.PathsConfig, features config.FeaturesConfig) error {
	var errs []error

	if err := v.ValidateDataDirectory(paths.DataDir); err != nil {
		errs = append(errs, err)
	} else if n, err := v.CountDatasetFiles(paths.DataDir); err == nil {
		v.logger.Info("Data directory validated",
			slog.String("directory", paths.DataDir),
			slog.Int("local_datasets", n))
	}

	if features.BundledFallback && paths.BundledWorkbook != "" {
		if err := v.ValidateWorkbook(paths.BundledWorkbook); err != nil {
			errs = append(errs, fmt.Errorf("bundled fallback: %w", err))
		}
	}

	if paths.RulesFile != "" {
		if err := v.ValidateFile(paths.RulesFile); err != nil {
			errs = append(errs, fmt.Errorf("column rules: %w", err))
		}
	}

	if paths.LocationsFile != "" {
		if err := v.ValidateDataDirectory(filepath.Dir(paths.LocationsFile)); err != nil {
			errs = append(errs, fmt.Errorf("locations file: %w", err))
		}
	}

	return errors.Join(errs...)
}
