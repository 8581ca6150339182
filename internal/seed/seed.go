// Package seed loads directory snapshots from YAML documents and XLSX workbooks.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/chotto/internal/models"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor XLSX.
var ErrUnsupportedFormat = errors.New("seed: unsupported file format")

// Importer stores a snapshot. storage.Storage implements it.
type Importer interface {
	ImportSnapshot(ctx context.Context, snap *models.DirectorySnapshot) error
}

// Load reads the snapshot at path, choosing the parser by extension
// (.yaml, .yml or .xlsx).
func Load(path string) (*models.DirectorySnapshot, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		return ParseYAML(data)
	case ".xlsx":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open seed file: %w", err)
		}
		defer f.Close()
		return ParseXLSX(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Import loads path and stores it. Rows are upserted by id, so importing the
// same file twice leaves the directory unchanged.
func Import(ctx context.Context, dst Importer, path string) (*models.DirectorySnapshot, error) {
	snap, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := validate(snap); err != nil {
		return nil, err
	}
	if err := dst.ImportSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}
	return snap, nil
}

// validate rejects rows without ids; references between tables are not checked
// because search already treats dangling ids as misses.
func validate(snap *models.DirectorySnapshot) error {
	for _, d := range snap.Departments {
		if d.ID <= 0 {
			return fmt.Errorf("department %q has no id", d.Name)
		}
	}
	for _, u := range snap.Users {
		if u.ID <= 0 {
			return fmt.Errorf("user %q has no id", u.Name)
		}
	}
	for _, s := range snap.Skills {
		if s.ID <= 0 {
			return fmt.Errorf("skill %q has no id", s.Name)
		}
	}
	for _, a := range snap.Assignments {
		if a.UserID <= 0 || a.SkillID <= 0 {
			return fmt.Errorf("assignment %d needs user_id and skill_id", a.ID)
		}
	}
	return nil
}
