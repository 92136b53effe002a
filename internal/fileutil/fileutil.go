package fileutil

import (
	"errors"
	"fmt"
	"os"
)

// BackupPath is the sibling that keeps an original replaced by Promote.
func BackupPath(path string) string {
	return path + ".bak"
}

// Promote renames each staged sibling over its original. staged maps an
// original path to the path of its replacement. Every staged file must
// exist before anything is renamed. With backup set, an existing original is
// first moved to BackupPath, replacing any earlier backup.
func Promote(staged map[string]string, backup bool) error {
	for original, replacement := range staged {
		info, err := os.Stat(replacement)
		if err != nil {
			return fmt.Errorf("promote %s: staged file: %w", original, err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("promote %s: staged file %s is not a regular file", original, replacement)
		}
	}

	for original, replacement := range staged {
		if backup {
			if err := os.Rename(original, BackupPath(original)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("back up %s: %w", original, err)
			}
		}
		if err := os.Rename(replacement, original); err != nil {
			return fmt.Errorf("promote %s: %w", original, err)
		}
	}
	return nil
}

// RemoveAll deletes every path, ignoring ones that do not exist, and
// returns the joined errors of the rest.
func RemoveAll(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
