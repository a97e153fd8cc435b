package vault

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// WriteAtomic writes data so readers never observe a half-written file:
// the content goes to a temp file next to the target, then replaces it with
// a rename. Used for the index snapshot, the authoritative recovery point.
func WriteAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// WriteIfChanged writes data only when the target content differs.
// Returns true when a write happened. Keeps regenerated note files from
// thrashing modification times and version control.
func WriteIfChanged(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read existing: %w", err)
	}
	if err := WriteAtomic(path, data); err != nil {
		return false, err
	}
	return true, nil
}
