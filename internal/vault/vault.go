// Package vault manages the on-disk note vault: the directory layout,
// filename slugs, and the write primitives that keep note files and the
// index snapshot crash-safe.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Layout directories created under the vault root. Note documents are
// projections of the index; audio and transcripts are inputs kept alongside.
var LayoutDirs = []string{
	"audio",
	"transcripts",
	"sessions",
	"characters",
	"locations",
	"factions",
	"events",
}

// IndexSnapshotFile is the JSON snapshot of the whole campaign index,
// exported after every successful merge.
const IndexSnapshotFile = "index.json"

// DatabaseFile is the SQLite campaign index at the vault root.
const DatabaseFile = "campaign.db"

// Vault is a rooted note vault.
type Vault struct {
	Root string
}

// New returns a vault rooted at dir. The directory need not exist yet.
func New(dir string) *Vault {
	return &Vault{Root: dir}
}

// EnsureLayout creates the expected folder structure if missing.
func (v *Vault) EnsureLayout() error {
	for _, dir := range LayoutDirs {
		if err := os.MkdirAll(filepath.Join(v.Root, dir), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the campaign index database location.
func (v *Vault) DatabasePath() string {
	return filepath.Join(v.Root, DatabaseFile)
}

// SnapshotPath returns the index snapshot location.
func (v *Vault) SnapshotPath() string {
	return filepath.Join(v.Root, IndexSnapshotFile)
}

// SessionNotePath returns the note document path for a session slug.
func (v *Vault) SessionNotePath(slug string) string {
	return filepath.Join(v.Root, "sessions", slug+".md")
}

// EntityNotePath returns the note document path for an entity within its
// category directory.
func (v *Vault) EntityNotePath(categoryDir, name string) string {
	return filepath.Join(v.Root, categoryDir, NoteFilename(name))
}

// Slugify converts user-facing text into a stable filename slug: runs of
// non-alphanumeric characters become single dashes, everything lowercased.
// Empty input falls back to "untitled".
func Slugify(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	lastWasDash := true // trim leading dashes
	for _, r := range strings.TrimSpace(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			lastWasDash = false
			continue
		}
		if !lastWasDash {
			b.WriteByte('-')
			lastWasDash = true
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// NoteFilename builds a stable markdown filename from entity title text.
func NoteFilename(value string) string {
	return Slugify(value) + ".md"
}

// SessionSlug derives the session note slug from date and title. The date
// prefix keeps chronological listing stable even when titles repeat.
func SessionSlug(date, title string) string {
	return Slugify(date + " " + title)
}
