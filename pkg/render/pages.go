// Package render produces the vault's markdown notes from the index. Notes
// are full regenerations: the index is the source of truth and pages are
// projections, so rendering the same index state twice yields identical
// bytes.
package render

import (
	"path/filepath"
	"sort"

	"github.com/kittclouds/campaignkit/internal/vault"
)

// PageSet collects rendered pages keyed by vault-relative path before they
// touch disk. Keeping the pass in memory means a render failure leaves the
// vault untouched.
type PageSet struct {
	pages map[string][]byte
}

// NewPageSet creates an empty page set.
func NewPageSet() *PageSet {
	return &PageSet{pages: make(map[string][]byte)}
}

// Add stores one rendered page. Later adds for the same path win.
func (ps *PageSet) Add(relPath string, content []byte) {
	ps.pages[relPath] = content
}

// Get retrieves a rendered page, or nil.
func (ps *PageSet) Get(relPath string) []byte {
	return ps.pages[relPath]
}

// Len returns the number of rendered pages.
func (ps *PageSet) Len() int {
	return len(ps.pages)
}

// Paths returns all page paths in sorted order.
func (ps *PageSet) Paths() []string {
	paths := make([]string, 0, len(ps.pages))
	for path := range ps.pages {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// WriteTo writes every page under root, skipping files whose bytes already
// match. Returns how many files changed on disk.
func (ps *PageSet) WriteTo(root string) (int, error) {
	written := 0
	for _, relPath := range ps.Paths() {
		changed, err := vault.WriteIfChanged(filepath.Join(root, relPath), ps.pages[relPath])
		if err != nil {
			return written, err
		}
		if changed {
			written++
		}
	}
	return written, nil
}
