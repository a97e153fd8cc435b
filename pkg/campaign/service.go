// Package campaign wires the vault, index store, merge engine, continuity
// builder, and note renderer into one service the CLI drives.
package campaign

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kittclouds/campaignkit/internal/config"
	"github.com/kittclouds/campaignkit/internal/store"
	"github.com/kittclouds/campaignkit/internal/vault"
	"github.com/kittclouds/campaignkit/pkg/continuity"
	"github.com/kittclouds/campaignkit/pkg/heuristic"
	"github.com/kittclouds/campaignkit/pkg/merge"
	"github.com/kittclouds/campaignkit/pkg/render"
	"github.com/kittclouds/campaignkit/pkg/summary"
)

// Service manages one campaign vault end to end.
type Service struct {
	cfg    *config.Config
	vlt    *vault.Vault
	store  store.Storer
	engine *merge.Engine
}

// New wires a service from already-opened parts. A nil config uses defaults.
func New(st store.Storer, vlt *vault.Vault, cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{
		cfg:    cfg,
		vlt:    vlt,
		store:  st,
		engine: merge.New(st, vlt, cfg),
	}
}

// Open loads the campaign rooted at dir: configuration, folder layout, and
// the SQLite index. First use creates the vault on disk.
func Open(root string) (*Service, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	vlt := vault.New(root)
	if err := vlt.EnsureLayout(); err != nil {
		return nil, fmt.Errorf("failed to prepare vault: %w", err)
	}

	st, err := store.NewSQLiteStoreWithDSN(vlt.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open campaign index: %w", err)
	}

	return New(st, vlt, cfg), nil
}

// Close releases the index store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Config returns the loaded campaign configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Vault returns the note vault this service operates on.
func (s *Service) Vault() *vault.Vault { return s.vlt }

// =============================================================================
// Lifecycle
// =============================================================================

// Init prepares a campaign vault: folder layout, a config file when none
// exists yet, and the first index snapshot. Safe to run on an existing vault.
func (s *Service) Init() error {
	if err := s.vlt.EnsureLayout(); err != nil {
		return fmt.Errorf("failed to prepare vault: %w", err)
	}

	if _, err := os.Stat(filepath.Join(s.vlt.Root, config.FileName)); os.IsNotExist(err) {
		if err := config.Save(s.vlt.Root, s.cfg); err != nil {
			return err
		}
	}

	return s.WriteSnapshot()
}

// WriteSnapshot exports the index snapshot to the vault root.
func (s *Service) WriteSnapshot() error {
	data, err := s.store.Export()
	if err != nil {
		return fmt.Errorf("failed to export index: %w", err)
	}
	return vault.WriteAtomic(s.vlt.SnapshotPath(), data)
}

// =============================================================================
// Merge
// =============================================================================

// MergeSummary folds one structured summary into the index, then regenerates
// the note projections. A non-nil Result returned together with an error
// means the merge committed but note regeneration failed; RenderNotes heals
// that without re-merging.
func (s *Service) MergeSummary(sum *summary.SessionSummary) (*merge.Result, error) {
	res, err := s.engine.MergeSession(sum)
	if err != nil {
		return nil, err
	}

	if _, err := s.RenderNotes(); err != nil {
		return res, fmt.Errorf("merge committed, note regeneration failed: %w", err)
	}
	return res, nil
}

// MergeFile parses a summary JSON file and merges it.
func (s *Service) MergeFile(path string) (*merge.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary file: %w", err)
	}

	sum, err := summary.Parse(data)
	if err != nil {
		return nil, err
	}
	return s.MergeSummary(sum)
}

// =============================================================================
// Offline summarization
// =============================================================================

// SummarizeTranscript builds a structured summary from a transcript file
// using the offline heuristic, stitching in the previously-on recap from
// prior sessions. When outPath is non-empty the summary JSON is written
// there, ready for a later merge.
func (s *Service) SummarizeTranscript(transcriptPath, title, date, outPath string) (*summary.SessionSummary, error) {
	raw, err := os.ReadFile(transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	sum, err := heuristic.New(s.cfg.HeuristicThreshold).Summarize(string(raw), title, date)
	if err != nil {
		return nil, err
	}
	sum.TranscriptPath = transcriptPath

	ctx, err := s.Continuity(date)
	if err != nil {
		return nil, err
	}
	sum.PreviouslyOn = ctx.PreviouslyOn

	if outPath != "" {
		data, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode summary: %w", err)
		}
		if err := vault.WriteAtomic(outPath, append(data, '\n')); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// =============================================================================
// Continuity and rendering
// =============================================================================

// Continuity assembles the previously-on context. An empty asOf covers the
// whole campaign history; a session date restricts it to sessions strictly
// before that date.
func (s *Service) Continuity(asOf string) (*continuity.Context, error) {
	return continuity.New(s.store, s.cfg.ContinuityWindow, s.cfg.RecentEntityCap).Build(asOf)
}

// RenderNotes regenerates every session and entity note from the index,
// returning how many files changed on disk.
func (s *Service) RenderNotes() (int, error) {
	pages, err := render.New(s.store).Pages()
	if err != nil {
		return 0, err
	}
	return pages.WriteTo(s.vlt.Root)
}

// =============================================================================
// Queries
// =============================================================================

// Sessions lists all merged sessions in date order.
func (s *Service) Sessions() ([]*store.SessionRecord, error) {
	return s.store.ListSessions()
}

// Entities lists registered entities, all categories when category is empty.
func (s *Service) Entities(category string) ([]*store.Entity, error) {
	if category == "" {
		return s.store.ListAllEntities()
	}

	c := store.Category(category)
	if !c.Valid() {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	return s.store.ListEntities(c)
}

// OpenHooks lists unresolved hooks across the campaign.
func (s *Service) OpenHooks() ([]*store.Hook, error) {
	return s.store.OpenHooks()
}

// =============================================================================
// Maintenance
// =============================================================================

// Check validates the index and the vault: referential integrity inside the
// database, plus presence of the snapshot and every projected note file.
func (s *Service) Check() ([]store.IntegrityIssue, error) {
	issues, err := s.store.CheckIntegrity()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(s.vlt.SnapshotPath()); os.IsNotExist(err) {
		issues = append(issues, store.IntegrityIssue{
			Name:   "snapshot_missing",
			Detail: vault.IndexSnapshotFile + " not found at the vault root",
			Fix:    "run export or any merge to regenerate it",
		})
	}

	sessions, err := s.store.ListSessions()
	if err != nil {
		return nil, err
	}
	for _, rec := range sessions {
		if _, err := os.Stat(s.vlt.SessionNotePath(rec.Slug)); os.IsNotExist(err) {
			issues = append(issues, store.IntegrityIssue{
				Name:   "session_note_missing",
				Detail: fmt.Sprintf("no note file for session %s (%s)", rec.Date, rec.Title),
				Fix:    "run render to regenerate note projections",
			})
		}
	}

	entities, err := s.store.ListAllEntities()
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		path := s.vlt.EntityNotePath(e.Category.Dir(), e.CanonicalName)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			issues = append(issues, store.IntegrityIssue{
				Name:   "entity_note_missing",
				Detail: fmt.Sprintf("no note file for %s %q", e.Category.Label(), e.CanonicalName),
				Fix:    "run render to regenerate note projections",
			})
		}
	}

	return issues, nil
}

// Export writes the whole-index JSON snapshot to path.
func (s *Service) Export(path string) error {
	data, err := s.store.Export()
	if err != nil {
		return fmt.Errorf("failed to export index: %w", err)
	}
	return vault.WriteAtomic(path, data)
}

// ImportSnapshot replaces the index contents from a snapshot file, then
// refreshes the vault-root snapshot and every note projection.
func (s *Service) ImportSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot file: %w", err)
	}

	if err := s.store.Import(data); err != nil {
		return err
	}

	if err := s.WriteSnapshot(); err != nil {
		return err
	}
	if _, err := s.RenderNotes(); err != nil {
		return fmt.Errorf("import committed, note regeneration failed: %w", err)
	}
	return nil
}
