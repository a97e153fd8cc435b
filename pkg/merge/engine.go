// Package merge implements the merge engine: the single writer that folds
// structured session summaries into the campaign index. A merge validates,
// resolves names, plans the full write set, applies it in one store
// transaction, then refreshes the JSON snapshot. A failed merge leaves the
// index exactly as it was.
package merge

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/kittclouds/campaignkit/internal/config"
	apperrors "github.com/kittclouds/campaignkit/internal/errors"
	"github.com/kittclouds/campaignkit/internal/store"
	"github.com/kittclouds/campaignkit/internal/vault"
	"github.com/kittclouds/campaignkit/pkg/summary"
)

// Store is the persistence surface the engine reads and writes through.
// *store.SQLiteStore satisfies it.
type Store interface {
	GetSessionByDate(date string) (*store.SessionRecord, error)
	ListAllEntities() ([]*store.Entity, error)
	OpenHooks() ([]*store.Hook, error)
	ApplyMerge(apply *store.MergeApply) (*store.MergeOutcome, error)
	Export() ([]byte, error)
}

// Result reports what one merge changed.
type Result struct {
	SessionID     string   `json:"sessionId"`
	SessionDate   string   `json:"sessionDate"`
	Title         string   `json:"title"`
	Overwrite     bool     `json:"overwrite"`
	Unchanged     bool     `json:"unchanged"`
	Created       []string `json:"created,omitempty"`
	Updated       []string `json:"updated,omitempty"`
	NewHooks      int      `json:"newHooks"`
	ResolvedHooks int      `json:"resolvedHooks"`
	NewLinks      int      `json:"newLinks"`
}

// Engine is the single writer for one campaign index. Concurrent
// MergeSession calls serialize on the engine mutex; cross-process writers
// serialize on SQLite locking.
type Engine struct {
	mu    sync.Mutex
	store Store
	vlt   *vault.Vault

	threshold float64
	retries   int
	backoff   time.Duration
}

// New creates an engine over a store and vault. A nil cfg uses defaults.
// A nil vault skips snapshot export.
func New(st Store, v *vault.Vault, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{
		store:     st,
		vlt:       v,
		threshold: cfg.FuzzyThreshold,
		retries:   cfg.MergeRetries,
		backoff:   time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
	}
}

// MergeSession folds one structured summary into the index. Re-merging an
// unchanged summary is a no-op; re-merging a corrected summary for an
// existing date overwrites that session's record and mentions while keeping
// every registered entity.
func (e *Engine) MergeSession(s *summary.SessionSummary) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	prior, err := e.store.GetSessionByDate(s.SessionDate)
	if err != nil {
		return nil, apperrors.E(apperrors.CodeFatalIO, "merge.MergeSession", err)
	}

	hash := s.Hash()
	if prior != nil && prior.SourceHash == hash {
		// Identical payload. Nothing to write, but refresh the snapshot so
		// a failure after an earlier commit heals on resubmission.
		if err := e.exportSnapshot(); err != nil {
			return nil, err
		}
		return &Result{
			SessionID:   prior.ID,
			SessionDate: prior.Date,
			Title:       prior.Title,
			Unchanged:   true,
		}, nil
	}

	apply, err := e.plan(s, prior, hash)
	if err != nil {
		return nil, err
	}

	outcome, err := e.applyWithRetry(apply)
	if err != nil {
		return nil, err
	}

	if err := e.exportSnapshot(); err != nil {
		return nil, err
	}

	return &Result{
		SessionID:     outcome.SessionID,
		SessionDate:   outcome.SessionDate,
		Title:         s.SessionTitle,
		Overwrite:     outcome.Overwrote,
		Created:       outcome.CreatedEntities,
		Updated:       outcome.UpdatedEntities,
		NewHooks:      outcome.NewHooks,
		ResolvedHooks: outcome.ResolvedHooks,
		NewLinks:      outcome.NewLinks,
	}, nil
}

// applyWithRetry commits the plan, retrying transient lock contention with
// doubling backoff. Exhausted retries surface FATAL_IO_FAILURE for this
// session only; committed sessions are unaffected.
func (e *Engine) applyWithRetry(apply *store.MergeApply) (*store.MergeOutcome, error) {
	backoff := e.backoff
	var lastErr error

	for attempt := 0; attempt <= e.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
		}

		outcome, err := e.store.ApplyMerge(apply)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
		if !transientIO(err) {
			break
		}
	}

	if apperrors.CodeOf(lastErr) != apperrors.CodeUnknown {
		return nil, lastErr
	}
	return nil, apperrors.E(apperrors.CodeFatalIO, "merge.apply", lastErr)
}

// transientIO reports whether an error looks like SQLite lock contention.
func transientIO(err error) bool {
	if apperrors.Retryable(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

// exportSnapshot writes the whole-index JSON snapshot atomically. The
// snapshot is the recovery point; note files are regenerable projections.
func (e *Engine) exportSnapshot() error {
	if e.vlt == nil {
		return nil
	}
	data, err := e.store.Export()
	if err != nil {
		return apperrors.E(apperrors.CodeFatalIO, "merge.snapshot", err)
	}
	if err := vault.WriteAtomic(e.vlt.SnapshotPath(), data); err != nil {
		return apperrors.E(apperrors.CodeFatalIO, "merge.snapshot", err)
	}
	return nil
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
