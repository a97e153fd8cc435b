// Package store provides SQLite-backed persistence for the campaign index.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the SQLite-backed campaign index.
// Safe for concurrent readers; the merge path serializes writers.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines all tables of the campaign index.
const schema = `
-- Entities (Registry)
-- UNIQUE(category, canonical_key) is the identity invariant: one row per
-- resolved name within a category.
CREATE TABLE IF NOT EXISTS entities (
    id TEXT PRIMARY KEY,
    category TEXT NOT NULL,
    canonical_name TEXT NOT NULL,
    canonical_key TEXT NOT NULL,
    aliases TEXT,
    description TEXT,
    desc_tail_hash TEXT,
    created_session TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE(category, canonical_key)
);

CREATE INDEX IF NOT EXISTS idx_entities_category ON entities(category);

-- Sessions
-- One row per session date; re-merging a date overwrites its row.
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    date TEXT NOT NULL UNIQUE,
    previously_on TEXT,
    narrative TEXT,
    plain_summary TEXT,
    backlink_block TEXT,
    transcript_path TEXT,
    audio_path TEXT,
    source_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date);

-- Mentions (session -> entity)
-- Note: No foreign keys - referential integrity managed at application level
CREATE TABLE IF NOT EXISTS mentions (
    session_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    ord INTEGER NOT NULL,
    PRIMARY KEY (session_id, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_mentions_entity ON mentions(entity_id);

-- Links (entity co-occurrence, stored in both directions)
CREATE TABLE IF NOT EXISTS links (
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    first_session TEXT NOT NULL,
    PRIMARY KEY (source_id, target_id)
);

CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_id);

-- Hooks (unresolved plot threads, deduped globally by canonical key)
CREATE TABLE IF NOT EXISTS hooks (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    text TEXT NOT NULL,
    canonical_key TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'open',
    resolved_by TEXT,
    ord INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hooks_status ON hooks(status);
CREATE INDEX IF NOT EXISTS idx_hooks_session ON hooks(session_id);
`

// NewSQLiteStore creates a new in-memory store. Tests use this.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// Entity reads
// =============================================================================

const entityColumns = `id, category, canonical_name, canonical_key, aliases,
	description, desc_tail_hash, created_session, created_at, updated_at`

func scanEntity(row rowScanner) (*Entity, error) {
	var e Entity
	var category string
	var aliasesJSON, description, descTailHash, createdSession sql.NullString

	err := row.Scan(
		&e.ID, &category, &e.CanonicalName, &e.CanonicalKey, &aliasesJSON,
		&description, &descTailHash, &createdSession, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Category = Category(category)
	if description.Valid {
		e.Description = description.String
	}
	if descTailHash.Valid {
		e.DescTailHash = descTailHash.String
	}
	if createdSession.Valid {
		e.CreatedSession = createdSession.String
	}
	if aliasesJSON.Valid && aliasesJSON.String != "" {
		if err := json.Unmarshal([]byte(aliasesJSON.String), &e.Aliases); err != nil {
			return nil, fmt.Errorf("failed to unmarshal aliases for %s: %w", e.ID, err)
		}
	}

	return &e, nil
}

// GetEntity retrieves an entity by ID.
func (s *SQLiteStore) GetEntity(id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// GetEntityByKey retrieves the entity registered for a canonical key within
// a category.
func (s *SQLiteStore) GetEntityByKey(category Category, canonicalKey string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+entityColumns+` FROM entities
		WHERE category = ? AND canonical_key = ?`, string(category), canonicalKey)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListEntities returns all entities in a category, ordered by canonical key.
func (s *SQLiteStore) ListEntities(category Category) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+entityColumns+` FROM entities
		WHERE category = ? ORDER BY canonical_key`, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntities(rows)
}

// ListAllEntities returns every entity, ordered by category then key.
func (s *SQLiteStore) ListAllEntities() ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT ` + entityColumns + ` FROM entities
		ORDER BY category, canonical_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntities(rows)
}

// CountEntities counts entities in a category; an empty category counts all.
func (s *SQLiteStore) CountEntities(category Category) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	var err error
	if category == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM entities`).Scan(&count)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM entities WHERE category = ?`,
			string(category)).Scan(&count)
	}
	return count, err
}

func collectEntities(rows *sql.Rows) ([]*Entity, error) {
	var entities []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// =============================================================================
// Session reads
// =============================================================================

const sessionColumns = `id, slug, title, date, previously_on, narrative,
	plain_summary, backlink_block, transcript_path, audio_path, source_hash,
	created_at, updated_at`

func scanSession(row rowScanner) (*SessionRecord, error) {
	var r SessionRecord
	var previouslyOn, narrative, plainSummary, backlinkBlock sql.NullString
	var transcriptPath, audioPath sql.NullString

	err := row.Scan(
		&r.ID, &r.Slug, &r.Title, &r.Date, &previouslyOn, &narrative,
		&plainSummary, &backlinkBlock, &transcriptPath, &audioPath,
		&r.SourceHash, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if previouslyOn.Valid {
		r.PreviouslyOn = previouslyOn.String
	}
	if narrative.Valid {
		r.Narrative = narrative.String
	}
	if plainSummary.Valid {
		r.PlainSummary = plainSummary.String
	}
	if backlinkBlock.Valid {
		r.BacklinkBlock = backlinkBlock.String
	}
	if transcriptPath.Valid {
		r.TranscriptPath = transcriptPath.String
	}
	if audioPath.Valid {
		r.AudioPath = audioPath.String
	}

	return &r, nil
}

// GetSession retrieves a session record by ID.
func (s *SQLiteStore) GetSession(id string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	r, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetSessionByDate retrieves the session merged for an ISO date.
func (s *SQLiteStore) GetSessionByDate(date string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE date = ?`, date)
	r, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListSessions returns all sessions in chronological order.
func (s *SQLiteStore) ListSessions() ([]*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSessions(rows)
}

// LatestSessionBefore returns the most recent session strictly before an ISO
// date, or nil when none exists.
func (s *SQLiteStore) LatestSessionBefore(date string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions
		WHERE date < ? ORDER BY date DESC LIMIT 1`, date)
	r, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// CountSessions returns the number of merged sessions.
func (s *SQLiteStore) CountSessions() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

func collectSessions(rows *sql.Rows) ([]*SessionRecord, error) {
	var sessions []*SessionRecord
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, r)
	}
	return sessions, rows.Err()
}

// =============================================================================
// Mentions and links
// =============================================================================

// EntitiesForSession returns the entities a session mentioned, in summary
// order.
func (s *SQLiteStore) EntitiesForSession(sessionID string) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT e.id, e.category, e.canonical_name, e.canonical_key, e.aliases,
			e.description, e.desc_tail_hash, e.created_session, e.created_at, e.updated_at
		FROM mentions m
		JOIN entities e ON e.id = m.entity_id
		WHERE m.session_id = ?
		ORDER BY m.ord
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntities(rows)
}

// SessionsForEntity returns the sessions that mentioned an entity, in
// chronological order.
func (s *SQLiteStore) SessionsForEntity(entityID string) ([]*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT s.id, s.slug, s.title, s.date, s.previously_on, s.narrative,
			s.plain_summary, s.backlink_block, s.transcript_path, s.audio_path,
			s.source_hash, s.created_at, s.updated_at
		FROM mentions m
		JOIN sessions s ON s.id = m.session_id
		WHERE m.entity_id = ?
		ORDER BY s.date
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSessions(rows)
}

// LinkedEntities returns the entities co-mentioned with an entity, ordered
// by category then name for stable rendering.
func (s *SQLiteStore) LinkedEntities(entityID string) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT e.id, e.category, e.canonical_name, e.canonical_key, e.aliases,
			e.description, e.desc_tail_hash, e.created_session, e.created_at, e.updated_at
		FROM links l
		JOIN entities e ON e.id = l.target_id
		WHERE l.source_id = ?
		ORDER BY e.category, e.canonical_key
	`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntities(rows)
}

// =============================================================================
// Hooks
// =============================================================================

func scanHook(row rowScanner) (*Hook, error) {
	var h Hook
	var status string
	var resolvedBy sql.NullString

	err := row.Scan(&h.ID, &h.SessionID, &h.Text, &h.CanonicalKey,
		&status, &resolvedBy, &h.Ord, &h.CreatedAt)
	if err != nil {
		return nil, err
	}

	h.Status = HookStatus(status)
	if resolvedBy.Valid {
		h.ResolvedBy = resolvedBy.String
	}
	return &h, nil
}

const hookColumns = `id, session_id, text, canonical_key, status, resolved_by, ord, created_at`

// OpenHooks returns all unresolved hooks, ordered by raising session date
// then position within the session.
func (s *SQLiteStore) OpenHooks() ([]*Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT h.id, h.session_id, h.text, h.canonical_key, h.status,
			h.resolved_by, h.ord, h.created_at
		FROM hooks h
		LEFT JOIN sessions s ON s.id = h.session_id
		WHERE h.status = 'open'
		ORDER BY s.date, h.ord
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectHooks(rows)
}

// HooksForSession returns every hook a session raised, in summary order.
func (s *SQLiteStore) HooksForSession(sessionID string) ([]*Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+hookColumns+` FROM hooks
		WHERE session_id = ? ORDER BY ord`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectHooks(rows)
}

func collectHooks(rows *sql.Rows) ([]*Hook, error) {
	var hooks []*Hook
	for rows.Next() {
		h, err := scanHook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}

// =============================================================================
// Merge write path
// =============================================================================

// ApplyMerge commits one planned merge in a single transaction. Readers
// observe either all of the merge or none of it.
func (s *SQLiteStore) ApplyMerge(apply *MergeApply) (*MergeOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback()

	outcome := &MergeOutcome{
		SessionID:   apply.Session.ID,
		SessionDate: apply.Session.Date,
		Overwrote:   apply.ReplaceSession,
	}

	if err := writeSession(tx, apply); err != nil {
		return nil, err
	}

	for _, w := range apply.Entities {
		if err := writeEntity(tx, w); err != nil {
			return nil, err
		}
		if w.Create {
			outcome.CreatedEntities = append(outcome.CreatedEntities, w.Entity.CanonicalName)
		} else {
			outcome.UpdatedEntities = append(outcome.UpdatedEntities, w.Entity.CanonicalName)
		}
	}

	for ord, entityID := range apply.MentionOrder {
		_, err := tx.Exec(`INSERT INTO mentions (session_id, entity_id, ord) VALUES (?, ?, ?)`,
			apply.Session.ID, entityID, ord)
		if err != nil {
			return nil, fmt.Errorf("write mention %s: %w", entityID, err)
		}
	}

	directed := 0
	for _, link := range apply.Links {
		res, err := tx.Exec(`INSERT OR IGNORE INTO links (source_id, target_id, first_session)
			VALUES (?, ?, ?)`, link.SourceID, link.TargetID, link.FirstSession)
		if err != nil {
			return nil, fmt.Errorf("write link: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		directed += int(n)
	}
	outcome.NewLinks = directed / 2

	for _, w := range apply.Hooks {
		res, err := tx.Exec(`INSERT OR IGNORE INTO hooks
			(id, session_id, text, canonical_key, status, resolved_by, ord, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			w.Hook.ID, w.Hook.SessionID, w.Hook.Text, w.Hook.CanonicalKey,
			string(w.Hook.Status), w.Hook.ResolvedBy, w.Hook.Ord, w.Hook.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("write hook: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		outcome.NewHooks += int(n)
	}

	for _, r := range apply.HookResolutions {
		res, err := tx.Exec(`UPDATE hooks SET status = 'resolved', resolved_by = ?
			WHERE id = ? AND status = 'open'`, r.ResolvedBy, r.HookID)
		if err != nil {
			return nil, fmt.Errorf("resolve hook %s: %w", r.HookID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		outcome.ResolvedHooks += int(n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}
	return outcome, nil
}

func writeSession(tx *sql.Tx, apply *MergeApply) error {
	r := apply.Session
	if apply.ReplaceSession {
		_, err := tx.Exec(`
			UPDATE sessions SET slug = ?, title = ?, previously_on = ?, narrative = ?,
				plain_summary = ?, backlink_block = ?, transcript_path = ?, audio_path = ?,
				source_hash = ?, updated_at = ?
			WHERE id = ?
		`, r.Slug, r.Title, r.PreviouslyOn, r.Narrative, r.PlainSummary,
			r.BacklinkBlock, r.TranscriptPath, r.AudioPath, r.SourceHash,
			r.UpdatedAt, r.ID)
		if err != nil {
			return fmt.Errorf("update session %s: %w", r.Date, err)
		}

		// The replacement re-states the session's mentions and rewrites
		// its open hooks. Resolved hooks are history and stay.
		if _, err := tx.Exec(`DELETE FROM mentions WHERE session_id = ?`, r.ID); err != nil {
			return fmt.Errorf("clear mentions for %s: %w", r.Date, err)
		}
		if _, err := tx.Exec(`DELETE FROM hooks WHERE session_id = ? AND status = 'open'`, r.ID); err != nil {
			return fmt.Errorf("clear open hooks for %s: %w", r.Date, err)
		}
		return nil
	}

	_, err := tx.Exec(`
		INSERT INTO sessions (id, slug, title, date, previously_on, narrative,
			plain_summary, backlink_block, transcript_path, audio_path,
			source_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Slug, r.Title, r.Date, r.PreviouslyOn, r.Narrative,
		r.PlainSummary, r.BacklinkBlock, r.TranscriptPath, r.AudioPath,
		r.SourceHash, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", r.Date, err)
	}
	return nil
}

func writeEntity(tx *sql.Tx, w EntityWrite) error {
	e := w.Entity
	aliasesJSON, err := json.Marshal(e.Aliases)
	if err != nil {
		return fmt.Errorf("failed to marshal aliases: %w", err)
	}

	if w.Create {
		_, err = tx.Exec(`
			INSERT INTO entities (id, category, canonical_name, canonical_key,
				aliases, description, desc_tail_hash, created_session, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, string(e.Category), e.CanonicalName, e.CanonicalKey,
			string(aliasesJSON), e.Description, e.DescTailHash,
			e.CreatedSession, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert entity %s: %w", e.CanonicalName, err)
		}
		return nil
	}

	_, err = tx.Exec(`
		UPDATE entities SET aliases = ?, description = ?, desc_tail_hash = ?, updated_at = ?
		WHERE id = ?
	`, string(aliasesJSON), e.Description, e.DescTailHash, e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("update entity %s: %w", e.CanonicalName, err)
	}
	return nil
}

// =============================================================================
// Integrity
// =============================================================================

// CheckIntegrity scans for rows that reference missing rows. The schema has
// no foreign keys, so this is the referential safety net.
func (s *SQLiteStore) CheckIntegrity() ([]IntegrityIssue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var issues []IntegrityIssue

	checks := []struct {
		name  string
		query string
		fix   string
	}{
		{
			name: "mentions_missing_entity",
			query: `SELECT COUNT(*) FROM mentions m
				WHERE NOT EXISTS (SELECT 1 FROM entities e WHERE e.id = m.entity_id)`,
			fix: "re-import the index snapshot",
		},
		{
			name: "mentions_missing_session",
			query: `SELECT COUNT(*) FROM mentions m
				WHERE NOT EXISTS (SELECT 1 FROM sessions s WHERE s.id = m.session_id)`,
			fix: "re-import the index snapshot",
		},
		{
			name: "links_missing_entity",
			query: `SELECT COUNT(*) FROM links l
				WHERE NOT EXISTS (SELECT 1 FROM entities e WHERE e.id = l.source_id)
				OR NOT EXISTS (SELECT 1 FROM entities e WHERE e.id = l.target_id)`,
			fix: "re-import the index snapshot",
		},
		{
			name: "links_missing_reverse",
			query: `SELECT COUNT(*) FROM links l
				WHERE NOT EXISTS (SELECT 1 FROM links r
					WHERE r.source_id = l.target_id AND r.target_id = l.source_id)`,
			fix: "re-merge the affected sessions",
		},
		{
			name: "hooks_missing_session",
			query: `SELECT COUNT(*) FROM hooks h
				WHERE NOT EXISTS (SELECT 1 FROM sessions s WHERE s.id = h.session_id)`,
			fix: "re-import the index snapshot",
		},
		{
			name:  "entities_empty_key",
			query: `SELECT COUNT(*) FROM entities WHERE canonical_key = ''`,
			fix:   "delete the malformed rows and re-merge",
		},
	}

	for _, check := range checks {
		var count int
		if err := s.db.QueryRow(check.query).Scan(&count); err != nil {
			return nil, fmt.Errorf("integrity check %s: %w", check.name, err)
		}
		if count > 0 {
			issues = append(issues, IntegrityIssue{
				Name:   check.name,
				Detail: fmt.Sprintf("%d offending rows", count),
				Fix:    check.fix,
			})
		}
	}

	return issues, nil
}

// =============================================================================
// Export/Import (whole-index snapshot)
// =============================================================================

// Export serializes the whole index to indented JSON. The result is the
// authoritative recovery artifact written after every merge.
func (s *SQLiteStore) Export() ([]byte, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(snap, "", "  ")
}

func (s *SQLiteStore) snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	sessionRows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("export sessions: %w", err)
	}
	defer sessionRows.Close()
	if snap.Sessions, err = collectSessions(sessionRows); err != nil {
		return nil, err
	}

	entityRows, err := s.db.Query(`SELECT ` + entityColumns + ` FROM entities
		ORDER BY category, canonical_key`)
	if err != nil {
		return nil, fmt.Errorf("export entities: %w", err)
	}
	defer entityRows.Close()
	if snap.Entities, err = collectEntities(entityRows); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT session_id, entity_id, ord FROM mentions
		ORDER BY session_id, ord`)
	if err != nil {
		return nil, fmt.Errorf("export mentions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Mention
		if err := rows.Scan(&m.SessionID, &m.EntityID, &m.Ord); err != nil {
			return nil, err
		}
		snap.Mentions = append(snap.Mentions, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	linkRows, err := s.db.Query(`SELECT source_id, target_id, first_session FROM links
		ORDER BY source_id, target_id`)
	if err != nil {
		return nil, fmt.Errorf("export links: %w", err)
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var l Link
		if err := linkRows.Scan(&l.SourceID, &l.TargetID, &l.FirstSession); err != nil {
			return nil, err
		}
		snap.Links = append(snap.Links, &l)
	}
	if err := linkRows.Err(); err != nil {
		return nil, err
	}

	hookRows, err := s.db.Query(`SELECT ` + hookColumns + ` FROM hooks
		ORDER BY created_at, ord, id`)
	if err != nil {
		return nil, fmt.Errorf("export hooks: %w", err)
	}
	defer hookRows.Close()
	hooks, err := collectHooks(hookRows)
	if err != nil {
		return nil, err
	}
	snap.Hooks = hooks

	return snap, nil
}

// Import restores the database state from an exported JSON snapshot.
// Clears all existing data and re-inserts from the export, atomically.
func (s *SQLiteStore) Import(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(data) == 0 {
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("import unmarshal: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"hooks", "links", "mentions", "sessions", "entities"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, e := range snap.Entities {
		aliasesJSON, _ := json.Marshal(e.Aliases)
		_, err := tx.Exec(`
			INSERT INTO entities (id, category, canonical_name, canonical_key,
				aliases, description, desc_tail_hash, created_session, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, string(e.Category), e.CanonicalName, e.CanonicalKey,
			string(aliasesJSON), e.Description, e.DescTailHash,
			e.CreatedSession, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("import entity %s: %w", e.ID, err)
		}
	}

	for _, r := range snap.Sessions {
		_, err := tx.Exec(`
			INSERT INTO sessions (id, slug, title, date, previously_on, narrative,
				plain_summary, backlink_block, transcript_path, audio_path,
				source_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.Slug, r.Title, r.Date, r.PreviouslyOn, r.Narrative,
			r.PlainSummary, r.BacklinkBlock, r.TranscriptPath, r.AudioPath,
			r.SourceHash, r.CreatedAt, r.UpdatedAt)
		if err != nil {
			return fmt.Errorf("import session %s: %w", r.ID, err)
		}
	}

	for _, m := range snap.Mentions {
		_, err := tx.Exec(`INSERT INTO mentions (session_id, entity_id, ord) VALUES (?, ?, ?)`,
			m.SessionID, m.EntityID, m.Ord)
		if err != nil {
			return fmt.Errorf("import mention %s/%s: %w", m.SessionID, m.EntityID, err)
		}
	}

	for _, l := range snap.Links {
		_, err := tx.Exec(`INSERT INTO links (source_id, target_id, first_session) VALUES (?, ?, ?)`,
			l.SourceID, l.TargetID, l.FirstSession)
		if err != nil {
			return fmt.Errorf("import link %s/%s: %w", l.SourceID, l.TargetID, err)
		}
	}

	for _, h := range snap.Hooks {
		status := h.Status
		if status == "" {
			status = HookOpen
		}
		_, err := tx.Exec(`
			INSERT INTO hooks (id, session_id, text, canonical_key, status, resolved_by, ord, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, h.ID, h.SessionID, h.Text, h.CanonicalKey, string(status),
			h.ResolvedBy, h.Ord, h.CreatedAt)
		if err != nil {
			return fmt.Errorf("import hook %s: %w", h.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
