// Package store provides SQLite-backed persistence for the campaign
// knowledge index: entities, session records, mentions, co-occurrence links,
// and unresolved hooks.
package store

// Category classifies a registered entity. Categories are closed: a summary
// slot, not a classifier, decides which one an entity lands in.
type Category string

const (
	CategoryCharacter Category = "character"
	CategoryLocation  Category = "location"
	CategoryFaction   Category = "faction"
	CategoryEvent     Category = "event"
)

// Categories lists all categories in render order.
var Categories = []Category{
	CategoryCharacter,
	CategoryLocation,
	CategoryFaction,
	CategoryEvent,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCharacter, CategoryLocation, CategoryFaction, CategoryEvent:
		return true
	}
	return false
}

// Dir returns the vault directory holding notes for this category.
func (c Category) Dir() string {
	return string(c) + "s"
}

// Title returns the heading label used in rendered notes.
func (c Category) Title() string {
	switch c {
	case CategoryCharacter:
		return "Characters"
	case CategoryLocation:
		return "Locations"
	case CategoryFaction:
		return "Factions"
	case CategoryEvent:
		return "Events"
	}
	return string(c)
}

// Label returns the singular display name for this category.
func (c Category) Label() string {
	switch c {
	case CategoryCharacter:
		return "Character"
	case CategoryLocation:
		return "Location"
	case CategoryFaction:
		return "Faction"
	case CategoryEvent:
		return "Event"
	}
	return string(c)
}

// Priority orders categories when the same surface form matches entities in
// more than one category. Lower wins.
func (c Category) Priority() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return len(Categories)
}

// Entity is a registered campaign entity. Exactly one entity exists per
// (category, canonical key) pair; aliases and fuzzy matches fold onto it.
type Entity struct {
	ID             string   `json:"id"`
	Category       Category `json:"category"`
	CanonicalName  string   `json:"canonicalName"`
	CanonicalKey   string   `json:"canonicalKey"`
	Aliases        []string `json:"aliases,omitempty"`
	Description    string   `json:"description,omitempty"`
	DescTailHash   string   `json:"descTailHash,omitempty"`
	CreatedSession string   `json:"createdSession,omitempty"`
	CreatedAt      int64    `json:"createdAt"`
	UpdatedAt      int64    `json:"updatedAt"`
}

// SessionRecord is the stored form of one merged session summary. Dates are
// ISO (YYYY-MM-DD) and unique: re-merging a date overwrites this record.
type SessionRecord struct {
	ID             string `json:"id"`
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	PreviouslyOn   string `json:"previouslyOn,omitempty"`
	Narrative      string `json:"narrative,omitempty"`
	PlainSummary   string `json:"plainSummary,omitempty"`
	BacklinkBlock  string `json:"backlinkBlock,omitempty"`
	TranscriptPath string `json:"transcriptPath,omitempty"`
	AudioPath      string `json:"audioPath,omitempty"`
	SourceHash     string `json:"sourceHash"`
	CreatedAt      int64  `json:"createdAt"`
	UpdatedAt      int64  `json:"updatedAt"`
}

// Mention records that a session referenced an entity. Ord preserves the
// order entities appeared in the summary, so rendering stays byte-stable.
type Mention struct {
	SessionID string `json:"sessionId"`
	EntityID  string `json:"entityId"`
	Ord       int    `json:"ord"`
}

// Link is a directed co-occurrence edge between two entities mentioned in
// the same session. Every link is stored in both directions.
type Link struct {
	SourceID     string `json:"sourceId"`
	TargetID     string `json:"targetId"`
	FirstSession string `json:"firstSession"`
}

// HookStatus tracks the lifecycle of an unresolved hook.
type HookStatus string

const (
	HookOpen     HookStatus = "open"
	HookResolved HookStatus = "resolved"
)

// Hook is an unresolved plot thread raised by a session. Hooks are deduped
// by canonical key; once resolved they stay resolved.
type Hook struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"sessionId"`
	Text         string     `json:"text"`
	CanonicalKey string     `json:"canonicalKey"`
	Status       HookStatus `json:"status"`
	ResolvedBy   string     `json:"resolvedBy,omitempty"`
	Ord          int        `json:"ord"`
	CreatedAt    int64      `json:"createdAt"`
}

// EntityWrite is one planned entity change inside a merge. Create decides
// between INSERT and update; ordering in MergeApply is summary order.
type EntityWrite struct {
	Entity        *Entity
	Create        bool
	AppendSegment string
	NewAliases    []string
}

// HookWrite is one planned hook insert inside a merge.
type HookWrite struct {
	Hook *Hook
}

// HookResolution marks an existing open hook resolved by the incoming
// session.
type HookResolution struct {
	HookID     string
	ResolvedBy string
}

// MergeApply is the full write set for one session merge. The store applies
// it in a single transaction so readers never observe a partial merge.
type MergeApply struct {
	Session         *SessionRecord
	ReplaceSession  bool
	Entities        []EntityWrite
	MentionOrder    []string
	Links           []Link
	Hooks           []HookWrite
	HookResolutions []HookResolution
}

// MergeOutcome summarizes what a committed merge changed.
type MergeOutcome struct {
	SessionID       string   `json:"sessionId"`
	SessionDate     string   `json:"sessionDate"`
	Overwrote       bool     `json:"overwrote"`
	CreatedEntities []string `json:"createdEntities,omitempty"`
	UpdatedEntities []string `json:"updatedEntities,omitempty"`
	NewHooks        int      `json:"newHooks"`
	ResolvedHooks   int      `json:"resolvedHooks"`
	NewLinks        int      `json:"newLinks"`
}

// IntegrityIssue describes one referential problem found by CheckIntegrity,
// with a suggested fix.
type IntegrityIssue struct {
	Name   string `json:"name"`
	Detail string `json:"detail"`
	Fix    string `json:"fix,omitempty"`
}

// Snapshot is the whole-index JSON artifact written after every merge. It is
// the authoritative recovery point for the database.
type Snapshot struct {
	Sessions  []*SessionRecord `json:"sessions"`
	Entities  []*Entity        `json:"entities"`
	Mentions  []*Mention       `json:"mentions"`
	Links     []*Link          `json:"links"`
	Hooks     []*Hook          `json:"hooks"`
	UpdatedAt string           `json:"updatedAt"`
}

// Storer defines the interface for campaign persistence.
// SQLiteStore is the sole implementation.
type Storer interface {
	// Entities
	GetEntity(id string) (*Entity, error)
	GetEntityByKey(category Category, canonicalKey string) (*Entity, error)
	ListEntities(category Category) ([]*Entity, error)
	ListAllEntities() ([]*Entity, error)
	CountEntities(category Category) (int, error)

	// Sessions
	GetSession(id string) (*SessionRecord, error)
	GetSessionByDate(date string) (*SessionRecord, error)
	ListSessions() ([]*SessionRecord, error)
	LatestSessionBefore(date string) (*SessionRecord, error)
	CountSessions() (int, error)

	// Mentions and links
	EntitiesForSession(sessionID string) ([]*Entity, error)
	SessionsForEntity(entityID string) ([]*SessionRecord, error)
	LinkedEntities(entityID string) ([]*Entity, error)

	// Hooks
	OpenHooks() ([]*Hook, error)
	HooksForSession(sessionID string) ([]*Hook, error)

	// Merge write path. The entire apply commits atomically or not at all.
	ApplyMerge(apply *MergeApply) (*MergeOutcome, error)

	// Maintenance
	CheckIntegrity() ([]IntegrityIssue, error)

	// Export/Import (whole-index JSON snapshot)
	Export() ([]byte, error)
	Import(data []byte) error

	// Lifecycle
	Close() error
}
