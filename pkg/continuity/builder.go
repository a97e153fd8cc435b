// Package continuity assembles prior-session context for the next session:
// what happened last time, which hooks are still open, and what the campaign
// already knows. The output feeds the summarization prompt and the session
// note's Previously On section.
package continuity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kittclouds/campaignkit/internal/store"
	"github.com/kittclouds/campaignkit/pkg/pool"
)

// DefaultContinuityWindow bounds how many recent sessions feed the
// recent-entity snapshot when no window is configured.
const DefaultContinuityWindow = 10

// DefaultRecentEntityCap bounds RecentEntities when no cap is configured.
const DefaultRecentEntityCap = 25

// Index is the read surface the builder needs. *store.SQLiteStore satisfies it.
type Index interface {
	ListSessions() ([]*store.SessionRecord, error)
	ListEntities(category store.Category) ([]*store.Entity, error)
	EntitiesForSession(sessionID string) ([]*store.Entity, error)
	OpenHooks() ([]*store.Hook, error)
}

// RecentEntity names an entity seen in a recent session.
type RecentEntity struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	LastSeen string `json:"last_seen"`
}

// Memory is the campaign-memory snapshot: how much history exists and which
// entities are already registered.
type Memory struct {
	SessionCount    int      `json:"historical_session_count"`
	KnownCharacters []string `json:"known_characters"`
	KnownLocations  []string `json:"known_locations"`
	KnownFactions   []string `json:"known_factions"`
}

// Context carries everything the next session needs to know about the
// campaign so far. Field names follow the summary JSON schema so the block
// can be pasted straight into a summarization exchange.
type Context struct {
	AsOf              string         `json:"as_of,omitempty"`
	PreviousTitle     string         `json:"session_title"`
	PreviousDate      string         `json:"session_date"`
	PreviouslyOn      string         `json:"previously_on"`
	PreviousNarrative string         `json:"last_session_narrative"`
	OpenHooks         []string       `json:"unresolved_hooks"`
	RecentEntities    []RecentEntity `json:"recent_entities"`
	Memory            Memory         `json:"campaign_memory"`
}

// Builder reads the index and produces continuity contexts.
type Builder struct {
	idx       Index
	window    int
	recentCap int
}

// New creates a builder. window bounds how many recent sessions contribute
// entities; recentCap bounds RecentEntities and the known-name lists. Values
// <= 0 fall back to the package defaults.
func New(idx Index, window, recentCap int) *Builder {
	if window <= 0 {
		window = DefaultContinuityWindow
	}
	if recentCap <= 0 {
		recentCap = DefaultRecentEntityCap
	}
	return &Builder{idx: idx, window: window, recentCap: recentCap}
}

// Build assembles the continuity context. When asOf is a session date, only
// sessions strictly before it contribute; an empty asOf uses the whole index.
func (b *Builder) Build(asOf string) (*Context, error) {
	sessions, err := b.idx.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var history []*store.SessionRecord
	for _, rec := range sessions {
		if asOf == "" || rec.Date < asOf {
			history = append(history, rec)
		}
	}

	ctx := &Context{AsOf: asOf}
	if len(history) > 0 {
		prev := history[len(history)-1]
		ctx.PreviousTitle = prev.Title
		ctx.PreviousDate = prev.Date
		ctx.PreviousNarrative = prev.Narrative
		ctx.PreviouslyOn = PreviouslyOnText(prev, asOf)
	} else {
		ctx.PreviouslyOn = PreviouslyOnText(nil, asOf)
	}

	if err := b.fillHooks(ctx, history); err != nil {
		return nil, err
	}
	if err := b.fillRecentEntities(ctx, history); err != nil {
		return nil, err
	}
	if err := b.fillMemory(ctx, history, asOf); err != nil {
		return nil, err
	}
	return ctx, nil
}

// PreviouslyOnText picks the recap line for a prior session record: its own
// Previously On when present, else its narrative, else its plain summary.
// A nil record yields a deterministic no-history line.
func PreviouslyOnText(prev *store.SessionRecord, asOf string) string {
	if prev != nil {
		for _, candidate := range []string{prev.PreviouslyOn, prev.Narrative, prev.PlainSummary} {
			if text := strings.TrimSpace(candidate); text != "" {
				return text
			}
		}
	}
	if asOf != "" {
		return fmt.Sprintf("No prior session recorded before %s.", asOf)
	}
	return "No prior session recorded."
}

// PromptBlock renders the context as the deterministic text block placed
// ahead of a transcript when prompting a summarization provider.
func (c *Context) PromptBlock() string {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	buf.WriteString("Previous session context:\n")
	if c.PreviousDate == "" {
		buf.WriteString("No prior session recorded.\n")
	} else {
		fmt.Fprintf(buf, "Previous session: %s (%s)\n", c.PreviousTitle, c.PreviousDate)
		fmt.Fprintf(buf, "Previously on: %s\n", c.PreviouslyOn)
	}

	buf.WriteString("Unresolved hooks:\n")
	if len(c.OpenHooks) == 0 {
		buf.WriteString("- None\n")
	}
	for _, hook := range c.OpenHooks {
		fmt.Fprintf(buf, "- %s\n", hook)
	}

	fmt.Fprintf(buf, "Campaign memory: %d prior sessions, %d characters, %d locations, %d factions.\n",
		c.Memory.SessionCount,
		len(c.Memory.KnownCharacters),
		len(c.Memory.KnownLocations),
		len(c.Memory.KnownFactions))
	if len(c.Memory.KnownCharacters) > 0 {
		fmt.Fprintf(buf, "Known characters: %s\n", strings.Join(c.Memory.KnownCharacters, ", "))
	}
	if len(c.Memory.KnownLocations) > 0 {
		fmt.Fprintf(buf, "Known locations: %s\n", strings.Join(c.Memory.KnownLocations, ", "))
	}
	if len(c.Memory.KnownFactions) > 0 {
		fmt.Fprintf(buf, "Known factions: %s\n", strings.Join(c.Memory.KnownFactions, ", "))
	}
	return buf.String()
}

// fillHooks gathers open hooks raised by history sessions, newest session
// first, payload order within a session.
func (b *Builder) fillHooks(ctx *Context, history []*store.SessionRecord) error {
	hooks, err := b.idx.OpenHooks()
	if err != nil {
		return fmt.Errorf("open hooks: %w", err)
	}

	dates := make(map[string]string, len(history))
	for _, rec := range history {
		dates[rec.ID] = rec.Date
	}

	var kept []*store.Hook
	for _, h := range hooks {
		if _, ok := dates[h.SessionID]; ok {
			kept = append(kept, h)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		di, dj := dates[kept[i].SessionID], dates[kept[j].SessionID]
		if di != dj {
			return di > dj
		}
		return kept[i].Ord < kept[j].Ord
	})

	for _, h := range kept {
		ctx.OpenHooks = append(ctx.OpenHooks, h.Text)
	}
	return nil
}

// fillRecentEntities walks the last window sessions newest first, collecting
// mentioned entities up to the cap, deduplicated by category and canonical
// key.
func (b *Builder) fillRecentEntities(ctx *Context, history []*store.SessionRecord) error {
	floor := len(history) - b.window
	if floor < 0 {
		floor = 0
	}

	seen := make(map[string]bool)
	for i := len(history) - 1; i >= floor && len(ctx.RecentEntities) < b.recentCap; i-- {
		rec := history[i]
		entities, err := b.idx.EntitiesForSession(rec.ID)
		if err != nil {
			return fmt.Errorf("entities for %s: %w", rec.Date, err)
		}
		for _, e := range entities {
			key := string(e.Category) + "/" + e.CanonicalKey
			if seen[key] {
				continue
			}
			seen[key] = true
			ctx.RecentEntities = append(ctx.RecentEntities, RecentEntity{
				Name:     e.CanonicalName,
				Category: string(e.Category),
				LastSeen: rec.Date,
			})
			if len(ctx.RecentEntities) >= b.recentCap {
				break
			}
		}
	}
	return nil
}

func (b *Builder) fillMemory(ctx *Context, history []*store.SessionRecord, asOf string) error {
	ctx.Memory.SessionCount = len(history)

	var err error
	if ctx.Memory.KnownCharacters, err = b.knownNames(store.CategoryCharacter, asOf); err != nil {
		return err
	}
	if ctx.Memory.KnownLocations, err = b.knownNames(store.CategoryLocation, asOf); err != nil {
		return err
	}
	if ctx.Memory.KnownFactions, err = b.knownNames(store.CategoryFaction, asOf); err != nil {
		return err
	}
	return nil
}

// knownNames lists canonical names for a category, alphabetical by canonical
// key, bounded by the cap. With asOf set, entities first seen on or after
// that date are excluded.
func (b *Builder) knownNames(category store.Category, asOf string) ([]string, error) {
	entities, err := b.idx.ListEntities(category)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", category.Dir(), err)
	}

	var names []string
	for _, e := range entities {
		if asOf != "" && e.CreatedSession != "" && e.CreatedSession >= asOf {
			continue
		}
		names = append(names, e.CanonicalName)
		if len(names) >= b.recentCap {
			break
		}
	}
	return names, nil
}
