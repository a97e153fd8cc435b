package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/kittclouds/campaignkit/internal/store"
	"github.com/kittclouds/campaignkit/internal/vault"
	"github.com/kittclouds/campaignkit/pkg/pool"
)

// Index is the read surface the renderer needs. *store.SQLiteStore
// satisfies it.
type Index interface {
	ListSessions() ([]*store.SessionRecord, error)
	ListAllEntities() ([]*store.Entity, error)
	EntitiesForSession(sessionID string) ([]*store.Entity, error)
	SessionsForEntity(entityID string) ([]*store.SessionRecord, error)
	LinkedEntities(entityID string) ([]*store.Entity, error)
	HooksForSession(sessionID string) ([]*store.Hook, error)
}

// Renderer regenerates markdown notes from the index.
type Renderer struct {
	idx Index
}

// New creates a renderer over an index.
func New(idx Index) *Renderer {
	return &Renderer{idx: idx}
}

// Pages renders every session and entity note into a PageSet.
func (r *Renderer) Pages() (*PageSet, error) {
	ps := NewPageSet()

	sessions, err := r.idx.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	for _, rec := range sessions {
		page, err := r.SessionPage(rec)
		if err != nil {
			return nil, err
		}
		ps.Add("sessions/"+rec.Slug+".md", page)
	}

	entities, err := r.idx.ListAllEntities()
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	for _, e := range entities {
		page, err := r.EntityPage(e)
		if err != nil {
			return nil, err
		}
		ps.Add(e.Category.Dir()+"/"+vault.NoteFilename(e.CanonicalName), page)
	}

	return ps, nil
}

// SessionPage renders one session note.
func (r *Renderer) SessionPage(rec *store.SessionRecord) ([]byte, error) {
	mentions, err := r.idx.EntitiesForSession(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("mentions for %s: %w", rec.Date, err)
	}
	hooks, err := r.idx.HooksForSession(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("hooks for %s: %w", rec.Date, err)
	}
	return SessionNote(rec, mentions, hooks), nil
}

// SessionNote renders a session record into Obsidian-friendly markdown.
func SessionNote(rec *store.SessionRecord, mentions []*store.Entity, hooks []*store.Hook) []byte {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	fmt.Fprintf(buf, "# %s\n\n", rec.Title)
	fmt.Fprintf(buf, "Date: %s\n", rec.Date)
	if rec.TranscriptPath != "" {
		fmt.Fprintf(buf, "Transcript: `%s`\n", rec.TranscriptPath)
	}
	if rec.AudioPath != "" {
		fmt.Fprintf(buf, "Audio: `%s`\n", rec.AudioPath)
	}
	fmt.Fprintf(buf, "Updated: %s\n", formatStamp(rec.UpdatedAt))

	if rec.PreviouslyOn != "" {
		fmt.Fprintf(buf, "\n## Previously On\n%s\n", rec.PreviouslyOn)
	}

	fmt.Fprintf(buf, "\n## Last Session Narrative\n%s\n", orFallback(rec.Narrative, "No narrative available."))
	fmt.Fprintf(buf, "\n## Plain Text Summary\n%s\n", orFallback(rec.PlainSummary, "No summary available."))

	buf.WriteString("\n## Unresolved Hooks\n")
	if len(hooks) == 0 {
		buf.WriteString("- None\n")
	}
	for _, h := range hooks {
		if h.Status == store.HookResolved && h.ResolvedBy != "" {
			fmt.Fprintf(buf, "- %s (resolved %s)\n", h.Text, h.ResolvedBy)
		} else {
			fmt.Fprintf(buf, "- %s\n", h.Text)
		}
	}

	buf.WriteString("\n## Linked Entities\n")
	for _, category := range store.Categories {
		links := pool.GetStringSlice()
		for _, e := range mentions {
			if e.Category == category {
				links = append(links, "[["+e.CanonicalName+"]]")
			}
		}
		if len(links) > 0 {
			fmt.Fprintf(buf, "%s: %s\n", category.Title(), strings.Join(links, " "))
		}
		pool.PutStringSlice(links)
	}

	if rec.BacklinkBlock != "" {
		fmt.Fprintf(buf, "\n## Backlinks\n%s\n", rec.BacklinkBlock)
	}

	return copyBytes(buf.Bytes())
}

// EntityPage renders one entity note.
func (r *Renderer) EntityPage(e *store.Entity) ([]byte, error) {
	sessions, err := r.idx.SessionsForEntity(e.ID)
	if err != nil {
		return nil, fmt.Errorf("sessions for %s: %w", e.CanonicalName, err)
	}
	linked, err := r.idx.LinkedEntities(e.ID)
	if err != nil {
		return nil, fmt.Errorf("links for %s: %w", e.CanonicalName, err)
	}
	return EntityNote(e, sessions, linked), nil
}

// EntityNote renders an entity record into markdown. Mentions run in
// chronological order; related entities group by category, alphabetically
// within each.
func EntityNote(e *store.Entity, sessions []*store.SessionRecord, linked []*store.Entity) []byte {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	fmt.Fprintf(buf, "# %s\n\n", e.CanonicalName)
	fmt.Fprintf(buf, "Category: %s\n", e.Category.Label())
	if len(e.Aliases) > 0 {
		fmt.Fprintf(buf, "Aliases: %s\n", strings.Join(e.Aliases, ", "))
	}
	if e.CreatedSession != "" {
		fmt.Fprintf(buf, "First seen: %s\n", e.CreatedSession)
	}

	if e.Description != "" {
		fmt.Fprintf(buf, "\n%s\n", e.Description)
	}

	buf.WriteString("\n## Mentions\n")
	if len(sessions) == 0 {
		buf.WriteString("- None\n")
	}
	for _, rec := range sessions {
		fmt.Fprintf(buf, "- [[%s]] (%s)\n", rec.Title, rec.Date)
	}

	if len(linked) > 0 {
		buf.WriteString("\n## Related\n")
		for _, category := range store.Categories {
			links := pool.GetStringSlice()
			for _, other := range linked {
				if other.Category == category {
					links = append(links, "[["+other.CanonicalName+"]]")
				}
			}
			if len(links) > 0 {
				fmt.Fprintf(buf, "%s: %s\n", category.Title(), strings.Join(links, " "))
			}
			pool.PutStringSlice(links)
		}
	}

	return copyBytes(buf.Bytes())
}

// formatStamp renders a unix-milli timestamp the way session notes show it.
func formatStamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05") + " UTC"
}

func orFallback(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
