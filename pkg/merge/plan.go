package merge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/kittclouds/campaignkit/internal/errors"
	"github.com/kittclouds/campaignkit/internal/store"
	"github.com/kittclouds/campaignkit/internal/vault"
	"github.com/kittclouds/campaignkit/pkg/resolver"
	"github.com/kittclouds/campaignkit/pkg/summary"
)

// plan builds the full write set for one summary against current index
// state. All reads happen here; the store applies the result in a single
// transaction. Any resolution failure aborts before a single write.
func (e *Engine) plan(s *summary.SessionSummary, prior *store.SessionRecord, hash string) (*store.MergeApply, error) {
	existing, err := e.store.ListAllEntities()
	if err != nil {
		return nil, apperrors.E(apperrors.CodeFatalIO, "merge.plan", err)
	}
	res := resolver.New(existing, e.threshold)

	now := time.Now().UnixMilli()
	rec := sessionRecord(s, prior, hash, now)

	writes, mentionIDs, seen, err := planEntities(s, res, now)
	if err != nil {
		return nil, err
	}

	scanSet := make([]*store.Entity, 0, len(existing)+len(writes))
	scanSet = append(scanSet, existing...)
	for _, w := range writes {
		if w.Create {
			scanSet = append(scanSet, w.Entity)
		}
	}
	mentionIDs = supplementMentions(s, scanSet, mentionIDs, seen)

	hooks := planHooks(s, rec, now)
	resolutions, err := e.matchResolutions(s)
	if err != nil {
		return nil, err
	}

	return &store.MergeApply{
		Session:         rec,
		ReplaceSession:  prior != nil,
		Entities:        writes,
		MentionOrder:    mentionIDs,
		Links:           linkPlan(mentionIDs, s.SessionDate),
		Hooks:           hooks,
		HookResolutions: resolutions,
	}, nil
}

// sessionRecord shapes the session row. New sessions get the date+title slug
// as their ID; overwrites keep the prior ID so mention and hook rows stay
// attached even when the title changed.
func sessionRecord(s *summary.SessionSummary, prior *store.SessionRecord, hash string, now int64) *store.SessionRecord {
	slug := vault.SessionSlug(s.SessionDate, s.SessionTitle)
	rec := &store.SessionRecord{
		ID:             slug,
		Slug:           slug,
		Title:          s.SessionTitle,
		Date:           s.SessionDate,
		PreviouslyOn:   s.PreviouslyOn,
		Narrative:      s.Narrative,
		PlainSummary:   s.PlainSummary,
		BacklinkBlock:  s.BacklinkBlock,
		TranscriptPath: s.TranscriptPath,
		AudioPath:      s.AudioPath,
		SourceHash:     hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if rec.BacklinkBlock == "" {
		rec.BacklinkBlock = s.BuildBacklinkBlock()
	}
	if prior != nil {
		rec.ID = prior.ID
		rec.CreatedAt = prior.CreatedAt
	}
	return rec
}

// planEntities resolves every listed name and shapes one EntityWrite per
// touched entity. Names that fold onto the same entity share a write.
// Returns the writes, the explicit mention order, and the mention set.
func planEntities(s *summary.SessionSummary, res *resolver.Resolver, now int64) ([]store.EntityWrite, []string, map[string]bool, error) {
	var writes []store.EntityWrite
	writeIndex := make(map[string]int)
	var order []string
	seen := make(map[string]bool)

	segment := descSegment(s)
	segHash := segmentHash(segment)

	lists := s.EntityLists()
	for i, category := range store.Categories {
		for _, name := range lists[i] {
			r, err := res.Resolve(category, name)
			if err != nil {
				// One malformed name rejects the whole merge.
				return nil, nil, nil, err
			}

			if r.IsNew() {
				entity := &store.Entity{
					ID:             generateID(),
					Category:       category,
					CanonicalName:  r.Name,
					CanonicalKey:   r.Key,
					Description:    segment,
					DescTailHash:   segHash,
					CreatedSession: s.SessionDate,
					CreatedAt:      now,
					UpdatedAt:      now,
				}
				res.Admit(entity)
				writeIndex[entity.ID] = len(writes)
				writes = append(writes, store.EntityWrite{
					Entity:        entity,
					Create:        true,
					AppendSegment: segment,
				})
				seen[entity.ID] = true
				order = append(order, entity.ID)
				continue
			}

			idx, planned := writeIndex[r.Entity.ID]
			if !planned {
				clone := cloneEntity(r.Entity)
				w := store.EntityWrite{Entity: clone}
				if clone.DescTailHash != segHash {
					if clone.Description == "" {
						clone.Description = segment
					} else {
						clone.Description += "\n" + segment
					}
					clone.DescTailHash = segHash
					w.AppendSegment = segment
				}
				clone.UpdatedAt = now
				idx = len(writes)
				writeIndex[clone.ID] = idx
				writes = append(writes, w)
			}

			w := &writes[idx]
			// A fuzzy hit is a surface form the index did not know. Store it
			// so the next session resolves it on the alias rung instead.
			if r.Kind == resolver.MatchFuzzy && addAlias(w.Entity, r.Name) {
				w.NewAliases = append(w.NewAliases, r.Name)
			}

			if !seen[w.Entity.ID] {
				seen[w.Entity.ID] = true
				order = append(order, w.Entity.ID)
			}
		}
	}

	return writes, order, seen, nil
}

// supplementMentions scans narrative and summary prose for registered names
// the entity lists left out. Found entities join the mention set after the
// explicit ones, in scan order. The scan is a supplement; a dictionary
// problem never fails a merge.
func supplementMentions(s *summary.SessionSummary, entities []*store.Entity, order []string, seen map[string]bool) []string {
	text := strings.TrimSpace(s.Narrative + "\n" + s.PlainSummary)
	if text == "" || len(entities) == 0 {
		return order
	}

	dict, err := resolver.BuildDictionary(entities)
	if err != nil {
		return order
	}
	for _, e := range dict.FoundEntities(resolver.Canonicalize(text)) {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		order = append(order, e.ID)
	}
	return order
}

// linkPlan emits both directed rows for every pair of co-mentioned entities.
func linkPlan(mentionIDs []string, date string) []store.Link {
	var links []store.Link
	for i, src := range mentionIDs {
		for _, dst := range mentionIDs[i+1:] {
			links = append(links,
				store.Link{SourceID: src, TargetID: dst, FirstSession: date},
				store.Link{SourceID: dst, TargetID: src, FirstSession: date})
		}
	}
	return links
}

// planHooks shapes inserts for the payload's unresolved hooks. The store
// dedupes on canonical key, so a re-raised hook never duplicates.
func planHooks(s *summary.SessionSummary, rec *store.SessionRecord, now int64) []store.HookWrite {
	var writes []store.HookWrite
	seen := make(map[string]bool)

	for _, text := range s.UnresolvedHooks {
		key := resolver.Canonicalize(text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		writes = append(writes, store.HookWrite{Hook: &store.Hook{
			ID:           generateID(),
			SessionID:    rec.ID,
			Text:         text,
			CanonicalKey: key,
			Status:       store.HookOpen,
			Ord:          len(writes),
			CreatedAt:    now,
		}})
	}
	return writes
}

// matchResolutions pairs the payload's resolution signals against open
// hooks: exact canonical key first, then best similarity at the resolver
// threshold. Signals that match nothing are dropped; open hooks are never
// resolved without a signal.
func (e *Engine) matchResolutions(s *summary.SessionSummary) ([]store.HookResolution, error) {
	if len(s.ResolvedHooks) == 0 {
		return nil, nil
	}

	open, err := e.store.OpenHooks()
	if err != nil {
		return nil, apperrors.E(apperrors.CodeFatalIO, "merge.plan", err)
	}

	var out []store.HookResolution
	taken := make(map[string]bool)
	for _, signal := range s.ResolvedHooks {
		key := resolver.Canonicalize(signal)
		if key == "" {
			continue
		}

		var match *store.Hook
		bestScore := 0.0
		for _, h := range open {
			if taken[h.ID] {
				continue
			}
			if h.CanonicalKey == key {
				match = h
				break
			}
			if score := resolver.Similarity(key, h.CanonicalKey); score >= e.threshold && score > bestScore {
				bestScore = score
				match = h
			}
		}
		if match != nil {
			taken[match.ID] = true
			out = append(out, store.HookResolution{HookID: match.ID, ResolvedBy: s.SessionDate})
		}
	}
	return out, nil
}

// descSegment is the description line a session contributes to each entity
// it mentions. The tail hash gates re-appending it.
func descSegment(s *summary.SessionSummary) string {
	return fmt.Sprintf("[%s] %s", s.SessionDate, s.SessionTitle)
}

func segmentHash(segment string) string {
	sum := sha256.Sum256([]byte(segment))
	return hex.EncodeToString(sum[:])
}

func cloneEntity(e *store.Entity) *store.Entity {
	clone := *e
	clone.Aliases = append([]string(nil), e.Aliases...)
	return &clone
}

// addAlias records a new surface form unless it duplicates the canonical
// name or an existing alias. Reports whether anything changed.
func addAlias(e *store.Entity, name string) bool {
	key := resolver.Canonicalize(name)
	if key == "" || key == e.CanonicalKey {
		return false
	}
	for _, existing := range e.Aliases {
		if resolver.Canonicalize(existing) == key {
			return false
		}
	}
	e.Aliases = append(e.Aliases, name)
	return true
}
