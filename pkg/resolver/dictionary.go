package resolver

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"

	"github.com/kittclouds/campaignkit/internal/store"
)

// Dictionary scans narrative text for registered entity names with a single
// Aho-Corasick automaton over canonicalized surface forms.
type Dictionary struct {
	ac *ahocorasick.Automaton

	// Pattern index -> entity IDs (several entities may share a surface).
	patternToIDs [][]string

	// Canonical pattern -> pattern index.
	patternIndex map[string]int

	// Entity ID -> entity.
	idToEntity map[string]*store.Entity

	// All patterns in automaton order.
	patterns []string
}

// BuildDictionary compiles a dictionary from registered entities. Surface
// forms are each entity's canonical name, its stored aliases, and its
// auto-generated aliases, all canonicalized with the shared canonicalizer.
func BuildDictionary(entities []*store.Entity) (*Dictionary, error) {
	dict := &Dictionary{
		patternToIDs: [][]string{},
		patternIndex: make(map[string]int),
		idToEntity:   make(map[string]*store.Entity, len(entities)),
		patterns:     []string{},
	}

	for _, e := range entities {
		dict.idToEntity[e.ID] = e

		surfaces := []string{e.CanonicalName}
		surfaces = append(surfaces, e.Aliases...)
		surfaces = append(surfaces, AutoAliases(e.CanonicalName, e.Category)...)

		for _, surface := range surfaces {
			key := Canonicalize(surface)
			// Very short patterns drown scans in false hits.
			if utf8.RuneCountInString(key) < 3 {
				continue
			}

			if idx, exists := dict.patternIndex[key]; exists {
				dict.patternToIDs[idx] = appendUnique(dict.patternToIDs[idx], e.ID)
			} else {
				idx := len(dict.patterns)
				dict.patterns = append(dict.patterns, key)
				dict.patternIndex[key] = idx
				dict.patternToIDs = append(dict.patternToIDs, []string{e.ID})
			}
		}
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(dict.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	dict.ac = automaton

	return dict, nil
}

// Mention is one detected entity name in scanned text. Offsets index the
// canonicalized form of the input.
type Mention struct {
	Start     int
	End       int
	Surface   string
	EntityIDs []string
}

// Scan finds entity mentions in text. Matches must not butt against letters
// or digits in the canonicalized text, so "Ash" does not fire inside
// "Ashes" but still fires in "Ash." and "Ash's".
func (d *Dictionary) Scan(text string) []Mention {
	if d.ac == nil || len(d.patterns) == 0 {
		return nil
	}

	canonical := Canonicalize(text)
	haystack := []byte(canonical)

	matches := d.ac.FindAllOverlapping(haystack)
	result := make([]Mention, 0, len(matches))
	for _, m := range matches {
		if !onTokenBoundary(canonical, m.Start, m.End) {
			continue
		}
		result = append(result, Mention{
			Start:     m.Start,
			End:       m.End,
			Surface:   canonical[m.Start:m.End],
			EntityIDs: d.patternToIDs[m.PatternID],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Start != result[j].Start {
			return result[i].Start < result[j].Start
		}
		return result[i].End > result[j].End
	})
	return result
}

// FoundEntities returns the distinct entities mentioned in text, ordered by
// first occurrence. Overlapping matches keep only the longest span; when one
// surface form belongs to several entities the best category wins.
func (d *Dictionary) FoundEntities(text string) []*store.Entity {
	mentions := d.Scan(text)

	seen := make(map[string]struct{})
	var out []*store.Entity
	covered := -1
	for _, m := range mentions {
		// Skip matches nested inside an already-accepted span.
		if m.End <= covered {
			continue
		}
		covered = m.End

		e := d.bestEntity(m.EntityIDs)
		if e == nil {
			continue
		}
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}

// bestEntity picks the highest-priority entity for a shared surface form,
// breaking ties by canonical name then ID so scans stay deterministic.
func (d *Dictionary) bestEntity(ids []string) *store.Entity {
	var best *store.Entity
	for _, id := range ids {
		e := d.idToEntity[id]
		if e == nil {
			continue
		}
		if best == nil {
			best = e
			continue
		}
		if e.Category.Priority() != best.Category.Priority() {
			if e.Category.Priority() < best.Category.Priority() {
				best = e
			}
			continue
		}
		if e.CanonicalName != best.CanonicalName {
			if e.CanonicalName < best.CanonicalName {
				best = e
			}
			continue
		}
		if e.ID < best.ID {
			best = e
		}
	}
	return best
}

// Lookup finds entities whose surface forms match the given text exactly.
func (d *Dictionary) Lookup(surface string) []*store.Entity {
	key := Canonicalize(surface)
	idx, exists := d.patternIndex[key]
	if !exists {
		return nil
	}

	ids := d.patternToIDs[idx]
	result := make([]*store.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := d.idToEntity[id]; ok {
			result = append(result, e)
		}
	}
	return result
}

// onTokenBoundary reports whether the runes adjacent to [start,end) are
// non-word characters. Joiners like '.' and the possessive apostrophe
// delimit; letters and digits bind.
func onTokenBoundary(canonical string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(canonical[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(canonical) {
		r, _ := utf8.DecodeRuneInString(canonical[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
