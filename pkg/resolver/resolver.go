package resolver

import (
	"sort"
	"strings"

	"github.com/kittclouds/campaignkit/internal/store"
)

// MatchKind says which rung of the ladder produced a resolution.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchAlias
	MatchFuzzy
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchAlias:
		return "alias"
	case MatchFuzzy:
		return "fuzzy"
	}
	return "new"
}

// Resolution is the outcome of resolving one incoming name. Entity is nil
// exactly when Kind is MatchNone and a new entity should be registered.
type Resolution struct {
	Name   string
	Key    string
	Kind   MatchKind
	Entity *store.Entity
}

// IsNew reports whether the name resolved to no registered entity.
func (r Resolution) IsNew() bool {
	return r.Entity == nil
}

// Resolver resolves names against a snapshot of registered entities. The
// ladder runs exact key, then alias, then bounded fuzzy match; the first
// rung that produces an unambiguous winner decides. Matching never crosses
// categories.
type Resolver struct {
	threshold float64
	byKey     map[store.Category]map[string]*store.Entity
	byAlias   map[store.Category]map[string][]*store.Entity
}

// New builds a resolver over the given entities. threshold is the minimum
// similarity for the fuzzy rung.
func New(entities []*store.Entity, threshold float64) *Resolver {
	r := &Resolver{
		threshold: threshold,
		byKey:     make(map[store.Category]map[string]*store.Entity),
		byAlias:   make(map[store.Category]map[string][]*store.Entity),
	}
	for _, e := range entities {
		r.Admit(e)
	}
	return r
}

// Admit indexes one entity. The merge pipeline calls this for entities it
// plans to create, so later names in the same batch resolve against them.
func (r *Resolver) Admit(e *store.Entity) {
	keys := r.byKey[e.Category]
	if keys == nil {
		keys = make(map[string]*store.Entity)
		r.byKey[e.Category] = keys
	}
	keys[e.CanonicalKey] = e

	aliases := r.byAlias[e.Category]
	if aliases == nil {
		aliases = make(map[string][]*store.Entity)
		r.byAlias[e.Category] = aliases
	}

	surfaces := append([]string{}, e.Aliases...)
	surfaces = append(surfaces, AutoAliases(e.CanonicalName, e.Category)...)
	for _, surface := range surfaces {
		key := Canonicalize(surface)
		if key == "" || key == e.CanonicalKey {
			continue
		}
		aliases[key] = appendUniqueEntity(aliases[key], e)
	}
}

// Resolve runs the matching ladder for one name within a category.
func (r *Resolver) Resolve(category store.Category, name string) (Resolution, error) {
	key, err := Key(name)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Name: strings.TrimSpace(name), Key: key}

	if e, ok := r.byKey[category][key]; ok {
		res.Kind = MatchExact
		res.Entity = e
		return res, nil
	}

	// Alias hits shared by several entities are ambiguous. Skip the rung
	// rather than guess.
	if candidates := r.byAlias[category][key]; len(candidates) == 1 {
		res.Kind = MatchAlias
		res.Entity = candidates[0]
		return res, nil
	}

	if e := r.fuzzyMatch(category, key); e != nil {
		res.Kind = MatchFuzzy
		res.Entity = e
		return res, nil
	}

	return res, nil
}

// fuzzyMatch finds the best registered key within the similarity threshold.
// Multiword names must share their first token with the candidate, which
// keeps near-identical siblings like "North Gate" and "South Gate" apart.
func (r *Resolver) fuzzyMatch(category store.Category, key string) *store.Entity {
	keys := r.byKey[category]
	if len(keys) == 0 {
		return nil
	}

	candidates := make([]string, 0, len(keys))
	for k := range keys {
		candidates = append(candidates, k)
	}
	sort.Strings(candidates)

	bestScore := 0.0
	var best *store.Entity
	for _, candidate := range candidates {
		if !fuzzyCompatible(key, candidate) {
			continue
		}
		score := Similarity(key, candidate)
		if score >= r.threshold && score > bestScore {
			bestScore = score
			best = keys[candidate]
		}
	}
	return best
}

// fuzzyCompatible gates the fuzzy rung. Two single-token names may compare;
// two multiword names must agree on the first token; mixed shapes never
// compare.
func fuzzyCompatible(a, b string) bool {
	ai := strings.IndexByte(a, ' ')
	bi := strings.IndexByte(b, ' ')
	if ai == -1 && bi == -1 {
		return true
	}
	if ai == -1 || bi == -1 {
		return false
	}
	return a[:ai] == b[:bi]
}

// Similarity maps edit distance onto [0,1], where 1 is identical. Callers
// should compare canonicalized strings; hook resolution matching uses this
// with the same threshold as the fuzzy rung.
func Similarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshteinDistance(ra, rb))/float64(longest)
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		current := make([]int, len(b)+1)
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			ins := current[j-1] + 1
			del := prev[j] + 1
			sub := prev[j-1] + cost
			current[j] = min(ins, min(del, sub))
		}
		prev = current
	}

	return prev[len(b)]
}

func appendUniqueEntity(slice []*store.Entity, e *store.Entity) []*store.Entity {
	for _, existing := range slice {
		if existing.ID == e.ID {
			return slice
		}
	}
	return append(slice, e)
}
