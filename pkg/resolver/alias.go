package resolver

import (
	"strings"

	"github.com/kittclouds/campaignkit/internal/store"
)

// honorifics are leading title tokens dropped when deriving short aliases
// for characters. "Lady Harrow" gains the alias "harrow", not "lady".
var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sir": true, "dame": true, "lady": true, "lord": true,
	"king": true, "queen": true, "prince": true, "princess": true,
	"captain": true, "commander": true, "general": true, "sergeant": true,
	"elder": true, "master": true, "mistress": true, "brother": true,
	"sister": true, "father": true, "mother": true, "saint": true,
	"the": true,
}

// factionSuffixes are trailing group words. "Crimson Blade Company" gains
// the alias "crimson blade".
var factionSuffixes = []string{
	"company", "guild", "order", "circle", "brotherhood", "sisterhood",
	"clan", "crew", "gang", "band", "league", "cult", "court", "army",
	"legion", "syndicate", "pact",
}

// AutoAliases derives extra surface forms from a canonical name. Only
// high-confidence shortenings are generated; anything speculative creates
// duplicate entities instead of wrong merges, which is the cheaper failure.
func AutoAliases(name string, category store.Category) []string {
	toks := tokens(Canonicalize(name))
	if len(toks) <= 1 {
		return nil
	}

	var out []string
	switch category {
	case store.CategoryCharacter:
		out = characterAliases(toks)
	case store.CategoryFaction:
		out = factionAliases(toks)
	case store.CategoryLocation:
		// First token alone: "Greyfall Docks" -> "greyfall".
		if !honorifics[toks[0]] && len(toks[0]) >= 4 {
			out = append(out, toks[0])
		}
	}
	// Events keep their full names. Shortened event names collide too
	// easily across sessions.
	return out
}

func characterAliases(toks []string) []string {
	significant := make([]string, 0, len(toks))
	for _, tok := range toks {
		if !honorifics[tok] {
			significant = append(significant, tok)
		}
	}
	if len(significant) == 0 {
		return nil
	}

	first := significant[0]
	last := significant[len(significant)-1]

	var out []string
	if len(significant) > 1 || len(toks) > len(significant) {
		if len(last) >= 3 {
			out = appendUnique(out, last)
		}
	}
	if len(significant) >= 3 && first != last {
		out = appendUnique(out, first+" "+last)
	}
	if len(significant) >= 2 && len(first) >= 4 && first != last {
		out = appendUnique(out, first)
	}
	return out
}

func factionAliases(toks []string) []string {
	var out []string

	var acronym strings.Builder
	for _, tok := range toks {
		if honorifics[tok] {
			continue
		}
		acronym.WriteByte(tok[0])
	}
	if acronym.Len() >= 2 && acronym.Len() <= 5 {
		out = appendUnique(out, acronym.String())
	}

	last := toks[len(toks)-1]
	for _, suffix := range factionSuffixes {
		if last == suffix && len(toks) >= 2 {
			out = appendUnique(out, strings.Join(toks[:len(toks)-1], " "))
			break
		}
	}
	return out
}

func appendUnique(slice []string, item string) []string {
	for _, s := range slice {
		if s == item {
			return slice
		}
	}
	return append(slice, item)
}
