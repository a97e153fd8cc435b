package resolver

import (
	"testing"

	"github.com/kittclouds/campaignkit/internal/store"
)

func TestDictionaryScanFindsKnownNames(t *testing.T) {
	dict, err := BuildDictionary([]*store.Entity{
		testEntity("char1", store.CategoryCharacter, "Elara Voss"),
		testEntity("loc1", store.CategoryLocation, "Ruined Watchtower"),
		testEntity("char2", store.CategoryCharacter, "Bram"),
	})
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}

	narrative := "Elara Voss led Bram up to the Ruined Watchtower. Later, Elara Voss kept watch."
	found := dict.FoundEntities(narrative)

	if len(found) != 3 {
		t.Fatalf("expected 3 distinct entities, got %d", len(found))
	}
	// First-occurrence order, repeats collapsed.
	if found[0].ID != "char1" || found[1].ID != "char2" || found[2].ID != "loc1" {
		t.Errorf("unexpected order: %s, %s, %s", found[0].ID, found[1].ID, found[2].ID)
	}
}

func TestDictionaryScanRespectsTokenBoundaries(t *testing.T) {
	dict, err := BuildDictionary([]*store.Entity{
		testEntity("char1", store.CategoryCharacter, "Ash"),
	})
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}

	if found := dict.FoundEntities("The ashes of the old camp."); len(found) != 0 {
		t.Errorf("expected no match inside a longer word, got %d", len(found))
	}
	if found := dict.FoundEntities("Ash stood by the fire."); len(found) != 1 {
		t.Errorf("expected whole-word match, got %d", len(found))
	}
	if found := dict.FoundEntities("They followed Ash."); len(found) != 1 {
		t.Errorf("expected sentence-final match, got %d", len(found))
	}
	if found := dict.FoundEntities("Ash's pack was gone."); len(found) != 1 {
		t.Errorf("expected possessive match, got %d", len(found))
	}
}

func TestDictionaryScanMatchesAliases(t *testing.T) {
	dict, err := BuildDictionary([]*store.Entity{
		testEntity("char1", store.CategoryCharacter, "Lady Harrow", "The Widow"),
	})
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}

	// Stored alias and auto-alias both hit the same entity.
	for _, text := range []string{"The Widow watched.", "Harrow watched."} {
		found := dict.FoundEntities(text)
		if len(found) != 1 || found[0].ID != "char1" {
			t.Errorf("expected char1 for %q, got %v", text, found)
		}
	}
}

func TestDictionarySharedSurfacePrefersCharacter(t *testing.T) {
	dict, err := BuildDictionary([]*store.Entity{
		testEntity("fac1", store.CategoryFaction, "Blackwood"),
		testEntity("char1", store.CategoryCharacter, "Blackwood"),
	})
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}

	found := dict.FoundEntities("Blackwood returned at dusk.")
	if len(found) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(found))
	}
	if found[0].ID != "char1" {
		t.Errorf("expected character to win the shared surface, got %s", found[0].ID)
	}
}

func TestDictionaryLookup(t *testing.T) {
	dict, err := BuildDictionary([]*store.Entity{
		testEntity("loc1", store.CategoryLocation, "The Gilded Anchor"),
	})
	if err != nil {
		t.Fatalf("BuildDictionary failed: %v", err)
	}

	results := dict.Lookup("the gilded ANCHOR")
	if len(results) != 1 || results[0].ID != "loc1" {
		t.Errorf("Lookup got %v, want loc1", results)
	}
	if results := dict.Lookup("unknown place"); len(results) != 0 {
		t.Errorf("expected no results for unknown surface, got %d", len(results))
	}
}
