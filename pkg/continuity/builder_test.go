package continuity

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/campaignkit/internal/store"
)

type fakeIndex struct {
	sessions []*store.SessionRecord
	byCat    map[store.Category][]*store.Entity
	mentions map[string][]*store.Entity
	open     []*store.Hook
}

func (f *fakeIndex) ListSessions() ([]*store.SessionRecord, error) { return f.sessions, nil }
func (f *fakeIndex) ListEntities(c store.Category) ([]*store.Entity, error) {
	return f.byCat[c], nil
}
func (f *fakeIndex) EntitiesForSession(id string) ([]*store.Entity, error) {
	return f.mentions[id], nil
}
func (f *fakeIndex) OpenHooks() ([]*store.Hook, error) { return f.open, nil }

func fixtureIndex() *fakeIndex {
	docks := &store.SessionRecord{
		ID:        "s1",
		Title:     "The Docks Job",
		Date:      "2026-02-06",
		Narrative: "The crew robbed the docks.",
	}
	tower := &store.SessionRecord{
		ID:           "s2",
		Title:        "The Ruined Watchtower",
		Date:         "2026-02-13",
		PreviouslyOn: "Last time: docks.",
		Narrative:    "Climbed the tower.",
	}

	elara := &store.Entity{ID: "char1", Category: store.CategoryCharacter,
		CanonicalName: "Elara Voss", CanonicalKey: "elara voss", CreatedSession: "2026-02-06"}
	bram := &store.Entity{ID: "char2", Category: store.CategoryCharacter,
		CanonicalName: "Bram Oakhide", CanonicalKey: "bram oakhide", CreatedSession: "2026-02-13"}
	docksLoc := &store.Entity{ID: "loc1", Category: store.CategoryLocation,
		CanonicalName: "Greyfall Docks", CanonicalKey: "greyfall docks", CreatedSession: "2026-02-06"}
	towerLoc := &store.Entity{ID: "loc2", Category: store.CategoryLocation,
		CanonicalName: "Ruined Watchtower", CanonicalKey: "ruined watchtower", CreatedSession: "2026-02-13"}
	blades := &store.Entity{ID: "fac1", Category: store.CategoryFaction,
		CanonicalName: "Crimson Blade Company", CanonicalKey: "crimson blade company", CreatedSession: "2026-02-13"}

	return &fakeIndex{
		sessions: []*store.SessionRecord{docks, tower},
		byCat: map[store.Category][]*store.Entity{
			store.CategoryCharacter: {bram, elara},
			store.CategoryLocation:  {docksLoc, towerLoc},
			store.CategoryFaction:   {blades},
		},
		mentions: map[string][]*store.Entity{
			"s1": {elara, docksLoc},
			"s2": {elara, bram, towerLoc, blades},
		},
		open: []*store.Hook{
			{ID: "h1", SessionID: "s1", Text: "Who hired the smugglers?", Status: store.HookOpen},
			{ID: "h2", SessionID: "s2", Text: "Who was at the tower before the party arrived?", Status: store.HookOpen},
		},
	}
}

func TestBuildFullIndex(t *testing.T) {
	ctx, err := New(fixtureIndex(), 0, 0).Build("")
	require.NoError(t, err)

	require.Equal(t, "The Ruined Watchtower", ctx.PreviousTitle)
	require.Equal(t, "2026-02-13", ctx.PreviousDate)
	require.Equal(t, "Last time: docks.", ctx.PreviouslyOn)
	require.Equal(t, "Climbed the tower.", ctx.PreviousNarrative)

	require.Equal(t, []string{
		"Who was at the tower before the party arrived?",
		"Who hired the smugglers?",
	}, ctx.OpenHooks)

	require.Equal(t, 2, ctx.Memory.SessionCount)
	require.Equal(t, []string{"Bram Oakhide", "Elara Voss"}, ctx.Memory.KnownCharacters)
	require.Equal(t, []string{"Greyfall Docks", "Ruined Watchtower"}, ctx.Memory.KnownLocations)
	require.Equal(t, []string{"Crimson Blade Company"}, ctx.Memory.KnownFactions)
}

func TestBuildRecentEntitiesNewestFirst(t *testing.T) {
	ctx, err := New(fixtureIndex(), 0, 0).Build("")
	require.NoError(t, err)

	require.Len(t, ctx.RecentEntities, 5)
	require.Equal(t, RecentEntity{Name: "Elara Voss", Category: "character", LastSeen: "2026-02-13"},
		ctx.RecentEntities[0])
	require.Equal(t, RecentEntity{Name: "Greyfall Docks", Category: "location", LastSeen: "2026-02-06"},
		ctx.RecentEntities[4])
}

func TestBuildRespectsRecentEntityCap(t *testing.T) {
	ctx, err := New(fixtureIndex(), 0, 3).Build("")
	require.NoError(t, err)

	require.Len(t, ctx.RecentEntities, 3)
	require.Equal(t, "Elara Voss", ctx.RecentEntities[0].Name)
	require.Equal(t, "Bram Oakhide", ctx.RecentEntities[1].Name)
	require.Equal(t, "Ruined Watchtower", ctx.RecentEntities[2].Name)
}

func TestBuildWindowLimitsContributingSessions(t *testing.T) {
	ctx, err := New(fixtureIndex(), 1, 0).Build("")
	require.NoError(t, err)

	require.Len(t, ctx.RecentEntities, 4)
	for _, re := range ctx.RecentEntities {
		require.Equal(t, "2026-02-13", re.LastSeen)
	}
}

func TestBuildAsOfExcludesLaterSessions(t *testing.T) {
	ctx, err := New(fixtureIndex(), 0, 0).Build("2026-02-13")
	require.NoError(t, err)

	require.Equal(t, "The Docks Job", ctx.PreviousTitle)
	require.Equal(t, "2026-02-06", ctx.PreviousDate)
	require.Equal(t, "The crew robbed the docks.", ctx.PreviouslyOn)

	require.Equal(t, []string{"Who hired the smugglers?"}, ctx.OpenHooks)
	require.Equal(t, 1, ctx.Memory.SessionCount)
	require.Equal(t, []string{"Elara Voss"}, ctx.Memory.KnownCharacters)
	require.Equal(t, []string{"Greyfall Docks"}, ctx.Memory.KnownLocations)
	require.Empty(t, ctx.Memory.KnownFactions)

	require.Len(t, ctx.RecentEntities, 2)
	require.Equal(t, "Elara Voss", ctx.RecentEntities[0].Name)
	require.Equal(t, "Greyfall Docks", ctx.RecentEntities[1].Name)
}

func TestBuildEmptyIndex(t *testing.T) {
	empty := &fakeIndex{}

	ctx, err := New(empty, 0, 0).Build("")
	require.NoError(t, err)
	require.Empty(t, ctx.PreviousDate)
	require.Equal(t, "No prior session recorded.", ctx.PreviouslyOn)
	require.Empty(t, ctx.OpenHooks)
	require.Zero(t, ctx.Memory.SessionCount)

	ctx, err = New(empty, 0, 0).Build("2026-02-13")
	require.NoError(t, err)
	require.Equal(t, "No prior session recorded before 2026-02-13.", ctx.PreviouslyOn)
}

func TestPreviouslyOnTextFallbackChain(t *testing.T) {
	rec := &store.SessionRecord{
		PreviouslyOn: "Explicit recap.",
		Narrative:    "Narrative text.",
		PlainSummary: "Summary text.",
	}
	require.Equal(t, "Explicit recap.", PreviouslyOnText(rec, ""))

	rec.PreviouslyOn = ""
	require.Equal(t, "Narrative text.", PreviouslyOnText(rec, ""))

	rec.Narrative = "  "
	require.Equal(t, "Summary text.", PreviouslyOnText(rec, ""))

	rec.PlainSummary = ""
	require.Equal(t, "No prior session recorded before 2026-03-01.", PreviouslyOnText(rec, "2026-03-01"))
}

func TestPromptBlock(t *testing.T) {
	ctx, err := New(fixtureIndex(), 0, 0).Build("")
	require.NoError(t, err)

	block := ctx.PromptBlock()
	require.True(t, strings.HasPrefix(block, "Previous session context:\n"))
	require.Contains(t, block, "Previous session: The Ruined Watchtower (2026-02-13)")
	require.Contains(t, block, "Previously on: Last time: docks.")
	require.Contains(t, block, "- Who hired the smugglers?")
	require.Contains(t, block, "Campaign memory: 2 prior sessions, 2 characters, 2 locations, 1 factions.")
	require.Contains(t, block, "Known characters: Bram Oakhide, Elara Voss")
}

func TestPromptBlockEmptyContext(t *testing.T) {
	ctx, err := New(&fakeIndex{}, 0, 0).Build("")
	require.NoError(t, err)

	block := ctx.PromptBlock()
	require.Contains(t, block, "No prior session recorded.")
	require.Contains(t, block, "Unresolved hooks:\n- None\n")
	require.Contains(t, block, "Campaign memory: 0 prior sessions")
}

func TestContextJSONUsesSchemaKeys(t *testing.T) {
	ctx, err := New(fixtureIndex(), 0, 0).Build("")
	require.NoError(t, err)

	data, err := json.Marshal(ctx)
	require.NoError(t, err)
	for _, key := range []string{
		`"session_title"`, `"previously_on"`, `"last_session_narrative"`,
		`"unresolved_hooks"`, `"recent_entities"`, `"historical_session_count"`,
		`"known_characters"`,
	} {
		require.Contains(t, string(data), key)
	}
}
