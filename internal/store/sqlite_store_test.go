package store

import (
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testApply(date string) *MergeApply {
	now := time.Now().UnixMilli()
	entity := &Entity{
		ID:             "char1",
		Category:       CategoryCharacter,
		CanonicalName:  "Elara Voss",
		CanonicalKey:   "elara voss",
		Description:    "[" + date + "] Climbed the tower.",
		CreatedSession: date,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	location := &Entity{
		ID:             "loc1",
		Category:       CategoryLocation,
		CanonicalName:  "Ruined Watchtower",
		CanonicalKey:   "ruined watchtower",
		CreatedSession: date,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return &MergeApply{
		Session: &SessionRecord{
			ID:         "sess1",
			Slug:       date + "-the-ruined-watchtower",
			Title:      "The Ruined Watchtower",
			Date:       date,
			Narrative:  "The party climbed the broken stair.",
			SourceHash: "hash-v1",
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		Entities: []EntityWrite{
			{Entity: entity, Create: true},
			{Entity: location, Create: true},
		},
		MentionOrder: []string{"char1", "loc1"},
		Links: []Link{
			{SourceID: "char1", TargetID: "loc1", FirstSession: date},
			{SourceID: "loc1", TargetID: "char1", FirstSession: date},
		},
		Hooks: []HookWrite{
			{Hook: &Hook{
				ID:           "hook1",
				SessionID:    "sess1",
				Text:         "Who was at the tower before the party arrived?",
				CanonicalKey: "who was at the tower before the party arrived",
				Status:       HookOpen,
				Ord:          0,
				CreatedAt:    now,
			}},
		},
	}
}

func TestApplyMergeCreatesEverything(t *testing.T) {
	s := newTestStore(t)

	outcome, err := s.ApplyMerge(testApply("2026-02-13"))
	if err != nil {
		t.Fatalf("ApplyMerge failed: %v", err)
	}
	if outcome.Overwrote {
		t.Error("expected first merge to not overwrite")
	}
	if len(outcome.CreatedEntities) != 2 {
		t.Errorf("expected 2 created entities, got %d", len(outcome.CreatedEntities))
	}
	if outcome.NewHooks != 1 {
		t.Errorf("expected 1 new hook, got %d", outcome.NewHooks)
	}
	if outcome.NewLinks != 1 {
		t.Errorf("expected 1 new link pair, got %d", outcome.NewLinks)
	}

	sess, err := s.GetSessionByDate("2026-02-13")
	if err != nil {
		t.Fatalf("GetSessionByDate failed: %v", err)
	}
	if sess == nil || sess.Title != "The Ruined Watchtower" {
		t.Fatalf("expected stored session, got %+v", sess)
	}

	entities, err := s.EntitiesForSession("sess1")
	if err != nil {
		t.Fatalf("EntitiesForSession failed: %v", err)
	}
	if len(entities) != 2 || entities[0].ID != "char1" || entities[1].ID != "loc1" {
		t.Errorf("expected mention order preserved, got %v", entities)
	}

	linked, err := s.LinkedEntities("char1")
	if err != nil {
		t.Fatalf("LinkedEntities failed: %v", err)
	}
	if len(linked) != 1 || linked[0].ID != "loc1" {
		t.Errorf("expected char1 linked to loc1, got %v", linked)
	}
}

func TestApplyMergeOverwriteReplacesMentions(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ApplyMerge(testApply("2026-02-13")); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}

	now := time.Now().UnixMilli()
	second := &MergeApply{
		Session: &SessionRecord{
			ID:         "sess1",
			Slug:       "2026-02-13-the-ruined-watchtower",
			Title:      "The Ruined Watchtower",
			Date:       "2026-02-13",
			SourceHash: "hash-v2",
			UpdatedAt:  now,
		},
		ReplaceSession: true,
		Entities: []EntityWrite{
			{Entity: &Entity{
				ID:             "char2",
				Category:       CategoryCharacter,
				CanonicalName:  "Bram",
				CanonicalKey:   "bram",
				CreatedSession: "2026-02-13",
				CreatedAt:      now,
				UpdatedAt:      now,
			}, Create: true},
		},
		MentionOrder: []string{"char1", "char2"},
		Hooks: []HookWrite{
			{Hook: &Hook{
				ID:           "hook2",
				SessionID:    "sess1",
				Text:         "Who was at the tower before the party arrived?",
				CanonicalKey: "who was at the tower before the party arrived",
				Status:       HookOpen,
				Ord:          0,
				CreatedAt:    now,
			}},
		},
	}

	outcome, err := s.ApplyMerge(second)
	if err != nil {
		t.Fatalf("overwrite merge failed: %v", err)
	}
	if !outcome.Overwrote {
		t.Error("expected overwrite outcome")
	}

	entities, err := s.EntitiesForSession("sess1")
	if err != nil {
		t.Fatalf("EntitiesForSession failed: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected replaced mention set of 2, got %d", len(entities))
	}
	if entities[1].ID != "char2" {
		t.Errorf("expected new mention for char2, got %s", entities[1].ID)
	}

	// The open hook from the first pass was cleared, then re-raised.
	hooks, err := s.OpenHooks()
	if err != nil {
		t.Fatalf("OpenHooks failed: %v", err)
	}
	if len(hooks) != 1 {
		t.Errorf("expected 1 open hook after overwrite, got %d", len(hooks))
	}
}

func TestApplyMergeRollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)

	apply := testApply("2026-02-13")
	// Duplicate mention rows violate the primary key mid-transaction.
	apply.MentionOrder = []string{"char1", "char1"}

	if _, err := s.ApplyMerge(apply); err == nil {
		t.Fatal("expected merge to fail on duplicate mention")
	}

	sess, err := s.GetSessionByDate("2026-02-13")
	if err != nil {
		t.Fatalf("GetSessionByDate failed: %v", err)
	}
	if sess != nil {
		t.Error("expected no partial session after rollback")
	}
	count, err := s.CountEntities("")
	if err != nil {
		t.Fatalf("CountEntities failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no partial entities after rollback, got %d", count)
	}
}

func TestHookDedupeAndResolution(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ApplyMerge(testApply("2026-02-13")); err != nil {
		t.Fatalf("first merge failed: %v", err)
	}

	now := time.Now().UnixMilli()
	second := &MergeApply{
		Session: &SessionRecord{
			ID:         "sess2",
			Slug:       "2026-02-20-return",
			Title:      "Return to the Tower",
			Date:       "2026-02-20",
			SourceHash: "hash-s2",
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		Hooks: []HookWrite{
			// Same canonical key as the hook raised by session one.
			{Hook: &Hook{
				ID:           "hook-dup",
				SessionID:    "sess2",
				Text:         "Who was at the tower before the party arrived?",
				CanonicalKey: "who was at the tower before the party arrived",
				Status:       HookOpen,
				Ord:          0,
				CreatedAt:    now,
			}},
		},
		HookResolutions: []HookResolution{
			{HookID: "hook1", ResolvedBy: "2026-02-20"},
		},
	}

	outcome, err := s.ApplyMerge(second)
	if err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	if outcome.NewHooks != 0 {
		t.Errorf("expected duplicate hook to be ignored, got %d new", outcome.NewHooks)
	}
	if outcome.ResolvedHooks != 1 {
		t.Errorf("expected 1 resolved hook, got %d", outcome.ResolvedHooks)
	}

	open, err := s.OpenHooks()
	if err != nil {
		t.Fatalf("OpenHooks failed: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("expected no open hooks after resolution, got %d", len(open))
	}

	hooks, err := s.HooksForSession("sess1")
	if err != nil {
		t.Fatalf("HooksForSession failed: %v", err)
	}
	if len(hooks) != 1 || hooks[0].Status != HookResolved || hooks[0].ResolvedBy != "2026-02-20" {
		t.Errorf("expected hook1 resolved by 2026-02-20, got %+v", hooks[0])
	}
}

func TestLatestSessionBefore(t *testing.T) {
	s := newTestStore(t)

	for _, date := range []string{"2026-01-30", "2026-02-06", "2026-02-13"} {
		apply := &MergeApply{
			Session: &SessionRecord{
				ID:         "sess-" + date,
				Slug:       date + "-session",
				Title:      "Session " + date,
				Date:       date,
				SourceHash: "hash-" + date,
				CreatedAt:  time.Now().UnixMilli(),
				UpdatedAt:  time.Now().UnixMilli(),
			},
		}
		if _, err := s.ApplyMerge(apply); err != nil {
			t.Fatalf("merge %s failed: %v", date, err)
		}
	}

	prev, err := s.LatestSessionBefore("2026-02-13")
	if err != nil {
		t.Fatalf("LatestSessionBefore failed: %v", err)
	}
	if prev == nil || prev.Date != "2026-02-06" {
		t.Fatalf("expected 2026-02-06, got %+v", prev)
	}

	prev, err = s.LatestSessionBefore("2026-01-01")
	if err != nil {
		t.Fatalf("LatestSessionBefore failed: %v", err)
	}
	if prev != nil {
		t.Errorf("expected nil before the first session, got %+v", prev)
	}
}

func TestGetEntityByKey(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ApplyMerge(testApply("2026-02-13")); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	e, err := s.GetEntityByKey(CategoryCharacter, "elara voss")
	if err != nil {
		t.Fatalf("GetEntityByKey failed: %v", err)
	}
	if e == nil || e.ID != "char1" {
		t.Fatalf("expected char1, got %+v", e)
	}

	// Same key, other category.
	e, err = s.GetEntityByKey(CategoryLocation, "elara voss")
	if err != nil {
		t.Fatalf("GetEntityByKey failed: %v", err)
	}
	if e != nil {
		t.Errorf("expected no cross-category hit, got %+v", e)
	}
}

func TestExportImport(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ApplyMerge(testApply("2026-02-13")); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Exported data is empty")
	}
	if !strings.Contains(string(data), "Elara Voss") {
		t.Error("expected export to contain entity names")
	}

	s2 := newTestStore(t)
	if err := s2.Import(data); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	e, err := s2.GetEntity("char1")
	if err != nil {
		t.Fatalf("Failed to get restored entity: %v", err)
	}
	if e == nil || e.CanonicalName != "Elara Voss" {
		t.Fatalf("expected restored entity, got %+v", e)
	}

	sessions, err := s2.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Date != "2026-02-13" {
		t.Errorf("expected restored session, got %v", sessions)
	}

	hooks, err := s2.OpenHooks()
	if err != nil {
		t.Fatalf("OpenHooks failed: %v", err)
	}
	if len(hooks) != 1 {
		t.Errorf("expected restored open hook, got %d", len(hooks))
	}
}

func TestCheckIntegrityFindsOrphans(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ApplyMerge(testApply("2026-02-13")); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	issues, err := s.CheckIntegrity()
	if err != nil {
		t.Fatalf("CheckIntegrity failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected clean index, got %v", issues)
	}

	// Damage the index behind the application's back.
	if _, err := s.db.Exec(`DELETE FROM entities WHERE id = 'loc1'`); err != nil {
		t.Fatalf("failed to damage index: %v", err)
	}

	issues, err = s.CheckIntegrity()
	if err != nil {
		t.Fatalf("CheckIntegrity failed: %v", err)
	}
	if len(issues) == 0 {
		t.Fatal("expected integrity issues after deleting an entity")
	}
	found := false
	for _, issue := range issues {
		if issue.Name == "mentions_missing_entity" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected mentions_missing_entity issue, got %v", issues)
	}
}
