package campaign

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kittclouds/campaignkit/internal/config"
	"github.com/kittclouds/campaignkit/pkg/summary"
)

func openTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()

	svc, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc, dir
}

func testSummary() *summary.SessionSummary {
	return &summary.SessionSummary{
		SessionTitle:    "The Ruined Watchtower",
		SessionDate:     "2026-02-13",
		Characters:      []string{"Elara Voss", "Bram Oakhide"},
		Locations:       []string{"Ruined Watchtower"},
		UnresolvedHooks: []string{"Who was at the tower before the party arrived?"},
		Narrative:       "The party reached the ruined watchtower at dusk.",
		PlainSummary:    "An ambush at the watchtower.",
	}
}

func TestInitCreatesVaultArtifacts(t *testing.T) {
	svc, dir := openTestService(t)

	if err := svc.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, path := range []string{
		filepath.Join(dir, "sessions"),
		filepath.Join(dir, "characters"),
		filepath.Join(dir, "transcripts"),
		filepath.Join(dir, config.FileName),
		filepath.Join(dir, "index.json"),
		filepath.Join(dir, "campaign.db"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist, got %v", path, err)
		}
	}
}

func TestMergeSummaryWritesNotes(t *testing.T) {
	svc, dir := openTestService(t)

	res, err := svc.MergeSummary(testSummary())
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if res.SessionID != "2026-02-13-the-ruined-watchtower" {
		t.Fatalf("unexpected session id %q", res.SessionID)
	}
	if len(res.Created) != 3 {
		t.Fatalf("expected 3 created entities, got %v", res.Created)
	}

	for _, rel := range []string{
		"sessions/2026-02-13-the-ruined-watchtower.md",
		"characters/elara-voss.md",
		"characters/bram-oakhide.md",
		"locations/ruined-watchtower.md",
		"index.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("expected %s after merge, got %v", rel, err)
		}
	}

	issues, err := svc.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected clean check after merge, got %v", issues)
	}
}

func TestMergeFile(t *testing.T) {
	svc, _ := openTestService(t)

	payload := `{
		"session_title": "The Docks Job",
		"session_date": "2026-02-06",
		"characters": ["Elara Voss"],
		"locations": ["Greyfall Docks"],
		"factions": [],
		"events": [],
		"unresolved_hooks": ["Who hired the smugglers?"],
		"last_session_narrative": "The crew robbed the docks.",
		"plain_text_summary": "A dockside robbery.",
		"backlink_block": ""
	}`
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	res, err := svc.MergeFile(path)
	if err != nil {
		t.Fatalf("merge file: %v", err)
	}
	if res.SessionDate != "2026-02-06" {
		t.Fatalf("expected date 2026-02-06, got %q", res.SessionDate)
	}

	sessions, err := svc.Sessions()
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Title != "The Docks Job" {
		t.Fatalf("unexpected sessions %v", sessions)
	}
}

func TestMergeFileMissing(t *testing.T) {
	svc, _ := openTestService(t)
	if _, err := svc.MergeFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected an error for a missing summary file")
	}
}

func TestSummarizeTranscript(t *testing.T) {
	svc, dir := openTestService(t)

	transcript := "Elara Voss entered the vault.\nBram waited outside while Elara Voss worked.\nBram grew restless."
	tPath := filepath.Join(dir, "transcripts", "raid.txt")
	if err := svc.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := os.WriteFile(tPath, []byte(transcript), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	outPath := filepath.Join(dir, "raid-summary.json")
	sum, err := svc.SummarizeTranscript(tPath, "Night Raid", "2026-03-07", outPath)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if sum.SessionTitle != "Night Raid" {
		t.Fatalf("expected caller title, got %q", sum.SessionTitle)
	}
	if len(sum.Characters) == 0 || sum.Characters[0] != "Elara Voss" {
		t.Fatalf("expected Elara Voss promoted, got %v", sum.Characters)
	}
	if sum.PreviouslyOn != "No prior session recorded before 2026-03-07." {
		t.Fatalf("unexpected previously-on %q", sum.PreviouslyOn)
	}
	if sum.TranscriptPath != tPath {
		t.Fatalf("expected transcript path recorded, got %q", sum.TranscriptPath)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	parsed, err := summary.Parse(data)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if parsed.SessionDate != "2026-03-07" {
		t.Fatalf("round trip lost the date, got %q", parsed.SessionDate)
	}
}

func TestSummarizeTranscriptUsesPriorSession(t *testing.T) {
	svc, dir := openTestService(t)

	if _, err := svc.MergeSummary(testSummary()); err != nil {
		t.Fatalf("merge: %v", err)
	}

	tPath := filepath.Join(dir, "next.txt")
	if err := os.WriteFile(tPath, []byte("Bram returned to the tower."), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	sum, err := svc.SummarizeTranscript(tPath, "The Return", "2026-02-20", "")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(sum.PreviouslyOn, "ruined watchtower at dusk") {
		t.Fatalf("expected prior narrative in previously-on, got %q", sum.PreviouslyOn)
	}
}

func TestEntitiesFilterByCategory(t *testing.T) {
	svc, _ := openTestService(t)

	if _, err := svc.MergeSummary(testSummary()); err != nil {
		t.Fatalf("merge: %v", err)
	}

	chars, err := svc.Entities("character")
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if len(chars) != 2 {
		t.Fatalf("expected 2 characters, got %d", len(chars))
	}

	all, err := svc.Entities("")
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(all))
	}

	if _, err := svc.Entities("monsters"); err == nil {
		t.Fatal("expected an error for an unknown category")
	}
}

func TestCheckFlagsMissingNotes(t *testing.T) {
	svc, dir := openTestService(t)

	if _, err := svc.MergeSummary(testSummary()); err != nil {
		t.Fatalf("merge: %v", err)
	}

	notePath := filepath.Join(dir, "sessions", "2026-02-13-the-ruined-watchtower.md")
	if err := os.Remove(notePath); err != nil {
		t.Fatalf("remove note: %v", err)
	}

	issues, err := svc.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	found := false
	for _, issue := range issues {
		if issue.Name == "session_note_missing" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session_note_missing issue, got %v", issues)
	}

	if _, err := svc.RenderNotes(); err != nil {
		t.Fatalf("render: %v", err)
	}
	issues, err = svc.Check()
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected render to heal the vault, got %v", issues)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	source, _ := openTestService(t)
	if _, err := source.MergeSummary(testSummary()); err != nil {
		t.Fatalf("merge: %v", err)
	}

	snapPath := filepath.Join(t.TempDir(), "backup.json")
	if err := source.Export(snapPath); err != nil {
		t.Fatalf("export: %v", err)
	}

	target, targetDir := openTestService(t)
	if err := target.ImportSnapshot(snapPath); err != nil {
		t.Fatalf("import: %v", err)
	}

	sessions, err := target.Sessions()
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Date != "2026-02-13" {
		t.Fatalf("expected imported session, got %v", sessions)
	}

	note := filepath.Join(targetDir, "sessions", "2026-02-13-the-ruined-watchtower.md")
	if _, err := os.Stat(note); err != nil {
		t.Fatalf("expected regenerated note after import, got %v", err)
	}
}
