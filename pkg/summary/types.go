// Package summary defines the structured session summary consumed by the
// merge pipeline, plus parsing and normalization for the JSON form emitted
// by model providers or written by hand.
package summary

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// SessionSummary is the canonical model of one session's structured notes.
// Field names follow the JSON contract, so hand-written and model-produced
// payloads interchange freely.
type SessionSummary struct {
	SessionTitle    string   `json:"session_title"`
	SessionDate     string   `json:"session_date"`
	Characters      []string `json:"characters"`
	Locations       []string `json:"locations"`
	Factions        []string `json:"factions"`
	Events          []string `json:"events"`
	UnresolvedHooks []string `json:"unresolved_hooks"`
	ResolvedHooks   []string `json:"resolved_hooks,omitempty"`
	PreviouslyOn    string   `json:"previously_on,omitempty"`
	Narrative       string   `json:"last_session_narrative"`
	PlainSummary    string   `json:"plain_text_summary"`
	BacklinkBlock   string   `json:"backlink_block"`

	// TranscriptPath and AudioPath are recorded in the session note when
	// the summary was produced from local files. Not part of the model
	// contract.
	TranscriptPath string `json:"transcript_file,omitempty"`
	AudioPath      string `json:"audio_file,omitempty"`
}

// Normalize trims scalar fields and dedupes list fields case-insensitively
// while preserving first-seen order and casing. Safe to call more than once.
func (s *SessionSummary) Normalize() *SessionSummary {
	s.SessionTitle = strings.TrimSpace(s.SessionTitle)
	s.SessionDate = strings.TrimSpace(s.SessionDate)
	s.Characters = normalizeList(s.Characters)
	s.Locations = normalizeList(s.Locations)
	s.Factions = normalizeList(s.Factions)
	s.Events = normalizeList(s.Events)
	s.UnresolvedHooks = normalizeList(s.UnresolvedHooks)
	s.ResolvedHooks = normalizeList(s.ResolvedHooks)
	s.PreviouslyOn = strings.TrimSpace(s.PreviouslyOn)
	s.Narrative = strings.TrimSpace(s.Narrative)
	s.PlainSummary = strings.TrimSpace(s.PlainSummary)
	s.BacklinkBlock = strings.TrimSpace(s.BacklinkBlock)
	return s
}

// EntityLists returns the four entity slices in merge order.
func (s *SessionSummary) EntityLists() [][]string {
	return [][]string{s.Characters, s.Locations, s.Factions, s.Events}
}

// BuildBacklinkBlock renders one [[Name]] line per entity across all four
// lists, deduped case-insensitively in first-seen order.
func (s *SessionSummary) BuildBacklinkBlock() string {
	var links []string
	for _, list := range s.EntityLists() {
		for _, name := range list {
			links = append(links, "[["+name+"]]")
		}
	}

	seen := make(map[string]struct{}, len(links))
	unique := make([]string, 0, len(links))
	for _, link := range links {
		key := strings.ToLower(link)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, link)
	}
	return strings.Join(unique, "\n")
}

// Hash returns a stable content hash of the normalized summary. Two
// byte-different payloads that normalize to the same summary hash equal, so
// re-merging an unchanged summary can short-circuit.
func (s *SessionSummary) Hash() string {
	data, err := json.Marshal(s)
	if err != nil {
		// Marshal of a plain struct cannot fail; keep the signature simple.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// normalizeList returns unique, trimmed values preserving input order.
func normalizeList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	output := make([]string, 0, len(values))
	for _, value := range values {
		clean := strings.TrimSpace(value)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		output = append(output, clean)
	}
	return output
}
