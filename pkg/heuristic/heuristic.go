// Package heuristic produces an offline structured summary from transcript
// text when no model provider is available. A part-of-speech pass marks
// proper-noun runs as entity candidates; a registry counts them, rejects
// stopwords and one-off noise, and promotes recurring names into the
// character and location lists.
package heuristic

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/campaignkit/pkg/summary"
)

// DefaultThreshold is the mention count that promotes a candidate.
const DefaultThreshold = 2

const (
	leadLines = 8
	leadCap   = 1200
)

// Registry counts canonicalized candidates and promotes them once they
// clear the mention threshold.
type Registry struct {
	threshold int
	stop      *stopwords.Stopwords
	custom    map[string]bool
	stats     map[string]*candidate
	order     []string
}

type candidate struct {
	display string
	count   int
}

// NewRegistry creates a registry. Values <= 0 use DefaultThreshold.
func NewRegistry(threshold int) *Registry {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Registry{
		threshold: threshold,
		stop:      stopwords.MustGet("en"),
		custom:    make(map[string]bool),
		stats:     make(map[string]*candidate),
	}
}

// AddStopWord ignores a word the library list does not cover, such as
// campaign jargon or player handles.
func (r *Registry) AddStopWord(word string) {
	r.custom[strings.ToLower(word)] = true
}

// Add counts one candidate surface. Reports whether this mention promoted
// it over the threshold.
func (r *Registry) Add(raw string) bool {
	display := strings.TrimSpace(raw)
	if utf8.RuneCountInString(display) <= 2 {
		return false
	}

	key := strings.ToLower(display)
	if r.rejected(key) {
		return false
	}

	c, ok := r.stats[key]
	if !ok {
		c = &candidate{display: display}
		r.stats[key] = c
		r.order = append(r.order, key)
	}
	c.count++
	return c.count == r.threshold
}

// rejected drops a candidate when every token is a stopword. "The party"
// never survives; "The Gilded Griffin" does.
func (r *Registry) rejected(key string) bool {
	for _, tok := range strings.Fields(key) {
		if !r.custom[tok] && (r.stop == nil || !r.stop.Contains(tok)) {
			return false
		}
	}
	return true
}

// Promoted returns display forms of candidates at or over the threshold,
// most frequent first; ties keep first-seen order.
func (r *Registry) Promoted() []string {
	keys := make([]string, 0, len(r.order))
	for _, key := range r.order {
		if r.stats[key].count >= r.threshold {
			keys = append(keys, key)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return r.stats[keys[i]].count > r.stats[keys[j]].count
	})

	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = r.stats[key].display
	}
	return out
}

// Summarizer builds offline summaries from transcript text.
type Summarizer struct {
	threshold int
	tagger    *Tagger
}

// New creates a summarizer with the given promotion threshold.
func New(threshold int) *Summarizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Summarizer{threshold: threshold, tagger: NewTagger()}
}

// Summarize builds a valid structured summary: the top promoted candidates
// become characters and locations, the leading transcript lines become the
// narrative and plain summary, and a review hook keeps the session on the
// continuity radar. Deterministic for identical input.
func (s *Summarizer) Summarize(transcript, title, date string) (*summary.SessionSummary, error) {
	words := tokenize(transcript)
	tags := s.tagger.Tag(words)

	reg := NewRegistry(s.threshold)
	for _, run := range properRuns(words, tags) {
		reg.Add(run)
	}

	promoted := reg.Promoted()
	if len(promoted) > 8 {
		promoted = promoted[:8]
	}
	characters := promoted[:min(4, len(promoted))]
	var locations []string
	if len(promoted) > 4 {
		locations = promoted[4:min(6, len(promoted))]
	}

	if title == "" {
		title = fmt.Sprintf("Session Notes %s", date)
	}
	lead := leadingText(transcript)

	out := &summary.SessionSummary{
		SessionTitle:    title,
		SessionDate:     date,
		Characters:      characters,
		Locations:       locations,
		Factions:        []string{},
		Events:          []string{fmt.Sprintf("Session recap for %s", date)},
		UnresolvedHooks: []string{"Review full transcript for unresolved hooks."},
		Narrative:       orText(lead, "No narrative extracted from transcript."),
		PlainSummary:    orText(lead, "No summary extracted from transcript."),
	}
	out.Normalize()
	out.BacklinkBlock = out.BuildBacklinkBlock()

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// leadingText joins the first non-empty lines, capped so a wall-of-text
// transcript does not become the whole summary.
func leadingText(transcript string) string {
	var lines []string
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == leadLines {
			break
		}
	}

	text := strings.Join(lines, " ")
	if utf8.RuneCountInString(text) > leadCap {
		text = string([]rune(text)[:leadCap])
	}
	return text
}

func orText(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
