package summary

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/kittclouds/campaignkit/internal/errors"
)

// requiredKeys must all be present in a summary payload. The remaining
// fields default to empty.
var requiredKeys = []string{
	"session_title",
	"session_date",
	"characters",
	"locations",
	"events",
	"unresolved_hooks",
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	isoDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Parse parses raw summary text into a normalized SessionSummary. Handles
// markdown code fences and leading/trailing chatter around the JSON object.
// Schema problems are reported as SCHEMA_VIOLATION.
func Parse(raw []byte) (*SessionSummary, error) {
	blob, err := extractJSONBlob(string(raw))
	if err != nil {
		return nil, err
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &payload); err != nil {
		return nil, apperrors.E(apperrors.CodeSchemaViolation, "summary.Parse", err)
	}

	var missing []string
	for _, key := range requiredKeys {
		if _, ok := payload[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Ef(apperrors.CodeSchemaViolation, "summary.Parse",
			"missing keys in summary JSON: %s", strings.Join(missing, ", "))
	}

	var s SessionSummary
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return nil, apperrors.E(apperrors.CodeSchemaViolation, "summary.Parse", err)
	}

	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// extractJSONBlob pulls a JSON object out of model text, even when wrapped
// in a markdown fence or surrounded by prose.
func extractJSONBlob(raw string) (string, error) {
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		return m[1], nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", apperrors.Ef(apperrors.CodeSchemaViolation, "summary.Parse",
			"response did not contain a JSON object")
	}
	return raw[start : end+1], nil
}

// Validate checks the fields every merge needs. Summaries built in code
// (the offline summarizer, tests) go through this too, not only Parse.
func (s *SessionSummary) Validate() error {
	if s.SessionTitle == "" {
		return apperrors.Ef(apperrors.CodeSchemaViolation, "summary.Validate",
			"session_title is empty")
	}
	if !isoDate.MatchString(s.SessionDate) {
		return apperrors.Ef(apperrors.CodeSchemaViolation, "summary.Validate",
			"session_date %q is not an ISO date (YYYY-MM-DD)", s.SessionDate)
	}
	if _, err := time.Parse("2006-01-02", s.SessionDate); err != nil {
		return apperrors.Ef(apperrors.CodeSchemaViolation, "summary.Validate",
			"session_date %q is not a calendar date", s.SessionDate)
	}
	return nil
}
