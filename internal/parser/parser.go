// Package parser turns untrusted model output into validated timeline cards.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/strrl/dayflow/internal/timeline"
)

const MaxTitleRunes = 70

// ErrInvalidResponse means no JSON object could be recovered from the text.
var ErrInvalidResponse = errors.New("invalid AI response")

// ValidationError explains why a single proposed card was dropped.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("card %d: %s %s", e.Index, e.Field, e.Reason)
}

// CardResult is the outcome for one proposed card: Card is set when Err is
// nil.
type CardResult struct {
	Card timeline.Card
	Err  error
}

type Timeline struct {
	Results      []CardResult
	DailySummary string
}

// Valid returns the cards that passed validation, in response order.
func (t *Timeline) Valid() []timeline.Card {
	var cards []timeline.Card
	for _, r := range t.Results {
		if r.Err == nil {
			cards = append(cards, r.Card)
		}
	}
	return cards
}

// Dropped counts cards that failed validation.
func (t *Timeline) Dropped() int {
	n := 0
	for _, r := range t.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

type rawTimeline struct {
	Cards        json.RawMessage `json:"cards"`
	DailySummary json.RawMessage `json:"daily_summary"`
}

type rawCard struct {
	Start    text `json:"start"`
	End      text `json:"end"`
	Title    text `json:"title"`
	Summary  text `json:"summary"`
	Category text `json:"category"`
}

// text accepts JSON strings and scalars; null decodes to "".
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return fmt.Errorf("expected a string")
	default:
		*t = text(data)
	}
	return nil
}

// ExtractJSON returns the JSON object in raw. Surrounding prose and
// markdown fences are tolerated by falling back to the span from the first
// '{' to the last '}'.
func ExtractJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("%w: no JSON object found", ErrInvalidResponse)
	}
	candidate := trimmed[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("%w: malformed JSON object", ErrInvalidResponse)
	}
	return candidate, nil
}

// DecodeTimeline extracts and validates a {"cards": [...], "daily_summary"}
// object. Bad cards are reported per card and never fail the whole decode.
func DecodeTimeline(raw string) (*Timeline, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var parsed rawTimeline
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	var summary text
	if len(parsed.DailySummary) > 0 {
		// a non-text summary is ignored rather than failing the batch
		_ = json.Unmarshal(parsed.DailySummary, &summary)
	}
	out := &Timeline{DailySummary: strings.TrimSpace(string(summary))}

	var items []json.RawMessage
	if len(parsed.Cards) > 0 {
		if err := json.Unmarshal(parsed.Cards, &items); err != nil {
			// cards that are not a list yield no cards
			return out, nil
		}
	}

	for i, item := range items {
		out.Results = append(out.Results, decodeCard(i, item))
	}
	return out, nil
}

func decodeCard(index int, item json.RawMessage) CardResult {
	var rc rawCard
	if err := json.Unmarshal(item, &rc); err != nil {
		return CardResult{Err: &ValidationError{Index: index, Field: "card", Reason: "is not an object of strings"}}
	}

	start, ok := NormalizeHHMM(string(rc.Start))
	if !ok {
		return CardResult{Err: &ValidationError{Index: index, Field: "start", Reason: fmt.Sprintf("%q is not HH:MM", rc.Start)}}
	}
	end, ok := NormalizeHHMM(string(rc.End))
	if !ok {
		return CardResult{Err: &ValidationError{Index: index, Field: "end", Reason: fmt.Sprintf("%q is not HH:MM", rc.End)}}
	}
	title := strings.TrimSpace(string(rc.Title))
	if title == "" {
		return CardResult{Err: &ValidationError{Index: index, Field: "title", Reason: "is empty"}}
	}

	return CardResult{Card: timeline.Card{
		Start:    start,
		End:      end,
		Title:    truncateRunes(title, MaxTitleRunes),
		Summary:  strings.TrimSpace(string(rc.Summary)),
		Category: timeline.ParseCategory(string(rc.Category)),
	}}
}

// NormalizeHHMM accepts only zero-padded 24-hour "HH:MM".
func NormalizeHHMM(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if len(value) != 5 || value[2] != ':' {
		return "", false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if value[i] < '0' || value[i] > '9' {
			return "", false
		}
	}
	hh := int(value[0]-'0')*10 + int(value[1]-'0')
	mm := int(value[3]-'0')*10 + int(value[4]-'0')
	if hh > 23 || mm > 59 {
		return "", false
	}
	return value, true
}

// DecodeAnswer returns plain-text model output for single-answer queries.
func DecodeAnswer(raw string) (string, error) {
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	return answer, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}
