// Package classifier defines the contract of the external domain classifier
// and the defensive parsing of its free-text replies.
//
// A Classifier returns raw text. Replies from language models are often
// wrapped in prose or Markdown, so Parse tries, in order: the whole payload
// as JSON, the first fenced code block, and the substring between the first
// "{" and the last "}". The first candidate with a non-empty category and a
// finite numeric score wins.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrUnavailable means the classifier could not be reached or answered
	// with an error.
	ErrUnavailable = errors.New("classifier unavailable")
	// ErrUnparseable means the reply contained no usable verdict.
	ErrUnparseable = errors.New("classifier reply unparseable")
)

// Classifier produces a free-text verdict for a normalized domain.
type Classifier interface {
	Classify(ctx context.Context, domain string) (string, error)
}

// Func adapts a function to the Classifier interface.
type Func func(ctx context.Context, domain string) (string, error)

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, domain string) (string, error) { return f(ctx, domain) }

// Verdict is a parsed classification.
type Verdict struct {
	Category    string   `json:"category"`
	SafetyScore int      `json:"safetyScore"`
	Tags        []string `json:"tags,omitempty"`
}

var fenceRE = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)```")

// Parse extracts a Verdict from raw classifier output.
func Parse(raw string) (Verdict, error) {
	for _, cand := range candidates(raw) {
		if v, ok := parseCandidate(cand); ok {
			return v, nil
		}
	}
	return Verdict{}, ErrUnparseable
}

func candidates(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := []string{raw}
	if m := fenceRE.FindStringSubmatch(raw); len(m) == 2 {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		out = append(out, raw[i:j+1])
	}
	return out
}

func parseCandidate(s string) (Verdict, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return Verdict{}, false
	}
	cat, _ := m["category"].(string)
	cat = NormalizeCategory(cat)
	if cat == "" {
		return Verdict{}, false
	}
	score, ok := numberField(m, "safetyScore", "safety_score", "score")
	if !ok {
		return Verdict{}, false
	}
	return Verdict{
		Category:    cat,
		SafetyScore: ClampScore(score),
		Tags:        stringSlice(m["tags"]),
	}, true
}

func numberField(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		v, present := m[k]
		if !present {
			continue
		}
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case string:
			p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return 0, false
			}
			f = p
		default:
			return 0, false
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, strings.ToLower(s))
			}
		}
	}
	return out
}

// ClampScore rounds f and clamps it to [0, 100].
func ClampScore(f float64) int {
	r := math.Round(f)
	switch {
	case r < 0:
		return 0
	case r > 100:
		return 100
	}
	return int(r)
}

// NormalizeCategory trims and collapses whitespace. Names written entirely
// in one case are title-cased so "social media" and "SOCIAL MEDIA" map to
// the same category; mixed-case names are kept as given.
func NormalizeCategory(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	if s == strings.ToLower(s) || s == strings.ToUpper(s) {
		// Casers hold state; one per call.
		return cases.Title(language.English).String(strings.ToLower(s))
	}
	return s
}
