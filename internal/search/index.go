// Package search provides a small, deterministic, concurrency-safe in-memory
// index that maps host names to content categories using keyword profiles.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization of host labels with stop-label removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// A keyword scores 1.0 when it equals a token of the host and 0.5 when it
// only occurs inside the host (e.g. "casino" in "bestcasinos"). Keywords
// shorter than the configured minimum never match as substrings.
package search

import (
	"io"
	"regexp"
	"sort"
	"strings"
)

// Result is a ranked category with its match score.
type Result struct {
	Category    string
	SafetyScore int
	Score       float64
	Matched     []string
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(host string, k int) []Result
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minSubstringRunes int
	stopwords         map[string]struct{}
	maxProfiles       int
}

// Labels that carry no category signal.
var defaultStopLabels = []string{"www", "m", "com", "net", "org", "io", "co", "uk", "de", "fr", "app", "html", "php"}

func defaultConfig() config {
	c := config{
		minSubstringRunes: 4,
		maxProfiles:       0,
	}
	WithStopwords(defaultStopLabels)(&c)
	return c
}

// WithMinSubstringRunes sets the shortest keyword allowed to match inside a
// longer label.
func WithMinSubstringRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minSubstringRunes = n
		}
	}
}

func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

func WithMaxProfiles(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxProfiles = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	profile  Profile
	keywords []string
	order    int
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndexFromMarkdown builds an Index by reading the profile table at path.
func NewIndexFromMarkdown(path string, opts ...Option) (Index, error) {
	profiles, err := LoadProfiles(path)
	if err != nil {
		return &index{cfg: defaultConfig(), docs: nil}, err
	}
	return NewIndex(profiles, opts...), nil
}

// NewIndexFromReader builds an Index from a Markdown profile table read from r.
func NewIndexFromReader(r io.Reader, opts ...Option) (Index, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	profiles, err := ParseProfiles(r)
	if err != nil {
		return &index{cfg: cfg, docs: nil}, err
	}
	return buildIndex(profiles, cfg), nil
}

// NewIndex builds an Index directly from profiles.
func NewIndex(profiles []Profile, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return buildIndex(profiles, cfg)
}

// NewDefaultIndex builds an Index over the embedded profile table.
func NewDefaultIndex(opts ...Option) Index {
	return NewIndex(DefaultProfiles(), opts...)
}

func buildIndex(profiles []Profile, cfg config) *index {
	docs := make([]doc, 0, len(profiles))
	for i, p := range profiles {
		if strings.TrimSpace(p.Category) == "" {
			continue
		}
		kws := make([]string, 0, len(p.Keywords))
		for _, k := range p.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				kws = append(kws, k)
			}
		}
		if len(kws) == 0 {
			continue
		}
		docs = append(docs, doc{profile: p, keywords: kws, order: i})
		if cfg.maxProfiles > 0 && len(docs) >= cfg.maxProfiles {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching categories for host.
func (i *index) TopK(host string, k int) []Result {
	if len(i.docs) == 0 {
		return nil
	}
	if strings.TrimSpace(host) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	tokens := tokenize(host, i.cfg.stopwords)
	if len(tokens) == 0 {
		return nil
	}
	joined := strings.Join(sortedKeys(tokens), " ")

	type scored struct {
		res   Result
		order int
	}
	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for _, d := range i.docs {
		var score float64
		var matched []string
		for _, kw := range d.keywords {
			if _, ok := tokens[kw]; ok {
				score += 1.0
				matched = append(matched, kw)
				continue
			}
			if len([]rune(kw)) >= i.cfg.minSubstringRunes && strings.Contains(joined, kw) {
				score += 0.5
				matched = append(matched, kw)
			}
		}
		if score <= 0 {
			continue
		}
		buf = append(buf, scored{
			res: Result{
				Category:    d.profile.Category,
				SafetyScore: d.profile.SafetyScore,
				Score:       score,
				Matched:     matched,
			},
			order: d.order,
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].res.Score != buf[b].res.Score {
			return buf[a].res.Score > buf[b].res.Score
		}
		// Prefer the more restrictive category on ties.
		if buf[a].res.SafetyScore != buf[b].res.SafetyScore {
			return buf[a].res.SafetyScore < buf[b].res.SafetyScore
		}
		return buf[a].order < buf[b].order
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for j := 0; j < k; j++ {
		out[j] = buf[j].res
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
