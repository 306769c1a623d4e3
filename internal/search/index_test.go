package search

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- tiny io.Reader that always errors ----------
type boomReader struct{}

func (boomReader) Read(_ []byte) (int, error) { return 0, errors.New("boom") }

const smallTable = `
| Category | Score | Keywords |
|---|---:|---|
| Games | 70 | games, roblox, play |
| Gambling | 15 | casino, poker, bet |
| Education | 95 | learn, academy, khanacademy |
`

func TestOptionsAndDefaults(t *testing.T) {
	def := defaultConfig()
	assert.Equal(t, 4, def.minSubstringRunes)
	assert.Contains(t, def.stopwords, "www")
	assert.Zero(t, def.maxProfiles)

	cfg := def
	WithMinSubstringRunes(6)(&cfg)
	assert.Equal(t, 6, cfg.minSubstringRunes)
	WithMinSubstringRunes(-1)(&cfg) // no-op
	assert.Equal(t, 6, cfg.minSubstringRunes)

	WithStopwords([]string{"  Example ", ""})(&cfg)
	assert.Contains(t, cfg.stopwords, "example")

	before := cfg.stopwords
	WithStopwords(nil)(&cfg)
	assert.Equal(t, before, cfg.stopwords, "empty stopwords must not replace the set")

	WithMaxProfiles(2)(&cfg)
	assert.Equal(t, 2, cfg.maxProfiles)
	WithMaxProfiles(0)(&cfg)
	assert.Equal(t, 2, cfg.maxProfiles)
}

func TestNewIndexFromMarkdown_SuccessAndError(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "profiles.md")
	require.NoError(t, os.WriteFile(p, []byte(smallTable), 0o600))

	idx, err := NewIndexFromMarkdown(p)
	require.NoError(t, err)
	res := idx.TopK("www.roblox.com", 1)
	require.Len(t, res, 1)
	assert.Equal(t, "Games", res[0].Category)

	_, err = NewIndexFromMarkdown(filepath.Join(dir, "missing.md"))
	assert.Error(t, err)
}

func TestNewIndexFromReader_ErrorAndSuccess(t *testing.T) {
	_, err := NewIndexFromReader(boomReader{})
	require.Error(t, err)

	idx, err := NewIndexFromReader(bytes.NewBufferString(smallTable))
	require.NoError(t, err)
	res := idx.TopK("onlinepoker.net", 3)
	require.NotEmpty(t, res)
	assert.Equal(t, "Gambling", res[0].Category)
	assert.Equal(t, 15, res[0].SafetyScore)
	assert.Equal(t, []string{"poker"}, res[0].Matched)
}

func TestBuildIndex_SkipsEmptyAndCaps(t *testing.T) {
	profiles := []Profile{
		{Category: "", Keywords: []string{"x"}},
		{Category: "NoKeywords"},
		{Category: "A", SafetyScore: 50, Keywords: []string{" Alpha ", ""}},
		{Category: "B", SafetyScore: 50, Keywords: []string{"beta"}},
	}
	ii := NewIndex(profiles).(*index)
	require.Len(t, ii.docs, 2)
	assert.Equal(t, []string{"alpha"}, ii.docs[0].keywords)

	capped := NewIndex(profiles, WithMaxProfiles(1)).(*index)
	assert.Len(t, capped.docs, 1)
}

func TestTopK_ScoringAndTieBreaks(t *testing.T) {
	idx, err := NewIndexFromReader(bytes.NewBufferString(smallTable))
	require.NoError(t, err)

	// Empty inputs.
	assert.Nil(t, (&index{cfg: defaultConfig()}).TopK("x.com", 3))
	assert.Nil(t, idx.TopK("   ", 3))
	assert.Nil(t, idx.TopK("www.com", 3), "only stop labels")
	assert.Nil(t, idx.TopK("unrelated.example", 3))

	// Exact token beats substring.
	res := idx.TopK("khanacademy.org", 3)
	require.NotEmpty(t, res)
	assert.Equal(t, "Education", res[0].Category)
	assert.InDelta(t, 1.5, res[0].Score, 1e-9) // khanacademy + "academy" inside

	// Short keywords never match inside a label.
	assert.Nil(t, idx.TopK("alphabet.com", 3))

	// Equal scores: the more restrictive category wins.
	res = idx.TopK("play.bet", 0)
	require.Len(t, res, 2)
	assert.Equal(t, "Gambling", res[0].Category)
	assert.Equal(t, "Games", res[1].Category)
}

func TestDefaultIndex_KnownHosts(t *testing.T) {
	idx := NewDefaultIndex()
	cases := map[string]string{
		"www.youtube.com":     "Video",
		"en.wikipedia.org":    "Reference",
		"www.bestcasinos.net": "Gambling",
		"news.bbc.co.uk":      "News",
		"www.khanacademy.org": "Education",
		"minecraft.net":       "Games",
		"pornhub.com":         "Adult",
		"www.duolingo.com":    "Education",
	}
	for host, want := range cases {
		res := idx.TopK(host, 1)
		if assert.Len(t, res, 1, host) {
			assert.Equal(t, want, res[0].Category, host)
		}
	}
}
