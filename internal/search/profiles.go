package search

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed profiles.md
var defaultProfiles string

// Profile is one category described by the keywords that identify it.
type Profile struct {
	Category    string
	SafetyScore int
	Keywords    []string
}

// DefaultProfiles returns the built-in category profiles.
func DefaultProfiles() []Profile {
	ps, err := ParseProfiles(strings.NewReader(defaultProfiles))
	if err != nil {
		// The embedded table is part of the build; a parse failure is a bug.
		panic(fmt.Sprintf("search: embedded profiles: %v", err))
	}
	return ps
}

// LoadProfiles reads a profile table from a Markdown file.
func LoadProfiles(path string) ([]Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseProfiles(f)
}

// ParseProfiles extracts profiles from the Markdown table rows in r.
//
// Rows look like "| Category | Score | kw1, kw2 |". Non-table lines, the
// header row (non-numeric score), and separator rows ("|---|---:|") are
// skipped. A numeric score outside [0,100] is an error.
func ParseProfiles(r io.Reader) ([]Profile, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []Profile
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			continue
		}
		cols := splitRow(line)
		if len(cols) < 3 || isSeparator(cols) {
			continue
		}
		score, err := strconv.Atoi(cols[1])
		if err != nil {
			continue // header
		}
		if score < 0 || score > 100 {
			return nil, fmt.Errorf("line %d: score %d out of range", lineNo, score)
		}
		name := cols[0]
		if name == "" {
			return nil, fmt.Errorf("line %d: empty category", lineNo)
		}
		out = append(out, Profile{
			Category:    name,
			SafetyScore: score,
			Keywords:    splitKeywords(cols[2]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func splitRow(line string) []string {
	raw := strings.Split(strings.Trim(line, "|"), "|")
	cols := make([]string, 0, len(raw))
	for _, c := range raw {
		cols = append(cols, strings.TrimSpace(c))
	}
	return cols
}

func isSeparator(cols []string) bool {
	for _, c := range cols {
		tmp := strings.ReplaceAll(c, ":", "")
		tmp = strings.ReplaceAll(tmp, "-", "")
		if strings.TrimSpace(tmp) != "" {
			return false
		}
	}
	return true
}

func splitKeywords(cell string) []string {
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		k := strings.ToLower(strings.TrimSpace(p))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
