package llm

import (
	"encoding/json"
	"strings"
)

const (
	// MaxPlaces caps a parsed attraction list.
	MaxPlaces = 5
	// maxLineRunes truncates each line taken by the plain-text fallback.
	maxLineRunes = 120
)

// PlacesFormat tells how ParsePlaces read a response.
type PlacesFormat string

const (
	FormatJSON  PlacesFormat = "json"
	FormatLines PlacesFormat = "lines"
)

// ParsedPlaces is the outcome of ParsePlaces. Names is never nil.
type ParsedPlaces struct {
	Names  []string
	Format PlacesFormat
}

// ParsePlaces reads attraction names out of free-form model text. It first looks for a JSON
// object between the first '{' and the last '}' carrying a "places" array. Entries may be
// strings or objects with a "name" or "title". When no object parses it takes the first
// MaxPlaces non-empty lines. A JSON object without usable entries yields an empty JSON result,
// not the line fallback.
func ParsePlaces(text string) ParsedPlaces {
	if names, ok := parseJSONPlaces(text); ok {
		return ParsedPlaces{Names: names, Format: FormatJSON}
	}
	return ParsedPlaces{Names: firstLines(text, MaxPlaces), Format: FormatLines}
}

func parseJSONPlaces(text string) ([]string, bool) {
	obj := strings.IndexByte(text, '{')
	if obj == -1 {
		return nil, false
	}
	end := strings.LastIndexByte(text, '}')
	if end <= obj {
		return nil, false
	}
	var doc any
	if err := json.Unmarshal([]byte(text[obj:end+1]), &doc); err != nil {
		return nil, false
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return []string{}, true
	}
	items, _ := m["places"].([]any)
	return normalizePlaces(items), true
}

// normalizePlaces keeps distinct non-empty names in order, at most MaxPlaces.
func normalizePlaces(items []any) []string {
	names := make([]string, 0, MaxPlaces)
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if len(names) == MaxPlaces {
			break
		}
		name := placeName(item)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func placeName(item any) string {
	switch v := item.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, key := range []string{"name", "title"} {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func firstLines(text string, n int) []string {
	out := make([]string, 0, n)
	for _, line := range strings.Split(text, "\n") {
		if len(out) == n {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > maxLineRunes {
			line = string(r[:maxLineRunes])
		}
		out = append(out, line)
	}
	return out
}
