package shell

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
)

const maxSuggestions = 3

// Suggest returns up to limit candidates that contain query's characters
// in order, best first. Matching is case-insensitive.
func Suggest(query string, candidates []string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	q := []rune(query)

	type scored struct {
		text  string
		score int
	}
	var results []scored
	for _, c := range candidates {
		if score := matchScore(q, c); score > 0 {
			results = append(results, scored{c, score})
		}
	}
	slices.SortFunc(results, func(a, b scored) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return cmp.Compare(a.text, b.text)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.text
	}
	return out
}

// matchScore scores text against query, or returns 0 when query is not
// a subsequence of text.
func matchScore(query []rune, text string) int {
	original := []rune(text)
	lower := []rune(strings.ToLower(text))

	matches := make([]int, 0, len(query))
	qi := 0
	for i := 0; i < len(lower) && qi < len(query); i++ {
		if lower[i] == query[qi] {
			matches = append(matches, i)
			qi++
		}
	}
	if qi != len(query) {
		return 0
	}

	score := 100
	for i := 1; i < len(matches); i++ {
		if matches[i] == matches[i-1]+1 {
			score += 20
		}
	}
	for _, idx := range matches {
		if isWordBoundary(original, idx) {
			score += 15
		}
	}
	if matches[0] == 0 {
		score += 25
	}
	if gap := matches[len(matches)-1] - matches[0] - len(matches) + 1; gap > 0 {
		score -= gap * 2
	}
	score -= matches[0]
	if len(lower) < 20 {
		score += 20 - len(lower)
	}
	if len(lower) >= len(query) && string(lower[:len(query)]) == string(query) {
		score += 50
	}
	return max(score, 1)
}

func isWordBoundary(runes []rune, idx int) bool {
	if idx == 0 {
		return true
	}
	prev, cur := runes[idx-1], runes[idx]
	if unicode.IsSpace(prev) || unicode.IsPunct(prev) {
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(cur)
}

// UnknownCommandError is returned for a line whose first word is not a
// command the session can run.
type UnknownCommandError struct {
	Name        string
	Suggestions []string
	Err         error
}

func (e *UnknownCommandError) Error() string {
	if len(e.Suggestions) == 0 {
		return e.Err.Error()
	}
	return e.Err.Error() + " (did you mean " + strings.Join(e.Suggestions, ", ") + "?)"
}

func (e *UnknownCommandError) Unwrap() error { return e.Err }
