package geostate

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSuggestDistance caps the edit distance Suggest will scan with.
const maxSuggestDistance = 3

// maxSuggestInputLen bounds the mention length compared by Suggest.
const maxSuggestInputLen = 256

// Suggest returns patterns within maxDist edits of mention, closest first.
// Comparison ignores case, diacritics and surrounding whitespace. Suggest
// never affects ToISOCodes; it only helps explain unresolved mentions.
func (t *Table) Suggest(mention string, maxDist int) []string {
	if maxDist <= 0 {
		return nil
	}
	if maxDist > maxSuggestDistance {
		maxDist = maxSuggestDistance
	}
	q := fold(mention)
	if q == "" {
		return nil
	}
	if r := []rune(q); len(r) > maxSuggestInputLen {
		q = string(r[:maxSuggestInputLen])
	}

	type candidate struct {
		pattern string
		dist    int
	}
	var cands []candidate
	for _, p := range t.Patterns() {
		f := fold(p)
		// Rune length difference is a lower bound on the distance.
		if abs(len([]rune(f))-len([]rune(q))) > maxDist {
			continue
		}
		if d := levenshtein.ComputeDistance(q, f); d <= maxDist {
			cands = append(cands, candidate{pattern: p, dist: d})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.pattern
	}
	return out
}

// fold lower-cases s and strips combining marks.
func fold(s string) string {
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(tr, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return strings.ToLower(out)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
