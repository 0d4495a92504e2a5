package geostate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"
)

// tokenRegex splits text into words (with inner apostrophes, dots and
// hyphens) and single punctuation characters. splitWord then separates
// possessives and letter-hyphen-letter compounds.
var tokenRegex = regexp.MustCompile(`[\pL\pM\pN]+(?:['’.\-][\pL\pM\pN]+)*|[^\s\pL\pM\pN]`)

type token struct {
	text       string
	start, end int
}

// possessiveSuffixes are split off the end of a word, as in "France's".
var possessiveSuffixes = []string{"'s", "'S", "’s", "’S"}

func tokenize(text string) []token {
	var toks []token
	for _, loc := range tokenRegex.FindAllStringIndex(text, -1) {
		toks = splitWord(toks, text, loc[0], loc[1])
	}
	return toks
}

// splitWord appends the word text[start:end] to toks. A hyphen between two
// letters becomes its own token, so "France-Germany" yields three tokens.
func splitWord(toks []token, text string, start, end int) []token {
	from := start
	for i := start; i < end; {
		r, size := utf8.DecodeRuneInString(text[i:end])
		if r == '-' && i > from && i+size < end {
			prev, _ := utf8.DecodeLastRuneInString(text[from:i])
			next, _ := utf8.DecodeRuneInString(text[i+size : end])
			if isLetter(prev) && isLetter(next) {
				toks = splitPossessive(toks, text, from, i)
				toks = append(toks, token{text: "-", start: i, end: i + size})
				from = i + size
			}
		}
		i += size
	}
	return splitPossessive(toks, text, from, end)
}

func splitPossessive(toks []token, text string, start, end int) []token {
	w := text[start:end]
	for _, suf := range possessiveSuffixes {
		if len(w) > len(suf) && strings.HasSuffix(w, suf) {
			cut := end - len(suf)
			return append(toks,
				token{text: text[start:cut], start: start, end: cut},
				token{text: suf, start: cut, end: end})
		}
	}
	return append(toks, token{text: w, start: start, end: end})
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r)
}

// tokenPattern matches one token, exactly or by its lower-case form.
type tokenPattern struct {
	value string
	lower bool
}

func (p tokenPattern) matches(tok string) bool {
	if p.lower {
		return strings.ToLower(tok) == p.value
	}
	return tok == p.value
}

type rulePattern struct {
	label  string
	tokens []tokenPattern
}

// Ruler is a pattern-based entity model. Patterns use the spaCy EntityRuler
// JSONL layout: {"label": "GPE", "pattern": "New York"} or
// {"label": "GPE", "pattern": [{"LOWER": "new"}, {"ORTH": "York"}]}.
// At each token the longest matching pattern wins.
type Ruler struct {
	name  string
	index map[string][]rulePattern // lower-cased first token -> patterns, longest first
	size  int
}

// Name returns the model name.
func (r *Ruler) Name() string { return r.name }

// Len returns the number of patterns.
func (r *Ruler) Len() int { return r.size }

// ReadRuler parses EntityRuler patterns from rd.
func ReadRuler(name string, rd io.Reader) (*Ruler, error) {
	r := &Ruler{name: name, index: make(map[string][]rulePattern)}
	var errs *multierror.Error

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		p, err := parseRulePattern(raw)
		if err != nil {
			errs = multierror.Append(errs, &LineError{Line: line, Err: err})
			continue
		}
		r.add(p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading patterns: %w", err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	for k := range r.index {
		ps := r.index[k]
		sort.SliceStable(ps, func(i, j int) bool { return len(ps[i].tokens) > len(ps[j].tokens) })
	}
	return r, nil
}

// LoadRuler reads an EntityRuler patterns file, optionally compressed.
func LoadRuler(name, path string) (*Ruler, error) {
	rd, cleanup, err := openOptionallyCompressedFile(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	r, err := ReadRuler(name, rd)
	if err != nil {
		return nil, fmt.Errorf("loading patterns %s: %w", path, err)
	}
	return r, nil
}

// DefaultRuler returns a ruler over the embedded country-name patterns.
func DefaultRuler() (*Ruler, error) {
	return ReadRuler("builtin", bytes.NewReader(defaultTableData))
}

func (r *Ruler) add(p rulePattern) {
	first := p.tokens[0]
	key := first.value
	if !first.lower {
		key = strings.ToLower(key)
	}
	r.index[key] = append(r.index[key], p)
	r.size++
}

func parseRulePattern(raw []byte) (rulePattern, error) {
	var p rulePattern
	if !gjson.ValidBytes(raw) {
		return p, errors.New("invalid JSON")
	}
	rec := gjson.ParseBytes(raw)
	label := rec.Get("label")
	if label.Type != gjson.String || label.String() == "" {
		return p, errors.New(`missing string field "label"`)
	}
	p.label = label.String()

	pat := rec.Get("pattern")
	switch {
	case pat.Type == gjson.String:
		for _, t := range tokenize(pat.String()) {
			p.tokens = append(p.tokens, tokenPattern{value: t.text})
		}
	case pat.IsArray():
		for i, el := range pat.Array() {
			tp, err := parseTokenPattern(el)
			if err != nil {
				return p, fmt.Errorf("pattern token %d: %w", i, err)
			}
			p.tokens = append(p.tokens, tp)
		}
	default:
		return p, errors.New(`field "pattern" must be a string or an array`)
	}
	if len(p.tokens) == 0 {
		return p, errors.New("empty pattern")
	}
	return p, nil
}

func parseTokenPattern(el gjson.Result) (tokenPattern, error) {
	if !el.IsObject() {
		return tokenPattern{}, errors.New("not an object")
	}
	if v := el.Get("LOWER"); v.Type == gjson.String {
		return tokenPattern{value: v.String(), lower: true}, nil
	}
	for _, attr := range []string{"ORTH", "TEXT"} {
		if v := el.Get(attr); v.Type == gjson.String {
			return tokenPattern{value: v.String()}, nil
		}
	}
	return tokenPattern{}, errors.New("expected a string ORTH, TEXT or LOWER attribute")
}

// Recognize implements Recognizer.
func (r *Ruler) Recognize(ctx context.Context, text string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	toks := tokenize(text)
	var spans []Span
	for i := 0; i < len(toks); {
		p, ok := r.match(toks, i)
		if !ok {
			i++
			continue
		}
		last := toks[i+len(p.tokens)-1]
		start := toks[i].start
		spans = append(spans, Span{
			Text:  text[start:last.end],
			Label: p.label,
			Start: start,
			End:   last.end,
		})
		i += len(p.tokens)
	}
	return spans, nil
}

func (r *Ruler) match(toks []token, i int) (rulePattern, bool) {
	for _, p := range r.index[strings.ToLower(toks[i].text)] {
		if i+len(p.tokens) > len(toks) {
			continue
		}
		ok := true
		for j, tp := range p.tokens {
			if !tp.matches(toks[i+j].text) {
				ok = false
				break
			}
		}
		if ok {
			return p, true
		}
	}
	return rulePattern{}, false
}
