package geostate

import "strings"

// UnknownPrefix marks a mention that could not be mapped to a code.
const UnknownPrefix = "UNKNOWN_"

// Resolution is the outcome of looking up one mention.
type Resolution struct {
	Mention  string // original mention, untrimmed
	Code     string // mapped code, empty when unresolved
	Resolved bool
}

// String returns the code, or the placeholder for unresolved mentions.
func (r Resolution) String() string {
	if r.Resolved {
		return r.Code
	}
	return UnknownPrefix + r.Mention
}

// Resolve looks up every mention in t after trimming surrounding whitespace.
// The result has one entry per mention, in order.
func Resolve(mentions []string, t *Table) []Resolution {
	out := make([]Resolution, len(mentions))
	for i, m := range mentions {
		code, ok := t.Lookup(strings.TrimSpace(m))
		out[i] = Resolution{Mention: m, Code: code, Resolved: ok}
	}
	return out
}

// ToISOCodes maps mentions to codes. Unmapped mentions become
// UnknownPrefix followed by the original mention text.
func ToISOCodes(mentions []string, t *Table) []string {
	return codeStrings(Resolve(mentions, t))
}

func codeStrings(rs []Resolution) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}

// CleanCodes returns the codes that do not carry UnknownPrefix, in order.
func CleanCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if !strings.HasPrefix(c, UnknownPrefix) {
			out = append(out, c)
		}
	}
	return out
}

// Resolved returns the resolved entries of rs, in order.
func Resolved(rs []Resolution) []Resolution {
	out := make([]Resolution, 0, len(rs))
	for _, r := range rs {
		if r.Resolved {
			out = append(out, r)
		}
	}
	return out
}
