package geostate

import (
	"context"
	"strings"
)

// LabelGPE is the entity label for geopolitical entities.
const LabelGPE = "GPE"

// Span is a labelled entity reported by a recognizer.
// Start and End are byte offsets into the input, or -1 when unknown.
type Span struct {
	Text  string
	Label string
	Start int
	End   int
}

// Recognizer runs a named-entity model over text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]Span, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, text string) ([]Span, error)

// Recognize calls f(ctx, text).
func (f RecognizerFunc) Recognize(ctx context.Context, text string) ([]Span, error) {
	return f(ctx, text)
}

// ExtractMentions returns the text of every GPE span r reports for text, in
// the order reported. Duplicates are kept.
func ExtractMentions(ctx context.Context, r Recognizer, text string) ([]string, error) {
	return extractLabelled(ctx, r, text, map[string]bool{LabelGPE: true})
}

func extractLabelled(ctx context.Context, r Recognizer, text string, labels map[string]bool) ([]string, error) {
	mentions := []string{}
	if strings.TrimSpace(text) == "" {
		return mentions, nil
	}
	spans, err := r.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, s := range spans {
		if labels[s.Label] {
			mentions = append(mentions, s.Text)
		}
	}
	return mentions, nil
}
