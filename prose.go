package geostate

import (
	"context"
	"fmt"
	"os"

	"github.com/jdkato/prose/v2"
)

// ProseRecognizer runs a prose NER model. Span offsets are not reported.
type ProseRecognizer struct {
	model *prose.Model // nil selects the built-in English model
	name  string
}

// NewProseRecognizer returns a recognizer using prose's built-in model.
func NewProseRecognizer() *ProseRecognizer {
	return &ProseRecognizer{name: "prose"}
}

// LoadProseModel loads a model directory written by prose.
func LoadProseModel(dir string) (rec *ProseRecognizer, err error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening prose model: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("opening prose model: %s is not a directory", dir)
	}

	// prose panics on unreadable model data.
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("loading prose model %s: %v", dir, r)
		}
	}()
	m := prose.ModelFromDisk(dir)
	return &ProseRecognizer{model: m, name: m.Name}, nil
}

// Name returns the model name.
func (p *ProseRecognizer) Name() string { return p.name }

// Recognize implements Recognizer.
func (p *ProseRecognizer) Recognize(ctx context.Context, text string) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := []prose.DocOpt{prose.WithSegmentation(false)}
	if p.model != nil {
		opts = append(opts, prose.UsingModel(p.model))
	}
	doc, err := prose.NewDocument(text, opts...)
	if err != nil {
		return nil, fmt.Errorf("prose: %w", err)
	}
	ents := doc.Entities()
	spans := make([]Span, len(ents))
	for i, e := range ents {
		spans[i] = Span{Text: e.Text, Label: e.Label, Start: -1, End: -1}
	}
	return spans, nil
}
