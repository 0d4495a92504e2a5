package geostate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// Model is a Recognizer with a display name.
type Model interface {
	Recognizer
	Name() string
}

// Model locations understood by OpenModel besides paths and URLs.
const (
	ModelBuiltin = "builtin" // embedded country-name patterns
	ModelProse   = "prose"   // prose's built-in English model
)

// patternsExt is the extension of EntityRuler patterns files.
const patternsExt = ".jsonl"

// rulerPatternsPath is where spaCy model directories keep EntityRuler patterns.
var rulerPatternsPath = filepath.Join("entity_ruler", "patterns.jsonl")

// OpenModel loads the model at location:
//
//	""  or "prose"          prose's built-in model
//	"builtin"               embedded country-name patterns
//	http:// or https:// URL remote sidecar, probed once
//	*.jsonl file            EntityRuler patterns, optionally .gz or .bz2
//	dir with entity_ruler/  EntityRuler patterns from the model directory
//	other directory         prose model written to disk
//
// Any failure is returned so the caller can stop before accepting input.
func OpenModel(ctx context.Context, location string) (Model, error) {
	switch {
	case location == "" || location == ModelProse:
		return NewProseRecognizer(), nil
	case location == ModelBuiltin:
		return asModel(DefaultRuler())
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		rc := NewRemoteRecognizer(location, nil)
		if _, err := rc.Recognize(ctx, ""); err != nil {
			return nil, fmt.Errorf("probing model %s: %w", location, err)
		}
		return rc, nil
	}

	fi, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}
	if !fi.IsDir() {
		name, ok := patternsFileName(location)
		if !ok {
			return nil, fmt.Errorf("unsupported model file %s: want %s, %s.gz or %s.bz2", location, patternsExt, patternsExt, patternsExt)
		}
		return asModel(LoadRuler(name, location))
	}

	patterns := filepath.Join(location, rulerPatternsPath)
	if _, err := os.Stat(patterns); err == nil {
		return asModel(LoadRuler(modelName(location), patterns))
	}
	p, err := LoadProseModel(location)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// patternsFileName returns the model name of an EntityRuler patterns file,
// optionally compressed: "gpe.jsonl.gz" is named "gpe".
func patternsFileName(path string) (string, bool) {
	base := filepath.Base(path)
	for _, ext := range []string{".gz", ".bz2"} {
		base = strings.TrimSuffix(base, ext)
	}
	if filepath.Ext(base) != patternsExt {
		return "", false
	}
	return strings.TrimSuffix(base, patternsExt), true
}

func asModel(r *Ruler, err error) (Model, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

// modelName reads "lang_name-version" from a spaCy meta.json, falling back
// to the directory name.
func modelName(dir string) string {
	fallback := filepath.Base(dir)
	raw, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil || !gjson.ValidBytes(raw) {
		return fallback
	}
	meta := gjson.GetManyBytes(raw, "lang", "name", "version")
	if meta[1].String() == "" {
		return fallback
	}
	name := meta[1].String()
	if lang := meta[0].String(); lang != "" {
		name = lang + "_" + name
	}
	if v := meta[2].String(); v != "" {
		name += "-" + v
	}
	return name
}
