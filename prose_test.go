package geostate

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/jdkato/prose/v2"
)

const proseSentence = "Delegates from France and Germany met in Paris. Later Japan joined."

func TestProseRecognize(t *testing.T) {
	r := NewProseRecognizer()
	text := proseSentence

	spans, err := r.Recognize(context.Background(), text)
	if err != nil {
		t.Fatalf("Recognize() error: %v", err)
	}
	var gpe []string
	for _, s := range spans {
		if s.Start != -1 || s.End != -1 {
			t.Errorf("span %+v: offsets = %d:%d, want -1:-1", s, s.Start, s.End)
		}
		if s.Label == LabelGPE {
			gpe = append(gpe, s.Text)
		}
	}
	want := []string{"France", "Germany", "Paris"}
	if !reflect.DeepEqual(gpe, want) {
		t.Errorf("GPE spans = %q, want %q", gpe, want)
	}
	if len(spans) <= len(gpe) {
		t.Fatalf("spans = %+v, want a non-GPE span as well", spans)
	}

	mentions, err := ExtractMentions(context.Background(), r, text)
	if err != nil {
		t.Fatalf("ExtractMentions() error: %v", err)
	}
	if !reflect.DeepEqual(mentions, want) {
		t.Errorf("ExtractMentions() = %q, want %q", mentions, want)
	}
}

func TestProseRecognizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProseRecognizer().Recognize(ctx, "France"); err == nil {
		t.Error("Recognize() error = nil, want context error")
	}
}

func TestLoadProseModelCorrupt(t *testing.T) {
	empty := t.TempDir()

	garbage := t.TempDir()
	if err := os.MkdirAll(filepath.Join(garbage, "Maxent"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(garbage, "Maxent", "mapping.gob"), []byte("not a gob stream"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, dir := range []string{empty, garbage} {
		rec, err := LoadProseModel(dir)
		if err == nil {
			t.Errorf("LoadProseModel(%q) error = nil, want error", dir)
		}
		if rec != nil {
			t.Errorf("LoadProseModel(%q) = %v, want nil", dir, rec)
		}
	}
}

func TestLoadProseModel(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gpe-model")
	// No data sources: the default English classifier is written out.
	m := prose.ModelFromData("gpe-model")
	if err := m.Write(dir); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	rec, err := LoadProseModel(dir)
	if err != nil {
		t.Fatalf("LoadProseModel() error: %v", err)
	}
	if rec.Name() != "gpe-model" {
		t.Errorf("Name() = %q, want %q", rec.Name(), "gpe-model")
	}
	mentions, err := ExtractMentions(context.Background(), rec, proseSentence)
	if err != nil {
		t.Fatalf("ExtractMentions() error: %v", err)
	}
	if want := []string{"France", "Germany", "Paris"}; !reflect.DeepEqual(mentions, want) {
		t.Errorf("ExtractMentions() = %q, want %q", mentions, want)
	}

	got, err := OpenModel(context.Background(), dir)
	if err != nil {
		t.Fatalf("OpenModel(%q) error: %v", dir, err)
	}
	if _, ok := got.(*ProseRecognizer); !ok {
		t.Errorf("OpenModel(%q) = %T, want *ProseRecognizer", dir, got)
	}
}
