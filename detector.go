package geostate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Errors returned by NewDetector.
var (
	ErrNoRecognizer = errors.New("geostate: no recognizer configured")
	ErrNoTable      = errors.New("geostate: no mapping table configured")
)

// DetectorConfig contains the collaborators of a Detector.
type DetectorConfig struct {
	Recognizer Recognizer   // entity model
	Table      *Table       // pattern -> ISO code
	Labels     []string     // entity labels to keep (default: GPE)
	Logger     *slog.Logger // default: discards output
}

// Option is a functional option for configuring a Detector.
type Option func(*DetectorConfig)

// WithRecognizer sets the entity model.
func WithRecognizer(r Recognizer) Option {
	return func(c *DetectorConfig) {
		c.Recognizer = r
	}
}

// WithTable sets the mapping table.
func WithTable(t *Table) Option {
	return func(c *DetectorConfig) {
		c.Table = t
	}
}

// WithLabels replaces the entity labels that count as mentions.
func WithLabels(labels ...string) Option {
	return func(c *DetectorConfig) {
		c.Labels = labels
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *DetectorConfig) {
		c.Logger = l
	}
}

func defaultConfig() *DetectorConfig {
	return &DetectorConfig{
		Labels: []string{LabelGPE},
		Logger: slog.New(slog.DiscardHandler),
	}
}

// Detector extracts place mentions from text and maps them to ISO codes.
// Safe for concurrent use; nothing is mutated after construction.
type Detector struct {
	recognizer Recognizer
	table      *Table
	labels     map[string]bool
	log        *slog.Logger
}

// Detection holds the three lists produced for one text.
type Detection struct {
	Mentions    []string     // entity surface text, in model order
	Codes       []string     // one code or placeholder per mention
	Cleaned     []string     // Codes without placeholders
	Resolutions []Resolution // tagged form of Codes
}

// NewDetector creates a Detector. A recognizer and a table are required.
//
// Example:
//
//	table, err := geostate.LoadTable("iso_match.jsonl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	d, err := geostate.NewDetector(
//	    geostate.WithRecognizer(geostate.NewProseRecognizer()),
//	    geostate.WithTable(table),
//	)
func NewDetector(opts ...Option) (*Detector, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Recognizer == nil {
		return nil, ErrNoRecognizer
	}
	if cfg.Table == nil {
		return nil, ErrNoTable
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	labels := make(map[string]bool, len(cfg.Labels))
	for _, l := range cfg.Labels {
		labels[l] = true
	}

	d := &Detector{
		recognizer: cfg.Recognizer,
		table:      cfg.Table,
		labels:     labels,
		log:        cfg.Logger,
	}
	d.log.Info("detector ready", "patterns", cfg.Table.Len(), "labels", cfg.Labels)
	return d, nil
}

// Table returns the mapping table in use.
func (d *Detector) Table() *Table { return d.table }

// Detect runs extraction, mapping and cleaning over text.
func (d *Detector) Detect(ctx context.Context, text string) (Detection, error) {
	mentions, err := extractLabelled(ctx, d.recognizer, text, d.labels)
	if err != nil {
		return Detection{}, fmt.Errorf("detect: %w", err)
	}
	res := buildDetection(mentions, d.table)
	d.log.Debug("detected states",
		"mentions", len(res.Mentions),
		"resolved", len(res.Cleaned),
		"unresolved", len(res.Mentions)-len(Resolved(res.Resolutions)))
	return res, nil
}

// DetectStates runs the pipeline without a Detector, keeping GPE spans.
func DetectStates(ctx context.Context, r Recognizer, t *Table, text string) (Detection, error) {
	mentions, err := ExtractMentions(ctx, r, text)
	if err != nil {
		return Detection{}, fmt.Errorf("detect: %w", err)
	}
	return buildDetection(mentions, t), nil
}

func buildDetection(mentions []string, t *Table) Detection {
	rs := Resolve(mentions, t)
	codes := codeStrings(rs)
	return Detection{
		Mentions:    mentions,
		Codes:       codes,
		Cleaned:     CleanCodes(codes),
		Resolutions: rs,
	}
}
