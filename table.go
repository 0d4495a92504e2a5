package geostate

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"
)

//go:embed data/iso_match.jsonl
var defaultTableData []byte

// Field names of a mapping record.
const (
	patternField = "pattern"
	codeField    = "ISO_Code"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 1 << 20

// Table maps place-name patterns to 3-letter ISO country codes.
// A Table is immutable once built and safe for concurrent use.
type Table struct {
	codes map[string]string
}

// LineError reports a malformed record in a line-delimited input.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// NewTable builds a Table from a copy of m.
func NewTable(m map[string]string) *Table {
	codes := make(map[string]string, len(m))
	for k, v := range m {
		codes[k] = v
	}
	return &Table{codes: codes}
}

// Lookup returns the code mapped to pattern. The pattern is matched exactly.
// A nil Table maps nothing.
func (t *Table) Lookup(pattern string) (string, bool) {
	if t == nil {
		return "", false
	}
	code, ok := t.codes[pattern]
	return code, ok
}

// Len returns the number of patterns in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}

// Patterns returns all patterns in sorted order.
func (t *Table) Patterns() []string {
	if t == nil {
		return []string{}
	}
	out := make([]string, 0, len(t.codes))
	for p := range t.codes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Validate checks that every code is three upper-case ASCII letters.
// All offending patterns are reported in a single error.
func (t *Table) Validate() error {
	var errs *multierror.Error
	for _, p := range t.Patterns() {
		if code := t.codes[p]; !isISOAlpha3(code) {
			errs = multierror.Append(errs, fmt.Errorf("pattern %q: invalid ISO code %q", p, code))
		}
	}
	return errs.ErrorOrNil()
}

func isISOAlpha3(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// ReadTable parses JSONL mapping records from r. Each non-blank line must be
// a JSON object with string fields "pattern" and "ISO_Code"; other fields are
// ignored. Later records override earlier ones with the same pattern.
func ReadTable(r io.Reader) (*Table, error) {
	codes := make(map[string]string)
	var errs *multierror.Error

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		pattern, code, err := parseRecord(raw)
		if err != nil {
			errs = multierror.Append(errs, &LineError{Line: line, Err: err})
			continue
		}
		codes[pattern] = code
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading mapping records: %w", err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &Table{codes: codes}, nil
}

func parseRecord(raw []byte) (string, string, error) {
	if !gjson.ValidBytes(raw) {
		return "", "", errors.New("invalid JSON")
	}
	rec := gjson.ParseBytes(raw)
	if !rec.IsObject() {
		return "", "", errors.New("record is not an object")
	}
	pattern := rec.Get(patternField)
	if pattern.Type != gjson.String {
		return "", "", fmt.Errorf("missing string field %q", patternField)
	}
	code := rec.Get(codeField)
	if code.Type != gjson.String {
		return "", "", fmt.Errorf("missing string field %q", codeField)
	}
	return pattern.String(), code.String(), nil
}

// LoadTable reads a JSONL mapping file. Files ending in .bz2 or .gz are
// decompressed. If path does not exist but path+".bz2" does, the compressed
// file is read instead.
func LoadTable(path string) (*Table, error) {
	r, cleanup, err := openOptionallyCompressedFile(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	t, err := ReadTable(r)
	if err != nil {
		return nil, fmt.Errorf("loading mapping %s: %w", path, err)
	}
	return t, nil
}

// openOptionallyCompressedFile opens file, falling back to file+".bz2".
func openOptionallyCompressedFile(file string) (io.Reader, func() error, error) {
	fh, err := os.Open(file)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("opening %s: %w", file, err)
		}
		bz, bzErr := os.Open(file + ".bz2")
		if bzErr != nil {
			return nil, nil, fmt.Errorf("opening %s: %w", file, err)
		}
		return bzip2.NewReader(bz), bz.Close, nil
	}

	switch {
	case strings.HasSuffix(file, ".bz2"):
		return bzip2.NewReader(fh), fh.Close, nil
	case strings.HasSuffix(file, ".gz"):
		gz, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, nil, fmt.Errorf("creating gzip reader for %s: %w", file, err)
		}
		return gz, func() error {
			gz.Close()
			return fh.Close()
		}, nil
	}
	return fh, fh.Close, nil
}

// LoadCountryInfo builds a table from a Geonames countryInfo.txt file.
// The country name, the ISO alpha-2 code and the ISO alpha-3 code of every
// row each map to the alpha-3 code.
func LoadCountryInfo(path string) (*Table, error) {
	r, cleanup, err := openOptionallyCompressedFile(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	codes := make(map[string]string)
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)

	for scanner.Scan() {
		t := scanner.Text()
		if len(t) == 0 || t[0] == '#' {
			continue
		}

		fields := strings.SplitN(t, "\t", 19)
		if len(fields) != 19 || fields[0] == "" || fields[0] == "0" {
			continue
		}
		iso3 := strings.TrimSpace(fields[1])
		if iso3 == "" {
			continue
		}
		codes[iso3] = iso3
		codes[strings.TrimSpace(fields[0])] = iso3
		if name := strings.TrimSpace(fields[4]); name != "" {
			codes[name] = iso3
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loading country info %s: %w", path, err)
	}
	return &Table{codes: codes}, nil
}

var (
	defaultTable     *Table
	defaultTableOnce sync.Once
	defaultTableErr  error
)

// DefaultTable returns the embedded country-name table, parsing it on first
// call. The returned table is shared.
func DefaultTable() (*Table, error) {
	defaultTableOnce.Do(func() {
		defaultTable, defaultTableErr = ReadTable(bytes.NewReader(defaultTableData))
	})
	return defaultTable, defaultTableErr
}
