package geostate

import (
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	. "gopkg.in/check.v1"
)

type TableSuite struct {
	dir string
}

var _ = Suite(&TableSuite{})

func (s *TableSuite) SetUpTest(c *C) {
	s.dir = c.MkDir()
}

func (s *TableSuite) write(c *C, name, content string) string {
	path := filepath.Join(s.dir, name)
	c.Assert(os.WriteFile(path, []byte(content), 0644), IsNil)
	return path
}

const sampleMapping = `{"pattern": "France", "ISO_Code": "FRA", "label": "GPE"}

{"pattern": "Germany", "ISO_Code": "DEU"}
{"pattern": "Deutschland", "ISO_Code": "DEU", "source": "alias"}
`

func (s *TableSuite) TestLoadTable(c *C) {
	path := s.write(c, "iso.jsonl", sampleMapping)
	t, err := LoadTable(path)
	c.Assert(err, IsNil)
	c.Assert(t.Len(), Equals, 3)
	c.Assert(t.Patterns(), DeepEquals, []string{"Deutschland", "France", "Germany"})

	code, ok := t.Lookup("France")
	c.Assert(ok, Equals, true)
	c.Assert(code, Equals, "FRA")

	_, ok = t.Lookup("france")
	c.Assert(ok, Equals, false)
}

func (s *TableSuite) TestLastRecordWins(c *C) {
	t, err := ReadTable(strings.NewReader(`{"pattern": "Congo", "ISO_Code": "COG"}
{"pattern": "Congo", "ISO_Code": "COD"}
`))
	c.Assert(err, IsNil)
	c.Assert(t.Len(), Equals, 1)
	code, _ := t.Lookup("Congo")
	c.Assert(code, Equals, "COD")
}

func (s *TableSuite) TestMalformedRecordsCollected(c *C) {
	_, err := ReadTable(strings.NewReader(`{"pattern": "France", "ISO_Code": "FRA"}
not json
{"pattern": "Germany"}
{"pattern": 7, "ISO_Code": "SEV"}
["France", "FRA"]
`))
	c.Assert(err, NotNil)

	var merr *multierror.Error
	c.Assert(errors.As(err, &merr), Equals, true)
	c.Assert(merr.Errors, HasLen, 4)

	var lines []int
	for _, e := range merr.Errors {
		var le *LineError
		c.Assert(errors.As(e, &le), Equals, true)
		lines = append(lines, le.Line)
	}
	c.Assert(lines, DeepEquals, []int{2, 3, 4, 5})
	c.Assert(err, ErrorMatches, `(?s).*line 3: missing string field "ISO_Code".*`)
}

func (s *TableSuite) TestLoadTableMissingFile(c *C) {
	_, err := LoadTable(filepath.Join(s.dir, "absent.jsonl"))
	c.Assert(err, NotNil)
	c.Assert(errors.Is(err, os.ErrNotExist), Equals, true)
}

func (s *TableSuite) TestLoadTableGzip(c *C) {
	path := filepath.Join(s.dir, "iso.jsonl.gz")
	f, err := os.Create(path)
	c.Assert(err, IsNil)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(sampleMapping))
	c.Assert(err, IsNil)
	c.Assert(zw.Close(), IsNil)
	c.Assert(f.Close(), IsNil)

	t, err := LoadTable(path)
	c.Assert(err, IsNil)
	c.Assert(t.Len(), Equals, 3)
}

func (s *TableSuite) TestLoadCountryInfo(c *C) {
	row := func(fields ...string) string {
		out := make([]string, 19)
		copy(out, fields)
		return strings.Join(out, "\t")
	}
	content := strings.Join([]string{
		"# ISO\tISO3\tISO-Numeric\tfips\tCountry",
		row("FR", "FRA", "250", "FR", "France", "Paris"),
		row("DE", "DEU", "276", "GM", "Germany", "Berlin"),
		"too\tfew\tfields",
		"",
	}, "\n")
	path := s.write(c, "countryInfo.txt", content)

	t, err := LoadCountryInfo(path)
	c.Assert(err, IsNil)
	c.Assert(t.Patterns(), DeepEquals, []string{"DE", "DEU", "FR", "FRA", "France", "Germany"})
	code, _ := t.Lookup("Germany")
	c.Assert(code, Equals, "DEU")
	code, _ = t.Lookup("FR")
	c.Assert(code, Equals, "FRA")
}

func (s *TableSuite) TestDefaultTable(c *C) {
	t, err := DefaultTable()
	c.Assert(err, IsNil)
	c.Assert(t.Len() > 240, Equals, true)
	c.Assert(t.Validate(), IsNil)

	again, err := DefaultTable()
	c.Assert(err, IsNil)
	c.Assert(again, Equals, t)

	for mention, want := range map[string]string{"France": "FRA", "Germany": "DEU", "UK": "GBR", "USA": "USA"} {
		code, ok := t.Lookup(mention)
		c.Check(ok, Equals, true, Commentf("mention %q", mention))
		c.Check(code, Equals, want, Commentf("mention %q", mention))
	}
}

func TestNewTableCopiesInput(t *testing.T) {
	m := map[string]string{"France": "FRA"}
	table := NewTable(m)
	m["France"] = "XXX"
	m["Germany"] = "DEU"

	if code, _ := table.Lookup("France"); code != "FRA" {
		t.Errorf("Lookup(France) = %q after mutating input, want FRA", code)
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		codes   map[string]string
		wantBad []string
	}{
		{name: "valid", codes: map[string]string{"France": "FRA", "Germany": "DEU"}},
		{name: "empty table", codes: map[string]string{}},
		{
			name:    "invalid codes",
			codes:   map[string]string{"France": "fra", "Germany": "DEUT", "Spain": "ESP", "Nowhere": ""},
			wantBad: []string{"France", "Germany", "Nowhere"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTable(tt.codes).Validate()
			if len(tt.wantBad) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var merr *multierror.Error
			if !errors.As(err, &merr) {
				t.Fatalf("Validate() = %v, want *multierror.Error", err)
			}
			var bad []string
			for _, p := range NewTable(tt.codes).Patterns() {
				if strings.Contains(err.Error(), `pattern "`+p+`"`) {
					bad = append(bad, p)
				}
			}
			want := append([]string(nil), tt.wantBad...)
			sort.Strings(want)
			if !reflect.DeepEqual(bad, want) {
				t.Errorf("Validate() flagged %q, want %q", bad, want)
			}
			if len(merr.Errors) != len(tt.wantBad) {
				t.Errorf("Validate() returned %d errors, want %d", len(merr.Errors), len(tt.wantBad))
			}
		})
	}
}
