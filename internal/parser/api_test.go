package parser

import (
	"testing"

	"github.com/ime-hub/postscrape/internal/config"
)

func TestAPIParserAcceptsTopLevelArray(t *testing.T) {
	body := `[{"title":"A","url":"https://example.com/a"},{"title":"B"},"not an object"]`
	p := &APIParser{}
	recs := p.Parse([]byte(body), "application/json", config.Source{})
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].String("title") != "A" || recs[0].String("url") != "https://example.com/a" {
		t.Fatalf("first = %+v", recs[0])
	}
}

func TestAPIParserUnwrapsConventionalKeys(t *testing.T) {
	body := `{"data":[{"title":"One"},{"title":"Two"}]}`
	p := &APIParser{}
	recs := p.Parse([]byte(body), "application/json", config.Source{})
	if len(recs) != 2 {
		t.Fatalf("expected 2 records under data, got %d", len(recs))
	}

	body = `{"items":[{"title":"I"}],"results":[{"title":"R"}]}`
	recs = p.Parse([]byte(body), "application/json", config.Source{})
	if len(recs) != 2 {
		t.Fatalf("expected records from every known key, got %d", len(recs))
	}
	if recs[0].String("title") != "I" {
		t.Fatalf("items should come before results: %+v", recs[0])
	}
}

func TestAPIParserYieldsNothingOnUnknownShapes(t *testing.T) {
	p := &APIParser{}
	for _, body := range []string{
		`{"unexpected":1}`,
		`"just a string"`,
		`not json at all`,
		`12345`,
	} {
		if recs := p.Parse([]byte(body), "application/json", config.Source{}); len(recs) != 0 {
			t.Fatalf("Parse(%q) should yield no records, got %d", body, len(recs))
		}
	}
}

func TestRawRecordAccessors(t *testing.T) {
	rec := RawRecord{
		"title": "  spaced  ",
		"blank": "   ",
		"tags":  []any{"a", "b"},
		"num":   42,
	}

	if got := rec.String("missing", "blank", "title"); got != "spaced" {
		t.Fatalf("String should skip missing and blank keys: %q", got)
	}
	if got := rec.String("num"); got != "" {
		t.Fatalf("non-string value should read as empty, got %q", got)
	}

	tags := rec.StringList("tags")
	if len(tags) != 2 || tags[0] != "a" {
		t.Fatalf("StringList = %v", tags)
	}
	if got := rec.StringList("num"); len(got) != 0 {
		t.Fatalf("non-list StringList should be empty, got %v", got)
	}
	if rec.Value("missing") != nil {
		t.Fatalf("Value of missing key should be nil")
	}
}
