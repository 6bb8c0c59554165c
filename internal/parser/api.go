package parser

import (
	"encoding/json"

	"github.com/ime-hub/postscrape/internal/config"
)

// apiListKeys are the conventional wrapper keys tried, in order, when an API
// responds with an object instead of a top-level array.
var apiListKeys = []string{"items", "data", "results"}

// APIParser parses structured JSON payloads. Top-level arrays of objects are
// accepted directly; objects are searched for a list under a conventional
// key. Malformed input yields an empty sequence, never a source failure.
type APIParser struct{}

func (p *APIParser) Parse(body []byte, _ string, _ config.Source) []RawRecord {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	switch v := payload.(type) {
	case []any:
		return collectRecords(v)
	case map[string]any:
		var items []RawRecord
		for _, key := range apiListKeys {
			if seq, ok := v[key].([]any); ok {
				items = append(items, collectRecords(seq)...)
			}
		}
		return items
	}
	return nil
}

func collectRecords(seq []any) []RawRecord {
	items := make([]RawRecord, 0, len(seq))
	for _, entry := range seq {
		if obj, ok := entry.(map[string]any); ok {
			items = append(items, RawRecord(obj))
		}
	}
	return items
}
