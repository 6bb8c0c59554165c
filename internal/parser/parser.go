// Package parser turns fetched bytes into loosely typed raw records. The
// three variants (feed, markup, structured API) are capability-equivalent
// from the normalizer's point of view: each yields a flat []RawRecord.
package parser

import (
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/ime-hub/postscrape/internal/config"
)

// Parser extracts an ordered sequence of raw records from one payload.
type Parser interface {
	Parse(body []byte, contentType string, src config.Source) []RawRecord
}

// ForSource selects the parser variant for a source kind. The second return
// is false for unknown kinds.
func ForSource(src config.Source) (Parser, bool) {
	switch src.Type {
	case config.KindFeed:
		return &FeedParser{}, true
	case config.KindMarkup:
		return &MarkupParser{}, true
	case config.KindAPI:
		return &APIParser{}, true
	}
	return nil, false
}

// decodeToUTF8 converts a fetched body to UTF-8 using the content-type hint
// and byte sniffing. On decode failure the raw bytes are kept as-is.
func decodeToUTF8(data []byte, contentType string) string {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	if !utf8.Valid(decoded) {
		return string(data)
	}
	return string(decoded)
}
