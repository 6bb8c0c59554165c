package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/ime-hub/postscrape/internal/config"
)

// FeedParser extracts {title, link, date, summary} per entry from a
// syndication-style document. gofeed handles RSS and Atom; when it cannot
// make sense of the payload a minimal fallback pulls repeated <item> blocks
// apart with tolerant pattern matching.
type FeedParser struct{}

var (
	feedItemRe  = regexp.MustCompile(`(?is)<item[\s>](.*?)</item>`)
	feedTitleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	feedLinkRe  = regexp.MustCompile(`(?is)<link[^>]*>(.*?)</link>`)
	feedDateRe  = regexp.MustCompile(`(?is)<pubdate[^>]*>(.*?)</pubdate>`)

	anyTagRe = regexp.MustCompile(`(?s)<[^>]*>`)
)

func (p *FeedParser) Parse(body []byte, _ string, _ config.Source) []RawRecord {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil || feed == nil {
		return parseFeedFallback(body)
	}

	items := make([]RawRecord, 0, len(feed.Items))
	for _, entry := range feed.Items {
		date := entry.Published
		if date == "" {
			date = entry.Updated
		}
		items = append(items, RawRecord{
			"title":   strings.TrimSpace(entry.Title),
			"link":    strings.TrimSpace(entry.Link),
			"date":    strings.TrimSpace(date),
			"summary": strings.TrimSpace(stripTags(entry.Description)),
		})
	}
	return items
}

// parseFeedFallback locates <item> blocks and pulls title/link/pubDate
// sub-fields out of each, stripping any embedded markup.
func parseFeedFallback(body []byte) []RawRecord {
	text := string(body)
	var items []RawRecord
	for _, m := range feedItemRe.FindAllStringSubmatch(text, -1) {
		block := m[1]
		items = append(items, RawRecord{
			"title":   feedField(feedTitleRe, block),
			"link":    feedField(feedLinkRe, block),
			"date":    feedField(feedDateRe, block),
			"summary": "",
		})
	}
	return items
}

func feedField(re *regexp.Regexp, block string) string {
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return stripTags(m[1])
}

func stripTags(s string) string {
	return strings.TrimSpace(anyTagRe.ReplaceAllString(s, ""))
}
