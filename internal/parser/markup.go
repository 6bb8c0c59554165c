package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ime-hub/postscrape/internal/config"
)

// defaultItemSelector is used when a markup source configures no item
// selector of its own.
const defaultItemSelector = "article, .item, .card, li"

var collapseSpaceRe = regexp.MustCompile(`\s+`)

// MarkupParser extracts one record per matched item node using the source's
// selector configuration. A matched link-like attribute (href, src) wins over
// the node's text. When goquery cannot parse the document a minimal fallback
// extracts anchor text/href pairs only.
type MarkupParser struct{}

func (p *MarkupParser) Parse(body []byte, contentType string, src config.Source) []RawRecord {
	text := decodeToUTF8(body, contentType)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return parseAnchorFallback(text)
	}

	var sel config.Selectors
	if src.Selectors != nil {
		sel = *src.Selectors
	}
	itemSel := sel.Item
	if itemSel == "" {
		itemSel = defaultItemSelector
	}

	var items []RawRecord
	doc.Find(itemSel).Each(func(_ int, el *goquery.Selection) {
		rec := RawRecord{
			"title":    selectValue(el, sel.Title),
			"link":     selectValue(el, sel.Link),
			"date":     selectValue(el, sel.Date),
			"subtitle": selectValue(el, sel.Subtitle),
			"tags":     selectTags(el, sel.Tags),
		}
		items = append(items, rec)
	})
	return items
}

// selectValue resolves one selector inside an item node, preferring a
// link-like attribute over the node text.
func selectValue(el *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	node := el.Find(selector).First()
	if node.Length() == 0 {
		return ""
	}
	if href, ok := node.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return strings.TrimSpace(href)
	}
	if srcAttr, ok := node.Attr("src"); ok && strings.TrimSpace(srcAttr) != "" {
		return strings.TrimSpace(srcAttr)
	}
	return normalizeSpace(node.Text())
}

func selectTags(el *goquery.Selection, selector string) []string {
	tags := []string{}
	if selector == "" {
		return tags
	}
	el.Find(selector).Each(func(_ int, tag *goquery.Selection) {
		if t := normalizeSpace(tag.Text()); t != "" {
			tags = append(tags, t)
		}
	})
	return tags
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(collapseSpaceRe.ReplaceAllString(s, " "))
}

// parseAnchorFallback walks the token stream and emits one record per anchor
// with an href, using the anchor text as the title.
func parseAnchorFallback(text string) []RawRecord {
	tokenizer := html.NewTokenizer(strings.NewReader(text))

	var items []RawRecord
	var href string
	var linkText strings.Builder
	inAnchor := false

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return items
		case html.StartTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			inAnchor = true
			href = ""
			linkText.Reset()
			for _, attr := range token.Attr {
				if attr.Key == "href" {
					href = strings.TrimSpace(attr.Val)
				}
			}
		case html.TextToken:
			if inAnchor {
				linkText.WriteString(tokenizer.Token().Data)
			}
		case html.EndTagToken:
			if tokenizer.Token().Data != "a" || !inAnchor {
				continue
			}
			inAnchor = false
			title := normalizeSpace(linkText.String())
			if href == "" || title == "" {
				continue
			}
			items = append(items, RawRecord{"title": title, "link": href, "date": ""})
		}
	}
}
