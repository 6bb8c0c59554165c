// Package normalize maps one raw record plus its source configuration into a
// canonical post document: field defaults, category payload shaping, date and
// URL normalization, PII scrubbing and schema validation.
package normalize

import (
	"fmt"
	"strings"

	"github.com/ime-hub/postscrape/internal/config"
	"github.com/ime-hub/postscrape/internal/deadletter"
	"github.com/ime-hub/postscrape/internal/parser"
	"github.com/ime-hub/postscrape/internal/post"
)

// Record builds a canonical post from one raw record. today is the run date
// (YYYY-MM-DD), seq the run-wide id sequence number, since an optional
// publish-date cutoff. The returned slug is the dedup identity.
func Record(src config.Source, rec parser.RawRecord, today string, seq int, since string) (*post.Doc, string, *deadletter.Failure) {
	title := rec.String("title", "name")
	if title == "" {
		return nil, "", deadletter.New(deadletter.KindNormalize,
			"제목이 비어 있어 건너뜁니다.", "missing title").With("source", src.ID)
	}
	slug := post.Slugify(title)

	link := post.ToHTTPS(rec.String("link", "url"))
	if link == "" {
		// Keep the source's own origin when the record has no usable link.
		// An empty result here is tolerated; the validator rejects it.
		link = post.ToHTTPS(src.URL)
	}

	deadline := post.ParseDate(rec.String("deadline", "date", "closing"))

	datePublished := post.ParseDate(rec.String("date_published", "published", "created"))
	if datePublished == "" {
		datePublished = today
	}
	if since != "" && datePublished < since {
		return nil, "", deadletter.New(deadletter.KindSinceFilter,
			"since 이전 게시물", fmt.Sprintf("%s < %s", datePublished, since)).With("source", src.ID)
	}

	subtitle := rec.String("subtitle", "summary")

	tags := rec.StringList("tags")
	if mapped, ok := mappingStringList(src.Mapping, "tags"); ok {
		tags = mapped
	}

	postType := chooseType(src)
	payload := buildPayload(postType, src.Mapping, rec, title, link)
	scrubPayload(payload)

	doc := &post.Doc{
		ID:            fmt.Sprintf("ime-%s-%04d", datePublished, seq),
		Type:          postType,
		Title:         title,
		Subtitle:      subtitle,
		Tags:          tags,
		DatePublished: datePublished,
		Deadline:      deadline,
		LastCheckedAt: today,
		SourceName:    src.Name(),
		SourceURL:     link,
		HeroImage:     rec.String("hero_image", "image"),
		Payload:       payload,
	}

	if f := post.Validate(doc); f != nil {
		return nil, "", f
	}
	return doc, slug, nil
}

// chooseType picks the post category: explicit source configuration first,
// then an id heuristic, then notice.
func chooseType(src config.Source) string {
	if src.PostType != "" {
		return src.PostType
	}
	if strings.Contains(strings.ToLower(src.ID), "job") {
		return post.TypeJob
	}
	return post.TypeNotice
}

// mget resolves one payload value: a mapping override wins over the
// record-derived fallback.
func mget(mapping map[string]any, key string, fallback any) any {
	if mapping != nil {
		if v, ok := mapping[key]; ok {
			return v
		}
	}
	return fallback
}

func mappingStringList(mapping map[string]any, key string) ([]string, bool) {
	if mapping == nil {
		return nil, false
	}
	v, ok := mapping[key]
	if !ok {
		return nil, false
	}
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out, true
	}
	return nil, false
}

func buildPayload(postType string, mapping map[string]any, rec parser.RawRecord, title, link string) map[string]any {
	switch postType {
	case post.TypeJob:
		applyURL := rec.String("apply_url")
		if applyURL == "" {
			applyURL = link
		}
		if coerced := post.ToHTTPS(applyURL); coerced != "" {
			applyURL = coerced
		} else {
			applyURL = link
		}
		return map[string]any{
			"company":         mget(mapping, "company", rec.String("company", "org")),
			"role":            stringOr(rec.String("role"), title),
			"location":        rec.String("location"),
			"employment_type": mget(mapping, "employment_type", rec.String("employment_type", "type")),
			"salary_min":      rec.Value("salary_min"),
			"salary_max":      rec.Value("salary_max"),
			"apply_url":       applyURL,
			"requirements":    rec.StringList("requirements"),
			"nice_to_have":    rec.StringList("nice_to_have"),
		}
	case post.TypeScholarship:
		return map[string]any{
			"amount_max":         rec.Value("amount_max"),
			"eligible_years":     rec.StringList("eligible_years"),
			"gpa_min":            rec.Value("gpa_min"),
			"income_bracket_max": rec.Value("income_bracket_max"),
			"major":              rec.Value("major"),
			"region":             rec.Value("region"),
			"requirements":       rec.StringList("requirements"),
			"documents":          rec.StringList("documents"),
			"apply_steps":        rec.StringList("apply_steps"),
			"notes":              rec.StringList("notes"),
		}
	case post.TypeActivity:
		org := rec.String("organization", "company")
		if org == "" {
			org = fmt.Sprint(mget(mapping, "company", ""))
		}
		return map[string]any{
			"organization": org,
			"period":       rec.String("period"),
			"location":     rec.String("location"),
			"benefits":     rec.StringList("benefits"),
			"requirements": rec.StringList("requirements"),
			"selection":    rec.StringList("selection"),
			"contacts":     rec.StringList("contacts"),
		}
	case post.TypeGrad:
		return map[string]any{
			"university":           rec.String("university", "org"),
			"program":              stringOr(rec.String("program"), title),
			"round":                rec.String("round"),
			"tuition_per_semester": rec.Value("tuition_per_semester"),
			"stipend":              rec.Value("stipend"),
			"contact":              rec.String("contact"),
		}
	}

	// notice / event: pass through whatever payload the record supplies.
	if supplied, ok := rec.Value("payload").(map[string]any); ok {
		return supplied
	}
	return map[string]any{}
}

// scrubPayload redacts emails and phone numbers inside every payload field
// that is a list of strings, in place.
func scrubPayload(payload map[string]any) {
	for key, value := range payload {
		switch list := value.(type) {
		case []string:
			for i, item := range list {
				list[i] = post.ScrubPII(item)
			}
		case []any:
			// Decoded JSON lists arrive as []any; scrub only all-string ones.
			scrubbed := make([]string, len(list))
			allStrings := true
			for i, item := range list {
				s, ok := item.(string)
				if !ok {
					allStrings = false
					break
				}
				scrubbed[i] = post.ScrubPII(s)
			}
			if allStrings {
				payload[key] = scrubbed
			}
		}
	}
}

func stringOr(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
