package post

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISODate is the calendar-date layout every stored date uses.
const ISODate = "2006-01-02"

// Redacted replaces scrubbed PII in free text.
const Redacted = "[redacted]"

const slugMaxLen = 48

var (
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	httpsRe   = regexp.MustCompile(`(?i)^https://`)
	emailRe   = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	// Korean mobile and landline number shapes.
	phoneRe = regexp.MustCompile(`(?:(?:\+?82|0)1[0-9]-?\d{3,4}-?\d{4}|\d{2,4}-\d{3,4}-\d{4})`)

	slugSeparatorRe = regexp.MustCompile(`[\s_]+`)
	slugStripRe     = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashRe      = regexp.MustCompile(`-+`)

	// Tolerant year-month-day scan for free-form date strings.
	dateScanRe = regexp.MustCompile(`(20\d{2}|19\d{2})[-./](\d{1,2})[-./](\d{1,2})`)
)

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",
	"02-01-2006",
	"02/01/2006",
}

// IsISODate reports whether s is a YYYY-MM-DD string.
func IsISODate(s string) bool {
	return isoDateRe.MatchString(s)
}

// Slugify derives the URL-safe dedup token from a title: lowercase,
// whitespace/underscores to hyphens, strip everything outside [a-z0-9-],
// collapse runs of hyphens and cap the length. Empty input yields "post".
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugSeparatorRe.ReplaceAllString(s, "-")
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > slugMaxLen {
		s = s[:slugMaxLen]
	}
	if s == "" {
		return "post"
	}
	return s
}

// ParseDate normalizes common date variants into YYYY-MM-DD, conservatively.
// Returns "" when nothing parseable is found.
func ParseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate)
		}
	}
	if m := dateScanRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		// time.Date normalizes overflow (e.g. Feb 31); reject those.
		if t.Year() == year && int(t.Month()) == month && t.Day() == day {
			return t.Format(ISODate)
		}
	}
	return ""
}

// ToHTTPS coerces an http(s) URL to the https scheme. Anything that is not
// an HTTP-like URL normalizes to "".
func ToHTTPS(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(strings.ToLower(raw), "http") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		u.Scheme = "https"
	}
	rebuilt := u.String()
	if !httpsRe.MatchString(rebuilt) {
		return ""
	}
	return rebuilt
}

// ScrubPII replaces email addresses and phone numbers with the redaction
// marker.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, Redacted)
	text = phoneRe.ReplaceAllString(text, Redacted)
	return text
}
