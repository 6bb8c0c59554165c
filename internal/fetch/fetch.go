package fetch

import (
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/ime-hub/postscrape/internal/deadletter"
)

const (
	// UserAgent identifies the scraper to origin servers.
	UserAgent = "IME-HubScraper/1.0 (+https://ime-hub.local)"

	defaultTimeout = 15 * time.Second
)

// Payload is one fetched document: raw bytes plus the content type the
// server declared and the URL after redirects.
type Payload struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

// Fetcher retrieves the bytes behind a URL. Implementations return a typed
// fetch failure instead of a plain error so the pipeline can deadletter it.
type Fetcher interface {
	Fetch(url string) (*Payload, *deadletter.Failure)
}

// CollyFetcher fetches pages with a colly collector: custom user agent,
// request timeout, redirects followed.
type CollyFetcher struct {
	UserAgent string
	Timeout   time.Duration
}

func NewCollyFetcher() *CollyFetcher {
	return &CollyFetcher{UserAgent: UserAgent, Timeout: defaultTimeout}
}

func (f *CollyFetcher) Fetch(url string) (*Payload, *deadletter.Failure) {
	c := colly.NewCollector(
		colly.UserAgent(f.UserAgent),
	)
	c.SetRequestTimeout(f.Timeout)

	var payload *Payload
	c.OnResponse(func(r *colly.Response) {
		payload = &Payload{
			Body:        r.Body,
			ContentType: r.Headers.Get("Content-Type"),
			FinalURL:    r.Request.URL.String(),
		}
	})

	if err := c.Visit(url); err != nil {
		return nil, deadletter.New(deadletter.KindFetchError,
			"원문을 불러오지 못했습니다.", err.Error()).With("url", url)
	}
	c.Wait()

	if payload == nil {
		return nil, deadletter.New(deadletter.KindFetchError,
			"원문을 불러오지 못했습니다.", "empty response").With("url", url)
	}
	return payload, nil
}
