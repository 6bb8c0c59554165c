// Package pipeline sequences one collection run: polite delay, fetch, parse,
// normalize, validate, upsert, with per-source and global caps and a single
// central decision about which failures reach the deadletter sink.
package pipeline

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/ime-hub/postscrape/internal/config"
	"github.com/ime-hub/postscrape/internal/deadletter"
	"github.com/ime-hub/postscrape/internal/fetch"
	"github.com/ime-hub/postscrape/internal/normalize"
	"github.com/ime-hub/postscrape/internal/parser"
	"github.com/ime-hub/postscrape/internal/post"
	"github.com/ime-hub/postscrape/internal/storage"
)

// Process exit statuses.
const (
	ExitOK      = 0
	ExitPartial = 2
	ExitFatal   = 3
)

const (
	defaultMaxPerSource = 100
	defaultLimit        = 1000
)

// Params are the run parameters owned by the CLI collaborator.
type Params struct {
	Sources      string // comma-separated source id allowlist, empty = all
	Since        string // YYYY-MM-DD cutoff, empty = no filter
	MaxPerSource int
	Limit        int
	DryRun       bool
	Verbose      bool
}

// Outcome aggregates one run.
type Outcome struct {
	Written        int
	Updated        int
	PartialFailure bool
}

// Processed is the number of items the run accepted, new and re-observed.
func (o Outcome) Processed() int {
	return o.Written + o.Updated
}

// ExitCode maps the outcome onto the process exit status.
func (o Outcome) ExitCode() int {
	if o.PartialFailure {
		return ExitPartial
	}
	return ExitOK
}

// IndexSink receives successfully persisted posts, e.g. the Postgres index
// behind the read API. Optional; index errors never fail the run.
type IndexSink interface {
	SavePost(doc *post.Doc, slug string) error
}

// Runner drives one run over an ordered list of sources, strictly
// sequentially. The id sequence counter and the failure flag are owned here
// and nowhere else.
type Runner struct {
	Fetcher fetch.Fetcher
	Sink    *deadletter.Sink
	Store   *storage.FileStore
	Index   IndexSink

	// Sleep and Today are swappable for tests.
	Sleep func(time.Duration)
	Today func() string
}

func NewRunner(fetcher fetch.Fetcher, sink *deadletter.Sink, store *storage.FileStore) *Runner {
	return &Runner{
		Fetcher: fetcher,
		Sink:    sink,
		Store:   store,
		Sleep:   time.Sleep,
		Today:   func() string { return time.Now().Format(post.ISODate) },
	}
}

// Run processes every source in order and returns the aggregate outcome.
func (r *Runner) Run(sources []config.Source, p Params) Outcome {
	if p.MaxPerSource <= 0 {
		p.MaxPerSource = defaultMaxPerSource
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	sources = config.Filter(sources, p.Sources)

	today := r.Today()
	seq := 1
	var out Outcome

	for _, src := range sources {
		if out.Processed() >= p.Limit {
			break
		}

		recs, failed := r.collectSource(src, p)
		if failed {
			out.PartialFailure = true
			continue
		}

		for _, rec := range recs {
			if out.Processed() >= p.Limit {
				break
			}

			doc, slug, f := normalize.Record(src, rec, today, seq, p.Since)
			if f != nil {
				if f.Loggable() {
					r.report(src.ID, f)
					out.PartialFailure = true
					if p.Verbose {
						log.Printf("[%s] drop: %s :: %s", src.ID, f.UserMessage, f.LogMessage)
					}
				}
				continue
			}

			res, f := r.Store.Upsert(doc, slug, today, p.DryRun)
			if f != nil {
				r.report(src.ID, f)
				out.PartialFailure = true
				continue
			}

			if res.Created {
				seq++
				out.Written++
				if p.Verbose {
					verb := "write"
					if p.DryRun {
						verb = "plan"
					}
					log.Printf("[%s] %s %s", src.ID, verb, filepath.Base(res.Path))
				}
			} else {
				out.Updated++
				if p.Verbose {
					log.Printf("[%s] update %s", src.ID, filepath.Base(res.Path))
				}
			}

			if r.Index != nil && !p.DryRun {
				if err := r.Index.SavePost(doc, slug); err != nil {
					log.Printf("[%s] index save error: %v", src.ID, err)
				}
			}
		}
	}

	return out
}

// collectSource fetches and parses one source. A panic inside a parser is
// contained here and deadlettered as a SourceError, so one broken source
// never takes down the run.
func (r *Runner) collectSource(src config.Source, p Params) (recs []parser.RawRecord, failed bool) {
	defer func() {
		if cause := recover(); cause != nil {
			r.report(src.ID, deadletter.New(deadletter.KindSourceError,
				"소스 처리 중 오류", fmt.Sprint(cause)))
			recs, failed = nil, true
		}
	}()

	r.Sleep(src.MinDelay())

	payload, f := r.Fetcher.Fetch(src.URL)
	if f != nil {
		r.report(src.ID, f)
		return nil, true
	}

	pr, ok := parser.ForSource(src)
	if !ok {
		r.report(src.ID, deadletter.New(deadletter.KindUnsupportedSource,
			"지원하지 않는 소스 타입", src.Type))
		return nil, true
	}

	recs = pr.Parse(payload.Body, payload.ContentType, src)
	if p.Verbose {
		log.Printf("[%s] fetched %d records", src.ID, len(recs))
	}
	if len(recs) > p.MaxPerSource {
		recs = recs[:p.MaxPerSource]
	}
	return recs, false
}

func (r *Runner) report(sourceID string, f *deadletter.Failure) {
	if err := r.Sink.Append(sourceID, f); err != nil {
		log.Printf("deadletter append error: %v", err)
	}
}
