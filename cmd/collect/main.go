package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ime-hub/postscrape/internal/config"
	"github.com/ime-hub/postscrape/internal/deadletter"
	"github.com/ime-hub/postscrape/internal/fetch"
	"github.com/ime-hub/postscrape/internal/pipeline"
	"github.com/ime-hub/postscrape/internal/post"
	"github.com/ime-hub/postscrape/internal/storage"
)

// One-shot collection run: load the source registry, run the pipeline once,
// exit 0 on full success, 2 on partial failure, 3 on a fatal config error.
func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultSourcesPath, "source registry path (.json or .yaml)")
	sources := flag.String("sources", "", "comma-separated source ids to collect (default: all)")
	since := flag.String("since", "", "only posts published on or after YYYY-MM-DD")
	maxPerSource := flag.Int("max-per-source", 100, "max records per source")
	limit := flag.Int("limit", 1000, "max records per run")
	outDir := flag.String("out", config.DefaultOutDir, "output directory")
	deadletterPath := flag.String("deadletter", config.DefaultDeadletter, "failure sink path (JSONL)")
	dryRun := flag.Bool("dry-run", false, "report destination paths without writing")
	verbose := flag.Bool("verbose", false, "log per-record progress")
	flag.Parse()

	if *since != "" && !post.IsISODate(*since) {
		fmt.Fprintln(os.Stderr, "--since는 YYYY-MM-DD 형식이어야 합니다.")
		return pipeline.ExitFatal
	}

	sink := deadletter.NewSink(*deadletterPath)

	srcs, f := config.LoadSources(*configPath)
	if f != nil {
		if err := sink.Append("", f); err != nil {
			log.Printf("deadletter append error: %v", err)
		}
		fmt.Fprintln(os.Stderr, f.UserMessage)
		return pipeline.ExitFatal
	}

	store := storage.NewFileStore(*outDir)
	if err := store.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "출력 디렉토리를 만들 수 없습니다: %v\n", err)
		return pipeline.ExitFatal
	}

	runner := pipeline.NewRunner(fetch.NewCollyFetcher(), sink, store)
	out := runner.Run(srcs, pipeline.Params{
		Sources:      *sources,
		Since:        *since,
		MaxPerSource: *maxPerSource,
		Limit:        *limit,
		DryRun:       *dryRun,
		Verbose:      *verbose,
	})

	log.Printf("run done: written=%d updated=%d partial_failure=%v", out.Written, out.Updated, out.PartialFailure)
	return out.ExitCode()
}
