package main

import (
	"log"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/ime-hub/postscrape/internal/api"
	"github.com/ime-hub/postscrape/internal/config"
	"github.com/ime-hub/postscrape/internal/deadletter"
	"github.com/ime-hub/postscrape/internal/fetch"
	"github.com/ime-hub/postscrape/internal/pipeline"
	"github.com/ime-hub/postscrape/internal/scheduler"
	"github.com/ime-hub/postscrape/internal/storage"
)

// Serve daemon: cron-scheduled collection rounds plus a read API over the
// indexed posts. The JSON files under OUT_DIR remain the source of truth;
// Postgres only serves the API.
func main() {
	cfg := config.Load()

	index, err := storage.NewIndex(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("init index failed: %v", err)
	}

	store := storage.NewFileStore(cfg.OutDir)
	if err := store.EnsureDir(); err != nil {
		log.Fatalf("init output dir failed: %v", err)
	}

	runner := pipeline.NewRunner(fetch.NewCollyFetcher(), deadletter.NewSink(cfg.Deadletter), store)
	runner.Index = index

	// Runs must never overlap: the slug-lookup-then-write sequence in the
	// file store is not atomic across concurrent rounds.
	var collectMu sync.Mutex
	collect := func() {
		collectMu.Lock()
		defer collectMu.Unlock()

		sources, f := config.LoadSources(cfg.SourcesPath)
		if f != nil {
			log.Printf("load sources failed: %v", f)
			return
		}
		out := runner.Run(sources, pipeline.Params{Verbose: true})
		log.Printf("round done: written=%d updated=%d partial_failure=%v",
			out.Written, out.Updated, out.PartialFailure)
	}

	sched, err := scheduler.New(cfg.CronSpec, collect)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	sched.Start()

	r := gin.Default()
	apiServer := api.NewServer(index, collect)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
