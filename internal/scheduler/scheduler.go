package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// startupDelay postpones the first collection round so the API comes up
// responsive before any fetching starts.
const startupDelay = 15 * time.Second

// Scheduler triggers collection runs on a cron spec. The pipeline itself is
// schedule-free; only the serve daemon composes it with a Scheduler.
type Scheduler struct {
	cron *cron.Cron
	run  func()
}

func New(spec string, run func()) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c, run: run}
	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	time.AfterFunc(startupDelay, func() {
		go s.runOnce()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce triggers a single collection round, for manual triggering.
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	log.Println("start collect round...")
	s.run()
	log.Println("collect round done")
}
