package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	sweepTimeout = 30 * time.Second
	warmTimeout  = 2 * time.Minute
)

// StartJobs schedules the cache sweep and the deals pre-warm when they are configured.
func (s *Server) StartJobs() error {
	jobs := cron.New()

	if spec := strings.TrimSpace(s.config.Cache.Sweep); spec != "" && s.cache != nil {
		if _, err := jobs.AddFunc(spec, s.sweepCache); err != nil {
			return fmt.Errorf("scheduling cache sweep %q: %w", spec, err)
		}
	}
	if spec := strings.TrimSpace(s.config.Deals.Prewarm); spec != "" {
		if _, err := jobs.AddFunc(spec, s.warmDeals); err != nil {
			return fmt.Errorf("scheduling deals pre-warm %q: %w", spec, err)
		}
	}

	if len(jobs.Entries()) == 0 {
		return nil
	}
	s.jobs = jobs
	jobs.Start()
	log.Printf("Started %d background jobs", len(jobs.Entries()))
	return nil
}

// StopJobs waits for running jobs to finish.
func (s *Server) StopJobs() {
	if s.jobs == nil {
		return
	}
	<-s.jobs.Stop().Done()
	s.jobs = nil
}

func (s *Server) sweepCache() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.cache.ClearExpired(ctx)
	if err != nil {
		log.Printf("Warning: cache sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Cache sweep removed %d expired entries", removed)
	}
}

func (s *Server) warmDeals() {
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()

	if err := s.deals.Warm(ctx); err != nil {
		log.Printf("Warning: deals pre-warm failed: %v", err)
	}
}
