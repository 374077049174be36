package crawler

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/littlebom/anlp-gmap-sub001/internal/logger"
	"github.com/littlebom/anlp-gmap-sub001/internal/utils"
)

// Scheduler runs the crawler on a cron cadence. Overlapping runs are
// suppressed: if a crawl is still going when the next tick fires, the tick
// is dropped.
type Scheduler struct {
	crawler  *Crawler
	cron     *cron.Cron
	log      *logger.Logger
	rootURIs []string
	schedule string
	running  atomic.Bool
}

func NewScheduler(c *Crawler, baseLog *logger.Logger) *Scheduler {
	log := baseLog.With("component", "CrawlScheduler")
	roots := strings.Split(utils.GetEnv("CRAWL_ROOT_URIS", "", log), ",")
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	return &Scheduler{
		crawler:  c,
		cron:     cron.New(),
		log:      log,
		rootURIs: cleaned,
		schedule: utils.GetEnv("CRAWL_SCHEDULE", "0 3 * * 0", log),
	}
}

// Start registers the cron entry and begins ticking. It is a no-op when no
// root URIs are configured.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.rootURIs) == 0 {
		s.log.Info("No crawl roots configured, scheduler idle")
		return nil
	}
	_, err := s.cron.AddFunc(s.schedule, func() {
		if !s.running.CompareAndSwap(false, true) {
			s.log.Warn("Previous crawl still running, skipping tick")
			return
		}
		defer s.running.Store(false)
		if err := s.crawler.CrawlAll(ctx, s.rootURIs); err != nil {
			s.log.Error("Scheduled crawl failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("Crawl scheduler started", "schedule", s.schedule, "roots", len(s.rootURIs))
	return nil
}

// Stop halts ticking and waits for an in-flight run registered with cron to
// finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
