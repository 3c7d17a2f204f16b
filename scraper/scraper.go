package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nodetap/config"
	"nodetap/datastore"
	"nodetap/flatten"
	"nodetap/kubelet"
	"nodetap/log"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scrapesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nodetap_scrapes_total",
		Help: "Scrape cycles by outcome.",
	}, []string{"result"})
	flattenedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodetap_metric_events_flattened_total",
		Help: "Metric events produced by the flattening engine.",
	})
)

// Fetcher returns one raw summary document and the HTTP status code of the
// fetch. Implemented by kubelet.Client.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, int, error)
}

// Scraper runs the periodic fetch-decode-emit cycle against one kubelet.
// Cycles never overlap: everything happens on the Run goroutine, so the
// scrape timestamp and the transport need no locking. A failed cycle is
// logged and counted, never propagated; the next tick is the only retry.
type Scraper struct {
	client   Fetcher
	ds       datastore.DataStore
	tmpl     flatten.TagTemplate
	interval time.Duration

	// scrapedAt is written once per successful cycle and feeds the uptime
	// computation of that same cycle.
	scrapedAt time.Time

	// seenFailures keeps one entry per distinct failure so a flapping
	// kubelet does not flood the log on every tick.
	seenFailures *cache.Cache
}

func New(client Fetcher, ds datastore.DataStore, conf config.ScrapeConfig) *Scraper {
	return &Scraper{
		client:       client,
		ds:           ds,
		tmpl:         flatten.NewTagTemplate(conf.TagTemplate),
		interval:     conf.Interval,
		seenFailures: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Run blocks until ctx is cancelled. The first scrape happens immediately,
// then once per interval. A slow fetch simply delays the next cycle; missed
// ticks are not compensated.
func (s *Scraper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.scrapeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Logger.Info().Msg("context done, stopping scraper")
			return
		case <-t.C:
			s.scrapeOnce(ctx)
		}
	}
}

func (s *Scraper) scrapeOnce(ctx context.Context) {
	body, status, err := s.client.Fetch(ctx)
	if err != nil {
		s.fail("transport", err.Error())
		return
	}
	if status < 200 || status >= 300 {
		s.fail("status", fmt.Sprintf("summary endpoint returned %d: %s", status, truncate(body, 512)))
		return
	}

	var summary kubelet.Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		s.fail("decode", fmt.Sprintf("malformed summary document: %v", err))
		return
	}

	s.scrapedAt = time.Now()
	events := flatten.Flatten(&summary, s.scrapedAt, s.tmpl)
	for i := range events {
		if err := s.ds.PersistMetric(&events[i]); err != nil {
			log.Logger.Warn().Msgf("could not enqueue metric event: %v", err)
		}
	}

	scrapesTotal.WithLabelValues("success").Inc()
	flattenedEvents.Add(float64(len(events)))
	log.Logger.Debug().Int("events", len(events)).Msg("scrape cycle complete")
}

func (s *Scraper) fail(kind, msg string) {
	scrapesTotal.WithLabelValues(kind).Inc()

	key := kind + ":" + msg
	if _, seen := s.seenFailures.Get(key); seen {
		log.Logger.Debug().Str("kind", kind).Msg("scrape failed (repeat)")
		return
	}
	s.seenFailures.SetDefault(key, struct{}{})
	log.Logger.Error().Str("kind", kind).Msg(msg)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
