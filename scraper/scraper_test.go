package scraper

import (
	"context"
	"net/http"
	"testing"
	"time"

	"nodetap/config"
	"nodetap/flatten"
)

type fakeFetcher struct {
	body   []byte
	status int
	err    error
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]byte, int, error) {
	return f.body, f.status, f.err
}

type captureStore struct {
	events []*flatten.MetricEvent
}

func (c *captureStore) PersistMetric(ev *flatten.MetricEvent) error {
	c.events = append(c.events, ev)
	return nil
}

func newTestScraper(f Fetcher, ds *captureStore) *Scraper {
	return New(f, ds, config.ScrapeConfig{
		NodeName:    "n1",
		Interval:    time.Second,
		TagTemplate: "kube.*",
	})
}

func TestScrapeOnceSuccess(t *testing.T) {
	body := []byte(`{
		"node": {
			"nodeName": "n1",
			"startTime": "2020-01-01T00:00:00Z",
			"memory": {"time": "2020-01-01T00:01:00Z", "workingSetBytes": 1024}
		},
		"pods": []
	}`)

	ds := &captureStore{}
	s := newTestScraper(&fakeFetcher{body: body, status: http.StatusOK}, ds)
	s.scrapeOnce(context.Background())

	if len(ds.events) != 2 {
		t.Fatalf("expected uptime + working_set_bytes, got %d events", len(ds.events))
	}

	var tags []string
	for _, ev := range ds.events {
		tags = append(tags, ev.Tag)
	}
	if tags[0] != "kube.node.uptime" || tags[1] != "kube.node.memory.working_set_bytes" {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if ds.events[0].Fields["node"] != "n1" {
		t.Fatalf("missing node label: %v", ds.events[0].Fields)
	}
}

func TestScrapeOnceNonSuccessStatus(t *testing.T) {
	ds := &captureStore{}
	s := newTestScraper(&fakeFetcher{body: []byte("Unauthorized"), status: http.StatusUnauthorized}, ds)
	s.scrapeOnce(context.Background())

	if len(ds.events) != 0 {
		t.Fatalf("expected no events on non-2xx, got %d", len(ds.events))
	}
}

func TestScrapeOnceTransportError(t *testing.T) {
	ds := &captureStore{}
	s := newTestScraper(&fakeFetcher{err: context.DeadlineExceeded}, ds)
	s.scrapeOnce(context.Background())

	if len(ds.events) != 0 {
		t.Fatalf("expected no events on transport error, got %d", len(ds.events))
	}
}

func TestScrapeOnceDecodeError(t *testing.T) {
	ds := &captureStore{}
	s := newTestScraper(&fakeFetcher{body: []byte("{not json"), status: http.StatusOK}, ds)
	s.scrapeOnce(context.Background())

	if len(ds.events) != 0 {
		t.Fatalf("expected nothing partially emitted on decode failure, got %d", len(ds.events))
	}
}

func TestFailureCycleDoesNotStopNextCycle(t *testing.T) {
	f := &fakeFetcher{body: []byte("{not json"), status: http.StatusOK}
	ds := &captureStore{}
	s := newTestScraper(f, ds)

	s.scrapeOnce(context.Background())

	// next cycle succeeds
	f.body = []byte(`{"node": {"nodeName": "n1", "startTime": "2020-01-01T00:00:00Z"}, "pods": []}`)
	s.scrapeOnce(context.Background())

	if len(ds.events) != 1 {
		t.Fatalf("expected the cycle after a failure to emit, got %d events", len(ds.events))
	}
}
