package datastore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"nodetap/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
)

var innerMetricsPort int = 8183

var (
	sentEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodetap_metric_events_sent_total",
		Help: "Metric events handed to the backend in batches.",
	})
	sendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodetap_backend_send_failures_total",
		Help: "Batch deliveries that failed after retries.",
	})
	droppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nodetap_metric_events_dropped_total",
		Help: "Metric events dropped because the delivery buffer was full.",
	})
)

// exportSelfMetrics serves the agent's own prometheus metrics on an inner
// port. The registry is the default one, so counters registered by other
// packages show up here too.
func (b *BackendDS) exportSelfMetrics() {
	if err := prometheus.Register(version.NewCollector("nodetap")); err != nil {
		log.Logger.Warn().Msgf("could not register version collector: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/inner/metrics", promhttp.Handler())
	if err := http.ListenAndServe(fmt.Sprintf(":%d", innerMetricsPort), mux); err != nil {
		log.Logger.Error().Err(err).Msg("inner metrics server stopped")
	}
}

// forwardSelfMetrics periodically scrapes the inner endpoint and forwards the
// text exposition to the backend, so the backend sees the agent's health
// without reaching into the node.
func (b *BackendDS) forwardSelfMetrics(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for range t.C {
		body, err := b.fetchInnerMetrics()
		if err != nil {
			log.Logger.Error().Msgf("error scraping inner metrics: %v", err)
			continue
		}

		url := fmt.Sprintf("%s:%s%s?instance=%s&monitoring_id=%s",
			b.host, b.port, scrapeEndpoint, NodeID, MonitoringID)
		req, err := http.NewRequest(http.MethodPost, url, body)
		if err != nil {
			log.Logger.Error().Msgf("error creating metrics forward request: %v", err)
			continue
		}
		if err := b.DoRequest(req); err != nil {
			log.Logger.Error().Msgf("error forwarding self metrics: %v", err)
		}
	}
}

func (b *BackendDS) fetchInnerMetrics() (io.Reader, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("http://localhost:%d/inner/metrics", innerMetricsPort), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating inner metrics request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := b.c.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error sending inner metrics request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inner metrics request not success: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading inner metrics response body: %w", err)
	}
	return bytes.NewReader(body), nil
}
