package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"nodetap/config"
	"nodetap/flatten"
	"nodetap/log"

	"github.com/hashicorp/go-retryablehttp"
	"k8s.io/apimachinery/pkg/util/uuid"

	"github.com/prometheus/common/version"
)

var MonitoringID string
var NodeID string

func init() {
	x := os.Getenv("MONITORING_ID")
	if x == "" {
		MonitoringID = string(uuid.NewUUID())
	} else {
		MonitoringID = x
	}

	x = os.Getenv("NODE_NAME")
	if x == "" {
		NodeID = string(uuid.NewUUID())
	} else {
		NodeID = x
	}
}

const (
	metricEndpoint      = "/nodetap/metrics/"
	healthCheckEndpoint = "/nodetap/healthcheck/"
	scrapeEndpoint      = "/nodetap/metrics/scrape/"
)

var defaultBatchSize int64 = 1000

// BackendDS ships flattened metric events to the ingest backend. Events are
// buffered on a channel and flushed in idempotency-keyed batches.
type BackendDS struct {
	host      string
	port      string
	c         *http.Client
	batchSize int64

	metricChan chan *flatten.MetricEvent
}

func NewBackendDS(conf config.BackendConfig, scrape config.ScrapeConfig) *BackendDS {
	retryClient := retryablehttp.NewClient()
	retryClient.Backoff = retryablehttp.DefaultBackoff
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.RetryMax = 4
	retryClient.Logger = nil

	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		var shouldRetry bool
		if err != nil { // connection refused, connection reset, connection timeout
			shouldRetry = true
			log.Logger.Warn().Msgf("will retry, error: %v", err)
		} else if resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode >= http.StatusInternalServerError {
			shouldRetry = true

			rb, err := io.ReadAll(resp.Body)
			if err != nil {
				log.Logger.Warn().Msgf("error reading response body: %v", err)
			}
			log.Logger.Warn().Msgf("will retry, response body: %s", string(rb))
			log.Logger.Warn().Msgf("will retry, status code: %d", resp.StatusCode)
		}
		return shouldRetry, nil
	}

	retryClient.HTTPClient.Transport = &http.Transport{
		DisableKeepAlives: false,
		MaxConnsPerHost:   50,
	}
	retryClient.HTTPClient.Timeout = 10 * time.Second

	bs, err := strconv.ParseInt(os.Getenv("BATCH_SIZE"), 10, 64)
	if err != nil {
		bs = defaultBatchSize
	}

	ds := &BackendDS{
		host:       conf.Host,
		port:       conf.Port,
		c:          retryClient.StandardClient(),
		batchSize:  bs,
		metricChan: make(chan *flatten.MetricEvent, 10000),
	}

	go ds.sendMetricsInBatch(5 * time.Second)
	go ds.sendHealthCheck(scrape, 1*time.Minute)

	if conf.SelfTelemetry {
		go ds.exportSelfMetrics()
		go ds.forwardSelfMetrics(conf.SelfTelemetryInterval)
	}

	return ds
}

// PersistMetric enqueues one event for delivery. It never blocks the scrape
// path; when the buffer is full the event is dropped and counted.
func (b *BackendDS) PersistMetric(ev *flatten.MetricEvent) error {
	select {
	case b.metricChan <- ev:
		return nil
	default:
		droppedEvents.Inc()
		return fmt.Errorf("metric buffer full, dropping event %s", ev.Tag)
	}
}

func (b *BackendDS) DoRequest(req *http.Request) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := b.c.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error sending http request: %v", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) // in order to reuse the connection
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("not success: %d, %s", resp.StatusCode, string(body))
	}

	return nil
}

func (b *BackendDS) sendToBackend(payload interface{}, endpoint string) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Logger.Error().Msgf("error marshalling batch: %v", err)
		return
	}

	httpReq, err := http.NewRequest(http.MethodPost, b.host+":"+b.port+endpoint, bytes.NewBuffer(payloadBytes))
	if err != nil {
		log.Logger.Error().Msgf("error creating http request: %v", err)
		return
	}

	if err := b.DoRequest(httpReq); err != nil {
		sendFailures.Inc()
		log.Logger.Error().Msgf("backend persist error at ep %s : %v", endpoint, err)
	}
}

func (b *BackendDS) metadata() Metadata {
	return Metadata{
		MonitoringID:   MonitoringID,
		IdempotencyKey: string(uuid.NewUUID()),
		NodeID:         NodeID,
		AgentVersion:   version.Version,
	}
}

func (b *BackendDS) sendMetricsInBatch(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	send := func() {
		batch := make([]*flatten.MetricEvent, 0, b.batchSize)
		loop := true

		for i := 0; (i < int(b.batchSize)) && loop; i++ {
			select {
			case ev := <-b.metricChan:
				batch = append(batch, ev)
			case <-time.After(1 * time.Second):
				loop = false
			}
		}

		if len(batch) == 0 {
			return
		}

		payload := MetricsPayload{
			Metadata: b.metadata(),
			Metrics:  batch,
		}

		b.sendToBackend(payload, metricEndpoint)
		sentEvents.Add(float64(len(batch)))
	}

	for range t.C {
		send()
	}
}

func (b *BackendDS) sendHealthCheck(scrape config.ScrapeConfig, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for range t.C {
		payload := HealthCheckPayload{
			Metadata: b.metadata(),
		}
		payload.Info.TagTemplate = scrape.TagTemplate
		payload.Info.ScrapeInterval = int(scrape.Interval / time.Second)

		b.sendToBackend(payload, healthCheckEndpoint)
	}
}
