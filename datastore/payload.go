package datastore

import "nodetap/flatten"

type Metadata struct {
	MonitoringID   string `json:"monitoring_id"`
	IdempotencyKey string `json:"idempotency_key"`
	NodeID         string `json:"node_id"`
	AgentVersion   string `json:"agent_version"`
}

type MetricsPayload struct {
	Metadata Metadata               `json:"metadata"`
	Metrics  []*flatten.MetricEvent `json:"metrics"`
}

type HealthCheckPayload struct {
	Metadata Metadata `json:"metadata"`
	Info     struct {
		TagTemplate    string `json:"tag_template"`
		ScrapeInterval int    `json:"scrape_interval_seconds"`
	} `json:"nodetap_info"`
}
