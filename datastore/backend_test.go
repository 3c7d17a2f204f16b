package datastore

import (
	"testing"
	"time"

	"nodetap/flatten"
)

func TestPersistMetricNeverBlocksScrapePath(t *testing.T) {
	b := &BackendDS{metricChan: make(chan *flatten.MetricEvent, 1)}

	ev := &flatten.MetricEvent{Tag: "kube.node.uptime", Timestamp: time.Now()}
	if err := b.PersistMetric(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// buffer is full now; the next event must be dropped, not block
	done := make(chan error, 1)
	go func() { done <- b.PersistMetric(ev) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a drop error when the buffer is full")
		}
	case <-time.After(time.Second):
		t.Fatal("PersistMetric blocked on a full buffer")
	}
}
