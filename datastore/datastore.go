package datastore

import "nodetap/flatten"

// DataStore is the delivery boundary for flattened metric events. Ordering,
// buffering and retry behind this interface are the router's business, not
// the flattening engine's.
type DataStore interface {
	PersistMetric(ev *flatten.MetricEvent) error
}
