// Package alerts fans suspicious verdicts out to downstream review tooling.
// Publishing is advisory: a failed publish never changes a verification
// outcome, it is logged and dropped.
package alerts

import (
	"context"
	"time"
)

// Alert is the review payload for one suspicious attempt. It carries the
// voter ID hash, not the raw ID, so the stream can be consumed outside the
// core's trust boundary.
type Alert struct {
	ID               string    `json:"id"`
	ReceiptID        int64     `json:"receipt_id"`
	VoterIDHash      string    `json:"voter_id_hash"`
	TerminalID       string    `json:"terminal_id"`
	PollingStationID string    `json:"polling_station_id"`
	Confidence       float64   `json:"confidence"`
	Reasons          []string  `json:"reasons"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// Publisher delivers alerts to reviewers.
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// NoopPublisher drops alerts. Used when no brokers are configured; the
// verdict still lands in the audit ledger.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, alert Alert) error { return nil }
