// Package adapters bridges the fraud engine's history port onto the audit
// ledger so neither package imports the other directly.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pollguard/internal/fraud"
	"pollguard/internal/ledger"
	"pollguard/pkg/platform/sentinel"
)

// LedgerHistory adapts a ledger.Ledger to fraud.History. Terminal load is
// not a stored column; it is reconstructed from the window data itself, both
// here for training and in the engine for live attempts, so the two always
// use the same definition.
type LedgerHistory struct {
	ledger        ledger.Ledger
	rateWindow    time.Duration
	rateThreshold int
}

// NewLedgerHistory wraps the ledger with the rate parameters used to derive
// terminal load features.
func NewLedgerHistory(l ledger.Ledger, rateWindow time.Duration, rateThreshold int) *LedgerHistory {
	return &LedgerHistory{ledger: l, rateWindow: rateWindow, rateThreshold: rateThreshold}
}

// RecentByTerminal passes through to the ledger.
func (h *LedgerHistory) RecentByTerminal(ctx context.Context, terminalID string, window time.Duration) (int, error) {
	return h.ledger.RecentByTerminal(ctx, terminalID, window)
}

// LastByVoter maps the ledger's not-found sentinel to a nil sighting.
func (h *LedgerHistory) LastByVoter(ctx context.Context, voterID string) (*fraud.Sighting, error) {
	record, err := h.ledger.LastByVoter(ctx, voterID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last record by voter: %w", err)
	}
	return &fraud.Sighting{
		PollingStationID: record.PollingStationID,
		RecordedAt:       record.RecordedAt,
	}, nil
}

// TrainingSamples converts the records after the cutoff into feature
// vectors. Terminal load for each record is the count of same-terminal
// records inside the trailing rate window at that record's time, scaled by
// the rate threshold.
func (h *LedgerHistory) TrainingSamples(ctx context.Context, since time.Time) ([]fraud.FeatureVector, error) {
	records, err := h.ledger.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list training window: %w", err)
	}

	// Two-pointer sliding window per terminal over the time-ordered records.
	windows := make(map[string][]time.Time)
	starts := make(map[string]int)

	samples := make([]fraud.FeatureVector, 0, len(records))
	for _, record := range records {
		times := append(windows[record.TerminalID], record.RecordedAt)
		windows[record.TerminalID] = times

		start := starts[record.TerminalID]
		cutoff := record.RecordedAt.Add(-h.rateWindow)
		for start < len(times) && times[start].Before(cutoff) {
			start++
		}
		starts[record.TerminalID] = start

		load := float64(len(times)-start) / float64(h.rateThreshold)
		samples = append(samples, fraud.FeatureVector{
			HourOfDay:       fraud.HourOfDay(record.RecordedAt),
			DurationSeconds: record.DurationSeconds,
			TerminalLoad:    load,
			MethodCode:      fraud.MethodCode(record.Method),
			RetryCount:      float64(record.RetryCount),
		})
	}
	return samples, nil
}
