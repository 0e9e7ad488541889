package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"pollguard/internal/registry"
	"pollguard/internal/terminal"
	"pollguard/pkg/requestcontext"
)

// Seed file formats for in-process deployments. Production points at the
// remote registry instead; the files exist for pilots and local runs.

type voterRollEntry struct {
	VoterID           string `json:"voter_id"`
	DisplayName       string `json:"display_name"`
	AssignedStationID string `json:"assigned_station_id"`
	Status            string `json:"status"`
}

func loadVoterRoll(path string, roll *registry.MemoryRegistry) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var entries []voterRollEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parse voter roll: %w", err)
	}
	for i, entry := range entries {
		if entry.VoterID == "" {
			return 0, fmt.Errorf("voter roll entry %d missing voter_id", i)
		}
		status := registry.Status(entry.Status)
		if status == "" {
			status = registry.StatusActive
		}
		roll.Add(registry.VoterEligibility{
			VoterID:           entry.VoterID,
			DisplayName:       entry.DisplayName,
			AssignedStationID: entry.AssignedStationID,
			Status:            status,
		})
	}
	return len(entries), nil
}

type enrollmentEntry struct {
	TerminalID       string `json:"terminal_id"`
	PollingStationID string `json:"polling_station_id"`
	SecretHash       string `json:"secret_hash"`
}

func loadEnrollments(ctx context.Context, path string, store *terminal.MemoryEnrollments) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var entries []enrollmentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parse enrollments: %w", err)
	}
	now := requestcontext.Now(ctx)
	for i, entry := range entries {
		if entry.TerminalID == "" || entry.PollingStationID == "" || entry.SecretHash == "" {
			return 0, fmt.Errorf("enrollment entry %d incomplete", i)
		}
		err := store.PutEnrollment(ctx, terminal.Enrollment{
			TerminalID:       entry.TerminalID,
			PollingStationID: entry.PollingStationID,
			SecretHash:       entry.SecretHash,
			EnrolledAt:       now,
		})
		if err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}
