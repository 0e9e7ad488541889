package fraud

import "time"

// Attempt is the scoring view of one verification request. The engine only
// reads it; the orchestrator owns request validation.
type Attempt struct {
	VoterID          string
	TerminalID       string
	PollingStationID string
	Method           string
	DurationSeconds  float64
	RetryCount       int
	At               time.Time
}

// Verdict is the suspicion assessment for one attempt. Produced once,
// attached to the audit record, never modified after creation.
type Verdict struct {
	IsSuspicious bool
	Confidence   float64
	Reasons      []string
}

// FeatureVector is the model input extracted from an attempt or a historical
// record.
type FeatureVector struct {
	HourOfDay       float64
	DurationSeconds float64
	TerminalLoad    float64
	MethodCode      float64
	RetryCount      float64
}

// MethodCode maps a verification method to its numeric model feature.
// Unknown methods map to 0 so a bad value skews toward anomalous rather
// than blending in with a known method.
func MethodCode(method string) float64 {
	switch method {
	case "card":
		return 1
	case "biometric":
		return 2
	case "manual":
		return 3
	default:
		return 0
	}
}

// HourOfDay returns the fractional hour (0-24) of t in its own location.
func HourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60.0
}
