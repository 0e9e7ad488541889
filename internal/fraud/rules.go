package fraud

import "time"

// Rule reason strings are part of the audit record format; downstream review
// tooling matches on them, so treat them as frozen.
const (
	ReasonSpeedAbnormal    = "Verification speed abnormally fast"
	ReasonHighTerminalRate = "High verification rate at terminal"
	ReasonImpossibleTravel = "Impossible travel between polling stations"
	ReasonModelUntrained   = "Model not trained, insufficient data"
)

// Rules holds the deterministic check thresholds. All checks are pure
// domain logic - no I/O, no side effects.
type Rules struct {
	// SpeedThresholdSeconds flags verifications faster than this. The bound
	// is exclusive: exactly the threshold does not flag.
	SpeedThresholdSeconds float64

	// RateThreshold and RateWindow flag a terminal once more than
	// RateThreshold attempts (counting the current one) land inside the
	// trailing window.
	RateThreshold int
	RateWindow    time.Duration

	// TravelWindow flags a voter who appears at a different station less
	// than this long after their previous sighting.
	TravelWindow time.Duration
}

// CheckSpeed flags implausibly fast verifications.
func (r Rules) CheckSpeed(durationSeconds float64) bool {
	return durationSeconds < r.SpeedThresholdSeconds
}

// CheckRate flags a terminal whose trailing-window count of prior attempts
// has already reached the threshold, i.e. the current attempt is number
// threshold+1 or later within the window.
func (r Rules) CheckRate(priorCount int) bool {
	return priorCount >= r.RateThreshold
}

// CheckTravel flags a voter seen at a different station within the travel
// window. lastStation is the station of the voter's most recent record.
func (r Rules) CheckTravel(lastStation string, lastSeen time.Time, currentStation string, now time.Time) bool {
	if lastStation == "" || lastStation == currentStation {
		return false
	}
	return now.Sub(lastSeen) < r.TravelWindow
}
