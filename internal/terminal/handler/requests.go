package handler

import dErrors "pollguard/pkg/domain-errors"

// SessionRequest exchanges an enrollment secret for a session token.
type SessionRequest struct {
	TerminalID string `json:"terminal_id"`
	Secret     string `json:"secret"`
}

func (r SessionRequest) Validate() error {
	if r.TerminalID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "terminal_id is required")
	}
	if r.Secret == "" {
		return dErrors.New(dErrors.CodeBadRequest, "secret is required")
	}
	return nil
}

// HeartbeatRequest is a terminal liveness report.
type HeartbeatRequest struct {
	TerminalID string `json:"terminal_id"`
	Status     string `json:"status"`
}

func (r HeartbeatRequest) Validate() error {
	if r.TerminalID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "terminal_id is required")
	}
	return nil
}
