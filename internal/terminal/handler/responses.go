package handler

// SessionResponse carries an issued terminal session token.
type SessionResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// HeartbeatResponse acknowledges a heartbeat and surfaces pending updates.
type HeartbeatResponse struct {
	Status           string `json:"status"`
	UpdatesAvailable bool   `json:"updates_available"`
}
