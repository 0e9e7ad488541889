package handler

import "pollguard/internal/verification"

// VerifyResponse is the wire form of a verification result.
type VerifyResponse struct {
	Status         string   `json:"status"`
	Reason         string   `json:"reason,omitempty"`
	CorrectStation string   `json:"correct_station,omitempty"`
	VoterName      string   `json:"voter_name,omitempty"`
	ReceiptID      int64    `json:"verification_receipt_id,omitempty"`
	Suspicious     bool     `json:"suspicious"`
	FraudReasons   []string `json:"fraud_reasons,omitempty"`
}

// FromResult maps a domain result to the wire response.
func FromResult(result *verification.Result) VerifyResponse {
	return VerifyResponse{
		Status:         string(result.Status),
		Reason:         result.Reason,
		CorrectStation: result.CorrectStation,
		VoterName:      result.VoterName,
		ReceiptID:      result.ReceiptID,
		Suspicious:     result.Verdict.IsSuspicious,
		FraudReasons:   result.Verdict.Reasons,
	}
}

// statusCodeFor maps terminal states to HTTP status codes, mirroring the
// original terminal protocol: rejections are 403, unknown voters 404,
// infrastructure failures 503, bad input 400.
func statusCodeFor(result *verification.Result) int {
	switch result.Status {
	case verification.StatusVerified:
		return 200
	case verification.StatusRejected:
		return 403
	default:
		switch result.Reason {
		case verification.ReasonVoterNotFound:
			return 404
		case verification.ReasonInvalidRequest:
			return 400
		default:
			return 503
		}
	}
}
