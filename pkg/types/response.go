// Package types holds the wire envelopes shared by every API response.
package types

// SuccessEnvelope wraps every 2xx payload under a single data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorBody is the machine-readable error carried by failed responses. Code
// matches the service error taxonomy, not the HTTP status.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps ErrorBody the way SuccessEnvelope wraps data.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
