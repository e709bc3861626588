package types

// SuccessEnvelope wraps every successful HTTP payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of a coded error. RequestID echoes the
// X-Request-Id header so chat operators can find the matching log lines.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
