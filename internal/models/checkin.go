package models

// CheckInResult is the outcome of one validation attempt. It is never persisted.
type CheckInResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	// Retryable is set only for infrastructure failures; semantic rejections
	// are final and must not be retried automatically.
	Retryable bool `json:"retryable,omitempty"`
}

type CheckInRequest struct {
	Code string `json:"code"`
}
