package inboxapi

import "fmt"

// StatusError is an HTTP response with status >= 400. 5xx is transient and
// retried by the client; 4xx signals a business condition and never is.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Code, e.Body)
}

// Retryable reports whether another attempt could change the outcome.
func (e *StatusError) Retryable() bool { return e.Code >= 500 }

// APIError is the single surfaced failure of the inbox API client after the
// retry budget is spent, carrying the original error.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inbox api %s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }
