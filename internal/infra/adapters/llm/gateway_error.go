package llm

import "fmt"

// GatewayError is the single failure surface of the LLM adapters: retries
// exhausted, an unexpected status, or a malformed response body.
type GatewayError struct {
	Provider string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
