package domain

import "errors"

var (
	// Common domain errors
	ErrNotClaimable   = errors.New("message is gone or not claimable")
	ErrAlreadyClaimed = errors.New("message already claimed by another worker")
	ErrInvalidLabel   = errors.New("label outside the fixed classification set")
	ErrNoJSONObject   = errors.New("no balanced JSON object found in response")
)
