package adapter

import (
	"context"

	"inbox-triage-agent/internal/domain/model"
)

// InboxAPIAdapter is the port for the Job Copilot inbox API.
type InboxAPIAdapter interface {
	// FetchMessages returns up to limit messages currently carrying the
	// given classification.
	FetchMessages(ctx context.Context, classification model.Label, limit int) ([]model.Message, error)

	// ClaimMessage attempts to take exclusive processing rights for a
	// message. false means the message is gone or another worker owns it;
	// an error is only returned when the claim call itself failed hard.
	ClaimMessage(ctx context.Context, id int64) (bool, error)

	// UpdateMessage writes the final classification back.
	UpdateMessage(ctx context.Context, id int64, payload model.UpdatePayload) error
}
