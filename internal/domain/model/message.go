package model

import (
	"fmt"
	"strings"
)

// Label is a classification from the fixed triage label set.
type Label string

const (
	LabelOffer           Label = "offer"
	LabelInterviewInvite Label = "interview_invite"
	LabelOA              Label = "oa"
	LabelRecruiterReply  Label = "recruiter_reply"
	LabelRejection       Label = "rejection"
	LabelAutoAck         Label = "auto_ack"
	LabelNotJobRelated   Label = "not_job_related"
	LabelOther           Label = "other"
)

// Labels lists every valid label in a stable order.
var Labels = []Label{
	LabelOffer,
	LabelInterviewInvite,
	LabelOA,
	LabelRecruiterReply,
	LabelRejection,
	LabelAutoAck,
	LabelNotJobRelated,
	LabelOther,
}

// ParseLabel normalizes a raw label (case-insensitive, trimmed) and rejects
// anything outside the fixed set.
func ParseLabel(raw string) (Label, error) {
	normalized := Label(strings.ToLower(strings.TrimSpace(raw)))
	for _, l := range Labels {
		if normalized == l {
			return l, nil
		}
	}
	return "", fmt.Errorf("label %q is not one of %v", raw, Labels)
}

// ClassifiedBy records which tier produced a classification.
type ClassifiedBy string

const (
	ClassifiedByLLM   ClassifiedBy = "llm"
	ClassifiedByRules ClassifiedBy = "rules"
)

// Message is an inbox message as returned by the Job Copilot API.
// Immutable once fetched.
type Message struct {
	ID             int64             `json:"id"`
	Subject        string            `json:"subject"`
	Snippet        string            `json:"snippet"`
	RawHeaders     map[string]string `json:"raw_headers,omitempty"`
	GmailMessageID string            `json:"gmail_message_id,omitempty"`
	GmailThreadID  string            `json:"gmail_thread_id,omitempty"`
}

// CombinedText joins the trimmed subject and snippet with a newline,
// omitting empty parts.
func (m Message) CombinedText() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{m.Subject, m.Snippet} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n")
}

// LLMClassification is the parsed answer of the model. Transient: produced
// by parsing LLM output, consumed immediately by the classification engine.
type LLMClassification struct {
	Label      Label    `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// ClaimResponse is the body of a successful claim call.
type ClaimResponse struct {
	TriageInProgress *bool `json:"triage_in_progress"`
}

// UpdatePayload is the write-back contract for a classified message.
// Absent optional fields are omitted from the wire, never sent as null.
type UpdatePayload struct {
	Classification Label        `json:"classification"`
	ClassifiedBy   ClassifiedBy `json:"classified_by"`
	Confidence     *float64     `json:"confidence,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	RawResponse    string       `json:"raw_response,omitempty"`
}
