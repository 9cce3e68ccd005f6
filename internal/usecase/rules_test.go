package usecase

import (
	"testing"

	"inbox-triage-agent/internal/domain/model"
)

func TestClassifyWithRules(t *testing.T) {
	cases := []struct {
		name string
		text string
		want model.Label
	}{
		{"offer keyword", "We'd like to extend an offer.", model.LabelOffer},
		{"compensation", "Your compensation package details", model.LabelOffer},
		{"interview", "Phone screen with the hiring manager", model.LabelInterviewInvite},
		{"online assessment", "Complete your HackerRank challenge", model.LabelOA},
		{"recruiter reply", "What is your availability next week?", model.LabelRecruiterReply},
		{"rejection", "Unfortunately we are not moving forward", model.LabelRejection},
		{"auto ack", "Thank you for applying to Acme", model.LabelAutoAck},
		{"newsletter", "Click here to unsubscribe", model.LabelNotJobRelated},
		{"no match", "see you at the gym tomorrow", model.LabelOther},
		{"empty", "", model.LabelOther},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyWithRules(tc.text); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

// Higher-value signals outrank exclusionary ones: an interview invite with a
// newsletter footer must not be routed to not_job_related.
func TestRulePriorityOrder(t *testing.T) {
	text := "Interview invite inside. To stop these emails, unsubscribe here."
	if got := ClassifyWithRules(text); got != model.LabelInterviewInvite {
		t.Errorf("expected interview_invite, got %q", got)
	}

	text = "Your offer letter. Unfortunately the signing deadline is Friday."
	if got := ClassifyWithRules(text); got != model.LabelOffer {
		t.Errorf("expected offer, got %q", got)
	}
}

// Closure property: the classifier always lands inside the fixed label set.
func TestRulesAlwaysReturnValidLabel(t *testing.T) {
	inputs := []string{"", "    ", "{}", "ünïcode", "offer interview oa unsubscribe", "\n\t"}
	for _, text := range inputs {
		label := ClassifyWithRules(text)
		if _, err := model.ParseLabel(string(label)); err != nil {
			t.Errorf("classify(%q) returned invalid label %q", text, label)
		}
	}
}
