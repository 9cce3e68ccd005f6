package usecase

import (
	"regexp"

	"inbox-triage-agent/internal/domain/model"
)

// Keyword fallback rules, evaluated in priority order: high-value signals
// (offer, interview) win over exclusionary ones (not_job_related) so that a
// message mentioning both "interview" and an "unsubscribe" footer is not
// misrouted.
type rule struct {
	label   model.Label
	pattern *regexp.Regexp
}

var fallbackRules = []rule{
	{model.LabelOffer, regexp.MustCompile(`(?i)\boffer\b|compensation|package`)},
	{model.LabelInterviewInvite, regexp.MustCompile(`(?i)\b(interview|invite|phone screen|onsite|loop)\b`)},
	{model.LabelOA, regexp.MustCompile(`(?i)(hacker ?rank|codility|codesignal|karat|online assessment|challenge|take-?home)`)},
	{model.LabelRecruiterReply, regexp.MustCompile(`(?i)(connect|schedule|chat|next steps|availability)`)},
	{model.LabelRejection, regexp.MustCompile(`(?i)(regret to inform|unfortunately|not moving forward)`)},
	{model.LabelAutoAck, regexp.MustCompile(`(?i)(thank you for applying|we received your application|application received)`)},
	{model.LabelNotJobRelated, regexp.MustCompile(`(?i)unsubscribe|newsletter|promo`)},
}

// ClassifyWithRules maps text to a label using the ordered keyword rules.
// Total function: always returns a member of the label set, defaulting to
// "other" when nothing matches.
func ClassifyWithRules(text string) model.Label {
	for _, r := range fallbackRules {
		if r.pattern.MatchString(text) {
			return r.label
		}
	}
	return model.LabelOther
}
