package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inbox-triage-agent/internal/domain"
	"inbox-triage-agent/internal/domain/model"
	"inbox-triage-agent/internal/domain/ports/adapter"
	"inbox-triage-agent/internal/infra/logging"
	"inbox-triage-agent/internal/infra/metrics"
)

// Compile-time check
var _ ClassificationEngine = (*classifierUC)(nil)

// ClassificationEngine orchestrates the two-tier classification strategy:
// ask the LLM, gate on confidence, fall back to keyword rules on any
// failure. ClassifyMessage never fails; a degraded result is still a result.
type ClassificationEngine interface {
	ClassifyMessage(ctx context.Context, msg model.Message) model.UpdatePayload
}

type classifierUC struct {
	llm           adapter.LLMAdapter
	minConfidence float64
	log           *zerolog.Logger
}

func NewClassificationEngine(llm adapter.LLMAdapter, minConfidence float64, logger *zerolog.Logger) *classifierUC {
	compLog := logger.With().Str("component", "ClassificationEngine").Logger()
	return &classifierUC{
		llm:           llm,
		minConfidence: clamp01(minConfidence),
		log:           &compLog,
	}
}

// ClassifyMessage produces the write-back payload for a message. The rules
// label is computed eagerly so every failure point downstream has a safety
// net to land on.
func (c *classifierUC) ClassifyMessage(ctx context.Context, msg model.Message) model.UpdatePayload {
	defer logging.TraceDuration(c.log, "ClassificationEngine.ClassifyMessage")()

	text := msg.CombinedText()
	fallbackLabel := ClassifyWithRules(text)

	prompt := BuildPrompt(msg)

	start := time.Now()
	raw, err := c.llm.Generate(ctx, prompt, adapter.GenerateOptions{Temperature: 0, MaxTokens: 256})
	metrics.ObserveLLMLatency(time.Since(start), err == nil)
	if err != nil {
		c.log.Warn().Err(err).Int64("message_id", msg.ID).Msg("LLM unavailable; using rules")
		return model.UpdatePayload{
			Classification: fallbackLabel,
			ClassifiedBy:   model.ClassifiedByRules,
		}
	}

	result, extracted, reason, err := c.evaluate(raw)
	if err != nil {
		c.log.Info().Err(err).Int64("message_id", msg.ID).Msg("LLM answer rejected; using rules")
		return model.UpdatePayload{
			Classification: fallbackLabel,
			ClassifiedBy:   model.ClassifiedByRules,
			Reason:         reason,
			RawResponse:    raw,
		}
	}

	return model.UpdatePayload{
		Classification: result.Label,
		ClassifiedBy:   model.ClassifiedByLLM,
		Confidence:     result.Confidence,
		Reason:         result.Reason,
		RawResponse:    extracted,
	}
}

// evaluate parses and gates the raw model text. On rejection it still
// returns any reason it managed to extract, since the model's explanation
// stays informative even when its label is discarded.
func (c *classifierUC) evaluate(raw string) (*model.LLMClassification, string, string, error) {
	extracted, err := ExtractFirstJSONObject(raw)
	if err != nil {
		return nil, "", "", err
	}
	result, err := ParseLLMResponse(extracted)
	if err != nil {
		return nil, "", "", err
	}
	if result.Confidence == nil {
		return nil, "", result.Reason, fmt.Errorf("model returned no confidence")
	}
	if *result.Confidence < c.minConfidence {
		return nil, "", result.Reason, fmt.Errorf("confidence %.2f below threshold %.2f", *result.Confidence, c.minConfidence)
	}
	return result, extracted, result.Reason, nil
}

// BuildPrompt renders the deterministic JSON-only classification prompt.
func BuildPrompt(msg model.Message) string {
	subject := msg.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	snippet := msg.Snippet
	if snippet == "" {
		snippet = "(no snippet)"
	}

	headersBlock := "(none)"
	if len(msg.RawHeaders) > 0 {
		keys := make([]string, 0, len(msg.RawHeaders))
		for k := range msg.RawHeaders {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %s", k, msg.RawHeaders[k]))
		}
		headersBlock = strings.Join(lines, "\n")
	}

	categories := make([]string, 0, len(model.Labels))
	for _, l := range model.Labels {
		categories = append(categories, string(l))
	}

	var b strings.Builder
	b.WriteString("You are a JSON-only classifier for job search emails.\n")
	b.WriteString("Return a single-line JSON object with keys 'label', 'confidence', and 'reason'.\n")
	b.WriteString("Label MUST be one of [" + strings.Join(categories, ", ") + "]. Confidence must be between 0 and 1.\n")
	b.WriteString("Do not include any extra text or Markdown.\n")
	b.WriteString(`Example: {"label":"interview_invite","confidence":0.82,"reason":"mentions scheduling"}.` + "\n")
	b.WriteString("Email to classify:\n")
	b.WriteString("Subject: " + subject + "\n")
	b.WriteString("Snippet: " + snippet + "\n")
	b.WriteString("Headers:\n")
	b.WriteString(headersBlock + "\n")
	return b.String()
}

// ParseLLMResponse validates a JSON payload against the LLMClassification
// shape: label must normalize into the fixed set, confidence if present
// must lie in [0,1].
func ParseLLMResponse(rawJSON string) (*model.LLMClassification, error) {
	var decoded struct {
		Label      string   `json:"label"`
		Confidence *float64 `json:"confidence"`
		Reason     string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(rawJSON), &decoded); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	label, err := model.ParseLabel(decoded.Label)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidLabel, err)
	}
	if decoded.Confidence != nil && (*decoded.Confidence < 0 || *decoded.Confidence > 1) {
		return nil, fmt.Errorf("confidence %v outside [0,1]", *decoded.Confidence)
	}
	return &model.LLMClassification{
		Label:      label,
		Confidence: decoded.Confidence,
		Reason:     decoded.Reason,
	}, nil
}

// ExtractFirstJSONObject returns the first substring of text starting at
// '{' whose brace nesting returns to zero, ignoring any prose the model
// emitted around it. An unterminated object is a parse failure.
func ExtractFirstJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", domain.ErrNoJSONObject
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in response")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
