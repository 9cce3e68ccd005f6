package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inbox-triage-agent/internal/domain/ports/adapter"
	"inbox-triage-agent/internal/infra/retry"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.LLMAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.LLMAdapter against any OpenAI-compatible
// chat completions endpoint. The classification prompt is sent as a single
// user message with temperature and max_tokens mapped from GenerateOptions.
type OpenAIAdapter struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
	policy retry.Policy
	log    *zerolog.Logger
}

func NewOpenAIAdapter(apiKey, model, base string, timeout time.Duration, maxRetries int, logger *zerolog.Logger) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	compLog := logger.With().Str("component", "OpenAIAdapter").Logger()
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: timeout},
		policy: retry.Policy{MaxAttempts: maxRetries, InitialDelay: time.Second, MaxDelay: timeout},
		log:    &compLog,
	}, nil
}

func (o *OpenAIAdapter) Model() string { return o.model }

func (o *OpenAIAdapter) Generate(ctx context.Context, prompt string, opts adapter.GenerateOptions) (string, error) {
	reqBody := struct {
		Model       string  `json:"model"`
		Messages    []chatM `json:"messages"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens,omitempty"`
	}{
		Model:       o.model,
		Messages:    []chatM{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	b, _ := json.Marshal(reqBody)

	var text string
	err := retry.Do(ctx, o.policy, transportOnly, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
		if err != nil {
			return &GatewayError{Provider: "openai", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+o.apiKey)

		resp, err := o.client.Do(req)
		if err != nil {
			o.log.Debug().Err(err).Msg("openai request failed")
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return &GatewayError{Provider: "openai", Err: fmt.Errorf("http %d", resp.StatusCode)}
		}

		var payload struct {
			Choices []struct {
				Message chatM `json:"message"`
			} `json:"choices"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return &GatewayError{Provider: "openai", Err: err}
		}
		for _, c := range payload.Choices {
			if c.Message.Content != "" {
				text = c.Message.Content
				return nil
			}
		}
		return &GatewayError{Provider: "openai", Err: errors.New("no choice content")}
	})
	if err != nil {
		var ge *GatewayError
		if errors.As(err, &ge) {
			return "", err
		}
		return "", &GatewayError{Provider: "openai", Err: err}
	}
	return text, nil
}

type chatM struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
